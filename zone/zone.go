// SPDX-License-Identifier: GPL-2.0-or-later

package zone

import (
	"path/filepath"
	"strings"

	"eqaudio/conlog"
	"eqaudio/eff"
	"eqaudio/rand"
	"eqaudio/vec"
)

const (
	// musicCrossfadeSeconds is the fade used when the listener leaves
	// every music region or switches between regions.
	musicCrossfadeSeconds = 2
	// dayNightMusicFadeSeconds is the shorter fade of a day/night
	// music track change.
	dayNightMusicFadeSeconds = 1
	// dayNightFadeMs is the crossfade window of non-music emitters on
	// a day/night flip.
	dayNightFadeMs = 2000
)

// Audio is the playback surface the zone layer drives. *snd.Manager
// satisfies it; tests use a fake.
type Audio interface {
	PlaySoundScaled(name string, pos vec.Vec3, volume float32)
	PlayMusicFile(path string, loop bool, track int) bool
	StopMusic(fadeSeconds float32)
}

// Manager owns the emitters of the loaded zone and the active music
// region.
type Manager struct {
	audio  Audio
	loader *eff.Loader
	root   string
	rng    rand.Generator

	zone        string
	emitters    []*Emitter
	activeMusic *Emitter
	isDay       bool
	paused      bool
}

// NewManager builds a zone manager reading EFF data from root.
func NewManager(a Audio, root string) *Manager {
	return &Manager{
		audio:  a,
		loader: eff.NewLoader(root),
		root:   root,
		rng:    rand.NewTimeSeeded(),
		isDay:  true,
	}
}

// LoadZone replaces the current zone's emitters with the named zone's.
// A zone without ambience data loads empty rather than failing.
func (m *Manager) LoadZone(name string) bool {
	m.stopAll()
	m.zone = strings.ToLower(name)
	m.emitters = nil
	m.activeMusic = nil

	bank, ok := m.loader.LoadZone(m.zone)
	if !ok {
		conlog.Printf("zone: %s has no ambience data", name)
		return false
	}
	for _, e := range bank.Entries {
		m.emitters = append(m.emitters, NewEmitter(e, bank, m.zone))
	}
	conlog.Printf("zone: %s loaded, %d emitters (%d music)", name, len(m.emitters), bank.MusicEntryCount())
	return true
}

// Zone returns the loaded zone name.
func (m *Manager) Zone() string { return m.zone }

// Emitters exposes the emitter list for inspection.
func (m *Manager) Emitters() []*Emitter { return m.emitters }

// Update advances every emitter by dt seconds and reselects the music
// region.
func (m *Manager) Update(dt float32, listener vec.Vec3, isDay bool) {
	if m.paused {
		return
	}
	if isDay != m.isDay {
		m.SetDayNight(isDay)
	}
	for _, em := range m.emitters {
		if em.typ == eff.BackgroundMusic {
			continue
		}
		em.Update(dt, listener, m.isDay, &m.rng, m.audio)
	}
	m.updateMusic(listener)
}

// updateMusic picks the single closest in-range music emitter and
// switches tracks when it changes.
func (m *Manager) updateMusic(listener vec.Vec3) {
	var closest *Emitter
	var closestDist float32
	for _, em := range m.emitters {
		if em.typ != eff.BackgroundMusic {
			continue
		}
		dist := vec.Distance(listener, em.pos)
		if dist > em.radius {
			continue
		}
		if closest == nil || dist < closestDist {
			closest, closestDist = em, dist
		}
	}
	if closest == m.activeMusic {
		return
	}
	if closest == nil {
		conlog.Printf("zone: %s: left music region", m.zone)
		m.audio.StopMusic(musicCrossfadeSeconds)
		m.activeMusic = nil
		return
	}
	m.startMusic(closest)
}

func (m *Manager) startMusic(em *Emitter) {
	file := em.soundFile(m.isDay)
	if file == "" {
		return
	}
	path := filepath.Join(m.root, file)
	track := em.musicTrack(m.isDay)
	if m.activeMusic != nil {
		m.audio.StopMusic(0)
	}
	if m.audio.PlayMusicFile(path, true, track) {
		conlog.Printf("zone: %s: music region -> %s (track %d)", m.zone, file, track)
		m.activeMusic = em
	}
}

// SetDayNight flips the time of day. The active music restarts with a
// short fade when its track changes; other emitters with variants
// crossfade to the new file.
func (m *Manager) SetDayNight(isDay bool) {
	if isDay == m.isDay {
		return
	}
	m.isDay = isDay

	for _, em := range m.emitters {
		if em.typ == eff.BackgroundMusic {
			continue
		}
		em.TransitionTo(isDay, dayNightFadeMs)
	}

	if am := m.activeMusic; am != nil && am.HasDayNightVariants() {
		m.audio.StopMusic(dayNightMusicFadeSeconds)
		file := am.soundFile(isDay)
		if file == "" {
			m.activeMusic = nil
			return
		}
		if m.audio.PlayMusicFile(filepath.Join(m.root, file), true, am.musicTrack(isDay)) {
			conlog.Printf("zone: %s: day/night music -> %s (track %d)", m.zone, file, am.musicTrack(isDay))
		}
	}
}

// Pause freezes the ambience without unloading it.
func (m *Manager) Pause() { m.paused = true }

// Resume continues a paused zone.
func (m *Manager) Resume() { m.paused = false }

func (m *Manager) stopAll() {
	for _, em := range m.emitters {
		em.Stop()
	}
	if m.activeMusic != nil {
		m.audio.StopMusic(0)
		m.activeMusic = nil
	}
}

// Unload drops all emitters and stops zone music.
func (m *Manager) Unload() {
	m.stopAll()
	m.emitters = nil
	m.zone = ""
}
