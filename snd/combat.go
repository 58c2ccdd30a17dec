// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"path/filepath"
	"sync"

	"eqaudio/conlog"
	"eqaudio/filesystem"
	"eqaudio/rand"
)

const (
	// combatStingerDelaySeconds is how long a fight must last before
	// the stinger plays; brief encounters stay silent.
	combatStingerDelaySeconds = 5
	// combatStingerFadeSeconds fades a still-playing stinger out when
	// combat ends.
	combatStingerFadeSeconds = 2
	// combatStingerVolume sits under the zone track.
	combatStingerVolume = 0.8
)

// stingerFiles are the short combat cues, picked at random per fight.
var stingerFiles = []string{"damage1.xmi", "damage2.xmi"}

// CombatMusic plays combat stingers on a streamer of its own so they
// layer over the zone track instead of replacing it.
type CombatMusic struct {
	store    *filesystem.Store
	streamer *MusicStreamer

	mu        sync.Mutex
	rng       rand.Generator
	enabled   bool
	inCombat  bool
	timer     float32
	triggered bool
	volume    float32
}

func newCombatMusic(store *filesystem.Store, streamer *MusicStreamer) *CombatMusic {
	c := &CombatMusic{
		store:    store,
		streamer: streamer,
		rng:      rand.NewTimeSeeded(),
		enabled:  true,
		volume:   combatStingerVolume,
	}
	c.streamer.SetVolume(c.volume)
	return c
}

// OnCombatStart arms the stinger timer. Already being in combat is a
// no-op.
func (c *CombatMusic) OnCombatStart() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.inCombat {
		return
	}
	c.inCombat = true
	c.timer = 0
	c.triggered = false
}

// OnCombatEnd disarms the timer and fades a still-playing stinger out.
func (c *CombatMusic) OnCombatEnd() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inCombat {
		return
	}
	c.inCombat = false
	c.timer = 0
	c.triggered = false
	if c.streamer.IsPlaying() {
		c.streamer.Stop(combatStingerFadeSeconds)
	}
}

// Update advances the combat timer by dt seconds and fires the stinger
// once the delay passes.
func (c *CombatMusic) Update(dt float32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || !c.inCombat {
		return
	}
	c.timer += dt
	if !c.triggered && c.timer >= combatStingerDelaySeconds {
		c.triggered = true
		c.playStingerLocked()
	}
}

// caller holds c.mu
func (c *CombatMusic) playStingerLocked() {
	name := stingerFiles[c.rng.IntnInclusive(len(stingerFiles)-1)]
	if !c.store.Exists(name) {
		conlog.Printf("snd: combat stinger %s missing", name)
		return
	}
	path := filepath.Join(c.store.Root(), name)
	// Stingers play once, never looped.
	if c.streamer.Play(path, false, 0) {
		conlog.Printf("snd: combat stinger %s", name)
	}
}

// InCombat reports whether a fight is in progress.
func (c *CombatMusic) InCombat() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inCombat
}

// StingerPlaying reports whether a stinger is audible.
func (c *CombatMusic) StingerPlaying() bool {
	if c == nil {
		return false
	}
	return c.streamer.IsPlaying()
}

// SetEnabled turns the layer on or off; disabling fades out a playing
// stinger.
func (c *CombatMusic) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled && c.streamer.IsPlaying() {
		c.streamer.Stop(0.5)
	}
}

// SetVolume scales the stinger under the zone track.
func (c *CombatMusic) SetVolume(v float32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clampVolume(v)
	c.streamer.SetVolume(c.volume)
}

// reset hard-stops the layer for shutdown or a device switch.
func (c *CombatMusic) reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inCombat = false
	c.timer = 0
	c.triggered = false
	c.streamer.Reset()
}
