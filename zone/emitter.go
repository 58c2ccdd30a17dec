// SPDX-License-Identifier: GPL-2.0-or-later

// Package zone drives per-zone ambience: one emitter state machine per
// sounds.eff record and a manager that selects the active music region
// and handles day/night flips.
package zone

import (
	"eqaudio/eff"
	"eqaudio/rand"
	"eqaudio/vec"
)

// minCooldownMs floors every computed cooldown so dense emitters
// cannot retrigger every frame.
const minCooldownMs = 1000

// oneShot marks an emitter that played once and will not replay until
// the listener leaves and re-enters its radius.
const oneShot = -1

// volumeParamScale converts the asDistance field into a gain:
// gain = (3000 - asDistance) / 3000.
const volumeParamScale = 3000

// Emitter is one positioned ambience point. Playback goes through
// anonymous pooled channels, so the cooldown doubles as a play-duration
// proxy; the emitter never learns when its sound actually finished.
type Emitter struct {
	typ         eff.SoundType
	pos         vec.Vec3
	radius      float32
	cooldown1   int32 // ms, day
	cooldown2   int32 // ms, night
	randomDelay int32 // ms
	fadeOutMs   int32
	volumeParam int32
	dayID       int32
	nightID     int32

	daySound   string
	nightSound string
	dayTrack   int
	nightTrack int

	inRange       bool
	playing       bool
	fadingOut     bool
	cooldownMs    float32
	currentVolume float32
	fadeStart     float32
	fadeMs        int32 // overrides fadeOutMs for a day/night crossfade
}

// NewEmitter resolves an eff entry against its zone bank. Music-type
// entries with sound IDs 1..31 become subsong references into the
// zone's xmi file.
func NewEmitter(e eff.Entry, bank *eff.Bank, zone string) *Emitter {
	em := &Emitter{
		typ:         e.Type,
		pos:         vec.Vec3{X: e.X, Y: e.Y, Z: e.Z},
		radius:      e.Radius,
		cooldown1:   e.Cooldown1,
		cooldown2:   e.Cooldown2,
		randomDelay: e.RandomDelay,
		fadeOutMs:   e.FadeOutMs,
		volumeParam: e.AsDistance,
		dayID:       e.SoundID1,
		nightID:     e.SoundID2,
	}
	if e.Type == eff.BackgroundMusic {
		em.daySound, em.dayTrack = musicRef(e.SoundID1, bank, zone)
		em.nightSound, em.nightTrack = musicRef(e.SoundID2, bank, zone)
	} else {
		em.daySound = bank.Resolve(e.SoundID1)
		em.nightSound = bank.Resolve(e.SoundID2)
	}
	return em
}

// musicRef maps a music sound ID to a file reference. IDs 1..31 are
// subsongs of the zone's xmi; everything else resolves like an effect.
func musicRef(id int32, bank *eff.Bank, zone string) (string, int) {
	if id == 0 {
		return "", 0
	}
	if id >= 1 && id <= 31 {
		return zone + ".xmi", int(id)
	}
	return bank.Resolve(id), 0
}

func (em *Emitter) Type() eff.SoundType { return em.typ }
func (em *Emitter) Pos() vec.Vec3       { return em.pos }
func (em *Emitter) Radius() float32     { return em.radius }
func (em *Emitter) Playing() bool       { return em.playing }

// CooldownMs exposes the remaining cooldown, oneShot (-1) after a
// one-shot trigger.
func (em *Emitter) CooldownMs() float32 { return em.cooldownMs }

// IsInRange tests the listener against the activation radius. The
// boundary counts as in range.
func (em *Emitter) IsInRange(listener vec.Vec3) bool {
	return vec.Distance(listener, em.pos) <= em.radius
}

// CalculateVolume returns the playback gain at the given listener
// distance: constant types are full volume inside the radius, distance
// types scale by the asDistance parameter, everything is 0 outside.
func (em *Emitter) CalculateVolume(distance float32) float32 {
	if distance > em.radius {
		return 0
	}
	switch em.typ {
	case eff.StaticEffect, eff.DayNightDistance:
		return vec.Clamp(0, float32(volumeParamScale-em.volumeParam)/volumeParamScale, 1)
	default:
		return 1
	}
}

// HasDayNightVariants reports whether the emitter carries two distinct
// sounds selected by time of day.
func (em *Emitter) HasDayNightVariants() bool {
	if em.typ == eff.BackgroundMusic {
		return em.dayID != 0 && em.nightID != 0 && em.dayID != em.nightID
	}
	return em.daySound != "" && em.nightSound != "" && em.daySound != em.nightSound
}

// variesByDayNight reports whether the type selects its sound by time
// of day at all. StaticEffect always plays the primary sound.
func (em *Emitter) variesByDayNight() bool {
	switch em.typ {
	case eff.DayNightConstant, eff.DayNightDistance, eff.BackgroundMusic:
		return true
	}
	return false
}

// soundFile picks the file for the current time of day. Day/night
// types use the night slot at night even when it is empty, so a
// day-only emitter goes silent after dark.
func (em *Emitter) soundFile(isDay bool) string {
	if !isDay && em.variesByDayNight() {
		return em.nightSound
	}
	return em.daySound
}

// musicTrack picks the xmi subsong for the current time of day.
func (em *Emitter) musicTrack(isDay bool) int {
	if !isDay {
		return em.nightTrack
	}
	return em.dayTrack
}

// nextCooldown draws the replay delay. Zero base and zero random delay
// is a one-shot; everything else is floored at minCooldownMs.
func (em *Emitter) nextCooldown(rng *rand.Generator, isDay bool) float32 {
	base := em.cooldown1
	if !isDay && em.variesByDayNight() {
		base = em.cooldown2
	}
	if base == 0 && em.randomDelay == 0 {
		return oneShot
	}
	ms := base + int32(rng.IntnInclusive(int(em.randomDelay)))
	if ms < minCooldownMs {
		ms = minCooldownMs
	}
	return float32(ms)
}

// Update advances the state machine by dt seconds for a non-music
// emitter. The cooldown ticks whether or not the listener is in range;
// entering range triggers only once it has elapsed. Out-of-range
// playback fades over fadeOutMs and stops at zero.
func (em *Emitter) Update(dt float32, listener vec.Vec3, isDay bool, rng *rand.Generator, a Audio) {
	if em.cooldownMs > 0 {
		em.cooldownMs -= dt * 1000
		if em.cooldownMs < 0 {
			em.cooldownMs = 0
		}
	}
	em.stepFade(dt)

	dist := vec.Distance(listener, em.pos)
	if dist > em.radius {
		if em.inRange {
			em.inRange = false
			if em.playing && !em.fadingOut {
				em.fadingOut = true
				em.fadeStart = em.currentVolume
				em.fadeMs = 0
			}
		}
		return
	}

	entered := !em.inRange
	em.inRange = true
	if em.fadingOut {
		return
	}
	if em.cooldownMs == oneShot {
		if entered {
			em.trigger(dist, isDay, rng, a)
		}
		return
	}
	if em.cooldownMs <= 0 {
		em.trigger(dist, isDay, rng, a)
	}
}

// stepFade advances an active fade-out, in or out of range, and ends
// playback when it reaches silence.
func (em *Emitter) stepFade(dt float32) {
	if !em.fadingOut {
		return
	}
	win := em.fadeMs
	if win <= 0 {
		win = em.fadeOutMs
	}
	if win <= 0 {
		em.stopPlayback()
		return
	}
	em.currentVolume -= em.fadeStart * dt * 1000 / float32(win)
	if em.currentVolume <= 0 {
		em.stopPlayback()
	}
}

func (em *Emitter) stopPlayback() {
	em.playing = false
	em.fadingOut = false
	em.currentVolume = 0
	em.fadeMs = 0
}

func (em *Emitter) trigger(dist float32, isDay bool, rng *rand.Generator, a Audio) {
	file := em.soundFile(isDay)
	if file == "" {
		em.cooldownMs = em.nextCooldown(rng, isDay)
		return
	}
	vol := em.CalculateVolume(dist)
	a.PlaySoundScaled(file, em.pos, vol)
	em.playing = true
	em.currentVolume = vol
	em.cooldownMs = em.nextCooldown(rng, isDay)
}

// OnDayNightChange restarts a playing day/night-varying emitter at
// zero cooldown so the new variant takes over on the next update.
func (em *Emitter) OnDayNightChange() {
	if em.playing && em.HasDayNightVariants() {
		em.cooldownMs = 0
	}
}

// TransitionTo crossfades a playing day/night-varying emitter into its
// other variant: the current sound fades over fadeMs and the new file
// triggers once the fade reaches silence.
func (em *Emitter) TransitionTo(isDay bool, fadeMs int32) {
	if !em.HasDayNightVariants() || !em.playing {
		return
	}
	em.fadingOut = true
	em.fadeStart = em.currentVolume
	if fadeMs > 0 {
		em.fadeMs = fadeMs
	} else {
		em.fadeMs = 1000
	}
	em.cooldownMs = 0
}

// Stop resets the emitter to idle, cooldown included. Range re-entry
// retriggers it.
func (em *Emitter) Stop() {
	em.stopPlayback()
	em.inRange = false
	em.cooldownMs = 0
}
