// SPDX-License-Identifier: GPL-2.0-or-later

// Package weather turns rain/snow intensity packets into looping
// ambience beds and scheduled thunder strikes.
package weather

import (
	"eqaudio/conlog"
	"eqaudio/rand"
	"eqaudio/snd"
	"eqaudio/vec"
)

// Precipitation types from the server weather packet.
const (
	TypeNone = 0
	TypeRain = 1
	TypeSnow = 2
)

const (
	maxIntensity = 10

	// Thunder starts at this intensity and strikes at a uniform
	// interval of [thunderMinDelay, thunderMaxDelay] seconds, scaled
	// down as the storm intensifies.
	thunderMinIntensity = 3
	thunderMinDelay     = 15.0
	thunderMaxDelay     = 45.0

	// fadeSeconds is the loop gain ramp between weather states.
	fadeSeconds = 2.0

	rainLoopFile = "rainloop.wav"
	windLoopFile = "wind_lp1.wav"

	thunderID1 = 143
	thunderID2 = 144
)

// Audio is the playback surface; *snd.Manager satisfies it.
type Audio interface {
	PlaySound(id uint32, pos vec.Vec3)
	StartAmbientLoop(name string) (snd.AmbientLoop, error)
}

// Manager tracks the current weather state and drives the loops.
type Manager struct {
	audio Audio
	rng   rand.Generator

	weatherType int
	intensity   int
	paused      bool

	rainLoop snd.AmbientLoop
	windLoop snd.AmbientLoop

	// gain ramps toward target over fadeSeconds.
	rainGain, rainTarget float32
	windGain, windTarget float32

	thunderIn float32 // seconds until the next strike
}

func NewManager(a Audio) *Manager {
	return &Manager{audio: a, rng: rand.NewTimeSeeded()}
}

// SetWeather applies a weather packet. Intensity is clamped to
// [0,10]; type none or intensity zero fades everything out.
func (m *Manager) SetWeather(weatherType, intensity int) {
	intensity = vec.Clamp(0, intensity, maxIntensity)
	if weatherType == TypeNone {
		intensity = 0
	}
	if weatherType == m.weatherType && intensity == m.intensity {
		return
	}
	conlog.Printf("weather: type %d intensity %d", weatherType, intensity)
	m.weatherType = weatherType
	m.intensity = intensity

	vol := float32(intensity) / maxIntensity
	switch weatherType {
	case TypeRain:
		m.rainTarget, m.windTarget = vol, 0
	case TypeSnow:
		m.rainTarget, m.windTarget = 0, vol
	default:
		m.rainTarget, m.windTarget = 0, 0
	}

	if m.thunderEnabled() {
		m.thunderIn = m.nextThunderDelay()
	}
}

func (m *Manager) thunderEnabled() bool {
	return m.weatherType == TypeRain && m.intensity >= thunderMinIntensity
}

// nextThunderDelay draws the interval to the next strike. Stronger
// storms shrink the low end of the range; at intensity 10 the interval
// lies in [thunderMinDelay/2, thunderMaxDelay].
func (m *Manager) nextThunderDelay() float32 {
	delay := m.rng.Float32In(thunderMinDelay, thunderMaxDelay)
	over := float32(m.intensity-thunderMinIntensity) / float32(maxIntensity-thunderMinIntensity)
	return delay * (1 - over*0.5)
}

// Update advances fades and thunder by dt seconds.
func (m *Manager) Update(dt float32, listener vec.Vec3) {
	if m.paused {
		return
	}
	m.rainGain = m.stepLoop(&m.rainLoop, rainLoopFile, m.rainGain, m.rainTarget, dt)
	m.windGain = m.stepLoop(&m.windLoop, windLoopFile, m.windGain, m.windTarget, dt)

	if !m.thunderEnabled() {
		return
	}
	m.thunderIn -= dt
	if m.thunderIn > 0 {
		return
	}
	id := uint32(thunderID1)
	if m.rng.Intn(2) == 1 {
		id = thunderID2
	}
	m.audio.PlaySound(id, listener)
	m.thunderIn = m.nextThunderDelay()
}

// stepLoop ramps one loop toward its target, starting the channel
// lazily and releasing it once it has faded to silence.
func (m *Manager) stepLoop(loop *snd.AmbientLoop, file string, gain, target, dt float32) float32 {
	if gain == target {
		if target == 0 && *loop != nil {
			(*loop).Stop()
			*loop = nil
		}
		return gain
	}
	if *loop == nil {
		l, err := m.audio.StartAmbientLoop(file)
		if err != nil {
			conlog.Printf("weather: %s: %v", file, err)
			return target // give up on this state change
		}
		*loop = l
	}

	step := dt / fadeSeconds
	if gain < target {
		gain += step
		if gain > target {
			gain = target
		}
	} else {
		gain -= step
		if gain < target {
			gain = target
		}
	}
	(*loop).SetGain(gain)
	if gain == 0 && target == 0 {
		(*loop).Stop()
		*loop = nil
	}
	return gain
}

// Pause silences the loops without losing the weather state.
func (m *Manager) Pause() {
	if m.paused {
		return
	}
	m.paused = true
	if m.rainLoop != nil {
		m.rainLoop.Pause()
	}
	if m.windLoop != nil {
		m.windLoop.Pause()
	}
}

// Resume continues from the paused state.
func (m *Manager) Resume() {
	if !m.paused {
		return
	}
	m.paused = false
	if m.rainLoop != nil {
		m.rainLoop.Resume()
	}
	if m.windLoop != nil {
		m.windLoop.Resume()
	}
}

// Stop clears the weather and releases both loops.
func (m *Manager) Stop() {
	m.weatherType = TypeNone
	m.intensity = 0
	m.rainGain, m.rainTarget = 0, 0
	m.windGain, m.windTarget = 0, 0
	if m.rainLoop != nil {
		m.rainLoop.Stop()
		m.rainLoop = nil
	}
	if m.windLoop != nil {
		m.windLoop.Stop()
		m.windLoop = nil
	}
}

// Intensity returns the current precipitation strength.
func (m *Manager) Intensity() int { return m.intensity }
