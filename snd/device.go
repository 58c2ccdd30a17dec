// SPDX-License-Identifier: GPL-2.0-or-later

// Package snd is the playback engine: an output device with hardware
// and loopback backends, a fixed pool of effect channels, a streaming
// music player and a SoundFont synthesizer, behind one Manager facade.
package snd

import (
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
	"github.com/pkg/errors"

	"eqaudio/conlog"
)

const (
	// SampleRate is the fixed output rate. Sources at other rates are
	// resampled on the way into the mixer.
	SampleRate = 44100
	// Channels is the fixed output channel count.
	Channels = 2

	// loopbackFrames is the render block size of the loopback backend.
	loopbackFrames = 1024
)

// OutputFunc receives rendered audio from the loopback backend.
// samples is interleaved signed 16-bit PCM of frames*channels values.
type OutputFunc func(samples []int16, frames, sampleRate, channels int)

type deviceMode int32

const (
	modeClosed deviceMode = iota
	modeHardware
	modeLoopback
)

// ErrStaleHandle is returned by channel operations whose handle was
// issued before the last device switch.
var ErrStaleHandle = errors.New("snd: handle predates device switch")

// Device owns the mixer and one output backend. All mixer access goes
// through the device mutex; both backends pull mixed audio from
// render.
type Device struct {
	mu    sync.Mutex
	mixer beep.Mixer

	mode       atomic.Int32
	generation atomic.Uint32

	otoCtx *oto.Context
	player *oto.Player

	output   atomic.Value // OutputFunc
	loopStop chan struct{}
	loopDone chan struct{}
}

// openHardware is swappable for tests that need the hardware path to
// fail deterministically.
var openHardware = func(d *Device) error {
	if d.otoCtx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			return err
		}
		<-ready
		d.otoCtx = ctx
	}
	d.player = d.otoCtx.NewPlayer(&mixerReader{d: d})
	d.player.Play()
	return nil
}

func NewDevice() *Device {
	return &Device{}
}

// Open starts an output backend. The hardware path is tried first
// unless forceLoopback is set; hardware failure falls back to
// loopback instead of failing the open.
func (d *Device) Open(forceLoopback bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if forceLoopback {
		d.startLoopback()
		conlog.Printf("snd: loopback output, %d Hz %d ch", SampleRate, Channels)
		return nil
	}
	if err := openHardware(d); err != nil {
		conlog.Printf("snd: hardware output unavailable (%v), using loopback", err)
		d.startLoopback()
		return nil
	}
	d.mode.Store(int32(modeHardware))
	conlog.Printf("snd: hardware output, %d Hz %d ch", SampleRate, Channels)
	return nil
}

// caller holds d.mu
func (d *Device) startLoopback() {
	d.loopStop = make(chan struct{})
	d.loopDone = make(chan struct{})
	d.mode.Store(int32(modeLoopback))
	go d.loopbackLoop(d.loopStop, d.loopDone)
}

// loopbackLoop renders fixed blocks on a real-time cadence and hands
// them to the registered output callback.
func (d *Device) loopbackLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := time.Duration(loopbackFrames) * time.Second / SampleRate
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := make([][2]float64, loopbackFrames)
	out := make([]int16, loopbackFrames*Channels)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.render(frames)
			for i, f := range frames {
				out[2*i] = clampSample(f[0])
				out[2*i+1] = clampSample(f[1])
			}
			if fn, ok := d.output.Load().(OutputFunc); ok && fn != nil {
				fn(out, loopbackFrames, SampleRate, Channels)
			}
		}
	}
}

func (d *Device) render(samples [][2]float64) {
	d.mu.Lock()
	d.mixer.Stream(samples)
	d.mu.Unlock()
}

func clampSample(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

// mixerReader adapts the mixer to the io.Reader the hardware player
// pulls from.
type mixerReader struct {
	d   *Device
	buf [][2]float64
}

func (r *mixerReader) Read(p []byte) (int, error) {
	frames := len(p) / (2 * Channels)
	if frames == 0 {
		return 0, nil
	}
	if len(r.buf) < frames {
		r.buf = make([][2]float64, frames)
	}
	block := r.buf[:frames]
	r.d.render(block)
	for i, f := range block {
		l := uint16(clampSample(f[0]))
		rr := uint16(clampSample(f[1]))
		p[4*i] = byte(l)
		p[4*i+1] = byte(l >> 8)
		p[4*i+2] = byte(rr)
		p[4*i+3] = byte(rr >> 8)
	}
	return frames * 2 * Channels, nil
}

var _ io.Reader = (*mixerReader)(nil)

// SetOutput registers the loopback consumer. Safe to call in any mode;
// the callback only fires while the loopback backend runs.
func (d *Device) SetOutput(fn OutputFunc) {
	d.output.Store(fn)
}

// SwitchToLoopback tears down the hardware backend and restarts in
// loopback mode. All queued audio is dropped and the device generation
// advances, invalidating outstanding handles.
func (d *Device) SwitchToLoopback() {
	d.mu.Lock()
	if deviceMode(d.mode.Load()) == modeLoopback {
		d.mu.Unlock()
		return
	}
	d.mixer.Clear()
	if d.player != nil {
		d.player.Close()
		d.player = nil
	}
	d.generation.Add(1)
	d.startLoopback()
	d.mu.Unlock()
	conlog.Printf("snd: switched to loopback output (generation %d)", d.Generation())
}

// Generation identifies the current backend instance. Handles record
// the generation at issue time and go stale when it advances.
func (d *Device) Generation() uint32 {
	return d.generation.Load()
}

func (d *Device) IsLoopback() bool {
	return deviceMode(d.mode.Load()) == modeLoopback
}

// Play attaches a streamer to the mixer. The mixer drops streamers on
// its own once they report drained.
func (d *Device) Play(s beep.Streamer) {
	d.mu.Lock()
	d.mixer.Add(s)
	d.mu.Unlock()
}

// StopAll drops every attached streamer.
func (d *Device) StopAll() {
	d.mu.Lock()
	d.mixer.Clear()
	d.mu.Unlock()
}

// ActiveStreamers returns the mixer's attached streamer count.
func (d *Device) ActiveStreamers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mixer.Len()
}

// Close stops the backend. The device is not reusable afterwards.
func (d *Device) Close() {
	d.mu.Lock()
	stop, done := d.loopStop, d.loopDone
	d.loopStop, d.loopDone = nil, nil
	d.mixer.Clear()
	if d.player != nil {
		d.player.Close()
		d.player = nil
	}
	d.mode.Store(int32(modeClosed))
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// atomicFloat is a float32 with atomic load/store, used for gains
// touched by both control and render paths.
type atomicFloat struct {
	bits atomic.Uint32
}

func (a *atomicFloat) Store(v float32) {
	a.bits.Store(math.Float32bits(v))
}

func (a *atomicFloat) Load() float32 {
	return math.Float32frombits(a.bits.Load())
}
