// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"testing"

	"github.com/pkg/errors"

	"eqaudio/vec"
)

func toneBuffer(frames int) *SoundBuffer {
	return &SoundBuffer{
		Name:       "tone.wav",
		SampleRate: SampleRate,
		Channels:   1,
		samples:    make([]int16, frames),
	}
}

func TestPoolExhaustion(t *testing.T) {
	dev := NewDevice()
	p := NewPool(dev, poolSize)
	buf := toneBuffer(SampleRate)

	handles := make([]*Handle, 0, poolSize)
	for i := 0; i < poolSize; i++ {
		h, err := p.Acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if err := h.Play(buf, 1, false); err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
		handles = append(handles, h)
	}
	if got := p.ActiveCount(); got != poolSize {
		t.Fatalf("ActiveCount: want %d got %d", poolSize, got)
	}

	if _, err := p.Acquire(); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("33rd acquire: want ErrPoolExhausted got %v", err)
	}

	// A stopped channel is reclaimed by the next acquire, no release
	// needed.
	if err := handles[7].Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := p.Acquire(); err != nil {
		t.Fatalf("acquire after stop: %v", err)
	}
}

func TestPoolRelease(t *testing.T) {
	dev := NewDevice()
	p := NewPool(dev, 2)

	a, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Acquire(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Acquire(); err == nil {
		t.Fatal("acquire beyond capacity succeeded")
	}
	if err := p.Release(a); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := p.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestPoolStopAll(t *testing.T) {
	dev := NewDevice()
	p := NewPool(dev, 4)
	buf := toneBuffer(SampleRate)
	for i := 0; i < 4; i++ {
		h, err := p.Acquire()
		if err != nil {
			t.Fatal(err)
		}
		h.Play(buf, 1, true)
	}
	p.StopAll()
	if got := p.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount after StopAll: want 0 got %d", got)
	}
	if _, err := p.Acquire(); err != nil {
		t.Fatalf("acquire after StopAll: %v", err)
	}
}

func TestStaleHandleAfterDeviceSwitch(t *testing.T) {
	restore := openHardware
	openHardware = func(d *Device) error { return nil }
	defer func() { openHardware = restore }()

	dev := NewDevice()
	if err := dev.Open(false); err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	p := NewPool(dev, 4)
	h, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Play(toneBuffer(SampleRate), 1, true); err != nil {
		t.Fatal(err)
	}

	dev.SwitchToLoopback()

	if err := h.Stop(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Stop on stale handle: want ErrStaleHandle got %v", err)
	}
	if err := h.SetGain(0.5); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("SetGain on stale handle: want ErrStaleHandle got %v", err)
	}
	if h.Playing() {
		t.Error("stale handle reports playing")
	}

	// A fresh pool on the new generation works.
	p2 := NewPool(dev, 4)
	h2, err := p2.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if err := h2.Play(toneBuffer(SampleRate), 1, false); err != nil {
		t.Errorf("play on fresh pool: %v", err)
	}
}

func TestPoolUnplayedHandleHoldsSlot(t *testing.T) {
	dev := NewDevice()
	p := NewPool(dev, 2)

	a, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if a.ch == b.ch {
		t.Fatal("two live handles share one channel")
	}
	// Neither handle has played yet; the pool is still full.
	if _, err := p.Acquire(); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("acquire with unplayed handles out: want ErrPoolExhausted got %v", err)
	}
	buf := toneBuffer(SampleRate)
	if err := a.Play(buf, 1, false); err != nil {
		t.Fatalf("play on held handle: %v", err)
	}
	if err := b.Play(buf, 1, false); err != nil {
		t.Fatalf("play on held handle: %v", err)
	}
}

func TestPoolReissuedChannelInvalidatesOldHandle(t *testing.T) {
	dev := NewDevice()
	p := NewPool(dev, 1)
	buf := toneBuffer(16)

	a, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Play(buf, 1, false); err != nil {
		t.Fatal(err)
	}
	// Drain the source so the channel becomes reclaimable.
	out := make([][2]float64, 64)
	a.ch.src.Stream(out)
	a.ch.src.Stream(out)

	b, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire after drain: %v", err)
	}
	if b.ch != a.ch {
		t.Fatal("drained channel not reissued")
	}
	// The old handle no longer owns the channel.
	if err := a.Stop(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Stop on reissued channel: want ErrStaleHandle got %v", err)
	}
	if err := a.SetGain(0.5); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("SetGain on reissued channel: want ErrStaleHandle got %v", err)
	}
	if a.Playing() {
		t.Error("old handle reports playing on reissued channel")
	}
	if err := b.Play(buf, 1, false); err != nil {
		t.Errorf("play on new owner: %v", err)
	}
}

func TestBufferSourcePanning(t *testing.T) {
	buf := toneBuffer(64)
	for i := range buf.samples {
		buf.samples[i] = 16384
	}
	lst := newListenerRef()
	lst.store(listenerFrame{right: vec.Vec3{X: 1}})

	src := newBufferSource(buf, 1, true)
	src.origin = vec.Vec3{X: 100}
	src.lst = lst

	out := make([][2]float64, 4)
	src.Stream(out)
	if out[0][1] <= out[0][0] {
		t.Fatalf("source on the right not panned right: l=%v r=%v", out[0][0], out[0][1])
	}

	// The listener moves onto the source: centered and unattenuated on
	// the next pull.
	lst.store(listenerFrame{pos: vec.Vec3{X: 100}, right: vec.Vec3{X: 1}})
	src.Stream(out)
	if out[0][0] != out[0][1] {
		t.Errorf("centered source panned: l=%v r=%v", out[0][0], out[0][1])
	}
	if out[0][0] != 0.5 {
		t.Errorf("centered gain: want 0.5 got %v", out[0][0])
	}
}

func TestBufferSourceLoops(t *testing.T) {
	buf := toneBuffer(8)
	src := newBufferSource(buf, 1, true)
	out := make([][2]float64, 64)
	n, ok := src.Stream(out)
	if n != 64 || !ok {
		t.Fatalf("looping stream: got n=%d ok=%v", n, ok)
	}

	oneshot := newBufferSource(buf, 1, false)
	n, ok = oneshot.Stream(out)
	if n != 8 || !ok {
		t.Fatalf("oneshot first stream: got n=%d ok=%v", n, ok)
	}
	if _, ok = oneshot.Stream(out); ok {
		t.Fatal("drained oneshot still streaming")
	}
	if !oneshot.finished() {
		t.Fatal("drained oneshot not finished")
	}
}
