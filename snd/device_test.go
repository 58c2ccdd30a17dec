// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestOpenFallsBackToLoopback(t *testing.T) {
	restore := openHardware
	openHardware = func(d *Device) error { return errors.New("no audio hardware") }
	defer func() { openHardware = restore }()

	d := NewDevice()
	if err := d.Open(false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()
	if !d.IsLoopback() {
		t.Error("hardware failure did not fall back to loopback")
	}
}

func TestLoopbackOutputBlocks(t *testing.T) {
	type block struct {
		samples    []int16
		frames     int
		sampleRate int
		channels   int
	}
	got := make(chan block, 1)

	d := NewDevice()
	d.SetOutput(func(samples []int16, frames, sampleRate, channels int) {
		b := block{
			samples:    append([]int16(nil), samples...),
			frames:     frames,
			sampleRate: sampleRate,
			channels:   channels,
		}
		select {
		case got <- b:
		default:
		}
	})
	if err := d.Open(true); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	select {
	case b := <-got:
		if b.frames != loopbackFrames {
			t.Errorf("frames: want %d got %d", loopbackFrames, b.frames)
		}
		if b.sampleRate != SampleRate || b.channels != Channels {
			t.Errorf("format: got %d Hz %d ch", b.sampleRate, b.channels)
		}
		if len(b.samples) != loopbackFrames*Channels {
			t.Errorf("samples: want %d got %d", loopbackFrames*Channels, len(b.samples))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no loopback block within 2s")
	}
}

func TestSwitchAdvancesGeneration(t *testing.T) {
	restore := openHardware
	openHardware = func(d *Device) error { return nil }
	defer func() { openHardware = restore }()

	d := NewDevice()
	if err := d.Open(false); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	before := d.Generation()
	d.SwitchToLoopback()
	if d.Generation() != before+1 {
		t.Errorf("generation: want %d got %d", before+1, d.Generation())
	}
	// Already in loopback: no further advance.
	d.SwitchToLoopback()
	if d.Generation() != before+1 {
		t.Errorf("second switch advanced generation to %d", d.Generation())
	}
}

func TestMixerReaderFrameAlignment(t *testing.T) {
	d := NewDevice()
	r := &mixerReader{d: d}
	p := make([]byte, 17) // one trailing byte past the frame boundary
	n, err := r.Read(p)
	if err != nil {
		t.Fatal(err)
	}
	if n != 16 {
		t.Errorf("Read: want 16 bytes got %d", n)
	}
}

func TestClampSample(t *testing.T) {
	if got := clampSample(2); got != 32767 {
		t.Errorf("clampSample(2): got %d", got)
	}
	if got := clampSample(-2); got != -32767 {
		t.Errorf("clampSample(-2): got %d", got)
	}
	if got := clampSample(0); got != 0 {
		t.Errorf("clampSample(0): got %d", got)
	}
}
