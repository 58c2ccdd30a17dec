// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	meltysynth "github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/pkg/errors"

	"eqaudio/conlog"
)

// soundFontNames are the client SoundFonts, in preference order.
var soundFontNames = []string{"synthus2.sf2", "synthusr.sf2"}

// synthBlock aligns meltysynth's internal block size with the render
// path to avoid odd effect-buffer boundaries.
const synthBlock = 1024

// sequencer abstracts the subset of meltysynth.MidiFileSequencer the
// render path uses. Tests override newSequencer to avoid needing a
// real SoundFont.
type sequencer interface {
	Play(midiFile *meltysynth.MidiFile, loop bool)
	Render(left, right []float32)
}

var newSequencer = func(font *meltysynth.SoundFont) (sequencer, error) {
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	settings.BlockSize = synthBlock
	syn, err := meltysynth.NewSynthesizer(font, settings)
	if err != nil {
		return nil, err
	}
	return meltysynth.NewMidiFileSequencer(syn), nil
}

// Synth renders symbolic music through a SoundFont. A Synth without a
// loaded font stays usable; Start then fails and callers fall back to
// silence.
type Synth struct {
	dev  *Device
	font *meltysynth.SoundFont

	mu     sync.Mutex
	src    *synthSource
	volume atomicFloat
	paused atomic.Bool
}

// NewSynth loads the first available SoundFont from contentPath, or
// fontPath when set explicitly. Missing fonts are logged, not fatal.
func NewSynth(dev *Device, contentPath, fontPath string) *Synth {
	s := &Synth{dev: dev}
	s.volume.Store(1)

	paths := []string{}
	if fontPath != "" {
		paths = append(paths, fontPath)
	} else {
		for _, name := range soundFontNames {
			paths = append(paths, filepath.Join(contentPath, name))
		}
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		font, err := meltysynth.NewSoundFont(bytes.NewReader(data))
		if err != nil {
			conlog.Printf("synth: %s unreadable: %v", p, err)
			continue
		}
		s.font = font
		conlog.Printf("synth: loaded SoundFont %s", filepath.Base(p))
		return s
	}
	conlog.Printf("synth: no SoundFont found, symbolic music disabled")
	return s
}

// Ready reports whether a SoundFont is loaded.
func (s *Synth) Ready() bool {
	return s != nil && s.font != nil
}

// Start begins rendering midi, a standard MIDI file byte stream. A
// fresh sequencer is built per track; sequencer state is not shared
// across tracks.
func (s *Synth) Start(midi []byte, loop bool) error {
	if !s.Ready() {
		return errors.New("synth: no SoundFont loaded")
	}
	mf, err := meltysynth.NewMidiFile(bytes.NewReader(midi))
	if err != nil {
		return errors.Wrap(err, "synth: parse midi")
	}
	seq, err := newSequencer(s.font)
	if err != nil {
		return errors.Wrap(err, "synth: build sequencer")
	}
	seq.Play(mf, loop)

	s.mu.Lock()
	if s.src != nil {
		s.src.killed.Store(true)
	}
	src := &synthSource{
		seq:    seq,
		volume: &s.volume,
		paused: &s.paused,
	}
	s.src = src
	s.mu.Unlock()

	s.paused.Store(false)
	s.dev.Play(src)
	return nil
}

// Stop detaches the current track. Idempotent.
func (s *Synth) Stop() {
	s.mu.Lock()
	if s.src != nil {
		s.src.killed.Store(true)
		s.src = nil
	}
	s.mu.Unlock()
}

func (s *Synth) SetVolume(v float32) {
	s.volume.Store(v)
}

func (s *Synth) SetPaused(p bool) {
	s.paused.Store(p)
}

// synthSource pulls rendered samples from the sequencer on demand.
// Render is only ever called from the device render path, so the
// sequencer needs no extra locking.
type synthSource struct {
	seq    sequencer
	volume *atomicFloat
	paused *atomic.Bool
	killed atomic.Bool
	left   []float32
	right  []float32
}

func (s *synthSource) Stream(samples [][2]float64) (int, bool) {
	if s.killed.Load() {
		return 0, false
	}
	if s.paused.Load() {
		silence(samples)
		return len(samples), true
	}
	n := len(samples)
	if cap(s.left) < n {
		s.left = make([]float32, n)
		s.right = make([]float32, n)
	}
	left, right := s.left[:n], s.right[:n]
	s.seq.Render(left, right)
	gain := float64(s.volume.Load())
	for i := 0; i < n; i++ {
		samples[i][0] = float64(left[i]) * gain
		samples[i][1] = float64(right[i]) * gain
	}
	return n, true
}

func (s *synthSource) Err() error { return nil }
