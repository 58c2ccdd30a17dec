// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"

	"eqaudio/conlog"
	"eqaudio/filesystem"
)

// MusicState is the streamer's lifecycle state.
type MusicState int32

const (
	MusicStopped MusicState = iota
	MusicPlaying
	MusicPaused
	MusicFadingOut
)

const (
	// musicBlocks is the depth of the block ring between the refill
	// thread and the render path.
	musicBlocks = 4
	// musicBlockFrames is the frame count of one ring block.
	musicBlockFrames = 4096
	// musicTick is the refill thread cadence.
	musicTick = 10 * time.Millisecond
)

// blockRing is the bounded queue of PCM blocks. The refill thread
// pushes, the render path pops.
type blockRing struct {
	mu     sync.Mutex
	blocks [][]int16
}

func (r *blockRing) push(b []int16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.blocks) >= musicBlocks {
		return false
	}
	r.blocks = append(r.blocks, b)
	return true
}

func (r *blockRing) pop() ([]int16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.blocks) == 0 {
		return nil, false
	}
	b := r.blocks[0]
	r.blocks = r.blocks[1:]
	return b, true
}

func (r *blockRing) free() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return musicBlocks - len(r.blocks)
}

func (r *blockRing) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = nil
}

// ringSource is the mixer-side half of the streamer. An empty ring
// without end-of-track yields silence and keeps the streamer alive;
// the track only ends when eof is set and the ring has drained.
type ringSource struct {
	ring       *blockRing
	channels   int
	cur        []int16
	off        int
	volume     *atomicFloat
	fadeVolume *atomicFloat
	paused     *atomic.Bool
	eof        atomic.Bool
	killed     atomic.Bool
	done       atomic.Bool
}

func (s *ringSource) Stream(samples [][2]float64) (int, bool) {
	if s.killed.Load() {
		s.done.Store(true)
		return 0, false
	}
	if s.paused.Load() {
		silence(samples)
		return len(samples), true
	}
	gain := float64(s.volume.Load()) * float64(s.fadeVolume.Load())
	for n := range samples {
		if s.off >= len(s.cur) {
			b, ok := s.ring.pop()
			if !ok {
				if s.eof.Load() {
					s.done.Store(true)
					silence(samples[n:])
					if n == 0 {
						return 0, false
					}
					return n, true
				}
				// Underrun: hold the stream open with silence and
				// let the refill thread catch up.
				silence(samples[n:])
				return len(samples), true
			}
			s.cur, s.off = b, 0
		}
		var l, r float64
		if s.channels == 1 {
			v := float64(s.cur[s.off]) / 32768
			l, r = v, v
			s.off++
		} else {
			l = float64(s.cur[s.off]) / 32768
			r = float64(s.cur[s.off+1]) / 32768
			s.off += 2
		}
		samples[n][0] = l * gain
		samples[n][1] = r * gain
	}
	return len(samples), true
}

func (s *ringSource) Err() error { return nil }

func silence(samples [][2]float64) {
	for i := range samples {
		samples[i][0] = 0
		samples[i][1] = 0
	}
}

// MusicStreamer plays one background track at a time: sampled formats
// through the block ring, symbolic formats through the synthesizer.
type MusicStreamer struct {
	dev   *Device
	synth *Synth

	mu           sync.Mutex
	state        atomic.Int32
	currentFile  string
	currentTrack int
	loop         bool
	synthActive  bool

	data       []int16
	channels   int
	sampleRate int
	pos        int
	ring       blockRing
	src        *ringSource

	volume     atomicFloat
	fadeVolume atomicFloat
	fadeTarget atomicFloat
	fadeRate   atomicFloat // volume units per second
	paused     atomic.Bool

	stopReq  chan struct{}
	tickDone chan struct{}
}

// NewMusicStreamer builds a streamer on dev. synth may be nil when no
// SoundFont is available; symbolic tracks then no-op.
func NewMusicStreamer(dev *Device, synth *Synth) *MusicStreamer {
	m := &MusicStreamer{dev: dev, synth: synth}
	m.volume.Store(1)
	m.fadeVolume.Store(1)
	return m
}

// readMidiBytes produces standard MIDI bytes for a symbolic music
// file. Replaceable so a client can plug in its own container
// converter for formats the sequencer does not read natively.
var readMidiBytes = func(path string, track int) ([]byte, error) {
	return os.ReadFile(path)
}

// Play starts path as the background track, replacing the current one
// without a fade. track selects the subsong of multi-track symbolic
// containers. Returns false if the file is missing or undecodable.
func (m *MusicStreamer) Play(path string, loop bool, track int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentFile == path && m.currentTrack == track && MusicState(m.state.Load()) == MusicPlaying {
		return true
	}
	m.stopLocked()

	switch strings.ToLower(filesystem.Ext(path)) {
	case ".xmi", ".mid":
		return m.playSymbolicLocked(path, loop, track)
	case ".mp3", ".wav", ".ogg":
		return m.playSampledLocked(path, loop)
	}
	conlog.Printf("music: %s: unsupported format", path)
	return false
}

func (m *MusicStreamer) playSymbolicLocked(path string, loop bool, track int) bool {
	if m.synth == nil || !m.synth.Ready() {
		conlog.Printf("music: no synthesizer, skipping %s", filepath.Base(path))
		return false
	}
	midi, err := readMidiBytes(path, track)
	if err != nil {
		conlog.Printf("music: %s: %v", path, err)
		return false
	}
	if err := m.synth.Start(midi, loop); err != nil {
		conlog.Printf("music: %s: %v", path, err)
		return false
	}
	m.synth.SetVolume(m.volume.Load())
	m.synthActive = true
	m.beginLocked(path, loop, track)
	return true
}

func (m *MusicStreamer) playSampledLocked(path string, loop bool) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		conlog.Printf("music: %s: %v", path, err)
		return false
	}
	buf, err := DecodeBuffer(path, data)
	if err != nil {
		conlog.Printf("music: %v", err)
		return false
	}

	m.data = buf.samples
	m.channels = buf.Channels
	m.sampleRate = buf.SampleRate
	m.pos = 0
	m.ring.reset()

	src := &ringSource{
		ring:       &m.ring,
		channels:   buf.Channels,
		volume:     &m.volume,
		fadeVolume: &m.fadeVolume,
		paused:     &m.paused,
	}
	m.src = src
	m.fillRingLocked()
	if buf.SampleRate != SampleRate {
		m.dev.Play(beep.Resample(4, beep.SampleRate(buf.SampleRate), SampleRate, src))
	} else {
		m.dev.Play(src)
	}
	m.beginLocked(path, loop, 0)
	return true
}

// caller holds m.mu
func (m *MusicStreamer) beginLocked(path string, loop bool, track int) {
	m.currentFile = path
	m.currentTrack = track
	m.loop = loop
	m.paused.Store(false)
	m.fadeVolume.Store(1)
	m.fadeRate.Store(0)
	m.state.Store(int32(MusicPlaying))
	m.stopReq = make(chan struct{})
	m.tickDone = make(chan struct{})
	go m.run(m.stopReq, m.tickDone)
	conlog.Printf("music: playing %s (loop=%v)", filepath.Base(path), loop)
}

// run is the streaming thread: it refills the ring and advances fades
// until stopped.
func (m *MusicStreamer) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(musicTick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.stepFade() {
				m.stopIfCurrent(stop)
				return
			}
			m.mu.Lock()
			m.fillRingLocked()
			ended := m.src != nil && m.src.done.Load()
			m.mu.Unlock()
			if ended {
				m.stopIfCurrent(stop)
				return
			}
		}
	}
}

// stopIfCurrent hard-stops only if stop still belongs to the active
// track, so a thread outliving its track cannot kill the next one.
func (m *MusicStreamer) stopIfCurrent(stop <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopReq != stop {
		return
	}
	m.stopLocked()
}

// stepFade advances an active fade by one tick. Returns true when a
// fade-out has reached zero and playback should stop.
func (m *MusicStreamer) stepFade() bool {
	rate := m.fadeRate.Load()
	if rate <= 0 {
		return false
	}
	v := m.fadeVolume.Load()
	target := m.fadeTarget.Load()
	step := rate * float32(musicTick.Seconds())
	if v > target {
		v -= step
		if v <= target {
			v = target
			m.fadeRate.Store(0)
		}
	} else {
		v += step
		if v >= target {
			v = target
			m.fadeRate.Store(0)
		}
	}
	m.fadeVolume.Store(v)
	if m.synthActive && m.synth != nil {
		m.synth.SetVolume(m.volume.Load() * v)
	}
	return v <= 0 && target <= 0
}

// caller holds m.mu
func (m *MusicStreamer) fillRingLocked() {
	if m.src == nil || len(m.data) == 0 {
		return
	}
	for m.ring.free() > 0 {
		if m.pos >= len(m.data) {
			if !m.loop {
				m.src.eof.Store(true)
				return
			}
			m.pos = 0
		}
		end := m.pos + musicBlockFrames*m.channels
		if end > len(m.data) {
			end = len(m.data)
		}
		m.ring.push(m.data[m.pos:end])
		m.pos = end
	}
}

// Stop ends playback. fadeSeconds > 0 fades out first and stops from
// the streaming thread; 0 stops immediately. Stopping a stopped
// streamer is a no-op.
func (m *MusicStreamer) Stop(fadeSeconds float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestStopLocked(fadeSeconds)
}

// caller holds m.mu
func (m *MusicStreamer) requestStopLocked(fadeSeconds float32) {
	st := MusicState(m.state.Load())
	if st == MusicStopped {
		return
	}
	if fadeSeconds > 0 && st != MusicFadingOut {
		m.fadeTarget.Store(0)
		m.fadeRate.Store(1 / fadeSeconds)
		m.state.Store(int32(MusicFadingOut))
		return
	}
	if fadeSeconds > 0 {
		return
	}
	m.stopLocked()
}

// caller holds m.mu
func (m *MusicStreamer) stopLocked() {
	if MusicState(m.state.Load()) == MusicStopped {
		return
	}
	if m.stopReq != nil {
		close(m.stopReq)
		m.stopReq = nil
	}
	if m.src != nil {
		m.src.killed.Store(true)
		m.src = nil
	}
	if m.synthActive {
		m.synth.Stop()
		m.synthActive = false
	}
	m.ring.reset()
	m.data = nil
	m.pos = 0
	m.currentFile = ""
	m.currentTrack = 0
	m.fadeRate.Store(0)
	m.fadeVolume.Store(1)
	m.state.Store(int32(MusicStopped))
}

// Reset hard-stops and detaches from the previous device generation.
// Used after a device switch.
func (m *MusicStreamer) Reset() {
	m.Stop(0)
}

func (m *MusicStreamer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if MusicState(m.state.Load()) == MusicPlaying {
		m.paused.Store(true)
		m.state.Store(int32(MusicPaused))
		if m.synthActive && m.synth != nil {
			m.synth.SetPaused(true)
		}
	}
}

func (m *MusicStreamer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if MusicState(m.state.Load()) == MusicPaused {
		m.paused.Store(false)
		m.state.Store(int32(MusicPlaying))
		if m.synthActive && m.synth != nil {
			m.synth.SetPaused(false)
		}
	}
}

// SetVolume sets the music volume in [0,1], applied on the next
// rendered block.
func (m *MusicStreamer) SetVolume(v float32) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	m.volume.Store(v)
	m.mu.Lock()
	if m.synthActive && m.synth != nil {
		m.synth.SetVolume(v * m.fadeVolume.Load())
	}
	m.mu.Unlock()
}

func (m *MusicStreamer) State() MusicState {
	return MusicState(m.state.Load())
}

// IsPlaying reports whether a track is active, including one that is
// fading out or paused.
func (m *MusicStreamer) IsPlaying() bool {
	return MusicState(m.state.Load()) != MusicStopped
}

func (m *MusicStreamer) CurrentFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentFile
}
