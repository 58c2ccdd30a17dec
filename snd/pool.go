// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/pkg/errors"

	"eqaudio/vec"
)

// poolSize is the fixed number of concurrent effect channels.
const poolSize = 32

// ErrPoolExhausted is returned by Acquire when every channel is busy.
// Callers treat it as a soft failure and drop the sound.
var ErrPoolExhausted = errors.New("snd: all channels busy")

// listenerFrame is the listener snapshot positional sources read on
// the mixer goroutine.
type listenerFrame struct {
	pos   vec.Vec3
	right vec.Vec3
}

type listenerRef struct {
	v atomic.Value
}

func newListenerRef() *listenerRef {
	r := &listenerRef{}
	r.v.Store(listenerFrame{})
	return r
}

func (r *listenerRef) store(f listenerFrame) { r.v.Store(f) }
func (r *listenerRef) load() listenerFrame   { return r.v.Load().(listenerFrame) }

// bufferSource streams a decoded SoundBuffer into the mixer. Stopping
// is a one-way flag; the mixer drops the streamer on the next pull.
// Positional sources carry the emitter origin and a listener reference
// and re-pan on every pull.
type bufferSource struct {
	buf     *SoundBuffer
	pos     int
	gain    atomicFloat
	loop    bool
	stopped atomic.Bool
	done    atomic.Bool

	origin vec.Vec3
	lst    *listenerRef // nil for non-positional sources
}

func newBufferSource(buf *SoundBuffer, gain float32, loop bool) *bufferSource {
	s := &bufferSource{buf: buf, loop: loop}
	s.gain.Store(gain)
	return s
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// spatialize computes the per-ear scales against the current listener
// frame: inverse-distance attenuation panned by the dot with the
// listener's right vector.
func (s *bufferSource) spatialize() (left, right float64) {
	if s.lst == nil {
		return 1, 1
	}
	f := s.lst.load()
	v := vec.Sub(s.origin, f.pos)
	dist := v.Length()
	att := float64(distanceGain(dist))
	var dot float32
	if dist > 0 && f.right != (vec.Vec3{}) {
		dot = vec.Dot(f.right, v.Scale(1/dist))
	}
	left = clampUnit((1 - float64(dot)) * att)
	right = clampUnit((1 + float64(dot)) * att)
	return left, right
}

func (s *bufferSource) Stream(samples [][2]float64) (int, bool) {
	if s.stopped.Load() {
		s.done.Store(true)
		return 0, false
	}
	gain := float64(s.gain.Load())
	lscale, rscale := s.spatialize()
	total := s.buf.Frames()
	n := 0
	for n < len(samples) {
		if s.pos >= total {
			if !s.loop {
				break
			}
			s.pos = 0
		}
		var l, r float64
		if s.buf.Channels == 1 {
			v := float64(s.buf.samples[s.pos]) / 32768
			l, r = v, v
		} else {
			base := s.pos * s.buf.Channels
			l = float64(s.buf.samples[base]) / 32768
			r = float64(s.buf.samples[base+1]) / 32768
		}
		samples[n][0] = l * gain * lscale
		samples[n][1] = r * gain * rscale
		s.pos++
		n++
	}
	if n == 0 {
		s.done.Store(true)
		return 0, false
	}
	return n, true
}

func (s *bufferSource) Err() error { return nil }

func (s *bufferSource) stop() {
	s.stopped.Store(true)
}

func (s *bufferSource) finished() bool {
	return s.done.Load() || s.stopped.Load()
}

// channel is one pooled playback slot. An issued channel keeps its
// slot until its source drains, even before Play attaches one.
type channel struct {
	id  uuid.UUID
	src *bufferSource
}

// active reports whether the channel is producing audio.
func (c *channel) active() bool {
	return c.src != nil && !c.src.finished()
}

// drained reports whether an attached source has finished. An issued
// channel that never played is not drained and stays owned.
func (c *channel) drained() bool {
	return c.src != nil && c.src.finished()
}

// Handle is the caller's reference to an acquired channel. Handles
// carry the device generation at acquire time; a device switch, or the
// channel draining and being reissued, makes them stale.
type Handle struct {
	ID   uuid.UUID
	gen  uint32
	ch   *channel
	pool *Pool
}

// Play starts buf on the handle's channel, replacing whatever was
// playing there.
func (h *Handle) Play(buf *SoundBuffer, gain float32, loop bool) error {
	return h.PlayAt(buf, gain, loop, vec.Vec3{}, nil)
}

// PlayAt starts buf with per-pull stereo placement of origin against
// the listener frame in lst.
func (h *Handle) PlayAt(buf *SoundBuffer, gain float32, loop bool, origin vec.Vec3, lst *listenerRef) error {
	if err := h.pool.check(h); err != nil {
		return err
	}
	if h.ch.src != nil {
		h.ch.src.stop()
	}
	src := newBufferSource(buf, gain, loop)
	src.origin = origin
	src.lst = lst
	h.ch.src = src
	if buf.SampleRate != SampleRate {
		h.pool.dev.Play(beep.Resample(4, beep.SampleRate(buf.SampleRate), SampleRate, src))
	} else {
		h.pool.dev.Play(src)
	}
	return nil
}

// SetGain adjusts the channel volume while playing.
func (h *Handle) SetGain(gain float32) error {
	if err := h.pool.check(h); err != nil {
		return err
	}
	if h.ch.src != nil {
		h.ch.src.gain.Store(gain)
	}
	return nil
}

// Stop silences the channel. The slot becomes reclaimable on the next
// Acquire.
func (h *Handle) Stop() error {
	if err := h.pool.check(h); err != nil {
		return err
	}
	if h.ch.src != nil {
		h.ch.src.stop()
	}
	return nil
}

// Playing reports whether the channel still produces audio. Stale
// handles report false.
func (h *Handle) Playing() bool {
	if h.pool.check(h) != nil {
		return false
	}
	return h.ch.active()
}

// Pool manages the fixed channel slots. Acquire reclaims drained
// channels lazily, so no background sweep is needed.
type Pool struct {
	dev *Device
	gen uint32

	mu       sync.Mutex
	channels []*channel
	busy     map[uuid.UUID]*channel
}

// NewPool builds a pool bound to the device's current generation.
func NewPool(dev *Device, size int) *Pool {
	p := &Pool{
		dev:  dev,
		gen:  dev.Generation(),
		busy: make(map[uuid.UUID]*channel),
	}
	p.channels = make([]*channel, size)
	for i := range p.channels {
		p.channels[i] = &channel{}
	}
	return p
}

func (p *Pool) check(h *Handle) error {
	if h == nil || h.ch == nil {
		return errors.New("snd: nil handle")
	}
	if h.gen != p.dev.Generation() || h.pool != p {
		return ErrStaleHandle
	}
	p.mu.Lock()
	owned := h.ch.id == h.ID
	p.mu.Unlock()
	if !owned {
		return ErrStaleHandle
	}
	return nil
}

// caller holds p.mu
func (p *Pool) reclaimLocked() int {
	n := 0
	for id, c := range p.busy {
		if c.drained() {
			c.src = nil
			c.id = uuid.Nil
			delete(p.busy, id)
			n++
		}
	}
	return n
}

// Reclaim frees channels whose sounds have finished. Acquire does this
// on its own; the per-frame update calls it to keep the busy set
// accurate between plays.
func (p *Pool) Reclaim() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reclaimLocked()
}

// Acquire hands out an unissued channel, first reclaiming any whose
// sound has finished on its own. A channel acquired but not yet played
// stays issued and is never handed out twice.
func (p *Pool) Acquire() (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reclaimLocked()
	for _, c := range p.channels {
		if c.id != uuid.Nil {
			continue
		}
		c.src = nil
		c.id = uuid.New()
		p.busy[c.id] = c
		return &Handle{ID: c.id, gen: p.gen, ch: c, pool: p}, nil
	}
	return nil, ErrPoolExhausted
}

// Release stops the channel and returns it to the pool.
func (p *Pool) Release(h *Handle) error {
	if err := p.check(h); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.ch.src != nil {
		h.ch.src.stop()
		h.ch.src = nil
	}
	delete(p.busy, h.ID)
	h.ch.id = uuid.Nil
	return nil
}

// StopAll silences every channel and empties the pool.
func (p *Pool) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.channels {
		if c.src != nil {
			c.src.stop()
			c.src = nil
		}
		c.id = uuid.Nil
	}
	p.busy = make(map[uuid.UUID]*channel)
}

// ActiveCount returns the number of channels still producing audio.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.busy {
		if c.active() {
			n++
		}
	}
	return n
}
