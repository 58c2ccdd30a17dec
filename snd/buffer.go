// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/pkg/errors"

	"eqaudio/filesystem"
)

// SoundBuffer holds one fully decoded sound effect as interleaved
// signed 16-bit PCM.
type SoundBuffer struct {
	Name       string
	SampleRate int
	Channels   int
	samples    []int16
}

// Frames returns the number of sample frames in the buffer.
func (b *SoundBuffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.samples) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b *SoundBuffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// DecodeBuffer decodes data into a SoundBuffer, picking the decoder by
// the filename extension. Effects are small, so everything is decoded
// up front; only music is streamed.
func DecodeBuffer(name string, data []byte) (*SoundBuffer, error) {
	switch strings.ToLower(filesystem.Ext(name)) {
	case ".wav":
		return decodeWav(name, data)
	case ".mp3":
		return decodeMp3(name, data)
	case ".ogg":
		return decodeOgg(name, data)
	}
	return nil, errors.Errorf("decode %s: unsupported format", name)
}

func decodeWav(name string, data []byte) (*SoundBuffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.Errorf("decode %s: not a wav file", name)
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}

	samples := make([]int16, len(pcm.Data))
	switch d.BitDepth {
	case 8:
		// 8-bit wav data is unsigned.
		for i, v := range pcm.Data {
			samples[i] = int16((v - 128) << 8)
		}
	case 16:
		for i, v := range pcm.Data {
			samples[i] = int16(v)
		}
	default:
		shift := uint(d.BitDepth) - 16
		for i, v := range pcm.Data {
			samples[i] = int16(v >> shift)
		}
	}

	return &SoundBuffer{
		Name:       name,
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
		samples:    samples,
	}, nil
}

func decodeMp3(name string, data []byte) (*SoundBuffer, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	// go-mp3 always emits 16-bit little-endian stereo.
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return &SoundBuffer{
		Name:       name,
		SampleRate: d.SampleRate(),
		Channels:   2,
		samples:    samples,
	}, nil
}

func decodeOgg(name string, data []byte) (*SoundBuffer, error) {
	raw, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	samples := make([]int16, len(raw))
	for i, v := range raw {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		samples[i] = int16(v * 32767)
	}
	return &SoundBuffer{
		Name:       name,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		samples:    samples,
	}, nil
}

// bufferCache keeps decoded effects keyed by lowercase filename.
type bufferCache struct {
	mu sync.Mutex
	m  map[string]*SoundBuffer
}

func (c *bufferCache) get(name string) (*SoundBuffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[strings.ToLower(name)]
	return b, ok
}

func (c *bufferCache) put(name string, b *SoundBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]*SoundBuffer)
	}
	c.m[strings.ToLower(name)] = b
}

func (c *bufferCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = nil
}

func (c *bufferCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
