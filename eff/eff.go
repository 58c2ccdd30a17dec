// SPDX-License-Identifier: GPL-2.0-or-later

// Package eff parses the per-zone ambience data: {zone}_sounds.eff
// (packed 84-byte binary records), {zone}_sndbnk.eff (sectioned sound
// name lists) and the shared mp3index.txt, and implements the sound-ID
// resolution rule that ties them together.
package eff

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// EntrySize is the packed on-disk record size. Files whose length is
// not an exact multiple are rejected.
const EntrySize = 84

type SoundType uint8

const (
	// Day/night sound pair, constant volume within the radius.
	DayNightConstant SoundType = 0
	// Zone music region, day/night tracks.
	BackgroundMusic SoundType = 1
	// Single sound, volume derived from the AsDistance field.
	StaticEffect SoundType = 2
	// Day/night sound pair with distance-based volume.
	DayNightDistance SoundType = 3
)

// Entry is one ambience point from a {zone}_sounds.eff file. The
// on-disk record carries several runtime-reference and padding fields
// that are not meaningful outside the original client; only the
// fields below survive parsing.
type Entry struct {
	Sequence     int32
	X, Y, Z      float32
	Radius       float32
	Cooldown1    int32 // ms, day sound
	Cooldown2    int32 // ms, night sound
	RandomDelay  int32 // ms, added to the cooldown
	SoundID1     int32 // primary/day sound reference
	SoundID2     int32 // secondary/night sound reference
	Type         SoundType
	AsDistance   int32 // volume-as-distance for types 2 and 3
	FadeOutMs    int32
	FullVolRange int32
}

// ParseSoundsEff decodes the packed records. A byte length of zero or
// one that is not a multiple of EntrySize rejects the whole file.
func ParseSoundsEff(data []byte) ([]Entry, error) {
	if len(data) == 0 || len(data)%EntrySize != 0 {
		return nil, errors.Errorf("sounds.eff: %d bytes is not a multiple of %d", len(data), EntrySize)
	}
	le := binary.LittleEndian
	n := len(data) / EntrySize
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		r := data[i*EntrySize:]
		entries = append(entries, Entry{
			Sequence:     int32(le.Uint32(r[12:])),
			X:            math.Float32frombits(le.Uint32(r[16:])),
			Y:            math.Float32frombits(le.Uint32(r[20:])),
			Z:            math.Float32frombits(le.Uint32(r[24:])),
			Radius:       math.Float32frombits(le.Uint32(r[28:])),
			Cooldown1:    int32(le.Uint32(r[32:])),
			Cooldown2:    int32(le.Uint32(r[36:])),
			RandomDelay:  int32(le.Uint32(r[40:])),
			SoundID1:     int32(le.Uint32(r[48:])),
			SoundID2:     int32(le.Uint32(r[52:])),
			Type:         SoundType(r[56]),
			AsDistance:   int32(le.Uint32(r[60:])),
			FadeOutMs:    int32(le.Uint32(r[68:])),
			FullVolRange: int32(le.Uint32(r[76:])),
		})
	}
	return entries, nil
}

// ParseSndBnk reads the EMIT/LOOP/RAND sectioned name list. Lines
// before any marker belong to EMIT; LOOP and RAND both collect into
// the loop list.
func ParseSndBnk(r io.Reader) (emit, loop []string, err error) {
	inEmit := true
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := trimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "EMIT":
			inEmit = true
			continue
		case "LOOP", "RAND":
			inEmit = false
			continue
		}
		if inEmit {
			emit = append(emit, line)
		} else {
			loop = append(loop, line)
		}
	}
	return emit, loop, scanner.Err()
}

// trimSpace removes spaces, tabs and the carriage return of CRLF data
// files.
func trimSpace(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// Globally known sound files for IDs 32-161. Most values in the range
// are undefined.
func hardcodedSound(id int32) string {
	switch id {
	case 39:
		return "death_me"
	case 143:
		return "thunder1"
	case 144:
		return "thunder2"
	case 158:
		return "wind_lp1"
	case 159:
		return "rainloop"
	case 160:
		return "torch_lp"
	case 161:
		return "watundlp"
	default:
		return ""
	}
}
