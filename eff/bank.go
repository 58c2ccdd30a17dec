// SPDX-License-Identifier: GPL-2.0-or-later

package eff

import (
	"os"
	"path/filepath"
	"strings"

	"eqaudio/conlog"
)

// Loader reads zone ambience data from a content directory. It owns
// the shared mp3index table, loaded once per content path.
type Loader struct {
	root     string
	mp3Index []string
}

func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// Bank is the parsed ambience data of one zone.
type Bank struct {
	Zone    string
	Entries []Entry
	Emit    []string
	Loop    []string

	mp3Index []string
}

// LoadZone parses {zone}_sounds.eff and {zone}_sndbnk.eff. A zone
// with neither file yields (nil, false); a bank with either loaded
// yields (bank, true).
func (l *Loader) LoadZone(zone string) (*Bank, bool) {
	lower := strings.ToLower(zone)
	b := &Bank{Zone: zone, mp3Index: l.Mp3Index()}

	sndbnk := filepath.Join(l.root, lower+"_sndbnk.eff")
	bankLoaded := false
	if f, err := os.Open(sndbnk); err == nil {
		emit, loop, err := ParseSndBnk(f)
		f.Close()
		if err == nil && (len(emit) > 0 || len(loop) > 0) {
			b.Emit, b.Loop = emit, loop
			bankLoaded = true
		}
	}

	sounds := filepath.Join(l.root, lower+"_sounds.eff")
	soundsLoaded := false
	if data, err := os.ReadFile(sounds); err == nil {
		entries, err := ParseSoundsEff(data)
		if err != nil {
			conlog.Printf("eff: %s rejected: %v", sounds, err)
		} else {
			b.Entries = entries
			soundsLoaded = true
		}
	}

	if !bankLoaded && !soundsLoaded {
		return nil, false
	}
	return b, true
}

// Resolve maps a sound reference from a {zone}_sounds.eff record to a
// filename:
//
//	0       no sound
//	< 0     mp3index.txt entry abs(id), 1-indexed
//	1-31    EMIT section entry, 1-indexed
//	32-161  hardcoded global sounds
//	162+    LOOP section entry at id-162
//
// Out-of-range references resolve to "".
func (b *Bank) Resolve(id int32) string {
	switch {
	case id == 0:
		return ""
	case id < 0:
		return b.mp3File(int(-id))
	case id < 32:
		i := int(id - 1)
		if i < len(b.Emit) {
			return b.Emit[i]
		}
		return ""
	case id > 161:
		i := int(id - 162)
		if i < len(b.Loop) {
			return b.Loop[i]
		}
		return ""
	default:
		return hardcodedSound(id)
	}
}

func (b *Bank) mp3File(idx int) string {
	if idx <= 0 || idx >= len(b.mp3Index) {
		return ""
	}
	return b.mp3Index[idx]
}

// MusicEntryCount counts BackgroundMusic records.
func (b *Bank) MusicEntryCount() int {
	n := 0
	for _, e := range b.Entries {
		if e.Type == BackgroundMusic {
			n++
		}
	}
	return n
}

// Mp3Index returns the shared music index, loading mp3index.txt on
// first use or falling back to the built-in Planes of Power era list.
// Index 0 is a placeholder; the file is 1-indexed.
func (l *Loader) Mp3Index() []string {
	if l.mp3Index != nil {
		return l.mp3Index
	}
	path := filepath.Join(l.root, "mp3index.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		l.mp3Index = defaultMp3Index()
		return l.mp3Index
	}
	idx := []string{""}
	for _, line := range strings.Split(string(data), "\n") {
		idx = append(idx, trimSpace(line))
	}
	l.mp3Index = idx
	return l.mp3Index
}

func defaultMp3Index() []string {
	return []string{
		"",
		"bothunder.mp3",
		"codecay.mp3",
		"combattheme1.mp3",
		"combattheme2.mp3",
		"deaththeme.mp3",
		"eqtheme.mp3",
		"hohonor.mp3",
		"poair.mp3",
		"podisease.mp3",
		"poearth.mp3",
		"pofire.mp3",
		"poinnovation.mp3",
		"pojustice.mp3",
		"poknowledge.mp3",
		"ponightmare.mp3",
		"postorms.mp3",
		"potactics.mp3",
		"potime.mp3",
		"potorment.mp3",
		"potranquility.mp3",
		"povalor.mp3",
		"powar.mp3",
		"powater.mp3",
		"solrotower.mp3",
	}
}
