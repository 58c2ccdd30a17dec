// SPDX-License-Identifier: GPL-2.0-or-later

// Package assets parses SoundAssets.txt, the client's mapping of
// numeric sound IDs to effect filenames and per-sound volumes.
package assets

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"eqaudio/conlog"
)

type Entry struct {
	Filename string
	Volume   float32 // normalized to [0,1]
}

type Index struct {
	entries map[uint32]Entry
}

// Load reads a SoundAssets.txt file from disk.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the id^filename / id^volume^filename line format.
// Comment lines start with '#' or '/'; malformed lines are skipped.
func Parse(r io.Reader) (*Index, error) {
	idx := &Index{entries: make(map[uint32]Entry)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' || line[0] == '/' {
			continue
		}
		parts := strings.Split(line, "^")
		if len(parts) < 2 {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
		if err != nil {
			continue
		}

		e := Entry{Volume: 1.0}
		switch {
		case len(parts) == 2:
			e.Filename = parts[1]
		default:
			if vol, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
				e.Volume = normalizeVolume(vol)
				e.Filename = parts[2]
			} else {
				// Volume field missing, second field is the filename.
				e.Filename = parts[1]
			}
		}

		e.Filename = strings.TrimSpace(e.Filename)
		if e.Filename == "" || e.Filename == "Unknown" {
			continue
		}
		idx.entries[uint32(id)] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	conlog.Printf("assets: loaded %d sound asset entries", len(idx.entries))
	return idx, nil
}

// Volume fields are stored as integers on two scales: values above 100
// are per-mille, the rest percent.
func normalizeVolume(v int) float32 {
	switch {
	case v > 100:
		return float32(v) / 1000.0
	case v > 0:
		return float32(v) / 100.0
	default:
		return 1.0
	}
}

// Filename returns the mapped filename for id, or "" if unmapped.
func (i *Index) Filename(id uint32) string {
	return i.entries[id].Filename
}

// Volume returns the normalized volume for id, defaulting to 1.0.
func (i *Index) Volume(id uint32) float32 {
	if e, ok := i.entries[id]; ok {
		return e.Volume
	}
	return 1.0
}

func (i *Index) Has(id uint32) bool {
	_, ok := i.entries[id]
	return ok
}

func (i *Index) Len() int {
	return len(i.entries)
}
