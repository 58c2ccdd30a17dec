// SPDX-License-Identifier: GPL-2.0-or-later

package pfs

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"eqaudio/crc"
)

func deflateBlocks(t *testing.T, data []byte) []byte {
	t.Helper()
	// Split into two blocks to exercise chain walking.
	half := len(data) / 2
	var out bytes.Buffer
	for _, part := range [][]byte{data[:half], data[half:]} {
		if len(part) == 0 {
			continue
		}
		var comp bytes.Buffer
		zw := zlib.NewWriter(&comp)
		if _, err := zw.Write(part); err != nil {
			t.Fatalf("deflate: %v", err)
		}
		zw.Close()
		binary.Write(&out, binary.LittleEndian, uint32(comp.Len()))
		binary.Write(&out, binary.LittleEndian, uint32(len(part)))
		out.Write(comp.Bytes())
	}
	return out.Bytes()
}

// writeArchive builds a minimal archive holding the given files.
func writeArchive(t *testing.T, path string, files map[string][]byte) {
	t.Helper()

	var body bytes.Buffer
	body.Write(make([]byte, 8)) // header placeholder

	type dirEnt struct {
		crc    int32
		offset uint32
		size   uint32
	}
	var dir []dirEnt

	var nameTable bytes.Buffer
	binary.Write(&nameTable, binary.LittleEndian, uint32(len(files)))
	for name, data := range files {
		offset := uint32(body.Len())
		body.Write(deflateBlocks(t, data))
		dir = append(dir, dirEnt{crc.Name(name), offset, uint32(len(data))})

		binary.Write(&nameTable, binary.LittleEndian, uint32(len(name)+1))
		nameTable.WriteString(name)
		nameTable.WriteByte(0)
	}

	ntOffset := uint32(body.Len())
	ntRaw := nameTable.Bytes()
	body.Write(deflateBlocks(t, ntRaw))

	dirOffset := uint32(body.Len())
	binary.Write(&body, binary.LittleEndian, uint32(len(dir)+1))
	for _, d := range dir {
		binary.Write(&body, binary.LittleEndian, uint32(d.crc))
		binary.Write(&body, binary.LittleEndian, d.offset)
		binary.Write(&body, binary.LittleEndian, d.size)
	}
	binary.Write(&body, binary.LittleEndian, uint32(filenameTableCrc))
	binary.Write(&body, binary.LittleEndian, ntOffset)
	binary.Write(&body, binary.LittleEndian, uint32(len(ntRaw)))

	raw := body.Bytes()
	binary.LittleEndian.PutUint32(raw[0:], dirOffset)
	copy(raw[4:8], "PFS ")

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snd1.pfs")
	want := map[string][]byte{
		"thunder1.wav": []byte("thunder sample data, long enough for two blocks"),
		"rainloop.wav": []byte("rain"),
	}
	writeArchive(t, path, want)

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for name, data := range want {
		got, err := a.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("get %s: want %q got %q", name, data, got)
		}
	}
	// Case-insensitive lookup.
	if _, err := a.Get("THUNDER1.WAV"); err != nil {
		t.Errorf("uppercase lookup failed: %v", err)
	}
	if a.Contains("missing.wav") {
		t.Error("Contains(missing.wav) = true")
	}
	if _, err := a.Get("missing.wav"); !os.IsNotExist(err) {
		t.Errorf("missing file: want ErrNotExist got %v", err)
	}

	wavs := a.Filenames(".wav")
	if len(wavs) != 2 {
		t.Errorf("Filenames(.wav): want 2 got %d", len(wavs))
	}
}

func TestOpenRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pfs")
	if err := os.WriteFile(path, []byte("not an archive at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open accepted a non-archive file")
	}
}
