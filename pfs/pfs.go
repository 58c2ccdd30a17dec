// SPDX-License-Identifier: GPL-2.0-or-later

// Package pfs reads the PFS sound archives (snd1.pfs ...) shipped with
// the client. An archive is a directory of crc-keyed entries, each a
// chain of zlib-deflated blocks; one special entry holds the filename
// table that maps the crcs back to names.
package pfs

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"eqaudio/crc"
)

// Directory entry carrying the deflated filename table.
const filenameTableCrc = 0x61580ac9

type entry struct {
	offset uint32
	size   uint32 // inflated size
}

type Archive struct {
	name  string
	data  []byte
	files map[string]entry
}

// Open reads and indexes a PFS archive. The whole file is kept in
// memory; individual entries are inflated on Get.
func Open(name string) (*Archive, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	a := &Archive{
		name:  name,
		data:  data,
		files: make(map[string]entry),
	}
	if err := a.init(); err != nil {
		return nil, errors.Wrapf(err, "pfs %s", name)
	}
	return a, nil
}

func (a *Archive) init() error {
	if len(a.data) < 8 {
		return errors.New("truncated header")
	}
	dirOffset := binary.LittleEndian.Uint32(a.data[0:4])
	if !bytes.Equal(a.data[4:8], []byte("PFS ")) {
		return errors.New("not a PFS archive")
	}
	if int(dirOffset)+4 > len(a.data) {
		return errors.New("directory offset out of range")
	}
	dirCount := binary.LittleEndian.Uint32(a.data[dirOffset:])

	type dirEntry struct {
		crc    int32
		offset uint32
		size   uint32
	}
	var dir []dirEntry
	names := make(map[int32]string)

	for i := uint32(0); i < dirCount; i++ {
		off := int(dirOffset) + 4 + int(i)*12
		if off+12 > len(a.data) {
			return errors.New("truncated directory")
		}
		crc := int32(binary.LittleEndian.Uint32(a.data[off:]))
		offset := binary.LittleEndian.Uint32(a.data[off+4:])
		size := binary.LittleEndian.Uint32(a.data[off+8:])

		if crc == filenameTableCrc {
			table, err := a.inflateAt(offset, size)
			if err != nil {
				return errors.Wrap(err, "filename table")
			}
			if err := parseNames(table, names); err != nil {
				return err
			}
			continue
		}
		dir = append(dir, dirEntry{crc, offset, size})
	}

	for _, d := range dir {
		name, ok := names[d.crc]
		if !ok {
			// Entries without a filename (crc-only) are unreachable
			// by name lookup and skipped.
			continue
		}
		a.files[name] = entry{offset: d.offset, size: d.size}
	}
	return nil
}

func parseNames(table []byte, out map[int32]string) error {
	if len(table) < 4 {
		return errors.New("truncated filename table")
	}
	count := binary.LittleEndian.Uint32(table)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+4 > len(table) {
			return errors.New("truncated filename entry")
		}
		l := int(binary.LittleEndian.Uint32(table[pos:]))
		pos += 4
		if l < 1 || pos+l > len(table) {
			return errors.New("bad filename length")
		}
		name := strings.ToLower(string(table[pos : pos+l-1])) // drop NUL
		pos += l
		out[crc.Name(name)] = name
	}
	return nil
}

// inflateAt walks the block chain at offset until size inflated bytes
// have been produced.
func (a *Archive) inflateAt(offset, size uint32) ([]byte, error) {
	out := make([]byte, 0, size)
	pos := int(offset)
	for uint32(len(out)) < size {
		if pos+8 > len(a.data) {
			return nil, errors.New("truncated block header")
		}
		deflLen := int(binary.LittleEndian.Uint32(a.data[pos:]))
		inflLen := int(binary.LittleEndian.Uint32(a.data[pos+4:]))
		pos += 8
		if pos+deflLen > len(a.data) {
			return nil, errors.New("truncated block")
		}
		zr, err := zlib.NewReader(bytes.NewReader(a.data[pos : pos+deflLen]))
		if err != nil {
			return nil, err
		}
		block := make([]byte, inflLen)
		if _, err := io.ReadFull(zr, block); err != nil {
			zr.Close()
			return nil, err
		}
		zr.Close()
		out = append(out, block...)
		pos += deflLen
	}
	return out[:size], nil
}

// Get returns the inflated contents of the named entry. Lookup is
// case-insensitive. Returns os.ErrNotExist for unknown names.
func (a *Archive) Get(name string) ([]byte, error) {
	e, ok := a.files[strings.ToLower(name)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return a.inflateAt(e.offset, e.size)
}

func (a *Archive) Contains(name string) bool {
	_, ok := a.files[strings.ToLower(name)]
	return ok
}

// Filenames returns the entries ending in ext (e.g. ".wav"), or all
// entries if ext is "*".
func (a *Archive) Filenames(ext string) []string {
	ext = strings.ToLower(ext)
	var out []string
	for name := range a.files {
		if ext == "*" || strings.HasSuffix(name, ext) {
			out = append(out, name)
		}
	}
	return out
}

func (a *Archive) String() string {
	return a.name
}
