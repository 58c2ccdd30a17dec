// SPDX-License-Identifier: GPL-2.0-or-later

package crc

const archivePoly = 0x04C11DB7

type Table struct {
	entries [256]int32
}

// 32bit CRC keying the PFS archive directory
var archiveTable = makeTable(archivePoly)

func makeTable(poly int32) *Table {
	t := &Table{}
	for i := int32(0); i < 256; i++ {
		accum := i << 24
		for j := 0; j < 8; j++ {
			if accum < 0 {
				accum = (accum << 1) ^ poly
			} else {
				accum <<= 1
			}
		}
		t.entries[i] = accum
	}
	return t
}

func update(crc int32, p []byte) int32 {
	for _, v := range p {
		crc = (crc << 8) ^ archiveTable.entries[byte(crc>>24)^v]
	}
	return crc
}

func Update(p []byte) int32 {
	return update(0, p)
}

// Name hashes a filename the way the archive directory does: the
// table crc over the name bytes plus a trailing NUL.
func Name(s string) int32 {
	return update(update(0, []byte(s)), []byte{0})
}
