// SPDX-License-Identifier: GPL-2.0-or-later

package crc

import "testing"

func TestNameIncludesTrailingNul(t *testing.T) {
	if Name("") == 0 {
		t.Error("empty name must still hash the NUL")
	}
	if Name("a") == Update([]byte("a")) {
		t.Error("Name must differ from the bare byte crc")
	}
}

func TestNameDistinguishesNames(t *testing.T) {
	names := []string{"rainloop.wav", "wind_lp1.wav", "thunder1.wav", "bird1.wav"}
	seen := make(map[int32]string)
	for _, n := range names {
		c := Name(n)
		if prev, ok := seen[c]; ok {
			t.Fatalf("collision: %q and %q", prev, n)
		}
		seen[c] = n
	}
}

func TestNameDeterministic(t *testing.T) {
	if Name("snd1.pfs") != Name("snd1.pfs") {
		t.Error("Name not deterministic")
	}
}
