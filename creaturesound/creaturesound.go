// SPDX-License-Identifier: GPL-2.0-or-later

// Package creaturesound maps NPC race IDs onto the short file prefixes
// the client's snd archives use, building names like rat_atk1.wav.
package creaturesound

import (
	"sort"
	"strconv"
)

// Type is a creature action with a sound.
type Type int

const (
	Attack Type = iota
	Damage
	Death
	Idle
	Special
	Run
	Walk
)

// maxVariants is the highest numbered take probed per sound; most
// creatures ship one or two.
const maxVariants = 3

// racePrefixes keys NPC race IDs to their archive filename prefix.
// Several race variants share a prefix, and citizen NPCs reuse the
// playable-race voices.
var racePrefixes = map[uint16]string{
	// Playable races.
	1: "hum", 2: "bar", 3: "eru", 4: "elf", 5: "hie", 6: "dae",
	7: "hae", 8: "dwf", 9: "trl", 10: "ogr", 11: "hfl", 12: "gnm",
	128: "iks", 130: "vah",

	// Canines and bears.
	13: "wol", 29: "wol", 42: "wol",
	14: "bea", 23: "bea", 30: "bea", 43: "bea",

	// Felines and rodents.
	50: "lio", 51: "lio", 59: "pum", 76: "pum", 78: "cat",
	35: "rat", 36: "rat",

	// Reptiles and aquatics.
	25: "all", 93: "all", 26: "sna", 37: "sna",
	24: "fis", 57: "pir",

	// Other animals.
	22: "bet", 34: "bat", 40: "gor", 47: "gri", 90: "gri",
	48: "spi", 49: "spi", 88: "mos",

	// Humanoids.
	17: "orc", 18: "orc", 19: "orc", 54: "orc", 56: "orc",
	39: "gno", 44: "gno", 87: "gno",
	46: "gob", 52: "liz", 20: "brn",
	53: "min", 94: "min", 91: "kob",

	// Undead.
	21: "ske", 41: "ske", 60: "ske", 64: "ske", 367: "ske",
	27: "spc", 33: "ghu", 65: "ghu", 63: "gho", 83: "gho",
	67: "zom", 70: "zom", 81: "vam",

	// Lycanthropes and elementals.
	28: "wer", 77: "wer",
	58: "ele", 72: "ear", 73: "air", 74: "wat", 75: "fir",

	// Dragons and drakes.
	85: "dra", 92: "drk", 95: "drk",

	// Magical creatures.
	66: "hag", 68: "sph", 69: "wsp", 89: "imp", 96: "djn",
	38: "scr", 55: "lvc", 120: "eye",

	// Citizen NPCs on playable-race voices.
	15: "hum", 31: "hum", 32: "hum", 71: "hum", 80: "hum", 82: "hum",
	61: "dae", 86: "dae", 62: "eru", 79: "elf", 84: "dwf",
}

// typeSuffix is the three-letter action code in the filename.
func typeSuffix(t Type) string {
	switch t {
	case Attack:
		return "atk"
	case Damage:
		return "dam"
	case Death:
		return "dth"
	case Idle:
		return "idl"
	case Special:
		return "spl"
	case Run:
		return "run"
	case Walk:
		return "wlk"
	}
	return ""
}

// RacePrefix returns the filename prefix of a race, "" when the race
// has no sound set.
func RacePrefix(race uint16) string {
	return racePrefixes[race]
}

// HasSound reports whether the race maps to a sound set at all.
func HasSound(race uint16) bool {
	return racePrefixes[race] != ""
}

func buildFilename(prefix string, t Type, variant int) string {
	suffix := typeSuffix(t)
	if suffix == "" {
		return ""
	}
	name := prefix + "_" + suffix
	if variant > 0 {
		name += strconv.Itoa(variant)
	}
	return name + ".wav"
}

// SoundFile returns the unnumbered filename of an action, e.g.
// rat_atk.wav. Unknown races return "".
func SoundFile(t Type, race uint16) string {
	prefix := RacePrefix(race)
	if prefix == "" {
		return ""
	}
	return buildFilename(prefix, t, 0)
}

// SoundFileVariants returns every candidate filename of an action, the
// unnumbered name first and then the numbered takes. Callers probe the
// list against the archives and play what exists.
func SoundFileVariants(t Type, race uint16) []string {
	prefix := RacePrefix(race)
	if prefix == "" {
		return nil
	}
	variants := make([]string, 0, maxVariants+1)
	variants = append(variants, buildFilename(prefix, t, 0))
	for i := 1; i <= maxVariants; i++ {
		variants = append(variants, buildFilename(prefix, t, i))
	}
	return variants
}

// Races returns the race IDs with sound sets, sorted.
func Races() []uint16 {
	races := make([]uint16, 0, len(racePrefixes))
	for race := range racePrefixes {
		races = append(races, race)
	}
	sort.Slice(races, func(i, j int) bool { return races[i] < races[j] })
	return races
}
