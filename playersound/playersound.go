// SPDX-License-Identifier: GPL-2.0-or-later

// Package playersound maps player character vocal events onto the
// race- and gender-specific sound files and SoundAssets IDs. Races
// share voice sets by category: most use the standard set, barbarians
// a deeper one, and the smaller races a lighter one.
package playersound

// Type is a player vocalization.
type Type int

const (
	Death Type = iota
	Drown
	Jump
	GetHit1
	GetHit2
	GetHit3
	GetHit4
	Gasp1
	Gasp2
)

// Category selects which voice set a race uses.
type Category int

const (
	Standard Category = iota
	Barbarian
	Light
)

// Genders as the server encodes them.
const (
	Male   uint8 = 0
	Female uint8 = 1
)

// Playable race IDs, Titanium era.
const (
	RaceHuman     uint16 = 1
	RaceBarbarian uint16 = 2
	RaceErudite   uint16 = 3
	RaceWoodElf   uint16 = 4
	RaceHighElf   uint16 = 5
	RaceDarkElf   uint16 = 6
	RaceHalfElf   uint16 = 7
	RaceDwarf     uint16 = 8
	RaceTroll     uint16 = 9
	RaceOgre      uint16 = 10
	RaceHalfling  uint16 = 11
	RaceGnome     uint16 = 12
	RaceIksar     uint16 = 128
	RaceVahShir   uint16 = 130
	RaceFroglok   uint16 = 330
)

// Base SoundAssets IDs of the standard male set; the other voice sets
// sit at fixed offsets.
const (
	idJump    uint32 = 32
	idGetHit1 uint32 = 33
	idGetHit2 uint32 = 34
	idGetHit3 uint32 = 35
	idGetHit4 uint32 = 36
	idGasp1   uint32 = 37
	idGasp2   uint32 = 38
	idDeath   uint32 = 39
	idDrown   uint32 = 40
)

const (
	offsetFemaleStandard  = 10
	offsetMaleLight       = 20
	offsetFemaleLight     = 30
	offsetMaleBarbarian   = 40
	offsetFemaleBarbarian = 50
)

// ValidRace reports whether race is a playable race.
func ValidRace(race uint16) bool {
	switch race {
	case RaceHuman, RaceBarbarian, RaceErudite, RaceWoodElf, RaceHighElf,
		RaceDarkElf, RaceHalfElf, RaceDwarf, RaceTroll, RaceOgre,
		RaceHalfling, RaceGnome, RaceIksar, RaceVahShir, RaceFroglok:
		return true
	}
	return false
}

// ValidGender reports whether gender is male or female.
func ValidGender(gender uint8) bool {
	return gender == Male || gender == Female
}

// RaceCategory returns the voice set of a race.
func RaceCategory(race uint16) Category {
	switch race {
	case RaceWoodElf, RaceHighElf, RaceHalfElf, RaceHalfling, RaceGnome:
		return Light
	case RaceBarbarian:
		return Barbarian
	}
	return Standard
}

// Suffix returns the filename suffix of a race and gender, one of
// _M, _F, _MB, _FB, _ML, _FL.
func Suffix(race uint16, gender uint8) string {
	if !ValidRace(race) || !ValidGender(gender) {
		return ""
	}
	male := gender == Male
	switch RaceCategory(race) {
	case Light:
		if male {
			return "_ML"
		}
		return "_FL"
	case Barbarian:
		if male {
			return "_MB"
		}
		return "_FB"
	}
	if male {
		return "_M"
	}
	return "_F"
}

// shortSuffix is the hit and gasp variant of Suffix, without the
// underscore.
func shortSuffix(race uint16, gender uint8) string {
	s := Suffix(race, gender)
	if s == "" {
		return ""
	}
	return s[1:]
}

// SoundFile returns the filename of a vocalization, e.g. Death_M.WAV
// for a standard male death cry. Unknown races and genders return "".
func SoundFile(t Type, race uint16, gender uint8) string {
	if !ValidRace(race) || !ValidGender(gender) {
		return ""
	}
	switch t {
	case Jump:
		// Jump files number the take and append the category letter
		// without an underscore.
		base := "JumpM_1"
		if gender == Female {
			base = "JumpF_1"
		}
		switch RaceCategory(race) {
		case Light:
			return base + "L.WAV"
		case Barbarian:
			return base + "B.WAV"
		}
		return base + ".WAV"
	case GetHit1, GetHit2, GetHit3, GetHit4, Gasp1, Gasp2:
		base := map[Type]string{
			GetHit1: "GetHit1", GetHit2: "GetHit2",
			GetHit3: "GetHit3", GetHit4: "GetHit4",
			Gasp1: "Gasp1", Gasp2: "Gasp2",
		}[t]
		return base + shortSuffix(race, gender) + ".WAV"
	case Death:
		return "Death" + Suffix(race, gender) + ".WAV"
	case Drown:
		return "Drown" + Suffix(race, gender) + ".WAV"
	}
	return ""
}

// SoundID returns the SoundAssets.txt ID of a vocalization, 0 when the
// race or gender is invalid.
func SoundID(t Type, race uint16, gender uint8) uint32 {
	if !ValidRace(race) || !ValidGender(gender) {
		return 0
	}
	var base uint32
	switch t {
	case Death:
		base = idDeath
	case Drown:
		base = idDrown
	case Jump:
		base = idJump
	case GetHit1:
		base = idGetHit1
	case GetHit2:
		base = idGetHit2
	case GetHit3:
		base = idGetHit3
	case GetHit4:
		base = idGetHit4
	case Gasp1:
		base = idGasp1
	case Gasp2:
		base = idGasp2
	default:
		return 0
	}
	male := gender == Male
	var offset uint32
	switch RaceCategory(race) {
	case Standard:
		if !male {
			offset = offsetFemaleStandard
		}
	case Light:
		if male {
			offset = offsetMaleLight
		} else {
			offset = offsetFemaleLight
		}
	case Barbarian:
		if male {
			offset = offsetMaleBarbarian
		} else {
			offset = offsetFemaleBarbarian
		}
	}
	return base + offset
}
