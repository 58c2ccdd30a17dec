// SPDX-License-Identifier: GPL-2.0-or-later

// Package uisound maps interface and door events onto their sound
// files and SoundAssets IDs.
package uisound

// Event is a UI or interaction occurrence with a fixed sound.
type Event int

const (
	LevelUp Event = iota
	LevelDown
	EndQuest
	BoatBell
	BuyItem
	SellItem
	ChestOpen
	ChestClose
	DoorWoodOpen
	DoorWoodClose
	DoorMetalOpen
	DoorMetalClose
	DoorStoneOpen
	DoorStoneClose
	DoorSecret
	TrapDoor
	ButtonClick
	YouveGotMail
	Teleport
	Drink

	eventCount
)

// soundFiles carries the client's original mixed-case filenames; the
// filesystem layer matches case-insensitively anyway.
var soundFiles = map[Event]string{
	LevelUp:        "LevelUp.WAV",
	LevelDown:      "LevDn.WAV",
	EndQuest:       "EndQuest.WAV",
	BoatBell:       "BoatBell.WAV",
	BuyItem:        "BuyItem.WAV",
	SellItem:       "BuyItem.WAV", // no separate sell sound
	ChestOpen:      "Chest_Op.WAV",
	ChestClose:     "Chest_Cl.WAV",
	DoorWoodOpen:   "DoorWd_O.WAV",
	DoorWoodClose:  "DoorWd_C.WAV",
	DoorMetalOpen:  "DoorMt_O.WAV",
	DoorMetalClose: "DoorMt_C.WAV",
	DoorStoneOpen:  "DoorSt_O.WAV",
	DoorStoneClose: "DoorSt_C.WAV",
	DoorSecret:     "DoorSecr.WAV",
	TrapDoor:       "TrapDoor.WAV",
	ButtonClick:    "Button_1.WAV",
	YouveGotMail:   "mail1.wav",
	Teleport:       "Teleport.WAV",
	Drink:          "Drink.WAV",
}

// soundIDs are the SoundAssets.txt entries. The mail notification is
// keyed by string in the client and has no numeric ID.
var soundIDs = map[Event]uint32{
	LevelUp:        139,
	LevelDown:      140,
	EndQuest:       141,
	BoatBell:       170,
	BuyItem:        138,
	SellItem:       138,
	ChestOpen:      134,
	ChestClose:     133,
	DoorWoodOpen:   135,
	DoorWoodClose:  136,
	DoorMetalOpen:  176,
	DoorMetalClose: 175,
	DoorStoneOpen:  179,
	DoorStoneClose: 178,
	DoorSecret:     177,
	TrapDoor:       189,
	ButtonClick:    142,
	Teleport:       137,
	Drink:          149,
}

var eventNames = map[Event]string{
	LevelUp:        "LevelUp",
	LevelDown:      "LevelDown",
	EndQuest:       "EndQuest",
	BoatBell:       "BoatBell",
	BuyItem:        "BuyItem",
	SellItem:       "SellItem",
	ChestOpen:      "ChestOpen",
	ChestClose:     "ChestClose",
	DoorWoodOpen:   "DoorWoodOpen",
	DoorWoodClose:  "DoorWoodClose",
	DoorMetalOpen:  "DoorMetalOpen",
	DoorMetalClose: "DoorMetalClose",
	DoorStoneOpen:  "DoorStoneOpen",
	DoorStoneClose: "DoorStoneClose",
	DoorSecret:     "DoorSecret",
	TrapDoor:       "TrapDoor",
	ButtonClick:    "ButtonClick",
	YouveGotMail:   "YouveGotMail",
	Teleport:       "Teleport",
	Drink:          "Drink",
}

// SoundFile returns the wav filename for e, or "" for an unknown
// event.
func SoundFile(e Event) string {
	return soundFiles[e]
}

// SoundID returns the numeric SoundAssets ID for e. ok is false for
// events without one.
func SoundID(e Event) (id uint32, ok bool) {
	id, ok = soundIDs[e]
	return id, ok
}

// Valid reports whether e maps to a sound file.
func Valid(e Event) bool {
	return SoundFile(e) != ""
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "Unknown"
}

// Events lists every defined event, for iteration.
func Events() []Event {
	all := make([]Event, 0, int(eventCount))
	for e := Event(0); e < eventCount; e++ {
		all = append(all, e)
	}
	return all
}
