// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"os"
	"path/filepath"
	"testing"

	"eqaudio/filesystem"
)

func newTestCombat(t *testing.T) *CombatMusic {
	t.Helper()
	content := t.TempDir()
	for _, name := range stingerFiles {
		if err := os.WriteFile(filepath.Join(content, name), []byte{0}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	synth := withFakeSequencer(t, &fakeSequencer{})
	restore := readMidiBytes
	readMidiBytes = func(path string, track int) ([]byte, error) {
		return minimalMidi(), nil
	}
	t.Cleanup(func() { readMidiBytes = restore })

	c := newCombatMusic(filesystem.NewStore(content), NewMusicStreamer(NewDevice(), synth))
	t.Cleanup(c.reset)
	return c
}

func TestCombatStingerFiresAfterDelay(t *testing.T) {
	c := newTestCombat(t)

	c.OnCombatStart()
	if !c.InCombat() {
		t.Fatal("InCombat false after start")
	}
	// Under the delay: silent.
	c.Update(combatStingerDelaySeconds - 1)
	if c.StingerPlaying() {
		t.Fatal("stinger before the delay elapsed")
	}
	c.Update(1.5)
	if !c.StingerPlaying() {
		t.Fatal("no stinger after the delay")
	}
	if got := filepath.Base(c.streamer.CurrentFile()); got != "damage1.xmi" && got != "damage2.xmi" {
		t.Errorf("stinger file: got %s", got)
	}
	// The stinger fires once per fight.
	c.Update(combatStingerDelaySeconds * 2)
	if !c.triggered {
		t.Error("triggered flag lost")
	}
}

func TestCombatBriefEncounterStaysSilent(t *testing.T) {
	c := newTestCombat(t)

	c.OnCombatStart()
	c.Update(combatStingerDelaySeconds / 2)
	c.OnCombatEnd()
	if c.StingerPlaying() {
		t.Fatal("brief encounter played a stinger")
	}
	// Time passing after the fight changes nothing.
	c.Update(combatStingerDelaySeconds * 2)
	if c.StingerPlaying() {
		t.Fatal("stinger fired outside combat")
	}
}

func TestCombatEndFadesStinger(t *testing.T) {
	c := newTestCombat(t)

	c.OnCombatStart()
	c.Update(combatStingerDelaySeconds + 1)
	if !c.StingerPlaying() {
		t.Fatal("no stinger after the delay")
	}
	c.OnCombatEnd()
	if c.InCombat() {
		t.Error("InCombat true after end")
	}
	if got := c.streamer.State(); got != MusicFadingOut && got != MusicStopped {
		t.Errorf("stinger state after combat end: %v", got)
	}
}

func TestCombatDisabledPlaysNothing(t *testing.T) {
	c := newTestCombat(t)

	c.SetEnabled(false)
	c.OnCombatStart()
	if c.InCombat() {
		t.Fatal("disabled layer entered combat")
	}
	c.Update(combatStingerDelaySeconds * 2)
	if c.StingerPlaying() {
		t.Fatal("disabled layer played a stinger")
	}
}

func TestCombatMissingStingersDegrade(t *testing.T) {
	synth := withFakeSequencer(t, &fakeSequencer{})
	c := newCombatMusic(filesystem.NewStore(t.TempDir()), NewMusicStreamer(NewDevice(), synth))
	t.Cleanup(c.reset)

	c.OnCombatStart()
	c.Update(combatStingerDelaySeconds + 1)
	if c.StingerPlaying() {
		t.Fatal("stinger played without files on disk")
	}
	// The fight itself still tracks.
	if !c.InCombat() {
		t.Error("InCombat false")
	}
	c.OnCombatEnd()
}

func TestNilCombatIsInert(t *testing.T) {
	var c *CombatMusic
	c.OnCombatStart()
	c.Update(10)
	c.OnCombatEnd()
	c.SetEnabled(true)
	c.SetVolume(0.5)
	c.reset()
	if c.InCombat() || c.StingerPlaying() {
		t.Error("nil combat layer reports activity")
	}
}
