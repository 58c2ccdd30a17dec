// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eqaudio/vec"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	content := t.TempDir()
	assets := "1^Swing.WAV\n2^80^LevelUp.WAV\n"
	if err := os.WriteFile(filepath.Join(content, "SoundAssets.txt"), []byte(assets), 0o644); err != nil {
		t.Fatal(err)
	}
	writeWavFile(t, filepath.Join(content, "Swing.WAV"), SampleRate, 1024)
	writeWavFile(t, filepath.Join(content, "LevelUp.WAV"), SampleRate, 1024)
	writeWavFile(t, filepath.Join(content, "rainloop.wav"), SampleRate, 1024)

	m, err := New(Config{ContentPath: content, ForceLoopback: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Shutdown)
	return m, content
}

func TestManagerPlaySound(t *testing.T) {
	m, _ := newTestManager(t)
	m.PlaySound(1, vec.Vec3{})
	if got := m.ActiveSounds(); got != 1 {
		t.Errorf("ActiveSounds: want 1 got %d", got)
	}
	m.StopAllSounds()
	if got := m.ActiveSounds(); got != 0 {
		t.Errorf("ActiveSounds after stop: want 0 got %d", got)
	}
}

func TestManagerUnknownIDAcquiresNothing(t *testing.T) {
	m, _ := newTestManager(t)
	m.PlaySound(9999, vec.Vec3{})
	if got := m.ActiveSounds(); got != 0 {
		t.Errorf("ActiveSounds: want 0 got %d", got)
	}
}

func TestManagerPlaySoundByName(t *testing.T) {
	m, _ := newTestManager(t)
	// Bare names get the wav extension.
	m.PlaySoundByName("rainloop", vec.Vec3{})
	if got := m.ActiveSounds(); got != 1 {
		t.Errorf("ActiveSounds: want 1 got %d", got)
	}
	m.PlaySoundByName("nosuchsound", vec.Vec3{})
	if got := m.ActiveSounds(); got != 1 {
		t.Errorf("ActiveSounds after missing file: want 1 got %d", got)
	}
}

func TestManagerCachesBuffers(t *testing.T) {
	m, _ := newTestManager(t)
	m.PlaySound(1, vec.Vec3{})
	m.PlaySound(1, vec.Vec3{})
	if got := m.cache.len(); got != 1 {
		t.Errorf("cache entries: want 1 got %d", got)
	}
}

func TestManagerLoopbackFallback(t *testing.T) {
	restore := openHardware
	openHardware = func(d *Device) error { return os.ErrPermission }
	defer func() { openHardware = restore }()

	content := t.TempDir()
	m, err := New(Config{ContentPath: content})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()
	if !m.IsLoopbackMode() {
		t.Error("hardware failure did not fall back to loopback")
	}
}

func TestFindZoneMusic(t *testing.T) {
	m, content := newTestManager(t)
	for _, name := range []string{"nro.mp3", "qeynos.xmi", "qeynos.mp3", "gfaydark.ogg"} {
		if err := os.WriteFile(filepath.Join(content, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		zone string
		want string
		ok   bool
	}{
		{"oasis", "nro.mp3", true},  // shared-track alias
		{"sro", "nro.mp3", true},
		{"nro", "nro.mp3", true},
		{"QeyToQRG", "qeynos.xmi", true}, // xmi probes before mp3
		{"lfaydark", "gfaydark.ogg", true},
		{"nowhere", "", false},
	}
	for _, tt := range tests {
		path, ok := m.FindZoneMusic(tt.zone)
		if ok != tt.ok {
			t.Errorf("FindZoneMusic(%s): ok want %v got %v", tt.zone, tt.ok, ok)
			continue
		}
		if ok && filepath.Base(path) != tt.want {
			t.Errorf("FindZoneMusic(%s): want %s got %s", tt.zone, tt.want, filepath.Base(path))
		}
	}
}

func TestManagerZoneChange(t *testing.T) {
	m, content := newTestManager(t)
	track := filepath.Join(content, "track.wav")
	writeWavFile(t, track, SampleRate, SampleRate/4)
	writeWavFile(t, filepath.Join(content, "qeynos.ogg"), SampleRate, 1024)

	m.PlaySound(1, vec.Vec3{})
	if !m.PlayMusicFile(track, true, 0) {
		t.Fatal("PlayMusicFile failed")
	}

	// A zone without music fades the old track out.
	m.OnZoneChange("gfaydark")
	if m.ActiveSounds() != 0 {
		t.Error("effects still active after zone change")
	}
	if got := m.music.State(); got != MusicFadingOut && got != MusicStopped {
		t.Errorf("music state after zone change: %v", got)
	}

	// Re-entering the same zone changes nothing.
	st := m.music.State()
	m.OnZoneChange("gfaydark")
	if got := m.music.State(); got != st {
		t.Errorf("same-zone change altered music state: %v -> %v", st, got)
	}

	// A zone with a music candidate replaces the old track. The probe
	// file here is undecodable, so playback ends stopped rather than
	// on the previous track.
	m.OnZoneChange("qeynos")
	if got := m.CurrentMusicFile(); got == track {
		t.Errorf("zone change kept the old track %s", got)
	}
}

func TestManagerAmbientLoop(t *testing.T) {
	m, _ := newTestManager(t)
	loop, err := m.StartAmbientLoop("rainloop")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.ActiveSounds(); got != 1 {
		t.Fatalf("ActiveSounds: want 1 got %d", got)
	}
	loop.SetGain(0.5)
	loop.Pause()
	loop.Resume()
	loop.Stop()
	if got := m.ActiveSounds(); got != 0 {
		t.Errorf("ActiveSounds after Stop: want 0 got %d", got)
	}

	if _, err := m.StartAmbientLoop("nosuchloop"); err == nil {
		t.Error("StartAmbientLoop on missing file succeeded")
	}
}

func TestManagerEnableLoopbackInvalidatesPool(t *testing.T) {
	restore := openHardware
	openHardware = func(d *Device) error { return nil }
	defer func() { openHardware = restore }()

	content := t.TempDir()
	writeWavFile(t, filepath.Join(content, "click.wav"), SampleRate, 256)
	m, err := New(Config{ContentPath: content})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()
	if m.IsLoopbackMode() {
		t.Fatal("started in loopback despite hardware stub")
	}

	m.PlaySoundByName("click", vec.Vec3{})
	m.EnableLoopback()
	if !m.IsLoopbackMode() {
		t.Fatal("EnableLoopback did not switch mode")
	}
	if got := m.ActiveSounds(); got != 0 {
		t.Errorf("ActiveSounds after switch: want 0 got %d", got)
	}
	// The new pool works on the new generation.
	m.PlaySoundByName("click", vec.Vec3{})
	if got := m.ActiveSounds(); got != 1 {
		t.Errorf("ActiveSounds on new pool: want 1 got %d", got)
	}
}

func TestNilManagerIsInert(t *testing.T) {
	var m *Manager
	m.PlaySound(1, vec.Vec3{})
	m.PlaySoundByName("x", vec.Vec3{})
	m.StopAllSounds()
	m.StopMusic(0)
	m.OnZoneChange("qeynos")
	m.SetMasterVolume(0.5)
	m.Update()
	m.Shutdown()
	if m.IsMusicPlaying() || m.IsLoopbackMode() {
		t.Error("nil manager reports activity")
	}
	if _, ok := m.FindZoneMusic("qeynos"); ok {
		t.Error("nil manager found zone music")
	}
}

func TestDistanceGain(t *testing.T) {
	if got := distanceGain(0); got != 1 {
		t.Errorf("inside reference distance: want 1 got %v", got)
	}
	if got := distanceGain(refDistance); got != 1 {
		t.Errorf("at reference distance: want 1 got %v", got)
	}
	want := float32(refDistance) / float32(maxDistance)
	if got := distanceGain(maxDistance); got != want {
		t.Errorf("at max distance: want %v got %v", want, got)
	}
	// Clamped beyond the max.
	if got := distanceGain(10 * maxDistance); got != want {
		t.Errorf("beyond max distance: want %v got %v", want, got)
	}
}

func TestVolumeClamping(t *testing.T) {
	m, _ := newTestManager(t)
	m.SetMasterVolume(1.5)
	if got := m.MasterVolume(); got != 1 {
		t.Errorf("MasterVolume: want 1 got %v", got)
	}
	m.SetMasterVolume(-0.5)
	if got := m.MasterVolume(); got != 0 {
		t.Errorf("MasterVolume: want 0 got %v", got)
	}
}

func TestZoneMusicAliasTable(t *testing.T) {
	// Every alias target is itself unaliased.
	for from, to := range zoneMusicAlias {
		if _, ok := zoneMusicAlias[to]; ok {
			t.Errorf("alias target %s (from %s) is itself aliased", to, from)
		}
		if strings.ToLower(from) != from || strings.ToLower(to) != to {
			t.Errorf("alias %s -> %s not lowercase", from, to)
		}
	}
}
