// SPDX-License-Identifier: GPL-2.0-or-later

package snd

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"eqaudio/assets"
	"eqaudio/conlog"
	"eqaudio/filesystem"
	"eqaudio/vec"
)

// Inverse-distance-clamped attenuation parameters shared by every
// positional effect.
const (
	refDistance = 50.0
	maxDistance = 500.0
	rolloff     = 1.0
)

// zoneChangeFadeSeconds fades the old zone's track out when the new
// zone has no music of its own.
const zoneChangeFadeSeconds = 2

// zoneMusicAlias maps zones without their own music files onto the
// zone whose tracks they share.
var zoneMusicAlias = map[string]string{
	"oasis":      "nro",
	"sro":        "nro",
	"scarlet":    "nro",
	"ecommons":   "nektulos",
	"commons":    "nektulos",
	"wcommons":   "nektulos",
	"lfaydark":   "gfaydark",
	"steamfont":  "gfaydark",
	"qeytoqrg":   "qeynos",
	"qey2hh1":    "qeynos",
	"westkarana": "southkarana",
}

// musicExtensions is the probe order for zone music files.
var musicExtensions = []string{".xmi", ".mp3", ".ogg"}

// Config is the Manager construction input.
type Config struct {
	// ContentPath is the client data directory: loose sound files,
	// snd*.pfs archives, SoundAssets.txt, music and SoundFonts.
	ContentPath string
	// ForceLoopback skips the hardware backend.
	ForceLoopback bool
	// SoundFontPath overrides the SoundFont search in ContentPath.
	SoundFontPath string
	// Output receives rendered audio in loopback mode.
	Output OutputFunc
}

// Manager is the engine facade. A nil Manager is valid and every
// method on it is a no-op, so callers need no init checks.
type Manager struct {
	dev    *Device
	pool   *Pool
	synth  *Synth
	music  *MusicStreamer
	combat *CombatMusic
	store  *filesystem.Store
	assets *assets.Index
	cache  bufferCache
	lst    *listenerRef

	masterVolume  atomicFloat
	effectsVolume atomicFloat
	musicVolume   atomicFloat

	mu          sync.Mutex
	listener    vec.Vec3
	forward, up vec.Vec3
	currentZone string

	shutdown sync.Once
}

// New opens the output device and indexes the content directory.
// Hardware failure is not an error; the engine falls back to loopback.
func New(cfg Config) (*Manager, error) {
	if cfg.ContentPath == "" {
		return nil, errors.New("snd: content path required")
	}

	dev := NewDevice()
	if cfg.Output != nil {
		dev.SetOutput(cfg.Output)
	}
	if err := dev.Open(cfg.ForceLoopback); err != nil {
		return nil, errors.Wrap(err, "snd: open device")
	}

	m := &Manager{
		dev:   dev,
		pool:  NewPool(dev, poolSize),
		store: filesystem.NewStore(cfg.ContentPath),
		lst:   newListenerRef(),
	}
	m.masterVolume.Store(1)
	m.effectsVolume.Store(1)
	m.musicVolume.Store(1)

	m.synth = NewSynth(dev, cfg.ContentPath, cfg.SoundFontPath)
	m.music = NewMusicStreamer(dev, m.synth)
	// Combat stingers layer over the zone track, so they get their own
	// streamer and sequencer.
	m.combat = newCombatMusic(m.store,
		NewMusicStreamer(dev, NewSynth(dev, cfg.ContentPath, cfg.SoundFontPath)))

	idx, err := assets.Load(filepath.Join(cfg.ContentPath, "SoundAssets.txt"))
	if err != nil {
		conlog.Printf("snd: no SoundAssets.txt: %v", err)
	} else {
		m.assets = idx
	}
	return m, nil
}

// SetListener places the listener for positional attenuation and
// stereo placement.
func (m *Manager) SetListener(pos vec.Vec3) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.listener = pos
	m.mu.Unlock()
	m.publishListener()
}

// SetListenerOrientation sets the facing used to pan positional
// sounds; the right ear direction is derived from forward and up.
func (m *Manager) SetListenerOrientation(forward, up vec.Vec3) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.forward, m.up = forward, up
	m.mu.Unlock()
	m.publishListener()
}

// publishListener snapshots the listener for the playing sources.
func (m *Manager) publishListener() {
	m.mu.Lock()
	pos, forward, up := m.listener, m.forward, m.up
	m.mu.Unlock()
	right := cross(forward, up)
	right = right.Normalize()
	m.lst.store(listenerFrame{pos: pos, right: right})
}

func cross(a, b vec.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (m *Manager) Listener() vec.Vec3 {
	if m == nil {
		return vec.Vec3{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

// distanceGain is the inverse-distance-clamped model: unity inside the
// reference distance, floor attenuation beyond the maximum.
func distanceGain(dist float32) float32 {
	d := vec.Clamp(float32(refDistance), dist, float32(maxDistance))
	return refDistance / (refDistance + rolloff*(d-refDistance))
}

// PlaySound plays the effect mapped to id at pos. Unknown IDs and an
// exhausted pool both drop the sound without error.
func (m *Manager) PlaySound(id uint32, pos vec.Vec3) {
	if m == nil {
		return
	}
	if m.assets == nil || !m.assets.Has(id) {
		conlog.Printf("snd: sound id %d unmapped", id)
		return
	}
	m.play(m.assets.Filename(id), pos, m.assets.Volume(id), false)
}

// PlaySoundByName plays a file at pos. A bare name gets the .wav
// extension appended.
func (m *Manager) PlaySoundByName(name string, pos vec.Vec3) {
	if m == nil || name == "" {
		return
	}
	if filesystem.Ext(name) == "" {
		name += ".wav"
	}
	m.play(name, pos, 1, false)
}

// PlaySoundScaled plays a file at pos with an explicit base volume,
// used by emitters whose gain comes from zone data rather than the
// asset index.
func (m *Manager) PlaySoundScaled(name string, pos vec.Vec3, volume float32) {
	if m == nil || name == "" || volume <= 0 {
		return
	}
	if filesystem.Ext(name) == "" {
		name += ".wav"
	}
	m.play(name, pos, volume, false)
}

func (m *Manager) play(name string, pos vec.Vec3, baseVolume float32, loop bool) {
	buf, err := m.loadSound(name)
	if err != nil {
		conlog.Printf("snd: %s: %v", name, err)
		return
	}
	h, err := m.pool.Acquire()
	if err != nil {
		// Soft failure: all channels busy, drop the sound.
		return
	}
	gain := baseVolume * m.masterVolume.Load() * m.effectsVolume.Load()
	if err := h.PlayAt(buf, gain, loop, pos, m.lst); err != nil {
		conlog.Printf("snd: %s: %v", name, err)
		m.pool.Release(h)
	}
}

func (m *Manager) loadSound(name string) (*SoundBuffer, error) {
	if b, ok := m.cache.get(name); ok {
		return b, nil
	}
	data, err := m.store.ReadFile(name)
	if err != nil {
		return nil, err
	}
	b, err := DecodeBuffer(name, data)
	if err != nil {
		return nil, err
	}
	m.cache.put(name, b)
	return b, nil
}

// StopAllSounds silences every effect channel. Music is unaffected.
func (m *Manager) StopAllSounds() {
	if m == nil {
		return
	}
	m.pool.StopAll()
}

// ActiveSounds returns the number of playing effect channels.
func (m *Manager) ActiveSounds() int {
	if m == nil {
		return 0
	}
	return m.pool.ActiveCount()
}

// AmbientLoop is a continuously playing effect owned by the caller,
// used for weather beds.
type AmbientLoop interface {
	SetGain(gain float32)
	Pause()
	Resume()
	Stop()
}

type ambientLoop struct {
	m      *Manager
	h      *Handle
	mu     sync.Mutex
	gain   float32
	paused bool
}

func (a *ambientLoop) apply() {
	gain := a.gain
	if a.paused {
		gain = 0
	}
	scaled := gain * a.m.masterVolume.Load() * a.m.effectsVolume.Load()
	if err := a.h.SetGain(scaled); err != nil {
		conlog.Printf("snd: ambient loop: %v", err)
	}
}

func (a *ambientLoop) SetGain(gain float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gain = gain
	a.apply()
}

func (a *ambientLoop) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = true
	a.apply()
}

func (a *ambientLoop) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = false
	a.apply()
}

func (a *ambientLoop) Stop() {
	a.h.Stop()
	a.m.pool.Release(a.h)
}

// StartAmbientLoop starts name as a looping effect at zero gain; the
// caller fades it in via SetGain.
func (m *Manager) StartAmbientLoop(name string) (AmbientLoop, error) {
	if m == nil {
		return nil, errors.New("snd: not initialized")
	}
	if filesystem.Ext(name) == "" {
		name += ".wav"
	}
	buf, err := m.loadSound(name)
	if err != nil {
		return nil, err
	}
	h, err := m.pool.Acquire()
	if err != nil {
		return nil, err
	}
	if err := h.Play(buf, 0, true); err != nil {
		m.pool.Release(h)
		return nil, err
	}
	return &ambientLoop{m: m, h: h}, nil
}

// FindZoneMusic locates the music file for zone, following the shared
// track aliases, and returns its path. ok is false when no candidate
// file exists.
func (m *Manager) FindZoneMusic(zone string) (path string, ok bool) {
	if m == nil {
		return "", false
	}
	name := strings.ToLower(zone)
	if alias, aliased := zoneMusicAlias[name]; aliased {
		name = alias
	}
	for _, ext := range musicExtensions {
		p := filepath.Join(m.store.Root(), name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// PlayMusicFile starts path as the background track. track selects the
// subsong of a multi-track symbolic file.
func (m *Manager) PlayMusicFile(path string, loop bool, track int) bool {
	if m == nil {
		return false
	}
	m.music.SetVolume(m.masterVolume.Load() * m.musicVolume.Load())
	return m.music.Play(path, loop, track)
}

func (m *Manager) StopMusic(fadeSeconds float32) {
	if m == nil {
		return
	}
	m.music.Stop(fadeSeconds)
}

func (m *Manager) PauseMusic() {
	if m == nil {
		return
	}
	m.music.Pause()
}

func (m *Manager) ResumeMusic() {
	if m == nil {
		return
	}
	m.music.Resume()
}

func (m *Manager) IsMusicPlaying() bool {
	return m != nil && m.music.IsPlaying()
}

func (m *Manager) CurrentMusicFile() string {
	if m == nil {
		return ""
	}
	return m.music.CurrentFile()
}

// OnZoneChange handles a zone transition: effects stop, the new zone's
// music starts looped, or the old track fades out when the new zone
// has none. Re-entering the current zone is a no-op.
func (m *Manager) OnZoneChange(zone string) {
	if m == nil {
		return
	}
	lower := strings.ToLower(zone)
	m.mu.Lock()
	if lower == m.currentZone {
		m.mu.Unlock()
		return
	}
	m.currentZone = lower
	m.mu.Unlock()

	conlog.Printf("snd: zone change to %s", zone)
	m.StopAllSounds()
	if path, ok := m.FindZoneMusic(lower); ok {
		m.PlayMusicFile(path, true, 0)
	} else {
		m.music.Stop(zoneChangeFadeSeconds)
	}
}

func clampVolume(v float32) float32 {
	return vec.Clamp(0, v, 1)
}

func (m *Manager) SetMasterVolume(v float32) {
	if m == nil {
		return
	}
	m.masterVolume.Store(clampVolume(v))
	m.music.SetVolume(m.masterVolume.Load() * m.musicVolume.Load())
}

func (m *Manager) SetEffectsVolume(v float32) {
	if m == nil {
		return
	}
	m.effectsVolume.Store(clampVolume(v))
}

func (m *Manager) SetMusicVolume(v float32) {
	if m == nil {
		return
	}
	m.musicVolume.Store(clampVolume(v))
	m.music.SetVolume(m.masterVolume.Load() * m.musicVolume.Load())
}

func (m *Manager) MasterVolume() float32 {
	if m == nil {
		return 0
	}
	return m.masterVolume.Load()
}

// EnableLoopback switches a hardware engine to the loopback backend at
// runtime. All playing audio stops and outstanding handles go stale.
func (m *Manager) EnableLoopback() {
	if m == nil || m.dev.IsLoopback() {
		return
	}
	m.music.Reset()
	m.combat.reset()
	m.synth.Stop()
	m.pool.StopAll()
	m.dev.SwitchToLoopback()
	m.pool = NewPool(m.dev, poolSize)
}

// Combat exposes the combat stinger layer.
func (m *Manager) Combat() *CombatMusic {
	if m == nil {
		return nil
	}
	return m.combat
}

// SetOutput registers the loopback audio consumer.
func (m *Manager) SetOutput(fn OutputFunc) {
	if m == nil {
		return
	}
	m.dev.SetOutput(fn)
}

func (m *Manager) IsLoopbackMode() bool {
	return m != nil && m.dev.IsLoopback()
}

// Update runs the per-frame housekeeping: reclaiming channels whose
// sounds have finished.
func (m *Manager) Update() {
	if m == nil {
		return
	}
	m.pool.Reclaim()
}

// Shutdown stops playback and closes the device. Safe to call more
// than once.
func (m *Manager) Shutdown() {
	if m == nil {
		return
	}
	m.shutdown.Do(func() {
		m.music.Stop(0)
		m.combat.reset()
		m.synth.Stop()
		m.pool.StopAll()
		m.dev.Close()
		m.cache.clear()
	})
}
