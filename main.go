// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eqaudio/gametime"
	"eqaudio/snd"
	"eqaudio/vec"
	"eqaudio/weather"
	"eqaudio/zone"
)

var (
	contentPath = flag.String("content", ".", "client data directory")
	zoneName    = flag.String("zone", "", "zone to load on start")
	loopback    = flag.Bool("loopback", false, "force the loopback output backend")
	soundFont   = flag.String("soundfont", "", "SoundFont path override")
	masterVol   = flag.Float64("volume", 1.0, "master volume 0..1")
)

func main() {
	flag.Parse()

	m, err := snd.New(snd.Config{
		ContentPath:   *contentPath,
		ForceLoopback: *loopback,
		SoundFontPath: *soundFont,
	})
	if err != nil {
		log.Fatalf("audio: %v", err)
	}
	defer m.Shutdown()
	m.SetMasterVolume(float32(*masterVol))

	clock := gametime.NewClock()
	zm := zone.NewManager(m, *contentPath)
	wm := weather.NewManager(m)

	if *zoneName != "" {
		m.OnZoneChange(*zoneName)
		zm.LoadZone(*zoneName)
		if path, ok := m.FindZoneMusic(*zoneName); ok {
			m.PlayMusicFile(path, true, 0)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	const tick = 50 * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	listener := vec.Vec3{}
	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
			dt := float32(tick.Seconds())
			m.SetListener(listener)
			zm.Update(dt, listener, clock.IsDay())
			wm.Update(dt, listener)
			m.Combat().Update(dt)
			m.Update()
		}
	}
}
