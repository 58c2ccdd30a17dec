// SPDX-License-Identifier: GPL-2.0-or-later

// Package gametime tracks the in-game clock. One game day passes in 72
// real minutes; the day/night flag drives emitter and music variant
// selection.
package gametime

import "time"

// realMinutesPerDay is the classic 72:1 compression: 3 real minutes
// per game hour.
const realMinutesPerDay = 72

// Day runs from 6:00 to 18:59 game time.
const (
	dayStartHour = 6
	dayEndHour   = 19
)

type Clock struct {
	start  time.Time
	offset time.Duration // game-time offset applied by Set
	now    func() time.Time
}

func NewClock() *Clock {
	return &Clock{start: time.Now(), now: time.Now}
}

// gameMinutes returns minutes since game midnight.
func (c *Clock) gameMinutes() int {
	elapsed := c.now().Sub(c.start) + c.offset
	gameMin := int(elapsed.Minutes() * (24 * 60 / realMinutesPerDay))
	gameMin %= 24 * 60
	if gameMin < 0 {
		gameMin += 24 * 60
	}
	return gameMin
}

// Hour returns the game hour in [0,24).
func (c *Clock) Hour() int {
	return c.gameMinutes() / 60
}

// Minute returns the minute of the game hour.
func (c *Clock) Minute() int {
	return c.gameMinutes() % 60
}

// IsDay reports whether the game clock is in the daytime window.
func (c *Clock) IsDay() bool {
	h := c.Hour()
	return h >= dayStartHour && h < dayEndHour
}

// Set jumps the game clock to the given hour and minute, as the
// server's time-of-day packet does.
func (c *Clock) Set(hour, minute int) {
	c.start = c.now()
	game := time.Duration(hour*60+minute) * time.Minute
	c.offset = game * realMinutesPerDay / (24 * 60)
}
