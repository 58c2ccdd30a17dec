// SPDX-License-Identifier: GPL-2.0-or-later

package gametime

import (
	"testing"
	"time"
)

func fixedClock(t *testing.T) (*Clock, *time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewClock()
	c.start = now
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSetAndRead(t *testing.T) {
	c, _ := fixedClock(t)
	tests := []struct {
		hour, minute int
		day          bool
	}{
		{0, 0, false},
		{5, 59, false},
		{6, 0, true},
		{12, 30, true},
		{18, 59, true},
		{19, 0, false},
		{23, 59, false},
	}
	for _, tt := range tests {
		c.Set(tt.hour, tt.minute)
		if got := c.Hour(); got != tt.hour {
			t.Errorf("Set(%d,%d): Hour = %d", tt.hour, tt.minute, got)
		}
		if got := c.Minute(); got != tt.minute {
			t.Errorf("Set(%d,%d): Minute = %d", tt.hour, tt.minute, got)
		}
		if got := c.IsDay(); got != tt.day {
			t.Errorf("Set(%d,%d): IsDay = %v", tt.hour, tt.minute, got)
		}
	}
}

func TestClockAdvances(t *testing.T) {
	c, now := fixedClock(t)
	c.Set(6, 0)

	// 3 real minutes is one game hour.
	*now = now.Add(3 * time.Minute)
	if got := c.Hour(); got != 7 {
		t.Errorf("after 3 real minutes: Hour = %d", got)
	}

	// 72 real minutes wraps a full game day.
	*now = now.Add(72 * time.Minute)
	if got := c.Hour(); got != 7 {
		t.Errorf("after a full game day: Hour = %d", got)
	}
}

func TestNightToDayRollover(t *testing.T) {
	c, now := fixedClock(t)
	c.Set(5, 0)
	if c.IsDay() {
		t.Fatal("5:00 is day")
	}
	// One game hour later it is 6:00.
	*now = now.Add(3 * time.Minute)
	if !c.IsDay() {
		t.Error("6:00 is night")
	}
}
