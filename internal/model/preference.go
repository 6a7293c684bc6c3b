package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Preference keys shared by every preferences backend.
const (
	PrefRemindersPaused = "reminders_paused"
	PrefReminderTime    = "reminder_time"
)

// Preference is a single key/value setting row.
type Preference struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string
	UpdatedAt time.Time
}

// ClockTime is a time of day in HH:MM.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses an HH:MM string.
func ParseClockTime(timeStr string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in %q", timeStr)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the clock time on the calendar date of day, in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	year, month, date := day.In(loc).Date()
	return time.Date(year, month, date, c.Hour, c.Minute, 0, 0, loc)
}
