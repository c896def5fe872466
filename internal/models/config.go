package models

import (
	"fmt"
	"time"
)

const (
	MinActivityLevel = 1
	MaxActivityLevel = 10
)

// Config is owned by its bot and replaced wholesale on update
type Config struct {
	ActivityLevel int      `json:"activityLevel"`
	Keywords      []string `json:"keywords"`
	Schedule      Schedule `json:"schedule"`
	RespectLimits bool     `json:"respectLimits"`
}

func (c Config) Clone() Config {
	c.Keywords = append([]string(nil), c.Keywords...)
	return c
}

type ActivityBucket string

const (
	ActivityLow    ActivityBucket = "Low"
	ActivityMedium ActivityBucket = "Medium"
	ActivityHigh   ActivityBucket = "High"
)

func BucketFor(level int) ActivityBucket {
	switch {
	case level <= 3:
		return ActivityLow
	case level <= 7:
		return ActivityMedium
	default:
		return ActivityHigh
	}
}

// Schedule is a daily window of zero-padded HH:MM times. End before start wraps midnight.
type Schedule struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

const minutesPerDay = 24 * 60

// ParseClock parses a 24h HH:MM time into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func (s Schedule) bounds() (int, int, error) {
	start, err := ParseClock(s.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(s.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Contains reports whether the time of day of t falls in [start, end).
// A window with start == end is empty.
func (s Schedule) Contains(t time.Time) (bool, error) {
	start, end, err := s.bounds()
	if err != nil {
		return false, err
	}
	m := t.Hour()*60 + t.Minute()
	if start <= end {
		return m >= start && m < end, nil
	}
	return m >= start || m < end, nil
}

func (s Schedule) Duration() (time.Duration, error) {
	start, end, err := s.bounds()
	if err != nil {
		return 0, err
	}
	span := end - start
	if span < 0 {
		span += minutesPerDay
	}
	return time.Duration(span) * time.Minute, nil
}
