// Package schedule implements the day state store for cute-schedule: the
// day-keyed task buckets, the pure task operations over them, and the derived
// progress values.
package schedule

import (
	"fmt"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
)

// dayKeyLayout is the canonical DayKey format. Zero-padded, so keys compare
// lexicographically in chronological order.
const dayKeyLayout = "2006-01-02"

// hourKeyLayout is the canonical HourKey format, a sort/group key at 30- or
// 60-minute granularity. Tasks have no explicit end times.
const hourKeyLayout = "15:04"

// DefaultMoveHour is where a task lands when moved to the next day.
const DefaultMoveHour = "09:00"

// FormatDayKey returns the canonical DayKey for t in t's location.
func FormatDayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// ParseDayKey parses a canonical DayKey into a date at midnight in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dayKeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidDayKey, key)
	}
	return t, nil
}

// IsValidDayKey reports whether key is a canonical DayKey.
func IsValidDayKey(key string) bool {
	_, err := time.Parse(dayKeyLayout, key)
	return err == nil && len(key) == len(dayKeyLayout)
}

// NextDayKey returns the DayKey of the calendar day after key.
func NextDayKey(key string) (string, error) {
	t, err := ParseDayKey(key, time.UTC)
	if err != nil {
		return "", err
	}
	return FormatDayKey(t.AddDate(0, 0, 1)), nil
}

// PrevDayKey returns the DayKey of the calendar day before key.
func PrevDayKey(key string) (string, error) {
	t, err := ParseDayKey(key, time.UTC)
	if err != nil {
		return "", err
	}
	return FormatDayKey(t.AddDate(0, 0, -1)), nil
}

// TodayKey returns the DayKey for now in loc.
func TodayKey(now time.Time, loc *time.Location) string {
	return FormatDayKey(now.In(loc))
}

// ParseHourKey parses an HH:MM hour key into hour and minute components.
func ParseHourKey(key string) (hour, minute int, err error) {
	t, perr := time.Parse(hourKeyLayout, key)
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: %q", models.ErrInvalidHourKey, key)
	}
	return t.Hour(), t.Minute(), nil
}

// IsValidHourKey reports whether key is a canonical HourKey.
func IsValidHourKey(key string) bool {
	_, _, err := ParseHourKey(key)
	return err == nil
}

// SlotTime resolves a (DayKey, HourKey) pair to a wall-clock time in loc.
func SlotTime(dayKey, hourKey string, loc *time.Location) (time.Time, error) {
	day, err := ParseDayKey(dayKey, loc)
	if err != nil {
		return time.Time{}, err
	}
	h, m, err := ParseHourKey(hourKey)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), nil
}
