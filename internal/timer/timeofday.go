package timer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned when a time-of-day string cannot be parsed.
var ErrInvalidTime = errors.New("invalid time of day")

const secondsPerDay = 24 * 60 * 60

// Match patterns like "22:15", "6:30"
var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// TimeOfDay is an hour and minute on the 24h clock, without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// At builds a TimeOfDay. It does not validate; use Valid for that.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// FromTime returns the hour and minute of t in t's location.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	matches := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	hour, _ := strconv.Atoi(matches[1])
	minute, _ := strconv.Atoi(matches[2])

	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t, nil
}

// Valid reports whether the hour and minute are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Seconds returns the offset from midnight in seconds.
func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60
}

// String formats as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Clock12 formats as "hh:mm AM/PM" for display.
func (t TimeOfDay) Clock12() string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("03:04 PM")
}

// secondsOfDay returns how far into its day t is, in seconds.
func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
