package scheduler

import "time"

// Clock supplies wall-clock time. Only the location and time of day matter to entries.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock loads timezone, falling back to the host's local zone.
func NewSystemClock(timezone string) (SystemClock, error) {
	if timezone == "" || timezone == "Local" {
		return SystemClock{Location: time.Local}, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return SystemClock{Location: time.Local}, err
	}
	return SystemClock{Location: loc}, nil
}

// Now returns the current time in the clock's location.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }
