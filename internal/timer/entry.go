// Package timer holds the per-appliance ON/OFF timer entry and its derived queries.
// Entries are plain data; firing and persistence live in the scheduler and store packages.
package timer

import (
	"errors"
	"fmt"
	"time"
)

// Action is a command a timer can emit.
type Action string

const (
	ActionNone Action = ""
	ActionOn   Action = "ON"
	ActionOff  Action = "OFF"
)

// RepeatMode controls whether a timer re-arms every day.
type RepeatMode string

const (
	RepeatDaily RepeatMode = "daily_repeat"
	RepeatOnce  RepeatMode = "one_time"
)

// ParseRepeatMode accepts the persisted names. The empty string means daily.
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch RepeatMode(s) {
	case RepeatDaily, "":
		return RepeatDaily, true
	case RepeatOnce:
		return RepeatOnce, true
	default:
		return RepeatDaily, false
	}
}

// MaxDurationMinutes bounds the auto-off duration.
const MaxDurationMinutes = 240

// Defaults applied on creation and on Reset.
var (
	DefaultOnTime  = At(18, 0)
	DefaultOffTime = At(22, 0)
)

// Firing records the last action an entry emitted and the minute it was emitted in.
// It is runtime-only and never persisted.
type Firing struct {
	Action Action
	Minute time.Time
}

// Matches reports whether action already fired during the minute containing now.
func (f Firing) Matches(action Action, now time.Time) bool {
	return f.Action == action && f.Minute.Equal(MinuteOf(now))
}

// Entry is one appliance's timer.
type Entry struct {
	ApplianceID string
	Name        string

	OnTime          TimeOfDay
	OffTime         TimeOfDay
	Repeat          RepeatMode
	Enabled         bool
	DurationMinutes int  // reserved for auto-off, no firing behavior yet
	PowerSaving     bool // advisory, persisted only

	LastFired Firing
	// OverrideDisabled is set when a manual toggle switched the timer off.
	// Display only; cleared by Save and Reset.
	OverrideDisabled bool
}

// NewEntry returns a disabled entry with default times.
func NewEntry(applianceID, name string) Entry {
	e := Entry{ApplianceID: applianceID, Name: name}
	e.Reset()
	return e
}

// NextAction returns ON before the ON time, OFF before the OFF time and ON
// again after both. Only the time of day of now is used, so an overnight pair
// (OFF earlier than ON) reports ON until the ON time has passed.
func (e Entry) NextAction(now time.Time) (Action, TimeOfDay) {
	cur := secondsOfDay(now)
	switch {
	case cur < e.OnTime.Seconds():
		return ActionOn, e.OnTime
	case cur < e.OffTime.Seconds():
		return ActionOff, e.OffTime
	default:
		return ActionOn, e.OnTime
	}
}

// SecondsUntil returns the time until NextAction, in [0, 86400).
func (e Entry) SecondsUntil(now time.Time) int {
	_, at := e.NextAction(now)
	d := (at.Seconds() - secondsOfDay(now)) % secondsPerDay
	if d < 0 {
		d += secondsPerDay
	}
	return d
}

// DueAction returns the action whose time matches the minute of now.
// ON is checked before OFF.
func (e Entry) DueAction(now time.Time) Action {
	cur := FromTime(now)
	if cur == e.OnTime {
		return ActionOn
	}
	if cur == e.OffTime {
		return ActionOff
	}
	return ActionNone
}

// Validate checks the fields a tick relies on.
func (e Entry) Validate() error {
	if e.ApplianceID == "" {
		return errors.New("missing appliance id")
	}
	if !e.OnTime.Valid() {
		return fmt.Errorf("on time %s: %w", e.OnTime, ErrInvalidTime)
	}
	if !e.OffTime.Valid() {
		return fmt.Errorf("off time %s: %w", e.OffTime, ErrInvalidTime)
	}
	if _, ok := ParseRepeatMode(string(e.Repeat)); !ok {
		return fmt.Errorf("unknown repeat mode %q", e.Repeat)
	}
	return nil
}

// Activate commits user-edited settings and enables the timer.
// On error the entry is left unchanged.
func (e *Entry) Activate(s Settings) error {
	onTime, err := ParseTimeOfDay(s.OnTime)
	if err != nil {
		return fmt.Errorf("on time: %w", err)
	}
	offTime, err := ParseTimeOfDay(s.OffTime)
	if err != nil {
		return fmt.Errorf("off time: %w", err)
	}
	repeat, ok := ParseRepeatMode(string(s.RepeatMode))
	if !ok {
		return fmt.Errorf("unknown repeat mode %q", s.RepeatMode)
	}
	if s.DurationMinutes < 0 || s.DurationMinutes > MaxDurationMinutes {
		return fmt.Errorf("duration must be between 0 and %d minutes", MaxDurationMinutes)
	}

	e.OnTime = onTime
	e.OffTime = offTime
	e.Repeat = repeat
	e.DurationMinutes = s.DurationMinutes
	e.PowerSaving = s.PowerSaving
	e.Enabled = true
	e.OverrideDisabled = false
	e.LastFired = Firing{}
	return nil
}

// Reset restores defaults and disables the timer.
func (e *Entry) Reset() {
	e.OnTime = DefaultOnTime
	e.OffTime = DefaultOffTime
	e.Repeat = RepeatDaily
	e.DurationMinutes = 0
	e.PowerSaving = false
	e.Enabled = false
	e.OverrideDisabled = false
	e.LastFired = Firing{}
}

// Override disables an enabled timer because of a manual toggle.
// Time fields are untouched. Reports whether anything changed.
func (e *Entry) Override() bool {
	if !e.Enabled {
		return false
	}
	e.Enabled = false
	e.OverrideDisabled = true
	return true
}

// Restore applies persisted settings. Invalid times fall back to the default pair;
// the returned error describes what was repaired and is informational.
func (e *Entry) Restore(s Settings) error {
	var errs []error

	onTime, onErr := ParseTimeOfDay(s.OnTime)
	offTime, offErr := ParseTimeOfDay(s.OffTime)
	if onErr != nil || offErr != nil {
		onTime, offTime = DefaultOnTime, DefaultOffTime
		errs = append(errs, fmt.Errorf("times reset to defaults: %w", errors.Join(onErr, offErr)))
	}

	repeat, ok := ParseRepeatMode(string(s.RepeatMode))
	if !ok {
		errs = append(errs, fmt.Errorf("unknown repeat mode %q, using %s", s.RepeatMode, RepeatDaily))
	}

	duration := s.DurationMinutes
	if duration < 0 || duration > MaxDurationMinutes {
		duration = min(max(duration, 0), MaxDurationMinutes)
		errs = append(errs, fmt.Errorf("duration %d clamped to %d", s.DurationMinutes, duration))
	}

	e.OnTime = onTime
	e.OffTime = offTime
	e.Repeat = repeat
	e.DurationMinutes = duration
	e.PowerSaving = s.PowerSaving
	e.Enabled = s.Enabled
	e.OverrideDisabled = false
	e.LastFired = Firing{}

	return errors.Join(errs...)
}

// Settings returns the persisted form of the entry.
func (e Entry) Settings() Settings {
	return Settings{
		Enabled:         e.Enabled,
		OnTime:          e.OnTime.String(),
		OffTime:         e.OffTime.String(),
		RepeatMode:      e.Repeat,
		DurationMinutes: e.DurationMinutes,
		PowerSaving:     e.PowerSaving,
	}
}

// MinuteOf returns t with seconds and below dropped, in t's location.
func MinuteOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
