package timer

import (
	"fmt"
	"time"
)

// Status strings shown on the panel's timer card.
const (
	StatusInactive = "Timer is inactive. Save the timer to activate."
	StatusOverride = "Timer disabled, manual control active"
)

// Describe returns the next-action line for the timer card.
func (e Entry) Describe(now time.Time) string {
	if !e.Enabled {
		if e.OverrideDisabled {
			return StatusOverride
		}
		return StatusInactive
	}

	action, at := e.NextAction(now)
	mode := "today"
	if e.Repeat == RepeatOnce {
		mode = "once"
	}
	return fmt.Sprintf("Next scheduled action: %s at %s (%s)", action, at.Clock12(), mode)
}

// Countdown returns the remaining time until the next action, or "" when disabled.
func (e Entry) Countdown(now time.Time) string {
	if !e.Enabled {
		return ""
	}

	action, _ := e.NextAction(now)
	secs := e.SecondsUntil(now)
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds until %s", hours, minutes, seconds, action)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds until %s", minutes, seconds, action)
	default:
		return fmt.Sprintf("%ds until %s", seconds, action)
	}
}
