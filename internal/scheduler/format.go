package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/dokzlo13/smartpanel/internal/timer"
)

// FormatTimers renders a table of timers and their next action at now.
func FormatTimers(entries []timer.Entry, now time.Time) string {
	if len(entries) == 0 {
		return "No timers configured\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Timers at %s (timezone: %s)\n", now.Format("2006-01-02 15:04:05"), now.Location()))
	sb.WriteString(fmt.Sprintf("%-3s %-18s %-14s %-6s %-6s %-13s %s\n", "", "APPLIANCE", "NAME", "ON", "OFF", "REPEAT", "NEXT"))
	sb.WriteString(strings.Repeat("-", 100) + "\n")

	for _, e := range entries {
		status := " "
		if e.Enabled {
			status = "●"
		}

		next := e.Describe(now)
		if e.Enabled {
			next = e.Countdown(now)
		}

		sb.WriteString(fmt.Sprintf("%-3s %-18s %-14s %-6s %-6s %-13s %s\n",
			status, e.ApplianceID, e.Name, e.OnTime, e.OffTime, e.Repeat, next))
	}

	return sb.String()
}
