package timer

import (
	"errors"
	"testing"
	"time"
)

func clock(h, m, s int) time.Time {
	return time.Date(2024, 3, 10, h, m, s, 0, time.UTC)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"18:00", At(18, 0), false},
		{"6:05", At(6, 5), false},
		{" 00:00 ", At(0, 0), false},
		{"23:59", At(23, 59), false},
		{"24:00", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"1200", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
		{"06:00 PM", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTime) {
				t.Errorf("ParseTimeOfDay(%q) error = %v, want ErrInvalidTime", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestTimeOfDayFormatting(t *testing.T) {
	if got := At(6, 5).String(); got != "06:05" {
		t.Errorf("String() = %q, want 06:05", got)
	}
	if got := At(18, 0).Clock12(); got != "06:00 PM" {
		t.Errorf("Clock12() = %q, want 06:00 PM", got)
	}
	if got := At(0, 30).Clock12(); got != "12:30 AM" {
		t.Errorf("Clock12() = %q, want 12:30 AM", got)
	}
}

func TestDescribe(t *testing.T) {
	e := NewEntry("x", "x")
	now := clock(17, 0, 0)

	if got := e.Describe(now); got != StatusInactive {
		t.Errorf("Describe() = %q, want inactive", got)
	}
	if got := e.Countdown(now); got != "" {
		t.Errorf("Countdown() = %q, want empty", got)
	}

	e.Enabled = true
	if got, want := e.Describe(now), "Next scheduled action: ON at 06:00 PM (today)"; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
	if got, want := e.Countdown(now), "1h 0m 0s until ON"; got != want {
		t.Errorf("Countdown() = %q, want %q", got, want)
	}
	if got, want := e.Countdown(clock(17, 58, 30)), "1m 30s until ON"; got != want {
		t.Errorf("Countdown() = %q, want %q", got, want)
	}
	if got, want := e.Countdown(clock(17, 59, 45)), "15s until ON"; got != want {
		t.Errorf("Countdown() = %q, want %q", got, want)
	}

	e.Repeat = RepeatOnce
	if got, want := e.Describe(clock(19, 0, 0)), "Next scheduled action: OFF at 10:00 PM (once)"; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}

	e.Override()
	if got := e.Describe(now); got != StatusOverride {
		t.Errorf("Describe() after override = %q, want %q", got, StatusOverride)
	}
}
