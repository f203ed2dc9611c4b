package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dokzlo13/smartpanel/internal/ledger"
)

func TestFormatPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"nil", nil, "-"},
		{"empty", map[string]any{}, "-"},
		{"sorted", map[string]any{"state": "ON", "reason": "offline"}, "reason=offline state=ON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPayload(tt.payload); got != tt.want {
				t.Errorf("formatPayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	err := printHistory(&buf, []*ledger.Entry{
		{
			EventType:   ledger.EventTimerFired,
			Timestamp:   time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
			ApplianceID: "living_light_1",
			Source:      "timer",
			Payload:     map[string]any{"action": "ON"},
		},
		{EventType: ledger.EventTimerSaved},
	})
	if err != nil {
		t.Fatalf("printHistory() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("printHistory() lines = %d, want 3\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "living_light_1") || !strings.Contains(lines[1], "action=ON") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "timer_saved") {
		t.Errorf("row = %q", lines[2])
	}
}
