package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/smartpanel/internal/eventbus"
	"github.com/dokzlo13/smartpanel/internal/ledger"
)

type recorded struct {
	eventType ledger.EventType
	appliance string
	source    string
	payload   map[string]any
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (f *fakeRecorder) Append(eventType ledger.EventType, applianceID, source string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recorded{eventType, applianceID, source, payload})
	return nil
}

func (f *fakeRecorder) all() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.entries...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *FakeDriver, *fakeRecorder, *eventbus.Bus) {
	t.Helper()
	driver := &FakeDriver{}
	router := NewRouter()
	router.Register(Appliance{ID: "living_light_1"}, driver, "home/light/light_1")
	router.Register(Appliance{ID: "living_fan_1"}, nil, "")

	bus := eventbus.New()
	t.Cleanup(func() { bus.Close(context.Background()) })

	rec := &fakeRecorder{}
	return NewDispatcher(router, bus, rec, 100, time.Second), driver, rec, bus
}

func TestDeliver(t *testing.T) {
	tests := []struct {
		name      string
		appliance string
		offline   bool
		driverErr error
		wantErr   error
		wantEvent ledger.EventType
	}{
		{name: "sent", appliance: "living_light_1", wantEvent: ledger.EventActuationSent},
		{name: "unmapped", appliance: "living_fan_1", wantEvent: ledger.EventActuationFailed},
		{name: "offline", appliance: "living_light_1", offline: true, wantErr: ErrNotConnected, wantEvent: ledger.EventActuationFailed},
		{name: "driver error", appliance: "living_light_1", driverErr: errors.New("boom"), wantEvent: ledger.EventActuationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, driver, rec, _ := newTestDispatcher(t)
			driver.Offline = tt.offline
			driver.Err = tt.driverErr

			err := d.Deliver(context.Background(), tt.appliance, On, SourceManual)
			if tt.wantEvent == ledger.EventActuationSent && err != nil {
				t.Errorf("Deliver() error = %v", err)
			}
			if tt.wantEvent == ledger.EventActuationFailed && err == nil {
				t.Error("Deliver() error = nil, want failure")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Deliver() error = %v, want %v", err, tt.wantErr)
			}

			got := rec.all()
			if len(got) != 1 || got[0].eventType != tt.wantEvent {
				t.Fatalf("recorded %+v, want one %s", got, tt.wantEvent)
			}
			if got[0].source != SourceManual || got[0].payload["state"] != "ON" {
				t.Errorf("recorded %+v, want manual ON", got[0])
			}
		})
	}
}

func TestSendDeliversThroughBus(t *testing.T) {
	d, driver, rec, _ := newTestDispatcher(t)
	d.Start(context.Background())

	d.Send("living_light_1", On)
	d.WithSource(SourceManual).Send("living_light_1", Off)

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	calls := driver.Calls()
	if len(calls) != 2 {
		t.Fatalf("driver got %d calls, want 2", len(calls))
	}

	sources := map[string]bool{}
	for _, r := range rec.all() {
		if r.eventType != ledger.EventActuationSent {
			t.Errorf("recorded %s, want %s", r.eventType, ledger.EventActuationSent)
		}
		sources[r.source] = true
	}
	if !sources[SourceTimer] || !sources[SourceManual] {
		t.Errorf("sources = %v, want timer and manual", sources)
	}
}
