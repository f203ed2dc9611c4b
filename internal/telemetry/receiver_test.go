package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/dokzlo13/smartpanel/internal/eventbus"
)

type fakeSubscriber struct {
	topic   string
	handler func(string, []byte)
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler func(string, []byte)) {
	f.topic, f.handler = topic, handler
}

func TestReceiverHandle(t *testing.T) {
	at := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		payload  string
		wantSeen bool
		want     Reading
	}{
		{name: "full reading", payload: `{"current": 1.25, "total": 3.5}`, wantSeen: true, want: Reading{Current: 1.25, Total: 3.5, ReceivedAt: at}},
		{name: "current only", payload: `{"current": 0.4}`, wantSeen: true, want: Reading{Current: 0.4, ReceivedAt: at}},
		{name: "missing current", payload: `{"total": 3.5}`},
		{name: "not json", payload: `1.25A`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReceiver("", nil)
			r.now = func() time.Time { return at }

			r.handle(DefaultTopic, []byte(tt.payload))

			got, seen := r.Latest()
			if seen != tt.wantSeen {
				t.Fatalf("Latest() seen = %v, want %v", seen, tt.wantSeen)
			}
			if got != tt.want {
				t.Errorf("Latest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReceiverPublishesEvents(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close(context.Background())

	got := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.EventTypeTelemetry, func(e eventbus.Event) { got <- e })

	sub := &fakeSubscriber{}
	r := NewReceiver("sensors/current", bus)
	r.Start(sub)
	if sub.topic != "sensors/current" {
		t.Fatalf("subscribed to %q, want sensors/current", sub.topic)
	}

	sub.handler(sub.topic, []byte(`{"current": 2, "total": 10}`))

	select {
	case e := <-got:
		if e.Data["current"] != 2.0 || e.Data["total"] != 10.0 {
			t.Errorf("event data = %v", e.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("telemetry event not published")
	}
}
