package api

import (
	"context"
	"testing"
	"time"

	"github.com/dokzlo13/smartpanel/internal/eventbus"
)

func TestServerRunStopsOnCancel(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close(context.Background())

	srv := NewServer("127.0.0.1:0", Deps{Bus: bus})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()

	bus.Publish(eventbus.EventTypeTelemetry, map[string]any{"current": 1.0})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	// readings arriving after shutdown are dropped by the closed collector
	bus.Publish(eventbus.EventTypeTelemetry, map[string]any{"current": 2.0})
}
