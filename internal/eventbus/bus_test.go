package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewWithConfig(2, 8)
	defer bus.Close(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	var got []string
	for i := 0; i < 2; i++ {
		bus.Subscribe(EventTypeTimer, func(e Event) {
			defer wg.Done()
			mu.Lock()
			got = append(got, e.String("appliance_id"))
			mu.Unlock()
		})
	}
	bus.Subscribe(EventTypeTelemetry, func(Event) {
		t.Error("telemetry handler should not receive timer events")
	})

	if !bus.Publish(EventTypeTimer, map[string]any{"appliance_id": "living_light_1"}) {
		t.Fatal("Publish() = false, want true")
	}

	waitTimeout(t, &wg)
	if len(got) != 2 || got[0] != "living_light_1" || got[1] != "living_light_1" {
		t.Errorf("handlers received %v", got)
	}
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	bus := NewWithConfig(1, 8)
	defer bus.Close(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(EventTypeActuation, func(e Event) {
		if e.Bool("boom") {
			panic("handler failure")
		}
		wg.Done()
	})

	bus.Publish(EventTypeActuation, map[string]any{"boom": true})
	bus.Publish(EventTypeActuation, map[string]any{"boom": false})
	waitTimeout(t, &wg)
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	bus := NewWithConfig(1, 1)
	defer bus.Close(context.Background())

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.Subscribe(EventTypeActuation, func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	bus.Publish(EventTypeActuation, nil) // taken by the worker
	<-started
	bus.Publish(EventTypeActuation, nil) // fills the queue
	if bus.Publish(EventTypeActuation, nil) {
		t.Error("Publish() on a full queue = true, want false")
	}
	close(release)
}

func TestPublishAfterClose(t *testing.T) {
	bus := New()
	bus.Subscribe(EventTypeTimer, func(Event) {})
	bus.Close(context.Background())

	if bus.Publish(EventTypeTimer, nil) {
		t.Error("Publish() after Close = true, want false")
	}
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handlers")
	}
}
