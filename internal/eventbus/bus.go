// Package eventbus routes in-process events to subscribers through a bounded worker pool.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeActuation EventType = "actuation" // command waiting to be delivered to a transport
	EventTypeTimer     EventType = "timer"     // timer entry saved, cancelled, fired or disabled
	EventTypeTelemetry EventType = "telemetry" // sensor reading from the broker
)

// Default configuration
const (
	DefaultWorkerCount = 2
	DefaultQueueSize   = 64
)

// Event represents an event in the system
type Event struct {
	Type EventType
	At   time.Time
	Data map[string]any
}

// String returns a string field of the payload, or "" if missing.
func (e Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Bool returns a bool field of the payload, or false if missing.
func (e Event) Bool(key string) bool {
	b, _ := e.Data[key].(bool)
	return b
}

// Handler is a function that handles events
type Handler func(Event)

type work struct {
	event   Event
	handler Handler
}

// Bus fans events out to subscribers on a fixed set of workers.
// Publish never blocks; when the queue is full the event is dropped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	workQueue chan work
	wg        sync.WaitGroup

	// closing is closed before workQueue so publishers never send on a closed channel
	closing   chan struct{}
	closeOnce sync.Once
	closeMu   sync.RWMutex
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a new event bus with custom worker count and queue size
func NewWithConfig(workerCount, queueSize int) *Bus {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	b := &Bus{
		handlers:  make(map[EventType][]Handler),
		workQueue: make(chan work, queueSize),
		closing:   make(chan struct{}),
	}

	for i := 0; i < workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus started")
	return b
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()

	for w := range b.workQueue {
		b.run(id, w)
	}
}

func (b *Bus) run(id int, w work) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event_type", string(w.event.Type)).
				Int("worker", id).
				Msg("Event handler panicked")
		}
	}()
	w.handler(w.event)
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish queues the event for every subscribed handler and reports whether
// all of them were queued.
func (b *Bus) Publish(eventType EventType, data map[string]any) bool {
	event := Event{Type: eventType, At: time.Now(), Data: data}

	b.mu.RLock()
	handlers := b.handlers[eventType]
	b.mu.RUnlock()

	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	queued := true
	for _, handler := range handlers {
		select {
		case <-b.closing:
			log.Warn().Str("event_type", string(eventType)).Msg("Event bus closing, dropping event")
			return false
		default:
		}

		select {
		case b.workQueue <- work{event: event, handler: handler}:
		default:
			log.Warn().Str("event_type", string(eventType)).Msg("Event bus queue full, dropping event")
			queued = false
		}
	}
	return queued
}

// Close stops accepting events, drains the queue and waits for the workers
// until ctx expires.
func (b *Bus) Close(ctx context.Context) {
	b.closeOnce.Do(func() {
		close(b.closing)

		// wait for in-flight Publish calls before closing the queue
		b.closeMu.Lock()
		close(b.workQueue)
		b.closeMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus workers stopped")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
