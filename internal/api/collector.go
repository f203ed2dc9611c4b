package api

import (
	"sync"
	"time"

	"github.com/dokzlo13/smartpanel/internal/eventbus"
)

// LatestCollector coalesces bursts of events: the first event starts an
// interval, and when it elapses only the most recent event is flushed.
type LatestCollector struct {
	mu       sync.Mutex
	latest   eventbus.Event
	interval time.Duration
	timer    *time.Timer
	started  bool
	closed   bool
	onFlush  func(eventbus.Event)
}

// NewLatestCollector creates a collector that flushes at most once per interval.
func NewLatestCollector(interval time.Duration, onFlush func(eventbus.Event)) *LatestCollector {
	return &LatestCollector{
		interval: interval,
		onFlush:  onFlush,
	}
}

// Add records an event and starts the interval timer if not already started.
// Events added after Close are dropped.
func (c *LatestCollector) Add(e eventbus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.latest = e
	if !c.started {
		c.timer = time.AfterFunc(c.interval, c.flush)
		c.started = true
	}
}

func (c *LatestCollector) flush() {
	c.mu.Lock()
	e := c.latest
	c.started = false
	c.mu.Unlock()

	c.onFlush(e)
}

// Close stops a pending flush and ignores further events
func (c *LatestCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}
