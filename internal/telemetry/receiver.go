// Package telemetry tracks the live current readings reported over MQTT.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/eventbus"
)

// DefaultTopic carries {"current": <amps>, "total": <kWh>} readings.
const DefaultTopic = "home/light/current"

// Reading is one sensor report.
type Reading struct {
	Current    float64   `json:"current"`
	Total      float64   `json:"total"`
	ReceivedAt time.Time `json:"received_at"`
}

// Subscriber is the part of the MQTT client the receiver needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte))
}

// Receiver keeps the latest reading and republishes each one on the bus.
type Receiver struct {
	topic string
	bus   *eventbus.Bus
	now   func() time.Time

	mu     sync.RWMutex
	latest Reading
	seen   bool
}

// NewReceiver creates a receiver for topic (DefaultTopic when empty). bus may be nil.
func NewReceiver(topic string, bus *eventbus.Bus) *Receiver {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Receiver{topic: topic, bus: bus, now: time.Now}
}

// Start subscribes to the telemetry topic.
func (r *Receiver) Start(sub Subscriber) {
	sub.Subscribe(r.topic, 0, r.handle)
	log.Info().Str("topic", r.topic).Msg("Telemetry receiver started")
}

func (r *Receiver) handle(topic string, payload []byte) {
	reading, err := r.decode(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Dropping telemetry message")
		return
	}

	r.mu.Lock()
	r.latest = reading
	r.seen = true
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(eventbus.EventTypeTelemetry, map[string]any{
			"current": reading.Current,
			"total":   reading.Total,
		})
	}
}

func (r *Receiver) decode(payload []byte) (Reading, error) {
	var msg struct {
		Current *float64 `json:"current"`
		Total   *float64 `json:"total"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Reading{}, fmt.Errorf("decode telemetry: %w", err)
	}
	if msg.Current == nil {
		return Reading{}, fmt.Errorf("decode telemetry: missing current")
	}

	reading := Reading{Current: *msg.Current, ReceivedAt: r.now()}
	if msg.Total != nil {
		reading.Total = *msg.Total
	}
	return reading, nil
}

// Latest returns the most recent reading and whether one has arrived yet.
func (r *Receiver) Latest() (Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.seen
}
