package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/smartpanel/internal/eventbus"
	"github.com/dokzlo13/smartpanel/internal/ledger"
)

// Command sources recorded with every delivery.
const (
	SourceTimer  = "timer"
	SourceManual = "manual"
)

// Recorder receives delivery outcomes. *ledger.Ledger satisfies it.
type Recorder interface {
	Append(eventType ledger.EventType, applianceID, source string, payload map[string]any) error
}

// Dispatcher is the Sender handed to the scheduler and API. Send only queues an
// actuation event; bus workers pace, route and deliver it.
type Dispatcher struct {
	router   *Router
	bus      *eventbus.Bus
	limiter  *rate.Limiter
	recorder Recorder
	timeout  time.Duration

	ctx context.Context
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(router *Router, bus *eventbus.Bus, recorder Recorder, rateLimitRPS float64, timeout time.Duration) *Dispatcher {
	if rateLimitRPS <= 0 {
		rateLimitRPS = 10.0
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	burst := max(int(rateLimitRPS), 1)

	return &Dispatcher{
		router:   router,
		bus:      bus,
		limiter:  rate.NewLimiter(rate.Limit(rateLimitRPS), burst),
		recorder: recorder,
		timeout:  timeout,
		ctx:      context.Background(),
	}
}

// Start subscribes the delivery handler. ctx bounds every delivery.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx = ctx
	d.bus.Subscribe(eventbus.EventTypeActuation, d.handle)
	log.Info().Msg("Actuation dispatcher started")
}

// Send queues a timer-originated command.
func (d *Dispatcher) Send(applianceID string, state State) {
	d.enqueue(applianceID, state, SourceTimer)
}

// WithSource returns a Sender that tags commands with source.
func (d *Dispatcher) WithSource(source string) Sender {
	return SenderFunc(func(applianceID string, state State) {
		d.enqueue(applianceID, state, source)
	})
}

func (d *Dispatcher) enqueue(applianceID string, state State, source string) {
	queued := d.bus.Publish(eventbus.EventTypeActuation, map[string]any{
		"appliance": applianceID,
		"state":     string(state),
		"source":    source,
	})
	if !queued {
		log.Warn().Str("appliance", applianceID).Str("state", string(state)).Msg("Actuation command dropped")
		d.record(ledger.EventActuationFailed, applianceID, source, state, "queue full")
	}
}

func (d *Dispatcher) handle(e eventbus.Event) {
	applianceID := e.String("appliance")
	source := e.String("source")
	state, err := ParseState(e.String("state"))
	if err != nil {
		log.Error().Err(err).Str("appliance", applianceID).Msg("Invalid actuation event")
		return
	}

	if err := d.Deliver(d.ctx, applianceID, state, source); err != nil {
		log.Warn().Err(err).
			Str("appliance", applianceID).
			Str("state", string(state)).
			Str("source", source).
			Msg("Actuation failed")
	}
}

// Deliver synchronously switches an appliance and records the outcome.
func (d *Dispatcher) Deliver(ctx context.Context, applianceID string, state State, source string) error {
	err := d.deliver(ctx, applianceID, state)
	if err != nil {
		d.record(ledger.EventActuationFailed, applianceID, source, state, err.Error())
		return err
	}

	log.Info().Str("appliance", applianceID).Str("state", string(state)).Str("source", source).Msg("Actuation sent")
	d.record(ledger.EventActuationSent, applianceID, source, state, "")
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, applianceID string, state State) error {
	driver, target, ok := d.router.Route(applianceID)
	if !ok {
		return fmt.Errorf("appliance %s has no transport", applianceID)
	}
	if !driver.Connected() {
		return fmt.Errorf("%s: %w", driver.Name(), ErrNotConnected)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return driver.Switch(ctx, target, state)
}

func (d *Dispatcher) record(eventType ledger.EventType, applianceID, source string, state State, reason string) {
	if d.recorder == nil {
		return
	}
	payload := map[string]any{"state": string(state)}
	if reason != "" {
		payload["error"] = reason
	}
	if err := d.recorder.Append(eventType, applianceID, source, payload); err != nil {
		log.Error().Err(err).Str("appliance", applianceID).Msg("Failed to record actuation")
	}
}
