package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/timer"
)

// DefaultTickSpec runs a tick at second zero of every minute.
const DefaultTickSpec = "0 * * * * *"

// firing is a command decided during a tick and sent after the lock is released.
type firing struct {
	applianceID string
	action      timer.Action
	deactivated bool
}

// Engine evaluates every timer once per tick and emits due commands.
type Engine struct {
	registry *Registry
	sender   actuator.Sender
	clock    Clock
	spec     string
}

// NewEngine creates an engine. spec is a seconds-resolution cron expression;
// empty means DefaultTickSpec.
func NewEngine(registry *Registry, sender actuator.Sender, clock Clock, spec string) *Engine {
	if spec == "" {
		spec = DefaultTickSpec
	}
	return &Engine{
		registry: registry,
		sender:   sender,
		clock:    clock,
		spec:     spec,
	}
}

// Tick fires every enabled timer whose ON or OFF time matches the current
// minute and returns the number of commands sent. Calling it again within the
// same minute sends nothing new.
func (e *Engine) Tick() int {
	now := e.clock.Now()

	var fired []firing
	e.registry.update(func(entries map[string]*timer.Entry) bool {
		changed := false
		for id, entry := range entries {
			f, ok := e.evaluate(id, entry, now)
			if !ok {
				continue
			}
			fired = append(fired, f)
			changed = changed || f.deactivated
		}
		return changed
	})

	for _, f := range fired {
		e.send(f)
	}
	return len(fired)
}

// evaluate decides whether entry fires at now. A panic skips the entry.
func (e *Engine) evaluate(id string, entry *timer.Entry, now time.Time) (f firing, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("appliance", id).Msg("Timer evaluation panicked, skipping")
			ok = false
		}
	}()

	if !entry.Enabled {
		return firing{}, false
	}
	if err := entry.Validate(); err != nil {
		log.Warn().Err(err).Str("appliance", id).Msg("Skipping invalid timer")
		return firing{}, false
	}

	action := entry.DueAction(now)
	if action == timer.ActionNone || entry.LastFired.Matches(action, now) {
		return firing{}, false
	}

	entry.LastFired = timer.Firing{Action: action, Minute: timer.MinuteOf(now)}
	f = firing{applianceID: id, action: action}

	// one-time timers disable on every match, ON or OFF
	if entry.Repeat == timer.RepeatOnce {
		entry.Enabled = false
		f.deactivated = true
	}
	return f, true
}

func (e *Engine) send(f firing) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("appliance", f.applianceID).Msg("Sender panicked")
		}
	}()

	log.Info().
		Str("appliance", f.applianceID).
		Str("action", string(f.action)).
		Bool("deactivated", f.deactivated).
		Msg("Timer fired")

	e.sender.Send(f.applianceID, actuator.State(f.action))

	e.registry.publish(f.applianceID, ChangeFired, map[string]any{"action": string(f.action)})
	if f.deactivated {
		e.registry.publish(f.applianceID, ChangeDeactivated, nil)
	}
}

// Run ticks on the cron schedule until ctx is cancelled. The first tick runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(e.clock.Now().Location()))
	if _, err := c.AddFunc(e.spec, func() { e.Tick() }); err != nil {
		return fmt.Errorf("invalid tick spec %q: %w", e.spec, err)
	}

	e.Tick()
	c.Start()
	log.Info().Str("spec", e.spec).Msg("Timer engine started")

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Info().Msg("Timer engine stopped")
	return nil
}
