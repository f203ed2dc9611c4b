package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/eventbus"
	"github.com/dokzlo13/smartpanel/internal/ledger"
	"github.com/dokzlo13/smartpanel/internal/scheduler"
)

// Source recorded for changes made from the panel API.
const SourcePanel = "panel"

// ledgerEvents maps timer changes to ledger event types and their source.
var ledgerEvents = map[string]struct {
	eventType ledger.EventType
	source    string
}{
	scheduler.ChangeSaved:       {ledger.EventTimerSaved, SourcePanel},
	scheduler.ChangeCancelled:   {ledger.EventTimerCancelled, SourcePanel},
	scheduler.ChangeOverridden:  {ledger.EventTimerOverridden, actuator.SourceManual},
	scheduler.ChangeFired:       {ledger.EventTimerFired, actuator.SourceTimer},
	scheduler.ChangeDeactivated: {ledger.EventTimerDeactivated, actuator.SourceTimer},
}

// EventService records timer changes from the event bus into the ledger.
type EventService struct {
	bus    *eventbus.Bus
	ledger *ledger.Ledger
}

// NewEventService creates a new EventService.
func NewEventService(bus *eventbus.Bus, l *ledger.Ledger) *EventService {
	return &EventService{bus: bus, ledger: l}
}

// Start sets up all event handlers.
func (s *EventService) Start() {
	s.bus.Subscribe(eventbus.EventTypeTimer, s.recordTimerChange)
}

func (s *EventService) recordTimerChange(event eventbus.Event) {
	change := event.String("change")
	mapped, ok := ledgerEvents[change]
	if !ok {
		log.Debug().Str("change", change).Msg("Unrecorded timer change")
		return
	}

	applianceID := event.String("appliance")
	payload := make(map[string]any, len(event.Data))
	for k, v := range event.Data {
		if k != "appliance" && k != "change" {
			payload[k] = v
		}
	}

	if err := s.ledger.Append(mapped.eventType, applianceID, mapped.source, payload); err != nil {
		log.Error().Err(err).Str("appliance", applianceID).Str("change", change).Msg("Failed to record timer change")
	}
}
