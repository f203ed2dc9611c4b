// Package scheduler owns the in-memory set of appliance timers and the engine
// that fires them.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/eventbus"
	"github.com/dokzlo13/smartpanel/internal/store"
	"github.com/dokzlo13/smartpanel/internal/timer"
)

var (
	// ErrUnschedulable is returned for appliances without an actuation mapping.
	ErrUnschedulable = errors.New("timer unavailable for appliance")
	// ErrUnknownEntry is returned when no timer exists for the appliance yet.
	ErrUnknownEntry = errors.New("no timer for appliance")
)

// Timer change kinds carried in timer events.
const (
	ChangeSaved       = "saved"
	ChangeCancelled   = "cancelled"
	ChangeOverridden  = "overridden"
	ChangeFired       = "fired"
	ChangeDeactivated = "deactivated"
)

// Appliances reports which appliances can be actuated. *actuator.Router satisfies it.
type Appliances interface {
	Schedulable(applianceID string) bool
	DisplayName(applianceID string) string
}

// Registry holds at most one timer entry per schedulable appliance. All mutations
// and engine ticks are serialized by a single mutex, and every mutation writes the
// whole set to the store.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*timer.Entry

	store      store.Store
	appliances Appliances
	bus        *eventbus.Bus
}

// NewRegistry creates an empty registry. bus may be nil.
func NewRegistry(st store.Store, appliances Appliances, bus *eventbus.Bus) *Registry {
	return &Registry{
		entries:    make(map[string]*timer.Entry),
		store:      st,
		appliances: appliances,
		bus:        bus,
	}
}

// Schedulable reports whether a timer may exist for the appliance.
func (r *Registry) Schedulable(applianceID string) bool {
	return r.appliances.Schedulable(applianceID)
}

// Restore loads persisted settings and creates entries for the schedulable ids
// found there. A load error leaves the registry empty and is returned for logging.
func (r *Registry) Restore() error {
	all, loadErr := r.store.Load()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, settings := range all {
		if !r.appliances.Schedulable(id) {
			log.Warn().Str("appliance", id).Msg("Ignoring persisted timer for unschedulable appliance")
			continue
		}

		entry := timer.NewEntry(id, r.appliances.DisplayName(id))
		if err := entry.Restore(settings); err != nil {
			log.Warn().Err(err).Str("appliance", id).Msg("Repaired persisted timer")
		}
		r.entries[id] = &entry
	}

	log.Info().Int("timers", len(r.entries)).Msg("Timers restored")
	if loadErr != nil {
		return fmt.Errorf("load timers: %w", loadErr)
	}
	return nil
}

// GetOrCreate returns the appliance's entry, creating a disabled default entry
// on first use. displayName may be empty to use the catalog name.
func (r *Registry) GetOrCreate(applianceID, displayName string) (timer.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.getOrCreateLocked(applianceID, displayName)
	if err != nil {
		return timer.Entry{}, err
	}
	return *entry, nil
}

func (r *Registry) getOrCreateLocked(applianceID, displayName string) (*timer.Entry, error) {
	if entry, ok := r.entries[applianceID]; ok {
		return entry, nil
	}
	if !r.appliances.Schedulable(applianceID) {
		return nil, fmt.Errorf("%s: %w", applianceID, ErrUnschedulable)
	}

	if displayName == "" {
		displayName = r.appliances.DisplayName(applianceID)
	}
	entry := timer.NewEntry(applianceID, displayName)
	r.entries[applianceID] = &entry

	log.Debug().Str("appliance", applianceID).Msg("Timer created")
	return &entry, nil
}

// Get returns a copy of an existing entry.
func (r *Registry) Get(applianceID string) (timer.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[applianceID]
	if !ok {
		return timer.Entry{}, false
	}
	return *entry, true
}

// Entries returns copies of all entries ordered by appliance id.
func (r *Registry) Entries() []timer.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]timer.Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApplianceID < out[j].ApplianceID })
	return out
}

// Save commits settings to the appliance's timer and enables it. Invalid
// settings leave the entry untouched.
func (r *Registry) Save(applianceID string, settings timer.Settings) (timer.Entry, error) {
	r.mu.Lock()
	entry, err := r.getOrCreateLocked(applianceID, "")
	if err != nil {
		r.mu.Unlock()
		return timer.Entry{}, err
	}
	if err := entry.Activate(settings); err != nil {
		r.mu.Unlock()
		return timer.Entry{}, err
	}
	saved := *entry
	r.persistLocked()
	r.mu.Unlock()

	log.Info().
		Str("appliance", applianceID).
		Str("on", saved.OnTime.String()).
		Str("off", saved.OffTime.String()).
		Str("repeat", string(saved.Repeat)).
		Msg("Timer saved")
	r.publish(applianceID, ChangeSaved, nil)
	return saved, nil
}

// Cancel resets the appliance's timer to defaults and disables it.
func (r *Registry) Cancel(applianceID string) (timer.Entry, error) {
	r.mu.Lock()
	entry, ok := r.entries[applianceID]
	if !ok {
		r.mu.Unlock()
		return timer.Entry{}, fmt.Errorf("%s: %w", applianceID, ErrUnknownEntry)
	}
	entry.Reset()
	cancelled := *entry
	r.persistLocked()
	r.mu.Unlock()

	log.Info().Str("appliance", applianceID).Msg("Timer cancelled")
	r.publish(applianceID, ChangeCancelled, nil)
	return cancelled, nil
}

// DisableForOverride disables an enabled timer after a manual toggle and
// persists the change. Reports whether a timer was disabled.
func (r *Registry) DisableForOverride(applianceID string) bool {
	r.mu.Lock()
	entry, ok := r.entries[applianceID]
	if !ok || !entry.Override() {
		r.mu.Unlock()
		return false
	}
	r.persistLocked()
	r.mu.Unlock()

	log.Info().Str("appliance", applianceID).Msg("Timer disabled by manual control")
	r.publish(applianceID, ChangeOverridden, nil)
	return true
}

// update runs fn over all entries under the lock and persists when fn reports a change.
func (r *Registry) update(fn func(entries map[string]*timer.Entry) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fn(r.entries) {
		r.persistLocked()
	}
}

// persistLocked writes every entry. Failures are logged; the in-memory state stays authoritative.
func (r *Registry) persistLocked() {
	all := make(map[string]timer.Settings, len(r.entries))
	for id, entry := range r.entries {
		all[id] = entry.Settings()
	}
	if err := r.store.Save(all); err != nil {
		log.Error().Err(err).Int("timers", len(all)).Msg("Failed to persist timers")
	}
}

func (r *Registry) publish(applianceID, change string, extra map[string]any) {
	if r.bus == nil {
		return
	}
	data := map[string]any{
		"appliance": applianceID,
		"change":    change,
	}
	for k, v := range extra {
		data[k] = v
	}
	r.bus.Publish(eventbus.EventTypeTimer, data)
}
