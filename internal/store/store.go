// Package store persists the full set of timer settings keyed by appliance id.
// Every Save replaces the whole mapping; runtime-only fields never reach it.
package store

import "github.com/dokzlo13/smartpanel/internal/timer"

// Store is a durable appliance id -> timer settings mapping.
type Store interface {
	// Load returns the persisted mapping. A store that was never written yields
	// an empty mapping and no error. On a read or decode failure the mapping is
	// empty (never nil) and the error says what went wrong.
	Load() (map[string]timer.Settings, error)

	// Save atomically replaces the persisted mapping with all.
	Save(all map[string]timer.Settings) error
}
