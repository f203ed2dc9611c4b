package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/timer"
)

// KindTimer is the resource_state kind under which timers are stored.
const KindTimer = "timer"

// SQLiteStore keeps one resource_state row per appliance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an opened database (see internal/db).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns every timer row. Rows that fail to decode are skipped and reported.
func (s *SQLiteStore) Load() (map[string]timer.Settings, error) {
	all := map[string]timer.Settings{}

	rows, err := s.db.Query(`SELECT id, payload FROM resource_state WHERE kind = ?`, KindTimer)
	if err != nil {
		return all, fmt.Errorf("failed to query timers: %w", err)
	}
	defer rows.Close()

	var errs []error
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return map[string]timer.Settings{}, fmt.Errorf("failed to scan timer: %w", err)
		}

		var settings timer.Settings
		if err := json.Unmarshal([]byte(payload), &settings); err != nil {
			errs = append(errs, fmt.Errorf("timer %s: %w", id, err))
			continue
		}
		all[id] = settings
	}
	if err := rows.Err(); err != nil {
		return map[string]timer.Settings{}, err
	}

	return all, errors.Join(errs...)
}

// Save replaces all timer rows in one transaction.
func (s *SQLiteStore) Save(all map[string]timer.Settings) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM resource_state WHERE kind = ?`, KindTimer); err != nil {
		return fmt.Errorf("failed to clear timers: %w", err)
	}

	now := time.Now().UTC().Unix()
	for id, settings := range all {
		payload, mErr := json.Marshal(settings)
		if mErr != nil {
			err = fmt.Errorf("failed to encode timer %s: %w", id, mErr)
			return err
		}
		if _, err = tx.Exec(`
			INSERT INTO resource_state (kind, id, payload, updated_at)
			VALUES (?, ?, ?, ?)
		`, KindTimer, id, string(payload), now); err != nil {
			return fmt.Errorf("failed to store timer %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit timers: %w", err)
	}

	log.Debug().Int("timers", len(all)).Msg("Timer settings saved")
	return nil
}
