// Package ledger keeps an append-only history of timer firings, overrides and
// command deliveries. It is an audit trail only; nothing reads it back into timer state.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventTimerFired       EventType = "timer_fired"
	EventTimerSaved       EventType = "timer_saved"
	EventTimerCancelled   EventType = "timer_cancelled"
	EventTimerOverridden  EventType = "timer_overridden"
	EventTimerDeactivated EventType = "timer_deactivated"
	EventActuationSent    EventType = "actuation_sent"
	EventActuationFailed  EventType = "actuation_failed"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID          int64
	EventType   EventType
	Timestamp   time.Time
	ApplianceID string
	Source      string
	Payload     map[string]any
}

// Ledger provides append-only event logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append adds a new event to the ledger
func (l *Ledger) Append(eventType EventType, applianceID, source string, payload map[string]any) error {
	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	_, err := l.db.Exec(`
		INSERT INTO event_ledger (event_type, timestamp, appliance_id, source, payload)
		VALUES (?, ?, ?, ?, ?)
	`, string(eventType), l.now().UTC().Unix(), applianceID, source, string(payloadJSON))
	if err != nil {
		return fmt.Errorf("failed to append %s: %w", eventType, err)
	}
	return nil
}

// Recent returns the newest entries first, optionally filtered by appliance.
func (l *Ledger) Recent(applianceID string, limit int) ([]*Entry, error) {
	query := `
		SELECT id, event_type, timestamp, appliance_id, source, payload
		FROM event_ledger`
	args := []any{}
	if applianceID != "" {
		query += ` WHERE appliance_id = ?`
		args = append(args, applianceID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByType returns entries filtered by event type
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, appliance_id, source, payload
		FROM event_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).UTC().Unix()
	result, err := l.db.Exec(`DELETE FROM event_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var eventType string
		var timestamp int64
		var applianceID, source, payloadStr sql.NullString

		if err := rows.Scan(&entry.ID, &eventType, &timestamp, &applianceID, &source, &payloadStr); err != nil {
			return nil, err
		}

		entry.EventType = EventType(eventType)
		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		entry.ApplianceID = applianceID.String
		entry.Source = source.String

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
