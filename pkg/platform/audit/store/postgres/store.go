package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	audit "github.com/TylerGelinas/socure/pkg/platform/audit"
)

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	if db == nil {
		panic("postgres.New: db is required")
	}
	return &Store{db: db}
}

const selectColumns = `
	SELECT id, timestamp, action, subject, decision, reason, status_code,
	       modules, reference_id, request_id, client_ip_prefix,
	       device_browser, device_os, device_mobile
	FROM audit_events
`

// Append inserts the event. Events carry a publisher-assigned ID, so a
// redelivered event is ignored rather than duplicated.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, timestamp, action, subject, decision, reason, status_code,
			modules, reference_id, request_id, client_ip_prefix,
			device_browser, device_os, device_mobile
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	if event.ID == "" {
		return errors.New("insert audit event: missing id")
	}
	modules, err := encodeModules(event.Modules)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		event.Action,
		event.Subject,
		event.Decision,
		event.Reason,
		event.StatusCode,
		modules,
		event.ReferenceID,
		event.RequestID,
		event.ClientIPPrefix,
		event.DeviceBrowser,
		event.DeviceOS,
		event.DeviceMobile,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns events for the hashed subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE subject = $1
		ORDER BY timestamp ASC, id ASC
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the limit most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// clampLimit keeps limit inside the int32 range Postgres accepts for LIMIT.
func clampLimit(limit int) int32 {
	switch {
	case limit <= 0:
		return 0
	case limit > math.MaxInt32:
		return math.MaxInt32
	default:
		return int32(limit)
	}
}

func encodeModules(modules []string) ([]byte, error) {
	if modules == nil {
		modules = []string{}
	}
	b, err := json.Marshal(modules)
	if err != nil {
		return nil, fmt.Errorf("encode audit modules: %w", err)
	}
	return b, nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event   audit.Event
			modules []byte
		)
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Action,
			&event.Subject,
			&event.Decision,
			&event.Reason,
			&event.StatusCode,
			&modules,
			&event.ReferenceID,
			&event.RequestID,
			&event.ClientIPPrefix,
			&event.DeviceBrowser,
			&event.DeviceOS,
			&event.DeviceMobile,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if err := json.Unmarshal(modules, &event.Modules); err != nil {
			return nil, fmt.Errorf("decode audit modules: %w", err)
		}
		if len(event.Modules) == 0 {
			event.Modules = nil
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

var _ audit.Store = (*Store)(nil)
