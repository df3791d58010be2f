package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lunarjar/wishtree/pkg/observability"
)

// Logger records audit events. Implementations must be safe for concurrent
// use.
type Logger interface {
	Log(ctx context.Context, event *Event) error
}

// NopLogger discards all events. Used when auditing is disabled and in tests
// that do not assert on the trail.
type NopLogger struct{}

// Log discards the event
func (NopLogger) Log(context.Context, *Event) error { return nil }

// DBLogger writes audit events to the audit_events table created by the
// store migrations
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBLogger{db: db}, nil
}

// Log writes one event. IDs and timestamps are filled in when absent so call
// sites only describe what happened.
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	detail := "{}"
	if len(event.Detail) > 0 {
		encoded, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("failed to encode event detail: %w", err)
		}
		detail = string(encoded)
	}

	query := `
		INSERT INTO audit_events (id, event_type, actor_id, resource_type, resource_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := l.db.ExecContext(ctx, query,
		event.ID, string(event.Type), event.ActorID,
		event.ResourceType, event.ResourceID, detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// Record logs an event and only warns on failure. Audit writes ride along
// with mutations that have already happened, so a failed write must not fail
// the request.
func Record(ctx context.Context, logger Logger, event *Event) {
	if logger == nil {
		return
	}
	if err := logger.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).
			WithField("event_type", string(event.Type)).
			Warn("Failed to write audit event")
	}
}

// ListByResource returns the trail for one resource, newest first
func (l *DBLogger) ListByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]*Event, error) {
	query := `
		SELECT id, event_type, actor_id, resource_type, resource_id, detail, created_at
		FROM audit_events
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := l.db.QueryContext(ctx, query, resourceType, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		var detail string
		if err := rows.Scan(&event.ID, &event.Type, &event.ActorID,
			&event.ResourceType, &event.ResourceID, &detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if detail != "" && detail != "{}" {
			if err := json.Unmarshal([]byte(detail), &event.Detail); err != nil {
				event.Detail = nil
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
