// internal/eventlog/eventlog.go
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one append-only domain event row.
type Event struct {
	ID            int64               `json:"id" db:"id"`
	AggregateID   uuid.UUID           `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string              `json:"aggregate_type" db:"aggregate_type"`
	EventType     string              `json:"event_type" db:"event_type"`
	EventData     jsoniter.RawMessage `json:"event_data" db:"event_data"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
}

// Log appends domain events. Unlike a standalone event store it never opens
// its own transaction: Append takes the caller's tx, so the log commits or
// rolls back together with the state change it describes.
type Log struct {
	db     *sql.DB
	tracer trace.Tracer
}

func New(db *sql.DB) *Log {
	return &Log{
		db:     db,
		tracer: otel.Tracer("bookstack/eventlog"),
	}
}

// Append records an event for an aggregate inside tx. The payload is
// serialized with jsoniter; a nil payload is stored as an empty object.
func (l *Log) Append(ctx context.Context, tx *sql.Tx, aggregateID uuid.UUID, aggregateType, eventType string, payload interface{}) error {
	ctx, span := l.tracer.Start(ctx, "eventlog.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.String("event.type", eventType),
		),
	)
	defer span.End()

	data := jsoniter.RawMessage("{}")
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		data = encoded
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, aggregateID, aggregateType, eventType, []byte(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Stream returns events after fromID in insertion order, up to limit rows.
// Used by ops tooling to tail the log.
func (l *Log) Stream(ctx context.Context, fromID int64, limit int) ([]Event, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, created_at
		FROM events
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, fromID, limit)
	if err != nil {
		return nil, fmt.Errorf("query event stream: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event Event
			data  []byte
		)
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.AggregateType, &event.EventType, &data, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.EventData = jsoniter.RawMessage(data)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}
