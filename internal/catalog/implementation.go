// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstack/internal/eventlog"
	"bookstack/internal/postgres"
	"bookstack/internal/shared"
)

// service implements the Service interface.
type service struct {
	db     *sql.DB
	events *eventlog.Log
	tracer trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(db *sql.DB, events *eventlog.Log) Service {
	return &service{
		db:     db,
		events: events,
		tracer: otel.Tracer("bookstack/catalog"),
	}
}

// AddItem creates a new catalog item together with its initial copies.
func (s *service) AddItem(ctx context.Context, isbn, title, author string, copies int) (*Item, error) {
	if title == "" || author == "" {
		return nil, shared.Errorf("INVALID_ARGUMENT", "title and author are required")
	}
	if copies < 0 || copies > MaxCopiesPerRequest {
		return nil, shared.Errorf("INVALID_ARGUMENT", "initial copies must be between 0 and %d", MaxCopiesPerRequest)
	}

	item := &Item{
		ID:              uuid.New(),
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		TotalCopies:     copies,
		AvailableCopies: copies,
		Status:          "active",
	}

	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, isbn, title, author, total_copies, available_copies, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, item.ISBN, item.Title, item.Author, item.TotalCopies, item.AvailableCopies, item.Status)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}

		if _, err := s.insertCopies(ctx, tx, item.ID, copies); err != nil {
			return err
		}

		return s.events.Append(ctx, tx, item.ID, "item", "ItemAdded", ItemAddedEvent{
			ID:          item.ID,
			ISBN:        item.ISBN,
			Title:       item.Title,
			Author:      item.Author,
			TotalCopies: item.TotalCopies,
		})
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// GetItem retrieves an item from the catalog by its ID.
func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item := &Item{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, isbn, title, author, total_copies, available_copies, status, created_at, updated_at
		FROM items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.ISBN, &item.Title, &item.Author,
		&item.TotalCopies, &item.AvailableCopies, &item.Status,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.Errorf("NOT_FOUND", "item %s not found", id)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Search finds active items by title or author full-text match.
func (s *service) Search(ctx context.Context, query string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, isbn, title, author, total_copies, available_copies, status, created_at, updated_at
		FROM items
		WHERE status = 'active'
		AND (to_tsvector('english', title) @@ plainto_tsquery('english', $1)
			OR to_tsvector('english', author) @@ plainto_tsquery('english', $1))
		LIMIT 20
	`, query)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(
			&item.ID, &item.ISBN, &item.Title, &item.Author,
			&item.TotalCopies, &item.AvailableCopies, &item.Status,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RetireItem marks an item as retired. Items with copies out on loan
// cannot be retired.
func (s *service) RetireItem(ctx context.Context, id uuid.UUID) error {
	return postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.lockItem(ctx, tx, id); err != nil {
			return err
		}

		var open int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM lending_records
			WHERE item_id = $1 AND status IN ('ISSUED', 'OVERDUE')
		`, id).Scan(&open)
		if err != nil {
			return fmt.Errorf("count open records: %w", err)
		}
		if open > 0 {
			return shared.Errorf("PRECONDITION_FAILED", "item %s has %d copies out on loan", id, open)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE items SET status = 'retired', updated_at = NOW() WHERE id = $1
		`, id); err != nil {
			return fmt.Errorf("retire item: %w", err)
		}

		return s.events.Append(ctx, tx, id, "item", "ItemRetired", ItemRetiredEvent{ID: id})
	})
}

// AddCopies provisions count new AVAILABLE copies and bumps both aggregate
// counters in the same transaction.
func (s *service) AddCopies(ctx context.Context, itemID uuid.UUID, count int) (*Stats, error) {
	if count < MinCopiesPerRequest || count > MaxCopiesPerRequest {
		return nil, shared.Errorf("INVALID_ARGUMENT", "count must be between %d and %d", MinCopiesPerRequest, MaxCopiesPerRequest)
	}

	ctx, span := s.tracer.Start(ctx, "catalog.add_copies",
		trace.WithAttributes(
			attribute.String("item.id", itemID.String()),
			attribute.Int("count", count),
		),
	)
	defer span.End()

	var stats *Stats
	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.lockItem(ctx, tx, itemID); err != nil {
			return err
		}

		copyIDs, err := s.insertCopies(ctx, tx, itemID, count)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE items
			SET total_copies = total_copies + $1,
				available_copies = available_copies + $1,
				updated_at = NOW()
			WHERE id = $2
		`, count, itemID); err != nil {
			return fmt.Errorf("increment counters: %w", err)
		}

		if err := s.events.Append(ctx, tx, itemID, "item", "CopiesAdded", CopiesAddedEvent{
			ItemID:  itemID,
			CopyIDs: copyIDs,
		}); err != nil {
			return err
		}

		stats, err = s.statsInTx(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RemoveCopies deletes up to count AVAILABLE copies, oldest first, and
// decrements both counters. Fails without any effect when fewer than count
// copies are available.
func (s *service) RemoveCopies(ctx context.Context, itemID uuid.UUID, count int) (*Stats, error) {
	if count < MinCopiesPerRequest {
		return nil, shared.Errorf("INVALID_ARGUMENT", "count must be at least %d", MinCopiesPerRequest)
	}

	ctx, span := s.tracer.Start(ctx, "catalog.remove_copies",
		trace.WithAttributes(
			attribute.String("item.id", itemID.String()),
			attribute.Int("count", count),
		),
	)
	defer span.End()

	var stats *Stats
	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := s.lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if count > item.AvailableCopies {
			return shared.Errorf("INSUFFICIENT_AVAILABLE", "requested %d but only %d copies available", count, item.AvailableCopies)
		}

		// Oldest-created copies go first; the item row lock serializes
		// every copy-state writer for this item, so the selection is
		// stable.
		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM copies
			WHERE item_id = $1 AND status = 'AVAILABLE'
			ORDER BY created_at, id
			LIMIT $2
			FOR UPDATE
		`, itemID, count)
		if err != nil {
			return fmt.Errorf("select removable copies: %w", err)
		}
		copyIDs, err := scanIDs(rows)
		if err != nil {
			return err
		}
		if len(copyIDs) < count {
			return shared.Errorf("INSUFFICIENT_AVAILABLE", "requested %d but only %d copies available", count, len(copyIDs))
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM copies WHERE id = ANY($1::uuid[])
		`, uuidArray(copyIDs))
		if err != nil {
			return fmt.Errorf("delete copies: %w", err)
		}
		if n, _ := res.RowsAffected(); int(n) != count {
			return fmt.Errorf("expected to delete %d copies, deleted %d", count, n)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE items
			SET total_copies = total_copies - $1,
				available_copies = available_copies - $1,
				updated_at = NOW()
			WHERE id = $2
		`, count, itemID); err != nil {
			return fmt.Errorf("decrement counters: %w", err)
		}

		if err := s.events.Append(ctx, tx, itemID, "item", "CopiesRemoved", CopiesRemovedEvent{
			ItemID:  itemID,
			CopyIDs: copyIDs,
		}); err != nil {
			return err
		}

		stats, err = s.statsInTx(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetStats returns the inventory summary for an item.
func (s *service) GetStats(ctx context.Context, itemID uuid.UUID) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT i.total_copies, i.available_copies,
			(SELECT COUNT(*) FROM lending_records lr
			 WHERE lr.item_id = i.id AND lr.status IN ('ISSUED', 'OVERDUE'))
		FROM items i
		WHERE i.id = $1
	`, itemID).Scan(&stats.TotalCopies, &stats.AvailableCopies, &stats.IssuedCopies)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.Errorf("NOT_FOUND", "item %s not found", itemID)
		}
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// ReportLost writes off an AVAILABLE copy. The copy stays in total_copies
// but leaves the available pool. Copies lost while on loan are resolved
// through the lending record, not here.
func (s *service) ReportLost(ctx context.Context, copyID uuid.UUID) error {
	return postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		var itemID uuid.UUID
		err := tx.QueryRowContext(ctx, `
			SELECT item_id FROM copies WHERE id = $1
		`, copyID).Scan(&itemID)
		if errors.Is(err, sql.ErrNoRows) {
			return shared.Errorf("NOT_FOUND", "copy %s not found", copyID)
		}
		if err != nil {
			return fmt.Errorf("get copy: %w", err)
		}

		if _, err := s.lockItem(ctx, tx, itemID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE copies SET status = 'LOST' WHERE id = $1 AND status = 'AVAILABLE'
		`, copyID)
		if err != nil {
			return fmt.Errorf("mark copy lost: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return shared.Errorf("PRECONDITION_FAILED", "copy %s is not available", copyID)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE items SET available_copies = available_copies - 1, updated_at = NOW()
			WHERE id = $1
		`, itemID); err != nil {
			return fmt.Errorf("decrement available: %w", err)
		}

		return s.events.Append(ctx, tx, itemID, "item", "CopyLost", CopyLostEvent{
			ItemID: itemID,
			CopyID: copyID,
		})
	})
}

// lockItem loads the item row FOR UPDATE, serializing all copy-state
// writers for the item.
func (s *service) lockItem(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*Item, error) {
	item := &Item{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, total_copies, available_copies, status
		FROM items
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&item.ID, &item.TotalCopies, &item.AvailableCopies, &item.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.Errorf("NOT_FOUND", "item %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock item: %w", err)
	}
	return item, nil
}

func (s *service) insertCopies(ctx context.Context, tx *sql.Tx, itemID uuid.UUID, count int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO copies (id, item_id, status) VALUES ($1, $2, 'AVAILABLE')
		`, id, itemID); err != nil {
			return nil, fmt.Errorf("insert copy: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *service) statsInTx(ctx context.Context, tx *sql.Tx, itemID uuid.UUID) (*Stats, error) {
	stats := &Stats{}
	err := tx.QueryRowContext(ctx, `
		SELECT i.total_copies, i.available_copies,
			(SELECT COUNT(*) FROM lending_records lr
			 WHERE lr.item_id = i.id AND lr.status IN ('ISSUED', 'OVERDUE'))
		FROM items i
		WHERE i.id = $1
	`, itemID).Scan(&stats.TotalCopies, &stats.AvailableCopies, &stats.IssuedCopies)
	if err != nil {
		return nil, fmt.Errorf("stats in tx: %w", err)
	}
	return stats, nil
}

func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan copy id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func uuidArray(ids []uuid.UUID) interface{} {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}
