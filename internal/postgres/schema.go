// internal/postgres/schema.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so the binary can
// run it unconditionally at startup.
//
// Two constraints carry domain invariants so that even a buggy write path
// cannot commit drift: the CHECK on the aggregate counters, and the partial
// unique index allowing at most one open lending record per copy.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			status TEXT NOT NULL DEFAULT 'active',
			fine_balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			member_id UUID PRIMARY KEY REFERENCES members(id) ON DELETE CASCADE,
			password_hash TEXT NOT NULL,
			salt TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY,
			isbn TEXT NOT NULL,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			total_copies INT NOT NULL DEFAULT 0,
			available_copies INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT items_copy_counts CHECK (
				available_copies >= 0 AND available_copies <= total_copies
			)
		)`,
		`CREATE TABLE IF NOT EXISTS copies (
			id UUID PRIMARY KEY,
			item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'AVAILABLE',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_copies_item_status ON copies (item_id, status, created_at)`,
		`CREATE TABLE IF NOT EXISTS lending_records (
			id UUID PRIMARY KEY,
			member_id UUID NOT NULL REFERENCES members(id),
			-- no FK on copy_id: records are append-only history and must
			-- outlive removed copies
			copy_id UUID NOT NULL,
			item_id UUID NOT NULL REFERENCES items(id),
			issue_date TIMESTAMPTZ NOT NULL,
			due_date TIMESTAMPTZ NOT NULL,
			return_date TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'ISSUED',
			renew_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_one_open_record_per_copy
			ON lending_records (copy_id)
			WHERE status IN ('ISSUED', 'OVERDUE')`,
		`CREATE INDEX IF NOT EXISTS idx_lending_member_status ON lending_records (member_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_lending_status_due ON lending_records (status, due_date)`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			aggregate_id UUID NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_aggregate ON events (aggregate_id, id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
