// internal/postgres/postgrestest/postgrestest.go
package postgrestest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"bookstack/internal/postgres"
)

// Connect opens the test database, applies the schema and truncates all
// tables. Tests are skipped when no Postgres is reachable, so the unit
// suite stays runnable without infrastructure.
func Connect(t testing.TB) *sql.DB {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("PGHOST", "localhost"),
		envOr("PGPORT", "5432"),
		envOr("PGUSER", "bookstack"),
		envOr("PGPASSWORD", "dev_password_change_in_prod"),
		envOr("PGDATABASE", "bookstack_test"),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	ctx := context.Background()
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		`TRUNCATE TABLE events, lending_records, copies, items, credentials, members CASCADE`,
	); err != nil {
		db.Close()
		t.Fatalf("failed to truncate tables: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
