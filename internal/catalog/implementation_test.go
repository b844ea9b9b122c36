// internal/catalog/implementation_test.go
package catalog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstack/internal/audit"
	"bookstack/internal/eventlog"
	"bookstack/internal/postgres/postgrestest"
	"bookstack/internal/shared"
)

func newTestService(t *testing.T) (Service, *sql.DB) {
	t.Helper()
	db := postgrestest.Connect(t)
	return NewService(db, eventlog.New(db)), db
}

func TestAddItemCreatesCopiesAndCounters(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "9780141439518", "Pride and Prejudice", "Jane Austen", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, item.TotalCopies)
	assert.Equal(t, 3, item.AvailableCopies)

	var liveCopies int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM copies WHERE item_id = $1 AND status = 'AVAILABLE'`, item.ID,
	).Scan(&liveCopies))
	assert.Equal(t, 3, liveCopies)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "active", got.Status)
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "isbn", "", "Author", 1)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.AddItem(ctx, "isbn", "Title", "Author", -1)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.AddItem(ctx, "isbn", "Title", "Author", MaxCopiesPerRequest+1)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestAddCopiesBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "isbn", "Title", "Author", 1)
	require.NoError(t, err)

	_, err = svc.AddCopies(ctx, item.ID, 0)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.AddCopies(ctx, item.ID, MaxCopiesPerRequest+1)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	stats, err := svc.AddCopies(ctx, item.ID, MaxCopiesPerRequest)
	require.NoError(t, err)
	assert.Equal(t, MaxCopiesPerRequest+1, stats.TotalCopies)
	assert.Equal(t, MaxCopiesPerRequest+1, stats.AvailableCopies)
}

func TestAddCopiesUnknownItem(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddCopies(context.Background(), uuid.New(), 2)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveCopiesInsufficientLeavesStateUntouched(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "isbn", "Title", "Author", 2)
	require.NoError(t, err)

	_, err = svc.RemoveCopies(ctx, item.ID, 5)
	assert.ErrorIs(t, err, shared.ErrInsufficientAvailable)

	stats, err := svc.GetStats(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, &Stats{TotalCopies: 2, AvailableCopies: 2, IssuedCopies: 0}, stats)

	var liveCopies int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM copies WHERE item_id = $1`, item.ID).Scan(&liveCopies))
	assert.Equal(t, 2, liveCopies, "failed removal must not delete any copy")
}

func TestRemoveCopiesOldestFirst(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "isbn", "Title", "Author", 3)
	require.NoError(t, err)

	var oldest uuid.UUID
	require.NoError(t, db.QueryRow(
		`SELECT id FROM copies WHERE item_id = $1 ORDER BY created_at, id LIMIT 1`, item.ID,
	).Scan(&oldest))

	stats, err := svc.RemoveCopies(ctx, item.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, &Stats{TotalCopies: 2, AvailableCopies: 2, IssuedCopies: 0}, stats)

	var stillThere bool
	require.NoError(t, db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM copies WHERE id = $1)`, oldest,
	).Scan(&stillThere))
	assert.False(t, stillThere, "the oldest copy should have been removed")
}

func TestReportLost(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "isbn", "Title", "Author", 2)
	require.NoError(t, err)

	var copyID uuid.UUID
	require.NoError(t, db.QueryRow(
		`SELECT id FROM copies WHERE item_id = $1 LIMIT 1`, item.ID,
	).Scan(&copyID))

	require.NoError(t, svc.ReportLost(ctx, copyID))

	stats, err := svc.GetStats(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, &Stats{TotalCopies: 2, AvailableCopies: 1, IssuedCopies: 0}, stats)

	err = svc.ReportLost(ctx, copyID)
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed, "a copy can only be written off once")
}

func TestRetireItemBlockedByOpenLoans(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "isbn", "Title", "Author", 1)
	require.NoError(t, err)

	memberID := uuid.New()
	_, err = db.Exec(`
		INSERT INTO members (id, email, name) VALUES ($1, $2, 'Borrower')
	`, memberID, memberID.String()+"@test.local")
	require.NoError(t, err)

	var copyID uuid.UUID
	require.NoError(t, db.QueryRow(`SELECT id FROM copies WHERE item_id = $1`, item.ID).Scan(&copyID))
	_, err = db.Exec(`
		INSERT INTO lending_records (id, member_id, copy_id, item_id, issue_date, due_date, status)
		VALUES ($1, $2, $3, $4, NOW(), NOW() + INTERVAL '14 days', 'ISSUED')
	`, uuid.New(), memberID, copyID, item.ID)
	require.NoError(t, err)

	err = svc.RetireItem(ctx, item.ID)
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)

	_, err = db.Exec(`UPDATE lending_records SET status = 'RETURNED', return_date = NOW()`)
	require.NoError(t, err)

	require.NoError(t, svc.RetireItem(ctx, item.ID))
	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "retired", got.Status)
}

func TestSearchMatchesTitleAndAuthor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "isbn-1", "The Go Programming Language", "Donovan", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "isbn-2", "Database Internals", "Petrov", 1)
	require.NoError(t, err)

	byTitle, err := svc.Search(ctx, "programming")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "The Go Programming Language", byTitle[0].Title)

	byAuthor, err := svc.Search(ctx, "petrov")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Database Internals", byAuthor[0].Title)
}

func TestMutationsLeaveAuditClean(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "isbn", "Title", "Author", 4)
	require.NoError(t, err)
	_, err = svc.AddCopies(ctx, item.ID, 3)
	require.NoError(t, err)
	_, err = svc.RemoveCopies(ctx, item.ID, 2)
	require.NoError(t, err)

	findings, err := audit.New(db).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
