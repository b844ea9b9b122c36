// internal/eventlog/eventlog_test.go
package eventlog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstack/internal/postgres/postgrestest"
)

func TestAppendCommitsWithCallerTx(t *testing.T) {
	db := postgrestest.Connect(t)
	log := New(db)
	ctx := context.Background()
	aggregateID := uuid.New()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, tx, aggregateID, "item", "ItemAdded", map[string]string{"title": "Dune"}))
	require.NoError(t, tx.Commit())

	events, err := log.Stream(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, aggregateID, events[0].AggregateID)
	assert.Equal(t, "ItemAdded", events[0].EventType)
	assert.JSONEq(t, `{"title": "Dune"}`, string(events[0].EventData))
}

func TestAppendRollsBackWithCallerTx(t *testing.T) {
	db := postgrestest.Connect(t)
	log := New(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, tx, uuid.New(), "item", "ItemAdded", nil))
	require.NoError(t, tx.Rollback())

	events, err := log.Stream(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events, "events must not outlive a rolled-back state change")
}

func TestStreamPagination(t *testing.T) {
	db := postgrestest.Connect(t)
	log := New(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, tx, uuid.New(), "item", "ItemAdded", nil))
	}
	require.NoError(t, tx.Commit())

	first, err := log.Stream(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := log.Stream(ctx, first[2].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Greater(t, rest[0].ID, first[2].ID)
}
