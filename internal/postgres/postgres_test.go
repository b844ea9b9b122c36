// internal/postgres/postgres_test.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"bookstack/internal/shared"
)

func TestClassifyMapsContentionToTransient(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03", "57014"} {
		err := classify(&pq.Error{Code: pq.ErrorCode(code), Message: "conflict"})
		assert.ErrorIs(t, err, shared.ErrTransient, "code %s", code)
	}
}

func TestClassifyMapsDeadlineToTransient(t *testing.T) {
	err := classify(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, shared.ErrTransient)
}

func TestClassifyLeavesDomainErrorsAlone(t *testing.T) {
	err := classify(shared.Errorf("PRECONDITION_FAILED", "copy not available"))
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)
	assert.NotErrorIs(t, err, shared.ErrTransient)
}

func TestClassifyLeavesPlainErrorsAlone(t *testing.T) {
	plain := errors.New("column does not exist")
	assert.Equal(t, plain, classify(plain))

	constraint := &pq.Error{Code: "23505", Message: "duplicate key"}
	assert.NotErrorIs(t, classify(constraint), shared.ErrTransient)
}
