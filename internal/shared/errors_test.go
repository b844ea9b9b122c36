// internal/shared/errors_test.go
package shared

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Errorf("NOT_FOUND", "item %s not found", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestErrorIsSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("issue copy: %w", ErrPreconditionFailed)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("%w: serialization failure", ErrTransient)))
	assert.False(t, Retryable(ErrPreconditionFailed))
	assert.False(t, Retryable(errors.New("plain error")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrNotFound:              http.StatusNotFound,
		ErrInvalidArgument:       http.StatusBadRequest,
		ErrPreconditionFailed:    http.StatusConflict,
		ErrInsufficientAvailable: http.StatusConflict,
		ErrForbidden:             http.StatusForbidden,
		ErrTransient:             http.StatusServiceUnavailable,
		errors.New("plain error"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), "status for %v", err)
	}

	wrapped := fmt.Errorf("outer: %w", Errorf("INSUFFICIENT_AVAILABLE", "only 2 left"))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
}
