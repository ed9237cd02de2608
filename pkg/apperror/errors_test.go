package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized},
		{"permission denied", ErrPermissionDenied, http.StatusForbidden},
		{"already liked", ErrAlreadyLiked, http.StatusConflict},
		{"duplicate relationship", ErrDuplicateRelationship, http.StatusConflict},
		{"invalid input wrapped", fmt.Errorf("bind: %w", ErrInvalidInput), http.StatusBadRequest},
		{"network", ErrNetwork, http.StatusServiceUnavailable},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error code wins", New(http.StatusTeapot, "short and stout", ErrUnknown), http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatus(tt.err))
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "already_liked", Kind(ErrAlreadyLiked))
	assert.Equal(t, "duplicate_relationship", Kind(ErrDuplicateRelationship))
	assert.Equal(t, "already_exists", Kind(ErrAlreadyExists))
	assert.Equal(t, "invalid_input", Kind(Wrap(ErrInvalidInput, "content cannot be empty")))
	assert.Equal(t, "unknown", Kind(errors.New("boom")))
	assert.Equal(t, "", Kind(nil))
}

func TestWrapKeepsKindAndMessage(t *testing.T) {
	err := Wrapf(ErrNotFound, "post %s not found", "abc")

	assert.Equal(t, "post abc not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, err.Code)
}
