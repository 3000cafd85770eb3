package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/listenupapp/plantcare/internal/store"
)

func TestError_Error(t *testing.T) {
	assert.Equal(t, "store is closed", store.ErrClosed.Error())

	cause := errors.New("disk full")
	err := store.ErrCorrupt.WithCause(cause)
	assert.Contains(t, err.Error(), "persisted state is malformed")
	assert.Contains(t, err.Error(), "disk full")
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("row version mismatch")
	err := fmt.Errorf("save plants: %w", store.ErrRevisionConflict.WithCause(cause))

	assert.ErrorIs(t, err, store.ErrRevisionConflict)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, store.ErrClosed)

	var storeErr *store.Error
	if assert.ErrorAs(t, err, &storeErr) {
		assert.Equal(t, http.StatusConflict, storeErr.HTTPCode())
	}
}
