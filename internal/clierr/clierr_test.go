package clierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(StoreError, cause, "updating task %s", "abc")

	assert.Equal(t, "updating task abc: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StoreError, err.Code)
}

func TestWrap_NilCause(t *testing.T) {
	err := Wrap(InvalidInput, nil, "bad %s", "input")
	assert.Equal(t, "bad input", err.Error())
	assert.NoError(t, err.Unwrap())
}

func TestHasCode(t *testing.T) {
	inner := New(InvalidTransition, "nope")
	wrapped := fmt.Errorf("moving: %w", inner)

	assert.True(t, HasCode(wrapped, InvalidTransition))
	assert.False(t, HasCode(wrapped, StoreError))
	assert.False(t, HasCode(errors.New("plain"), StoreError))
	assert.False(t, HasCode(nil, StoreError))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, New(InternalError, "boom").ExitCode())
	assert.Equal(t, 1, New(TaskNotFound, "missing").ExitCode())
}

func TestWithDetails(t *testing.T) {
	err := Newf(InvalidStatus, "invalid status %q", "XYZ").WithDetails(map[string]any{"status": "XYZ"})

	var target *Error
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "XYZ", target.Details["status"])
}

func TestSilentError(t *testing.T) {
	assert.Equal(t, "exit 3", (&SilentError{Code: 3}).Error())
}
