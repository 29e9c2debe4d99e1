package terminal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfItsKind(t *testing.T) {
	tests := []struct {
		kind     Kind
		sentinel error
	}{
		{KindSpawnFailure, ErrSpawnFailure},
		{KindNotFound, ErrNotFound},
		{KindIOFailure, ErrIOFailure},
		{KindAlreadyTerminated, ErrAlreadyTerminated},
		{KindInvalidGeometry, ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := newError(tt.kind, "write", "sess_1", nil)

			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))

			for _, other := range tests {
				if other.kind != tt.kind {
					assert.NotErrorIs(t, err, other.sentinel)
				}
			}
		})
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("broken pipe")
	err := fmt.Errorf("handler: %w", newError(KindIOFailure, "write", "sess_1", cause))

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.Equal(t, KindIOFailure, KindOf(err))
	assert.Equal(t, "handler: terminal write sess_1: io_failure: broken pipe", err.Error())
}

func TestErrorMessageWithoutID(t *testing.T) {
	err := newError(KindSpawnFailure, "create", "", nil)
	assert.Equal(t, "terminal create: spawn_failure", err.Error())
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("other")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateCreated.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateExited.Terminal())
	assert.True(t, StateKilled.Terminal())
	assert.True(t, StateErrored.Terminal())
	assert.Equal(t, "unknown", State(42).String())
}

func TestValidateGeometry(t *testing.T) {
	assert.NoError(t, ValidateGeometry(1, 1))
	assert.NoError(t, ValidateGeometry(65535, 65535))
	assert.Error(t, ValidateGeometry(0, 24))
	assert.Error(t, ValidateGeometry(80, 0))
}
