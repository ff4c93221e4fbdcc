package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunStateSingleFlight(t *testing.T) {
	t.Parallel()

	var state RunState
	started := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	assert.True(t, state.TryBegin(started))
	assert.False(t, state.TryBegin(started.Add(time.Minute)), "overlapping runs are rejected")
	assert.Equal(t, started, state.LastRun(), "a rejected attempt does not move the marker")

	state.End()
	assert.True(t, state.TryBegin(started.Add(time.Hour)))
	assert.Equal(t, started.Add(time.Hour), state.LastRun())
}

func TestRunStateEndWithoutBegin(t *testing.T) {
	t.Parallel()

	var state RunState
	state.End()
	assert.True(t, state.TryBegin(time.Now()))
}
