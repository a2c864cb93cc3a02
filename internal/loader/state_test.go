package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	valid := [][2]State{
		{Unmarked, Marking},
		{Marking, Marked},
		{Marked, DispatchSucceeded},
		{Marked, DispatchFailedFallback},
		{Marked, DispatchFailedFatal},
	}
	for _, tr := range valid {
		assert.NoError(t, ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	invalid := [][2]State{
		{Unmarked, Marked},
		{Marking, DispatchSucceeded},
		{DispatchSucceeded, Marked},
		{DispatchFailedFatal, Unmarked},
	}
	for _, tr := range invalid {
		assert.Error(t, ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	assert.Error(t, ValidateTransition(State(99), Marking))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "dispatch_failed_fallback", DispatchFailedFallback.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestState_IsTerminal(t *testing.T) {
	assert.False(t, Unmarked.IsTerminal())
	assert.False(t, Marked.IsTerminal())
	assert.True(t, DispatchSucceeded.IsTerminal())
	assert.True(t, DispatchFailedFallback.IsTerminal())
	assert.True(t, DispatchFailedFatal.IsTerminal())
}
