package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/patchloader/internal/callback"
)

func TestRecordingModule_NamesPastNine(t *testing.T) {
	m := &RecordingModule{Name: "mod", Fail: make([]error, 12)}
	s := callback.NewSet()
	m.Register(s)
	require.Equal(t, 12, s.Len())

	lc := callback.NewLoadContext("a.b", "a.b", nil, nil)
	for _, cb := range s.Snapshot() {
		require.Nil(t, callback.Invoke(context.Background(), cb, lc))
	}
	ran := m.Ran()
	assert.Equal(t, "mod.9", ran[9])
	assert.Equal(t, "mod.10", ran[10])
	assert.Equal(t, "mod.11", ran[11])
}
