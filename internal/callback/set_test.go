package callback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *LoadContext) error { return nil }

func names(cbs []*Callback) []string {
	out := make([]string, 0, len(cbs))
	for _, cb := range cbs {
		out = append(out, cb.Name)
	}
	return out
}

func TestSet_OrdersByPriorityThenRegistration(t *testing.T) {
	s := NewSet()
	s.RegisterFunc("low", PriorityLowest, noop)
	s.RegisterFunc("default-1", PriorityDefault, noop)
	s.RegisterFunc("high", PriorityHighest, noop)
	s.RegisterFunc("default-2", PriorityDefault, noop)

	assert.Equal(t, []string{"high", "default-1", "default-2", "low"}, names(s.Snapshot()))
}

func TestSet_ClampsPriority(t *testing.T) {
	s := NewSet()
	s.RegisterFunc("too-high", PriorityHighest+1, noop)
	s.RegisterFunc("too-low", PriorityLowest-1, noop)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, PriorityHighest, snap[0].Priority)
	assert.Equal(t, PriorityLowest, snap[1].Priority)
}

func TestSet_DuplicateNamePanics(t *testing.T) {
	s := NewSet()
	s.RegisterFunc("dup", PriorityDefault, noop)

	assert.Panics(t, func() { s.RegisterFunc("dup", PriorityDefault, noop) })
	assert.Panics(t, func() { s.Register("nil-handler", nil, PriorityDefault) })
	assert.Equal(t, 1, s.Len())
}

func TestSet_Unregister(t *testing.T) {
	s := NewSet()
	s.RegisterFunc("a", PriorityDefault, noop)
	s.RegisterFunc("b", PriorityDefault, noop)

	before := s.Snapshot()
	assert.True(t, s.Unregister("a"))
	assert.False(t, s.Unregister("a"))

	assert.Equal(t, []string{"b"}, names(s.Snapshot()))
	// Earlier snapshots are unaffected by later writes.
	assert.Equal(t, []string{"a", "b"}, names(before))
}

func TestSet_ConcurrentRegisterAndSnapshot(t *testing.T) {
	s := NewSet()
	const writers = 50
	var wg sync.WaitGroup

	wg.Add(writers * 2)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			s.RegisterFunc(string(rune('A'+i%26))+string(rune('a'+i/26)), i, noop)
		}(i)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			for j := 1; j < len(snap); j++ {
				if snap[j-1].Priority < snap[j].Priority {
					t.Errorf("snapshot out of order at %d", j)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers, s.Len())
}

func TestInvoke_ContainsErrorsAndPanics(t *testing.T) {
	lc := NewLoadContext("com.example.app", "com.example.app", NewClassSet(), nil)
	boom := errors.New("boom")

	ok := &Callback{Name: "ok", Handler: HandlerFunc(noop)}
	assert.Nil(t, Invoke(context.Background(), ok, lc))

	failing := &Callback{Name: "failing", Handler: HandlerFunc(func(context.Context, *LoadContext) error { return boom })}
	f := Invoke(context.Background(), failing, lc)
	require.NotNil(t, f)
	assert.ErrorIs(t, f, boom)
	assert.Equal(t, "failing", f.Callback)
	assert.Equal(t, "com.example.app", f.Package)
	assert.Nil(t, f.Panic)

	panicking := &Callback{Name: "panicking", Handler: HandlerFunc(func(context.Context, *LoadContext) error { panic("kaboom") })}
	f = Invoke(context.Background(), panicking, lc)
	require.NotNil(t, f)
	assert.Equal(t, "kaboom", f.Panic)
	assert.NotEmpty(t, f.Stack)
	assert.Contains(t, f.Error(), "panicked")

	panicErr := &Callback{Name: "panic-err", Handler: HandlerFunc(func(context.Context, *LoadContext) error { panic(boom) })}
	f = Invoke(context.Background(), panicErr, lc)
	require.NotNil(t, f)
	assert.ErrorIs(t, f, boom)
}

func TestClassSet_Resolve(t *testing.T) {
	cl := NewClassSet("android.app.Instrumentation")
	assert.NoError(t, cl.Resolve("android.app.Instrumentation"))
	assert.Error(t, cl.Resolve("android.app.Missing"))
}

func TestNewLoadContext_FreshIDs(t *testing.T) {
	a := NewLoadContext("p", "p", nil, nil)
	b := NewLoadContext("p", "p", nil, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.IsFirstApplication)
}

func TestSet_ZeroValueIsUsable(t *testing.T) {
	var s Set
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Unregister("missing"))

	s.RegisterFunc("a", PriorityDefault, noop)
	assert.Equal(t, []string{"a"}, names(s.Snapshot()))
}
