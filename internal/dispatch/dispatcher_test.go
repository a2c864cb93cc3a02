package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/failsink"
)

const instrumentation = "android.app.Instrumentation"

func newContext(cl callback.ClassLoader) *callback.LoadContext {
	lc := callback.NewLoadContext("com.example.app", "com.example.app", cl, &callback.AppInfo{PackageName: "com.example.app"})
	lc.IsFirstApplication = true
	return lc
}

func TestDispatchAll_InvokesInOrderAndContainsFailures(t *testing.T) {
	set := callback.NewSet()
	var calls []string
	record := func(name string, err error) func(context.Context, *callback.LoadContext) error {
		return func(context.Context, *callback.LoadContext) error {
			calls = append(calls, name)
			return err
		}
	}
	set.RegisterFunc("second", callback.PriorityDefault, record("second", errors.New("broken module")))
	set.RegisterFunc("first", callback.PriorityHighest, record("first", nil))
	set.RegisterFunc("third", callback.PriorityLowest, record("third", nil))

	rec := failsink.NewRecorder(nil)
	d := New(set, WithSink(rec), WithPreparer(NewDeoptimizer(instrumentation)))

	err := d.DispatchAll(context.Background(), newContext(callback.NewClassSet(instrumentation)))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, calls)
	require.Len(t, rec.Errors(), 1)
	var f *callback.Failure
	require.ErrorAs(t, rec.Errors()[0], &f)
	assert.Equal(t, "second", f.Callback)
}

func TestDispatchAll_RejectsInvalidContext(t *testing.T) {
	d := New(callback.NewSet())

	err := d.DispatchAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidContext)

	err = d.DispatchAll(context.Background(), &callback.LoadContext{})
	assert.ErrorIs(t, err, ErrInvalidContext)
	assert.False(t, IsClassResolution(err))
}

func TestDispatchAll_PrepareFailureStopsBeforeCallbacks(t *testing.T) {
	set := callback.NewSet()
	called := false
	set.RegisterFunc("module", callback.PriorityDefault, func(context.Context, *callback.LoadContext) error {
		called = true
		return nil
	})
	d := New(set, WithPreparer(NewDeoptimizer(instrumentation)), WithSink(failsink.NewRecorder(nil)))

	err := d.DispatchAll(context.Background(), newContext(callback.NewClassSet()))
	require.Error(t, err)
	assert.False(t, called, "no callback may run when preparation fails")

	var pe *PrepareError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "deoptimize", pe.Phase)
	assert.True(t, IsClassResolution(err))

	var cre *ClassResolutionError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, instrumentation, cre.Class)
}

func TestDispatchAll_MissingClassLoaderIsNotRecognized(t *testing.T) {
	d := New(callback.NewSet(), WithPreparer(NewDeoptimizer(instrumentation)))

	err := d.DispatchAll(context.Background(), newContext(nil))
	assert.ErrorIs(t, err, ErrNoClassLoader)
	assert.False(t, IsClassResolution(err))
}

func TestDispatchAll_UsesGlobalSinkByDefault(t *testing.T) {
	prev := failsink.Default()
	t.Cleanup(func() { failsink.SetDefault(prev) })
	rec := failsink.NewRecorder(nil)
	failsink.SetDefault(rec)

	set := callback.NewSet()
	set.RegisterFunc("panics", callback.PriorityDefault, func(context.Context, *callback.LoadContext) error {
		panic("module bug")
	})

	require.NoError(t, New(set).DispatchAll(context.Background(), newContext(nil)))
	assert.Len(t, rec.Errors(), 1)
}

func TestDeoptimizer(t *testing.T) {
	d := NewDeoptimizer("a.A", "b.B")
	assert.Equal(t, []string{"a.A", "b.B"}, d.Targets())

	assert.NoError(t, NewDeoptimizer().Prepare(context.Background(), newContext(nil)), "no targets means nothing to resolve")
	assert.NoError(t, d.Prepare(context.Background(), newContext(callback.NewClassSet("a.A", "b.B"))))

	err := d.Prepare(context.Background(), newContext(callback.NewClassSet("a.A")))
	var cre *ClassResolutionError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, "b.B", cre.Class)
}

func TestCallbacks_ReflectsSet(t *testing.T) {
	set := callback.NewSet()
	d := New(set)
	assert.Empty(t, d.Callbacks())

	set.RegisterFunc("late", callback.PriorityDefault, func(context.Context, *callback.LoadContext) error { return nil })
	require.Len(t, d.Callbacks(), 1)
	assert.Equal(t, "late", d.Callbacks()[0].Name)
}
