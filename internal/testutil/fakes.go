package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/vk/patchloader/internal/callback"
)

// FakeDispatcher records DispatchAll calls and fails or panics on demand.
// Callbacks come from Set, which may be nil.
type FakeDispatcher struct {
	Set   *callback.Set
	Err   error
	Panic any

	mu    sync.Mutex
	calls []*callback.LoadContext
}

// DispatchAll implements loader.Dispatcher.
func (d *FakeDispatcher) DispatchAll(_ context.Context, lc *callback.LoadContext) error {
	d.mu.Lock()
	d.calls = append(d.calls, lc)
	d.mu.Unlock()
	if d.Panic != nil {
		panic(d.Panic)
	}
	return d.Err
}

// Callbacks implements loader.Dispatcher.
func (d *FakeDispatcher) Callbacks() []*callback.Callback {
	if d.Set == nil {
		return nil
	}
	return d.Set.Snapshot()
}

// Calls returns the contexts DispatchAll was called with.
func (d *FakeDispatcher) Calls() []*callback.LoadContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*callback.LoadContext, len(d.calls))
	copy(out, d.calls)
	return out
}

// BindCall is one recorded FakeBinder.Bind call.
type BindCall struct {
	Package string
	ResDir  string
}

// FakeBinder records Bind calls and returns Err.
type FakeBinder struct {
	Err error

	mu    sync.Mutex
	calls []BindCall
}

// Bind implements resbind.Binder.
func (b *FakeBinder) Bind(packageName, resDir string) error {
	b.mu.Lock()
	b.calls = append(b.calls, BindCall{Package: packageName, ResDir: resDir})
	b.mu.Unlock()
	return b.Err
}

// Calls returns the recorded Bind calls.
func (b *FakeBinder) Calls() []BindCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BindCall, len(b.calls))
	copy(out, b.calls)
	return out
}

// RecordingModule registers one callback per entry of Fail under Name+index
// and records which of them ran. A non-nil Fail entry is returned by that
// callback.
type RecordingModule struct {
	Name     string
	Priority int
	Fail     []error

	mu  sync.Mutex
	ran []string
	lcs []*callback.LoadContext
}

// Register implements callback.Module.
func (m *RecordingModule) Register(s *callback.Set) {
	for i, failWith := range m.Fail {
		name := m.Name + "." + strconv.Itoa(i)
		failWith := failWith
		s.RegisterFunc(name, m.Priority, func(_ context.Context, lc *callback.LoadContext) error {
			m.mu.Lock()
			m.ran = append(m.ran, name)
			m.lcs = append(m.lcs, lc)
			m.mu.Unlock()
			return failWith
		})
	}
}

// Ran returns the names of the callbacks that were invoked, in order.
func (m *RecordingModule) Ran() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ran))
	copy(out, m.ran)
	return out
}

// Contexts returns the LoadContexts the callbacks received.
func (m *RecordingModule) Contexts() []*callback.LoadContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*callback.LoadContext, len(m.lcs))
	copy(out, m.lcs)
	return out
}
