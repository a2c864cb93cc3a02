package callback

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Module is the interface compiled-in modules implement to add their
// callbacks to a Set.
type Module interface {
	Register(s *Set)
}

// Set is an ordered collection of callbacks: priority descending, ties in
// registration order. The zero value is an empty Set ready to use.
type Set struct {
	mu   sync.Mutex
	seq  uint64
	snap atomic.Pointer[[]*Callback]
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{}
}

func (s *Set) load() []*Callback {
	if p := s.snap.Load(); p != nil {
		return *p
	}
	return nil
}

// Register adds a handler under a unique name. Registering the same name twice
// or a nil handler is a programming error and panics.
func (s *Set) Register(name string, h LoadHandler, priority int) {
	if h == nil {
		panic(fmt.Sprintf("callback '%s' registered with nil handler", name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.load()
	for _, cb := range old {
		if cb.Name == name {
			panic(fmt.Sprintf("callback with name '%s' already registered", name))
		}
	}

	s.seq++
	priority = clampPriority(priority)
	next := make([]*Callback, len(old), len(old)+1)
	copy(next, old)
	next = append(next, &Callback{Name: name, Priority: priority, Handler: h, seq: s.seq})
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].Priority != next[j].Priority {
			return next[i].Priority > next[j].Priority
		}
		return next[i].seq < next[j].seq
	})

	slog.Debug("Registering load callback.", "name", name, "priority", priority)
	s.snap.Store(&next)
}

// RegisterFunc is shorthand for Register with a HandlerFunc.
func (s *Set) RegisterFunc(name string, priority int, fn func(ctx context.Context, lc *LoadContext) error) {
	s.Register(name, HandlerFunc(fn), priority)
}

// Unregister removes the callback called name and reports whether it existed.
func (s *Set) Unregister(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.load()
	next := make([]*Callback, 0, len(old))
	for _, cb := range old {
		if cb.Name != name {
			next = append(next, cb)
		}
	}
	if len(next) == len(old) {
		return false
	}
	s.snap.Store(&next)
	return true
}

// Snapshot returns the callbacks in dispatch order. The slice is shared and
// must not be modified.
func (s *Set) Snapshot() []*Callback {
	return s.load()
}

// Len returns the number of registered callbacks.
func (s *Set) Len() int {
	return len(s.load())
}

func clampPriority(p int) int {
	switch {
	case p > PriorityHighest:
		return PriorityHighest
	case p < PriorityLowest:
		return PriorityLowest
	default:
		return p
	}
}
