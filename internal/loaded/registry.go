package loaded

import (
	"sort"
	"sync"
)

// Registry is a concurrency-safe set of package names.
type Registry struct {
	keys sync.Map // Key: package name, Value: struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

var inProcess = New()

// InProcess returns the registry shared by everything in this process.
func InProcess() *Registry {
	return inProcess
}

// MarkLoaded adds key if it is absent. It returns true only for the call that
// performed the insertion.
func (r *Registry) MarkLoaded(key string) bool {
	_, alreadyLoaded := r.keys.LoadOrStore(key, struct{}{})
	return !alreadyLoaded
}

// Unmark removes key. Removing an absent key is a no-op.
func (r *Registry) Unmark(key string) {
	r.keys.Delete(key)
}

// Contains reports whether key is currently marked.
func (r *Registry) Contains(key string) bool {
	_, ok := r.keys.Load(key)
	return ok
}

// Keys returns a sorted copy of the marked package names.
func (r *Registry) Keys() []string {
	var keys []string
	r.keys.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Len returns the number of marked packages.
func (r *Registry) Len() int {
	n := 0
	r.keys.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
