// Package resbind associates application packages with their resource
// directories so that resources loaded from a directory can be attributed to
// the package that owns it.
//
// Binding is best-effort from the loader's point of view: the resource table
// only becomes usable once the host's resource manager is up, which can be
// after the first package has already been loaded.
package resbind

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrNotReady is returned by Bind before MarkReady was called.
	ErrNotReady = errors.New("resbind: resource table not initialized")
	// ErrEmptyResDir is returned when a package has no resource directory.
	ErrEmptyResDir = errors.New("resbind: empty resource directory")
)

// Binder binds a package name to its resource directory.
type Binder interface {
	Bind(packageName, resDir string) error
}

// Table is an in-memory Binder.
type Table struct {
	ready      atomic.Bool
	verifyDirs bool

	mu        sync.RWMutex
	byDir     map[string]string
	byPackage map[string]string
}

// Option configures a Table.
type Option func(*Table)

// WithVerifyDirs makes Bind require that the directory exists.
func WithVerifyDirs(verify bool) Option {
	return func(t *Table) { t.verifyDirs = verify }
}

// NewTable creates an empty, not yet ready table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		byDir:     make(map[string]string),
		byPackage: make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MarkReady allows subsequent Bind calls to succeed.
func (t *Table) MarkReady() {
	t.ready.Store(true)
}

// Ready reports whether MarkReady was called.
func (t *Table) Ready() bool {
	return t.ready.Load()
}

// Bind implements Binder. Rebinding a package replaces its previous directory.
func (t *Table) Bind(packageName, resDir string) error {
	if !t.ready.Load() {
		return ErrNotReady
	}
	if resDir == "" {
		return fmt.Errorf("%w for package %s", ErrEmptyResDir, packageName)
	}
	if t.verifyDirs {
		info, err := os.Stat(resDir)
		if err != nil {
			return fmt.Errorf("resbind: resource directory for %s: %w", packageName, err)
		}
		if !info.IsDir() && !strings.HasSuffix(resDir, ".apk") {
			return fmt.Errorf("resbind: resource path %s for %s is neither a directory nor an apk", resDir, packageName)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.byPackage[packageName]; ok && old != resDir {
		delete(t.byDir, old)
	}
	t.byDir[resDir] = packageName
	t.byPackage[packageName] = resDir
	return nil
}

// PackageForDir returns the package bound to resDir.
func (t *Table) PackageForDir(resDir string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pkg, ok := t.byDir[resDir]
	return pkg, ok
}

// DirForPackage returns the resource directory bound to packageName.
func (t *Table) DirForPackage(packageName string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	dir, ok := t.byPackage[packageName]
	return dir, ok
}
