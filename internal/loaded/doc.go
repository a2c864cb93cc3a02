// Package loaded records which application packages have already gone
// through module initialization in the current process.
//
// # Purpose
//
// Module callbacks and host hooks consult this set to avoid running
// package-level initialization twice. The module-load coordinator is the only
// writer: it marks a package before dispatch and removes the mark again when
// dispatch fails in a way that should allow a later retry.
//
// # Concurrency Model
//
// The set is backed by sync.Map. MarkLoaded is an atomic insert-if-absent
// (LoadOrStore), so exactly one of several concurrent callers for the same key
// observes true. Different keys never contend on a global lock.
//
// # Lifetime
//
// InProcess returns the process-wide instance, which lives until the process
// exits. Tests and embedders that need isolation build their own with New.
package loaded
