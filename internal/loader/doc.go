// Package loader runs module initialization for a package that the host has
// just finished loading into the process.
//
// The Coordinator marks the package in the loaded-package registry, binds its
// resource directory when possible, and dispatches every registered callback.
// It never uses the mark to skip work; the mark only tells it whether undoing
// the mark after a fatal failure is its job.
//
// # Failure policy
//
//   - Resource binding failures are logged and ignored.
//   - A class-resolution failure in the dispatcher's preparatory phase switches
//     to fallback dispatch: each callback is called directly, failures are
//     reported to the failure sink, and the package stays marked.
//   - Any other dispatch failure, including a panic, removes the mark if this
//     call created it and is handed back to the host.
//
// # States
//
//	Unmarked -> Marking -> Marked -> DispatchSucceeded
//	                              -> DispatchFailedFallback
//	                              -> DispatchFailedFatal
package loader
