// Package dispatch invokes every registered load callback for one package
// load.
//
// Dispatch happens in two phases. The preparatory phase runs a Preparer,
// normally the Deoptimizer, which makes the code that modules are about to
// hook interceptable and needs classes of the loaded application to resolve.
// Only when preparation succeeds are callbacks invoked, in Set order. A
// callback failure is reported to the failure sink and never stops the loop.
//
// Errors returned by DispatchAll are therefore about the dispatch machinery
// itself: an invalid LoadContext or a failed preparatory phase. A class that
// cannot be resolved during preparation surfaces as *ClassResolutionError
// inside a *PrepareError, which callers can recognize with
// IsClassResolution.
package dispatch
