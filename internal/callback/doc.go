// Package callback defines what a module hands to the loader and what the
// loader hands back: the LoadContext describing a freshly loaded package, the
// LoadHandler capability modules implement, and the ordered Set that holds
// registered callbacks.
//
// A Set is read far more often than it is written. Writers take a mutex and
// publish a new sorted slice through an atomic pointer; readers load the
// pointer and iterate without locking, so a dispatch in progress never sees a
// half-applied registration.
package callback
