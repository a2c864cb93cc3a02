package loader

import "fmt"

// State is a step of a single InitModules call.
type State int

const (
	Unmarked State = iota
	Marking
	Marked
	DispatchSucceeded
	DispatchFailedFallback
	DispatchFailedFatal
)

var stateNames = map[State]string{
	Unmarked:               "unmarked",
	Marking:                "marking",
	Marked:                 "marked",
	DispatchSucceeded:      "dispatch_succeeded",
	DispatchFailedFallback: "dispatch_failed_fallback",
	DispatchFailedFatal:    "dispatch_failed_fatal",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == DispatchSucceeded || s == DispatchFailedFallback || s == DispatchFailedFatal
}

var validTransitions = map[State]map[State]bool{
	Unmarked: {Marking: true},
	Marking:  {Marked: true},
	Marked: {
		DispatchSucceeded:      true,
		DispatchFailedFallback: true,
		DispatchFailedFatal:    true,
	},
	DispatchSucceeded:      {},
	DispatchFailedFallback: {},
	DispatchFailedFatal:    {},
}

// ValidateTransition checks that from -> to is allowed.
func ValidateTransition(from, to State) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// Transition is passed to transition hooks.
type Transition struct {
	Package string
	From    State
	To      State
}
