package model

import "fmt"

// RequestState represents the lifecycle state of a parking request.
type RequestState string

const (
	// StateRequested is the initial state: created, no slot bound.
	StateRequested RequestState = "REQUESTED"

	// StateAllocated means a slot has been bound but not yet occupied.
	StateAllocated RequestState = "ALLOCATED"

	// StateOccupied means the vehicle has arrived at the bound slot.
	StateOccupied RequestState = "OCCUPIED"

	// StateReleased means the vehicle left and the slot was freed. Terminal.
	StateReleased RequestState = "RELEASED"

	// StateCancelled means the request was cancelled. Terminal.
	StateCancelled RequestState = "CANCELLED"
)

// allowedTransitions is the lifecycle transition table: source state to the
// ordered set of permitted destination states. Kept as data so the table is
// testable in isolation.
var allowedTransitions = map[RequestState][]RequestState{
	StateRequested: {StateAllocated, StateCancelled},
	StateAllocated: {StateOccupied, StateCancelled},
	StateOccupied:  {StateReleased},
	StateReleased:  {},
	StateCancelled: {},
}

// States lists all request states in lifecycle order.
func States() []RequestState {
	return []RequestState{
		StateRequested, StateAllocated, StateOccupied, StateReleased, StateCancelled,
	}
}

// CanTransition reports whether the table permits from -> to.
func CanTransition(from, to RequestState) bool {
	for _, dst := range allowedTransitions[from] {
		if dst == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns a copy of the permitted destinations for a state.
func AllowedFrom(from RequestState) []RequestState {
	dsts := allowedTransitions[from]
	out := make([]RequestState, len(dsts))
	copy(out, dsts)
	return out
}

// IsTerminal reports whether no further transition is permitted.
func (s RequestState) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0 && s.Validate() == nil
}

// Validate checks that the state is one of the five lifecycle states.
func (s RequestState) Validate() error {
	switch s {
	case StateRequested, StateAllocated, StateOccupied, StateReleased, StateCancelled:
		return nil
	default:
		return fmt.Errorf("invalid request state: %q", string(s))
	}
}
