package hsm

import (
	"fmt"

	"github.com/enetx/g"
)

// ErrNoState is returned when a referenced state is not registered in the machine.
type ErrNoState struct {
	State g.String
}

func (e *ErrNoState) Error() string {
	return fmt.Sprintf("hsm: no such state %q", e.State)
}

// ErrAlreadyHasState is returned when a state is registered twice without force.
type ErrAlreadyHasState struct {
	State g.String
}

func (e *ErrAlreadyHasState) Error() string {
	return fmt.Sprintf("hsm: state %q is already registered", e.State)
}

// ErrAlreadyHasInitialState is returned when the initial state is set twice without force.
type ErrAlreadyHasInitialState struct {
	// Initial is the initial state already in place.
	Initial g.String
	// State is the rejected candidate.
	State g.String
}

func (e *ErrAlreadyHasInitialState) Error() string {
	return fmt.Sprintf("hsm: initial state already set to %q, refusing %q", e.Initial, e.State)
}

// ErrInvalidState is returned when a value passed at registration is not a usable State.
type ErrInvalidState struct {
	Value  any
	Reason string
}

func (e *ErrInvalidState) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("hsm: invalid state %v: %s", e.Value, e.Reason)
	}

	return fmt.Sprintf("hsm: %T is not a valid state", e.Value)
}

// ErrInvalidTransition is returned when an event cannot be handled from the current
// state. Flat machines return it only for events created with RaiseInvalid; nested
// machines return it whenever no ancestor declares a transition for the event.
type ErrInvalidTransition struct {
	State g.String
	Event g.String
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("hsm: no transition for event %q from state %q", e.Event, e.State)
}

// ErrUnknownAttribute is returned when a flag condition or a named action refers to
// an attribute the host does not expose.
type ErrUnknownAttribute struct {
	Path g.String
}

func (e *ErrUnknownAttribute) Error() string {
	return fmt.Sprintf("hsm: host has no attribute %q", e.Path)
}
