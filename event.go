package hsm

import (
	"fmt"

	"github.com/enetx/g"
	"github.com/google/uuid"
)

// Event is delivered to a host by Dispatch. It lives for a single dispatch.
// Input is the payload read by conditions and callbacks. Cargo is scratch space
// shared by every callback of the dispatch; the engine itself uses it to carry
// the least common ancestor from the exit phase to the enter phase.
type Event struct {
	ID    string
	Name  g.String
	Input any

	// Propagate lets local handlers bubble to ancestor states when the current
	// state has none for this event.
	Propagate bool
	// RaiseInvalidTransition makes a flat machine fail with ErrInvalidTransition
	// instead of ignoring an event it has no transitions for.
	RaiseInvalidTransition bool

	Cargo g.Map[g.String, any]
}

// EventOption configures an Event.
type EventOption func(*Event)

// NewEvent creates an event that propagates and is silently ignored when unhandled.
func NewEvent(name g.String, opts ...EventOption) *Event {
	e := &Event{
		ID:        uuid.NewString(),
		Name:      name,
		Propagate: true,
		Cargo:     g.NewMap[g.String, any](),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Input sets the event payload.
func Input(v any) EventOption { return func(e *Event) { e.Input = v } }

// NoPropagate keeps local handlers from bubbling to ancestor states.
func NoPropagate() EventOption { return func(e *Event) { e.Propagate = false } }

// RaiseInvalid makes the event fail when no transition is declared for it.
func RaiseInvalid() EventOption { return func(e *Event) { e.RaiseInvalidTransition = true } }

// With stores a value in the event's cargo.
func With(key g.String, value any) EventOption {
	return func(e *Event) {
		if e.Cargo == nil {
			e.Cargo = g.NewMap[g.String, any]()
		}
		e.Cargo[key] = value
	}
}

// Switch returns the reserved event that forces a jump to the named state.
func Switch(to g.String) *Event {
	return NewEvent(SwitchEvent, Input(to))
}

func (e *Event) String() string {
	return fmt.Sprintf("<Event %s, input=%v>", e.Name, e.Input)
}

// topState returns the least common ancestor stored by the exit phase.
func (e *Event) topState() (*State, bool) {
	v, ok := e.Cargo[topStateKey]
	if !ok {
		return nil, false
	}

	top, ok := v.(*State)
	return top, ok
}

func (e *Event) setTopState(top *State) {
	if e.Cargo == nil {
		e.Cargo = g.NewMap[g.String, any]()
	}
	e.Cargo[topStateKey] = top
}
