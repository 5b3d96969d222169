package hsm

import (
	"sync"

	"github.com/enetx/g"
	"go.uber.org/zap"
)

const (
	// Wildcard as a transition origin matches any current state.
	Wildcard g.String = "*"
	// SwitchEvent is the reserved event registered for every state. Dispatching it
	// with Input equal to a state name jumps straight to that state.
	SwitchEvent g.String = "__switch__"
	// InitializeEvent is the event passed to enter hooks by Initialize.
	InitializeEvent g.String = "initialize"
	// ReinitEvent is the event passed to local handlers by Reinitialize.
	ReinitEvent g.String = "reinit"
	// DefaultSeparator joins parent and child names of nested states.
	DefaultSeparator g.String = "."

	// topStateKey holds the least common ancestor computed by the exit phase.
	topStateKey g.String = "top_state"
)

type (
	// Callback is a local event handler or a before/after transition action.
	Callback func(state *State, event *Event, host Host) error
	// EnterHook is called when a state is entered. from is the state being left,
	// nil when the host is initialized.
	EnterHook func(state *State, event *Event, host Host, from *State) error
	// ExitHook is called when a state is left. to is the destination state.
	ExitHook func(state *State, event *Event, host Host, to *State) error
	// Predicate is a transition condition.
	Predicate func(state *State, event *Event, host Host) bool
	// TransitionHook is a machine-wide callback invoked once a transition has
	// completed, after the transition's own after action.
	TransitionHook func(from, to *State, event *Event, host Host) error
	// DispatchHook observes the outcome of every Dispatch call. transition is nil
	// when the event was ignored or failed before a transition was selected.
	DispatchHook func(event *Event, from *State, transition *Transition, err error)

	// Option configures a Machine at construction.
	Option func(*Machine)

	// transitionKey indexes direct transitions by origin state and event.
	transitionKey struct {
		state g.String
		event g.String
	}

	// Machine owns the states and transition tables of one state machine
	// definition. It is built once and then shared by many hosts.
	Machine struct {
		name        g.String
		initial     g.String
		separator   g.String
		nested      bool
		states      g.Map[g.String, *State]
		transitions g.Map[transitionKey, g.Slice[*Transition]]
		wildcards   g.Map[g.String, g.Slice[*Transition]]

		onTransition g.Slice[TransitionHook]
		onDispatch   g.Slice[DispatchHook]

		logger *zap.Logger
	}

	// NestedMachine is a Machine whose states form trees. Unhandled events bubble
	// to ancestor states and enter/exit hooks are bounded by the least common
	// ancestor of the source and target states.
	NestedMachine struct {
		*Machine
	}

	// SyncHost serializes dispatches to a single host.
	// The engine itself never locks; hosts shared between goroutines must be
	// wrapped so exit and enter phases of two events cannot interleave.
	SyncHost struct {
		host Host
		mu   sync.Mutex
	}
)

// WithLogger sets the logger used for dispatch tracing. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSeparator sets the separator used to build qualified nested state names.
func WithSeparator(sep g.String) Option {
	return func(m *Machine) {
		if sep != "" {
			m.separator = sep
		}
	}
}
