package hsm

import "github.com/enetx/g"

// Engine is the resolution surface shared by Machine and NestedMachine.
type Engine interface {
	Name() g.String
	Initial() g.String
	State(name g.String) (*State, error)
	Resolve(state *State, event *Event, host Host) (*Transition, error)
	ToDOT() g.String
	MarshalJSON() ([]byte, error)

	base() *Machine
}

// Host is an object driven by a machine. It keeps the qualified name of its
// current state; the machine itself holds no per-host data.
type Host interface {
	Machine() Engine
	State() g.String
	SetState(g.String)
}

// Accessor exposes named attributes of a host to flag conditions and named
// before/after actions. A dotted path is resolved one segment at a time, so
// intermediate values must implement Accessor as well (or be a map).
type Accessor interface {
	Attr(name g.String) (any, bool)
}

// MachineOf returns the Machine behind e, which is where hooks are registered.
func MachineOf(e Engine) *Machine { return e.base() }

// Interface compliance checks.
var (
	_ Engine   = (*Machine)(nil)
	_ Engine   = (*NestedMachine)(nil)
	_ Host     = (*Object)(nil)
	_ Accessor = (*Object)(nil)
)
