package hsm

import (
	"fmt"

	"github.com/enetx/g"
)

// Action is a before or after callback of a transition: either a function or
// the name of a host attribute resolved at dispatch time.
type Action struct {
	fn   Callback
	name g.String
}

// Call wraps a callback.
func Call(fn Callback) Action { return Action{fn: fn} }

// Bind wraps a callback and gives it a name for descriptions.
func Bind(name g.String, fn Callback) Action { return Action{fn: fn, name: name} }

// Named refers to a host attribute holding a Callback.
func Named(name g.String) Action { return Action{name: name} }

// IsZero reports whether the action does nothing.
func (a Action) IsZero() bool { return a.fn == nil && a.name == "" }

func (a Action) String() string {
	switch {
	case a.name != "":
		return string(a.name)
	case a.fn != nil:
		return funcName(a.fn)
	}

	return ""
}

// resolve returns the callback to run, nil for a zero action.
func (a Action) resolve(host Host) (Callback, error) {
	if a.fn != nil || a.name == "" {
		return a.fn, nil
	}

	v, err := lookup(host, splitPath(a.name))
	if err != nil {
		return nil, err
	}

	switch fn := v.(type) {
	case Callback:
		return fn, nil
	case func(*State, *Event, Host) error:
		return fn, nil
	case nil:
		return nil, nil
	}

	return nil, &ErrUnknownAttribute{Path: a.name}
}

// Transition is a registered edge of the machine. From is a state name or Wildcard.
type Transition struct {
	From       g.String
	To         g.String
	Event      g.String
	Conditions g.Slice[Condition]
	Before     Action
	After      Action
}

// TransitionDef describes a transition to register.
type TransitionDef struct {
	From       g.String
	To         g.String
	Event      g.String
	Conditions g.Slice[Condition]
	Before     Action
	After      Action
}

// T is the positional form of a TransitionDef.
func T(from, to, event g.String, conds ...Condition) TransitionDef {
	return TransitionDef{From: from, To: to, Event: event, Conditions: conds}
}

// Guarded reports whether the transition has conditions.
func (t *Transition) Guarded() bool { return len(t.Conditions) > 0 }

func (t *Transition) String() string {
	return fmt.Sprintf("%s --(%s)--> %s", t.From, t.Event, t.To)
}

func (t *Transition) clone() *Transition {
	c := *t
	c.Conditions = t.Conditions.Clone()
	return &c
}

// selectTransition returns the first candidate whose whole condition chain holds.
func selectTransition(candidates g.Slice[*Transition], state *State, event *Event, host Host) (*Transition, error) {
	for _, t := range candidates {
		ok, err := conditionsMet(t.Conditions, state, event, host)
		if err != nil {
			return nil, err
		}

		if ok {
			return t, nil
		}
	}

	return nil, nil
}

// switchCondition holds when the event input names to.
func switchCondition(to g.String) Condition {
	return When(func(_ *State, event *Event, _ Host) bool {
		switch input := event.Input.(type) {
		case g.String:
			return input == to
		case string:
			return g.String(input) == to
		}

		return false
	})
}
