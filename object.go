package hsm

import "github.com/enetx/g"

// Object is a ready-made Host whose attributes live in a map. Attributes are
// visible to flag conditions and named actions; a Callback or Predicate stored
// as an attribute can be referenced by name from a transition.
type Object struct {
	machine Engine
	state   g.String
	attrs   g.Map[g.String, any]
}

// NewObject creates a host for machine with the given attributes and initializes it.
func NewObject(machine Engine, attrs g.Map[g.String, any]) (*Object, error) {
	o := &Object{
		machine: machine,
		attrs:   g.NewMap[g.String, any](),
	}

	for k, v := range attrs {
		o.attrs[k] = v
	}

	if err := Initialize(o); err != nil {
		return nil, err
	}

	return o, nil
}

// Machine returns the machine driving the object.
func (o *Object) Machine() Engine { return o.machine }

// State returns the qualified name of the current state.
func (o *Object) State() g.String { return o.state }

// SetState records the current state. It is called by the engine.
func (o *Object) SetState(s g.String) { o.state = s }

// Attr returns an attribute.
func (o *Object) Attr(name g.String) (any, bool) {
	v, ok := o.attrs[name]
	return v, ok
}

// Set stores an attribute.
func (o *Object) Set(name g.String, value any) *Object {
	o.attrs[name] = value
	return o
}

// Dispatch delivers event to the object.
func (o *Object) Dispatch(event *Event) error { return Dispatch(o, event) }
