package hsm

import "github.com/enetx/g"

// NewNestedMachine creates an empty hierarchical machine.
func NewNestedMachine(name g.String, opts ...Option) *NestedMachine {
	m := NewMachine(name, opts...)
	m.nested = true

	return &NestedMachine{Machine: m}
}

// AddState registers state under name. A nil state is created from name; when
// name is qualified and its parent part is registered, the new state becomes
// a child of that parent.
func (m *NestedMachine) AddState(name g.String, state *State, force bool) error {
	if state == nil {
		if m.HasState(name) && !force {
			return &ErrAlreadyHasState{State: name}
		}
		state = m.createState(name)
	}

	return m.Machine.AddState(name, state, force)
}

func (m *NestedMachine) createState(name g.String) *State {
	if parentName, local, ok := splitQualified(name, m.separator); ok {
		if parent, found := m.states[parentName]; found {
			return NewNestedState(local, parent)
		}
	}

	return NewState(name, WithStateSeparator(m.separator))
}

// AddStates registers entries the way Machine.AddStates does, except that
// StateDef children are created under their parent with qualified names.
// Parents are registered before their children.
func (m *NestedMachine) AddStates(entries []any, initial g.String, force bool) error {
	states, err := m.traverse(entries, nil)
	if err != nil {
		return err
	}

	seen := g.NewSet[g.String]()
	for _, s := range states {
		if seen.Contains(s.name) {
			return &ErrAlreadyHasState{State: s.name}
		}
		seen.Insert(s.name)
	}

	return m.addAll(states, initial, force)
}

func (m *NestedMachine) traverse(entries []any, parent *State) (g.Slice[*State], error) {
	var out g.Slice[*State]

	for _, entry := range entries {
		switch e := entry.(type) {
		case string:
			out = append(out, m.child(g.String(e), parent))
		case g.String:
			out = append(out, m.child(e, parent))
		case StateDef:
			s := e.build(parent, m.separator)
			out = append(out, s)

			children, err := m.traverse(e.Children, s)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		case *StateDef:
			if e == nil {
				return nil, &ErrInvalidState{Value: entry}
			}

			nested, err := m.traverse([]any{*e}, parent)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case *State:
			if e == nil {
				return nil, &ErrInvalidState{Value: entry}
			}
			out = append(out, e)
		default:
			return nil, &ErrInvalidState{Value: entry}
		}
	}

	return out, nil
}

func (m *NestedMachine) child(name g.String, parent *State) *State {
	if parent == nil {
		return NewState(name, WithStateSeparator(m.separator))
	}

	return NewNestedState(name, parent)
}

// Resolve selects the transition to take for event while in state. When the
// state declares no transition for the event, its ancestors are searched in
// turn, so children inherit the transitions of their parents. Unlike the flat
// machine, running out of ancestors always fails with ErrInvalidTransition.
// TODO: make the missing-transition policy match Machine.Resolve and honor
// RaiseInvalidTransition here as well.
func (m *NestedMachine) Resolve(state *State, event *Event, host Host) (*Transition, error) {
	target := state

	for {
		candidates := m.candidates(target.name, event.Name)
		if len(candidates) > 0 {
			return selectTransition(candidates, state, event, host)
		}

		if target.parent == nil {
			return nil, &ErrInvalidTransition{State: state.name, Event: event.Name}
		}

		target = target.parent
	}
}

// Clone returns an independent copy of the machine.
func (m *NestedMachine) Clone() *NestedMachine {
	return &NestedMachine{Machine: m.Machine.Clone()}
}
