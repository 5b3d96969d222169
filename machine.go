// Package hsm provides a hierarchical state machine engine. A Machine declares
// flat or nested states and a table of guarded, event-triggered transitions;
// Dispatch delivers events to hosts associated with a machine and runs the
// local handler, before, exit, enter and after callbacks of the selected
// transition. It is built with types and utilities from the
// github.com/enetx/g library.
package hsm

import (
	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
	"go.uber.org/zap"
)

// NewMachine creates an empty flat machine.
func NewMachine(name g.String, opts ...Option) *Machine {
	m := &Machine{
		name:         name,
		separator:    DefaultSeparator,
		states:       g.NewMap[g.String, *State](),
		transitions:  g.NewMap[transitionKey, g.Slice[*Transition]](),
		wildcards:    g.NewMap[g.String, g.Slice[*Transition]](),
		onTransition: g.NewSlice[TransitionHook](),
		onDispatch:   g.NewSlice[DispatchHook](),
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Machine) base() *Machine { return m }

// Name returns the machine name.
func (m *Machine) Name() g.String { return m.name }

// Initial returns the initial state name, empty until set.
func (m *Machine) Initial() g.String { return m.initial }

// Separator returns the separator used for nested state names.
func (m *Machine) Separator() g.String { return m.separator }

// Logger returns the machine's logger.
func (m *Machine) Logger() *zap.Logger { return m.logger }

// HasState reports whether name is registered.
func (m *Machine) HasState(name g.String) bool {
	_, ok := m.states[name]
	return ok
}

// State returns the registered state called name.
func (m *Machine) State(name g.String) (*State, error) {
	s, ok := m.states[name]
	if !ok {
		return nil, &ErrNoState{State: name}
	}

	return s, nil
}

// States returns the sorted names of all registered states.
func (m *Machine) States() g.Slice[g.String] {
	names := m.states.Keys()
	names.SortBy(cmp.Cmp)

	return names
}

// Transitions returns a copy of the transitions registered from a state for an
// event. from may be Wildcard.
func (m *Machine) Transitions(from, event g.String) g.Slice[*Transition] {
	ts := m.transitions[transitionKey{state: from, event: event}]
	if from == Wildcard {
		ts = m.wildcards[event]
	}

	return ts.Clone()
}

// AddState registers state under name. A nil state is replaced by a fresh one.
// Every state also receives a wildcard SwitchEvent transition, so it can be
// reached with Switch regardless of the current state.
func (m *Machine) AddState(name g.String, state *State, force bool) error {
	if state == nil {
		state = NewState(name, WithStateSeparator(m.separator))
	}

	if err := m.validateAddState(name, state, force); err != nil {
		return err
	}

	if old, ok := m.states[name]; ok && old != state {
		replace(old, state)
	}

	m.states[name] = state

	for _, t := range m.wildcards[SwitchEvent] {
		if t.To == name {
			return nil
		}
	}

	return m.AddTransition(T(Wildcard, name, SwitchEvent))
}

// replace hands the tree links of old over to its successor. Children the
// successor does not declare itself are moved under it, and the parent's entry
// is repointed, so no registered state keeps a link to old.
func replace(old, state *State) {
	for local, child := range old.children {
		if _, ok := state.children[local]; ok {
			continue
		}

		child.parent = state
		state.children[local] = child
	}

	old.children = g.NewMap[g.String, *State]()

	if p := old.parent; p != nil && p.children[old.local] == old {
		if state.parent == p {
			p.children[old.local] = state
		} else {
			delete(p.children, old.local)
		}
	}
}

// AddStates registers a mix of bare names (string or g.String), StateDef
// records and *State values, then sets the initial state when one is given.
// Flat machines reject records with children.
func (m *Machine) AddStates(entries []any, initial g.String, force bool) error {
	states := make(g.Slice[*State], 0, len(entries))

	for _, entry := range entries {
		s, err := m.normalize(entry)
		if err != nil {
			return err
		}
		states = append(states, s)
	}

	return m.addAll(states, initial, force)
}

func (m *Machine) normalize(entry any) (*State, error) {
	switch e := entry.(type) {
	case string:
		return NewState(g.String(e), WithStateSeparator(m.separator)), nil
	case g.String:
		return NewState(e, WithStateSeparator(m.separator)), nil
	case StateDef:
		if len(e.Children) > 0 {
			return nil, &ErrInvalidState{Value: e.Name, Reason: "flat machines cannot hold children"}
		}
		return e.build(nil, m.separator), nil
	case *StateDef:
		if e == nil {
			return nil, &ErrInvalidState{Value: entry}
		}
		return m.normalize(*e)
	case *State:
		if e == nil {
			return nil, &ErrInvalidState{Value: entry}
		}
		return e, nil
	}

	return nil, &ErrInvalidState{Value: entry}
}

func (m *Machine) addAll(states g.Slice[*State], initial g.String, force bool) error {
	for _, s := range states {
		if err := m.AddState(s.name, s, force); err != nil {
			return err
		}
	}

	if initial != "" {
		return m.SetInitialState(initial, force)
	}

	return nil
}

func (m *Machine) validateAddState(name g.String, state *State, force bool) error {
	if state.name != name {
		return &ErrInvalidState{Value: state.name, Reason: "registered as " + string(name)}
	}

	if !m.nested && (state.parent != nil || state.IsComposite()) {
		return &ErrInvalidState{Value: name, Reason: "nested states need a nested machine"}
	}

	if state.parent != nil && m.states[state.parent.name] != state.parent {
		return &ErrInvalidState{Value: name, Reason: "parent " + string(state.parent.name) + " is not registered"}
	}

	if m.HasState(name) && !force {
		return &ErrAlreadyHasState{State: name}
	}

	return nil
}

// SetInitialState sets the state new hosts start in.
func (m *Machine) SetInitialState(name g.String, force bool) error {
	if !m.HasState(name) {
		return &ErrNoState{State: name}
	}

	if m.initial != "" && !force {
		return &ErrAlreadyHasInitialState{Initial: m.initial, State: name}
	}

	m.initial = name
	return nil
}

// AddTransition registers a transition. Both endpoints must already exist,
// except that From may be Wildcard. Conditions are evaluated in order and all
// of them must hold; several transitions for the same state and event are tried
// in registration order and the first one that holds is taken.
func (m *Machine) AddTransition(def TransitionDef) error {
	if def.From != Wildcard && !m.HasState(def.From) {
		return &ErrNoState{State: def.From}
	}

	if !m.HasState(def.To) {
		return &ErrNoState{State: def.To}
	}

	t := &Transition{
		From:       def.From,
		To:         def.To,
		Event:      def.Event,
		Conditions: def.Conditions.Clone(),
		Before:     def.Before,
		After:      def.After,
	}

	if def.From == Wildcard && def.Event == SwitchEvent {
		t.Conditions = append(t.Conditions, switchCondition(def.To))
	}

	if def.From == Wildcard {
		m.wildcards[def.Event] = append(m.wildcards[def.Event], t)
		return nil
	}

	key := transitionKey{state: def.From, event: def.Event}
	m.transitions[key] = append(m.transitions[key], t)

	return nil
}

// AddTransitions registers defs in order, stopping at the first failure.
// Transitions registered before the failure are kept.
func (m *Machine) AddTransitions(defs ...TransitionDef) error {
	for _, def := range defs {
		if err := m.AddTransition(def); err != nil {
			return err
		}
	}

	return nil
}

// OnTransition registers a hook run after every completed transition.
func (m *Machine) OnTransition(hook TransitionHook) *Machine {
	m.onTransition.Push(hook)
	return m
}

// OnDispatch registers a hook run at the end of every dispatch.
func (m *Machine) OnDispatch(hook DispatchHook) *Machine {
	m.onDispatch.Push(hook)
	return m
}

// Resolve selects the transition to take for event while in state. Direct
// transitions of the state are tried before wildcard ones. When none are
// declared the event is ignored, unless it was created with RaiseInvalid.
func (m *Machine) Resolve(state *State, event *Event, host Host) (*Transition, error) {
	candidates := m.candidates(state.name, event.Name)
	if len(candidates) == 0 {
		if event.RaiseInvalidTransition {
			return nil, &ErrInvalidTransition{State: state.name, Event: event.Name}
		}
		return nil, nil
	}

	return selectTransition(candidates, state, event, host)
}

// candidates returns direct transitions of the state followed by wildcard ones.
func (m *Machine) candidates(state, event g.String) g.Slice[*Transition] {
	direct := m.transitions[transitionKey{state: state, event: event}]
	wild := m.wildcards[event]

	switch {
	case len(wild) == 0:
		return direct
	case len(direct) == 0:
		return wild
	}

	out := make(g.Slice[*Transition], 0, len(direct)+len(wild))
	out = append(out, direct...)

	return append(out, wild...)
}

// exitState runs exit hooks from state up to, but not including, the least
// common ancestor with to. The ancestor is left in the event cargo for the
// enter phase and the host has no current state until it completes.
func (m *Machine) exitState(state *State, event *Event, host Host, to *State) error {
	if err := state.exit(event, host, to); err != nil {
		return err
	}

	top := LCA(state, to)
	for s := state.parent; s != nil && s != top; s = s.parent {
		if err := s.exit(event, host, to); err != nil {
			return err
		}
	}

	host.SetState("")
	event.setTopState(top)

	return nil
}

// enterState runs enter hooks from below the least common ancestor down to
// state, outermost first, then records state as the host's current state.
func (m *Machine) enterState(state *State, event *Event, host Host, from *State) error {
	top, ok := event.topState()
	if !ok {
		top = LCA(state, from)
	}

	path := g.Slice[*State]{state}
	for s := state.parent; s != nil && s != top; s = s.parent {
		path = append(path, s)
	}

	for i := len(path) - 1; i >= 0; i-- {
		if err := path[i].enter(event, host, from); err != nil {
			return err
		}
	}

	host.SetState(state.name)

	return nil
}

// Clone returns a machine with the same definition and no shared mutable
// structure. Callbacks and predicates are shared, states and transition
// descriptors are copied.
func (m *Machine) Clone() *Machine {
	c := &Machine{
		name:         m.name,
		initial:      m.initial,
		separator:    m.separator,
		nested:       m.nested,
		states:       g.NewMap[g.String, *State](),
		transitions:  g.NewMap[transitionKey, g.Slice[*Transition]](),
		wildcards:    g.NewMap[g.String, g.Slice[*Transition]](),
		onTransition: m.onTransition.Clone(),
		onDispatch:   m.onDispatch.Clone(),
		logger:       m.logger,
	}

	copies := make(map[*State]*State, len(m.states))
	for name, s := range m.states {
		copies[s] = s.copy()
		c.states[name] = copies[s]
	}

	for orig, s := range copies {
		if p, ok := copies[orig.parent]; ok {
			s.parent = p
		}

		for local, child := range orig.children {
			if cc, ok := copies[child]; ok {
				s.children[local] = cc
			}
		}
	}

	for key, ts := range m.transitions {
		c.transitions[key] = cloneTransitions(ts)
	}

	for event, ts := range m.wildcards {
		c.wildcards[event] = cloneTransitions(ts)
	}

	return c
}

func cloneTransitions(ts g.Slice[*Transition]) g.Slice[*Transition] {
	out := make(g.Slice[*Transition], 0, len(ts))
	for _, t := range ts {
		out = append(out, t.clone())
	}

	return out
}

// StateDef is the record form of a state accepted by AddStates. Children are
// entries of the same kinds AddStates accepts and need a NestedMachine.
type StateDef struct {
	Name     g.String
	OnEnter  EnterHook
	OnExit   ExitHook
	Handlers g.Map[g.String, Callback]
	Initial  g.String
	Children []any
}

func (d StateDef) build(parent *State, sep g.String) *State {
	opts := []StateOption{
		WithStateSeparator(sep),
		WithEnter(d.OnEnter),
		WithExit(d.OnExit),
		WithInitial(d.Initial),
	}

	for event, cb := range d.Handlers {
		opts = append(opts, WithHandler(event, cb))
	}

	return NewNestedState(d.Name, parent, opts...)
}

// splitQualified splits a qualified name into its parent part and local name.
func splitQualified(name, sep g.String) (g.String, g.String, bool) {
	idx := name.LastIndex(sep)
	if idx <= 0 || idx+sep.Len() >= name.Len() {
		return "", name, false
	}

	return name[:idx], name[idx+len(sep):], true
}
