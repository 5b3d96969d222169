package hsm

import (
	"fmt"

	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// State is a node of a machine's topology. Nested states keep a link to their
// parent and own their children; the qualified name is frozen at creation.
type State struct {
	name      g.String
	local     g.String
	separator g.String
	initial   g.String

	parent   *State
	children g.Map[g.String, *State]

	onEnter  EnterHook
	onExit   ExitHook
	handlers g.Map[g.String, Callback]
}

// StateOption configures a State.
type StateOption func(*State)

// WithEnter sets the enter hook.
func WithEnter(hook EnterHook) StateOption { return func(s *State) { s.onEnter = hook } }

// WithExit sets the exit hook.
func WithExit(hook ExitHook) StateOption { return func(s *State) { s.onExit = hook } }

// WithHandler registers a local handler run whenever event is dispatched while
// the host is in this state, whether or not a transition follows.
func WithHandler(event g.String, cb Callback) StateOption {
	return func(s *State) { s.handlers[event] = cb }
}

// WithInitial records the default child of a composite state.
// Dispatch never drills down into it; entering the composite stops there.
func WithInitial(child g.String) StateOption { return func(s *State) { s.initial = child } }

// WithStateSeparator sets the separator for a root state. Children inherit the
// separator of their parent.
func WithStateSeparator(sep g.String) StateOption {
	return func(s *State) {
		if sep != "" {
			s.separator = sep
		}
	}
}

// NewState creates a root state.
func NewState(name g.String, opts ...StateOption) *State {
	s := &State{
		name:      name,
		local:     name,
		separator: DefaultSeparator,
		children:  g.NewMap[g.String, *State](),
		handlers:  g.NewMap[g.String, Callback](),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewNestedState creates a state under parent. Its name is the parent's name,
// the parent's separator and the local name joined together.
func NewNestedState(name g.String, parent *State, opts ...StateOption) *State {
	s := NewState(name, opts...)
	if parent == nil {
		return s
	}

	s.separator = parent.separator
	s.parent = parent
	s.name = parent.name + s.separator + name
	parent.children[name] = s

	return s
}

// Name returns the qualified name.
func (s *State) Name() g.String { return s.name }

// Local returns the name relative to the parent.
func (s *State) Local() g.String { return s.local }

// Separator returns the separator used to qualify children of this state.
func (s *State) Separator() g.String { return s.separator }

// Parent returns the parent state, nil for a root.
func (s *State) Parent() *State { return s.parent }

// Initial returns the default child name, if one was declared.
func (s *State) Initial() g.String { return s.initial }

// Child returns the child with the given local name.
func (s *State) Child(local g.String) (*State, bool) {
	c, ok := s.children[local]
	return c, ok
}

// Children returns the direct children ordered by local name.
func (s *State) Children() g.Slice[*State] {
	out := s.children.Values()
	out.SortBy(func(a, b *State) cmp.Ordering { return cmp.Cmp(a.local, b.local) })

	return out
}

// Handles reports whether this state has a local handler for event.
func (s *State) Handles(event g.String) bool {
	_, ok := s.handlers[event]
	return ok
}

// Ancestors returns the ancestors of s, root first, excluding s itself.
func (s *State) Ancestors() g.Slice[*State] {
	var out g.Slice[*State]
	for p := s.parent; p != nil; p = p.parent {
		out = append(out, p)
	}

	out.Reverse()
	return out
}

// IsComposite reports whether s has children.
func (s *State) IsComposite() bool { return len(s.children) > 0 }

func (s *State) String() string {
	return fmt.Sprintf("<State %s>", s.name)
}

// handle runs the local handler for event. Without one, the event bubbles to
// the parent while it propagates.
func (s *State) handle(event *Event, host Host) error {
	for st := s; st != nil; st = st.parent {
		if cb, ok := st.handlers[event.Name]; ok {
			return cb(st, event, host)
		}

		if !event.Propagate {
			break
		}
	}

	return nil
}

func (s *State) enter(event *Event, host Host, from *State) error {
	if s.onEnter == nil {
		return nil
	}

	return s.onEnter(s, event, host, from)
}

func (s *State) exit(event *Event, host Host, to *State) error {
	if s.onExit == nil {
		return nil
	}

	return s.onExit(s, event, host, to)
}

// copy returns s without links to other states.
func (s *State) copy() *State {
	c := *s
	c.parent = nil
	c.children = g.NewMap[g.String, *State]()
	c.handlers = g.NewMap[g.String, Callback]()

	for event, cb := range s.handlers {
		c.handlers[event] = cb
	}

	return &c
}

// LCA returns the deepest state that is a strict ancestor of both a and b, or
// nil when they share none. Both ancestor chains are walked from the root in
// lock-step, so a state is never its own common ancestor.
func LCA(a, b *State) *State {
	if a == nil || b == nil {
		return nil
	}

	left, right := a.Ancestors(), b.Ancestors()

	var top *State
	for i := 0; i < len(left) && i < len(right); i++ {
		if left[i] != right[i] {
			break
		}
		top = left[i]
	}

	return top
}
