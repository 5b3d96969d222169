package definition

import (
	"fmt"

	"github.com/enetx/g"
	"github.com/pkg/errors"

	"github.com/enetx/hsm"
)

// Hooks is the table of named callbacks a document may refer to.
// Callbacks serve both as local handlers and as before/after actions.
type Hooks struct {
	Enter      map[string]hsm.EnterHook
	Exit       map[string]hsm.ExitHook
	Callbacks  map[string]hsm.Callback
	Predicates map[string]hsm.Predicate
}

// ErrUnknownHook is returned when a document names a hook that is not in Hooks.
type ErrUnknownHook struct {
	Kind string
	Name string
}

func (e *ErrUnknownHook) Error() string {
	return fmt.Sprintf("definition: unknown %s hook %q", e.Kind, e.Name)
}

// Build creates the machine described by doc. Before and after actions missing
// from hooks.Callbacks are resolved on the host by name at dispatch time, and
// conditions missing from hooks.Predicates become host flags.
func Build(doc *Document, hooks Hooks, opts ...hsm.Option) (hsm.Engine, error) {
	if doc.Separator != "" {
		opts = append(opts, hsm.WithSeparator(g.String(doc.Separator)))
	}

	states := make([]any, 0, len(doc.States))
	for _, node := range doc.States {
		def, err := hooks.state(node)
		if err != nil {
			return nil, errors.Wrapf(err, "build %s", doc.Name)
		}
		states = append(states, def)
	}

	var (
		engine hsm.Engine
		err    error
	)

	if doc.Nested {
		m := hsm.NewNestedMachine(g.String(doc.Name), opts...)
		err = m.AddStates(states, g.String(doc.Initial), false)
		engine = m
	} else {
		m := hsm.NewMachine(g.String(doc.Name), opts...)
		err = m.AddStates(states, g.String(doc.Initial), false)
		engine = m
	}

	if err != nil {
		return nil, errors.Wrapf(err, "build %s: add states", doc.Name)
	}

	m := hsm.MachineOf(engine)

	for i, node := range doc.Transitions {
		if err := m.AddTransition(hooks.transition(node)); err != nil {
			return nil, errors.Wrapf(err, "build %s: transition %d", doc.Name, i)
		}
	}

	return engine, nil
}

func (h Hooks) state(node StateNode) (hsm.StateDef, error) {
	def := hsm.StateDef{
		Name:    g.String(node.Name),
		Initial: g.String(node.Initial),
	}

	if node.OnEnter != "" {
		hook, ok := h.Enter[node.OnEnter]
		if !ok {
			return def, &ErrUnknownHook{Kind: "enter", Name: node.OnEnter}
		}
		def.OnEnter = hook
	}

	if node.OnExit != "" {
		hook, ok := h.Exit[node.OnExit]
		if !ok {
			return def, &ErrUnknownHook{Kind: "exit", Name: node.OnExit}
		}
		def.OnExit = hook
	}

	if len(node.Handlers) > 0 {
		def.Handlers = g.NewMap[g.String, hsm.Callback]()

		for event, name := range node.Handlers {
			cb, ok := h.Callbacks[name]
			if !ok {
				return def, &ErrUnknownHook{Kind: "handler", Name: name}
			}
			def.Handlers[g.String(event)] = cb
		}
	}

	for _, child := range node.Children {
		c, err := h.state(child)
		if err != nil {
			return def, err
		}
		def.Children = append(def.Children, c)
	}

	return def, nil
}

func (h Hooks) transition(node TransitionNode) hsm.TransitionDef {
	def := hsm.TransitionDef{
		From:   g.String(node.From),
		To:     g.String(node.To),
		Event:  g.String(node.Event),
		Before: h.action(node.Before),
		After:  h.action(node.After),
	}

	for _, name := range node.Conditions {
		def.Conditions = append(def.Conditions, h.condition(name))
	}

	return def
}

func (h Hooks) action(name string) hsm.Action {
	switch cb, ok := h.Callbacks[name]; {
	case name == "":
		return hsm.Action{}
	case ok:
		return hsm.Bind(g.String(name), cb)
	}

	return hsm.Named(g.String(name))
}

func (h Hooks) condition(name string) hsm.Condition {
	negate := g.String(name).StartsWith("!")

	if p, ok := h.Predicates[g.String(name).StripPrefix("!").Std()]; ok {
		if negate {
			return hsm.Unless(p)
		}
		return hsm.When(p)
	}

	return hsm.Flag(g.String(name))
}
