package hsm

import (
	"encoding/json"

	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// Description is a serializable view of a machine's topology. It holds no
// host data; callbacks appear by name only.
type Description struct {
	Name        g.String                       `json:"name"`
	Nested      bool                           `json:"nested"`
	Separator   g.String                       `json:"separator"`
	Initial     g.String                       `json:"initial,omitempty"`
	States      g.Slice[StateDescription]      `json:"states"`
	Transitions g.Slice[TransitionDescription] `json:"transitions"`
}

// StateDescription describes one state.
type StateDescription struct {
	Name     g.String          `json:"name"`
	Parent   g.String          `json:"parent,omitempty"`
	Children g.Slice[g.String] `json:"children,omitempty"`
	Initial  g.String          `json:"initial,omitempty"`
	Handlers g.Slice[g.String] `json:"handlers,omitempty"`
	OnEnter  bool              `json:"on_enter,omitempty"`
	OnExit   bool              `json:"on_exit,omitempty"`
}

// TransitionDescription describes one transition. Switch transitions are omitted.
type TransitionDescription struct {
	From       g.String        `json:"from_state"`
	To         g.String        `json:"to_state"`
	Event      g.String        `json:"event"`
	Conditions g.Slice[string] `json:"conditions,omitempty"`
	Before     string          `json:"before,omitempty"`
	After      string          `json:"after,omitempty"`
}

// Describe returns the machine topology, states and transitions sorted by name.
func (m *Machine) Describe() Description {
	d := Description{
		Name:      m.name,
		Nested:    m.nested,
		Separator: m.separator,
		Initial:   m.initial,
	}

	for _, name := range m.States() {
		s := m.states[name]

		sd := StateDescription{
			Name:     s.name,
			Initial:  s.initial,
			Handlers: sortedKeys(s.handlers),
			OnEnter:  s.onEnter != nil,
			OnExit:   s.onExit != nil,
		}

		if s.parent != nil {
			sd.Parent = s.parent.name
		}

		for _, c := range s.Children() {
			sd.Children = append(sd.Children, c.name)
		}

		d.States = append(d.States, sd)
	}

	keys := make(g.Slice[transitionKey], 0, len(m.transitions))
	for key := range m.transitions {
		keys = append(keys, key)
	}

	keys.SortBy(func(a, b transitionKey) cmp.Ordering {
		return cmp.Cmp(a.state, b.state).Then(cmp.Cmp(a.event, b.event))
	})

	for _, key := range keys {
		d.Transitions = append(d.Transitions, describeTransitions(m.transitions[key])...)
	}

	for _, event := range sortedKeys(m.wildcards) {
		if event == SwitchEvent {
			continue
		}
		d.Transitions = append(d.Transitions, describeTransitions(m.wildcards[event])...)
	}

	return d
}

func describeTransitions(ts g.Slice[*Transition]) g.Slice[TransitionDescription] {
	out := make(g.Slice[TransitionDescription], 0, len(ts))

	for _, t := range ts {
		td := TransitionDescription{
			From:   t.From,
			To:     t.To,
			Event:  t.Event,
			Before: t.Before.String(),
			After:  t.After.String(),
		}

		for _, c := range t.Conditions {
			td.Conditions = append(td.Conditions, c.String())
		}

		out = append(out, td)
	}

	return out
}

// MarshalJSON implements the json.Marshaler interface with the machine's Description.
func (m *Machine) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Describe())
}
