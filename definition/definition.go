// Package definition loads hsm machines from YAML (or JSON) documents.
//
// A document names its states and transitions the way hsm.Machine.AddStates and
// hsm.Machine.AddTransitions accept them. Callbacks cannot be written in a
// document, so enter/exit hooks, local handlers and predicates are referred to by
// name and looked up in a Hooks table when the machine is built.
//
//	name: caffeine
//	nested: true
//	initial: standing
//	states:
//	  - standing
//	  - walking
//	  - name: caffeinated
//	    on_enter: jitter
//	    children: [dithering, running]
//	transitions:
//	  - [standing, walking, walk]
//	  - [walking, standing, stop]
//	  - ["*", caffeinated, drink]
//	  - from_state: caffeinated
//	    to_state: caffeinated.running
//	    event: walk
//	    conditions: "!tired"
package definition

import (
	"io"
	"os"

	"github.com/enetx/g"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is the declarative form of a machine.
type Document struct {
	Name        string           `yaml:"name"`
	Nested      bool             `yaml:"nested,omitempty"`
	Separator   string           `yaml:"separator,omitempty"`
	Initial     string           `yaml:"initial,omitempty"`
	States      []StateNode      `yaml:"states"`
	Transitions []TransitionNode `yaml:"transitions,omitempty"`
}

// StateNode is a state entry: either a bare name or a mapping.
// Handlers map event names to callback names.
type StateNode struct {
	Name     string            `yaml:"name"`
	OnEnter  string            `yaml:"on_enter,omitempty"`
	OnExit   string            `yaml:"on_exit,omitempty"`
	Handlers map[string]string `yaml:"handlers,omitempty"`
	Initial  string            `yaml:"initial,omitempty"`
	Children []StateNode       `yaml:"children,omitempty"`
}

func (s *StateNode) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = StateNode{Name: node.Value}
		return nil
	case yaml.MappingNode:
		if err := checkKeys(node, "name", "on_enter", "on_exit", "handlers", "initial", "children"); err != nil {
			return err
		}

		type stateNode StateNode
		var tmp stateNode
		if err := node.Decode(&tmp); err != nil {
			return err
		}

		if tmp.Name == "" {
			return errors.Errorf("unmarshal yaml: line %d: state without a name", node.Line)
		}

		*s = StateNode(tmp)
		return nil
	default:
		return errors.Errorf("unmarshal yaml: line %d: state must be a scalar or mapping", node.Line)
	}
}

// Conditions is a list of condition names. A single scalar is accepted too.
// Each name is a predicate from Hooks or, failing that, a host attribute path;
// either may start with "!" to negate it.
type Conditions []string

func (c *Conditions) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = Conditions{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*c = names
		return nil
	default:
		return errors.Errorf("unmarshal yaml: line %d: conditions must be a scalar or sequence", node.Line)
	}
}

// TransitionNode is a transition entry: either a sequence
// [from, to, event, conditions, before, after] where only the first three are
// required, or a mapping.
type TransitionNode struct {
	From       string     `yaml:"from_state"`
	To         string     `yaml:"to_state"`
	Event      string     `yaml:"event"`
	Conditions Conditions `yaml:"conditions,omitempty"`
	Before     string     `yaml:"before,omitempty"`
	After      string     `yaml:"after,omitempty"`
}

func (t *TransitionNode) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return t.decodePositional(node)
	case yaml.MappingNode:
		if err := checkKeys(node, "from_state", "to_state", "event", "conditions", "before", "after"); err != nil {
			return err
		}

		type transitionNode TransitionNode
		var tmp transitionNode
		if err := node.Decode(&tmp); err != nil {
			return err
		}

		*t = TransitionNode(tmp)
		return nil
	default:
		return errors.Errorf("unmarshal yaml: line %d: transition must be a sequence or mapping", node.Line)
	}
}

func (t *TransitionNode) decodePositional(node *yaml.Node) error {
	fields := node.Content
	if len(fields) < 3 {
		return errors.Errorf("unmarshal yaml: line %d: transition needs from, to and event", node.Line)
	}

	if len(fields) > 6 {
		return errors.Errorf("unmarshal yaml: line %d: transition has more than 6 fields", node.Line)
	}

	scalars := make([]string, len(fields))
	for i, field := range fields {
		if i == 3 || field.ShortTag() == "!!null" {
			continue
		}

		if field.Kind != yaml.ScalarNode {
			return errors.Errorf("unmarshal yaml: line %d: transition field %d must be a scalar", field.Line, i+1)
		}

		scalars[i] = field.Value
	}

	*t = TransitionNode{From: scalars[0], To: scalars[1], Event: scalars[2]}

	if len(fields) > 3 && fields[3].ShortTag() != "!!null" {
		if err := t.Conditions.UnmarshalYAML(fields[3]); err != nil {
			return err
		}
	}

	if len(fields) > 4 {
		t.Before = scalars[4]
	}

	if len(fields) > 5 {
		t.After = scalars[5]
	}

	return nil
}

// checkKeys rejects mapping keys outside allowed. Decoding through a yaml.Node
// does not inherit the decoder's KnownFields setting.
func checkKeys(node *yaml.Node, allowed ...string) error {
	known := g.NewSet[string]()
	for _, key := range allowed {
		known.Insert(key)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !known.Contains(key.Value) {
			return errors.Errorf("unmarshal yaml: line %d: field %s not found", key.Line, key.Value)
		}
	}

	return nil
}

// Load decodes a document from r. Unknown fields are rejected.
func Load(r io.Reader) (*Document, error) {
	var doc Document

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "load definition")
	}

	if doc.Name == "" {
		return nil, errors.New("load definition: missing name")
	}

	return &doc, nil
}

// LoadFile decodes the document stored at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load definition file")
	}
	defer f.Close()

	doc, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load definition file %s", path)
	}

	return doc, nil
}
