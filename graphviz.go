package hsm

import (
	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// ToDOT generates a DOT language representation of the machine for visualization.
// Composite states are drawn as clusters holding their children. Wildcard
// transitions start from a "*" node; the reserved switch transitions are omitted.
func (m *Machine) ToDOT() g.String {
	b := g.NewBuilder()

	b.WriteString("digraph HSM {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString(
		"  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n",
	)
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	if m.initial != "" {
		b.WriteString("  __start [shape=point, style=invis];\n")
		b.WriteString(g.Format("  __start -> \"{}\" [label=\" initial\"];\n\n", m.initial))
	}

	grouped := g.NewMap[g.Pair[g.String, g.String], g.Slice[g.String]]()
	outgoing := g.NewSet[g.String]()

	collect := func(ts g.Slice[*Transition]) {
		for _, t := range ts {
			if t.Event == SwitchEvent {
				continue
			}

			label := t.Event
			if t.Guarded() {
				label += " (guarded)"
			}

			key := g.Pair[g.String, g.String]{Key: t.From, Value: t.To}
			grouped[key] = append(grouped[key], label)
			outgoing.Insert(t.From)
		}
	}

	for _, ts := range m.transitions {
		collect(ts)
	}

	for _, ts := range m.wildcards {
		collect(ts)
	}

	if outgoing.Contains(Wildcard) {
		b.WriteString("  \"*\" [shape=plaintext, style=\"\"];\n")
	}

	roots := make(g.Slice[*State], 0, len(m.states))
	for _, name := range m.States() {
		if s := m.states[name]; s.parent == nil {
			roots = append(roots, s)
		}
	}

	write := func(line g.String) { b.WriteString(line) }
	final := func(name g.String) bool { return !outgoing.Contains(name) && !outgoing.Contains(Wildcard) }

	for _, s := range roots {
		m.writeStateDOT(write, s, final, 1)
	}

	b.WriteByte('\n')

	pairs := make(g.Slice[g.Pair[g.String, g.String]], 0, len(grouped))
	for pair := range grouped {
		pairs = append(pairs, pair)
	}

	pairs.SortBy(func(x, y g.Pair[g.String, g.String]) cmp.Ordering {
		if x.Key != y.Key {
			return cmp.Cmp(x.Key, y.Key)
		}
		return cmp.Cmp(x.Value, y.Value)
	})

	for _, pair := range pairs {
		labels := grouped[pair]
		labels.SortBy(cmp.Cmp)

		var edge g.Slice[g.String]
		label := labels.Join("\\n")

		edge.Push(g.Format("label=\" {} \"", label))

		if label.Contains("(guarded)") {
			edge.Push("style=dashed", "color=red", "arrowhead=odiamond")
		}

		b.WriteString(g.Format("  \"{}\" -> \"{}\" [{}];\n", pair.Key, pair.Value, edge.Join(", ")))
	}

	b.WriteString("\n  subgraph cluster_legend {\n")
	b.WriteString("    label = \"Legend\";\n")
	b.WriteString("    style = dashed;\n")
	b.WriteString(`    key [label=<
      <table border="0" cellpadding="4" cellspacing="0" cellborder="0">
        <tr><td align="right">●</td><td>Regular state</td></tr>
        <tr><td align="right"><font color="green">◎</font></td><td>Initial state</td></tr>
        <tr><td align="right"><font color="gray">◎</font></td><td>Final state</td></tr>
        <tr><td align="right">▭</td><td>Composite state</td></tr>
        <tr><td align="right"><font color="red">→</font></td><td>Guarded transition</td></tr>
      </table>
    >, shape=none];`)

	b.WriteString("  }\n")
	b.WriteString("}\n")

	return b.String()
}

func (m *Machine) writeStateDOT(write func(g.String), s *State, final func(g.String) bool, depth int) {
	indent := g.String("  ").Repeat(g.Int(depth))

	var attrs g.Slice[g.String]
	attrs.Push(g.Format("label=\"{}\"", s.local))

	switch {
	case s.IsComposite():
		attrs.Push("shape=box")
	case s.name == m.initial:
		attrs.Push("fillcolor=\"#90ee90\"", "shape=doublecircle")
	case final(s.name):
		attrs.Push("fillcolor=\"#d3d3d3\"", "shape=doublecircle")
	}

	var tooltips g.Slice[g.String]

	if s.onEnter != nil {
		tooltips.Push("OnEnter")
	}

	if s.onExit != nil {
		tooltips.Push("OnExit")
	}

	for _, event := range sortedKeys(s.handlers) {
		tooltips.Push(g.Format("on {}", event))
	}

	if tooltips.NotEmpty() {
		attrs.Push(g.Format("tooltip=\"{}\"", tooltips.Join("\\n")))
	}

	if !s.IsComposite() {
		write(indent + g.Format("\"{}\" [{}];\n", s.name, attrs.Join(", ")))
		return
	}

	write(indent + g.Format("subgraph \"cluster_{}\" ", s.name) + "{\n")
	write(indent + g.Format("  label=\"{}\";\n", s.local))
	write(indent + "  style=rounded;\n")
	write(indent + g.Format("  \"{}\" [{}];\n", s.name, attrs.Join(", ")))

	for _, child := range s.Children() {
		m.writeStateDOT(write, child, final, depth+1)
	}

	write(indent + "}\n")
}

func sortedKeys[V any](m g.Map[g.String, V]) g.Slice[g.String] {
	keys := m.Keys()
	keys.SortBy(cmp.Cmp)

	return keys
}
