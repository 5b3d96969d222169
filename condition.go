package hsm

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/enetx/g"
)

type conditionKind uint8

const (
	predicateCondition conditionKind = iota
	flagCondition
	literalCondition
)

// Condition is one link of a transition's condition chain. It is one of three
// kinds: a Predicate called with the dispatch arguments, a flag read from the
// host through Accessor, or a literal value. Each kind yields a value that must
// equal the expected one for the condition to hold.
type Condition struct {
	kind      conditionKind
	predicate Predicate
	path      g.Slice[g.String]
	value     any
	expect    any
}

// When holds when p returns true.
func When(p Predicate) Condition {
	return Condition{kind: predicateCondition, predicate: p, expect: true}
}

// Unless holds when p returns false.
func Unless(p Predicate) Condition {
	return Condition{kind: predicateCondition, predicate: p, expect: false}
}

// Flag reads a dotted attribute path from the host and holds when it is true.
// A leading "!" negates it. Attributes holding a Predicate are called and their
// result is used instead.
func Flag(path g.String) Condition {
	expect := true
	if path.StartsWith("!") {
		path, expect = path[1:], false
	}

	return Condition{kind: flagCondition, path: splitPath(path), expect: expect}
}

// Literal holds when value is true.
func Literal(value any) Condition {
	return Condition{kind: literalCondition, value: value, expect: true}
}

// Expect replaces the value c must produce.
func Expect(c Condition, want any) Condition {
	c.expect = want
	return c
}

// Cond normalizes loosely typed conditions: a Condition is kept, a predicate
// func becomes When, a string becomes Flag and anything else becomes Literal.
func Cond(v any) Condition {
	switch c := v.(type) {
	case Condition:
		return c
	case Predicate:
		return When(c)
	case func(*State, *Event, Host) bool:
		return When(c)
	case string:
		return Flag(g.String(c))
	case g.String:
		return Flag(c)
	default:
		return Literal(v)
	}
}

// Conds normalizes each value with Cond.
func Conds(vs ...any) g.Slice[Condition] {
	out := make(g.Slice[Condition], 0, len(vs))
	for _, v := range vs {
		out = append(out, Cond(v))
	}

	return out
}

// Met evaluates the condition.
func (c Condition) Met(state *State, event *Event, host Host) (bool, error) {
	var got any

	switch c.kind {
	case predicateCondition:
		got = c.predicate(state, event, host)
	case flagCondition:
		v, err := lookup(host, c.path)
		if err != nil {
			return false, err
		}

		switch fn := v.(type) {
		case Predicate:
			got = fn(state, event, host)
		case func(*State, *Event, Host) bool:
			got = fn(state, event, host)
		default:
			got = v
		}
	case literalCondition:
		got = c.value
	}

	return equal(got, c.expect), nil
}

// equal compares a condition value with the expected one. Numbers and bools
// compare by value across types, so an attribute holding 1 satisfies a flag.
func equal(got, want any) bool {
	x, okX := number(got)
	y, okY := number(want)

	if okX && okY {
		return x == y
	}

	return reflect.DeepEqual(got, want)
}

func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}

	return 0, false
}

func (c Condition) String() string {
	switch c.kind {
	case predicateCondition:
		name := funcName(c.predicate)
		if c.expect == false {
			return "!" + name
		}
		return name
	case flagCondition:
		path := string(c.path.Join("."))
		if c.expect == false {
			return "!" + path
		}
		if c.expect != true {
			return fmt.Sprintf("%s == %v", path, c.expect)
		}
		return path
	default:
		return fmt.Sprintf("%v == %v", c.value, c.expect)
	}
}

// conditionsMet evaluates conds in order and stops at the first one that fails.
func conditionsMet(conds g.Slice[Condition], state *State, event *Event, host Host) (bool, error) {
	for _, c := range conds {
		ok, err := c.Met(state, event, host)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// lookup resolves a dotted attribute path starting at host.
func lookup(host Host, path g.Slice[g.String]) (any, error) {
	var cur any = host

	for _, segment := range path {
		var (
			v  any
			ok bool
		)

		switch container := cur.(type) {
		case Accessor:
			v, ok = container.Attr(segment)
		case g.Map[g.String, any]:
			v, ok = container[segment]
		case map[string]any:
			v, ok = container[string(segment)]
		}

		if !ok {
			return nil, &ErrUnknownAttribute{Path: path.Join(".")}
		}

		cur = v
	}

	return cur, nil
}

func splitPath(path g.String) g.Slice[g.String] {
	return path.Split(".").Collect()
}

// funcName returns the short name of fn for descriptions.
func funcName(fn any) string {
	if fn == nil {
		return "<nil>"
	}

	name := g.String(runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name())
	if idx := name.LastIndex("/"); idx >= 0 {
		name = name[idx+1:]
	}

	if idx := name.Index("."); idx >= 0 && idx < name.Len()-1 {
		name = name[idx+1:]
	}

	return name.Std()
}
