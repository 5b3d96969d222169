package hsm_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/enetx/g"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enetx/hsm"
)

// calculator evaluates reverse polish notation one character at a time.
// Its before actions are looked up by name through Attr.
type calculator struct {
	machine hsm.Engine
	state   g.String
	stack   []float64
	result  float64
}

func newCalculator(t *testing.T) *calculator {
	t.Helper()

	m := hsm.NewMachine("calculator")
	require.NoError(t, m.AddStates([]any{"initial", "number", "result"}, "initial", false))
	require.NoError(t, m.AddTransitions(
		hsm.TransitionDef{
			From: "initial", To: "number", Event: "parse",
			Conditions: hsm.Conds(isDigit),
			Before:     hsm.Named("start_building_number"),
		},
		hsm.TransitionDef{
			From: "number", To: "number", Event: "parse",
			Conditions: hsm.Conds(isDigit),
			Before:     hsm.Named("build_number"),
		},
		hsm.TransitionDef{
			From: "number", To: "initial", Event: "parse",
			Conditions: hsm.Conds(inputIn(" \t\n")),
		},
		hsm.TransitionDef{
			From: "initial", To: "initial", Event: "parse",
			Conditions: hsm.Conds(inputIn("+-*/")),
			Before:     hsm.Named("do_operation"),
		},
		hsm.TransitionDef{
			From: "initial", To: "result", Event: "parse",
			Conditions: hsm.Conds(inputIn("=")),
			Before:     hsm.Named("do_equal"),
		},
	))

	c := &calculator{machine: m}
	require.NoError(t, hsm.Initialize(c))

	return c
}

func (c *calculator) Machine() hsm.Engine    { return c.machine }
func (c *calculator) State() g.String        { return c.state }
func (c *calculator) SetState(name g.String) { c.state = name }

func (c *calculator) Attr(name g.String) (any, bool) {
	switch name {
	case "start_building_number":
		return c.startBuildingNumber, true
	case "build_number":
		return c.buildNumber, true
	case "do_operation":
		return c.doOperation, true
	case "do_equal":
		return c.doEqual, true
	}

	return nil, false
}

func (c *calculator) calculate(input string) (float64, error) {
	c.stack = c.stack[:0]
	c.result = 0

	if err := hsm.Reinitialize(c); err != nil {
		return 0, err
	}

	for _, char := range input {
		if err := hsm.Dispatch(c, hsm.NewEvent("parse", hsm.Input(string(char)))); err != nil {
			return 0, err
		}
	}

	return c.result, nil
}

func (c *calculator) startBuildingNumber(_ *hsm.State, e *hsm.Event, _ hsm.Host) error {
	c.stack = append(c.stack, digit(e))
	return nil
}

func (c *calculator) buildNumber(_ *hsm.State, e *hsm.Event, _ hsm.Host) error {
	top := len(c.stack) - 1
	c.stack[top] = c.stack[top]*10 + digit(e)

	return nil
}

func (c *calculator) doOperation(_ *hsm.State, e *hsm.Event, _ hsm.Host) error {
	if len(c.stack) < 2 {
		return fmt.Errorf("operator %v needs two operands", e.Input)
	}

	x, y := c.stack[len(c.stack)-2], c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-2]

	var r float64

	switch e.Input.(string) {
	case "+":
		r = x + y
	case "-":
		r = x - y
	case "*":
		r = x * y
	case "/":
		r = x / y
	}

	c.stack = append(c.stack, r)

	return nil
}

func (c *calculator) doEqual(_ *hsm.State, _ *hsm.Event, _ hsm.Host) error {
	c.result = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	return nil
}

func digit(e *hsm.Event) float64 { return float64(e.Input.(string)[0] - '0') }

func isDigit(_ *hsm.State, e *hsm.Event, _ hsm.Host) bool {
	s, ok := e.Input.(string)
	return ok && len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

func inputIn(chars string) hsm.Predicate {
	return func(_ *hsm.State, e *hsm.Event, _ hsm.Host) bool {
		s, ok := e.Input.(string)
		return ok && s != "" && strings.Contains(chars, s)
	}
}

func TestRPNCalculator(t *testing.T) {
	calc := newCalculator(t)
	assert.Equal(t, g.String("initial"), calc.State())

	tests := []struct {
		input string
		want  float64
	}{
		{" 167 3 2 2 * * * 1 - =", 2003},
		{"    167 3 2 2 * * * 1 - 2 / =", 1001.5},
		{"    3   5 6 +  * =", 33},
		{"        3    4       +     =", 7},
		{"2 4 / 5 6 - * =", -0.5},
	}

	for _, tt := range tests {
		got, err := calc.calculate(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		assert.Equal(t, g.String("result"), calc.State())
	}
}

func TestRPNCalculator_MissingOperand(t *testing.T) {
	calc := newCalculator(t)

	_, err := calc.calculate("3 +")
	require.EqualError(t, err, "operator + needs two operands")
	assert.Equal(t, g.String("initial"), calc.State())
}
