package hsm_test

import (
	"testing"

	"github.com/enetx/g"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enetx/hsm"
)

func flatMachine(t *testing.T) *hsm.Machine {
	t.Helper()

	m := hsm.NewMachine("test")
	require.NoError(t, m.AddStates([]any{"A", "B", "C", "D"}, "A", false))
	require.NoError(t, m.AddTransitions(
		hsm.T("A", "B", "go"),
		hsm.T("B", "C", "go"),
		hsm.T("C", "D", "go"),
	))

	return m
}

func TestMachine_AddStateRegistersSwitch(t *testing.T) {
	m := hsm.NewMachine("test")
	require.NoError(t, m.AddState("A", nil, false))

	assert.True(t, m.HasState("A"))

	switches := m.Transitions(hsm.Wildcard, hsm.SwitchEvent)
	require.Len(t, switches, 1)
	assert.Equal(t, g.String("A"), switches[0].To)
	assert.Equal(t, hsm.Wildcard, switches[0].From)

	// forcing the same state again must not duplicate its switch transition
	require.NoError(t, m.AddState("A", nil, true))
	assert.Len(t, m.Transitions(hsm.Wildcard, hsm.SwitchEvent), 1)
}

func TestMachine_AddStateDuplicate(t *testing.T) {
	m := hsm.NewMachine("test")
	require.NoError(t, m.AddState("A", nil, false))

	var dup *hsm.ErrAlreadyHasState
	require.ErrorAs(t, m.AddState("A", nil, false), &dup)
	assert.Equal(t, g.String("A"), dup.State)
}

func TestMachine_AddStateNameMismatch(t *testing.T) {
	m := hsm.NewMachine("test")

	var invalid *hsm.ErrInvalidState
	require.ErrorAs(t, m.AddState("A", hsm.NewState("B"), false), &invalid)
	assert.False(t, m.HasState("A"))
	assert.False(t, m.HasState("B"))
}

func TestMachine_AddStatesInvalid(t *testing.T) {
	m := hsm.NewMachine("test")

	var invalid *hsm.ErrInvalidState
	require.ErrorAs(t, m.AddStates([]any{"A", 42}, "", false), &invalid)
	assert.Equal(t, 42, invalid.Value)
	assert.False(t, m.HasState("A"))

	err := m.AddStates([]any{hsm.StateDef{Name: "C", Children: []any{"1"}}}, "", false)
	require.ErrorAs(t, err, &invalid)
	assert.False(t, m.HasState("C"))
}

func TestMachine_AddStatesRecords(t *testing.T) {
	var entered g.Slice[g.String]

	onEnter := func(s *hsm.State, e *hsm.Event, _ hsm.Host, _ *hsm.State) error {
		entered.Push(s.Name() + ":" + e.Name)
		return nil
	}

	m := hsm.NewMachine("test")
	require.NoError(t, m.AddStates([]any{
		hsm.StateDef{Name: "A", OnEnter: onEnter},
		&hsm.StateDef{Name: "B", OnEnter: onEnter},
		hsm.NewState("C"),
		g.String("D"),
	}, "A", false))

	assert.Equal(t, g.Slice[g.String]{"A", "B", "C", "D"}, m.States())
	require.NoError(t, m.AddTransition(hsm.T("A", "B", "go")))

	obj, err := hsm.NewObject(m, nil)
	require.NoError(t, err)
	assert.Equal(t, g.String("A"), obj.State())

	require.NoError(t, obj.Dispatch(hsm.NewEvent("go")))
	assert.Equal(t, g.Slice[g.String]{"A:initialize", "B:go"}, entered)
}

func TestMachine_SetInitialState(t *testing.T) {
	m := hsm.NewMachine("test")
	require.NoError(t, m.AddStates([]any{"A", "B"}, "A", false))
	assert.Equal(t, g.String("A"), m.Initial())

	var already *hsm.ErrAlreadyHasInitialState
	require.ErrorAs(t, m.SetInitialState("B", false), &already)
	assert.Equal(t, g.String("A"), already.Initial)
	assert.Equal(t, g.String("B"), already.State)
	assert.Equal(t, g.String("A"), m.Initial())

	require.NoError(t, m.SetInitialState("B", true))
	assert.Equal(t, g.String("B"), m.Initial())

	var noState *hsm.ErrNoState
	require.ErrorAs(t, m.SetInitialState("Z", true), &noState)
	assert.Equal(t, g.String("B"), m.Initial())
}

func TestMachine_AddTransitionUnknownState(t *testing.T) {
	m := hsm.NewMachine("test")
	require.NoError(t, m.AddStates([]any{"A", "B"}, "", false))

	var noState *hsm.ErrNoState

	require.ErrorAs(t, m.AddTransition(hsm.T("A", "Z", "go")), &noState)
	assert.Equal(t, g.String("Z"), noState.State)
	assert.Empty(t, m.Transitions("A", "go"))

	require.ErrorAs(t, m.AddTransition(hsm.T("Z", "A", "go")), &noState)
	assert.Equal(t, g.String("Z"), noState.State)

	require.NoError(t, m.AddTransition(hsm.T(hsm.Wildcard, "B", "go")))
	assert.Len(t, m.Transitions(hsm.Wildcard, "go"), 1)
}

func TestMachine_AddTransitionsKeepsEarlierOnFailure(t *testing.T) {
	m := hsm.NewMachine("test")
	require.NoError(t, m.AddStates([]any{"A", "B"}, "", false))

	err := m.AddTransitions(
		hsm.T("A", "B", "go"),
		hsm.T("B", "Z", "go"),
		hsm.T("B", "A", "back"),
	)

	var noState *hsm.ErrNoState
	require.ErrorAs(t, err, &noState)
	assert.Len(t, m.Transitions("A", "go"), 1)
	assert.Empty(t, m.Transitions("B", "back"))
}

func TestMachine_FlatDispatch(t *testing.T) {
	obj, err := hsm.NewObject(flatMachine(t), nil)
	require.NoError(t, err)

	for _, want := range (g.Slice[g.String]{"B", "C", "D"}) {
		require.NoError(t, obj.Dispatch(hsm.NewEvent("go")))
		assert.Equal(t, want, obj.State())
	}

	var invalid *hsm.ErrInvalidTransition
	require.ErrorAs(t, obj.Dispatch(hsm.NewEvent("go", hsm.RaiseInvalid())), &invalid)
	assert.Equal(t, g.String("D"), invalid.State)
	assert.Equal(t, g.String("go"), invalid.Event)
	assert.Equal(t, g.String("D"), obj.State())

	require.NoError(t, obj.Dispatch(hsm.NewEvent("go")))
	assert.Equal(t, g.String("D"), obj.State())
}

func TestMachine_UnknownCurrentState(t *testing.T) {
	obj, err := hsm.NewObject(flatMachine(t), nil)
	require.NoError(t, err)

	obj.SetState("nowhere")

	var noState *hsm.ErrNoState
	require.ErrorAs(t, obj.Dispatch(hsm.NewEvent("go")), &noState)
}

func TestMachine_Switch(t *testing.T) {
	obj, err := hsm.NewObject(flatMachine(t), nil)
	require.NoError(t, err)

	require.NoError(t, obj.Dispatch(hsm.Switch("D")))
	assert.Equal(t, g.String("D"), obj.State())

	require.NoError(t, obj.Dispatch(hsm.NewEvent(hsm.SwitchEvent, hsm.Input("B"))))
	assert.Equal(t, g.String("B"), obj.State())

	// no state matches the input, so the switch is ignored
	require.NoError(t, obj.Dispatch(hsm.Switch("Z")))
	assert.Equal(t, g.String("B"), obj.State())
}

func TestMachine_WildcardFallback(t *testing.T) {
	m := flatMachine(t)
	require.NoError(t, m.AddState("E", nil, false))
	require.NoError(t, m.AddTransition(hsm.T(hsm.Wildcard, "E", "go")))

	obj, err := hsm.NewObject(m, nil)
	require.NoError(t, err)

	// direct transitions win over the wildcard one
	require.NoError(t, obj.Dispatch(hsm.NewEvent("go")))
	assert.Equal(t, g.String("B"), obj.State())

	obj.SetState("D")
	require.NoError(t, obj.Dispatch(hsm.NewEvent("go")))
	assert.Equal(t, g.String("E"), obj.State())

	// states added after the wildcard transition are covered too
	require.NoError(t, m.AddState("F", nil, false))
	obj.SetState("F")
	require.NoError(t, obj.Dispatch(hsm.NewEvent("go")))
	assert.Equal(t, g.String("E"), obj.State())
}

func TestMachine_Clone(t *testing.T) {
	m := flatMachine(t)
	c := m.Clone()

	require.NoError(t, c.AddState("E", nil, false))
	require.NoError(t, c.AddTransition(hsm.T("D", "E", "go")))

	assert.True(t, c.HasState("E"))
	assert.False(t, m.HasState("E"))
	assert.Len(t, c.Transitions("D", "go"), 1)
	assert.Empty(t, m.Transitions("D", "go"))
	assert.Len(t, m.Transitions(hsm.Wildcard, hsm.SwitchEvent), 4)
	assert.Len(t, c.Transitions(hsm.Wildcard, hsm.SwitchEvent), 5)

	orig, err := m.State("A")
	require.NoError(t, err)

	cloned, err := c.State("A")
	require.NoError(t, err)
	assert.NotSame(t, orig, cloned)

	ct := c.Transitions("A", "go")[0]
	mt := m.Transitions("A", "go")[0]
	assert.NotSame(t, mt, ct)
	assert.Equal(t, mt.To, ct.To)

	obj, err := hsm.NewObject(c, nil)
	require.NoError(t, err)

	for range 4 {
		require.NoError(t, obj.Dispatch(hsm.NewEvent("go")))
	}
	assert.Equal(t, g.String("E"), obj.State())
}

func TestMachine_InitializeWithoutInitial(t *testing.T) {
	m := hsm.NewMachine("test")
	require.NoError(t, m.AddState("A", nil, false))

	_, err := hsm.NewObject(m, nil)

	var noState *hsm.ErrNoState
	require.ErrorAs(t, err, &noState)
}
