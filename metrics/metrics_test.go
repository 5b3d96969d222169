package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enetx/hsm"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	m := hsm.NewMachine("door")
	require.NoError(t, m.AddStates([]any{"closed", "open"}, "closed", false))
	require.NoError(t, m.AddTransitions(hsm.T("closed", "open", "open"), hsm.T("open", "closed", "close")))
	c.Instrument(m)

	obj, err := hsm.NewObject(m, nil)
	require.NoError(t, err)

	require.NoError(t, c.Dispatch(obj, hsm.NewEvent("open")))
	require.NoError(t, c.Dispatch(obj, hsm.NewEvent("open")))
	require.Error(t, c.Dispatch(obj, hsm.NewEvent("open", hsm.RaiseInvalid())))
	require.NoError(t, c.Dispatch(obj, hsm.NewEvent("close")))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.dispatches.WithLabelValues("door", ResultTransition)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("door", ResultIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("door", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("door", "closed", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("door", "open", "closed")))

	assert.Equal(t, 1, testutil.CollectAndCount(c.duration, "hsm_dispatch_duration_seconds"))
}

func TestCollector_NestedMachine(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	m := hsm.NewNestedMachine("nested")
	require.NoError(t, m.AddStates([]any{
		hsm.StateDef{Name: "C", Children: []any{"1", "2"}},
	}, "C.1", false))
	require.NoError(t, m.AddTransition(hsm.T("C", "C.2", "next")))
	c.Instrument(m)

	obj, err := hsm.NewObject(m, nil)
	require.NoError(t, err)
	require.NoError(t, obj.Dispatch(hsm.NewEvent("next")))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("nested", "C.1", "C.2")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "hsm_dispatches_total")
	assert.Contains(t, names, "hsm_transitions_total")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
