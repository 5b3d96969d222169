// Package metrics exports Prometheus counters and histograms for hsm machines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/enetx/hsm"
)

const (
	metricsNamespace = "hsm"

	// Values of the result label.
	ResultTransition = "transition"
	ResultIgnored    = "ignored"
	ResultError      = "error"
)

// Collector holds the metrics of any number of machines, told apart by the
// machine label.
type Collector struct {
	dispatches  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the collector's metrics with reg. A nil reg registers with the
// default registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Collector{
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dispatches_total",
				Help:      "Total number of events dispatched to hosts",
			},
			// result: transition/ignored/error
			[]string{"machine", "result"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "transitions_total",
				Help:      "Total number of completed transitions",
			},
			[]string{"machine", "from", "to"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Time taken to dispatch an event, callbacks included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"machine"},
		),
	}
}

// Instrument counts every dispatch and transition of e.
func (c *Collector) Instrument(e hsm.Engine) {
	m := hsm.MachineOf(e)
	name := string(m.Name())

	m.OnDispatch(func(_ *hsm.Event, _ *hsm.State, transition *hsm.Transition, err error) {
		c.dispatches.WithLabelValues(name, result(transition, err)).Inc()
	})

	m.OnTransition(func(from, to *hsm.State, _ *hsm.Event, _ hsm.Host) error {
		c.transitions.WithLabelValues(name, string(from.Name()), string(to.Name())).Inc()
		return nil
	})
}

// Dispatch runs hsm.Dispatch and records how long it took.
func (c *Collector) Dispatch(host hsm.Host, event *hsm.Event) error {
	timer := prometheus.NewTimer(c.duration.WithLabelValues(string(host.Machine().Name())))
	defer timer.ObserveDuration()

	return hsm.Dispatch(host, event)
}

func result(transition *hsm.Transition, err error) string {
	switch {
	case err != nil:
		return ResultError
	case transition == nil:
		return ResultIgnored
	}

	return ResultTransition
}
