package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/enetx/g"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/enetx/hsm"
	"github.com/enetx/hsm/metrics"
)

func (a *app) dotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dot FILE",
		Short: "Print the machine as Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			engine, err := a.load(args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(a.out, engine.ToDOT())
			return err
		},
	}
}

func (a *app) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe FILE",
		Short: "Print the machine topology as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			engine, err := a.load(args[0])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(engine, "", "  ")
			if err != nil {
				return errors.Wrap(err, "describe")
			}

			_, err = fmt.Fprintln(a.out, string(data))
			return err
		},
	}
}

func (a *app) runCmd() *cobra.Command {
	var (
		sets        []string
		strict      bool
		withMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "run FILE EVENT[=INPUT]...",
		Short: "Replay events against a new host and print each transition",
		Long: `run creates a host in the machine's initial state and dispatches the
given events in order. An event may carry a string input after "=".
Host attributes read by flag conditions are set with --set name=value.
"__switch__=STATE" jumps straight to STATE.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			attrs, err := parseAttrs(sets)
			if err != nil {
				return err
			}

			engine, err := a.load(args[0])
			if err != nil {
				return err
			}

			dispatch := hsm.Dispatch

			reg := prometheus.NewRegistry()
			if withMetrics {
				c := metrics.New(reg)
				c.Instrument(engine)
				dispatch = c.Dispatch
			}

			obj, err := hsm.NewObject(engine, attrs)
			if err != nil {
				return errors.Wrap(err, "initialize host")
			}

			fmt.Fprintf(a.out, "initial: %s\n", obj.State())

			for _, arg := range args[1:] {
				name, input, hasInput := strings.Cut(arg, "=")

				var opts []hsm.EventOption
				if hasInput {
					opts = append(opts, hsm.Input(input))
				}
				if strict {
					opts = append(opts, hsm.RaiseInvalid())
				}

				event := hsm.NewEvent(g.String(name), opts...)
				from := obj.State()

				if err := dispatch(obj, event); err != nil {
					return errors.Wrapf(err, "dispatch %s", name)
				}

				a.logger.Debug("dispatched", zap.String("event", name), zap.String("event_id", event.ID))
				fmt.Fprintf(a.out, "%s: %s -> %s\n", name, from, obj.State())
			}

			fmt.Fprintf(a.out, "final: %s\n", obj.State())

			if !withMetrics {
				return nil
			}

			families, err := reg.Gather()
			if err != nil {
				return errors.Wrap(err, "gather metrics")
			}

			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(a.out, mf); err != nil {
					return errors.Wrap(err, "write metrics")
				}
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "host attribute as name=value (repeatable)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on events without a transition")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "print Prometheus metrics after the run")

	return cmd
}

// parseAttrs turns name=value pairs into host attributes. Values that parse as
// integers, booleans or floats are stored as such.
func parseAttrs(sets []string) (g.Map[g.String, any], error) {
	attrs := g.NewMap[g.String, any]()

	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("--set %q: expected name=value", set)
		}

		attrs[g.String(name)] = parseValue(value)
	}

	return attrs, nil
}

func parseValue(value string) any {
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return value
}
