package main

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/enetx/hsm"
	"github.com/enetx/hsm/definition"
)

type app struct {
	out      io.Writer
	errOut   io.Writer
	logLevel string
	logger   *zap.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "yasm",
		Short: "Inspect and drive hierarchical state machines",
		Long: `yasm loads state machine definitions written in YAML or JSON.
It renders them as Graphviz DOT, describes their topology as JSON and replays
events against a fresh host to show where they lead.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := a.newLogger()
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(
		&a.logLevel,
		"log-level",
		"info",
		"log level: debug, info, warn or error",
	)

	root.AddCommand(a.dotCmd(), a.describeCmd(), a.runCmd())

	return root
}

func (a *app) newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(a.logLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(a.errOut), level)

	return zap.New(core), nil
}

// load reads and builds the machine at path. Every hook the document names is
// bound to a callback that only logs, so any definition can be replayed.
func (a *app) load(path string) (hsm.Engine, error) {
	doc, err := definition.LoadFile(path)
	if err != nil {
		return nil, err
	}

	return definition.Build(doc, tracingHooks(doc, a.logger), hsm.WithLogger(a.logger))
}

func tracingHooks(doc *definition.Document, logger *zap.Logger) definition.Hooks {
	hooks := definition.Hooks{
		Enter:     map[string]hsm.EnterHook{},
		Exit:      map[string]hsm.ExitHook{},
		Callbacks: map[string]hsm.Callback{},
	}

	var walk func(nodes []definition.StateNode)
	walk = func(nodes []definition.StateNode) {
		for _, node := range nodes {
			if name := node.OnEnter; name != "" {
				hooks.Enter[name] = func(s *hsm.State, e *hsm.Event, _ hsm.Host, _ *hsm.State) error {
					logger.Info("enter", zap.String("hook", name), zap.String("state", string(s.Name())), zap.String("event", string(e.Name)))
					return nil
				}
			}

			if name := node.OnExit; name != "" {
				hooks.Exit[name] = func(s *hsm.State, e *hsm.Event, _ hsm.Host, _ *hsm.State) error {
					logger.Info("exit", zap.String("hook", name), zap.String("state", string(s.Name())), zap.String("event", string(e.Name)))
					return nil
				}
			}

			for _, name := range node.Handlers {
				hooks.Callbacks[name] = logCallback(logger, name)
			}

			walk(node.Children)
		}
	}

	walk(doc.States)

	for _, t := range doc.Transitions {
		for _, name := range []string{t.Before, t.After} {
			if name != "" {
				hooks.Callbacks[name] = logCallback(logger, name)
			}
		}
	}

	return hooks
}

func logCallback(logger *zap.Logger, name string) hsm.Callback {
	return func(s *hsm.State, e *hsm.Event, _ hsm.Host) error {
		logger.Info("callback",
			zap.String("hook", name),
			zap.String("state", string(s.Name())),
			zap.String("event", string(e.Name)),
			zap.Any("input", e.Input),
		)
		return nil
	}
}
