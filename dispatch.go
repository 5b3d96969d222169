package hsm

import (
	"go.uber.org/zap"
)

// Dispatch delivers event to host. The current state's local handler runs
// first, whether or not a transition follows. Then the machine resolves a
// transition and, if one is found, runs its before action, the exit hooks, the
// enter hooks and its after action, in that order. Errors returned by callbacks
// abort the dispatch and are returned unchanged; the host may then be left
// between states.
func Dispatch(host Host, event *Event) (err error) {
	engine := host.Machine()
	m := engine.base()

	var (
		from       *State
		transition *Transition
	)

	defer func() {
		for _, hook := range m.onDispatch {
			hook(event, from, transition, err)
		}
	}()

	from, err = engine.State(host.State())
	if err != nil {
		return err
	}

	if err = from.handle(event, host); err != nil {
		return err
	}

	transition, err = engine.Resolve(from, event, host)
	if err != nil {
		return err
	}

	if transition == nil {
		m.logger.Debug("event ignored",
			zap.String("machine", string(m.name)),
			zap.String("event", string(event.Name)),
			zap.String("event_id", event.ID),
			zap.String("state", string(from.name)),
		)

		return nil
	}

	to, err := engine.State(transition.To)
	if err != nil {
		return err
	}

	m.logger.Debug("transition",
		zap.String("machine", string(m.name)),
		zap.String("event", string(event.Name)),
		zap.String("event_id", event.ID),
		zap.String("from", string(from.name)),
		zap.String("to", string(to.name)),
	)

	before, err := transition.Before.resolve(host)
	if err != nil {
		return err
	}

	if before != nil {
		if err = before(from, event, host); err != nil {
			return err
		}
	}

	if err = m.exitState(from, event, host, to); err != nil {
		return err
	}

	if err = m.enterState(to, event, host, from); err != nil {
		return err
	}

	after, err := transition.After.resolve(host)
	if err != nil {
		return err
	}

	if after != nil {
		if err = after(to, event, host); err != nil {
			return err
		}
	}

	for _, hook := range m.onTransition {
		if err = hook(from, to, event, host); err != nil {
			return err
		}
	}

	return nil
}

// Initialize puts host in the machine's initial state and runs the enter hooks
// of that state and its ancestors, outermost first, with an InitializeEvent.
// The host already reports the initial state while those hooks run.
// Host constructors call it once the host is ready to be read by hooks.
func Initialize(host Host) error {
	engine := host.Machine()

	state, err := engine.State(engine.Initial())
	if err != nil {
		return err
	}

	host.SetState(state.name)

	return engine.base().enterState(state, NewEvent(InitializeEvent), host, nil)
}

// Reinitialize puts host back in the machine's initial state without running
// enter hooks; only local handlers for ReinitEvent run.
func Reinitialize(host Host) error {
	engine := host.Machine()

	state, err := engine.State(engine.Initial())
	if err != nil {
		return err
	}

	host.SetState(state.name)

	return state.handle(NewEvent(ReinitEvent), host)
}
