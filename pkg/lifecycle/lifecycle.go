package lifecycle

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// State is the lifecycle state of a plugin or background service.
type State uint8

const (
	StateNotStarted State = iota
	StateStarting
	StateStarted
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Service is anything the hosting process starts before the first vote interval and stops on
// shutdown. Plugins satisfy it too.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsStarted() bool
}

// Lifecycle tracks the state of a Service. Embed it and call StartWith/StopWith from the Start and
// Stop methods. The zero value is ready to use and starts in StateNotStarted.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsStarted reports whether the service finished starting and has not begun stopping.
func (l *Lifecycle) IsStarted() bool {
	return l.State() == StateStarted
}

// StartWith moves NotStarted → Starting → Started, running fn in between. If fn fails the state
// falls back to NotStarted so the host may retry. fn may be nil.
func (l *Lifecycle) StartWith(ctx context.Context, fn func(context.Context) error) error {
	if err := l.transition(StateNotStarted, StateStarting); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(ctx); err != nil {
			l.set(StateNotStarted)
			return eris.Wrap(err, "start failed")
		}
	}
	l.set(StateStarted)
	return nil
}

// StopWith moves Started → Stopping → Stopped, running fn in between. The service ends up Stopped
// even if fn fails. Stopping a service that never started is a no-op.
func (l *Lifecycle) StopWith(ctx context.Context, fn func(context.Context) error) error {
	l.mu.Lock()
	if l.state == StateNotStarted || l.state == StateStopped {
		l.state = StateStopped
		l.mu.Unlock()
		return nil
	}
	if l.state != StateStarted {
		state := l.state
		l.mu.Unlock()
		return eris.Errorf("cannot stop while %s", state)
	}
	l.state = StateStopping
	l.mu.Unlock()

	defer l.set(StateStopped)
	if fn != nil {
		if err := fn(ctx); err != nil {
			return eris.Wrap(err, "stop failed")
		}
	}
	return nil
}

func (l *Lifecycle) transition(from, to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return eris.Errorf("cannot move to %s while %s", to, l.state)
	}
	l.state = to
	return nil
}

func (l *Lifecycle) set(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}
