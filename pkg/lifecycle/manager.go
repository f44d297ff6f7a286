package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/bft-labs/trackship/pkg/log"
)

var (
	ErrNotRunning      = errors.New("not running")
	ErrAlreadyRunning  = errors.New("already running")
	ErrShutdownTimeout = errors.New("shutdown timeout")
)

// ShutdownTimeout is the default bound on waiting for workers during Stop.
const ShutdownTimeout = 30 * time.Second

var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// DefaultManager implements Manager.
type DefaultManager struct {
	mu       sync.RWMutex
	state    State
	wg       *conc.WaitGroup
	logger   log.Logger
	observer Observer
}

// NewManager creates a manager in StateStopped. observer may be nil.
func NewManager(logger log.Logger, observer Observer) *DefaultManager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &DefaultManager{
		state:    StateStopped,
		wg:       conc.NewWaitGroup(),
		logger:   logger,
		observer: observer,
	}
}

// State returns the current state.
func (m *DefaultManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo moves to newState if the current state allows it.
func (m *DefaultManager) TransitionTo(newState State, reason string) error {
	m.mu.Lock()
	old := m.state
	if !allowed(old, newState) {
		m.mu.Unlock()
		if old == StateStopped || old == StateCrashed {
			return fmt.Errorf("%w: %s -> %s", ErrNotRunning, old, newState)
		}
		return fmt.Errorf("%w: %s -> %s", ErrAlreadyRunning, old, newState)
	}
	m.state = newState
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.OnStateChange(old, newState, reason)
	}
	m.logger.Info("state transition",
		log.String("from", old.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart reports whether Start may be called.
func (m *DefaultManager) CanStart() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateStopped || m.state == StateCrashed
}

// CanStop reports whether Stop may be called.
func (m *DefaultManager) CanStop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRunning || m.state == StateStarting
}

// Go runs fn in a tracked goroutine.
func (m *DefaultManager) Go(fn func()) {
	m.mu.RLock()
	wg := m.wg
	m.mu.RUnlock()
	wg.Go(fn)
}

// WaitWithTimeout waits for goroutines started with Go. A panic in one of
// them is logged and returned as an error. After it returns the manager
// tracks a fresh set of goroutines, so a stopped component can start again.
func (m *DefaultManager) WaitWithTimeout(timeout time.Duration) error {
	m.mu.Lock()
	wg := m.wg
	m.wg = conc.NewWaitGroup()
	m.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		if r := wg.WaitAndRecover(); r != nil {
			done <- r.AsError()
			return
		}
		done <- nil
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Error("worker panicked", log.Err(err))
		}
		return err
	case <-timer.C:
		m.logger.Warn("shutdown timeout, giving up on workers",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}

var _ Manager = (*DefaultManager)(nil)
