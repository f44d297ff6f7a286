package lifecycle

import "time"

// State is the lifecycle state of a tracker.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Observer is notified after every accepted state transition.
type Observer interface {
	OnStateChange(previous, current State, reason string)
}

// Manager guards the Start/Stop state machine and tracks the goroutines a
// running component owns.
type Manager interface {
	State() State
	CanStart() bool
	CanStop() bool

	// TransitionTo moves to newState or returns an error if the move is
	// not allowed from the current state.
	TransitionTo(newState State, reason string) error

	// Go runs fn in a tracked goroutine.
	Go(fn func())

	// WaitWithTimeout waits for tracked goroutines. It returns
	// ErrShutdownTimeout when timeout passes first.
	WaitWithTimeout(timeout time.Duration) error
}
