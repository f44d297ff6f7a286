package tracker

import (
	"time"

	"github.com/bft-labs/trackship/pkg/lifecycle"
)

// State is the lifecycle state of a Tracker.
type State = lifecycle.State

const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// FlushEvent reports one flush that had actions to write.
type FlushEvent struct {
	// BatchID is the id of the persisted batch; -1 when Err is set.
	BatchID int64
	Actions int

	// Bytes is the approximate size of the flushed actions.
	Bytes    int
	Duration time.Duration
	Err      error
}

// SendSuccessEvent reports a delivered batch.
type SendSuccessEvent struct {
	BatchID  int64
	Actions  int
	Duration time.Duration
}

// SendErrorEvent reports a failed delivery. The batch stays queued.
type SendErrorEvent struct {
	BatchID int64
	Actions int
	Error   error
}

// EventHandler receives tracker notifications. Calls are synchronous from
// the flush and upload loops, so implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnFlush(event FlushEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnFlush(FlushEvent)             {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

var _ EventHandler = BaseEventHandler{}

// stateObserver forwards lifecycle transitions to the handler.
type stateObserver struct {
	handler EventHandler
}

func (o stateObserver) OnStateChange(previous, current lifecycle.State, reason string) {
	o.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
}
