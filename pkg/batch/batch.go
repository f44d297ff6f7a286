package batch

import (
	"context"
	"errors"

	"github.com/bft-labs/trackship/pkg/action"
)

var (
	// ErrEmpty is returned by Next when no batch is pending.
	ErrEmpty = errors.New("batch: no pending batch")

	// ErrUnreadable is returned by Next when the head batch cannot be read
	// or decoded. The head stays queued.
	ErrUnreadable = errors.New("batch: head batch unreadable")

	// ErrEncode is returned by Persist when the actions cannot be encoded.
	// Retrying the same actions fails the same way.
	ErrEncode = errors.New("batch: actions not encodable")
)

// Batch is an immutable group of actions with a store-assigned id.
type Batch struct {
	ID       int64
	ServerID string
	Actions  []action.Action
}

// Len returns the number of actions in the batch.
func (b *Batch) Len() int {
	return len(b.Actions)
}

// Store is a FIFO queue of pending batches.
//
// Persist, Next and Remove are individually atomic. Callers compose
// Next and Remove themselves and must only Remove after delivery.
type Store interface {
	// Persist appends a new batch holding actions with the next id.
	// On error the queue and the id counter are unchanged.
	Persist(ctx context.Context, actions []action.Action) error

	// Next returns the head batch without removing it.
	// Returns ErrEmpty when nothing is pending.
	Next(ctx context.Context) (*Batch, error)

	// Remove drops the head batch.
	Remove(ctx context.Context) error

	// Len returns the number of pending batches.
	Len() int

	// NextID returns the id the next Persist will assign.
	NextID() int64
}

// Codec converts batches to and from bytes.
// *codec.JSON satisfies this interface.
type Codec interface {
	EncodeBatch(id int64, serverID string, actions []action.Action) ([]byte, error)
	DecodeBatch(data []byte) (id int64, serverID string, actions []action.Action, err error)
}
