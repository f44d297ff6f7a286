package batch

import (
	"context"
	"slices"
	"sync"

	"github.com/bft-labs/trackship/pkg/action"
)

// MemoryStore is a volatile Store. Pending batches are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	serverID string
	queue    []*Batch
	nextID   int64
}

// NewMemoryStore creates an empty MemoryStore. Only WithServerID applies.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{serverID: o.serverID}
}

// Persist appends a batch of actions.
func (s *MemoryStore) Persist(_ context.Context, actions []action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, &Batch{
		ID:       s.nextID,
		ServerID: s.serverID,
		Actions:  slices.Clone(actions),
	})
	s.nextID++
	return nil
}

// Next returns the head batch.
func (s *MemoryStore) Next(_ context.Context) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil, ErrEmpty
	}
	return s.queue[0], nil
}

// Remove drops the head batch. It is a no-op on an empty store.
func (s *MemoryStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return nil
}

// Len returns the number of pending batches.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// NextID returns the id the next Persist will assign.
func (s *MemoryStore) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

// Pending returns the ids of pending batches in delivery order.
func (s *MemoryStore) Pending() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, len(s.queue))
	for i, b := range s.queue {
		ids[i] = b.ID
	}
	return ids
}

var _ Store = (*MemoryStore)(nil)
