package codec

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/bft-labs/trackship/pkg/action"
)

type batchWire struct {
	BatchID  int64             `json:"batchId"`
	ServerID string            `json:"serverId,omitempty"`
	Batch    []json.RawMessage `json:"batch"`
}

// EncodeBatch writes the batch wire object for the given id, server id and
// actions.
func (c *JSON) EncodeBatch(id int64, serverID string, actions []action.Action) ([]byte, error) {
	w := batchWire{BatchID: id, ServerID: serverID, Batch: make([]json.RawMessage, 0, len(actions))}
	for i, a := range actions {
		raw, err := c.EncodeAction(a)
		if err != nil {
			return nil, fmt.Errorf("batch %d action %d: %w", id, i, err)
		}
		w.Batch = append(w.Batch, raw)
	}
	return json.Marshal(w)
}

// DecodeBatch reads a batch wire object.
func (c *JSON) DecodeBatch(data []byte) (id int64, serverID string, actions []action.Action, err error) {
	var w batchWire
	if err := json.Unmarshal(data, &w); err != nil {
		return 0, "", nil, fmt.Errorf("decode batch: %w", err)
	}
	actions = make([]action.Action, 0, len(w.Batch))
	for i, raw := range w.Batch {
		a, err := c.DecodeAction(raw)
		if err != nil {
			return 0, "", nil, fmt.Errorf("batch %d action %d: %w", w.BatchID, i, err)
		}
		actions = append(actions, a)
	}
	return w.BatchID, w.ServerID, actions, nil
}
