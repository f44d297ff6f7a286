package codec

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/bft-labs/trackship/pkg/action"
)

// TypeField is the discriminator key written on every encoded action.
const TypeField = "$type"

// ErrUnknownKind is returned when decoding meets a $type with no registered
// payload factory.
var ErrUnknownKind = errors.New("codec: unknown action kind")

// Factory returns a fresh, zero-valued payload for one kind.
type Factory func() action.Payload

// JSON encodes actions as JSON objects tagged with their kind.
// It is safe for concurrent use.
type JSON struct {
	mu        sync.RWMutex
	factories map[action.Kind]Factory
}

// NewJSON returns a codec that knows every built-in kind.
func NewJSON() *JSON {
	c := &JSON{factories: make(map[action.Kind]Factory)}
	c.Register(action.KindEvent, func() action.Payload { return &action.Event{} })
	c.Register(action.KindLevel, func() action.Payload { return &action.Level{} })
	c.Register(action.KindPayment, func() action.Payload { return &action.Payment{} })
	c.Register(action.KindSession, func() action.Payload { return &action.Session{} })
	c.Register(action.KindIdentify, func() action.Payload { return &action.Identify{} })
	c.Register(action.KindState, func() action.Payload { return &action.State{} })
	c.Register(action.KindAttachProperties, func() action.Payload { return &action.AttachProperties{} })
	c.Register(action.KindAttachEntityAttributes, func() action.Payload { return &action.AttachEntityAttributes{} })
	return c
}

// Register adds or replaces the factory for kind.
func (c *JSON) Register(kind action.Kind, f Factory) {
	c.mu.Lock()
	c.factories[kind] = f
	c.mu.Unlock()
}

func (c *JSON) factory(kind action.Kind) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[kind]
	return f, ok
}

type envelope struct {
	Type         action.Kind       `json:"$type"`
	Name         string            `json:"action"`
	Timestamp    int64             `json:"timestamp"`
	UserID       string            `json:"userId"`
	ServerUserID string            `json:"serverUserId,omitempty"`
	Properties   action.Properties `json:"properties"`
}

// EncodeAction writes a as one JSON object. Payload fields are merged into
// the object next to the common fields.
func (c *JSON) EncodeAction(a action.Action) ([]byte, error) {
	if a.Payload == nil {
		return nil, fmt.Errorf("encode %q: missing payload", a.Name)
	}
	props := a.Properties
	if props == nil {
		props = action.Properties{}
	}
	head, err := json.Marshal(envelope{
		Type:         a.Payload.Kind(),
		Name:         a.Name,
		Timestamp:    a.Timestamp,
		UserID:       a.UserID,
		ServerUserID: a.ServerUserID,
		Properties:   props,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", a.Name, err)
	}
	body, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %q payload: %w", a.Name, err)
	}
	return mergeObjects(head, body)
}

// DecodeAction reads one action written by EncodeAction.
func (c *JSON) DecodeAction(data []byte) (action.Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return action.Action{}, fmt.Errorf("decode action: %w", err)
	}
	f, ok := c.factory(env.Type)
	if !ok {
		return action.Action{}, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	p := f()
	if err := json.Unmarshal(data, p); err != nil {
		return action.Action{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	if len(env.Properties) == 0 {
		env.Properties = nil
	}
	return action.Action{
		Name:         env.Name,
		Timestamp:    env.Timestamp,
		UserID:       env.UserID,
		ServerUserID: env.ServerUserID,
		Properties:   env.Properties,
		Payload:      p,
	}, nil
}

// mergeObjects splices the members of JSON object b into JSON object a.
func mergeObjects(a, b []byte) ([]byte, error) {
	a = bytes.TrimSpace(a)
	b = bytes.TrimSpace(b)
	if len(a) < 2 || a[len(a)-1] != '}' || len(b) < 2 || b[0] != '{' {
		return nil, errors.New("merge: operands are not objects")
	}
	inner := bytes.TrimSpace(b[1 : len(b)-1])
	if len(inner) == 0 {
		return a, nil
	}
	out := make([]byte, 0, len(a)+len(inner)+1)
	out = append(out, a[:len(a)-1]...)
	out = append(out, ',')
	out = append(out, inner...)
	out = append(out, '}')
	return out, nil
}
