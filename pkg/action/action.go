package action

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
	"unicode/utf16"
)

// Kind is the wire discriminator of an Action's payload.
type Kind string

// Built-in kinds. The values are protocol constants.
const (
	KindEvent                  Kind = "event"
	KindLevel                  Kind = "level"
	KindPayment                Kind = "payment"
	KindSession                Kind = "session"
	KindIdentify               Kind = "identify"
	KindState                  Kind = "state"
	KindAttachProperties       Kind = "attachProperties"
	KindAttachEntityAttributes Kind = "attachEntityAttributes"
)

// SessionDurationProperty holds the session length of a session action.
const SessionDurationProperty = "$duration"

// Payload is the kind-specific part of an Action.
type Payload interface {
	Kind() Kind
	// ExtraSize is the payload's contribution to the approximate size.
	ExtraSize() int
}

// Action is one telemetry record.
type Action struct {
	// Name is the collector-facing action name, e.g. "trackEvent".
	Name string

	// Timestamp is epoch milliseconds; constructors set the capture time.
	Timestamp int64

	UserID       string
	ServerUserID string
	Properties   Properties

	// Payload is never nil for actions built by this package.
	Payload Payload
}

// Kind returns the payload kind, or "" when the payload is missing.
func (a Action) Kind() Kind {
	if a.Payload == nil {
		return ""
	}
	return a.Payload.Kind()
}

// WithProperty returns a copy of a with key set to value.
func (a Action) WithProperty(key string, value any) Action {
	a.Properties = a.Properties.With(key, value)
	return a
}

// WithUserID returns a copy of a attributed to userID.
func (a Action) WithUserID(userID string) Action {
	a.UserID = userID
	return a
}

// WithTimestamp returns a copy of a captured at ts.
func (a Action) WithTimestamp(ts time.Time) Action {
	a.Timestamp = ts.UnixMilli()
	return a
}

// ErrMissingPayload is returned by Validate for an action without a payload.
var ErrMissingPayload = errors.New("missing payload")

// Validate reports whether a can be encoded: it needs a payload and every
// property, including those inside the payload, must be a finite scalar.
func (a Action) Validate() error {
	if a.Payload == nil {
		return fmt.Errorf("action %q: %w", a.Name, ErrMissingPayload)
	}
	if err := a.Properties.Validate(); err != nil {
		return fmt.Errorf("action %q: %w", a.Name, err)
	}
	if v, ok := a.Payload.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
	}
	return nil
}

// Equal reports whether a and b carry the same data. Property order is
// ignored.
func (a Action) Equal(b Action) bool {
	if a.Name != b.Name || a.Timestamp != b.Timestamp ||
		a.UserID != b.UserID || a.ServerUserID != b.ServerUserID {
		return false
	}
	if !a.Properties.Equal(b.Properties) {
		return false
	}
	if eq, ok := a.Payload.(interface{ Equal(Payload) bool }); ok {
		return eq.Equal(b.Payload)
	}
	return reflect.DeepEqual(a.Payload, b.Payload)
}

// ApproximateSize estimates the in-memory footprint of a. It only decides
// when a buffer should flush; it does not bound the encoded size.
func (a Action) ApproximateSize() int {
	size := 40 + 40*len(a.Properties)
	size += StringSize(a.Name)
	size += StringSize(strconv.FormatInt(a.Timestamp, 10))
	size += StringSize(a.UserID)
	size += StringSize(a.ServerUserID)
	for _, p := range a.Properties {
		size += StringSize(p.Key)
		if p.Value != nil {
			size += StringSize(scalarString(p.Value))
		}
	}
	if a.Payload != nil {
		size += a.Payload.ExtraSize()
	}
	return 8 + size + 8
}

// StringSize estimates the footprint of s as a UTF-16 string object.
func StringSize(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n*2 + 26
}

// NowMillis returns the current time in epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

func newAction(name string, p Payload) Action {
	return Action{Name: name, Timestamp: NowMillis(), Payload: p}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
