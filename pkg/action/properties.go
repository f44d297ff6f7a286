package action

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/goccy/go-json"
)

// ErrInvalidValue marks a property value that has no JSON scalar form.
var ErrInvalidValue = errors.New("invalid property value")

// Property is one named scalar attached to an Action.
type Property struct {
	Key   string
	Value any
}

// Properties is an insertion-ordered set of scalar properties. Keys are
// unique. Encoding keeps insertion order; Equal ignores it.
//
// Values are strings, bools, int64, float64 or nil. Set normalizes the other
// Go integer and float types.
type Properties []Property

// Get returns the value stored under key.
func (p Properties) Get(key string) (any, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return nil, false
}

// Set stores value under key, replacing an existing entry in place.
func (p *Properties) Set(key string, value any) {
	value = normalize(value)
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: value})
}

// With returns a copy of p with key set to value. p is not modified.
func (p Properties) With(key string, value any) Properties {
	out := p.Clone()
	out.Set(key, value)
	return out
}

// Clone returns a copy that shares nothing with p.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	copy(out, p)
	return out
}

// Equal reports whether p and o hold the same keys with equal values,
// regardless of order. Integral floats compare equal to the same int64.
func (p Properties) Equal(o Properties) bool {
	if len(p) != len(o) {
		return false
	}
	for _, prop := range p {
		v, ok := o.Get(prop.Key)
		if !ok || !scalarEqual(prop.Value, v) {
			return false
		}
	}
	return true
}

// Validate returns an ErrInvalidValue error for the first value that is not
// a string, bool, integer, finite float or nil.
func (p Properties) Validate() error {
	for _, prop := range p {
		switch v := normalize(prop.Value).(type) {
		case nil, string, bool, int64:
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %q is %v", ErrInvalidValue, prop.Key, v)
			}
		default:
			return fmt.Errorf("%w: %q has type %T", ErrInvalidValue, prop.Key, v)
		}
	}
	return nil
}

// MarshalJSON writes the properties as a JSON object in insertion order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", prop.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of scalars, keeping wire order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}

	out := Properties{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("properties: expected key, got %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		val, err := scalarFromToken(tok)
		if err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		out.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

func scalarFromToken(tok any) (any, error) {
	switch v := tok.(type) {
	case nil, string, bool:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	case float64:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported value %v", tok)
	}
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint:
		if n <= math.MaxInt64 {
			return int64(n)
		}
		return float64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

func scalarEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int64:
			return x == float64(y)
		}
		return false
	default:
		return reflect.DeepEqual(a, b)
	}
}
