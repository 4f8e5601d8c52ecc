package wire

import (
	"bytes"
	"encoding/json"
)

// Opt is the three-state optional used by emitted bindings: a field the
// payload omitted stays Absent (the zero Opt), an explicit null becomes
// Null, and anything else carries a value. Absent and Null never compare
// equal.
type Opt[T any] struct {
	presence Presence
	value    T
}

// Some wraps a present value.
func Some[T any](v T) Opt[T] { return Opt[T]{presence: Present, value: v} }

// ExplicitNull is the explicit-null state.
func ExplicitNull[T any]() Opt[T] { return Opt[T]{presence: Null} }

// State returns the slot's presence marker.
func (o Opt[T]) State() Presence { return o.presence }

// IsAbsent reports whether the key never appeared on the wire.
func (o Opt[T]) IsAbsent() bool { return o.presence == Absent }

// IsNull reports whether the key was sent as explicit null.
func (o Opt[T]) IsNull() bool { return o.presence == Null }

// Get returns the value and whether one is present.
func (o Opt[T]) Get() (T, bool) {
	if o.presence != Present {
		var zero T
		return zero, false
	}
	return o.value, true
}

// IsZero reports the Absent state, so emitted struct fields tagged with
// omitzero drop absent slots from marshalled output while explicit nulls
// survive.
func (o Opt[T]) IsZero() bool { return o.presence == Absent }

// Or returns the value when present, otherwise fallback.
func (o Opt[T]) Or(fallback T) T {
	if o.presence != Present {
		return fallback
	}
	return o.value
}

// UnmarshalJSON is only invoked when the key exists, so the zero (Absent)
// state survives decoding untouched for omitted keys.
func (o *Opt[T]) UnmarshalJSON(raw []byte) error {
	if string(bytes.TrimSpace(raw)) == "null" {
		*o = Opt[T]{presence: Null}
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*o = Opt[T]{presence: Present, value: v}
	return nil
}

// MarshalJSON renders Null and Absent states as null; request paths that
// must distinguish the two go through Encode, which skips absent slots
// before marshalling.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if o.presence != Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
