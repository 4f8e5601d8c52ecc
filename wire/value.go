// Package wire implements the per-call codec: encoding argument maps into
// transport-agnostic request bodies and decoding response envelopes into
// typed values, driven by the binding set produced ahead of any call.
//
// Everything here is a synchronous, bounded, pure transformation. The
// package performs no I/O and holds no state between calls.
package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/botapigen/resolve"
)

// Presence is the three-state marker for optional fields. A key the remote
// API omitted and a key it sent as explicit null carry different semantics
// downstream, so the two must never collapse into one state.
type Presence int

const (
	Absent Presence = iota
	Null
	Present
)

func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Null:
		return "null"
	case Present:
		return "present"
	}
	return fmt.Sprintf("Presence(%d)", int(p))
}

// FieldValue is one decoded field slot. Value is nil unless Presence is
// Present.
type FieldValue struct {
	Presence Presence
	Value    any
}

// Object is a decoded record. Fields holds only keys that appeared on the
// wire; Field returns an Absent FieldValue for declared keys the payload
// omitted.
type Object struct {
	Type   *resolve.Node
	fields map[string]FieldValue
}

// NewObject builds an Object from decoded field slots. Exposed for tests
// and for callers constructing request values from decoded material.
func NewObject(typ *resolve.Node, fields map[string]FieldValue) *Object {
	return &Object{Type: typ, fields: fields}
}

// Field returns the slot for name. Unknown or omitted keys yield an Absent
// slot, never a zero value.
func (o *Object) Field(name string) FieldValue {
	if o == nil {
		return FieldValue{}
	}
	return o.fields[name]
}

// Get returns the value of name when present.
func (o *Object) Get(name string) (any, bool) {
	fv := o.Field(name)
	return fv.Value, fv.Presence == Present
}

// Len returns the number of keys that appeared on the wire.
func (o *Object) Len() int { return len(o.fields) }

// MarshalJSON renders present fields as values and explicit-null fields as
// null, in the declared field order of the object's type. Absent fields are
// skipped entirely, which makes a decoded object re-encodable into an
// envelope equal to the one it came from.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteByte('{')
	first := true
	writeField := func(name string, fv FieldValue) error {
		if fv.Presence == Absent {
			return nil
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		if fv.Presence == Null {
			buf.WriteString("null")
			return nil
		}
		raw, err := json.Marshal(fv.Value)
		if err != nil {
			return err
		}
		buf.Write(raw)
		return nil
	}
	if o.Type != nil && o.Type.Kind == resolve.KindObject {
		for _, f := range o.Type.Fields {
			if err := writeField(f.Name, o.fields[f.Name]); err != nil {
				return nil, err
			}
		}
	} else {
		for name, fv := range o.fields {
			if err := writeField(name, fv); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

// UnionValue wraps a value decoded through a union type, recording which
// candidate matched. Variant is the documentation label of the winning
// candidate.
type UnionValue struct {
	Variant string
	Value   any
}

// MarshalJSON renders the wrapped value; the variant label is decode-side
// metadata, not wire data.
func (u *UnionValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Value)
}

// InputFile is a binary attachment supplied by the caller for a File
// parameter. Name becomes the uploaded filename.
type InputFile struct {
	Name    string
	Content io.Reader
}

// nodeLabel renders a resolved node as a documentation-style type label for
// error messages and union variant names. Named nodes short-circuit, so
// cyclic graphs terminate.
func nodeLabel(n *resolve.Node) string {
	if n == nil {
		return "?"
	}
	if n.Name != "" {
		return n.Name
	}
	switch n.Kind {
	case resolve.KindPrimitive:
		return string(n.Prim)
	case resolve.KindArray:
		return "Array of " + nodeLabel(n.Elem)
	case resolve.KindUnion:
		parts := make([]string, 0, len(n.Variants))
		for _, v := range n.Variants {
			parts = append(parts, nodeLabel(v))
		}
		return strings.Join(parts, " or ")
	}
	return "?"
}
