package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/botapigen/bind"
	"github.com/mark3labs/botapigen/resolve"
	"github.com/mark3labs/botapigen/schema"
)

// envelope is the remote API's fixed wrapper around every response.
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter *int `json:"retry_after"`
	} `json:"parameters"`
}

// Decode parses a raw response envelope for the given method. A success
// envelope is decoded against the method's declared return type; a failure
// envelope is normalized into the error taxonomy. The returned error is
// always an *APIError.
func Decode(m *bind.GeneratedMethod, raw []byte) (any, error) {
	if m == nil {
		return nil, shapeMismatch(&DecodeError{Path: "envelope", Expected: "method descriptor", Got: "nil"})
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, shapeMismatch(&DecodeError{Path: "envelope", Expected: "response envelope", Got: firstLine(err)})
	}

	if !env.OK {
		var retryAfter *int
		if env.Parameters != nil {
			retryAfter = env.Parameters.RetryAfter
		}
		return nil, NormalizeRejection(env.ErrorCode, env.Description, retryAfter)
	}

	if len(env.Result) == 0 {
		return nil, shapeMismatch(&DecodeError{Path: "result", Expected: nodeLabel(m.Returns), Got: "missing"})
	}
	v, derr := decodeNode(m.Returns, env.Result, "result")
	if derr != nil {
		return nil, shapeMismatch(derr)
	}
	return v, nil
}

// DecodeValue decodes a bare JSON payload (no envelope) against a resolved
// node. Used by the dispatch boundary for update payloads and by tests.
func DecodeValue(n *resolve.Node, raw []byte) (any, error) {
	v, derr := decodeNode(n, raw, "$")
	if derr != nil {
		return nil, shapeMismatch(derr)
	}
	return v, nil
}

// decodeNode decodes raw JSON against a graph node. Nested objects recurse
// with the same rules; arrays are atomic (any failing element fails the
// whole array); unions try candidates in declared order and accept the
// first structural match.
func decodeNode(n *resolve.Node, raw json.RawMessage, path string) (any, *DecodeError) {
	if n == nil {
		return nil, &DecodeError{Path: path, Expected: "?", Got: jsonKindOf(raw)}
	}
	mismatch := func() *DecodeError {
		return &DecodeError{Path: path, Expected: nodeLabel(n), Got: jsonKindOf(raw)}
	}
	if isJSONNull(raw) {
		return nil, mismatch()
	}

	switch n.Kind {
	case resolve.KindPrimitive:
		return decodePrimitive(n.Prim, raw, path)

	case resolve.KindObject:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, mismatch()
		}
		slots := make(map[string]FieldValue, len(fields))
		for _, f := range n.Fields {
			fraw, ok := fields[f.Name]
			if !ok {
				if f.Required {
					return nil, &DecodeError{Path: path + "." + f.Name, Expected: nodeLabel(f.Type), Got: "missing"}
				}
				// Absent stays absent; it must never turn into a zero value.
				continue
			}
			if isJSONNull(fraw) {
				if f.Required {
					return nil, &DecodeError{Path: path + "." + f.Name, Expected: nodeLabel(f.Type), Got: "null"}
				}
				slots[f.Name] = FieldValue{Presence: Null}
				continue
			}
			fv, derr := decodeNode(f.Type, fraw, path+"."+f.Name)
			if derr != nil {
				return nil, derr
			}
			slots[f.Name] = FieldValue{Presence: Present, Value: fv}
		}
		// Keys the schema does not declare are ignored: the live API is
		// allowed to be newer than the documentation snapshot.
		return NewObject(n, slots), nil

	case resolve.KindArray:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, mismatch()
		}
		out := make([]any, 0, len(elems))
		for i, eraw := range elems {
			ev, derr := decodeNode(n.Elem, eraw, fmt.Sprintf("%s[%d]", path, i))
			if derr != nil {
				return nil, derr
			}
			out = append(out, ev)
		}
		return out, nil

	case resolve.KindUnion:
		// Greedy, order-sensitive: the first candidate whose required
		// fields are present and whose field types validate wins, even if a
		// later candidate would match more specifically.
		for _, variant := range n.Variants {
			v, derr := decodeNode(variant, raw, path)
			if derr == nil {
				return &UnionValue{Variant: nodeLabel(variant), Value: v}, nil
			}
		}
		return nil, mismatch()
	}
	return nil, mismatch()
}

func decodePrimitive(prim schema.Primitive, raw json.RawMessage, path string) (any, *DecodeError) {
	mismatch := func() *DecodeError {
		return &DecodeError{Path: path, Expected: string(prim), Got: jsonKindOf(raw)}
	}
	switch prim {
	case schema.Int:
		var num json.Number
		if err := unmarshalStrictNumber(raw, &num); err != nil {
			return nil, mismatch()
		}
		i, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil {
			return nil, mismatch()
		}
		return i, nil
	case schema.Float:
		var num json.Number
		if err := unmarshalStrictNumber(raw, &num); err != nil {
			return nil, mismatch()
		}
		f, err := num.Float64()
		if err != nil {
			return nil, mismatch()
		}
		return f, nil
	case schema.String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, mismatch()
		}
		return s, nil
	case schema.Bool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, mismatch()
		}
		return b, nil
	case schema.File:
		// Files never travel in responses; a File in a return position is
		// documentation drift.
		return nil, mismatch()
	}
	return nil, mismatch()
}

// unmarshalStrictNumber accepts only JSON number literals, not quoted
// numbers.
func unmarshalStrictNumber(raw json.RawMessage, out *json.Number) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return fmt.Errorf("not a number literal")
	}
	return json.Unmarshal(trimmed, out)
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// jsonKindOf names the JSON kind of a raw value for mismatch messages.
func jsonKindOf(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func firstLine(err error) string {
	msg := err.Error()
	for i, r := range msg {
		if r == '\n' {
			return msg[:i]
		}
	}
	return msg
}
