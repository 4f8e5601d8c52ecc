package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"reflect"
	"sort"
	"strconv"

	"github.com/mark3labs/botapigen/bind"
	"github.com/mark3labs/botapigen/resolve"
	"github.com/mark3labs/botapigen/schema"
)

// EncodedRequest is a transport-agnostic request body. The transport
// adapter decides how it travels; the codec only guarantees the body and
// content type are consistent with the method descriptor.
type EncodedRequest struct {
	Method      string
	ContentType string
	Body        []byte
}

const jsonContentType = "application/json"

// Encode validates the argument map against the method descriptor and
// serializes it. Methods without attachment capability produce a JSON body
// with keys in declared parameter order; attachment-capable methods always
// produce a multipart body, even when no file value is supplied, because
// mixed text and file fields must share one encoding.
func Encode(m *bind.GeneratedMethod, args map[string]any) (*EncodedRequest, error) {
	if m == nil {
		return nil, fmt.Errorf("encode: nil method descriptor")
	}

	// Reject arguments the schema does not know. Sorted so the failing
	// parameter is deterministic.
	unknown := make([]string, 0)
	for name := range args {
		if m.Param(name) == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &EncodeError{Kind: UnknownParam, Method: m.Name, Param: unknown[0]}
	}

	for _, p := range m.Params {
		v, ok := args[p.Name]
		if !ok {
			if p.Required {
				return nil, &EncodeError{Kind: MissingRequired, Method: m.Name, Param: p.Name}
			}
			continue
		}
		if err := validateValue(m.Name, p.Name, p.Type, v); err != nil {
			return nil, err
		}
	}

	if m.HasAttachment {
		return encodeMultipart(m, args)
	}
	return encodeJSON(m, args)
}

// validateValue checks a supplied value structurally against a resolved
// node. path identifies the failing element in nested structures.
func validateValue(method, path string, n *resolve.Node, v any) *EncodeError {
	mismatch := func(expected string) *EncodeError {
		return &EncodeError{Kind: TypeMismatch, Method: method, Param: path, Expected: expected, Got: describeGo(v)}
	}
	if n == nil {
		return mismatch("?")
	}
	if v == nil {
		return mismatch(nodeLabel(n))
	}

	switch n.Kind {
	case resolve.KindPrimitive:
		switch n.Prim {
		case schema.Int:
			// Integral floats are accepted because JSON has a single number
			// kind; 123 round-tripped through map[string]any is a float64.
			if !isInteger(v) && !isIntegralFloat(v) {
				return mismatch(string(schema.Int))
			}
		case schema.Float:
			if !isInteger(v) && !isFloat(v) {
				return mismatch(string(schema.Float))
			}
		case schema.String:
			if _, ok := v.(string); !ok {
				return mismatch(string(schema.String))
			}
		case schema.Bool:
			if _, ok := v.(bool); !ok {
				return mismatch(string(schema.Bool))
			}
		case schema.File:
			switch v.(type) {
			case InputFile, *InputFile:
			default:
				return mismatch(string(schema.File))
			}
		}
		return nil

	case resolve.KindObject:
		switch ov := v.(type) {
		case map[string]any:
			for _, f := range n.Fields {
				fv, ok := ov[f.Name]
				if !ok {
					if f.Required {
						return &EncodeError{Kind: TypeMismatch, Method: method, Param: path + "." + f.Name, Expected: nodeLabel(f.Type), Got: "missing"}
					}
					continue
				}
				if fv == nil {
					// Explicit null: legal for optional fields only.
					if f.Required {
						return &EncodeError{Kind: TypeMismatch, Method: method, Param: path + "." + f.Name, Expected: nodeLabel(f.Type), Got: "null"}
					}
					continue
				}
				if err := validateValue(method, path+"."+f.Name, f.Type, fv); err != nil {
					return err
				}
			}
			// Keys outside the declared shape are drift on the caller's
			// side; surface them instead of silently sending them.
			declared := make(map[string]struct{}, len(n.Fields))
			for _, f := range n.Fields {
				declared[f.Name] = struct{}{}
			}
			extras := make([]string, 0)
			for k := range ov {
				if _, ok := declared[k]; !ok {
					extras = append(extras, k)
				}
			}
			if len(extras) > 0 {
				sort.Strings(extras)
				return &EncodeError{Kind: TypeMismatch, Method: method, Param: path + "." + extras[0], Expected: "declared field of " + nodeLabel(n), Got: "unknown key"}
			}
			return nil
		case *Object:
			for _, f := range n.Fields {
				slot := ov.Field(f.Name)
				if slot.Presence != Present {
					if f.Required {
						return &EncodeError{Kind: TypeMismatch, Method: method, Param: path + "." + f.Name, Expected: nodeLabel(f.Type), Got: slot.Presence.String()}
					}
					continue
				}
				if err := validateValue(method, path+"."+f.Name, f.Type, slot.Value); err != nil {
					return err
				}
			}
			return nil
		default:
			// Typed struct values (including emitted bindings) are accepted
			// by structural equivalence of their JSON form.
			asMap, err := toJSONMap(v)
			if err != nil {
				return mismatch(nodeLabel(n))
			}
			return validateValue(method, path, n, asMap)
		}

	case resolve.KindArray:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return mismatch(nodeLabel(n))
		}
		for i := 0; i < rv.Len(); i++ {
			if err := validateValue(method, fmt.Sprintf("%s[%d]", path, i), n.Elem, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil

	case resolve.KindUnion:
		if uv, ok := v.(*UnionValue); ok {
			v = uv.Value
		}
		for _, variant := range n.Variants {
			if validateValue(method, path, variant, v) == nil {
				return nil
			}
		}
		return mismatch(nodeLabel(n))
	}
	return mismatch(nodeLabel(n))
}

func encodeJSON(m *bind.GeneratedMethod, args map[string]any) (*EncodedRequest, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, p := range m.Params {
		v, ok := args[p.Name]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(p.Name)
		buf.Write(key)
		buf.WriteByte(':')
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: marshal %s: %w", m.Name, p.Name, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return &EncodedRequest{Method: m.Name, ContentType: jsonContentType, Body: buf.Bytes()}, nil
}

func encodeMultipart(m *bind.GeneratedMethod, args map[string]any) (*EncodedRequest, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range m.Params {
		v, ok := args[p.Name]
		if !ok {
			continue
		}
		switch file := v.(type) {
		case InputFile:
			if err := writeFilePart(w, p.Name, &file); err != nil {
				return nil, fmt.Errorf("encode %s: %w", m.Name, err)
			}
		case *InputFile:
			if err := writeFilePart(w, p.Name, file); err != nil {
				return nil, fmt.Errorf("encode %s: %w", m.Name, err)
			}
		default:
			text, err := formFieldValue(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s: field %s: %w", m.Name, p.Name, err)
			}
			if err := w.WriteField(p.Name, text); err != nil {
				return nil, fmt.Errorf("encode %s: field %s: %w", m.Name, p.Name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: close multipart: %w", m.Name, err)
	}
	return &EncodedRequest{Method: m.Name, ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}

func writeFilePart(w *multipart.Writer, field string, file *InputFile) error {
	name := file.Name
	if name == "" {
		name = field
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("file part %s: %w", field, err)
	}
	if file.Content != nil {
		if _, err := io.Copy(part, file.Content); err != nil {
			return fmt.Errorf("file part %s: %w", field, err)
		}
	}
	return nil
}

// formFieldValue renders a non-file value as a multipart form field:
// scalars as their literal text, structured values as JSON.
func formFieldValue(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case bool:
		return strconv.FormatBool(s), nil
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	}
	if isInteger(v) {
		return fmt.Sprintf("%d", v), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// toJSONMap flattens a struct (or map-like) value into map[string]any via
// its JSON form.
func toJSONMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func isIntegralFloat(v any) bool {
	switch f := v.(type) {
	case float32:
		return float64(f) == math.Trunc(float64(f))
	case float64:
		return f == math.Trunc(f)
	}
	return false
}

// describeGo names a caller-supplied Go value for mismatch messages.
func describeGo(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
