package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// BuildStoreFromOpenAPI converts an OpenAPI v3 document into a Store.
//
// The mapping assumes the bot-API convention of one POST operation per
// method path ("/getMe", "/sendPhoto"): components.schemas become types,
// operations become methods. oneOf/anyOf compositions become ordered unions,
// string schemas with format "binary" become File parameters, and a
// multipart request body marks the method attachment-capable.
func BuildStoreFromOpenAPI(doc *openapi3.T) (*Store, error) {
	if doc == nil {
		return nil, &SchemaError{Code: InputError, Message: "schema: nil OpenAPI document"}
	}

	store := &Store{
		Types:   make(map[string]*TypeSchema),
		Methods: make(map[string]*MethodSchema),
	}
	if doc.Info != nil {
		store.Version = strings.TrimSpace(doc.Info.Version)
	}

	if doc.Components != nil && doc.Components.Schemas != nil {
		names := make([]string, 0, len(doc.Components.Schemas))
		for name := range doc.Components.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref := doc.Components.Schemas[name]
			if ref == nil || ref.Value == nil {
				continue
			}
			ts, err := schemaToType(name, ref.Value)
			if err != nil {
				return nil, err
			}
			store.Types[name] = ts
		}
	}

	if doc.Paths != nil {
		paths := make([]string, 0, len(doc.Paths))
		for p := range doc.Paths {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			item := doc.Paths[p]
			if item == nil || item.Post == nil {
				continue
			}
			name := strings.TrimPrefix(p, "/")
			if !isIdent(name) {
				return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: path %q does not name a method", p)}
			}
			ms, err := operationToMethod(name, item.Post)
			if err != nil {
				return nil, err
			}
			store.Methods[name] = ms
		}
	}

	if len(store.Types) == 0 && len(store.Methods) == 0 {
		return nil, &SchemaError{Code: ValidationError, Message: "schema: OpenAPI document declares no schemas and no operations"}
	}

	store.TypeNames = sortedKeys(store.Types)
	store.MethodNames = sortedKeys(store.Methods)
	return store, nil
}

func schemaToType(name string, s *openapi3.Schema) (*TypeSchema, error) {
	ts := &TypeSchema{Name: name, Description: strings.TrimSpace(s.Description)}

	// A top-level oneOf/anyOf of references is a union type.
	if comps := pickComposition(s); len(comps) > 0 {
		for _, ref := range comps {
			target := refName(ref)
			if target == "" {
				return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: type %s: union variant is not a named reference", name)}
			}
			ts.Variants = append(ts.Variants, target)
		}
		return ts, nil
	}

	required := make(map[string]struct{}, len(s.Required))
	for _, r := range s.Required {
		required[r] = struct{}{}
	}

	propNames := make([]string, 0, len(s.Properties))
	for pn := range s.Properties {
		propNames = append(propNames, pn)
	}
	sort.Strings(propNames)
	for _, pn := range propNames {
		pref := s.Properties[pn]
		expr, err := schemaToExpr(pref)
		if err != nil {
			return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: type %s field %q: %v", name, pn, err), Cause: err}
		}
		desc := ""
		if pref != nil && pref.Value != nil {
			desc = strings.TrimSpace(pref.Value.Description)
		}
		_, req := required[pn]
		ts.Fields = append(ts.Fields, FieldSpec{Name: pn, Type: expr, Required: req, Description: desc})
	}
	return ts, nil
}

func operationToMethod(name string, op *openapi3.Operation) (*MethodSchema, error) {
	ms := &MethodSchema{Name: name, Description: strings.TrimSpace(op.Description)}
	if ms.Description == "" {
		ms.Description = strings.TrimSpace(op.Summary)
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		media, multipart := pickRequestMedia(op.RequestBody.Value.Content)
		if multipart {
			ms.HasAttachment = true
		}
		if media != nil && media.Schema != nil && media.Schema.Value != nil {
			body := media.Schema.Value
			required := make(map[string]struct{}, len(body.Required))
			for _, r := range body.Required {
				required[r] = struct{}{}
			}
			propNames := make([]string, 0, len(body.Properties))
			for pn := range body.Properties {
				propNames = append(propNames, pn)
			}
			sort.Strings(propNames)
			for _, pn := range propNames {
				pref := body.Properties[pn]
				expr, err := schemaToExpr(pref)
				if err != nil {
					return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: method %s param %q: %v", name, pn, err), Cause: err}
				}
				desc := ""
				if pref != nil && pref.Value != nil {
					desc = strings.TrimSpace(pref.Value.Description)
				}
				_, req := required[pn]
				ms.Params = append(ms.Params, FieldSpec{Name: pn, Type: expr, Required: req, Description: desc})
			}
		}
	}
	for _, p := range ms.Params {
		if p.Type.ContainsFile() {
			ms.HasAttachment = true
			break
		}
	}

	ret, err := responseExpr(op)
	if err != nil {
		return nil, &SchemaError{Code: ValidationError, Message: fmt.Sprintf("schema: method %s: %v", name, err), Cause: err}
	}
	ms.Returns = ret
	return ms, nil
}

// responseExpr extracts the success payload type from the 200 response. When
// the response schema is already envelope-shaped ({ok, result}), the result
// property is used; otherwise the whole schema is taken as the payload.
func responseExpr(op *openapi3.Operation) (TypeExpr, error) {
	if op.Responses == nil {
		return TypeExpr{}, fmt.Errorf("no responses declared")
	}
	rref := op.Responses["200"]
	if rref == nil || rref.Value == nil {
		return TypeExpr{}, fmt.Errorf("no 200 response declared")
	}
	mt := rref.Value.Content.Get("application/json")
	if mt == nil || mt.Schema == nil {
		return TypeExpr{}, fmt.Errorf("200 response has no application/json schema")
	}
	sref := mt.Schema
	if sref.Value != nil {
		if result, ok := sref.Value.Properties["result"]; ok {
			if _, hasOK := sref.Value.Properties["ok"]; hasOK {
				sref = result
			}
		}
	}
	return schemaToExpr(sref)
}

// pickRequestMedia chooses the request body media type, preferring multipart
// (which also flags the method attachment-capable) over JSON.
func pickRequestMedia(content openapi3.Content) (*openapi3.MediaType, bool) {
	if content == nil {
		return nil, false
	}
	if mt := content.Get("multipart/form-data"); mt != nil {
		return mt, true
	}
	if mt := content.Get("application/json"); mt != nil {
		return mt, false
	}
	// Fall back to any media type, deterministically.
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if mt := content[k]; mt != nil {
			return mt, false
		}
	}
	return nil, false
}

func schemaToExpr(ref *openapi3.SchemaRef) (TypeExpr, error) {
	if ref == nil {
		return TypeExpr{}, fmt.Errorf("missing schema")
	}
	if name := refName(ref); name != "" {
		return TypeExpr{Kind: KindRef, Ref: name}, nil
	}
	s := ref.Value
	if s == nil {
		return TypeExpr{}, fmt.Errorf("empty schema")
	}

	if comps := pickComposition(s); len(comps) > 0 {
		variants := make([]TypeExpr, 0, len(comps))
		for _, c := range comps {
			v, err := schemaToExpr(c)
			if err != nil {
				return TypeExpr{}, err
			}
			variants = append(variants, v)
		}
		return TypeExpr{Kind: KindUnion, Variants: variants}, nil
	}

	switch s.Type {
	case "integer":
		return TypeExpr{Kind: KindPrimitive, Prim: Int}, nil
	case "number":
		return TypeExpr{Kind: KindPrimitive, Prim: Float}, nil
	case "boolean":
		return TypeExpr{Kind: KindPrimitive, Prim: Bool}, nil
	case "string":
		if s.Format == "binary" {
			return TypeExpr{Kind: KindPrimitive, Prim: File}, nil
		}
		return TypeExpr{Kind: KindPrimitive, Prim: String}, nil
	case "array":
		elem, err := schemaToExpr(s.Items)
		if err != nil {
			return TypeExpr{}, fmt.Errorf("array items: %w", err)
		}
		return TypeExpr{Kind: KindArray, Elem: &elem}, nil
	}
	return TypeExpr{}, fmt.Errorf("unsupported schema type %q", s.Type)
}

// pickComposition returns the ordered union candidates of a schema, if any.
// oneOf wins over anyOf when both are present; allOf is not a union and is
// not supported as one.
func pickComposition(s *openapi3.Schema) []*openapi3.SchemaRef {
	if len(s.OneOf) > 0 {
		return s.OneOf
	}
	if len(s.AnyOf) > 0 {
		return s.AnyOf
	}
	return nil
}

func refName(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Ref == "" {
		return ""
	}
	const prefix = "#/components/schemas/"
	if strings.HasPrefix(ref.Ref, prefix) {
		return strings.TrimPrefix(ref.Ref, prefix)
	}
	return ""
}
