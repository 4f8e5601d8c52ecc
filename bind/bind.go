// Package bind materializes the resolved type graph into the binding set
// consulted by the runtime codec.
//
// Generation runs once, before any concurrent activity. The produced
// Bindings value is immutable and is read concurrently by every call
// without synchronization.
package bind

import (
	"fmt"

	"github.com/mark3labs/botapigen/resolve"
	"github.com/mark3labs/botapigen/schema"
)

// GeneratedType is a record shape with per-field required/optional metadata.
type GeneratedType struct {
	Name        string
	Node        *resolve.Node
	Fields      []resolve.Field
	IsUnion     bool
	Variants    []*resolve.Node
	Description string
}

// GeneratedMethod is a callable descriptor: parameter list with required
// metadata, the attachment flag, and the expected return type used for
// response validation. It carries no network-aware logic.
type GeneratedMethod struct {
	Name          string
	Description   string
	Params        []resolve.Field
	Returns       *resolve.Node
	HasAttachment bool

	required []string // cached required parameter names
}

// RequiredParams returns the names of required parameters in declared order.
func (m *GeneratedMethod) RequiredParams() []string { return m.required }

// Param returns the descriptor of a parameter by name, or nil.
func (m *GeneratedMethod) Param(name string) *resolve.Field {
	for i := range m.Params {
		if m.Params[i].Name == name {
			return &m.Params[i]
		}
	}
	return nil
}

// Bindings is the process-wide binding set.
type Bindings struct {
	Types   map[string]*GeneratedType
	Methods map[string]*GeneratedMethod

	TypeNames   []string
	MethodNames []string
}

// Type returns the named generated type or nil.
func (b *Bindings) Type(name string) *GeneratedType {
	if b == nil {
		return nil
	}
	return b.Types[name]
}

// Method returns the named generated method or nil.
func (b *Bindings) Method(name string) *GeneratedMethod {
	if b == nil {
		return nil
	}
	return b.Methods[name]
}

// Generate produces Bindings from a resolved graph. It is idempotent and
// order-independent: the same graph always yields structurally identical
// bindings, and generation has no side effects beyond the returned value.
func Generate(graph *resolve.Graph) (*Bindings, error) {
	if graph == nil {
		return nil, fmt.Errorf("bind: nil graph")
	}

	b := &Bindings{
		Types:       make(map[string]*GeneratedType, len(graph.Types)),
		Methods:     make(map[string]*GeneratedMethod, len(graph.Methods)),
		TypeNames:   append([]string(nil), graph.TypeNames...),
		MethodNames: append([]string(nil), graph.MethodNames...),
	}

	for _, name := range graph.TypeNames {
		node := graph.Types[name]
		gt := &GeneratedType{
			Name: name,
			Node: node,
		}
		switch node.Kind {
		case resolve.KindObject:
			gt.Fields = node.Fields
		case resolve.KindUnion:
			gt.IsUnion = true
			gt.Variants = node.Variants
		default:
			return nil, fmt.Errorf("bind: type %s resolved to a non-record node", name)
		}
		b.Types[name] = gt
	}

	for _, name := range graph.MethodNames {
		m := graph.Methods[name]
		gm := &GeneratedMethod{
			Name:          m.Name,
			Description:   m.Description,
			Params:        m.Params,
			Returns:       m.Returns,
			HasAttachment: m.HasAttachment,
		}
		for _, p := range m.Params {
			// A method flagged for attachments must stay encodable as a
			// multipart body even when no file is supplied at call time, so
			// the flag is recomputed here rather than trusted blindly.
			if !gm.HasAttachment && containsFile(p.Type, make(map[*resolve.Node]bool)) {
				gm.HasAttachment = true
			}
			if p.Required {
				gm.required = append(gm.required, p.Name)
			}
		}
		b.Methods[name] = gm
	}

	return b, nil
}

// containsFile walks a resolved node looking for the File primitive. seen
// guards against cycles in the interned graph.
func containsFile(n *resolve.Node, seen map[*resolve.Node]bool) bool {
	if n == nil || seen[n] {
		return false
	}
	seen[n] = true
	switch n.Kind {
	case resolve.KindPrimitive:
		return n.Prim == schema.File
	case resolve.KindArray:
		return containsFile(n.Elem, seen)
	case resolve.KindUnion:
		for _, v := range n.Variants {
			if containsFile(v, seen) {
				return true
			}
		}
	case resolve.KindObject:
		for _, f := range n.Fields {
			if containsFile(f.Type, seen) {
				return true
			}
		}
	}
	return false
}
