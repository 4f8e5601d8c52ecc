// Package resolve turns a raw schema store into an interned type graph.
//
// Resolution happens once, before any call activity, and is the only place
// where named references are checked: a reference to an unknown name is a
// fatal ResolutionError here, never a deferred decode failure.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/botapigen/schema"
)

// Kind discriminates graph nodes.
type Kind int

const (
	KindPrimitive Kind = iota
	KindObject
	KindArray
	KindUnion
)

// Node is one vertex of the resolved type graph. Object and union nodes are
// interned by name, so self-referential and mutually referential types share
// a single node and the graph may contain cycles. Nodes are immutable after
// Resolve returns.
type Node struct {
	Kind Kind

	Prim schema.Primitive // KindPrimitive

	// Name is set for nodes defined by a named TypeSchema; synthetic nodes
	// built from inline array/union expressions have no name.
	Name   string
	Fields []Field // KindObject, in documentation order

	Elem *Node // KindArray

	Variants []*Node // KindUnion, in documentation order, never deduplicated
}

// Field is a resolved field or parameter.
type Field struct {
	Name        string
	Type        *Node
	Required    bool
	Description string
}

// Method is a resolved method schema.
type Method struct {
	Name          string
	Description   string
	Params        []Field
	Returns       *Node
	HasAttachment bool
}

// Graph is the resolved view of a Store.
type Graph struct {
	Types   map[string]*Node
	Methods map[string]*Method

	TypeNames   []string
	MethodNames []string
}

// ResolutionError aggregates every unresolved or malformed reference found
// while walking the store. It is a build-time fatal error.
type ResolutionError struct {
	Problems []string
}

func (e *ResolutionError) Error() string {
	if len(e.Problems) == 1 {
		return "resolve: " + e.Problems[0]
	}
	return fmt.Sprintf("resolve: %d problems:\n  %s", len(e.Problems), strings.Join(e.Problems, "\n  "))
}

type resolver struct {
	store    *schema.Store
	nodes    map[string]*Node // interned named nodes
	problems []string
}

// Resolve walks every TypeSchema and MethodSchema in the store, interning
// named references as shared node handles. Repeat visits of a name return
// the already-interned handle, so self-reference never recurses.
func Resolve(store *schema.Store) (*Graph, error) {
	if store == nil {
		return nil, &ResolutionError{Problems: []string{"nil store"}}
	}

	r := &resolver{store: store, nodes: make(map[string]*Node, len(store.Types))}

	// Pre-intern every named type so forward references resolve to the same
	// handle regardless of visit order.
	for _, name := range store.TypeNames {
		r.nodes[name] = &Node{Name: name}
	}
	for _, name := range store.TypeNames {
		r.fillNamed(r.nodes[name], store.Types[name])
	}

	methods := make(map[string]*Method, len(store.Methods))
	for _, name := range store.MethodNames {
		ms := store.Methods[name]
		m := &Method{
			Name:          ms.Name,
			Description:   ms.Description,
			Params:        r.fields(ms.Params, "method "+name),
			HasAttachment: ms.HasAttachment,
		}
		m.Returns = r.expr(ms.Returns, "method "+name+" return")
		methods[name] = m
	}

	if len(r.problems) > 0 {
		sort.Strings(r.problems)
		return nil, &ResolutionError{Problems: r.problems}
	}

	return &Graph{
		Types:       r.nodes,
		Methods:     methods,
		TypeNames:   append([]string(nil), store.TypeNames...),
		MethodNames: append([]string(nil), store.MethodNames...),
	}, nil
}

// fillNamed completes a pre-interned node in place from its TypeSchema.
func (r *resolver) fillNamed(node *Node, ts *schema.TypeSchema) {
	if len(ts.Variants) > 0 {
		node.Kind = KindUnion
		for _, v := range ts.Variants {
			target, ok := r.nodes[v]
			if !ok {
				r.problem("type %s: union variant %q is not a known type", ts.Name, v)
				continue
			}
			// Flatten, never deduplicate: identical structures under
			// different names stay distinct decode candidates.
			node.Variants = append(node.Variants, target)
		}
		return
	}
	node.Kind = KindObject
	node.Fields = r.fields(ts.Fields, "type "+ts.Name)
}

func (r *resolver) fields(specs []schema.FieldSpec, owner string) []Field {
	if len(specs) == 0 {
		return nil
	}
	out := make([]Field, 0, len(specs))
	for _, fs := range specs {
		out = append(out, Field{
			Name:        fs.Name,
			Type:        r.expr(fs.Type, owner+" field "+fs.Name),
			Required:    fs.Required,
			Description: fs.Description,
		})
	}
	return out
}

// expr converts a raw type expression into graph nodes. Named references
// resolve to interned handles; unknown names are recorded as problems and
// yield a nil-free placeholder so the walk can continue collecting errors.
func (r *resolver) expr(e schema.TypeExpr, where string) *Node {
	switch e.Kind {
	case schema.KindPrimitive:
		return &Node{Kind: KindPrimitive, Prim: e.Prim}
	case schema.KindRef:
		if node, ok := r.nodes[e.Ref]; ok {
			return node
		}
		r.problem("%s: reference to unknown type %q", where, e.Ref)
		return &Node{Kind: KindObject, Name: e.Ref}
	case schema.KindArray:
		if e.Elem == nil {
			r.problem("%s: array with no element type", where)
			return &Node{Kind: KindArray, Elem: &Node{Kind: KindPrimitive, Prim: schema.String}}
		}
		return &Node{Kind: KindArray, Elem: r.expr(*e.Elem, where)}
	case schema.KindUnion:
		node := &Node{Kind: KindUnion}
		for _, v := range e.Variants {
			node.Variants = append(node.Variants, r.expr(v, where))
		}
		return node
	}
	r.problem("%s: malformed type expression", where)
	return &Node{Kind: KindPrimitive, Prim: schema.String}
}

func (r *resolver) problem(format string, args ...any) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}
