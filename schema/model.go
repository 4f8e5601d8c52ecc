package schema

// Documentation model: the raw, unresolved description of a remote bot-style
// API as it appears in its documentation. Pure data; resolution and binding
// happen in the resolve and bind packages.

// Primitive enumerates the scalar kinds the documentation uses.
type Primitive string

const (
	Int    Primitive = "Integer"
	Float  Primitive = "Float"
	String Primitive = "String"
	Bool   Primitive = "Boolean"
	// File marks a binary attachment parameter. Any method with a File
	// anywhere in a parameter type must be sent as a multipart request.
	File Primitive = "File"
)

// ExprKind discriminates TypeExpr variants.
type ExprKind int

const (
	KindPrimitive ExprKind = iota
	KindRef
	KindArray
	KindUnion
)

// TypeExpr is a raw type expression: a primitive, a reference to a named
// type, an array of an expression, or an ordered union of expressions.
type TypeExpr struct {
	Kind     ExprKind
	Prim     Primitive  // KindPrimitive
	Ref      string     // KindRef
	Elem     *TypeExpr  // KindArray
	Variants []TypeExpr // KindUnion, in documentation order
}

// ContainsFile reports whether the expression mentions the File primitive
// anywhere, directly or through arrays and unions. Named references are not
// chased here; that requires the resolved graph.
func (e TypeExpr) ContainsFile() bool {
	switch e.Kind {
	case KindPrimitive:
		return e.Prim == File
	case KindArray:
		return e.Elem != nil && e.Elem.ContainsFile()
	case KindUnion:
		for _, v := range e.Variants {
			if v.ContainsFile() {
				return true
			}
		}
	}
	return false
}

// FieldSpec describes one field of a type, or one parameter of a method.
type FieldSpec struct {
	Name        string
	Type        TypeExpr
	Required    bool
	Description string
}

// TypeSchema is a named entity from the documentation. When Variants is
// non-empty the type is a tagged union over other named types and Fields
// must be empty.
type TypeSchema struct {
	Name        string
	Description string
	Fields      []FieldSpec
	Variants    []string // union candidates in documentation order
}

// MethodSchema describes one callable API method.
type MethodSchema struct {
	Name          string
	Description   string
	Params        []FieldSpec
	Returns       TypeExpr
	HasAttachment bool
}

// Store holds the full documentation-derived schema. It is built once by a
// loader and never mutated afterwards.
type Store struct {
	Version string
	Types   map[string]*TypeSchema
	Methods map[string]*MethodSchema

	// Sorted name lists so every consumer walks the store deterministically.
	TypeNames   []string
	MethodNames []string
}

// Type returns the named TypeSchema or nil.
func (s *Store) Type(name string) *TypeSchema {
	if s == nil {
		return nil
	}
	return s.Types[name]
}

// Method returns the named MethodSchema or nil.
func (s *Store) Method(name string) *MethodSchema {
	if s == nil {
		return nil
	}
	return s.Methods[name]
}
