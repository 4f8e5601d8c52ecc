package schema

import (
	"fmt"
	"strings"
)

const arrayPrefix = "Array of "

// primitiveAliases maps the spellings seen in documentation dumps to the
// canonical primitives. Matching is case-insensitive.
var primitiveAliases = map[string]Primitive{
	"integer":      Int,
	"int":          Int,
	"float":        Float,
	"float number": Float,
	"string":       String,
	"boolean":      Bool,
	"bool":         Bool,
	"true":         Bool,
	"file":         File,
	"inputfile":    File,
}

// ParseTypeExpr parses a documentation type expression string into a
// TypeExpr. The grammar follows the documentation conventions:
//
//	Integer | Float | String | Boolean | File
//	Array of <expr>
//	<expr> or <expr> [or <expr> ...]
//
// Anything else that looks like an identifier becomes a named reference;
// whether the name exists is checked later by the resolver, never here.
func ParseTypeExpr(raw string) (TypeExpr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TypeExpr{}, fmt.Errorf("empty type expression")
	}

	// Unions bind loosest: "A or B", "A, B or C".
	if parts := splitUnion(raw); len(parts) > 1 {
		variants := make([]TypeExpr, 0, len(parts))
		for _, p := range parts {
			v, err := ParseTypeExpr(p)
			if err != nil {
				return TypeExpr{}, fmt.Errorf("union variant %q: %w", p, err)
			}
			variants = append(variants, v)
		}
		return TypeExpr{Kind: KindUnion, Variants: variants}, nil
	}

	if strings.HasPrefix(raw, arrayPrefix) {
		elem, err := ParseTypeExpr(raw[len(arrayPrefix):])
		if err != nil {
			return TypeExpr{}, fmt.Errorf("array element: %w", err)
		}
		return TypeExpr{Kind: KindArray, Elem: &elem}, nil
	}

	if prim, ok := primitiveAliases[strings.ToLower(raw)]; ok {
		return TypeExpr{Kind: KindPrimitive, Prim: prim}, nil
	}

	if !isIdent(raw) {
		return TypeExpr{}, fmt.Errorf("malformed type expression %q", raw)
	}
	return TypeExpr{Kind: KindRef, Ref: raw}, nil
}

// splitUnion splits "A, B or C" / "A or B" into its candidates, preserving
// order. Returns a single-element slice when the expression is not a union.
// "Array of X or Y" is read as a union of "Array of X" and "Y", matching how
// the documentation phrases it.
func splitUnion(raw string) []string {
	replaced := strings.ReplaceAll(raw, ", ", " or ")
	parts := strings.Split(replaced, " or ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > 0
}

// FormatTypeExpr renders an expression back to documentation form. Used by
// error messages and the code emitter.
func FormatTypeExpr(e TypeExpr) string {
	switch e.Kind {
	case KindPrimitive:
		return string(e.Prim)
	case KindRef:
		return e.Ref
	case KindArray:
		if e.Elem == nil {
			return arrayPrefix + "?"
		}
		return arrayPrefix + FormatTypeExpr(*e.Elem)
	case KindUnion:
		parts := make([]string, 0, len(e.Variants))
		for _, v := range e.Variants {
			parts = append(parts, FormatTypeExpr(v))
		}
		return strings.Join(parts, " or ")
	}
	return "?"
}
