package goemitter

import (
	"fmt"
	"strings"

	"github.com/mark3labs/botapigen/bind"
	"github.com/mark3labs/botapigen/resolve"
	"github.com/mark3labs/botapigen/schema"
)

const generatedHeader = "// Code generated by botapigen. DO NOT EDIT.\n\n"

func renderDoc(pkg string) string {
	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "// Package %s holds typed bindings for a bot API schema.\n", pkg)
	b.WriteString("//\n")
	b.WriteString("// Optional fields use wire.Opt, which keeps the distinction between a\n")
	b.WriteString("// key the API omitted and a key it sent as explicit null.\n")
	fmt.Fprintf(&b, "package %s\n", pkg)
	return b.String()
}

func renderTypes(pkg string, bindings *bind.Bindings) string {
	var body strings.Builder
	usesWire := false
	usesJSON := false

	for _, name := range bindings.TypeNames {
		gt := bindings.Types[name]
		export := exportName(name)
		body.WriteString("\n")
		if gt.IsUnion {
			labels := make([]string, 0, len(gt.Variants))
			for _, v := range gt.Variants {
				labels = append(labels, exportName(v.Name))
			}
			fmt.Fprintf(&body, "// %s is one of %s, matched in that order.\n", export, strings.Join(labels, ", "))
			fmt.Fprintf(&body, "type %s = json.RawMessage\n", export)
			usesJSON = true
			continue
		}
		if d := gt.Node.Name; d != "" {
			fmt.Fprintf(&body, "// %s mirrors the API type %s.\n", export, name)
		}
		fmt.Fprintf(&body, "type %s struct {\n", export)
		for _, f := range gt.Fields {
			typ, flags := fieldGoType(f)
			usesWire = usesWire || flags.wire
			usesJSON = usesJSON || flags.json
			tag := f.Name
			if !f.Required {
				tag += ",omitzero"
			}
			fmt.Fprintf(&body, "\t%s %s `json:\"%s\"`\n", exportName(f.Name), typ, tag)
		}
		body.WriteString("}\n")
	}

	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "package %s\n", pkg)
	writeImports(&b, usesJSON, usesWire, false, false)
	b.WriteString(body.String())
	return b.String()
}

func renderMethods(pkg string, bindings *bind.Bindings) string {
	var body strings.Builder
	usesWire := false
	usesJSON := true // remarshal helper

	body.WriteString("\n// API wraps a runtime client with typed method calls.\n")
	body.WriteString("type API struct {\n\tc *client.Client\n}\n\n")
	body.WriteString("// NewAPI builds the typed facade over a configured client.\n")
	body.WriteString("func NewAPI(c *client.Client) *API {\n\treturn &API{c: c}\n}\n\n")
	body.WriteString("func remarshal(v any, out any) error {\n")
	body.WriteString("\traw, err := json.Marshal(v)\n")
	body.WriteString("\tif err != nil {\n\t\treturn err\n\t}\n")
	body.WriteString("\treturn json.Unmarshal(raw, out)\n}\n")

	for _, name := range bindings.MethodNames {
		gm := bindings.Methods[name]
		export := exportName(name)

		if len(gm.Params) > 0 {
			body.WriteString("\n")
			fmt.Fprintf(&body, "// %sParams carries the arguments of %s.\n", export, name)
			fmt.Fprintf(&body, "type %sParams struct {\n", export)
			for _, p := range gm.Params {
				typ, flags := paramGoType(p)
				usesWire = usesWire || flags.wire
				usesJSON = usesJSON || flags.json
				fmt.Fprintf(&body, "\t%s %s\n", exportName(p.Name), typ)
			}
			body.WriteString("}\n")
		}

		ret := returnShape(gm.Returns)
		usesJSON = usesJSON || ret.json

		body.WriteString("\n")
		if gm.Description != "" {
			fmt.Fprintf(&body, "// %s calls %s. %s\n", export, name, gm.Description)
		} else {
			fmt.Fprintf(&body, "// %s calls %s.\n", export, name)
		}
		if len(gm.Params) > 0 {
			fmt.Fprintf(&body, "func (a *API) %s(ctx context.Context, p %sParams) (%s, error) {\n", export, export, ret.typ)
			body.WriteString("\targs := map[string]any{}\n")
			for _, p := range gm.Params {
				field := exportName(p.Name)
				if p.Required {
					fmt.Fprintf(&body, "\targs[%q] = p.%s\n", p.Name, field)
				} else {
					fmt.Fprintf(&body, "\tif v, ok := p.%s.Get(); ok {\n\t\targs[%q] = v\n\t}\n", field, p.Name)
				}
			}
			fmt.Fprintf(&body, "\tv, err := a.c.Invoke(ctx, %q, args)\n", name)
		} else {
			fmt.Fprintf(&body, "func (a *API) %s(ctx context.Context) (%s, error) {\n", export, ret.typ)
			fmt.Fprintf(&body, "\tv, err := a.c.Invoke(ctx, %q, nil)\n", name)
		}
		fmt.Fprintf(&body, "\tif err != nil {\n\t\treturn %s, err\n\t}\n", ret.zero)
		fmt.Fprintf(&body, "\tvar out %s\n", ret.decl)
		fmt.Fprintf(&body, "\tif err := remarshal(v, &out); err != nil {\n\t\treturn %s, err\n\t}\n", ret.zero)
		fmt.Fprintf(&body, "\treturn %s, nil\n}\n", ret.expr)
	}

	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "package %s\n", pkg)
	writeImports(&b, usesJSON, usesWire, true, true)
	b.WriteString(body.String())
	return b.String()
}

func writeImports(b *strings.Builder, usesJSON, usesWire, usesContext, usesClient bool) {
	if !usesJSON && !usesWire && !usesContext && !usesClient {
		return
	}
	b.WriteString("\nimport (\n")
	if usesContext {
		b.WriteString("\t\"context\"\n")
	}
	if usesJSON {
		b.WriteString("\t\"encoding/json\"\n")
	}
	if usesContext || usesJSON {
		b.WriteString("\n")
	}
	if usesClient {
		b.WriteString("\t\"github.com/mark3labs/botapigen/client\"\n")
	}
	if usesWire {
		b.WriteString("\t\"github.com/mark3labs/botapigen/wire\"\n")
	}
	b.WriteString(")\n")
}

type typeFlags struct {
	wire bool
	json bool
}

// fieldGoType maps a resolved field to its emitted Go type. Optional fields
// wrap the base type in wire.Opt.
func fieldGoType(f resolve.Field) (string, typeFlags) {
	base, flags := goBase(f.Type)
	if f.Required {
		return base, flags
	}
	flags.wire = true
	return "wire.Opt[" + base + "]", flags
}

// paramGoType is fieldGoType for method parameters, except unions become
// plain any so callers can pass whichever candidate shape they hold.
func paramGoType(p resolve.Field) (string, typeFlags) {
	base, flags := goBase(p.Type)
	if p.Type != nil && p.Type.Kind == resolve.KindUnion {
		base, flags = "any", typeFlags{}
	}
	if p.Required {
		return base, flags
	}
	flags.wire = true
	return "wire.Opt[" + base + "]", flags
}

func goBase(n *resolve.Node) (string, typeFlags) {
	if n == nil {
		return "any", typeFlags{}
	}
	switch n.Kind {
	case resolve.KindPrimitive:
		switch n.Prim {
		case schema.Int:
			return "int64", typeFlags{}
		case schema.Float:
			return "float64", typeFlags{}
		case schema.String:
			return "string", typeFlags{}
		case schema.Bool:
			return "bool", typeFlags{}
		case schema.File:
			return "wire.InputFile", typeFlags{wire: true}
		}
	case resolve.KindObject:
		if n.Name != "" {
			return "*" + exportName(n.Name), typeFlags{}
		}
	case resolve.KindArray:
		elem, flags := goBase(n.Elem)
		return "[]" + elem, flags
	case resolve.KindUnion:
		if n.Name != "" {
			// Named unions alias json.RawMessage in types.go.
			return exportName(n.Name), typeFlags{}
		}
		return "json.RawMessage", typeFlags{json: true}
	}
	return "any", typeFlags{}
}

// returnShape works out the wrapper's return plumbing for a method's
// declared return node.
type retShape struct {
	typ  string // declared return type
	decl string // type of the local decode target
	expr string // returned expression
	zero string // zero value on error paths
	json bool
}

func returnShape(n *resolve.Node) retShape {
	if n != nil && n.Kind == resolve.KindObject && n.Name != "" {
		export := exportName(n.Name)
		return retShape{typ: "*" + export, decl: export, expr: "&out", zero: "nil"}
	}
	if n != nil && n.Kind == resolve.KindPrimitive {
		base, _ := goBase(n)
		zero := "nil"
		switch n.Prim {
		case schema.Int, schema.Float:
			zero = "0"
		case schema.String:
			zero = `""`
		case schema.Bool:
			zero = "false"
		}
		return retShape{typ: base, decl: base, expr: "out", zero: zero}
	}
	if n != nil && n.Kind == resolve.KindArray {
		base, flags := goBase(n)
		return retShape{typ: base, decl: base, expr: "out", zero: "nil", json: flags.json}
	}
	return retShape{typ: "json.RawMessage", decl: "json.RawMessage", expr: "out", zero: "nil", json: true}
}

var initialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"ip":   "IP",
	"api":  "API",
	"json": "JSON",
}

// exportName converts snake_case or camelCase schema names into exported Go
// identifiers.
func exportName(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if up, ok := initialisms[strings.ToLower(part)]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
