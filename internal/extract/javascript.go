package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcmirror/srcmirror/internal/lang"
	"github.com/srcmirror/srcmirror/internal/model"
)

func init() {
	registry["javascript"] = jsRules{langTag: "javascript"}
}

// jsRules covers JavaScript, TypeScript and TSX. The TypeScript grammar is a
// superset, so the TS-only node types simply never match for plain
// JavaScript.
type jsRules struct {
	langTag string
}

func (r jsRules) tag() string { return r.langTag }

var jsBranchKinds = map[string]struct{}{
	"if_statement":       {},
	"else_clause":        {},
	"switch_case":        {},
	"for_statement":      {},
	"for_in_statement":   {},
	"while_statement":    {},
	"do_statement":       {},
	"catch_clause":       {},
	"ternary_expression": {},
	"&&":                 {},
	"||":                 {},
}

var jsCallTypes = map[string]string{
	"call_expression": "function",
	"new_expression":  "constructor",
}

func (r jsRules) classify(node *sitter.Node, src []byte) (model.BlockKind, bool) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration", "method_definition",
		"function_signature", "method_signature", "abstract_method_signature":
		return model.Function, true
	case "class_declaration", "abstract_class_declaration":
		return model.Class, true
	case "import_statement":
		return model.Import, true
	case "export_statement":
		return model.Export, true
	case "lexical_declaration", "variable_declaration",
		"public_field_definition", "property_signature", "field_definition", "enum_assignment":
		return model.Variable, true
	case "if_statement", "switch_statement":
		return model.Conditional, true
	case "for_statement", "for_in_statement", "while_statement", "do_statement":
		return model.Loop, true
	case "try_statement":
		return model.TryCatch, true
	case "interface_declaration":
		return model.Interface, true
	case "type_alias_declaration":
		return model.TypeDef, true
	case "enum_declaration":
		return model.Enum, true
	case "module", "internal_module":
		return model.Module, true
	default:
		return "", false
	}
}

func (r jsRules) populate(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	switch b.Kind {
	case model.Function:
		return r.populateFunction(b, node, src, cx)
	case model.Class:
		return r.populateClass(b, node, src, cx)
	case model.Interface:
		return r.populateInterface(b, node, src, cx)
	case model.Export:
		b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
		// Children come from the statement itself so the wrapped
		// declaration becomes a child block.
		return []*sitter.Node{node}
	case model.Import:
		jsImport(b, node, src)
	case model.Variable:
		r.populateVariable(b, node, src, cx)
	case model.TypeDef:
		b.Name = lang.FieldText(node, "name", src)
		b.BodyText = strings.TrimSpace(lang.FieldText(node, "value", src))
		b.Hints.Template = "type {name} = {value};"
		b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
	case model.Enum:
		b.Name = lang.FieldText(node, "name", src)
		b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}
		if body := node.ChildByFieldName("body"); body != nil {
			b.BodyText = lang.NodeText(body, src)
			return []*sitter.Node{body}
		}
	case model.Module:
		b.Name = lang.FieldText(node, "name", src)
		b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}
		if body := node.ChildByFieldName("body"); body != nil {
			return []*sitter.Node{body}
		}
	case model.Conditional, model.Loop, model.TryCatch, model.Statement:
		b.Complexity = 1 + countNodes(node, jsBranchKinds)
		scanCalls(refSource(b, cx), node, src, cx, jsCallTypes)
	}
	return nil
}

func (r jsRules) populateFunction(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	b.Name = lang.FieldText(node, "name", src)
	b.Params = jsParams(node.ChildByFieldName("parameters"), src)
	b.ReturnType = tsReturnType(node, src)

	for i := 0; i < int(node.ChildCount()); i++ {
		switch node.Child(i).Type() {
		case "async", "static", "get", "set", "*", "readonly", "abstract", "accessibility_modifier":
			b.Modifiers = append(b.Modifiers, lang.NodeText(node.Child(i), src))
		}
	}

	body := node.ChildByFieldName("body")
	if body != nil {
		b.BodyText = lang.NodeText(body, src)
		b.Complexity = 1 + countNodes(body, jsBranchKinds)
	}
	b.Hints.Template = "{modifiers}function {name}({params}){return} {body}"
	if node.Type() == "method_definition" {
		b.Hints.Template = "{modifiers}{name}({params}){return} {body}"
	}
	b.Hints.ParameterPositions = paramPositions(b.Params)
	b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}

	if body == nil {
		return nil
	}
	return []*sitter.Node{body}
}

func (r jsRules) populateClass(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	b.Name = lang.FieldText(node, "name", src)
	if heritage := lang.FirstChildOfType(node, "class_heritage"); heritage != nil {
		r.collectHeritage(b, heritage, src, cx)
	}
	for _, d := range jsDecorators(node, src) {
		b.Decorators = append(b.Decorators, d)
	}

	b.Hints.Template = "{decorators}class {name}{heritage} {body}"
	b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	b.BodyText = lang.NodeText(body, src)
	return []*sitter.Node{body}
}

// collectHeritage reads both grammar shapes: plain JavaScript puts the base
// expression directly under class_heritage; TypeScript nests extends_clause
// and implements_clause.
func (r jsRules) collectHeritage(b *model.Block, heritage *sitter.Node, src []byte, cx *Context) {
	for _, child := range lang.NamedChildren(heritage) {
		switch child.Type() {
		case "extends_clause":
			for _, base := range lang.NamedChildren(child) {
				text := lang.NodeText(base, src)
				b.Bases = append(b.Bases, text)
				cx.AddRef(b.ID, rightmostIdentText(text), model.Inherits)
			}
		case "implements_clause":
			for _, iface := range lang.NamedChildren(child) {
				text := lang.NodeText(iface, src)
				b.Bases = append(b.Bases, text)
				cx.AddRef(b.ID, rightmostIdentText(text), model.Implements)
			}
		default:
			text := lang.NodeText(child, src)
			b.Bases = append(b.Bases, text)
			cx.AddRef(b.ID, rightmostIdentText(text), model.Inherits)
		}
	}
}

func (r jsRules) populateInterface(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	b.Name = lang.FieldText(node, "name", src)
	if extends := lang.FirstChildOfType(node, "extends_type_clause"); extends != nil {
		for _, base := range lang.NamedChildren(extends) {
			text := lang.NodeText(base, src)
			b.Bases = append(b.Bases, text)
			cx.AddRef(b.ID, rightmostIdentText(text), model.Inherits)
		}
	}
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		b.Metadata = map[string]string{"type_parameters": lang.NodeText(tp, src)}
	}
	b.Hints.Template = "interface {name}{type_parameters} {body}"
	b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	b.BodyText = lang.NodeText(body, src)
	return []*sitter.Node{body}
}

func (r jsRules) populateVariable(b *model.Block, node *sitter.Node, src []byte, cx *Context) {
	switch node.Type() {
	case "lexical_declaration", "variable_declaration":
		if kw := node.Child(0); kw != nil && !kw.IsNamed() {
			b.Modifiers = append(b.Modifiers, kw.Type()) // const / let / var
		}
		decl := lang.FirstChildOfType(node, "variable_declarator")
		if decl == nil {
			break
		}
		b.Name = lang.FieldText(decl, "name", src)
		b.ReturnType = trimTypeAnnotation(lang.FieldText(decl, "type", src))
		if value := decl.ChildByFieldName("value"); value != nil {
			b.BodyText = lang.NodeText(value, src)
			if jsIsLiteral(value.Type()) {
				b.Metadata = map[string]string{"literal": b.BodyText}
			}
		}
	case "public_field_definition", "field_definition", "property_signature", "enum_assignment":
		if name := node.ChildByFieldName("name"); name != nil {
			b.Name = lang.NodeText(name, src)
		}
		b.ReturnType = trimTypeAnnotation(lang.FieldText(node, "type", src))
		if value := node.ChildByFieldName("value"); value != nil {
			b.BodyText = lang.NodeText(value, src)
		}
	}
	b.Hints.Template = "{modifiers}{name}{type} = {value};"
	b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
	scanCalls(refSource(b, cx), node, src, cx, jsCallTypes)
}

// jsImport records the module source as the canonical name plus the imported
// names with aliases, e.g. "foo,bar->baz".
func jsImport(b *model.Block, node *sitter.Node, src []byte) {
	source := strings.Trim(lang.FieldText(node, "source", src), "\"'`")
	b.Name = source
	b.Metadata = map[string]string{}
	if strings.HasPrefix(source, ".") {
		b.Metadata["relative"] = "true"
	}

	var names []string
	if clause := lang.FirstChildOfType(node, "import_clause"); clause != nil {
		for _, child := range lang.NamedChildren(clause) {
			switch child.Type() {
			case "identifier": // default import
				names = append(names, lang.NodeText(child, src))
			case "namespace_import":
				names = append(names, "*->"+lang.NodeText(child.NamedChild(0), src))
			case "named_imports":
				for _, spec := range lang.NamedChildren(child) {
					if spec.Type() != "import_specifier" {
						continue
					}
					name := lang.FieldText(spec, "name", src)
					if alias := lang.FieldText(spec, "alias", src); alias != "" {
						names = append(names, name+"->"+alias)
					} else {
						names = append(names, name)
					}
				}
			}
		}
	}
	b.Metadata["names"] = joinNames(names)
	b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
}

func jsDecorators(node *sitter.Node, src []byte) []string {
	var out []string
	for _, child := range lang.NamedChildren(node) {
		if child.Type() == "decorator" {
			text := lang.NodeText(child, src)
			out = append(out, strings.TrimPrefix(text, "@"))
		}
	}
	return out
}

func jsParams(params *sitter.Node, src []byte) []model.Param {
	if params == nil {
		return nil
	}
	var out []model.Param
	for _, child := range lang.NamedChildren(params) {
		switch child.Type() {
		case "identifier":
			out = append(out, model.Param{Name: lang.NodeText(child, src)})
		case "assignment_pattern":
			out = append(out, model.Param{
				Name:    lang.FieldText(child, "left", src),
				Default: lang.FieldText(child, "right", src),
			})
		case "rest_pattern":
			p := model.Param{Variadic: true}
			if inner := child.NamedChild(0); inner != nil {
				p.Name = lang.NodeText(inner, src)
			}
			out = append(out, p)
		case "required_parameter", "optional_parameter":
			p := model.Param{
				Name:     lang.FieldText(child, "pattern", src),
				TypeAnno: trimTypeAnnotation(lang.FieldText(child, "type", src)),
				Default:  lang.FieldText(child, "value", src),
			}
			if strings.HasPrefix(p.Name, "...") {
				p.Name = strings.TrimPrefix(p.Name, "...")
				p.Variadic = true
			}
			out = append(out, p)
		case "object_pattern", "array_pattern":
			out = append(out, model.Param{Name: lang.NodeText(child, src)})
		}
	}
	return out
}

// tsReturnType reads the return_type field when the TypeScript grammar
// provides one. The annotation node includes the leading colon.
func tsReturnType(node *sitter.Node, src []byte) string {
	return trimTypeAnnotation(lang.FieldText(node, "return_type", src))
}

func trimTypeAnnotation(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ":"))
}

func jsIsLiteral(nodeType string) bool {
	switch nodeType {
	case "number", "string", "template_string", "true", "false", "null", "undefined", "regex":
		return true
	}
	return false
}
