package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcmirror/srcmirror/internal/lang"
	"github.com/srcmirror/srcmirror/internal/model"
)

func init() {
	registry["rust"] = rustRules{}
}

type rustRules struct{}

func (rustRules) tag() string { return "rust" }

var rustBranchKinds = map[string]struct{}{
	"if_expression":    {},
	"else_clause":      {},
	"match_arm":        {},
	"for_expression":   {},
	"while_expression": {},
	"loop_expression":  {},
	"&&":               {},
	"||":               {},
}

var rustCallTypes = map[string]string{"call_expression": "function"}

func (rustRules) classify(node *sitter.Node, src []byte) (model.BlockKind, bool) {
	switch node.Type() {
	case "function_item", "function_signature_item":
		return model.Function, true
	case "struct_item":
		return model.Struct, true
	case "enum_item":
		return model.Enum, true
	case "trait_item":
		return model.Interface, true
	case "impl_item":
		// Impl blocks map to Class with a metadata flag; the taxonomy has
		// no separate Impl kind.
		return model.Class, true
	case "mod_item":
		return model.Module, true
	case "use_declaration", "extern_crate_declaration":
		return model.Import, true
	case "let_declaration", "const_item", "static_item", "field_declaration", "enum_variant":
		return model.Variable, true
	case "type_item", "associated_type":
		return model.TypeDef, true
	case "macro_definition", "macro_invocation", "attribute_item", "inner_attribute_item":
		return model.Macro, true
	case "if_expression", "match_expression":
		return model.Conditional, true
	case "for_expression", "while_expression", "loop_expression":
		return model.Loop, true
	case "expression_statement":
		// Control-flow expressions and macro invocations used as statements
		// arrive wrapped; classify by the wrapped expression.
		if node.NamedChildCount() == 1 {
			switch node.NamedChild(0).Type() {
			case "if_expression", "match_expression":
				return model.Conditional, true
			case "for_expression", "while_expression", "loop_expression":
				return model.Loop, true
			case "macro_invocation":
				return model.Macro, true
			}
		}
		return "", false
	default:
		return "", false
	}
}

func (r rustRules) populate(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	switch b.Kind {
	case model.Function:
		return r.populateFunction(b, node, src, cx)
	case model.Struct, model.Enum, model.Interface, model.Module:
		return r.populateContainer(b, node, src)
	case model.Class:
		return r.populateImpl(b, node, src, cx)
	case model.Import:
		rustImport(b, node, src)
	case model.Variable:
		rustVariable(b, node, src, cx)
	case model.TypeDef:
		b.Name = lang.FieldText(node, "name", src)
		b.BodyText = lang.FieldText(node, "type", src)
		b.Hints.Template = "{modifiers}type {name} = {value};"
		b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
	case model.Macro:
		if node.Type() == "expression_statement" && node.NamedChildCount() == 1 {
			node = node.NamedChild(0)
		}
		if name := node.ChildByFieldName("name"); name != nil {
			b.Name = lang.NodeText(name, src)
		} else if mac := node.ChildByFieldName("macro"); mac != nil {
			b.Name = lang.NodeText(mac, src)
			cx.AddRef(refSource(b, cx), rightmostIdentText(b.Name), model.References)
		}
		b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
	case model.Conditional, model.Loop, model.TryCatch, model.Statement:
		b.Complexity = 1 + countNodes(node, rustBranchKinds)
		scanCalls(refSource(b, cx), node, src, cx, rustCallTypes)
	}
	return nil
}

func (r rustRules) populateFunction(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	b.Name = lang.FieldText(node, "name", src)
	b.Params = rustParams(node.ChildByFieldName("parameters"), src)
	b.ReturnType = lang.FieldText(node, "return_type", src)
	b.Modifiers = rustModifiers(node, src)

	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		b.Metadata = map[string]string{"type_parameters": lang.NodeText(tp, src)}
	}
	if where := lang.FirstChildOfType(node, "where_clause"); where != nil {
		if b.Metadata == nil {
			b.Metadata = map[string]string{}
		}
		b.Metadata["where"] = lang.NodeText(where, src)
	}

	body := node.ChildByFieldName("body")
	if body != nil {
		b.BodyText = lang.NodeText(body, src)
		b.Complexity = 1 + countNodes(body, rustBranchKinds)
	}
	b.Hints.Template = "{modifiers}fn {name}{type_parameters}({params}){return} {body}"
	b.Hints.ParameterPositions = paramPositions(b.Params)
	b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}

	if b.ReturnType != "" {
		cx.AddRef(b.ID, rightmostIdentText(b.ReturnType), model.References)
	}
	if body == nil {
		return nil
	}
	return []*sitter.Node{body}
}

func (r rustRules) populateContainer(b *model.Block, node *sitter.Node, src []byte) []*sitter.Node {
	b.Name = lang.FieldText(node, "name", src)
	b.Modifiers = rustModifiers(node, src)
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		b.Metadata = map[string]string{"type_parameters": lang.NodeText(tp, src)}
	}
	b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	b.BodyText = lang.NodeText(body, src)
	return []*sitter.Node{body}
}

func (r rustRules) populateImpl(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	b.Name = lang.FieldText(node, "type", src)
	b.Metadata = map[string]string{"rust_impl": "true"}
	if trait := node.ChildByFieldName("trait"); trait != nil {
		text := lang.NodeText(trait, src)
		b.Bases = append(b.Bases, text)
		b.Metadata["trait"] = text
		cx.AddRef(b.ID, rightmostIdentText(text), model.Implements)
	}
	cx.AddRef(b.ID, rightmostIdentText(b.Name), model.References)
	b.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	b.BodyText = lang.NodeText(body, src)
	return []*sitter.Node{body}
}

func rustImport(b *model.Block, node *sitter.Node, src []byte) {
	b.Metadata = map[string]string{}
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		arg = lang.FirstChildOfType(node, "scoped_identifier")
	}
	if arg != nil {
		text := lang.NodeText(arg, src)
		if arg.Type() == "use_as_clause" {
			path := lang.FieldText(arg, "path", src)
			alias := lang.FieldText(arg, "alias", src)
			b.Name = path
			b.Metadata["names"] = path + "->" + alias
		} else {
			b.Name = text
			b.Metadata["names"] = text
		}
	}
	b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
}

func rustVariable(b *model.Block, node *sitter.Node, src []byte, cx *Context) {
	switch node.Type() {
	case "let_declaration":
		b.Name = lang.FieldText(node, "pattern", src)
	default:
		b.Name = lang.FieldText(node, "name", src)
	}
	b.ReturnType = lang.FieldText(node, "type", src)
	b.Modifiers = rustModifiers(node, src)
	if value := node.ChildByFieldName("value"); value != nil {
		b.BodyText = lang.NodeText(value, src)
		if rustIsLiteral(value.Type()) {
			if b.Metadata == nil {
				b.Metadata = map[string]string{}
			}
			b.Metadata["literal"] = b.BodyText
		}
	}
	b.Hints.Template = "{modifiers}let {name}{type} = {value};"
	b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
	scanCalls(refSource(b, cx), node, src, cx, rustCallTypes)
}

// rustModifiers collects visibility and function modifiers, e.g. pub,
// pub(crate), async, unsafe, const.
func rustModifiers(node *sitter.Node, src []byte) []string {
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			out = append(out, lang.NodeText(child, src))
		case "function_modifiers":
			out = append(out, strings.Fields(lang.NodeText(child, src))...)
		case "mutable_specifier":
			out = append(out, "mut")
		}
	}
	return out
}

func rustParams(params *sitter.Node, src []byte) []model.Param {
	if params == nil {
		return nil
	}
	var out []model.Param
	for _, child := range lang.NamedChildren(params) {
		switch child.Type() {
		case "parameter":
			out = append(out, model.Param{
				Name:     lang.FieldText(child, "pattern", src),
				TypeAnno: lang.FieldText(child, "type", src),
			})
		case "self_parameter":
			out = append(out, model.Param{Name: lang.NodeText(child, src)})
		case "variadic_parameter":
			out = append(out, model.Param{Name: lang.NodeText(child, src), Variadic: true})
		}
	}
	return out
}

func rustIsLiteral(nodeType string) bool {
	switch nodeType {
	case "integer_literal", "float_literal", "string_literal", "raw_string_literal",
		"char_literal", "boolean_literal":
		return true
	}
	return false
}
