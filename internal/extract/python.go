package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcmirror/srcmirror/internal/lang"
	"github.com/srcmirror/srcmirror/internal/model"
)

func init() {
	registry["python"] = pythonRules{}
}

type pythonRules struct{}

func (pythonRules) tag() string { return "python" }

// pyBranchKinds feed the shared complexity metric: 1 + branches, loops,
// handlers, logical operators and ternaries.
var pyBranchKinds = map[string]struct{}{
	"if_statement":           {},
	"elif_clause":            {},
	"else_clause":            {},
	"for_statement":          {},
	"while_statement":        {},
	"case_clause":            {},
	"try_statement":          {},
	"except_clause":          {},
	"and":                    {},
	"or":                     {},
	"conditional_expression": {},
}

var pyCallTypes = map[string]string{"call": "function"}

var pyLiteralTypes = map[string]struct{}{
	"integer": {}, "float": {}, "string": {}, "true": {}, "false": {}, "none": {},
}

func (pythonRules) classify(node *sitter.Node, src []byte) (model.BlockKind, bool) {
	switch node.Type() {
	case "function_definition":
		return model.Function, true
	case "class_definition":
		return model.Class, true
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil && def.Type() == "class_definition" {
			return model.Class, true
		}
		return model.Function, true
	case "import_statement", "import_from_statement", "future_import_statement":
		return model.Import, true
	case "if_statement", "match_statement":
		return model.Conditional, true
	case "for_statement", "while_statement":
		return model.Loop, true
	case "try_statement":
		return model.TryCatch, true
	case "type_alias_statement":
		return model.TypeDef, true
	case "expression_statement":
		for _, child := range lang.NamedChildren(node) {
			switch child.Type() {
			case "assignment", "augmented_assignment":
				return model.Variable, true
			}
		}
		return "", false
	default:
		return "", false
	}
}

func (r pythonRules) populate(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	switch b.Kind {
	case model.Function:
		return r.populateFunction(b, node, src, cx)
	case model.Class:
		return r.populateClass(b, node, src, cx)
	case model.Import:
		pyImport(b, node, src)
	case model.Variable:
		pyVariable(b, node, src, cx)
	case model.Conditional, model.Loop, model.TryCatch, model.Statement:
		b.Complexity = 1 + countNodes(node, pyBranchKinds)
		pyLeafRefs(b, node, src, cx)
	}
	return nil
}

// populateFunction handles function_definition and decorated_definition
// wrapping one. The decorated wrapper is the block; the inner definition
// provides the attributes.
func (r pythonRules) populateFunction(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	def := node
	if node.Type() == "decorated_definition" {
		def = node.ChildByFieldName("definition")
		b.Decorators = pyDecorators(node, src)
		if def == nil {
			return nil
		}
	}

	b.Name = lang.FieldText(def, "name", src)
	b.Params = pyParams(def.ChildByFieldName("parameters"), src)
	b.ReturnType = lang.FieldText(def, "return_type", src)
	if lang.FirstChildOfType(def, "async") != nil {
		b.Modifiers = append(b.Modifiers, "async")
	}

	body := def.ChildByFieldName("body")
	if body != nil {
		b.BodyText = lang.NodeText(body, src)
		b.Complexity = 1 + countNodes(body, pyBranchKinds)
	}
	b.Hints.Template = "{decorators}{modifiers}def {name}({params}){return}:{body}"
	b.Hints.ParameterPositions = paramPositions(b.Params)
	b.Hints.Body = model.BodyExtraction{
		Method:         model.BodyIndent,
		StartMarker:    ":",
		PreserveIndent: true,
	}

	if b.ReturnType != "" {
		cx.AddRef(b.ID, rightmostIdentText(b.ReturnType), model.References)
	}
	for _, p := range b.Params {
		if p.TypeAnno != "" {
			cx.AddRef(b.ID, rightmostIdentText(p.TypeAnno), model.References)
		}
	}

	if body == nil {
		return nil
	}
	return []*sitter.Node{body}
}

func (r pythonRules) populateClass(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node {
	def := node
	if node.Type() == "decorated_definition" {
		def = node.ChildByFieldName("definition")
		b.Decorators = pyDecorators(node, src)
		if def == nil {
			return nil
		}
	}

	b.Name = lang.FieldText(def, "name", src)
	if supers := def.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range lang.NamedChildren(supers) {
			base := lang.NodeText(arg, src)
			b.Bases = append(b.Bases, base)
			cx.AddRef(b.ID, rightmostIdentText(base), model.Inherits)
		}
	}

	body := def.ChildByFieldName("body")
	if body != nil {
		b.BodyText = lang.NodeText(body, src)
	}
	b.Hints.Template = "{decorators}class {name}{bases}:{body}"
	b.Hints.Body = model.BodyExtraction{
		Method:         model.BodyIndent,
		StartMarker:    ":",
		PreserveIndent: true,
	}

	if body == nil {
		return nil
	}
	return []*sitter.Node{body}
}

// pyImport names the block by its dotted module path, records imported
// names with their aliases, and flags relative imports.
func pyImport(b *model.Block, node *sitter.Node, src []byte) {
	b.Metadata = map[string]string{}
	switch node.Type() {
	case "import_statement":
		var names []string
		for _, child := range lang.NamedChildren(node) {
			switch child.Type() {
			case "dotted_name":
				if b.Name == "" {
					b.Name = lang.NodeText(child, src)
				}
				names = append(names, lang.NodeText(child, src))
			case "aliased_import":
				name := lang.FieldText(child, "name", src)
				alias := lang.FieldText(child, "alias", src)
				if b.Name == "" {
					b.Name = name
				}
				names = append(names, name+"->"+alias)
			}
		}
		b.Metadata["names"] = joinNames(names)
	case "import_from_statement", "future_import_statement":
		module := lang.FieldText(node, "module_name", src)
		b.Name = module
		if len(module) > 0 && module[0] == '.' {
			b.Metadata["relative"] = "true"
		}
		var names []string
		for _, child := range lang.NamedChildren(node) {
			if child.ChildByFieldName("module_name") != nil {
				continue
			}
			switch child.Type() {
			case "dotted_name", "identifier":
				if mn := node.ChildByFieldName("module_name"); mn != nil && mn.StartByte() == child.StartByte() {
					continue
				}
				names = append(names, lang.NodeText(child, src))
			case "aliased_import":
				names = append(names, lang.FieldText(child, "name", src)+"->"+lang.FieldText(child, "alias", src))
			case "wildcard_import":
				names = append(names, "*")
			}
		}
		b.Metadata["names"] = joinNames(names)
	}
	b.Hints.Template = "{original}"
	b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
}

func pyVariable(b *model.Block, node *sitter.Node, src []byte, cx *Context) {
	var assign *sitter.Node
	for _, child := range lang.NamedChildren(node) {
		if child.Type() == "assignment" || child.Type() == "augmented_assignment" {
			assign = child
			break
		}
	}
	if assign == nil {
		return
	}

	left := assign.ChildByFieldName("left")
	if left != nil {
		if left.Type() == "identifier" {
			b.Name = lang.NodeText(left, src)
		} else if id := lang.FirstChildOfType(left, "identifier"); id != nil {
			b.Name = lang.NodeText(id, src)
		}
	}
	if t := assign.ChildByFieldName("type"); t != nil {
		b.ReturnType = lang.NodeText(t, src)
	}
	if right := assign.ChildByFieldName("right"); right != nil {
		b.BodyText = lang.NodeText(right, src)
		if _, lit := pyLiteralTypes[right.Type()]; lit {
			b.Metadata = map[string]string{"literal": b.BodyText}
		}
	}
	b.Hints.Template = "{name}{type} = {value}"
	b.Hints.Body = model.BodyExtraction{Method: model.BodyNone}
	pyLeafRefs(b, node, src, cx)
}

// pyLeafRefs attributes calls found inside a leaf block to the nearest
// enclosing definition, falling back to the leaf itself at module level.
func pyLeafRefs(b *model.Block, node *sitter.Node, src []byte, cx *Context) {
	scanCalls(refSource(b, cx), node, src, cx, pyCallTypes)
}

func pyDecorators(node *sitter.Node, src []byte) []string {
	var out []string
	for _, child := range lang.NamedChildren(node) {
		if child.Type() == "decorator" {
			text := lang.NodeText(child, src)
			if len(text) > 0 && text[0] == '@' {
				text = text[1:]
			}
			out = append(out, text)
		}
	}
	return out
}

func pyParams(params *sitter.Node, src []byte) []model.Param {
	if params == nil {
		return nil
	}
	var out []model.Param
	keywordOnly := false
	for _, child := range lang.NamedChildren(params) {
		switch child.Type() {
		case "identifier":
			out = append(out, model.Param{Name: lang.NodeText(child, src), KeywordOnly: keywordOnly})
		case "typed_parameter":
			p := model.Param{TypeAnno: lang.FieldText(child, "type", src), KeywordOnly: keywordOnly}
			if id := lang.FirstChildOfType(child, "identifier"); id != nil {
				p.Name = lang.NodeText(id, src)
			}
			out = append(out, p)
		case "default_parameter":
			out = append(out, model.Param{
				Name:        lang.FieldText(child, "name", src),
				Default:     lang.FieldText(child, "value", src),
				KeywordOnly: keywordOnly,
			})
		case "typed_default_parameter":
			out = append(out, model.Param{
				Name:        lang.FieldText(child, "name", src),
				TypeAnno:    lang.FieldText(child, "type", src),
				Default:     lang.FieldText(child, "value", src),
				KeywordOnly: keywordOnly,
			})
		case "list_splat_pattern":
			p := model.Param{Variadic: true}
			if id := lang.FirstChildOfType(child, "identifier"); id != nil {
				p.Name = lang.NodeText(id, src)
			}
			out = append(out, p)
			keywordOnly = true
		case "dictionary_splat_pattern":
			p := model.Param{Variadic: true, KeywordOnly: true}
			if id := lang.FirstChildOfType(child, "identifier"); id != nil {
				p.Name = lang.NodeText(id, src)
			}
			out = append(out, p)
		case "keyword_separator":
			keywordOnly = true
		}
	}
	return out
}
