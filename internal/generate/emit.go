package generate

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/srcmirror/srcmirror/internal/model"
)

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// emitBlock produces one block's bytes, children included. The per-block
// state machine surfaces the failing block and state on error.
func (g *generator) emitBlock(b *model.Block, indent int) ([]byte, error) {
	g.states[b.ID] = statePending

	if b.Hints.PreferOriginal && b.OriginalText != "" {
		// The stored slice covers every child's byte range (I4), so no
		// recursion is needed; children outside the covered region would be
		// an invariant violation caught at commit.
		g.states[b.ID] = stateClosed
		return g.indented(b.OriginalText, indent), nil
	}

	header, err := g.renderTemplate(b)
	if err != nil {
		return nil, g.fail(b, err)
	}
	g.states[b.ID] = stateHeaderEmitted

	body, err := g.emitBody(b, indent)
	if err != nil {
		return nil, g.fail(b, err)
	}
	g.states[b.ID] = stateChildrenEmitted

	out := g.indented(header+body, indent)
	g.states[b.ID] = stateClosed
	return out, nil
}

func (g *generator) fail(b *model.Block, err error) error {
	return fmt.Errorf("%w: block %s (%s %q) in state %s: %v",
		ErrGeneration, b.ID, b.Kind, b.Name, g.states[b.ID], err)
}

// emitChildren renders a block's children in sibling order, one indent level
// deeper.
func (g *generator) emitChildren(b *model.Block, indent int) ([]byte, error) {
	children := make([]*model.Block, 0, len(b.Children))
	for _, id := range b.Children {
		child, ok := g.blocks[id]
		if !ok {
			return nil, fmt.Errorf("child block %s missing from store", id)
		}
		children = append(children, child)
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Position.SiblingIndex < children[j].Position.SiblingIndex
	})
	if err := checkSiblingIndices(children); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i, child := range children {
		part, err := g.emitBlock(child, indent)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteString(g.le)
		}
		buf.Write(part)
	}
	return buf.Bytes(), nil
}

// emitBody renders the body for the template path, honoring the block's
// body-extraction hint. The stored body slice wins; children are emitted
// only when no slice survives.
func (g *generator) emitBody(b *model.Block, indent int) (string, error) {
	switch b.Hints.Body.Method {
	case model.BodyNone:
		return "", nil
	case model.BodyIndent:
		body := b.BodyText
		if body == "" {
			children, err := g.emitChildren(b, indent+1)
			if err != nil {
				return "", err
			}
			body = string(children)
			if body == "" {
				body = "pass"
			}
			return g.le + g.indentUnit(indent+1) + body, nil
		}
		return g.le + g.indentUnit(indent+1) + body, nil
	case model.BodyBrace:
		if b.BodyText != "" {
			// Body slices for brace languages include their braces.
			return b.BodyText, nil
		}
		children, err := g.emitChildren(b, indent+1)
		if err != nil {
			return "", err
		}
		if len(children) == 0 {
			return "{}", nil
		}
		return "{" + g.le + string(children) + g.le + g.indentUnit(indent) + "}", nil
	case model.BodyEndKeyword:
		children, err := g.emitChildren(b, indent+1)
		if err != nil {
			return "", err
		}
		end := b.Hints.Body.EndMarker
		if end == "" {
			end = "end"
		}
		return g.le + string(children) + g.le + g.indentUnit(indent) + end, nil
	default:
		return "", fmt.Errorf("unknown body extraction method %q", b.Hints.Body.Method)
	}
}

// renderTemplate substitutes block attributes into the hint template. A
// placeholder with no corresponding attribute is a structural failure, not
// something to paper over.
func (g *generator) renderTemplate(b *model.Block) (string, error) {
	tmpl := b.Hints.Template
	if tmpl == "" {
		return "", fmt.Errorf("no template and prefer_original is false")
	}

	var renderErr error
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		val, ok := g.placeholder(b, key)
		if !ok && renderErr == nil {
			renderErr = fmt.Errorf("template placeholder %q has no corresponding attribute", key)
		}
		return val
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

func (g *generator) placeholder(b *model.Block, key string) (string, bool) {
	s := g.strategy
	switch key {
	case "name":
		if b.Name == "" {
			return "", false
		}
		return b.Name, true
	case "params":
		return s.renderParams(b.Params), true
	case "return":
		return s.renderReturn(b.ReturnType), true
	case "type":
		if b.ReturnType == "" {
			return "", true
		}
		return s.TypeAnnoPrefix + b.ReturnType, true
	case "value":
		return b.BodyText, true
	case "body":
		// Body is appended by emitBody; the placeholder marks its slot at
		// the template's end.
		return "", true
	case "bases":
		if s.BasesWrap == nil {
			return "", len(b.Bases) == 0
		}
		return s.BasesWrap(b.Bases), true
	case "heritage":
		if len(b.Bases) == 0 {
			return "", true
		}
		return " extends " + strings.Join(b.Bases, ", "), true
	case "decorators":
		if len(b.Decorators) == 0 {
			return "", true
		}
		var buf strings.Builder
		for _, d := range b.Decorators {
			buf.WriteString(s.DecoratorPrefix)
			buf.WriteString(d)
			buf.WriteString(g.le)
		}
		return buf.String(), true
	case "modifiers":
		if len(b.Modifiers) == 0 {
			return "", true
		}
		return strings.Join(b.Modifiers, " ") + " ", true
	case "type_parameters":
		return b.Metadata["type_parameters"], true
	case "original":
		if b.OriginalText == "" {
			return "", false
		}
		return b.OriginalText, true
	default:
		return "", false
	}
}

// indented prefixes every line of text with the indent level. The first line
// of a verbatim slice keeps its template position; continuation lines of
// original slices already carry their own absolute indentation.
func (g *generator) indented(text string, indent int) []byte {
	if indent == 0 {
		return []byte(text)
	}
	prefix := g.indentUnit(indent)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i == 0 || line == "" {
			continue
		}
		if !strings.HasPrefix(line, prefix) {
			lines[i] = prefix + line
		}
	}
	return []byte(prefix + strings.Join(lines, "\n"))
}

func (g *generator) indentUnit(level int) string {
	return strings.Repeat(g.indent, level)
}
