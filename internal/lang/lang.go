// Package lang wraps tree-sitter grammars behind a uniform adapter keyed by
// language tag. The adapter surfaces concrete syntax only; it never
// interprets semantics.
package lang

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrGrammar indicates the parser could not build a tree for the input.
var ErrGrammar = errors.New("grammar error")

var whitespaceRe = regexp.MustCompile(`\s+`)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Tag        string
	Extensions []string
	lang       *sitter.Language

	// CommentKinds names the grammar's comment node types.
	CommentKinds []string
}

// Get returns the tree-sitter Language pointer.
func (l *Language) Get() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Parse builds a concrete syntax tree for source. It fails with ErrGrammar
// when the grammar cannot produce a root node. Callers own the returned tree
// and must Close it.
func (l *Language) Parse(ctx context.Context, parser *sitter.Parser, source []byte) (*sitter.Tree, error) {
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrGrammar, l.Tag, err)
	}
	if tree == nil || tree.RootNode() == nil {
		if tree != nil {
			tree.Close()
		}
		return nil, fmt.Errorf("%w: %s: no tree produced", ErrGrammar, l.Tag)
	}
	return tree, nil
}

// IsComment reports whether the node type is a comment in this grammar.
func (l *Language) IsComment(nodeType string) bool {
	for _, k := range l.CommentKinds {
		if k == nodeType {
			return true
		}
	}
	return false
}

// Languages maps language tags to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Tag
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language tag for a file extension, or "" if
// unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// ForTag returns the language for a tag, or nil.
func ForTag(tag string) *Language {
	return Languages[tag]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// FieldText returns the text of a named field child, or "".
func FieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return NodeText(child, source)
}

// FirstChildOfType returns the first direct child with the given node type,
// or nil.
func FirstChildOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// NamedChildren returns the named children of a node in order.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	n := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
