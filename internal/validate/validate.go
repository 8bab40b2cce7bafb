// Package validate decides whether regenerated source is equivalent to the
// original. Byte equality is sufficient but not necessary: the oracle
// re-parses both byte sequences and compares parse-tree shape, ignoring
// comments and insignificant whitespace, then re-extracts the regenerated
// bytes and compares the block set modulo identifiers.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcmirror/srcmirror/internal/extract"
	"github.com/srcmirror/srcmirror/internal/lang"
	"github.com/srcmirror/srcmirror/internal/model"
)

// ErrEquivalence indicates the regenerated bytes failed the round-trip
// check. Non-fatal at the system level; fatal for the container's claim.
var ErrEquivalence = errors.New("equivalence failure")

// Result reports the oracle's verdict with diagnostics for the failure, if
// any.
type Result struct {
	Valid       bool
	ByteEqual   bool
	Diagnostics []string
}

// RoundTrip compares original and regenerated bytes for one container.
func RoundTrip(ctx context.Context, languageTag string, original, regenerated []byte) (*Result, error) {
	l := lang.ForTag(languageTag)
	if l == nil {
		return nil, fmt.Errorf("unsupported language %q", languageTag)
	}

	if bytes.Equal(original, regenerated) {
		return &Result{Valid: true, ByteEqual: true}, nil
	}

	origTree, err := l.Parse(ctx, l.NewParser(), original)
	if err != nil {
		return nil, fmt.Errorf("parsing original: %w", err)
	}
	defer origTree.Close()

	regenTree, err := l.Parse(ctx, l.NewParser(), regenerated)
	if err != nil {
		return &Result{Valid: false, Diagnostics: []string{
			fmt.Sprintf("regenerated bytes do not parse: %v", err),
		}}, nil
	}
	defer regenTree.Close()

	res := &Result{Valid: true}
	compareShape(l, origTree.RootNode(), regenTree.RootNode(), original, regenerated, "", res)
	if !res.Valid {
		return res, nil
	}

	if diag := compareExtraction(ctx, languageTag, original, regenerated); diag != "" {
		res.Valid = false
		res.Diagnostics = append(res.Diagnostics, diag)
	}
	return res, nil
}

// Check wraps RoundTrip into a single error, for callers that only need
// pass/fail.
func Check(ctx context.Context, languageTag string, original, regenerated []byte) error {
	res, err := RoundTrip(ctx, languageTag, original, regenerated)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("%w: %v", ErrEquivalence, res.Diagnostics)
	}
	return nil
}

// significantChildren filters a node's named children down to the ones that
// carry structure: comments are trivia under the equivalence relation.
func significantChildren(l *lang.Language, node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if l.IsComment(child.Type()) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func compareShape(l *lang.Language, a, b *sitter.Node, aSrc, bSrc []byte, path string, res *Result) {
	if a.Type() != b.Type() {
		res.Valid = false
		res.Diagnostics = append(res.Diagnostics,
			fmt.Sprintf("node kind mismatch at %s: %q vs %q", orRoot(path), a.Type(), b.Type()))
		return
	}

	ac := significantChildren(l, a)
	bc := significantChildren(l, b)
	if len(ac) != len(bc) {
		res.Valid = false
		res.Diagnostics = append(res.Diagnostics,
			fmt.Sprintf("child count mismatch at %s (%s): %d vs %d", orRoot(path), a.Type(), len(ac), len(bc)))
		return
	}

	// Leaves must match textually, otherwise renames would slip through a
	// shape-only comparison.
	if len(ac) == 0 {
		at := lang.CollapseWhitespace(lang.NodeText(a, aSrc))
		bt := lang.CollapseWhitespace(lang.NodeText(b, bSrc))
		if at != bt {
			res.Valid = false
			res.Diagnostics = append(res.Diagnostics,
				fmt.Sprintf("leaf mismatch at %s (%s): %q vs %q", orRoot(path), a.Type(), at, bt))
		}
		return
	}

	for i := range ac {
		compareShape(l, ac[i], bc[i], aSrc, bSrc, fmt.Sprintf("%s/%s[%d]", path, ac[i].Type(), i), res)
		if !res.Valid {
			return
		}
	}
}

func orRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

// blockShape is the identifier-free projection of one block used by the
// re-extraction comparison.
type blockShape struct {
	Kind     model.BlockKind
	Name     string
	Children int
}

// compareExtraction re-extracts both byte sequences and compares the block
// sequences modulo identifiers and positions. Returns a diagnostic, or ""
// when equal.
func compareExtraction(ctx context.Context, languageTag string, original, regenerated []byte) string {
	a, err := shapesOf(ctx, languageTag, original)
	if err != nil {
		return fmt.Sprintf("re-extracting original: %v", err)
	}
	b, err := shapesOf(ctx, languageTag, regenerated)
	if err != nil {
		return fmt.Sprintf("re-extracting regenerated: %v", err)
	}
	if len(a) != len(b) {
		return fmt.Sprintf("block count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return fmt.Sprintf("block %d mismatch: %+v vs %+v", i, a[i], b[i])
		}
	}
	return ""
}

func shapesOf(ctx context.Context, languageTag string, src []byte) ([]blockShape, error) {
	res, err := extract.Extract(ctx, src, extract.Meta{Path: "validate", Language: languageTag})
	if err != nil {
		return nil, err
	}
	c := res.Container
	shapes := make([]blockShape, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		// Comment blocks are trivia under the equivalence relation, same as
		// comment nodes in the shape comparison.
		if b.Kind == model.Comment {
			continue
		}
		children := 0
		for _, id := range b.Children {
			if child := c.BlockByID(id); child != nil && child.Kind != model.Comment {
				children++
			}
		}
		shapes = append(shapes, blockShape{Kind: b.Kind, Name: b.Name, Children: children})
	}
	return shapes, nil
}
