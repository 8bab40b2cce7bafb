// Package extract walks concrete syntax trees and emits language-agnostic
// blocks plus unresolved references. One rules table per supported language;
// the walk itself is shared.
package extract

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcmirror/srcmirror/internal/lang"
	"github.com/srcmirror/srcmirror/internal/model"
)

var (
	// ErrInput indicates the source bytes cannot be extracted at all
	// (invalid UTF-8, unsupported language tag).
	ErrInput = errors.New("input error")
	// ErrStructural indicates an invariant violation detected during
	// extraction. Nothing is committed for the offending container.
	ErrStructural = errors.New("structural error")
)

// rules is the per-language strategy plugged into the shared walker.
type rules interface {
	tag() string
	// classify maps a node to a block kind; ok=false falls back to the
	// walker's comment/statement handling.
	classify(node *sitter.Node, src []byte) (model.BlockKind, bool)
	// populate fills kind-specific attributes on b, records pending
	// references on cx, and returns the nodes whose children become child
	// blocks (nil for leaf blocks).
	populate(b *model.Block, node *sitter.Node, src []byte, cx *Context) []*sitter.Node
}

// registry maps language tags to their extraction rules.
// Populated by init() functions in per-language files.
var registry = map[string]rules{}

// Meta carries container metadata from the source loader.
type Meta struct {
	SnapshotID  string
	Path        string
	Language    string
	ContentHash string
}

// Result is the output of one container extraction.
type Result struct {
	Container *model.Container
	// Unresolved holds references that could not be bound inside the
	// container. They are never persisted as relationships; a snapshot-level
	// pass may bind them across containers.
	Unresolved []PendingRef
}

// Extract parses source and produces the container for one file. The context
// is observed between block visits, so cancellation aborts promptly; aborted
// work is discarded.
func Extract(ctx context.Context, source []byte, meta Meta) (*Result, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: %s: source is not valid UTF-8", ErrInput, meta.Path)
	}
	r, ok := registry[meta.Language]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrInput, meta.Language)
	}
	l := lang.ForTag(meta.Language)

	parser := l.NewParser()
	tree, err := l.Parse(ctx, parser, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &walker{
		ctx:   ctx,
		rules: r,
		lang:  l,
		src:   source,
		cx:    NewContext(uuid.NewString()),
		fmt: model.Formatting{
			IndentUnit: detectIndentUnit(source),
			LineEnding: detectLineEnding(source),
		},
	}

	if err := w.walk(lang.NamedChildren(tree.RootNode())); err != nil {
		return nil, err
	}

	blocks, roots, rels, unresolved := w.cx.Finish()
	c := &model.Container{
		ID:            w.cx.containerID,
		SnapshotID:    meta.SnapshotID,
		Path:          meta.Path,
		Language:      meta.Language,
		ContentHash:   meta.ContentHash,
		LineEnding:    w.fmt.LineEnding,
		Roots:         roots,
		Blocks:        blocks,
		Relationships: rels,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStructural, meta.Path, err)
	}
	return &Result{Container: c, Unresolved: unresolved}, nil
}

type walker struct {
	ctx   context.Context
	rules rules
	lang  *lang.Language
	src   []byte
	cx    *Context
	fmt   model.Formatting
}

// walk visits a slice of sibling nodes, turning each into a block. Nodes the
// rules table cannot classify become Comment or Statement blocks so that
// emission order stays complete.
func (w *walker) walk(nodes []*sitter.Node) error {
	for _, node := range nodes {
		if err := w.ctx.Err(); err != nil {
			return err
		}

		kind, ok := w.rules.classify(node, w.src)
		if !ok {
			if w.lang.IsComment(node.Type()) {
				kind = model.Comment
			} else {
				kind = model.Statement
			}
		}

		b := w.newBlock(node, kind)
		descend := w.rules.populate(b, node, w.src, w.cx)
		b.QualifiedName = w.cx.QualifyName(b.Name)
		b.Fingerprint = fingerprint(b)

		w.cx.Enter(b, scopeFor(b))
		for _, body := range descend {
			if err := w.walk(lang.NamedChildren(body)); err != nil {
				return err
			}
		}
		w.cx.Exit()
	}
	return nil
}

func (w *walker) newBlock(node *sitter.Node, kind model.BlockKind) *model.Block {
	text := lang.NodeText(node, w.src)
	return &model.Block{
		ID:          uuid.NewString(),
		ContainerID: w.cx.containerID,
		Kind:        kind,
		Language:    w.rules.tag(),
		Position: model.Position{
			StartLine:   int(node.StartPoint().Row) + 1,
			StartColumn: int(node.StartPoint().Column),
			EndLine:     int(node.EndPoint().Row) + 1,
			EndColumn:   int(node.EndPoint().Column),
			StartByte:   uint64(node.StartByte()),
			EndByte:     uint64(node.EndByte()),
		},
		OriginalText: text,
		Normalized:   lang.CollapseWhitespace(text),
		Hints: model.ReconstructionHints{
			PreferOriginal: true,
			Formatting:     w.fmt,
		},
	}
}

func scopeFor(b *model.Block) Scope {
	switch b.Kind {
	case model.Function:
		return Scope{Kind: ScopeFunction, Name: b.Name}
	case model.Class, model.Struct, model.Enum, model.Interface:
		return Scope{Kind: ScopeClass, Name: b.Name}
	case model.Module:
		return Scope{Kind: ScopeModule, Name: b.Name}
	default:
		return Scope{Kind: ScopeBlock}
	}
}

// fingerprint hashes the parts of a block that make up its signature. Two
// blocks with the same fingerprint declare the same surface.
func fingerprint(b *model.Block) string {
	h := sha256.New()
	h.Write([]byte(b.Language))
	h.Write([]byte{0})
	h.Write([]byte(b.Kind))
	h.Write([]byte{0})
	h.Write([]byte(b.Name))
	for _, p := range b.Params {
		h.Write([]byte{0})
		h.Write([]byte(p.Name))
		h.Write([]byte(":"))
		h.Write([]byte(p.TypeAnno))
	}
	h.Write([]byte{0})
	h.Write([]byte(b.ReturnType))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func detectLineEnding(src []byte) string {
	if bytes.Contains(src, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

// detectIndentUnit returns the first leading whitespace run found on an
// indented line, normalized to a tab or a run of spaces. Defaults to four
// spaces when the file has no indented lines.
func detectIndentUnit(src []byte) string {
	for _, line := range strings.Split(string(src), "\n") {
		if len(line) == 0 || (line[0] != ' ' && line[0] != '\t') {
			continue
		}
		if line[0] == '\t' {
			return "\t"
		}
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.Repeat(" ", n)
	}
	return "    "
}

// countNodes counts descendants of node (inclusive) whose type is in kinds.
// Unnamed nodes are included so operator tokens like "&&" are visible.
func countNodes(node *sitter.Node, kinds map[string]struct{}) int {
	count := 0
	if _, ok := kinds[node.Type()]; ok {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countNodes(node.Child(i), kinds)
	}
	return count
}

// scanCalls records a Calls reference for every call node in the subtree.
// The callee name is the rightmost identifier of the call target, matching
// how a local symbol table would bind it.
func scanCalls(sourceID string, node *sitter.Node, src []byte, cx *Context, callTypes map[string]string) {
	if field, ok := callTypes[node.Type()]; ok {
		if callee := node.ChildByFieldName(field); callee != nil {
			cx.AddRef(sourceID, rightmostIdent(callee, src), model.Calls)
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		scanCalls(sourceID, node.NamedChild(i), src, cx, callTypes)
	}
}

// rightmostIdent reduces an expression to its trailing identifier, so
// `self.helper` and `pkg.mod.helper` both key the symbol `helper`.
func rightmostIdent(node *sitter.Node, src []byte) string {
	text := lang.NodeText(node, src)
	if i := strings.LastIndexAny(text, ".:"); i >= 0 {
		text = text[i+1:]
	}
	if !isIdent(text) {
		return ""
	}
	return text
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
