// Package generate emits source bytes for a container from the block store
// alone. Emission never consults the original file; everything it needs is
// on the blocks and their reconstruction hints.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/srcmirror/srcmirror/internal/model"
	"github.com/srcmirror/srcmirror/internal/store"
)

// ErrGeneration marks a fatal emission failure for one container: a missing
// hint field, a duplicate sibling index, or a template placeholder with no
// corresponding attribute.
var ErrGeneration = errors.New("generation error")

// Options tunes generation.
type Options struct {
	// GroupImports moves imports to the top, grouped standard library,
	// third-party then local, sorted within groups. Off by default: source
	// order gives the closest round-trip.
	GroupImports bool
}

// blockState tracks the per-block emission state machine.
type blockState int

const (
	statePending blockState = iota
	stateHeaderEmitted
	stateChildrenEmitted
	stateClosed
)

func (s blockState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateHeaderEmitted:
		return "header-emitted"
	case stateChildrenEmitted:
		return "children-emitted"
	default:
		return "closed"
	}
}

type generator struct {
	ctx      context.Context
	strategy *Strategy
	blocks   map[string]*model.Block
	states   map[string]blockState
	le       string
	indent   string
}

// Container regenerates the source bytes for one committed container.
func Container(ctx context.Context, st store.Store, containerID string, opts Options) ([]byte, error) {
	c, err := st.GetContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}
	all, err := st.Blocks(ctx, containerID)
	if err != nil {
		return nil, err
	}
	return Blocks(ctx, c, all, opts)
}

// Blocks regenerates source from container metadata and its block set. It is
// the store-free core of Container, usable on a freshly extracted container
// before commit.
func Blocks(ctx context.Context, c *model.Container, all []*model.Block, opts Options) ([]byte, error) {
	strategy := ForTag(c.Language)
	if strategy == nil {
		return nil, fmt.Errorf("%w: no strategy for language %q", ErrGeneration, c.Language)
	}

	g := &generator{
		ctx:      ctx,
		strategy: strategy,
		blocks:   make(map[string]*model.Block, len(all)),
		states:   make(map[string]blockState, len(all)),
		le:       c.LineEnding,
	}
	if g.le == "" {
		g.le = "\n"
	}
	for _, b := range all {
		g.blocks[b.ID] = b
		if g.indent == "" && b.Hints.Formatting.IndentUnit != "" {
			g.indent = b.Hints.Formatting.IndentUnit
		}
	}
	if g.indent == "" {
		g.indent = "    "
	}

	roots := make([]*model.Block, 0, len(c.Roots))
	for _, id := range c.Roots {
		b, ok := g.blocks[id]
		if !ok {
			return nil, fmt.Errorf("%w: root block %s missing from store", ErrGeneration, id)
		}
		roots = append(roots, b)
	}
	if err := checkSiblingIndices(roots); err != nil {
		return nil, err
	}

	ordered := orderTopLevel(roots, strategy, opts)

	parts := make([][]byte, 0, len(ordered))
	for _, b := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := g.emitBlock(b, 0)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return g.join(ordered, parts), nil
}

// checkSiblingIndices fails fast on the store-invariant violation of two
// siblings sharing an index.
func checkSiblingIndices(siblings []*model.Block) error {
	seen := make(map[int]string, len(siblings))
	for _, b := range siblings {
		idx := b.Position.SiblingIndex
		if other, dup := seen[idx]; dup {
			return fmt.Errorf("%w: blocks %s and %s share sibling index %d", ErrGeneration, other, b.ID, idx)
		}
		seen[idx] = b.ID
	}
	return nil
}

// orderTopLevel decides emission order. When every block prefers its
// original slice and grouping is off, source order wins. Otherwise imports
// lead (optionally grouped and sorted), followed by type declarations,
// variables, callables, then remaining statements.
func orderTopLevel(roots []*model.Block, strategy *Strategy, opts Options) []*model.Block {
	bySibling := make([]*model.Block, len(roots))
	copy(bySibling, roots)
	sort.SliceStable(bySibling, func(i, j int) bool {
		return bySibling[i].Position.SiblingIndex < bySibling[j].Position.SiblingIndex
	})

	allOriginal := true
	for _, b := range bySibling {
		if !b.Hints.PreferOriginal {
			allOriginal = false
			break
		}
	}
	if allOriginal && !opts.GroupImports {
		return bySibling
	}

	rank := func(b *model.Block) int {
		switch b.Kind {
		case model.Import:
			return 0
		case model.Interface, model.Struct, model.Enum, model.TypeDef, model.Class, model.Module:
			return 1
		case model.Variable:
			return 2
		case model.Function:
			return 3
		default:
			return 4
		}
	}
	ordered := make([]*model.Block, len(bySibling))
	copy(ordered, bySibling)
	if opts.GroupImports {
		// Imports move to the front; everything else keeps source order.
		sort.SliceStable(ordered, func(i, j int) bool {
			ii, jj := ordered[i].Kind == model.Import, ordered[j].Kind == model.Import
			if ii != jj {
				return ii
			}
			if ii && jj {
				gi, gj := strategy.ImportGroup(ordered[i]), strategy.ImportGroup(ordered[j])
				if gi != gj {
					return gi < gj
				}
				return ordered[i].Name < ordered[j].Name
			}
			return ordered[i].Position.SiblingIndex < ordered[j].Position.SiblingIndex
		})
		return ordered
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := rank(ordered[i]), rank(ordered[j])
		if ri != rj {
			return ri < rj
		}
		return ordered[i].Position.SiblingIndex < ordered[j].Position.SiblingIndex
	})
	return ordered
}

// join assembles top-level parts: consecutive imports sit on adjacent lines,
// everything else gets a blank line between definitions.
func (g *generator) join(blocks []*model.Block, parts [][]byte) []byte {
	var buf bytes.Buffer
	for i, part := range parts {
		if i > 0 {
			prev, cur := blocks[i-1], blocks[i]
			tight := (prev.Kind == model.Import && cur.Kind == model.Import) ||
				prev.Kind == model.Comment ||
				(prev.Kind == model.Macro && cur.Kind != model.Macro && cur.Kind != model.Import)
			buf.WriteString(g.le)
			if !tight {
				buf.WriteString(g.le)
			}
		}
		buf.Write(part)
	}
	buf.WriteString(g.le)
	return buf.Bytes()
}
