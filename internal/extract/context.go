package extract

import (
	"github.com/srcmirror/srcmirror/internal/model"
)

// ScopeKind tags the lexical scope the walker is currently inside.
type ScopeKind string

const (
	ScopeModule   ScopeKind = "module"
	ScopeClass    ScopeKind = "class"
	ScopeFunction ScopeKind = "function"
	ScopeBlock    ScopeKind = "block"
)

// Scope is one entry of the extraction context's scope stack.
type Scope struct {
	Kind ScopeKind
	Name string
}

// PendingRef is a name-keyed edge whose target is looked up after the walk.
type PendingRef struct {
	SourceID   string
	TargetName string
	Kind       model.RelationshipKind
}

// Context is the mutable collaborator used only during a single extraction.
// It owns the parent stack, the per-container symbol table, pending
// references and sibling counters. It is not safe for concurrent use; each
// extraction gets its own.
type Context struct {
	containerID string

	parents  []*model.Block
	scopes   []Scope
	symbols  map[string]string // canonical name -> block id, first definition wins
	pending  []PendingRef
	counters map[string]int // parent id ("" for roots) -> next sibling index

	blocks []*model.Block
	roots  []string
}

// NewContext creates a context for one container extraction.
func NewContext(containerID string) *Context {
	return &Context{
		containerID: containerID,
		symbols:     make(map[string]string),
		counters:    make(map[string]int),
	}
}

// Enter pushes a block onto the parent stack, assigns its sibling index and
// wires it to its parent, and registers its canonical name.
func (cx *Context) Enter(b *model.Block, scope Scope) {
	parentID := ""
	if top := cx.Parent(); top != nil {
		parentID = top.ID
	}
	b.ParentID = parentID
	b.Position.SiblingIndex = cx.counters[parentID]
	cx.counters[parentID]++

	if parentID == "" {
		cx.roots = append(cx.roots, b.ID)
	} else {
		top := cx.Parent()
		top.Children = append(top.Children, b.ID)
	}

	if b.Name != "" {
		if _, taken := cx.symbols[b.Name]; !taken {
			cx.symbols[b.Name] = b.ID
		}
	}

	cx.blocks = append(cx.blocks, b)
	cx.parents = append(cx.parents, b)
	cx.scopes = append(cx.scopes, scope)
}

// Exit pops the parent stack.
func (cx *Context) Exit() {
	cx.parents = cx.parents[:len(cx.parents)-1]
	cx.scopes = cx.scopes[:len(cx.scopes)-1]
}

// Parent returns the enclosing block, or nil at top level.
func (cx *Context) Parent() *model.Block {
	if len(cx.parents) == 0 {
		return nil
	}
	return cx.parents[len(cx.parents)-1]
}

// Scope returns the current scope, or a module scope at top level.
func (cx *Context) Scope() Scope {
	if len(cx.scopes) == 0 {
		return Scope{Kind: ScopeModule}
	}
	return cx.scopes[len(cx.scopes)-1]
}

// EnclosingDefinition returns the nearest enclosing named definition block
// (function, class, struct, enum, interface or module), or nil.
func (cx *Context) EnclosingDefinition() *model.Block {
	for i := len(cx.parents) - 1; i >= 0; i-- {
		switch cx.parents[i].Kind {
		case model.Function, model.Class, model.Struct, model.Enum, model.Interface, model.Module:
			return cx.parents[i]
		}
	}
	return nil
}

// QualifyName prefixes name with the enclosing definition names, dotted.
func (cx *Context) QualifyName(name string) string {
	qual := name
	for i := len(cx.parents) - 1; i >= 0; i-- {
		if n := cx.parents[i].Name; n != "" {
			qual = n + "." + qual
		}
	}
	return qual
}

// AddRef records an unresolved reference for later resolution. Refs with an
// empty target name are ignored.
func (cx *Context) AddRef(sourceID, targetName string, kind model.RelationshipKind) {
	if targetName == "" || sourceID == "" {
		return
	}
	cx.pending = append(cx.pending, PendingRef{SourceID: sourceID, TargetName: targetName, Kind: kind})
}

// Finish resolves pending references against the symbol table and returns
// the extracted blocks, the resolved relationships, and the references that
// could not be bound inside this container. Unresolved entries never become
// relationships; callers may retry them against other containers of the
// same snapshot.
func (cx *Context) Finish() (blocks []*model.Block, roots []string, rels []model.Relationship, unresolved []PendingRef) {
	type edge struct {
		src, tgt string
		kind     model.RelationshipKind
	}
	seen := make(map[edge]bool)
	for _, p := range cx.pending {
		targetID, ok := cx.symbols[p.TargetName]
		if !ok || targetID == p.SourceID {
			unresolved = append(unresolved, p)
			continue
		}
		e := edge{p.SourceID, targetID, p.Kind}
		if seen[e] {
			continue
		}
		seen[e] = true
		rels = append(rels, model.Relationship{SourceID: p.SourceID, TargetID: targetID, Kind: p.Kind})
	}
	return cx.blocks, cx.roots, rels, unresolved
}
