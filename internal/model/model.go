// Package model defines the language-agnostic block data model for srcmirror.
package model

// BlockKind classifies a semantic block. The set is closed; new languages
// map their node types onto these kinds rather than adding new ones.
type BlockKind string

const (
	Function    BlockKind = "function"
	Class       BlockKind = "class"
	Interface   BlockKind = "interface"
	Struct      BlockKind = "struct"
	Enum        BlockKind = "enum"
	Module      BlockKind = "module"
	Import      BlockKind = "import"
	Export      BlockKind = "export"
	Variable    BlockKind = "variable"
	Conditional BlockKind = "conditional"
	Loop        BlockKind = "loop"
	TryCatch    BlockKind = "trycatch"
	Comment     BlockKind = "comment"
	TypeDef     BlockKind = "typedef"
	Macro       BlockKind = "macro"
	// Statement is the catch-all for syntax the taxonomy has no name for
	// (bare expression statements, return/with/assert and similar). Blocks
	// of this kind carry their original slice and nothing else.
	Statement BlockKind = "statement"
)

// RelationshipKind classifies a directed edge between two blocks.
type RelationshipKind string

const (
	Calls      RelationshipKind = "calls"
	Inherits   RelationshipKind = "inherits"
	Implements RelationshipKind = "implements"
	Imports    RelationshipKind = "imports"
	Exports    RelationshipKind = "exports"
	Contains   RelationshipKind = "contains"
	References RelationshipKind = "references"
)

// Position locates a block within its container.
type Position struct {
	StartLine    int    `json:"start_line"`
	StartColumn  int    `json:"start_column"`
	EndLine      int    `json:"end_line"`
	EndColumn    int    `json:"end_column"`
	StartByte    uint64 `json:"start_byte"`
	EndByte      uint64 `json:"end_byte"`
	SiblingIndex int    `json:"sibling_index"`
}

// Param describes one parameter of a callable block.
type Param struct {
	Name        string `json:"name"`
	TypeAnno    string `json:"type,omitempty"`
	Default     string `json:"default,omitempty"`
	Variadic    bool   `json:"variadic,omitempty"`     // *args / ...rest
	KeywordOnly bool   `json:"keyword_only,omitempty"` // **kwargs or after bare *
}

// Block is a semantically meaningful, contiguous region of one source file.
// After its container commits, a block is read-only.
type Block struct {
	ID            string    `json:"id"`
	ContainerID   string    `json:"container_id"`
	ParentID      string    `json:"parent_id,omitempty"` // empty for top-level blocks
	Kind          BlockKind `json:"kind"`
	Language      string    `json:"language"`
	Name          string    `json:"name"` // canonical name
	QualifiedName string    `json:"qualified_name,omitempty"`
	Fingerprint   string    `json:"fingerprint,omitempty"` // signature fingerprint, hex
	Position      Position  `json:"position"`

	// Syntax preservation.
	OriginalText string              `json:"original_text"`
	BodyText     string              `json:"body_text,omitempty"` // body slice when separable from the header
	Normalized   string              `json:"normalized,omitempty"`
	Hints        ReconstructionHints `json:"hints"`

	// Structural context.
	Children   []string `json:"children,omitempty"` // child block ids in sibling order
	Bases      []string `json:"bases,omitempty"`    // inheritance list
	Decorators []string `json:"decorators,omitempty"`

	// Semantic metadata.
	Params     []Param           `json:"params,omitempty"`
	ReturnType string            `json:"return_type,omitempty"`
	Modifiers  []string          `json:"modifiers,omitempty"`
	Complexity int               `json:"complexity,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// HasModifier reports whether the block carries the given modifier.
func (b *Block) HasModifier(m string) bool {
	for _, have := range b.Modifiers {
		if have == m {
			return true
		}
	}
	return false
}

// Relationship is a directed, typed edge between two blocks. Both endpoints
// must exist at the moment the relationship is persisted; unresolved
// references never become relationships.
type Relationship struct {
	SourceID string            `json:"source_id"`
	TargetID string            `json:"target_id"`
	Kind     RelationshipKind  `json:"kind"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
