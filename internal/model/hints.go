package model

// BodyMethod describes how a block's body is split from its header.
type BodyMethod string

const (
	BodyBrace      BodyMethod = "brace"       // { ... }
	BodyIndent     BodyMethod = "indent"      // python-style suite
	BodyEndKeyword BodyMethod = "end-keyword" // header ... end
	BodyNone       BodyMethod = ""            // block has no separable body
)

// BodyExtraction tells the generator how to open and close a block body.
type BodyExtraction struct {
	Method         BodyMethod `json:"method"`
	StartMarker    string     `json:"start_marker,omitempty"` // e.g. ":" or "{"
	EndMarker      string     `json:"end_marker,omitempty"`   // e.g. "}" or "end"
	PreserveIndent bool       `json:"preserve_indent"`
}

// Formatting records the surface style observed at extraction time.
type Formatting struct {
	IndentUnit string `json:"indent_unit"` // e.g. "    " or "\t"
	LineEnding string `json:"line_ending"` // "\n" or "\r\n"
	Spacing    string `json:"spacing,omitempty"`
}

// ReconstructionHints is the compact record that lets the generator emit a
// block without the container's raw bytes.
type ReconstructionHints struct {
	// PreferOriginal selects verbatim emission of Block.OriginalText.
	PreferOriginal bool `json:"prefer_original"`
	// Template is a parameterized skeleton used when PreferOriginal is
	// false, e.g. "def {name}({params}){return}:{body}".
	Template string `json:"template,omitempty"`
	// ParameterPositions maps parameter names to their ordinal position in
	// the rendered parameter list.
	ParameterPositions map[string]int `json:"parameter_positions,omitempty"`
	Body               BodyExtraction `json:"body_extraction"`
	Formatting         Formatting     `json:"formatting"`
}
