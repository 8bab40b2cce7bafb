package lang

import (
	"github.com/smacker/go-tree-sitter/rust"
)

func init() {
	Languages["rust"] = &Language{
		Tag:          "rust",
		Extensions:   []string{".rs"},
		lang:         rust.GetLanguage(),
		CommentKinds: []string{"line_comment", "block_comment"},
	}
}
