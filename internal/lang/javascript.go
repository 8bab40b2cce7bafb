package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
)

func init() {
	Languages["javascript"] = &Language{
		Tag:          "javascript",
		Extensions:   []string{".js", ".jsx", ".mjs", ".cjs"},
		lang:         javascript.GetLanguage(),
		CommentKinds: []string{"comment"},
	}
}
