package lang

import (
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	Languages["typescript"] = &Language{
		Tag:          "typescript",
		Extensions:   []string{".ts", ".mts", ".cts"},
		lang:         typescript.GetLanguage(),
		CommentKinds: []string{"comment"},
	}
	Languages["tsx"] = &Language{
		Tag:          "tsx",
		Extensions:   []string{".tsx"},
		lang:         tsx.GetLanguage(),
		CommentKinds: []string{"comment"},
	}
}
