package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Languages["python"] = &Language{
		Tag:          "python",
		Extensions:   []string{".py", ".pyi"},
		lang:         python.GetLanguage(),
		CommentKinds: []string{"comment"},
	}
}
