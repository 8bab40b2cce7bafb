package generate

import (
	"strings"

	"github.com/srcmirror/srcmirror/internal/model"
)

func init() {
	strategies["rust"] = &Strategy{
		Tag:             "rust",
		ReturnPrefix:    " -> ",
		DecoratorPrefix: "#[",
		TypeAnnoPrefix:  ": ",
		RenderParam:     rustRenderParam,
		ImportGroup: func(b *model.Block) int {
			root := b.Name
			if i := strings.Index(root, "::"); i > 0 {
				root = root[:i]
			}
			switch root {
			case "std", "core", "alloc":
				return 0
			case "crate", "self", "super":
				return 2
			default:
				return 1
			}
		},
	}
}

func rustRenderParam(p model.Param) string {
	if p.TypeAnno == "" {
		return p.Name // self and friends
	}
	return p.Name + ": " + p.TypeAnno
}
