package generate

import (
	"strings"

	"github.com/srcmirror/srcmirror/internal/model"
)

// pyStdlib is the module prefix set used by the optional import-grouping
// pass. It only has to be good enough to sort; unknown modules fall into the
// third-party group.
var pyStdlib = map[string]struct{}{
	"abc": {}, "argparse": {}, "asyncio": {}, "collections": {}, "contextlib": {},
	"copy": {}, "dataclasses": {}, "datetime": {}, "enum": {}, "functools": {},
	"glob": {}, "hashlib": {}, "io": {}, "itertools": {}, "json": {}, "logging": {},
	"math": {}, "os": {}, "pathlib": {}, "re": {}, "shutil": {}, "string": {},
	"subprocess": {}, "sys": {}, "tempfile": {}, "threading": {}, "time": {},
	"typing": {}, "unittest": {}, "uuid": {},
}

func init() {
	strategies["python"] = &Strategy{
		Tag:             "python",
		ReturnPrefix:    " -> ",
		DecoratorPrefix: "@",
		TypeAnnoPrefix:  ": ",
		RenderParam:     pyRenderParam,
		BasesWrap: func(bases []string) string {
			if len(bases) == 0 {
				return ""
			}
			return "(" + strings.Join(bases, ", ") + ")"
		},
		ImportGroup: func(b *model.Block) int {
			if isRelative(b) {
				return 2
			}
			root := b.Name
			if i := strings.IndexByte(root, '.'); i > 0 {
				root = root[:i]
			}
			if _, std := pyStdlib[root]; std {
				return 0
			}
			return 1
		},
	}
}

func pyRenderParam(p model.Param) string {
	var buf strings.Builder
	if p.Variadic {
		if p.KeywordOnly {
			buf.WriteString("**")
		} else {
			buf.WriteString("*")
		}
	}
	buf.WriteString(p.Name)
	if p.TypeAnno != "" {
		buf.WriteString(": ")
		buf.WriteString(p.TypeAnno)
	}
	if p.Default != "" {
		if p.TypeAnno != "" {
			buf.WriteString(" = ")
		} else {
			buf.WriteString("=")
		}
		buf.WriteString(p.Default)
	}
	return buf.String()
}
