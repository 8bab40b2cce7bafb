package generate

import (
	"strings"

	"github.com/srcmirror/srcmirror/internal/model"
)

var nodeBuiltins = map[string]struct{}{
	"assert": {}, "buffer": {}, "child_process": {}, "crypto": {}, "events": {},
	"fs": {}, "http": {}, "https": {}, "net": {}, "os": {}, "path": {},
	"process": {}, "stream": {}, "url": {}, "util": {}, "zlib": {},
}

func init() {
	js := &Strategy{
		Tag:             "javascript",
		ReturnPrefix:    ": ",
		DecoratorPrefix: "@",
		TypeAnnoPrefix:  ": ",
		RenderParam:     jsRenderParam,
		ImportGroup:     jsImportGroup,
	}
	strategies["javascript"] = js

	ts := *js
	ts.Tag = "typescript"
	strategies["typescript"] = &ts

	tsx := *js
	tsx.Tag = "tsx"
	strategies["tsx"] = &tsx
}

func jsRenderParam(p model.Param) string {
	var buf strings.Builder
	if p.Variadic {
		buf.WriteString("...")
	}
	buf.WriteString(p.Name)
	if p.TypeAnno != "" {
		buf.WriteString(": ")
		buf.WriteString(p.TypeAnno)
	}
	if p.Default != "" {
		buf.WriteString(" = ")
		buf.WriteString(p.Default)
	}
	return buf.String()
}

func jsImportGroup(b *model.Block) int {
	if isRelative(b) {
		return 2
	}
	name := strings.TrimPrefix(b.Name, "node:")
	if i := strings.IndexByte(name, '/'); i > 0 {
		name = name[:i]
	}
	if _, builtin := nodeBuiltins[name]; builtin {
		return 0
	}
	return 1
}
