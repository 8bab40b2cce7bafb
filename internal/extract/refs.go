package extract

import (
	"strings"

	"github.com/srcmirror/srcmirror/internal/model"
)

// refSource picks the block that owns references found inside b: the nearest
// enclosing named definition when there is one, otherwise b itself.
func refSource(b *model.Block, cx *Context) string {
	if def := cx.EnclosingDefinition(); def != nil {
		return def.ID
	}
	return b.ID
}

// rightmostIdentText reduces a rendered type or attribute path to its
// trailing identifier, dropping generics and qualifiers: "list[Foo]" -> list,
// "a.b.C" -> C, "Vec<T>" -> Vec.
func rightmostIdentText(s string) string {
	if i := strings.IndexAny(s, "[<("); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, ".:"); i >= 0 {
		s = s[i+1:]
	}
	if !isIdent(s) {
		return ""
	}
	return s
}

// paramPositions records where each parameter name lands in the rendered
// parameter list, for the template path of the generator.
func paramPositions(params []model.Param) map[string]int {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]int, len(params))
	for i, p := range params {
		if p.Name != "" {
			out[p.Name] = i
		}
	}
	return out
}

func joinNames(names []string) string {
	return strings.Join(names, ",")
}
