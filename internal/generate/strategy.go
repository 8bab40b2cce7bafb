package generate

import (
	"strings"

	"github.com/srcmirror/srcmirror/internal/model"
)

// Strategy configures per-language emission. Strategies are data plus small
// function hooks; the emission loop itself is shared.
// Populated by init() functions in per-language files.
type Strategy struct {
	Tag string

	// RenderParam renders one parameter in the language's surface form.
	RenderParam func(model.Param) string
	// ReturnPrefix precedes a non-empty return type, e.g. " -> " or ": ".
	ReturnPrefix string
	// DecoratorPrefix precedes each decorator line.
	DecoratorPrefix string
	// TypeAnnoPrefix precedes a variable type annotation.
	TypeAnnoPrefix string
	// BasesWrap renders the inheritance clause for a class header.
	BasesWrap func(bases []string) string

	// ImportGroup classifies an import path for the optional grouping pass:
	// 0 standard library, 1 third-party, 2 local.
	ImportGroup func(b *model.Block) int
}

var strategies = map[string]*Strategy{}

// ForTag returns the emission strategy for a language tag, or nil.
func ForTag(tag string) *Strategy {
	return strategies[tag]
}

func (s *Strategy) renderParams(params []model.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, s.RenderParam(p))
	}
	return strings.Join(parts, ", ")
}

func (s *Strategy) renderReturn(returnType string) string {
	if returnType == "" {
		return ""
	}
	return s.ReturnPrefix + returnType
}

// isRelative reports whether an import block refers to a local module.
func isRelative(b *model.Block) bool {
	return b.Metadata["relative"] == "true" || strings.HasPrefix(b.Name, ".")
}
