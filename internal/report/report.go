// Package report renders pipeline outcomes in a compact tabular text format.
package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/srcmirror/srcmirror/internal/pipeline"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
)

// Render formats per-container outcomes plus the aggregate summary.
func Render(snapshotID string, outcomes []pipeline.Outcome, summary pipeline.Summary) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("snapshot: %s", encodeValue(snapshotID)))

	var rows [][]string
	for i := range outcomes {
		o := &outcomes[i]
		status := "ok"
		detail := ""
		if o.Failure != pipeline.FailureNone {
			status = string(o.Failure)
			if o.Err != nil {
				detail = o.Err.Error()
			}
		}
		rows = append(rows, []string{
			o.Path,
			o.Language,
			fmt.Sprintf("%d", o.Blocks),
			status,
			detail,
		})
	}
	parts = append(parts, formatTabular("containers", []string{"path", "language", "blocks", "status", "detail"}, rows))

	var sumRows [][]string
	sumRows = append(sumRows, []string{"total", fmt.Sprintf("%d", summary.Total)})
	sumRows = append(sumRows, []string{"succeeded", fmt.Sprintf("%d", summary.Succeeded)})
	sumRows = append(sumRows, []string{"failed", fmt.Sprintf("%d", summary.Failed)})
	for _, kind := range []pipeline.FailureKind{
		pipeline.FailureInput,
		pipeline.FailureGrammar,
		pipeline.FailureStructural,
		pipeline.FailureGeneration,
		pipeline.FailureEquivalence,
		pipeline.FailureStore,
	} {
		if n := summary.ByKind[kind]; n > 0 {
			sumRows = append(sumRows, []string{string(kind), fmt.Sprintf("%d", n)})
		}
	}
	parts = append(parts, formatTabular("summary", []string{"metric", "value"}, sumRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
