package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/srcmirror/srcmirror/internal/pipeline"
)

func TestRender(t *testing.T) {
	t.Parallel()

	outcomes := []pipeline.Outcome{
		{Path: "a.py", Language: "python", ContainerID: "c1", Blocks: 4},
		{Path: "bad.py", Language: "python", Failure: pipeline.FailureInput, Err: errors.New("not valid UTF-8")},
	}
	summary := pipeline.Summary{
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		ByKind:    map[pipeline.FailureKind]int{pipeline.FailureInput: 1},
	}

	out := Render("snap-1", outcomes, summary)

	if !strings.HasPrefix(out, "snapshot: snap-1") {
		t.Errorf("missing snapshot header: %q", out)
	}
	if !strings.Contains(out, "containers[2]{path,language,blocks,status,detail}:") {
		t.Errorf("missing containers table header: %q", out)
	}
	if !strings.Contains(out, "a.py,python,4,ok,") {
		t.Errorf("missing ok row: %q", out)
	}
	if !strings.Contains(out, "bad.py,python,0,input,") {
		t.Errorf("missing failure row: %q", out)
	}
	if !strings.Contains(out, "total,2") || !strings.Contains(out, "failed,1") {
		t.Errorf("missing summary rows: %q", out)
	}
}

func TestRenderQuotesCells(t *testing.T) {
	t.Parallel()

	outcomes := []pipeline.Outcome{
		{Path: "weird, name.py", Language: "python"},
	}
	out := Render("s", outcomes, pipeline.Summary{Total: 1, Succeeded: 1, ByKind: map[pipeline.FailureKind]int{}})

	if !strings.Contains(out, `"weird, name.py"`) {
		t.Errorf("comma cell not quoted: %q", out)
	}
}
