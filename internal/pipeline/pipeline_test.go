package pipeline

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/srcmirror/srcmirror/internal/loader"
	"github.com/srcmirror/srcmirror/internal/model"
	"github.com/srcmirror/srcmirror/internal/store"
)

func source(path, language, content string) loader.Source {
	return loader.Source{
		RepositoryID: "repo",
		Path:         path,
		Language:     language,
		Bytes:        []byte(content),
		ContentHash:  "hash-" + path,
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	snap := &model.Snapshot{ID: "s1", CreatedAt: time.Now()}
	sources := []loader.Source{
		source("a.py", "python", "def f():\n    pass\n"),
		{RepositoryID: "repo", Path: "bad.py", Language: "python", Bytes: []byte{0xff, 0xfe}},
		source("z.rs", "rust", "fn main() {}\n"),
	}

	outcomes, summary, err := Run(context.Background(), st, snap, sources, Config{Workers: 2, Validate: true}, io.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.ByKind[FailureInput] != 1 {
		t.Errorf("by kind = %+v, want one input failure", summary.ByKind)
	}

	// Outcomes come back sorted by path.
	wantPaths := []string{"a.py", "bad.py", "z.rs"}
	for i, o := range outcomes {
		if o.Path != wantPaths[i] {
			t.Errorf("outcome[%d].Path = %q, want %q", i, o.Path, wantPaths[i])
		}
	}
	if outcomes[1].Failure != FailureInput || outcomes[1].Err == nil {
		t.Errorf("bad.py outcome = %+v", outcomes[1])
	}
	if outcomes[1].ContainerID != "" {
		t.Error("failed input must not commit a container")
	}

	got, err := st.GetSnapshot(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if len(got.ContainerIDs) != 2 {
		t.Errorf("snapshot has %d containers, want 2", len(got.ContainerIDs))
	}

	a, err := st.ContainerByPath(context.Background(), "s1", "a.py")
	if err != nil {
		t.Fatalf("ContainerByPath: %v", err)
	}
	if a.Language != "python" {
		t.Errorf("language = %q", a.Language)
	}
}

func TestRunCrossContainerResolution(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	snap := &model.Snapshot{ID: "s1", CreatedAt: time.Now()}
	sources := []loader.Source{
		source("lib.py", "python", "def helper():\n    pass\n"),
		source("main.py", "python", "def main():\n    helper()\n"),
	}

	_, _, err := Run(context.Background(), st, snap, sources, Config{Workers: 1}, io.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	ctx := context.Background()
	mainC, err := st.ContainerByPath(ctx, "s1", "main.py")
	if err != nil {
		t.Fatalf("ContainerByPath: %v", err)
	}
	mains, err := st.ByCanonicalName(ctx, mainC.ID, "main")
	if err != nil || len(mains) != 1 {
		t.Fatalf("ByCanonicalName main: %v %d", err, len(mains))
	}

	rels, err := st.RelationshipsFrom(ctx, mains[0].ID)
	if err != nil {
		t.Fatalf("RelationshipsFrom: %v", err)
	}
	var cross *model.Relationship
	for i := range rels {
		if rels[i].Kind == model.Calls && rels[i].Metadata["cross_container"] == "true" {
			cross = &rels[i]
		}
	}
	if cross == nil {
		t.Fatalf("no cross-container calls edge, got %+v", rels)
	}

	libC, err := st.ContainerByPath(ctx, "s1", "lib.py")
	if err != nil {
		t.Fatal(err)
	}
	helpers, err := st.ByCanonicalName(ctx, libC.ID, "helper")
	if err != nil || len(helpers) != 1 {
		t.Fatalf("ByCanonicalName helper: %v %d", err, len(helpers))
	}
	if cross.TargetID != helpers[0].ID {
		t.Errorf("edge target = %q, want helper block %q", cross.TargetID, helpers[0].ID)
	}
}

func TestRunValidatesRoundTrip(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	snap := &model.Snapshot{ID: "s1", CreatedAt: time.Now()}
	sources := []loader.Source{
		source("a.py", "python", "import os\n\n\nclass A:\n    def m(self, x: int) -> int:\n        return x * 2\n"),
		source("b.ts", "typescript", "interface Pair<T> {\n  first: T;\n  second: T;\n}\n"),
		source("c.rs", "rust", "pub fn max(a: i32, b: i32) -> i32 {\n    if a > b { a } else { b }\n}\n"),
	}

	outcomes, summary, err := Run(context.Background(), st, snap, sources, Config{Validate: true}, io.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 0 {
		t.Fatalf("summary = %+v, outcomes = %+v", summary, outcomes)
	}
	for _, o := range outcomes {
		if o.Blocks == 0 {
			t.Errorf("%s committed zero blocks", o.Path)
		}
	}
}

func TestRunEmpty(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	snap := &model.Snapshot{ID: "s1", CreatedAt: time.Now()}

	outcomes, summary, err := Run(context.Background(), st, snap, nil, Config{}, io.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 0 || summary.Total != 0 {
		t.Errorf("outcomes = %+v, summary = %+v", outcomes, summary)
	}
	if _, err := st.GetSnapshot(context.Background(), "s1"); err != nil {
		t.Errorf("snapshot not recorded: %v", err)
	}
}

func TestRunValidatesLateImports(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	snap := &model.Snapshot{ID: "s1", CreatedAt: time.Now()}
	sources := []loader.Source{
		source("late.py", "python", "def f():\n    return 1\n\nimport os\n\ndef g():\n    return os.name\n"),
	}

	outcomes, summary, err := Run(context.Background(), st, snap, sources, Config{Validate: true}, io.Discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 0 {
		t.Fatalf("summary = %+v, outcome err = %v", summary, outcomes[0].Err)
	}
	if outcomes[0].Failure != FailureNone {
		t.Errorf("outcome = %+v", outcomes[0])
	}
}

func TestExtractOneClassifiesContextErrors(t *testing.T) {
	t.Parallel()
	src := source("a.py", "python", "x = 1\n")

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	c, _, kind, err := extractOne(canceled, src, "s1", Config{})
	if c != nil || kind != FailureCanceled || err == nil {
		t.Errorf("canceled: container = %v, kind = %q, err = %v", c, kind, err)
	}

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	c, _, kind, err = extractOne(expired, src, "s1", Config{FileTimeout: time.Minute})
	if c != nil || kind != FailureTimeout || err == nil {
		t.Errorf("timed out: container = %v, kind = %q, err = %v", c, kind, err)
	}
}
