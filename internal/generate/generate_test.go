package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/srcmirror/srcmirror/internal/model"
	"github.com/srcmirror/srcmirror/internal/store"
)

func block(id string, kind model.BlockKind, idx int, original string) *model.Block {
	return &model.Block{
		ID:           id,
		ContainerID:  "c1",
		Kind:         kind,
		Language:     "python",
		Position:     model.Position{SiblingIndex: idx},
		OriginalText: original,
		Hints: model.ReconstructionHints{
			PreferOriginal: true,
			Formatting:     model.Formatting{IndentUnit: "    ", LineEnding: "\n"},
		},
	}
}

func container(lang string, blocks ...*model.Block) *model.Container {
	c := &model.Container{
		ID:         "c1",
		Path:       "a.py",
		Language:   lang,
		LineEnding: "\n",
		Blocks:     blocks,
	}
	for _, b := range blocks {
		if b.ParentID == "" {
			c.Roots = append(c.Roots, b.ID)
		}
	}
	return c
}

func TestVerbatimSourceOrder(t *testing.T) {
	t.Parallel()

	c := container("python",
		block("i1", model.Import, 0, "import os"),
		block("i2", model.Import, 1, "import sys"),
		block("f1", model.Function, 2, "def f():\n    pass"),
	)
	got, err := Blocks(context.Background(), c, c.Blocks, Options{})
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	want := "import os\nimport sys\n\ndef f():\n    pass\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGroupImports(t *testing.T) {
	t.Parallel()

	v := block("v1", model.Variable, 0, "x = 1")
	third := block("i1", model.Import, 1, "import requests")
	third.Name = "requests"
	std := block("i2", model.Import, 2, "import os")
	std.Name = "os"
	local := block("i3", model.Import, 3, "from . import util")
	local.Name = "."
	local.Metadata = map[string]string{"relative": "true"}

	c := container("python", v, third, std, local)
	got, err := Blocks(context.Background(), c, c.Blocks, Options{GroupImports: true})
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	want := "import os\nimport requests\nfrom . import util\n\nx = 1\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTemplateEmission(t *testing.T) {
	t.Parallel()

	fn := block("f1", model.Function, 0, "")
	fn.Name = "add"
	fn.Params = []model.Param{
		{Name: "a", TypeAnno: "int"},
		{Name: "b", TypeAnno: "int"},
	}
	fn.ReturnType = "int"
	fn.BodyText = "return a + b"
	fn.Hints.PreferOriginal = false
	fn.Hints.Template = "{decorators}{modifiers}def {name}({params}){return}:{body}"
	fn.Hints.Body = model.BodyExtraction{Method: model.BodyIndent}

	c := container("python", fn)
	got, err := Blocks(context.Background(), c, c.Blocks, Options{})
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	want := "def add(a: int, b: int) -> int:\n    return a + b\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTemplateBraceChildren(t *testing.T) {
	t.Parallel()

	fn := block("f1", model.Function, 0, "")
	fn.Language = "rust"
	fn.Name = "main"
	fn.Modifiers = []string{"pub"}
	fn.Children = []string{"s1"}
	fn.Hints.PreferOriginal = false
	fn.Hints.Template = "{modifiers}fn {name}({params}){return} {body}"
	fn.Hints.Body = model.BodyExtraction{Method: model.BodyBrace, StartMarker: "{", EndMarker: "}"}

	stmt := block("s1", model.Statement, 0, `println!("hi");`)
	stmt.Language = "rust"
	stmt.ParentID = "f1"

	c := container("rust", fn, stmt)
	got, err := Blocks(context.Background(), c, c.Blocks, Options{})
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	want := "pub fn main() {\n    println!(\"hi\");\n}\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTemplateMissingAttribute(t *testing.T) {
	t.Parallel()

	fn := block("f1", model.Function, 0, "")
	fn.Hints.PreferOriginal = false
	fn.Hints.Template = "def {name}():{body}"
	fn.Hints.Body = model.BodyExtraction{Method: model.BodyIndent}

	c := container("python", fn)
	_, err := Blocks(context.Background(), c, c.Blocks, Options{})
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("err = %v, want ErrGeneration", err)
	}
}

func TestNoTemplateNoOriginal(t *testing.T) {
	t.Parallel()

	b := block("b1", model.Statement, 0, "")
	b.Hints.PreferOriginal = false

	c := container("python", b)
	_, err := Blocks(context.Background(), c, c.Blocks, Options{})
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("err = %v, want ErrGeneration", err)
	}
}

func TestDuplicateSiblingIndex(t *testing.T) {
	t.Parallel()

	c := container("python",
		block("b1", model.Variable, 0, "x = 1"),
		block("b2", model.Variable, 0, "y = 2"),
	)
	_, err := Blocks(context.Background(), c, c.Blocks, Options{})
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("err = %v, want ErrGeneration", err)
	}
}

func TestUnknownLanguage(t *testing.T) {
	t.Parallel()

	c := container("cobol", block("b1", model.Statement, 0, "X."))
	_, err := Blocks(context.Background(), c, c.Blocks, Options{})
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("err = %v, want ErrGeneration", err)
	}
}

func TestContainerFromStore(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	ctx := context.Background()

	fn := block("c1-fn", model.Function, 0, "def f():\n    pass")
	fn.Name = "f"
	fn.Position.EndByte = 20
	c := container("python", fn)
	c.SnapshotID = "s1"
	if err := st.PutContainer(ctx, c); err != nil {
		t.Fatalf("PutContainer: %v", err)
	}

	got, err := Container(ctx, st, "c1", Options{})
	if err != nil {
		t.Fatalf("Container: %v", err)
	}
	want := "def f():\n    pass\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := Container(ctx, st, "missing", Options{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
