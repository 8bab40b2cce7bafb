package lang

import (
	"context"
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()
	cases := []struct {
		ext  string
		want string
	}{
		{".py", "python"},
		{".pyi", "python"},
		{".js", "javascript"},
		{".jsx", "javascript"},
		{".mjs", "javascript"},
		{".ts", "typescript"},
		{".tsx", "tsx"},
		{".rs", "rust"},
		{".go", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ForExtension(tc.ext); got != tc.want {
			t.Errorf("ForExtension(%q) = %q, want %q", tc.ext, got, tc.want)
		}
	}
}

func TestForTag(t *testing.T) {
	t.Parallel()
	for _, tag := range []string{"python", "javascript", "typescript", "tsx", "rust"} {
		l := ForTag(tag)
		if l == nil {
			t.Fatalf("language %q not registered", tag)
		}
		if l.Get() == nil {
			t.Errorf("%q has no grammar", tag)
		}
		if len(l.Extensions) == 0 {
			t.Errorf("%q has no extensions", tag)
		}
	}
	if ForTag("cobol") != nil {
		t.Error("unknown tag should return nil")
	}
}

func TestParseEachLanguage(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"python":     "def f():\n    pass\n",
		"javascript": "function f() {}\n",
		"typescript": "const x: number = 1;\n",
		"tsx":        "const el = <div>hi</div>;\n",
		"rust":       "fn main() {}\n",
	}
	for tag, src := range cases {
		l := ForTag(tag)
		tree, err := l.Parse(context.Background(), l.NewParser(), []byte(src))
		if err != nil {
			t.Errorf("%s: Parse: %v", tag, err)
			continue
		}
		if tree.RootNode().NamedChildCount() == 0 {
			t.Errorf("%s: empty tree for %q", tag, src)
		}
		tree.Close()
	}
}

func TestIsComment(t *testing.T) {
	t.Parallel()
	if !ForTag("python").IsComment("comment") {
		t.Error("python comment not recognized")
	}
	if !ForTag("rust").IsComment("line_comment") {
		t.Error("rust line_comment not recognized")
	}
	if ForTag("rust").IsComment("function_item") {
		t.Error("function_item is not a comment")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()
	if got := CollapseWhitespace("  a \t b\n  c  "); got != "a b c" {
		t.Errorf("got %q", got)
	}
}
