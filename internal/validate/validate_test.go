package validate

import (
	"context"
	"errors"
	"testing"
)

func TestRoundTripByteEqual(t *testing.T) {
	t.Parallel()

	src := []byte("def f():\n    pass\n")
	res, err := RoundTrip(context.Background(), "python", src, src)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if !res.Valid || !res.ByteEqual {
		t.Errorf("result = %+v, want valid byte-equal", res)
	}
}

func TestRoundTripWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	original := []byte("def f(a,b):\n    return a+b\n")
	regen := []byte("def f(a, b):\n    return a + b\n")
	res, err := RoundTrip(context.Background(), "python", original, regen)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if !res.Valid {
		t.Errorf("want valid, diagnostics: %v", res.Diagnostics)
	}
	if res.ByteEqual {
		t.Error("inputs differ, byte_equal should be false")
	}
}

func TestRoundTripIgnoresComments(t *testing.T) {
	t.Parallel()

	original := []byte("def f():\n    # inline note\n    return 1\n")
	regen := []byte("def f():\n    return 1\n")
	res, err := RoundTrip(context.Background(), "python", original, regen)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if !res.Valid {
		t.Errorf("comments are trivia, want valid; diagnostics: %v", res.Diagnostics)
	}
}

func TestRoundTripDetectsRename(t *testing.T) {
	t.Parallel()

	original := []byte("def alpha():\n    pass\n")
	regen := []byte("def beta():\n    pass\n")
	res, err := RoundTrip(context.Background(), "python", original, regen)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if res.Valid {
		t.Error("rename must fail equivalence")
	}
	if len(res.Diagnostics) == 0 {
		t.Error("expected diagnostics")
	}
}

func TestRoundTripDetectsDroppedStatement(t *testing.T) {
	t.Parallel()

	original := []byte("x = 1\ny = 2\n")
	regen := []byte("x = 1\n")
	res, err := RoundTrip(context.Background(), "python", original, regen)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if res.Valid {
		t.Error("dropped statement must fail equivalence")
	}
}

func TestRoundTripRust(t *testing.T) {
	t.Parallel()

	original := []byte("fn max(a: i32, b: i32) -> i32 {\n    if a > b { a } else { b }\n}\n")
	regen := []byte("fn max(a: i32, b: i32) -> i32 { if a > b { a } else { b } }\n")
	res, err := RoundTrip(context.Background(), "rust", original, regen)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if !res.Valid {
		t.Errorf("want valid, diagnostics: %v", res.Diagnostics)
	}
}

func TestCheckWrapsFailure(t *testing.T) {
	t.Parallel()

	err := Check(context.Background(), "python", []byte("x = 1\n"), []byte("x = 2\n"))
	if !errors.Is(err, ErrEquivalence) {
		t.Errorf("err = %v, want ErrEquivalence", err)
	}
	if err := Check(context.Background(), "python", []byte("x = 1\n"), []byte("x = 1\n")); err != nil {
		t.Errorf("Check on equal bytes: %v", err)
	}
}

func TestRoundTripUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	if _, err := RoundTrip(context.Background(), "cobol", []byte("a"), []byte("b")); err == nil {
		t.Error("expected error for unsupported language")
	}
}
