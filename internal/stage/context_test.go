package stage_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"newsreel/internal/stage"
)

func TestMergeIsUnionLastWriterWins(t *testing.T) {
	base := stage.Context{"a": 1, "b": "keep", "shared": "old"}
	update := stage.Context{"c": true, "shared": "new"}

	merged := base.Merge(update)

	want := stage.Context{"a": 1, "b": "keep", "c": true, "shared": "new"}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if base["shared"] != "old" || len(base) != 3 {
		t.Fatalf("merge mutated its receiver: %v", base)
	}
	if len(update) != 2 {
		t.Fatalf("merge mutated its argument: %v", update)
	}
}

func TestMergeNilSides(t *testing.T) {
	var empty stage.Context
	if got := empty.Merge(stage.Context{"x": 1}); got["x"] != 1 {
		t.Fatalf("unexpected merge result %v", got)
	}
	if got := (stage.Context{"x": 1}).Merge(nil); got["x"] != 1 {
		t.Fatalf("unexpected merge result %v", got)
	}
}

func TestMissing(t *testing.T) {
	ctx := stage.Context{stage.KeyReport: "text", stage.KeyArticles: nil}
	got := ctx.Missing([]string{stage.KeyReport, stage.KeyArticles, stage.KeySlidesData})
	want := []string{stage.KeyArticles, stage.KeySlidesData}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

type item struct {
	Title string `json:"title"`
	Rank  int    `json:"rank"`
}

type decodeTarget struct {
	Items    []item `json:"items"`
	HoursAgo int    `json:"hours_ago"`
	Render   *bool  `json:"render_video"`
}

func TestDecodeTypedAndGenericValues(t *testing.T) {
	typed := stage.Context{
		"items":     []item{{Title: "a", Rank: 1}},
		"hours_ago": 24,
		"unrelated": struct{}{},
	}
	generic := stage.Context{
		"items":     []any{map[string]any{"title": "a", "rank": float64(1)}},
		"hours_ago": float64(24),
	}

	fromTyped, err := stage.Decode[decodeTarget](typed)
	if err != nil {
		t.Fatalf("decode typed: %v", err)
	}
	fromGeneric, err := stage.Decode[decodeTarget](generic)
	if err != nil {
		t.Fatalf("decode generic: %v", err)
	}
	if diff := cmp.Diff(fromTyped, fromGeneric); diff != "" {
		t.Fatalf("typed and generic decode differ (-typed +generic):\n%s", diff)
	}
	if fromTyped.Render != nil {
		t.Fatal("absent optional key should stay nil")
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	if _, err := stage.Decode[decodeTarget](stage.Context{"hours_ago": "soon"}); err == nil {
		t.Fatal("expected decode error for mismatched type")
	}
}
