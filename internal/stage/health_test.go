package stage_test

import (
	"errors"
	"testing"

	"newsreel/internal/stage"
)

func TestFromProbe(t *testing.T) {
	if got := stage.FromProbe("summarize", nil); !got.Ready || got.Detail != "" {
		t.Fatalf("nil probe = %+v, want ready", got)
	}
	got := stage.FromProbe("summarize", errors.New("llm request: http 401: invalid key\n{\"error\":\"details\"}"))
	if got.Ready {
		t.Fatal("expected not ready")
	}
	if got.Detail != "llm request: http 401: invalid key" {
		t.Fatalf("detail = %q", got.Detail)
	}
}
