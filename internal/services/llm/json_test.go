package llm

import (
	"strings"
	"testing"
)

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"direct", `{"ok":true}`, false},
		{"fenced", "```json\n{\"ok\":true}\n```", false},
		{"prose wrapped", "Sure! {\"ok\":true} Hope that helps.", false},
		{"empty", "  ", true},
		{"garbage", "no json here", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parsed struct {
				OK bool `json:"ok"`
			}
			err := DecodeLLMJSON(tt.content, &parsed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !parsed.OK {
				t.Fatal("expected ok=true")
			}
		})
	}
}

func TestExtractFencedBlock(t *testing.T) {
	content := "説明です\n```yaml\ntopic: AI\nslides: []\n```\n以上"
	body, ok := ExtractFencedBlock(content, "YAML")
	if !ok || body != "topic: AI\nslides: []" {
		t.Fatalf("body=%q ok=%v", body, ok)
	}

	body, ok = ExtractFencedBlock("```\nplain\n```", "yaml")
	if !ok || body != "plain" {
		t.Fatalf("untagged fallback: body=%q ok=%v", body, ok)
	}

	if _, ok := ExtractFencedBlock("no fences", "yaml"); ok {
		t.Fatal("expected no block")
	}
}

func TestSummarizePayloadSnippet(t *testing.T) {
	if got := summarizePayloadSnippet(""); got != "<empty>" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("a ", 200)
	got := summarizePayloadSnippet(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 163 {
		t.Fatalf("unexpected snippet length %d", len([]rune(got)))
	}
}
