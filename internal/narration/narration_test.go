package narration

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newsreel/internal/services"
	"newsreel/internal/slides"
	"newsreel/internal/stage"
	"newsreel/internal/testsupport"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func TestParseMarpRenderedDeck(t *testing.T) {
	deck := slides.Deck{Topic: "t", Slides: []slides.Slide{
		{Title: "📊 Market", Content: "- GPUs up\n- ![chart](img.png)"},
		{Title: "", Content: ""},
		{Title: "Summary", Content: "short wrap"},
	}}
	doc, err := slides.RenderMarp(deck, "default", "bg.png")
	if err != nil {
		t.Fatalf("RenderMarp: %v", err)
	}
	got := ParseMarp(doc)
	want := []Slide{
		{Index: 1, Title: "Market", Content: "- GPUs up\n- ![chart](img.png)"},
		{Index: 2, Title: "Summary", Content: "short wrap"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("slides mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMarpSkipsStyleAndImages(t *testing.T) {
	doc := "marp: true\n---\n<style>\nsection { color: red; }\n</style>\n# Title\n![bg](x.png)\n<!-- note -->\nBody line\n---\n\n---\n# Only title\n"
	got := ParseMarp(doc)
	want := []Slide{
		{Index: 1, Title: "Title", Content: "Body line"},
		{Index: 2, Title: "Only title"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("slides mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanLeadIns(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     string
		residual bool
	}{
		{name: "conjunction", in: "それでは、市場を見ていきましょう。GPU需要が伸びています。", want: "GPU需要が伸びています。"},
		{name: "slide reference", in: "このスライドでは決算を扱います。\n売上は過去最高でした。", want: "売上は過去最高でした。"},
		{name: "meta announcement", in: "原稿を作成しました。\n半導体株が上昇しました。", want: "半導体株が上昇しました。"},
		{name: "stacked", in: "では、始めます。次に、見ていきます。本題です。", want: "次に、見ていきます。本題です。", residual: true},
		{name: "content after lead-in", in: "今日では、AI需要が拡大しています。ここから先、半導体各社の業績が注目されます。", want: "ここから先、半導体各社の業績が注目されます。", residual: true},
		{name: "english", in: "Here is the script:\nIn this slide we cover chips.\nChip demand keeps rising.", want: "Chip demand keeps rising."},
		{name: "clean", in: "半導体株が上昇しました。", want: "半導体株が上昇しました。"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanLeadIns(tt.in)
			if got != tt.want {
				t.Fatalf("CleanLeadIns(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !tt.residual && HasLeadIn(got) {
				t.Fatalf("cleaned script still has a lead-in: %q", got)
			}
		})
	}
}

func TestExecuteKeepsContentAfterLeadIn(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	slideFile := cfg.Paths.PresentationsDir + "/deck_slide.md"
	testsupport.WriteBytes(t, slideFile, []byte("# One\nfirst\n"))
	stub := &testsupport.StubLLM{Respond: func(int, string, string) (string, error) {
		return "今日では、AI需要が拡大しています。ここから先、半導体各社の業績が注目されます。", nil
	}}
	w := NewWriter(cfg, stub, nil, WithSleeper((&sleepRecorder{}).sleep))

	out, err := w.Execute(context.Background(), stage.Context{stage.KeySlideFile: slideFile})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []Script{{Index: 1, Title: "One", Script: "ここから先、半導体各社の業績が注目されます。"}}
	if diff := cmp.Diff(want, out[stage.KeyScripts]); diff != "" {
		t.Fatalf("scripts mismatch (-want +got):\n%s", diff)
	}
	if n := len(stub.Prompts()); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestExecuteRetriesEmptyNarration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	slideFile := cfg.Paths.PresentationsDir + "/deck_slide.md"
	testsupport.WriteBytes(t, slideFile, []byte("# One\nfirst\n"))
	stub := &testsupport.StubLLM{Respond: func(call int, _, _ string) (string, error) {
		if call == 0 {
			return "原稿を作成しました。", nil
		}
		return "一番目の話題です。", nil
	}}
	w := NewWriter(cfg, stub, nil, WithSleeper((&sleepRecorder{}).sleep))

	out, err := w.Execute(context.Background(), stage.Context{stage.KeySlideFile: slideFile})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out[stage.KeyScripts].([]Script)[0].Script; got != "一番目の話題です。" {
		t.Fatalf("script = %q", got)
	}
	if n := len(stub.Prompts()); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestExecuteDoesNotRetryConfigurationErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	slideFile := cfg.Paths.PresentationsDir + "/deck_slide.md"
	testsupport.WriteBytes(t, slideFile, []byte("# One\nfirst\n"))
	stub := &testsupport.StubLLM{Respond: func(int, string, string) (string, error) {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete text", "api key required", nil)
	}}
	rec := &sleepRecorder{}
	w := NewWriter(cfg, stub, nil, WithSleeper(rec.sleep))

	_, err := w.Execute(context.Background(), stage.Context{stage.KeySlideFile: slideFile})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if n := len(stub.Prompts()); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("slept %v before giving up", rec.delays)
	}
}

func TestExecuteFromSlideFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Narration.IntervalSeconds = 2
	cfg.Narration.RetryDelaySeconds = 10
	cfg.Narration.RateLimitDelaySeconds = 45
	slideFile := cfg.Paths.PresentationsDir + "/deck_slide.md"
	testsupport.WriteBytes(t, slideFile, []byte("---\nmarp: true\n---\n# One\nfirst\n---\n# Two\nsecond\n"))

	stub := &testsupport.StubLLM{Respond: func(call int, _, user string) (string, error) {
		switch call {
		case 0:
			return "", services.Wrap(services.ErrExternalService, "llm", "complete text", "gemini", errors.New("429 RESOURCE_EXHAUSTED"))
		case 1:
			return "", services.Wrap(services.ErrExternalService, "llm", "complete text", "gemini", errors.New("503 backend error"))
		}
		if strings.Contains(user, "タイトル: Two") {
			return "続いて、二枚目です。二番目の話題です。", nil
		}
		return "一番目の話題です。", nil
	}}
	rec := &sleepRecorder{}
	w := NewWriter(cfg, stub, nil, WithSleeper(rec.sleep))

	out, err := w.Execute(context.Background(), stage.Context{stage.KeySlideFile: slideFile})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []Script{
		{Index: 1, Title: "One", Script: "一番目の話題です。"},
		{Index: 2, Title: "Two", Script: "二番目の話題です。"},
	}
	if diff := cmp.Diff(want, out[stage.KeyScripts]); diff != "" {
		t.Fatalf("scripts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{45 * time.Second, 10 * time.Second, 2 * time.Second}, rec.delays); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stub.Prompts()[0].User, "スライド番号: 1 / 2") {
		t.Fatalf("prompt missing slide position: %q", stub.Prompts()[0].User)
	}

	text, err := os.ReadFile(cfg.Paths.OutputDir + "/scripts/script.txt")
	if err != nil {
		t.Fatalf("read script.txt: %v", err)
	}
	if !strings.Contains(string(text), "=== スライド 2: Two ===\n\n二番目の話題です。") {
		t.Fatalf("unexpected script.txt:\n%s", text)
	}

	hydrated, err := w.Hydrate(context.Background())
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if diff := cmp.Diff(out, hydrated); diff != "" {
		t.Fatalf("hydrated mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRetriesExhausted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	slideFile := cfg.Paths.PresentationsDir + "/deck_slide.md"
	testsupport.WriteBytes(t, slideFile, []byte("# One\nfirst\n"))
	stub := &testsupport.StubLLM{Respond: func(int, string, string) (string, error) {
		return "", services.Wrap(services.ErrExternalService, "llm", "complete text", "gemini", errors.New("boom"))
	}}
	w := NewWriter(cfg, stub, nil, WithSleeper((&sleepRecorder{}).sleep))

	_, err := w.Execute(context.Background(), stage.Context{stage.KeySlideFile: slideFile})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
	if n := len(stub.Prompts()); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
}

func TestExecuteUsesScriptNotes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &testsupport.StubLLM{}
	w := NewWriter(cfg, stub, nil)

	out, err := w.Execute(context.Background(), stage.Context{
		stage.KeyScriptNotes: []map[string]any{{"title": "A", "script": "a"}, {"index": 5, "title": "B", "script": "b"}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(stub.Prompts()) != 0 {
		t.Fatal("model called although script_notes were supplied")
	}
	scripts := out[stage.KeyScripts].([]Script)
	if scripts[0].Index != 1 || scripts[1].Index != 5 || out[stage.KeyTotalSlides] != 2 {
		t.Fatalf("scripts = %+v", scripts)
	}
}

func TestExecuteMissingInput(t *testing.T) {
	w := NewWriter(testsupport.NewConfig(t), &testsupport.StubLLM{}, nil)
	if _, err := w.Execute(context.Background(), nil); !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("err = %v, want ErrMissingInput", err)
	}
	_, err := w.Execute(context.Background(), stage.Context{stage.KeySlideFile: "/nonexistent/slide.md"})
	if !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("missing slide file err = %v, want ErrMissingInput", err)
	}
}
