package workflow_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"newsreel/internal/narration"
	"newsreel/internal/newsfetch"
	"newsreel/internal/slides"
	"newsreel/internal/stage"
	"newsreel/internal/summarize"
	"newsreel/internal/testsupport"
	"newsreel/internal/workflow"
)

const pipelineDeck = "```yaml\ntopic: Daily AI\nslides:\n  - title: Chips\n    content: GPU demand\n  - title: Cloud\n    content: Capex up\n  - title: Summary\n    content: Wrap\n```"

func TestSummarizeSlidesNarrationWithStubModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	now := func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }
	stub := &testsupport.StubLLM{Respond: func(_ int, _, user string) (string, error) {
		switch {
		case strings.Contains(user, "スライド番号"):
			title := user[strings.Index(user, "タイトル: ")+len("タイトル: "):]
			title = title[:strings.Index(title, "\n")]
			return fmt.Sprintf("それでは、%sについてご説明します。%sの動きが続いています。", title, title), nil
		case strings.Contains(user, "# Daily report"):
			return pipelineDeck, nil
		default:
			return "# Daily report\n\nGPU demand is strong.", nil
		}
	}}
	set := workflow.StageSet{
		Summarize:      summarize.NewSummarizerWithClock(cfg, stub, nil, now),
		BuildSlides:    slides.NewBuilderWithClock(cfg, stub, nil, now),
		WriteNarration: narration.NewWriter(cfg, stub, nil),
	}
	m := workflow.NewManager(cfg, nil, workflow.Bindings(set), workflow.WithNotifier(&stubNotifier{}))

	articles := []newsfetch.Article{{Source: "NVIDIA", Title: "New GPU", Summary: "fast"}}
	result, err := m.RunPartial(context.Background(), workflow.StepSummarize, stage.Context{stage.KeyArticles: articles})
	if err != nil {
		t.Fatalf("RunPartial: %v", err)
	}
	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Error)
	}

	scripts := result.Context[stage.KeyScripts].([]narration.Script)
	if len(scripts) != 3 {
		t.Fatalf("scripts = %d, want one per stub slide (3)", len(scripts))
	}
	for _, s := range scripts {
		if s.Script == "" || narration.HasLeadIn(s.Script) {
			t.Fatalf("script %d not cleaned: %q", s.Index, s.Script)
		}
	}
	if scripts[0].Script != "Chipsの動きが続いています。" {
		t.Fatalf("first script = %q", scripts[0].Script)
	}

	fullDeck, err := os.ReadFile(result.Context[stage.KeySlideFile].(string))
	if err != nil {
		t.Fatalf("read slide file: %v", err)
	}

	// Starting at build-slides with the same report text yields the same deck.
	partial, err := m.RunSingle(context.Background(), workflow.StepBuildSlides, stage.Context{stage.KeyReport: result.Context[stage.KeyReport]})
	if err != nil {
		t.Fatalf("RunSingle: %v", err)
	}
	partialDeck, err := os.ReadFile(partial.Context[stage.KeySlideFile].(string))
	if err != nil {
		t.Fatalf("read partial slide file: %v", err)
	}
	if string(partialDeck) != string(fullDeck) {
		t.Fatalf("slide files differ:\n%s\n---\n%s", fullDeck, partialDeck)
	}
}
