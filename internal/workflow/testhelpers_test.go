package workflow_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"newsreel/internal/config"
	"newsreel/internal/notifications"
	"newsreel/internal/stage"
	"newsreel/internal/testsupport"
	"newsreel/internal/workflow"
)

type fakeStage struct {
	name    string
	output  stage.Context
	err     error
	hydrate stage.Context

	mu     sync.Mutex
	inputs []stage.Context
}

func (f *fakeStage) Execute(_ context.Context, in stage.Context) (stage.Context, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in.Clone())
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.output.Clone(), nil
}

func (f *fakeStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func (f *fakeStage) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func (f *fakeStage) lastInput() stage.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

type hydratingStage struct {
	*fakeStage
}

func (h hydratingStage) Hydrate(context.Context) (stage.Context, error) {
	if h.hydrate == nil {
		return nil, fmt.Errorf("load artifacts: %w", os.ErrNotExist)
	}
	return h.hydrate.Clone(), nil
}

type publishedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type stubNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, publishedEvent{event: event, payload: payload})
	return nil
}

func (s *stubNotifier) kinds() []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.Event, len(s.events))
	for i, e := range s.events {
		out[i] = e.event
	}
	return out
}

func (s *stubNotifier) find(event notifications.Event) (notifications.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.event == event {
			return e.payload, true
		}
	}
	return nil, false
}

// pipeline binds one fake per step in the default order.
type pipeline struct {
	fetch, summarize, slides, images, narration, video *fakeStage
}

func newPipeline() *pipeline {
	return &pipeline{
		fetch:     &fakeStage{name: workflow.StepFetchNews, output: stage.Context{stage.KeyArticles: []string{"a"}, stage.KeyTotalArticles: 1}},
		summarize: &fakeStage{name: workflow.StepSummarize, output: stage.Context{stage.KeyReport: "# report", stage.KeyReportDate: "2026-10-15"}},
		slides:    &fakeStage{name: workflow.StepBuildSlides, output: stage.Context{stage.KeySlidesData: "deck", stage.KeySlideFile: "deck.md"}},
		images:    &fakeStage{name: workflow.StepGenerateImages, output: stage.Context{stage.KeySuccessCount: 3}},
		narration: &fakeStage{name: workflow.StepWriteNarration, output: stage.Context{stage.KeyScripts: []string{"s"}}},
		video:     &fakeStage{name: workflow.StepRenderVideo, output: stage.Context{stage.KeyVideoFile: "out.mp4"}},
	}
}

func (p *pipeline) set() workflow.StageSet {
	return workflow.StageSet{
		FetchNews:      p.fetch,
		Summarize:      p.summarize,
		BuildSlides:    p.slides,
		GenerateImages: p.images,
		WriteNarration: p.narration,
		RenderVideo:    p.video,
	}
}

func newManager(t *testing.T, set workflow.StageSet, opts ...workflow.Option) (*workflow.Manager, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	ids := 0
	base := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)
	ticks := 0
	defaults := []workflow.Option{
		workflow.WithNotifier(&stubNotifier{}),
		workflow.WithIDGenerator(func() string {
			ids++
			return "run-" + string(rune('0'+ids))
		}),
		workflow.WithClock(func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * time.Second)
		}),
	}
	return workflow.NewManager(cfg, nil, workflow.Bindings(set), append(defaults, opts...)...), cfg
}
