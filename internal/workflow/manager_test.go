package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"newsreel/internal/notifications"
	"newsreel/internal/runstore"
	"newsreel/internal/services"
	"newsreel/internal/stage"
	"newsreel/internal/testsupport"
	"newsreel/internal/workflow"
)

func TestRunFullMergesEveryStep(t *testing.T) {
	p := newPipeline()
	mgr, _ := newManager(t, p.set())

	result, err := mgr.RunFull(context.Background(), stage.Context{stage.KeyHoursAgo: 24})
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if result.Failed() {
		t.Fatalf("unexpected failure: %+v", result.Error)
	}
	want := []string{
		workflow.StepFetchNews, workflow.StepSummarize, workflow.StepBuildSlides,
		workflow.StepGenerateImages, workflow.StepWriteNarration, workflow.StepRenderVideo,
	}
	if diff := cmp.Diff(want, result.CompletedSteps); diff != "" {
		t.Fatalf("completed steps mismatch (-want +got):\n%s", diff)
	}
	if result.Summary.CompletedSteps != 6 {
		t.Fatalf("summary completed = %d, want 6", result.Summary.CompletedSteps)
	}
	if result.Summary.DurationSeconds <= 0 || !result.Summary.EndTime.After(result.Summary.StartTime) {
		t.Fatalf("unexpected summary timing: %+v", result.Summary)
	}

	// Later steps see the initial context and every earlier output.
	in := p.video.lastInput()
	for _, key := range []string{stage.KeyHoursAgo, stage.KeyArticles, stage.KeyReport, stage.KeySlideFile, stage.KeyScripts} {
		if _, ok := in[key]; !ok {
			t.Fatalf("render-video input missing %q: %v", key, in.Keys())
		}
	}
	if result.Context[stage.KeyVideoFile] != "out.mp4" {
		t.Fatalf("final context missing video file: %v", result.Context)
	}
	if result.Results[workflow.StepSummarize][stage.KeyReport] != "# report" {
		t.Fatalf("per-step results missing summarize output: %v", result.Results)
	}
}

func TestRunFullStopsAtFailingStep(t *testing.T) {
	p := newPipeline()
	p.summarize.err = services.Wrap(services.ErrExternalService, workflow.StepSummarize, "generate report", "llm unavailable", errors.New("503"))
	notifier := &stubNotifier{}
	mgr, _ := newManager(t, p.set(), workflow.WithNotifier(notifier))

	result, err := mgr.RunFull(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunFull returned error: %v", err)
	}
	if result.Error == nil || result.Error.Step != workflow.StepSummarize {
		t.Fatalf("expected summarize failure, got %+v", result.Error)
	}
	if result.Error.Kind != string(services.ErrorKindExternalService) {
		t.Fatalf("error kind = %q", result.Error.Kind)
	}
	if !strings.Contains(result.Error.Message, "llm unavailable") {
		t.Fatalf("error message = %q", result.Error.Message)
	}
	if diff := cmp.Diff([]string{workflow.StepFetchNews}, result.CompletedSteps); diff != "" {
		t.Fatalf("completed steps mismatch (-want +got):\n%s", diff)
	}
	for _, later := range []*fakeStage{p.slides, p.images, p.narration, p.video} {
		if later.calls() != 0 {
			t.Fatalf("%s ran after failure", later.name)
		}
	}
	if _, ok := result.Results[workflow.StepSummarize]; ok {
		t.Fatal("failed step should not have a result")
	}
	payload, ok := notifier.find(notifications.EventRunFailed)
	if !ok || payload["step"] != workflow.StepSummarize {
		t.Fatalf("expected run failed notification, got %v", notifier.kinds())
	}
	if _, ok := notifier.find(notifications.EventRunCompleted); ok {
		t.Fatal("completed notification sent for failed run")
	}
}

func TestRunPartialSkipsEarlierSteps(t *testing.T) {
	p := newPipeline()
	mgr, _ := newManager(t, p.set())

	for _, start := range []string{workflow.StepBuildSlides, "slide_creator"} {
		result, err := mgr.RunPartial(context.Background(), start, stage.Context{stage.KeyReport: "# supplied"})
		if err != nil {
			t.Fatalf("RunPartial(%s): %v", start, err)
		}
		if result.Mode != workflow.ModePartial {
			t.Fatalf("mode = %s", result.Mode)
		}
		if result.CompletedSteps[0] != workflow.StepBuildSlides || len(result.CompletedSteps) != 4 {
			t.Fatalf("completed steps = %v", result.CompletedSteps)
		}
	}
	if p.fetch.calls() != 0 || p.summarize.calls() != 0 {
		t.Fatal("partial run invoked earlier steps")
	}
	if got := p.slides.lastInput()[stage.KeyReport]; got != "# supplied" {
		t.Fatalf("build-slides saw report %v", got)
	}
}

func TestUnknownStepFailsBeforeRunning(t *testing.T) {
	p := newPipeline()
	mgr, _ := newManager(t, p.set())

	if _, err := mgr.RunPartial(context.Background(), "nope", nil); !errors.Is(err, workflow.ErrUnknownStep) {
		t.Fatalf("RunPartial err = %v, want ErrUnknownStep", err)
	}
	if _, err := mgr.RunSingle(context.Background(), "nope", nil); !errors.Is(err, workflow.ErrUnknownStep) {
		t.Fatalf("RunSingle err = %v, want ErrUnknownStep", err)
	}
	if _, err := mgr.Hydrate(context.Background(), "nope"); !errors.Is(err, workflow.ErrUnknownStep) {
		t.Fatalf("Hydrate err = %v, want ErrUnknownStep", err)
	}
	if p.fetch.calls()+p.summarize.calls()+p.slides.calls() != 0 {
		t.Fatal("steps ran for unknown name")
	}
}

func TestRunSingleReturnsRawOutput(t *testing.T) {
	p := newPipeline()
	mgr, _ := newManager(t, p.set())

	initial := stage.Context{stage.KeyReport: "# supplied", "extra": true}
	result, err := mgr.RunSingle(context.Background(), "summarizer", initial)
	if err != nil {
		t.Fatalf("RunSingle: %v", err)
	}
	if diff := cmp.Diff(p.summarize.output, result.Context); diff != "" {
		t.Fatalf("raw output mismatch (-want +got):\n%s", diff)
	}
	if _, ok := result.Context["extra"]; ok {
		t.Fatal("single run merged the initial context")
	}
	if _, ok := initial[stage.KeyReportDate]; ok {
		t.Fatal("single run mutated the caller's context")
	}
	if p.fetch.calls() != 0 || p.slides.calls() != 0 {
		t.Fatal("single run invoked other steps")
	}
}

func TestRunDoesNotMutateInitialContext(t *testing.T) {
	p := newPipeline()
	mgr, _ := newManager(t, p.set())
	initial := stage.Context{stage.KeyHoursAgo: 12}

	if _, err := mgr.RunFull(context.Background(), initial); err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if len(initial) != 1 {
		t.Fatalf("initial context mutated: %v", initial)
	}
}

func TestHydrateMergesEarlierArtifacts(t *testing.T) {
	p := newPipeline()
	p.fetch.hydrate = stage.Context{stage.KeyArticles: []string{"persisted"}}
	p.summarize.hydrate = nil
	p.slides.hydrate = stage.Context{stage.KeySlideFile: "saved.md"}
	set := p.set()
	set.FetchNews = hydratingStage{p.fetch}
	set.Summarize = hydratingStage{p.summarize}
	set.BuildSlides = hydratingStage{p.slides}
	mgr, _ := newManager(t, set)

	got, err := mgr.Hydrate(context.Background(), workflow.StepGenerateImages)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	want := stage.Context{
		stage.KeyArticles:  []string{"persisted"},
		stage.KeySlideFile: "saved.md",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hydrated context mismatch (-want +got):\n%s", diff)
	}
	if p.fetch.calls() != 0 {
		t.Fatal("hydrate executed a step")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	p := newPipeline()
	p.images.err = services.Wrap(services.ErrPartialBatch, workflow.StepGenerateImages, "generate", "no images", nil)
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRunStore(t, cfg)
	mgr, _ := newManager(t, p.set(), workflow.WithHistory(store))

	result, err := mgr.RunFull(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	run, err := store.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != runstore.StatusFailed || run.FailedStep != workflow.StepGenerateImages {
		t.Fatalf("unexpected run row: %+v", run)
	}
	if diff := cmp.Diff(result.CompletedSteps, run.CompletedSteps); diff != "" {
		t.Fatalf("completed steps mismatch (-want +got):\n%s", diff)
	}
	steps, err := store.Steps(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if len(steps) != 4 {
		t.Fatalf("recorded %d steps, want 4", len(steps))
	}
	last := steps[len(steps)-1]
	if last.Status != runstore.StatusFailed || last.ErrorKind != string(services.ErrorKindPartialBatch) {
		t.Fatalf("unexpected last step: %+v", last)
	}

	summary := mgr.Status(context.Background(), 5)
	if len(summary.RecentRuns) != 1 || len(summary.Steps) != 6 {
		t.Fatalf("unexpected status: %+v", summary)
	}
	for _, s := range summary.Steps {
		if !s.Health.Ready {
			t.Fatalf("step %s not ready", s.Descriptor.Name)
		}
	}
}

func TestRunRejectedWhileLocked(t *testing.T) {
	p := newPipeline()
	mgr, cfg := newManager(t, p.set())
	if err := os.MkdirAll(filepath.Dir(cfg.LockPath()), 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	if _, err := mgr.RunFull(context.Background(), nil); !errors.Is(err, workflow.ErrRunInProgress) {
		t.Fatalf("RunFull err = %v, want ErrRunInProgress", err)
	}
	if p.fetch.calls() != 0 {
		t.Fatal("step ran while lock was held")
	}
}

func TestRunNotifiesReportAndCompletion(t *testing.T) {
	p := newPipeline()
	upload := &fakeStage{name: workflow.StepUploadVideo, output: stage.Context{
		stage.KeyVideoURL:   "https://www.youtube.com/watch?v=abc",
		stage.KeyVideoTitle: "Daily 2026-10-15",
	}}
	set := p.set()
	set.UploadVideo = upload
	notifier := &stubNotifier{}
	mgr, _ := newManager(t, set, workflow.WithNotifier(notifier))

	result, err := mgr.RunFull(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if len(result.CompletedSteps) != 7 {
		t.Fatalf("completed = %v", result.CompletedSteps)
	}
	want := []notifications.Event{
		notifications.EventRunStarted,
		notifications.EventRunCompleted,
		notifications.EventReportReady,
		notifications.EventVideoUploaded,
	}
	if diff := cmp.Diff(want, notifier.kinds()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	payload, _ := notifier.find(notifications.EventVideoUploaded)
	if payload["url"] != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("upload payload = %v", payload)
	}
}

func TestRunLoggerWritesPerRunFile(t *testing.T) {
	p := newPipeline()
	cfg := testsupport.NewConfig(t)
	mgr, _ := newManager(t, p.set(), workflow.WithRunLogger(workflow.NewRunLogger(cfg)))

	result, err := mgr.RunFull(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunFull: %v", err)
	}
	if !strings.HasPrefix(result.LogPath, filepath.Join(cfg.Paths.LogDir, "runs")) {
		t.Fatalf("log path = %q", result.LogPath)
	}
	data, err := os.ReadFile(result.LogPath)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(data), "stage_complete") || !strings.Contains(string(data), result.RunID) {
		t.Fatalf("run log missing stage events:\n%s", data)
	}
}

func TestBindingsSkipsNilUpload(t *testing.T) {
	bindings := workflow.Bindings(newPipeline().set())
	if len(bindings) != 6 {
		t.Fatalf("bindings = %d, want 6", len(bindings))
	}
	if bindings[0].Descriptor.Agent != "researcher" || bindings[5].Descriptor.Agent != "video_editor" {
		t.Fatalf("unexpected order: %+v", bindings)
	}
}
