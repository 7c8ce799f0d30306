package workflow

import (
	"errors"
	"time"

	"newsreel/internal/stage"
)

// Step names in pipeline order.
const (
	StepFetchNews      = "fetch-news"
	StepSummarize      = "summarize"
	StepBuildSlides    = "build-slides"
	StepGenerateImages = "generate-images"
	StepWriteNarration = "write-narration"
	StepRenderVideo    = "render-video"
	StepUploadVideo    = "upload-video"
)

// Mode labels how a run was started.
type Mode string

const (
	ModeFull    Mode = "full"
	ModePartial Mode = "partial"
	ModeSingle  Mode = "single"
)

// ErrUnknownStep is returned when a step or agent name matches no binding.
var ErrUnknownStep = errors.New("unknown step")

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another run is in progress")

// Binding pairs a step descriptor with its handler.
type Binding struct {
	Descriptor stage.Descriptor
	Stage      stage.Handler
}

// StageSet bundles the concrete handlers in pipeline order. Upload is
// optional and only bound when non-nil.
type StageSet struct {
	FetchNews      stage.Handler
	Summarize      stage.Handler
	BuildSlides    stage.Handler
	GenerateImages stage.Handler
	WriteNarration stage.Handler
	RenderVideo    stage.Handler
	UploadVideo    stage.Handler
}

// RunResult is the outcome of one orchestrator call.
type RunResult struct {
	RunID          string                   `json:"run_id"`
	Mode           Mode                     `json:"mode"`
	Results        map[string]stage.Context `json:"results"`
	CompletedSteps []string                 `json:"completed_steps"`
	Error          *RunError                `json:"error,omitempty"`
	Summary        Summary                  `json:"summary"`
	LogPath        string                   `json:"log_path,omitempty"`

	// Context is the accumulated context after the last step that ran. For
	// single-step runs it is the step's raw output.
	Context stage.Context `json:"-"`
}

// Failed reports whether a step failed.
func (r *RunResult) Failed() bool { return r != nil && r.Error != nil }

// RunError records the step that stopped a run.
type RunError struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Summary carries run timing. CompletedSteps counts the steps that produced
// a result.
type Summary struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	CompletedSteps  int       `json:"completed_steps"`
}
