// Package stageexec runs one pipeline step with the logging, timing and
// history bookkeeping every orchestrator mode shares.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/runstore"
	"newsreel/internal/services"
	"newsreel/internal/stage"
)

// Recorder persists per-step results. *runstore.Store satisfies it.
type Recorder interface {
	RecordStep(ctx context.Context, runID string, step runstore.Step) error
}

// Options controls a single step execution.
type Options struct {
	Logger     *slog.Logger
	Recorder   Recorder
	RunID      string
	Position   int
	Descriptor stage.Descriptor
	Handler    stage.Handler
	Input      stage.Context
}

// Result is what one step produced.
type Result struct {
	Output   stage.Context
	Duration time.Duration
}

// Run executes the step. Missing required keys are logged, not enforced.
// The handler error is returned unchanged.
func Run(ctx context.Context, opts Options) (Result, error) {
	name := opts.Descriptor.Name
	if opts.Handler == nil {
		return Result{}, fmt.Errorf("stage handler unavailable: %s", name)
	}

	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if missing := opts.Input.Missing(opts.Descriptor.Requires); len(missing) > 0 {
		logging.WarnWithContext(stageLogger, "required context keys missing",
			"stage_inputs_missing",
			logging.String("missing_keys", strings.Join(missing, ",")),
			logging.String(logging.FieldErrorHint, "run the earlier steps, pass --resume, or supply the artifacts with flags"),
			logging.String(logging.FieldImpact, "stage may fail or fall back to persisted files"),
		)
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("agent", opts.Descriptor.Agent),
		logging.Int("position", opts.Position+1),
		logging.Int("input_keys", len(opts.Input)),
	)

	input := opts.Input.Clone()
	if input == nil {
		input = stage.Context{}
	}
	started := time.Now()
	output, err := opts.Handler.Execute(stageCtx, input)
	elapsed := time.Since(started)

	if err != nil {
		details := services.Details(err)
		message := strings.TrimSpace(details.Message)
		if message == "" {
			message = strings.TrimSpace(err.Error())
		}
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.String("error_message", message),
			logging.Duration("duration", elapsed),
			logging.Error(err),
		)
		record(stageCtx, stageLogger, opts, runstore.Step{
			Position:        opts.Position,
			Name:            name,
			Status:          runstore.StatusFailed,
			DurationSeconds: elapsed.Seconds(),
			ErrorKind:       string(details.Kind),
			ErrorMessage:    message,
		})
		return Result{Duration: elapsed}, err
	}

	if output == nil {
		output = stage.Context{}
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", elapsed),
		logging.String("output_keys", strings.Join(output.Keys(), ",")),
	)
	record(stageCtx, stageLogger, opts, runstore.Step{
		Position:        opts.Position,
		Name:            name,
		Status:          runstore.StatusCompleted,
		DurationSeconds: elapsed.Seconds(),
	})
	return Result{Output: output, Duration: elapsed}, nil
}

func record(ctx context.Context, logger *slog.Logger, opts Options, step runstore.Step) {
	if opts.Recorder == nil || opts.RunID == "" {
		return
	}
	if err := opts.Recorder.RecordStep(ctx, opts.RunID, step); err != nil {
		logging.WarnWithContext(logger, "failed to record step history", "run_history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history is incomplete for this run"),
		)
	}
}
