package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/runstore"
	"newsreel/internal/services"
	"newsreel/internal/stage"
	"newsreel/internal/stageexec"
)

// RunFull executes every bound step in order.
func (m *Manager) RunFull(ctx context.Context, initial stage.Context) (*RunResult, error) {
	if len(m.bindings) == 0 {
		return nil, errors.New("no steps configured")
	}
	return m.runFrom(ctx, ModeFull, 0, initial)
}

// RunPartial executes the steps starting at start, which may be a step name
// or an agent id. Unknown names fail before anything runs.
func (m *Manager) RunPartial(ctx context.Context, start string, initial stage.Context) (*RunResult, error) {
	idx, err := m.indexOf(start)
	if err != nil {
		return nil, err
	}
	return m.runFrom(ctx, ModePartial, idx, initial)
}

// RunSingle executes exactly one step and returns its raw output without
// merging it into initial.
func (m *Manager) RunSingle(ctx context.Context, name string, initial stage.Context) (*RunResult, error) {
	idx, err := m.indexOf(name)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, ModeSingle, idx, idx+1, initial)
}

func (m *Manager) runFrom(ctx context.Context, mode Mode, start int, initial stage.Context) (*RunResult, error) {
	return m.execute(ctx, mode, start, len(m.bindings), initial)
}

func (m *Manager) execute(ctx context.Context, mode Mode, start, end int, initial stage.Context) (*RunResult, error) {
	unlock, err := m.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	runID := m.newID()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithRequestID(ctx, runID)

	logger := m.logger
	logPath := ""
	if m.runLog != nil {
		path, handler, err := m.runLog.Open(runID, m.now())
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, logger), "run log unavailable", "run_log_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run is only logged to the main log"),
			)
		} else {
			logger = logging.TeeLogger(logger, handler)
			logPath = path
		}
	}
	runLogger := logging.WithContext(ctx, logger)

	startName := m.bindings[start].Descriptor.Name
	result := &RunResult{
		RunID:          runID,
		Mode:           mode,
		Results:        make(map[string]stage.Context),
		CompletedSteps: []string{},
		LogPath:        logPath,
		Summary:        Summary{StartTime: m.now()},
	}

	m.beginHistory(ctx, runLogger, runID, mode, startName)
	m.notifyStarted(ctx, runLogger, result, end-start)

	runLogger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("mode", string(mode)),
		logging.String("start_step", startName),
		logging.Int("steps", end-start),
	)

	current := initial.Clone()
	if current == nil {
		current = stage.Context{}
	}
	for i := start; i < end; i++ {
		binding := m.bindings[i]
		if err := ctx.Err(); err != nil {
			m.fail(result, binding.Descriptor.Name, err)
			break
		}
		out, err := stageexec.Run(ctx, stageexec.Options{
			Logger:     logger,
			Recorder:   m.recorder(),
			RunID:      runID,
			Position:   i,
			Descriptor: binding.Descriptor,
			Handler:    binding.Stage,
			Input:      current,
		})
		if err != nil {
			m.fail(result, binding.Descriptor.Name, err)
			break
		}
		result.Results[binding.Descriptor.Name] = out.Output
		result.CompletedSteps = append(result.CompletedSteps, binding.Descriptor.Name)
		if mode == ModeSingle {
			current = out.Output
		} else {
			current = current.Merge(out.Output)
		}
	}
	result.Context = current

	finished := m.now()
	result.Summary.EndTime = finished
	result.Summary.DurationSeconds = finished.Sub(result.Summary.StartTime).Seconds()
	result.Summary.CompletedSteps = len(result.CompletedSteps)

	m.logOutcome(runLogger, result)
	m.finishHistory(ctx, runLogger, result)
	m.notifyOutcome(ctx, runLogger, result, end-start)
	return result, nil
}

func (m *Manager) fail(result *RunResult, step string, err error) {
	details := services.Details(err)
	message := strings.TrimSpace(err.Error())
	kind := string(details.Kind)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = string(services.ErrorKindTimeout)
	case errors.Is(err, context.Canceled):
		kind = "canceled"
	}
	result.Error = &RunError{Step: step, Message: message, Kind: kind}
}

func (m *Manager) logOutcome(logger *slog.Logger, result *RunResult) {
	attrs := []logging.Attr{
		logging.String("mode", string(result.Mode)),
		logging.Int("completed_steps", result.Summary.CompletedSteps),
		logging.Duration("duration", time.Duration(result.Summary.DurationSeconds*float64(time.Second))),
	}
	if result.Error != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed", append(attrs,
			logging.String("failed_step", result.Error.Step),
			logging.String(logging.FieldErrorKind, result.Error.Kind),
			logging.String("error_message", result.Error.Message),
			logging.String(logging.FieldErrorHint, fmt.Sprintf("fix the cause and rerun with --start-from %s --resume", result.Error.Step)),
		)...)
		return
	}
	logger.Info("run completed", logging.Args(append(attrs,
		logging.String(logging.FieldEventType, "run_complete"))...)...)
}

func (m *Manager) recorder() stageexec.Recorder {
	if m.history == nil {
		return nil
	}
	return m.history
}

func (m *Manager) beginHistory(ctx context.Context, logger *slog.Logger, runID string, mode Mode, start string) {
	if m.history == nil {
		return
	}
	err := m.history.Begin(ctx, runstore.Run{
		ID:        runID,
		Mode:      string(mode),
		StartStep: start,
		StartedAt: m.now(),
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record run start", "run_history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history is incomplete for this run"),
		)
	}
}

func (m *Manager) finishHistory(ctx context.Context, logger *slog.Logger, result *RunResult) {
	if m.history == nil {
		return
	}
	outcome := runstore.Outcome{
		Status:          runstore.StatusCompleted,
		FinishedAt:      result.Summary.EndTime,
		DurationSeconds: result.Summary.DurationSeconds,
		CompletedSteps:  result.CompletedSteps,
		VideoURL:        videoURL(result.Context),
	}
	if result.Error != nil {
		outcome.Status = runstore.StatusFailed
		outcome.FailedStep = result.Error.Step
		outcome.ErrorKind = result.Error.Kind
		outcome.ErrorMessage = result.Error.Message
	}
	// The caller's context may already be canceled; the outcome still needs
	// to land.
	if err := m.history.Finish(context.WithoutCancel(ctx), result.RunID, outcome); err != nil {
		logging.WarnWithContext(logger, "failed to record run outcome", "run_history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run remains marked running until the next start"),
		)
	}
}

func videoURL(ctx stage.Context) string {
	if ctx == nil {
		return ""
	}
	url, _ := ctx[stage.KeyVideoURL].(string)
	return strings.TrimSpace(url)
}
