package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/stage"
)

func (m *Manager) notifyStarted(ctx context.Context, logger *slog.Logger, result *RunResult, total int) {
	m.publish(ctx, logger, notifications.EventRunStarted, notifications.Payload{
		"run_id":      result.RunID,
		"mode":        string(result.Mode),
		"total_steps": total,
	})
}

func (m *Manager) notifyOutcome(ctx context.Context, logger *slog.Logger, result *RunResult, total int) {
	duration := time.Duration(result.Summary.DurationSeconds * float64(time.Second))
	if result.Error != nil {
		m.publish(ctx, logger, notifications.EventRunFailed, notifications.Payload{
			"run_id": result.RunID,
			"mode":   string(result.Mode),
			"step":   result.Error.Step,
			"error":  result.Error.Message,
		})
	} else {
		m.publish(ctx, logger, notifications.EventRunCompleted, notifications.Payload{
			"run_id":          result.RunID,
			"mode":            string(result.Mode),
			"completed_steps": result.Summary.CompletedSteps,
			"total_steps":     total,
			"duration":        duration,
		})
	}

	if out, ok := result.Results[StepSummarize]; ok {
		if report, _ := out[stage.KeyReport].(string); report != "" {
			date, _ := out[stage.KeyReportDate].(string)
			m.publish(ctx, logger, notifications.EventReportReady, notifications.Payload{
				"run_id": result.RunID,
				"title":  date,
				"report": report,
			})
		}
	}
	if out, ok := result.Results[StepUploadVideo]; ok {
		if url := videoURL(out); url != "" {
			title, _ := out[stage.KeyVideoTitle].(string)
			m.publish(ctx, logger, notifications.EventVideoUploaded, notifications.Payload{
				"run_id": result.RunID,
				"title":  title,
				"url":    url,
			})
		}
	}
}

func (m *Manager) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("run canceled, notification not sent", logging.String("event", string(event)))
			return
		}
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy topic or discord webhook settings"),
			logging.String(logging.FieldImpact, "no notification was delivered for this event"),
		)
	}
}
