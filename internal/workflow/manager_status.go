package workflow

import (
	"context"

	"newsreel/internal/logging"
	"newsreel/internal/runstore"
	"newsreel/internal/stage"
)

// StepStatus is one row of the status table.
type StepStatus struct {
	Descriptor stage.Descriptor
	Health     stage.Health
}

// StatusSummary reports the bound steps, their health and recent runs.
type StatusSummary struct {
	Steps      []StepStatus
	RecentRuns []runstore.Run
}

// Status checks every step's health and reads up to recent runs of history.
func (m *Manager) Status(ctx context.Context, recent int) StatusSummary {
	summary := StatusSummary{Steps: make([]StepStatus, 0, len(m.bindings))}
	for _, b := range m.bindings {
		health := stage.Unhealthy(b.Descriptor.Name, "handler unavailable")
		if b.Stage != nil {
			health = b.Stage.HealthCheck(ctx)
		}
		summary.Steps = append(summary.Steps, StepStatus{Descriptor: b.Descriptor, Health: health})
	}
	if m.history != nil && recent > 0 {
		runs, err := m.history.Recent(ctx, recent)
		if err != nil {
			m.logger.Warn("failed to read run history",
				logging.Error(err),
				logging.String(logging.FieldEventType, "run_history_read_failed"),
				logging.String(logging.FieldImpact, "recent runs omitted from status"),
			)
		}
		summary.RecentRuns = runs
	}
	return summary
}
