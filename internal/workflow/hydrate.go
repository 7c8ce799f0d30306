package workflow

import (
	"context"
	"errors"
	"os"

	"newsreel/internal/logging"
	"newsreel/internal/services"
	"newsreel/internal/stage"
)

// Hydrate reloads the persisted artifacts of every step before start and
// merges them in pipeline order. Steps whose artifacts are absent are
// skipped with a warning; the partial run then decides whether it can
// proceed.
func (m *Manager) Hydrate(ctx context.Context, start string) (stage.Context, error) {
	idx, err := m.indexOf(start)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, m.logger)
	hydrated := stage.Context{}
	for _, binding := range m.bindings[:idx] {
		name := binding.Descriptor.Name
		hydrator, ok := binding.Stage.(stage.Hydrator)
		if !ok {
			logger.Debug("step has no persisted artifacts", logging.String("step", name))
			continue
		}
		out, err := hydrator.Hydrate(services.WithStage(ctx, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, services.ErrMissingInput) {
				logging.WarnWithContext(logger, "artifacts missing, step not hydrated", "hydrate_missing",
					logging.String("step", name),
					logging.Error(err),
					logging.String(logging.FieldImpact, "later steps may lack inputs"),
				)
				continue
			}
			return nil, err
		}
		hydrated = hydrated.Merge(out)
		logger.Info("step hydrated",
			logging.String(logging.FieldEventType, "step_hydrated"),
			logging.String("step", name),
			logging.Int("keys", len(out)),
		)
	}
	return hydrated, nil
}
