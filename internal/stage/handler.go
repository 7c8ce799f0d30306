package stage

import (
	"context"
	"log/slog"
)

// Handler is the contract every pipeline step implements. Execute reads the
// keys it needs from in and returns only the keys it produced.
type Handler interface {
	Execute(ctx context.Context, in Context) (Context, error)
	HealthCheck(ctx context.Context) Health
}

// LoggerAware is implemented by handlers that accept a per-run logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Hydrator is implemented by handlers whose persisted artifacts can be
// reloaded, so a run can resume after the step without re-executing it.
type Hydrator interface {
	Hydrate(ctx context.Context) (Context, error)
}

// Descriptor names a step. Requires lists the context keys the step expects;
// the orchestrator only warns when they are absent.
type Descriptor struct {
	Agent    string
	Name     string
	Requires []string
}
