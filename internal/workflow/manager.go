package workflow

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/runstore"
)

// Manager runs the configured steps.
type Manager struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	history  *runstore.Store
	runLog   *RunLogger
	lockPath string

	bindings []Binding

	now   func() time.Time
	newID func() string
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithNotifier overrides the notification service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithHistory records runs and steps in store.
func WithHistory(store *runstore.Store) Option {
	return func(m *Manager) {
		m.history = store
	}
}

// WithRunLogger writes a dedicated log file per run.
func WithRunLogger(l *RunLogger) Option {
	return func(m *Manager) {
		m.runLog = l
	}
}

// WithLockPath overrides the run lock location. An empty path disables
// locking.
func WithLockPath(path string) Option {
	return func(m *Manager) {
		m.lockPath = path
	}
}

// WithClock overrides time.Now (used in tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides run id generation (used in tests).
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// NewManager constructs a manager with the given bindings.
func NewManager(cfg *config.Config, logger *slog.Logger, bindings []Binding, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifications.NewService(cfg),
		bindings: append([]Binding(nil), bindings...),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	if cfg != nil {
		m.lockPath = cfg.LockPath()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
