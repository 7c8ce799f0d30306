package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/textutil"
)

// RunLogger creates a dedicated log file for each run under log_dir/runs.
type RunLogger struct {
	baseDir string
	level   string
	format  string
}

// NewRunLogger returns nil when no log directory is configured.
func NewRunLogger(cfg *config.Config) *RunLogger {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return nil
	}
	level := strings.TrimSpace(cfg.Logging.Level)
	if level == "" {
		level = "info"
	}
	return &RunLogger{
		baseDir: filepath.Join(cfg.Paths.LogDir, "runs"),
		level:   level,
		format:  "json",
	}
}

// Open creates the log file for runID and returns a handler writing to it.
func (r *RunLogger) Open(runID string, started time.Time) (string, slog.Handler, error) {
	if r == nil || strings.TrimSpace(r.baseDir) == "" {
		return "", nil, fmt.Errorf("run log directory not configured")
	}
	if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("ensure run log directory: %w", err)
	}
	path := filepath.Join(r.baseDir, r.filename(runID, started))
	handler, err := logging.NewHandler(logging.Options{
		Level:            r.level,
		Format:           r.format,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		return "", nil, err
	}
	return path, handler, nil
}

func (r *RunLogger) filename(runID string, started time.Time) string {
	timestamp := started.UTC().Format("20060102T150405")
	return fmt.Sprintf("%s-%s.log", timestamp, textutil.SanitizeToken(runID))
}
