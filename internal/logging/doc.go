// Package logging assembles structured slog loggers and formatting helpers used
// across the pipeline.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log lines
// with run IDs, stage names, and correlation IDs. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
