// Package preflight provides readiness checks for the filesystem paths,
// credentials and external services newsreel depends on.
//
// The CLI "newsreel status --preflight" prints RunAll's results. Each check
// is gated by its config toggle; disabled features are reported as skipped
// rather than failed.
package preflight
