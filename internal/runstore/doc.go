// Package runstore keeps a history of pipeline runs in SQLite.
//
// Each run gets one row in runs (mode, start step, outcome, timing) and one
// row per executed step in run_steps. The CLI reads it for `newsreel runs`
// and the orchestrator writes it as a run progresses. Rows left in the
// running state by a crashed process are marked interrupted on open.
package runstore
