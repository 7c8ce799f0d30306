// Package workflow sequences the pipeline steps.
//
// A Manager holds an ordered list of bindings (descriptor plus handler) fixed
// at construction. RunFull executes every step, RunPartial starts at a named
// step and RunSingle executes one step without merging. After each step the
// step's output is merged into the running context, so later steps see every
// earlier artifact; a failing step stops the run and is recorded in the
// RunResult. Nothing is rolled back.
//
// Around the steps the manager assigns a run id, holds an exclusive lock on
// the output tree, writes a per-run log file, records run history and
// publishes completion or failure notifications. Hydrate reloads the
// persisted artifacts of the steps before a start step so a partial run can
// resume without hand-supplied inputs.
package workflow
