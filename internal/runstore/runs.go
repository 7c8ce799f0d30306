package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Begin records a new run in the running state.
func (s *Store) Begin(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, mode, start_step, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.StartStep, string(StatusRunning), run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordStep appends a step result to run id.
func (s *Store) RecordStep(ctx context.Context, runID string, step Step) error {
	_, err := s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO run_steps (run_id, position, step, status, duration_seconds, error_kind, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, step.Position, step.Name, string(step.Status), step.DurationSeconds, step.ErrorKind, step.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert run step: %w", err)
	}
	return nil
}

// Finish stores the outcome of run id.
func (s *Store) Finish(ctx context.Context, runID string, outcome Outcome) error {
	if outcome.FinishedAt.IsZero() {
		outcome.FinishedAt = time.Now()
	}
	completed := outcome.CompletedSteps
	if completed == nil {
		completed = []string{}
	}
	encoded, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("encode completed steps: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?,
		        duration_seconds = ?,
		        completed_steps = ?, failed_step = ?, error_kind = ?, error_message = ?, video_url = ?
		 WHERE id = ?`,
		string(outcome.Status), outcome.FinishedAt.UTC().Format(timeLayout),
		max(outcome.DurationSeconds, 0),
		string(encoded), outcome.FailedStep, outcome.ErrorKind, outcome.ErrorMessage, outcome.VideoURL,
		runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

// MarkInterrupted flips runs stuck in the running state (the process died
// mid-run) to interrupted and returns how many changed.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ? WHERE status = ?`,
		string(StatusInterrupted), string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const runColumns = `id, mode, start_step, status, started_at, COALESCE(finished_at, ''), duration_seconds,
	completed_steps, failed_step, error_kind, error_message, video_url`

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, err
}

// Steps returns the recorded steps of run id in execution order.
func (s *Store) Steps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, step, status, duration_seconds, error_kind, error_message
		 FROM run_steps WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var step Step
		var status string
		if err := rows.Scan(&step.Position, &step.Name, &status, &step.DurationSeconds, &step.ErrorKind, &step.ErrorMessage); err != nil {
			return nil, err
		}
		step.Status = Status(status)
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		status     string
		startedAt  string
		finishedAt string
		completed  string
	)
	if err := row.Scan(&run.ID, &run.Mode, &run.StartStep, &status, &startedAt, &finishedAt,
		&run.DurationSeconds, &completed, &run.FailedStep, &run.ErrorKind, &run.ErrorMessage, &run.VideoURL); err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	if finishedAt != "" {
		run.FinishedAt, _ = time.Parse(timeLayout, finishedAt)
	}
	if err := json.Unmarshal([]byte(completed), &run.CompletedSteps); err != nil {
		return Run{}, fmt.Errorf("decode completed steps for %s: %w", run.ID, err)
	}
	return run, nil
}
