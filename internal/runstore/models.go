package runstore

import "time"

// Status is the lifecycle state of a run or step.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Run is one row of run history.
type Run struct {
	ID              string
	Mode            string
	StartStep       string
	Status          Status
	StartedAt       time.Time
	FinishedAt      time.Time
	DurationSeconds float64
	CompletedSteps  []string
	FailedStep      string
	ErrorKind       string
	ErrorMessage    string
	VideoURL        string
}

// Step is one executed stage within a run.
type Step struct {
	Position        int
	Name            string
	Status          Status
	DurationSeconds float64
	ErrorKind       string
	ErrorMessage    string
}

// Outcome closes a run.
type Outcome struct {
	Status          Status
	FinishedAt      time.Time
	DurationSeconds float64
	CompletedSteps  []string
	FailedStep      string
	ErrorKind       string
	ErrorMessage    string
	VideoURL        string
}
