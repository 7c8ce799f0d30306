package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsreel/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if jsonOut {
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run))
				}
				return writeJSON(cmd, views)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRunTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")
	return cmd
}

type runView struct {
	ID              string     `json:"id"`
	Mode            string     `json:"mode"`
	StartStep       string     `json:"start_step,omitempty"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	CompletedSteps  []string   `json:"completed_steps"`
	FailedStep      string     `json:"failed_step,omitempty"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	VideoURL        string     `json:"video_url,omitempty"`
}

func newRunView(run runstore.Run) runView {
	view := runView{
		ID:              run.ID,
		Mode:            run.Mode,
		StartStep:       run.StartStep,
		Status:          string(run.Status),
		StartedAt:       run.StartedAt,
		DurationSeconds: run.DurationSeconds,
		CompletedSteps:  run.CompletedSteps,
		FailedStep:      run.FailedStep,
		ErrorKind:       run.ErrorKind,
		ErrorMessage:    run.ErrorMessage,
		VideoURL:        run.VideoURL,
	}
	if view.CompletedSteps == nil {
		view.CompletedSteps = []string{}
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		view.FinishedAt = &finished
	}
	return view
}

func renderRunTable(runs []runstore.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		failed := "-"
		if run.FailedStep != "" {
			failed = run.FailedStep
			if run.ErrorKind != "" {
				failed += " (" + run.ErrorKind + ")"
			}
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Mode,
			dash(run.StartStep),
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			formatSeconds(run.DurationSeconds),
			fmt.Sprintf("%d", len(run.CompletedSteps)),
			failed,
		})
	}
	return renderTable(
		[]string{"Run", "Mode", "From", "Status", "Started", "Duration", "Steps", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
