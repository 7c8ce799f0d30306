package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/preflight"
	"newsreel/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var recent int
	var runPreflight bool
	var online bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workflow steps, their health and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), ctx, pipelineOptions{})
			if err != nil {
				return err
			}
			defer p.Close()

			summary := p.manager.Status(cmd.Context(), recent)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Workflow")
			fmt.Fprintln(out, renderStepTable(summary))
			if runPreflight {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Online: online})
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Preflight")
				fmt.Fprintln(out, renderPreflightTable(results))
			}
			if recent > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Recent runs")
				if len(summary.RecentRuns) == 0 {
					fmt.Fprintln(out, "No runs recorded")
				} else {
					fmt.Fprintln(out, renderRunTable(summary.RecentRuns))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 5, "Number of recent runs to show")
	cmd.Flags().BoolVar(&runPreflight, "preflight", false, "Check directories, credentials and services")
	cmd.Flags().BoolVar(&online, "online", false, "Include a live LLM round trip in --preflight")
	return cmd
}

func renderStepTable(summary workflow.StatusSummary) string {
	rows := make([][]string, 0, len(summary.Steps))
	for i, step := range summary.Steps {
		detail := step.Health.Detail
		if detail == "" {
			detail = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			step.Descriptor.Name,
			step.Descriptor.Agent,
			strings.Join(step.Descriptor.Requires, ", "),
			yesNo(step.Health.Ready),
			detail,
		})
	}
	return renderTable(
		[]string{"#", "Step", "Agent", "Requires", "Ready", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func renderPreflightTable(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		state := "ok"
		if !r.Passed {
			state = "FAIL"
		}
		rows = append(rows, []string{r.Name, state, r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}
