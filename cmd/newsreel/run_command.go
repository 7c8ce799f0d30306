package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsreel/internal/fileutil"
	"newsreel/internal/logging"
	"newsreel/internal/newsfetch"
	"newsreel/internal/portfolio"
	"newsreel/internal/stage"
	"newsreel/internal/summarize"
	"newsreel/internal/workflow"
)

type runOptions struct {
	agent      string
	startFrom  string
	report     string
	articles   string
	slideFile  string
	background string
	hoursAgo   int
	hoursSet   bool
	noVideo    bool
	output     string
	resume     bool
	jsonOut    bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline, part of it, or a single step",
		Long: `Run every step in order, resume from a step with --start-from, or run one
step with --agent. Steps accept either their name (build-slides) or agent id
(slide_creator).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hoursSet = cmd.Flags().Changed("hours-ago")
			return runPipeline(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.agent, "agent", "a", "", "Run a single step")
	flags.StringVarP(&opts.startFrom, "start-from", "s", "", "Run from this step to the end")
	flags.StringVarP(&opts.report, "report", "r", "", "Existing daily_report.md to seed the run")
	flags.StringVarP(&opts.articles, "articles", "i", "", "Existing articles.json to seed the run")
	flags.StringVar(&opts.slideFile, "slide-file", "", "Existing Marp slide file for write-narration")
	flags.StringVarP(&opts.background, "background", "b", "", "Slide background image")
	flags.IntVar(&opts.hoursAgo, "hours-ago", 0, "News window in hours (default [feeds] hours_ago)")
	flags.BoolVar(&opts.noVideo, "no-video", false, "Skip the Remotion render")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the run result as JSON to this file")
	flags.BoolVar(&opts.resume, "resume", false, "Reload saved artifacts of the steps before --start-from or --agent")
	flags.BoolVar(&opts.jsonOut, "json", false, "Print the run result as JSON")
	cmd.MarkFlagsMutuallyExclusive("agent", "start-from")

	return cmd
}

// initialContext holds only what the command line overrides, so stages fall
// back to their configured defaults otherwise.
func initialContext(opts runOptions) stage.Context {
	initial := stage.Context{}
	if opts.hoursSet {
		initial[stage.KeyHoursAgo] = opts.hoursAgo
	}
	if opts.noVideo {
		initial[stage.KeyRenderVideo] = false
	}
	return initial
}

func runPipeline(cmd *cobra.Command, cmdCtx *commandContext, opts runOptions) error {
	ctx := cmd.Context()
	if opts.hoursSet && opts.hoursAgo <= 0 {
		return fmt.Errorf("--hours-ago must be positive, got %d", opts.hoursAgo)
	}
	target := strings.TrimSpace(opts.agent)
	if target == "" {
		target = strings.TrimSpace(opts.startFrom)
	}
	if opts.resume && target == "" {
		return errors.New("--resume needs --start-from or --agent")
	}

	p, err := buildPipeline(ctx, cmdCtx, pipelineOptions{background: strings.TrimSpace(opts.background)})
	if err != nil {
		return err
	}
	defer p.Close()

	initial := initialContext(opts)
	if opts.resume {
		hydrated, err := p.manager.Hydrate(ctx, target)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		initial = hydrated.Merge(initial)
	}
	if initial, err = seedArtifacts(initial, opts); err != nil {
		return err
	}

	first := workflow.StepFetchNews
	if target != "" {
		first = canonicalStep(target)
	}
	if first == workflow.StepFetchNews || first == workflow.StepSummarize {
		cfg, _ := cmdCtx.ensureConfig()
		logger, _ := cmdCtx.ensureLogger()
		seeded, err := portfolio.NewService(cfg, logger).Seed(ctx, initial)
		if err != nil {
			logging.WarnWithContext(logger, "portfolio snapshot failed", "portfolio_snapshot_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "report omits the portfolio section"),
			)
		} else {
			initial = seeded
		}
	}

	var result *workflow.RunResult
	switch {
	case strings.TrimSpace(opts.agent) != "":
		result, err = p.manager.RunSingle(ctx, opts.agent, initial)
	case strings.TrimSpace(opts.startFrom) != "":
		result, err = p.manager.RunPartial(ctx, opts.startFrom, initial)
	default:
		result, err = p.manager.RunFull(ctx, initial)
	}
	if err != nil {
		return err
	}

	if path := strings.TrimSpace(opts.output); path != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode run result: %w", err)
		}
		if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write run result: %w", err)
		}
	}
	if opts.jsonOut {
		return writeJSON(cmd, result)
	}
	printRunSummary(cmd.OutOrStdout(), result)
	return nil
}

// seedArtifacts loads the files supplied on the command line. They override
// hydrated values.
func seedArtifacts(initial stage.Context, opts runOptions) (stage.Context, error) {
	if path := strings.TrimSpace(opts.articles); path != "" {
		loaded, err := newsfetch.LoadArticles(path)
		if err != nil {
			return nil, fmt.Errorf("load articles: %w", err)
		}
		initial = initial.Merge(loaded)
	}
	if path := strings.TrimSpace(opts.report); path != "" {
		loaded, err := summarize.LoadReport(path)
		if err != nil {
			return nil, fmt.Errorf("load report: %w", err)
		}
		initial = initial.Merge(loaded)
	}
	if path := strings.TrimSpace(opts.slideFile); path != "" {
		if !fileutil.Exists(path) {
			return nil, fmt.Errorf("slide file not found: %s", path)
		}
		initial = initial.Merge(stage.Context{stage.KeySlideFile: path})
	}
	return initial, nil
}

// canonicalStep maps an agent id to its step name. Unknown names pass
// through for the manager to reject.
func canonicalStep(name string) string {
	for _, d := range workflow.Descriptors() {
		if d.Name == name || d.Agent == name {
			return d.Name
		}
	}
	return name
}

func printRunSummary(out io.Writer, result *workflow.RunResult) {
	fmt.Fprintf(out, "Run %s (%s)\n", result.RunID, result.Mode)
	completed := "none"
	if len(result.CompletedSteps) > 0 {
		completed = strings.Join(result.CompletedSteps, ", ")
	}
	fmt.Fprintf(out, "Completed steps: %s\n", completed)
	if result.Failed() {
		fmt.Fprintf(out, "Failed step: %s [%s] %s\n", result.Error.Step, result.Error.Kind, result.Error.Message)
	}
	duration := time.Duration(result.Summary.DurationSeconds * float64(time.Second)).Round(time.Millisecond)
	fmt.Fprintf(out, "Duration: %s\n", duration)
	if video, ok := result.Context[stage.KeyVideoFile].(string); ok && video != "" {
		fmt.Fprintf(out, "Video: %s\n", video)
	}
	if url, ok := result.Context[stage.KeyVideoURL].(string); ok && url != "" {
		fmt.Fprintf(out, "Uploaded: %s\n", url)
	}
	if result.LogPath != "" {
		fmt.Fprintf(out, "Run log: %s\n", result.LogPath)
	}
}
