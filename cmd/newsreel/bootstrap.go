package main

import (
	"context"
	"fmt"
	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/images"
	"newsreel/internal/logging"
	"newsreel/internal/narration"
	"newsreel/internal/newsfetch"
	"newsreel/internal/notifications"
	"newsreel/internal/publish"
	"newsreel/internal/runstore"
	"newsreel/internal/services/llm"
	"newsreel/internal/slides"
	"newsreel/internal/summarize"
	"newsreel/internal/video"
	"newsreel/internal/workflow"
)

// pipeline bundles the manager with the resources the caller must release.
type pipeline struct {
	manager *workflow.Manager
	history *runstore.Store
}

func (p *pipeline) Close() {
	if p != nil && p.history != nil {
		_ = p.history.Close()
	}
}

type pipelineOptions struct {
	background string
}

// stageSet wires every step handler from cfg. The upload step is bound only
// when uploads are enabled.
func stageSet(cfg *config.Config, logger *slog.Logger, opts pipelineOptions) (workflow.StageSet, error) {
	text, err := llm.NewTextGenerator(llm.Config(cfg.GetLLM()))
	if err != nil {
		return workflow.StageSet{}, err
	}
	imageClient := llm.NewGeminiClient(llm.Config(cfg.ImageLLM()))

	builder := slides.NewBuilder(cfg, text, logger)
	if opts.background != "" {
		builder = builder.WithBackground(opts.background)
	}

	set := workflow.StageSet{
		FetchNews:      newsfetch.NewFetcher(cfg, logger),
		Summarize:      summarize.NewSummarizer(cfg, text, logger),
		BuildSlides:    builder,
		GenerateImages: images.NewGenerator(cfg, text, imageClient, logger),
		WriteNarration: narration.NewWriter(cfg, text, logger),
		RenderVideo:    video.NewEditor(cfg, logger),
	}
	if cfg.Upload.Enabled {
		set.UploadVideo = publish.NewPublisher(cfg, logger)
	}
	return set, nil
}

func buildPipeline(ctx context.Context, cmdCtx *commandContext, opts pipelineOptions) (*pipeline, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	set, err := stageSet(cfg, logger, opts)
	if err != nil {
		return nil, err
	}

	managerOpts := []workflow.Option{
		workflow.WithNotifier(notifications.NewService(cfg)),
		workflow.WithRunLogger(workflow.NewRunLogger(cfg)),
	}
	// Runs proceed without history when the database cannot be opened.
	history, err := cmdCtx.openHistory(ctx, logger)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "run_history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
	} else {
		managerOpts = append(managerOpts, workflow.WithHistory(history))
	}

	return &pipeline{
		manager: workflow.NewManager(cfg, logger, workflow.Bindings(set), managerOpts...),
		history: history,
	}, nil
}
