package narration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/retry"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/stage"
)

const stageName = "write-narration"

const systemPrompt = "You write narration scripts for Japanese business news videos."

//go:embed templates/prompt.tmpl
var templateFS embed.FS

var promptTemplate = template.Must(template.ParseFS(templateFS, "templates/prompt.tmpl"))

// Script is the narration for one slide.
type Script struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Script string `json:"script"`
}

// Document is the persisted scripts/script.json.
type Document struct {
	Slides      []Script `json:"slides"`
	TotalSlides int      `json:"total_slides"`
}

// Result is the write-narration step output.
type Result struct {
	Scripts     []Script
	ScriptFile  string
	TotalSlides int
}

// Context flattens the result into step output keys.
func (r Result) Context() stage.Context {
	return stage.Context{
		stage.KeyScripts:     r.Scripts,
		stage.KeyScriptFile:  r.ScriptFile,
		stage.KeyTotalSlides: r.TotalSlides,
	}
}

type input struct {
	ScriptNotes []Script `json:"script_notes"`
	SlideFile   string   `json:"slide_file"`
}

// Option customizes a Writer.
type Option func(*Writer)

// WithSleeper overrides the wait used between slides and retries.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(w *Writer) {
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// Writer is the write-narration step handler.
type Writer struct {
	llm            llm.TextGenerator
	layout         artifacts.Layout
	interval       time.Duration
	attempts       int
	retryDelay     time.Duration
	rateLimitDelay time.Duration
	sleep          func(context.Context, time.Duration) error
	logger         *slog.Logger
}

// NewWriter constructs the step.
func NewWriter(cfg *config.Config, client llm.TextGenerator, logger *slog.Logger, opts ...Option) *Writer {
	attempts := cfg.Narration.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	w := &Writer{
		llm:            client,
		layout:         artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		interval:       time.Duration(cfg.Narration.IntervalSeconds) * time.Second,
		attempts:       attempts,
		retryDelay:     time.Duration(cfg.Narration.RetryDelaySeconds) * time.Second,
		rateLimitDelay: time.Duration(cfg.Narration.RateLimitDelaySeconds) * time.Second,
		sleep:          retry.Sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.SetLogger(logger)
	return w
}

// SetLogger swaps the step logger.
func (w *Writer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	w.logger = logging.NewComponentLogger(logger, "narration")
}

// Execute writes scripts/script.json and scripts/script.txt.
func (w *Writer) Execute(ctx context.Context, in stage.Context) (stage.Context, error) {
	logger := logging.WithContext(ctx, w.logger)
	params, err := stage.Decode[input](in)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode input", "script_notes or slide_file have an unexpected shape", err)
	}

	var scripts []Script
	switch {
	case len(params.ScriptNotes) > 0:
		logger.Info("using supplied script notes", logging.Int("slides", len(params.ScriptNotes)))
		scripts = make([]Script, len(params.ScriptNotes))
		for i, note := range params.ScriptNotes {
			if note.Index <= 0 {
				note.Index = i + 1
			}
			scripts[i] = note
		}
	case strings.TrimSpace(params.SlideFile) != "":
		doc, err := artifacts.LoadText(params.SlideFile)
		if err != nil {
			return nil, err
		}
		slides := ParseMarp(doc)
		logger.Info("parsed slides", logging.String("slide_file", params.SlideFile), logging.Int("slides", len(slides)))
		if len(slides) == 0 {
			return nil, services.Wrap(services.ErrParse, stageName, "parse slides", "no slides found in "+params.SlideFile, nil)
		}
		scripts, err = w.generate(ctx, logger, slides)
		if err != nil {
			return nil, err
		}
	default:
		return nil, services.Wrap(services.ErrMissingInput, stageName, "resolve slides", "no slide_file or script_notes provided; run build-slides first", nil)
	}

	result := Result{Scripts: scripts, ScriptFile: w.layout.ScriptJSONPath(), TotalSlides: len(scripts)}
	if err := artifacts.SaveJSON(result.ScriptFile, Document{Slides: scripts, TotalSlides: len(scripts)}); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save scripts", result.ScriptFile, err)
	}
	if err := artifacts.SaveText(w.layout.ScriptTextPath(), FormatText(scripts)); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save scripts", w.layout.ScriptTextPath(), err)
	}
	logger.Info("narration saved",
		logging.String(logging.FieldEventType, "narration_saved"),
		logging.String("path", result.ScriptFile),
		logging.Int("slides", result.TotalSlides),
	)
	return result.Context(), nil
}

func (w *Writer) generate(ctx context.Context, logger *slog.Logger, slides []Slide) ([]Script, error) {
	if w.llm == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "generate narration", "text model not configured", nil)
	}
	scripts := make([]Script, 0, len(slides))
	for i, slide := range slides {
		if i > 0 {
			if err := w.sleep(ctx, w.interval); err != nil {
				return nil, services.Wrap(services.ErrTimeout, stageName, "generate narration", "canceled", err)
			}
		}
		var buf bytes.Buffer
		if err := promptTemplate.Execute(&buf, struct {
			Slide
			Total int
		}{slide, len(slides)}); err != nil {
			return nil, services.Wrap(services.ErrParse, stageName, "render template", "prompt.tmpl", err)
		}

		var text string
		err := retry.Do(ctx, retry.Policy{
			Attempts: w.attempts,
			DelayFor: func(err error, _ int) time.Duration {
				if llm.IsRateLimited(err) {
					return w.rateLimitDelay
				}
				return w.retryDelay
			},
			Retryable: services.IsRetryable,
			Sleep:     w.sleep,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Info("narration attempt failed, retrying",
					logging.Int("slide", slide.Index),
					logging.Int("attempt", attempt),
					logging.Duration("delay", delay),
					logging.Bool("rate_limited", llm.IsRateLimited(err)),
					logging.Error(err),
				)
			},
		}, func(ctx context.Context, _ int) error {
			reply, err := w.llm.CompleteText(ctx, systemPrompt, buf.String())
			if err != nil {
				return err
			}
			text = CleanLeadIns(reply)
			if text == "" {
				return services.Wrap(services.ErrExternalService, stageName, "generate narration", "empty narration after cleaning", nil)
			}
			return nil
		})
		if err != nil {
			return nil, services.Wrap(services.ErrExternalService, stageName, "generate narration", fmt.Sprintf("slide %d", slide.Index), err)
		}
		logger.Debug("narration generated", logging.Int("slide", slide.Index), logging.Int("length", len([]rune(text))))
		scripts = append(scripts, Script{Index: slide.Index, Title: slide.Title, Script: text})
	}
	return scripts, nil
}

// FormatText renders the human-readable script.txt.
func FormatText(scripts []Script) string {
	var b strings.Builder
	for _, s := range scripts {
		fmt.Fprintf(&b, "=== スライド %d: %s ===\n\n%s\n\n", s.Index, s.Title, s.Script)
	}
	return b.String()
}

// Hydrate reloads scripts/script.json.
func (w *Writer) Hydrate(context.Context) (stage.Context, error) {
	var doc Document
	if err := artifacts.LoadJSON(w.layout.ScriptJSONPath(), &doc); err != nil {
		return nil, err
	}
	return Result{Scripts: doc.Slides, ScriptFile: w.layout.ScriptJSONPath(), TotalSlides: len(doc.Slides)}.Context(), nil
}

// HealthCheck verifies the text model is configured.
func (w *Writer) HealthCheck(ctx context.Context) stage.Health {
	if w.llm == nil {
		return stage.Unhealthy(stageName, "text model not configured")
	}
	return stage.FromProbe(stageName, w.llm.HealthCheck(ctx))
}
