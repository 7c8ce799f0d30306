package slides

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/fileutil"
	"newsreel/internal/logging"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/stage"
)

const stageName = "build-slides"

const systemPrompt = "You design short presentation decks for narrated news videos. Reply with YAML only."

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Result is the build-slides output and the slides.json document.
type Result struct {
	Deck
	SlideFile string `json:"slide_file"`
	SlidesDir string `json:"slides_dir"`
}

// Context flattens the result into step output keys.
func (r Result) Context() stage.Context {
	return stage.Context{
		stage.KeySlidesData: r.Deck,
		stage.KeySlideFile:  r.SlideFile,
		stage.KeySlidesDir:  r.SlidesDir,
	}
}

type input struct {
	Report     string `json:"report"`
	SlidesData *Deck  `json:"slides_data"`
}

// Builder is the build-slides step handler.
type Builder struct {
	llm        llm.TextGenerator
	layout     artifacts.Layout
	theme      string
	background string
	logger     *slog.Logger
	now        func() time.Time
}

// NewBuilder constructs the step.
func NewBuilder(cfg *config.Config, client llm.TextGenerator, logger *slog.Logger) *Builder {
	return NewBuilderWithClock(cfg, client, logger, time.Now)
}

// NewBuilderWithClock allows injecting the clock (used in tests).
func NewBuilderWithClock(cfg *config.Config, client llm.TextGenerator, logger *slog.Logger, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	theme := strings.TrimSpace(cfg.Slides.Theme)
	if theme == "" {
		theme = "default"
	}
	b := &Builder{
		llm:        client,
		layout:     artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		theme:      theme,
		background: strings.TrimSpace(cfg.Slides.BackgroundImage),
		now:        now,
	}
	b.SetLogger(logger)
	return b
}

// SetLogger swaps the step logger.
func (b *Builder) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	b.logger = logging.NewComponentLogger(logger, "slides")
}

// WithBackground overrides the configured background image for this builder.
func (b *Builder) WithBackground(path string) *Builder {
	if strings.TrimSpace(path) != "" {
		b.background = strings.TrimSpace(path)
	}
	return b
}

// Execute builds the deck (unless slides_data is supplied) and writes the
// Marp file and slides.json.
func (b *Builder) Execute(ctx context.Context, in stage.Context) (stage.Context, error) {
	logger := logging.WithContext(ctx, b.logger)
	params, err := stage.Decode[input](in)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode input", "slides_data has an unexpected shape", err)
	}

	var deck Deck
	switch {
	case params.SlidesData != nil && len(params.SlidesData.Slides) > 0:
		deck = *params.SlidesData
		logger.Info("using supplied slide data", logging.Int("slides", len(deck.Slides)))
	case strings.TrimSpace(params.Report) != "":
		deck, err = b.generateDeck(ctx, params.Report)
		if err != nil {
			return nil, err
		}
	default:
		return nil, services.Wrap(services.ErrMissingInput, stageName, "validate inputs", "no report or slides_data provided; run summarize first or pass --report", nil)
	}

	dir := b.layout.SlidesDir(b.now())
	background, err := b.copyBackground(dir)
	if err != nil {
		logging.WarnWithContext(logger, "background image not copied", "slide_background_missing",
			logging.String("background", b.background),
			logging.Error(err),
			logging.String(logging.FieldImpact, "slides render without a background image"),
		)
	}
	markdown, err := RenderMarp(deck, b.theme, background)
	if err != nil {
		return nil, err
	}
	result := Result{
		Deck:      deck,
		SlideFile: filepath.Join(dir, SafeTopic(deck.Topic)+"_slide.md"),
		SlidesDir: dir,
	}
	if err := artifacts.SaveText(result.SlideFile, markdown); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save slides", result.SlideFile, err)
	}
	if err := artifacts.SaveJSON(b.layout.SlidesPath(), result); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save slides", b.layout.SlidesPath(), err)
	}
	logger.Info("slides created",
		logging.String(logging.FieldEventType, "slides_saved"),
		logging.String("topic", deck.Topic),
		logging.Int("slides", len(deck.Slides)),
		logging.String("path", result.SlideFile),
	)
	return result.Context(), nil
}

func (b *Builder) generateDeck(ctx context.Context, report string) (Deck, error) {
	if b.llm == nil {
		return Deck{}, services.Wrap(services.ErrConfiguration, stageName, "generate deck", "text model not configured", nil)
	}
	var prompt bytes.Buffer
	data := struct {
		Report               string
		MinSlides, MaxSlides int
	}{Report: report, MinSlides: 5, MaxSlides: 10}
	if err := templates.ExecuteTemplate(&prompt, "prompt.tmpl", data); err != nil {
		return Deck{}, services.Wrap(services.ErrParse, stageName, "render prompt", "prompt.tmpl", err)
	}
	response, err := b.llm.CompleteText(ctx, systemPrompt, prompt.String())
	if err != nil {
		return Deck{}, services.Wrap(services.ErrExternalService, stageName, "generate deck", "text model call failed", err)
	}
	return ParseDeck(response)
}

// copyBackground places the background image next to the slide file and
// returns the name the Marp header should reference.
func (b *Builder) copyBackground(dir string) (string, error) {
	if b.background == "" {
		return "", nil
	}
	if !fileutil.Exists(b.background) {
		return "", fmt.Errorf("background image %s not found", b.background)
	}
	name := filepath.Base(b.background)
	if err := fileutil.CopyFile(b.background, filepath.Join(dir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// RenderMarp renders the deck as Marp markdown.
func RenderMarp(deck Deck, theme, background string) (string, error) {
	var buf bytes.Buffer
	header := struct{ Theme, Background string }{Theme: theme, Background: background}
	if err := templates.ExecuteTemplate(&buf, "header.tmpl", header); err != nil {
		return "", services.Wrap(services.ErrParse, stageName, "render header", "header.tmpl", err)
	}
	for i, slide := range deck.Slides {
		if i > 0 {
			buf.WriteString("---\n\n")
		}
		title := ReplaceEmoji(slide.Title)
		content := ReplaceEmoji(slide.Content)
		summary := IsSummary(title)
		if summary {
			content = TruncateSummary(content)
			buf.WriteString("<!-- _class: summary -->\n")
		}
		if title != "" {
			fmt.Fprintf(&buf, "# %s\n\n", title)
		}
		if content != "" {
			buf.WriteString(content)
			buf.WriteString("\n\n")
		}
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

// Hydrate reloads slides.json.
func (b *Builder) Hydrate(context.Context) (stage.Context, error) {
	var result Result
	if err := artifacts.LoadJSON(b.layout.SlidesPath(), &result); err != nil {
		return nil, err
	}
	return result.Context(), nil
}

// HealthCheck verifies the text model is configured.
func (b *Builder) HealthCheck(ctx context.Context) stage.Health {
	if b.llm == nil {
		return stage.Unhealthy(stageName, "text model not configured")
	}
	return stage.FromProbe(stageName, b.llm.HealthCheck(ctx))
}
