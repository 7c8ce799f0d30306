package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/fileutil"
	"newsreel/internal/logging"
	"newsreel/internal/retry"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/slides"
	"newsreel/internal/stage"
)

const stageName = "generate-images"

const noTextInstruction = "\n\nIMPORTANT: Do not include any text, letters, words, signs, labels, or written content in the image. Keep the image purely visual without any typography. When generating people, default to Japanese people unless otherwise specified."

// errNoImage is returned when the model answers without image data.
var errNoImage = errors.New("no image data in response")

// ImageResult records the outcome for one slide.
type ImageResult struct {
	SlideNumber string `json:"slide_number"`
	Title       string `json:"title"`
	Success     bool   `json:"success"`
	OutputPath  string `json:"output_path,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Result is the generate-images step output.
type Result struct {
	GeneratedImages []ImageResult  `json:"generated_images"`
	SuccessCount    int            `json:"success_count"`
	TotalCount      int            `json:"total_count"`
	ImagesDir       string         `json:"images_dir"`
	PromptsCSV      string         `json:"prompts_csv"`
	Prompts         []PromptRecord `json:"image_prompts"`
}

// Context flattens the result into step output keys.
func (r Result) Context() stage.Context {
	return stage.Context{
		stage.KeyGeneratedImages: r.GeneratedImages,
		stage.KeySuccessCount:    r.SuccessCount,
		stage.KeyTotalCount:      r.TotalCount,
		stage.KeyImagesDir:       r.ImagesDir,
		stage.KeyPromptsCSV:      r.PromptsCSV,
		stage.KeyImagePrompts:    r.Prompts,
	}
}

type input struct {
	ImagePrompts []PromptRecord `json:"image_prompts"`
	PromptsCSV   string         `json:"prompts_csv"`
	SlidesData   *slides.Deck   `json:"slides_data"`
}

// Option customizes a Generator.
type Option func(*Generator)

// WithSleeper overrides the wait used between calls and retries.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Generator) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// Generator is the generate-images step handler.
type Generator struct {
	text           llm.TextGenerator
	images         llm.ImageGenerator
	layout         artifacts.Layout
	characterDir   string
	logoFolder     string
	aspectRatio    string
	attempts       int
	retryDelay     time.Duration
	promptInterval time.Duration
	sleep          func(context.Context, time.Duration) error
	logger         *slog.Logger
}

// NewGenerator constructs the step. text writes prompts; images draws them.
func NewGenerator(cfg *config.Config, text llm.TextGenerator, images llm.ImageGenerator, logger *slog.Logger, opts ...Option) *Generator {
	aspect := strings.TrimSpace(cfg.Images.AspectRatio)
	if aspect == "" {
		aspect = "16:9"
	}
	attempts := cfg.Images.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	g := &Generator{
		text:           text,
		images:         images,
		layout:         artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		characterDir:   cfg.Paths.CharacterDir,
		logoFolder:     cfg.Images.LogoFolder,
		aspectRatio:    aspect,
		attempts:       attempts,
		retryDelay:     time.Duration(cfg.Images.RetryDelaySeconds) * time.Second,
		promptInterval: time.Duration(cfg.Images.PromptIntervalSeconds) * time.Second,
		sleep:          retry.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.SetLogger(logger)
	return g
}

// SetLogger swaps the step logger.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	g.logger = logging.NewComponentLogger(logger, "images")
}

// Execute produces one image per prompt and always returns one result per
// prompt.
func (g *Generator) Execute(ctx context.Context, in stage.Context) (stage.Context, error) {
	logger := logging.WithContext(ctx, g.logger)
	params, err := stage.Decode[input](in)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode input", "image_prompts or slides_data have an unexpected shape", err)
	}
	prompts, err := g.resolvePrompts(ctx, logger, params)
	if err != nil {
		return nil, err
	}
	if g.images == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "generate images", "image model not configured", nil)
	}

	characters, err := LoadCharacters(g.characterDir, g.logoFolder)
	if err != nil {
		logging.WarnWithContext(logger, "character directory unreadable", "characters_unavailable",
			logging.String("dir", g.characterDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "images are generated without character references"),
		)
	}
	logger.Info("generating images",
		logging.Int("prompts", len(prompts)),
		logging.Int("characters", characters.Len()),
	)

	result := Result{
		GeneratedImages: make([]ImageResult, 0, len(prompts)),
		TotalCount:      len(prompts),
		ImagesDir:       g.layout.ImagesDir(),
		PromptsCSV:      g.layout.PromptsCSVPath(),
		Prompts:         prompts,
	}
	for i, record := range prompts {
		if i > 0 {
			if err := g.sleep(ctx, g.promptInterval); err != nil {
				return nil, services.Wrap(services.ErrTimeout, stageName, "generate images", "canceled", err)
			}
		}
		entry := g.generateOne(ctx, logger, record, characters)
		if entry.Success {
			result.SuccessCount++
		}
		result.GeneratedImages = append(result.GeneratedImages, entry)
	}

	if err := SavePrompts(result.PromptsCSV, prompts); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save prompts", result.PromptsCSV, err)
	}
	if result.TotalCount > 0 && result.SuccessCount < result.TotalCount {
		batchErr := services.Wrap(services.ErrPartialBatch, stageName, "generate images",
			fmt.Sprintf("%d of %d images failed", result.TotalCount-result.SuccessCount, result.TotalCount), nil)
		logging.WarnWithContext(logger, "image batch incomplete", "image_batch_partial",
			logging.String(logging.FieldErrorKind, string(services.KindOf(batchErr))),
			logging.Int("success_count", result.SuccessCount),
			logging.Int("total_count", result.TotalCount),
			logging.String(logging.FieldImpact, "slides without images keep their text layout"),
		)
		if result.SuccessCount == 0 {
			logger.Warn("no images generated", logging.Alert("image_batch_empty"))
		}
	}
	logger.Info("image generation completed",
		logging.String(logging.FieldEventType, "images_saved"),
		logging.Int("success_count", result.SuccessCount),
		logging.Int("total_count", result.TotalCount),
	)
	return result.Context(), nil
}

func (g *Generator) resolvePrompts(ctx context.Context, logger *slog.Logger, params input) ([]PromptRecord, error) {
	if len(params.ImagePrompts) > 0 {
		out := make([]PromptRecord, len(params.ImagePrompts))
		for i, r := range params.ImagePrompts {
			out[i] = normalizeRecord(r, i, g.aspectRatio)
		}
		return out, nil
	}
	if path := strings.TrimSpace(params.PromptsCSV); path != "" && fileutil.Exists(path) {
		logger.Info("loading prompts from csv", logging.String("path", path))
		return LoadPrompts(path, g.aspectRatio)
	}
	if params.SlidesData != nil && len(params.SlidesData.Slides) > 0 {
		logger.Info("writing prompts from slides", logging.Int("slides", len(params.SlidesData.Slides)))
		return g.writePrompts(ctx, *params.SlidesData)
	}
	return nil, services.Wrap(services.ErrMissingInput, stageName, "resolve prompts", "no image_prompts, prompts_csv or slides_data provided; run build-slides first", nil)
}

func (g *Generator) generateOne(ctx context.Context, logger *slog.Logger, record PromptRecord, characters Characters) ImageResult {
	entry := ImageResult{SlideNumber: record.SlideNumber, Title: record.Title}
	req := llm.ImageRequest{Prompt: record.Prompt + "\n\nAspect ratio: " + record.AspectRatio + "." + noTextInstruction}
	if path, ok := characters.Match(record.Character); ok {
		data, err := os.ReadFile(path)
		if err == nil {
			req.Reference = &llm.Image{MimeType: mimeType(path), Data: data}
			req.Prompt = record.Prompt + "\n\nInclude the character from the reference image in the scene.\n\nAspect ratio: " + record.AspectRatio + "." + noTextInstruction
		} else {
			logger.Debug("character image unreadable", logging.String("path", path), logging.Error(err))
		}
	}

	var image llm.Image
	err := retry.Do(ctx, retry.Policy{
		Attempts: g.attempts,
		Delay:    g.retryDelay,
		Sleep:    g.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Info("image attempt failed, retrying",
				logging.String("slide_number", record.SlideNumber),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err),
			)
		},
	}, func(ctx context.Context, _ int) error {
		img, err := g.images.GenerateImage(ctx, req)
		if err != nil {
			return err
		}
		if len(img.Data) == 0 {
			return errNoImage
		}
		image = img
		return nil
	})
	if err == nil {
		path := filepath.Join(g.layout.ImagesDir(), record.SlideNumber+image.Extension())
		if werr := fileutil.WriteFileAtomic(path, image.Data, 0o644); werr != nil {
			err = werr
		} else {
			entry.Success = true
			entry.OutputPath = path
			logger.Info("image saved", logging.String("slide_number", record.SlideNumber), logging.String("path", path))
			return entry
		}
	}
	entry.Error = err.Error()
	logging.WarnWithContext(logger, "image not generated", "image_failed",
		logging.String("slide_number", record.SlideNumber),
		logging.String("title", record.Title),
		logging.Error(err),
		logging.String(logging.FieldImpact, "slide has no illustration"),
	)
	return entry
}

func mimeType(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return "image/png"
}

// Hydrate reloads the prompts CSV and the images already on disk.
func (g *Generator) Hydrate(context.Context) (stage.Context, error) {
	prompts, err := LoadPrompts(g.layout.PromptsCSVPath(), g.aspectRatio)
	if err != nil {
		return nil, err
	}
	result := Result{
		GeneratedImages: make([]ImageResult, 0, len(prompts)),
		TotalCount:      len(prompts),
		ImagesDir:       g.layout.ImagesDir(),
		PromptsCSV:      g.layout.PromptsCSVPath(),
		Prompts:         prompts,
	}
	for _, p := range prompts {
		entry := ImageResult{SlideNumber: p.SlideNumber, Title: p.Title}
		for _, ext := range []string{".png", ".jpg", ".webp"} {
			path := filepath.Join(result.ImagesDir, p.SlideNumber+ext)
			if fileutil.Exists(path) {
				entry.Success = true
				entry.OutputPath = path
				result.SuccessCount++
				break
			}
		}
		result.GeneratedImages = append(result.GeneratedImages, entry)
	}
	return result.Context(), nil
}

// HealthCheck verifies both models are configured.
func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if g.images == nil {
		return stage.Unhealthy(stageName, "image model not configured")
	}
	if g.text == nil {
		return stage.Unhealthy(stageName, "text model not configured")
	}
	return stage.FromProbe(stageName, g.text.HealthCheck(ctx))
}
