package video

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/deps"
	"newsreel/internal/fileutil"
	"newsreel/internal/images"
	"newsreel/internal/logging"
	"newsreel/internal/media/ffprobe"
	"newsreel/internal/narration"
	"newsreel/internal/services"
	"newsreel/internal/services/remotion"
	"newsreel/internal/services/tts"
	"newsreel/internal/stage"
)

const stageName = "render-video"

// Renderer turns the timeline into a video file.
type Renderer interface {
	Available() error
	Render(ctx context.Context, props any, outputPath string) error
}

// DurationProbe measures an audio file in seconds.
type DurationProbe func(ctx context.Context, path string) (float64, error)

// Result is the render-video step output. VideoFile is empty when no video
// was rendered.
type Result struct {
	AudioFiles []AudioFile
	Timings    []Timing
	VideoData  Data
	VideoFile  string
	VideoDir   string
}

// Context flattens the result into step output keys.
func (r Result) Context() stage.Context {
	return stage.Context{
		stage.KeyAudioFiles: r.AudioFiles,
		stage.KeyTimings:    r.Timings,
		stage.KeyVideoData:  r.VideoData,
		stage.KeyVideoFile:  r.VideoFile,
		stage.KeyVideoDir:   r.VideoDir,
	}
}

type input struct {
	Scripts         []narration.Script   `json:"scripts"`
	GeneratedImages []images.ImageResult `json:"generated_images"`
	RenderVideo     *bool                `json:"render_video"`
}

// Option customizes an Editor.
type Option func(*Editor)

// WithSynthesizer replaces the edge-tts client.
func WithSynthesizer(s tts.Synthesizer) Option {
	return func(e *Editor) {
		if s != nil {
			e.tts = s
		}
	}
}

// WithProbe replaces the ffprobe duration lookup.
func WithProbe(p DurationProbe) Option {
	return func(e *Editor) {
		if p != nil {
			e.probe = p
		}
	}
}

// WithRenderer replaces the Remotion renderer.
func WithRenderer(r Renderer) Option {
	return func(e *Editor) {
		if r != nil {
			e.renderer = r
		}
	}
}

// Editor is the render-video step handler.
type Editor struct {
	cfg         *config.Config
	layout      artifacts.Layout
	tts         tts.Synthesizer
	probe       DurationProbe
	renderer    Renderer
	concurrency int
	fps         int
	render      bool
	logger      *slog.Logger
}

// NewEditor constructs the step with the CLI-backed delegates.
func NewEditor(cfg *config.Config, logger *slog.Logger, opts ...Option) *Editor {
	ffprobeBinary := cfg.TTS.FFprobeBinary
	e := &Editor{
		cfg:    cfg,
		layout: artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		tts:    tts.New(cfg.TTS.Binary, cfg.TTS.Voice, cfg.TTS.TimeoutSeconds),
		probe: func(ctx context.Context, path string) (float64, error) {
			return ffprobe.Duration(ctx, ffprobeBinary, path)
		},
		renderer: remotion.New(remotion.Options{
			NpxBinary:      cfg.Render.NpxBinary,
			ProjectDir:     cfg.Paths.RemotionDir,
			Composition:    cfg.Render.Composition,
			TimeoutSeconds: cfg.Render.TimeoutSeconds,
		}),
		concurrency: max(cfg.TTS.Concurrency, 1),
		fps:         cfg.Render.FPS,
		render:      cfg.Render.Enabled,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.SetLogger(logger)
	return e
}

// SetLogger swaps the step logger.
func (e *Editor) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	e.logger = logging.NewComponentLogger(logger, "video")
}

// Execute synthesizes narration, writes video_timings.json and renders the
// video when a renderer is available.
func (e *Editor) Execute(ctx context.Context, in stage.Context) (stage.Context, error) {
	logger := logging.WithContext(ctx, e.logger)
	params, err := stage.Decode[input](in)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode input", "scripts have an unexpected shape", err)
	}
	if len(params.Scripts) == 0 {
		return nil, services.Wrap(services.ErrMissingInput, stageName, "resolve scripts", "no scripts provided; run write-narration first", nil)
	}

	audio, err := e.synthesize(ctx, logger, params.Scripts)
	if err != nil {
		return nil, err
	}
	timings, err := e.measure(ctx, audio)
	if err != nil {
		return nil, err
	}

	scripts := make([]string, len(params.Scripts))
	for i, s := range params.Scripts {
		scripts[i] = s.Script
	}
	slideImages := make([]string, len(params.GeneratedImages))
	for i, img := range params.GeneratedImages {
		slideImages[i] = img.OutputPath
	}
	result := Result{
		AudioFiles: audio,
		Timings:    timings,
		VideoData:  BuildTimeline(timings, scripts, slideImages, e.fps, e.layout.VideoDir()),
		VideoDir:   e.layout.VideoDir(),
	}
	if err := artifacts.SaveJSON(e.layout.TimingsPath(), result.VideoData); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save timings", e.layout.TimingsPath(), err)
	}
	logger.Info("timeline prepared",
		logging.String(logging.FieldEventType, "timeline_saved"),
		logging.Int("slides", len(result.VideoData.Slides)),
		logging.Int("total_frames", result.VideoData.TotalFrames),
		logging.Float64("total_seconds", result.VideoData.TotalDurationSec),
	)

	renderRequested := params.RenderVideo == nil || *params.RenderVideo
	result.VideoFile = e.renderVideo(ctx, logger, result.VideoData, renderRequested)
	return result.Context(), nil
}

func (e *Editor) synthesize(ctx context.Context, logger *slog.Logger, scripts []narration.Script) ([]AudioFile, error) {
	audio := make([]AudioFile, len(scripts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, script := range scripts {
		audio[i] = AudioFile{
			Index:     i + 1,
			Title:     script.Title,
			AudioFile: e.layout.AudioPath(i + 1),
			Text:      script.Script,
		}
		entry := audio[i]
		g.Go(func() error {
			return e.tts.Synthesize(gctx, entry.Text, entry.AudioFile)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("narration audio synthesized", logging.Int("clips", len(audio)), logging.Int("concurrency", e.concurrency))
	return audio, nil
}

func (e *Editor) measure(ctx context.Context, audio []AudioFile) ([]Timing, error) {
	timings := make([]Timing, len(audio))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, clip := range audio {
		g.Go(func() error {
			seconds, err := e.probe(gctx, clip.AudioFile)
			if err != nil {
				return services.Wrap(services.ErrExternalService, stageName, "measure audio", clip.AudioFile, err)
			}
			timings[i] = Timing{
				Index:       clip.Index,
				Title:       clip.Title,
				DurationMs:  int64(math.Round(seconds * 1000)),
				DurationSec: seconds,
				AudioFile:   clip.AudioFile,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return timings, nil
}

// renderVideo returns the rendered file, or "" when rendering was skipped
// or failed.
func (e *Editor) renderVideo(ctx context.Context, logger *slog.Logger, data Data, requested bool) string {
	if !e.render || !requested {
		logger.Info("video rendering skipped", logging.Bool("enabled", e.render), logging.Bool("requested", requested))
		return ""
	}
	if err := e.renderer.Available(); err != nil {
		logging.WarnWithContext(logger, "renderer unavailable", "render_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set paths.remotion_dir to an installed Remotion project"),
			logging.String(logging.FieldImpact, "audio and timings are kept without a video"),
		)
		return ""
	}
	out := e.layout.VideoPath()
	logger.Info("rendering video", logging.String("output", out), logging.Int("total_frames", data.TotalFrames))
	if err := e.renderer.Render(ctx, data, out); err != nil {
		logging.WarnWithContext(logger, "video rendering failed", "render_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, string(services.KindOf(err))),
			logging.String(logging.FieldImpact, "audio and timings are kept without a video"),
		)
		return ""
	}
	logger.Info("video rendered", logging.String(logging.FieldEventType, "video_saved"), logging.String("path", out))
	return out
}

// Hydrate reloads video_timings.json and the rendered video if present.
func (e *Editor) Hydrate(context.Context) (stage.Context, error) {
	var data Data
	if err := artifacts.LoadJSON(e.layout.TimingsPath(), &data); err != nil {
		return nil, err
	}
	result := Result{VideoData: data, VideoDir: e.layout.VideoDir()}
	for _, slide := range data.Slides {
		result.AudioFiles = append(result.AudioFiles, AudioFile{Index: slide.Index, Title: slide.Title, AudioFile: slide.AudioFile, Text: slide.Script})
	}
	if fileutil.Exists(e.layout.VideoPath()) {
		result.VideoFile = e.layout.VideoPath()
	}
	return result.Context(), nil
}

// HealthCheck verifies the required binaries are on PATH.
func (e *Editor) HealthCheck(context.Context) stage.Health {
	var missing []string
	for _, status := range deps.CheckBinaries(deps.Requirements(e.cfg)) {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name+": "+status.Detail)
		}
	}
	if len(missing) > 0 {
		return stage.Unhealthy(stageName, strings.Join(missing, "; "))
	}
	return stage.Healthy(stageName)
}
