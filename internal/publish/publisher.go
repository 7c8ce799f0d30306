package publish

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/fileutil"
	"newsreel/internal/logging"
	"newsreel/internal/services"
	"newsreel/internal/stage"
)

const stageName = "upload-video"

const excerptRunes = 1500

// Result is the upload-video step output.
type Result struct {
	VideoID    string    `json:"video_id"`
	VideoURL   string    `json:"video_url"`
	VideoTitle string    `json:"video_title"`
	VideoFile  string    `json:"video_file"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Context flattens the result into step output keys.
func (r Result) Context() stage.Context {
	return stage.Context{
		stage.KeyVideoID:    r.VideoID,
		stage.KeyVideoURL:   r.VideoURL,
		stage.KeyVideoTitle: r.VideoTitle,
	}
}

type input struct {
	VideoFile  string `json:"video_file"`
	Report     string `json:"report"`
	ReportDate string `json:"report_date"`
}

// Publisher is the upload-video step handler.
type Publisher struct {
	uploader Uploader
	upload   config.Upload
	layout   artifacts.Layout
	now      func() time.Time
	logger   *slog.Logger
}

// NewPublisher constructs the step with the YouTube client built from cfg.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	client := NewYouTubeClient(Credentials{
		ClientID:     cfg.Upload.ClientID,
		ClientSecret: cfg.Upload.ClientSecret,
		RefreshToken: cfg.Upload.RefreshToken,
	})
	return NewPublisherWithUploader(cfg, client, logger, time.Now)
}

// NewPublisherWithUploader allows injecting the uploader and clock.
func NewPublisherWithUploader(cfg *config.Config, uploader Uploader, logger *slog.Logger, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	p := &Publisher{
		uploader: uploader,
		upload:   cfg.Upload,
		layout:   artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		now:      now,
	}
	p.SetLogger(logger)
	return p
}

// SetLogger swaps the step logger.
func (p *Publisher) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	p.logger = logging.NewComponentLogger(logger, "publish")
}

// Execute uploads video_file. A run without a video is skipped with a
// warning and produces no keys.
func (p *Publisher) Execute(ctx context.Context, in stage.Context) (stage.Context, error) {
	logger := logging.WithContext(ctx, p.logger)
	params, err := stage.Decode[input](in)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode input", "video_file has an unexpected shape", err)
	}
	path := strings.TrimSpace(params.VideoFile)
	if path == "" || !fileutil.Exists(path) {
		logging.WarnWithContext(logger, "no video to upload", "upload_skipped",
			logging.String("video_file", path),
			logging.String(logging.FieldErrorHint, "enable [render] and install the Remotion project"),
			logging.String(logging.FieldImpact, "video is not published"),
		)
		return stage.Context{}, nil
	}
	return p.Upload(ctx, path, params.Report, params.ReportDate)
}

// Upload publishes path directly. It backs both the step and the upload
// command.
func (p *Publisher) Upload(ctx context.Context, path, report, reportDate string) (stage.Context, error) {
	logger := logging.WithContext(ctx, p.logger)
	if p.uploader == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "upload", "uploader not configured", nil)
	}
	meta := p.Metadata(report, reportDate)
	logger.Info("uploading video",
		logging.String("path", path),
		logging.String("title", meta.Title),
		logging.String("privacy", meta.Privacy),
	)
	id, err := p.uploader.Upload(ctx, path, meta)
	if err != nil {
		return nil, err
	}
	result := Result{
		VideoID:    id,
		VideoURL:   WatchURL(id),
		VideoTitle: meta.Title,
		VideoFile:  path,
		UploadedAt: p.now().UTC(),
	}
	if err := artifacts.SaveJSON(p.layout.UploadPath(), result); err != nil {
		logging.WarnWithContext(logger, "upload record not saved", "upload_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "hydrating upload-video will not find this upload"),
		)
	}
	logger.Info("video uploaded",
		logging.String(logging.FieldEventType, "video_uploaded"),
		logging.String("video_id", id),
		logging.String("video_url", result.VideoURL),
	)
	return result.Context(), nil
}

// Metadata builds the title and description for a report.
func (p *Publisher) Metadata(report, reportDate string) Metadata {
	day := p.now()
	if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(reportDate)); err == nil {
		day = parsed
	}
	title := strings.TrimSpace(p.upload.TitlePrefix + " " + day.Format("2006-01-02"))

	var desc strings.Builder
	if excerpt := Excerpt(report, excerptRunes); excerpt != "" {
		desc.WriteString(excerpt)
	}
	if disclaimer := strings.TrimSpace(p.upload.Disclaimer); disclaimer != "" {
		if desc.Len() > 0 {
			desc.WriteString("\n\n")
		}
		desc.WriteString(disclaimer)
	}
	category := p.upload.CategoryID
	if category == "" {
		category = "28"
	}
	privacy := p.upload.Privacy
	if privacy == "" {
		privacy = "public"
	}
	return Metadata{
		Title:       title,
		Description: desc.String(),
		Tags:        append([]string(nil), p.upload.Tags...),
		CategoryID:  category,
		Privacy:     privacy,
		Language:    "ja",
	}
}

// Excerpt returns the report as plain lines, cut at a line boundary so it
// stays within limit runes. YouTube rejects angle brackets in descriptions,
// so they are dropped.
func Excerpt(report string, limit int) string {
	var (
		lines []string
		size  int
	)
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#>"))
		line = strings.NewReplacer("<", "", ">", "", "**", "").Replace(line)
		if line == "" || line == "---" {
			continue
		}
		n := len([]rune(line)) + 1
		if size+n > limit {
			break
		}
		lines = append(lines, line)
		size += n
	}
	return strings.Join(lines, "\n")
}

// Hydrate reloads upload.json.
func (p *Publisher) Hydrate(context.Context) (stage.Context, error) {
	var result Result
	if err := artifacts.LoadJSON(p.layout.UploadPath(), &result); err != nil {
		return nil, err
	}
	return result.Context(), nil
}

// HealthCheck verifies upload credentials are configured.
func (p *Publisher) HealthCheck(context.Context) stage.Health {
	if p.upload.ClientID == "" || p.upload.ClientSecret == "" || p.upload.RefreshToken == "" {
		return stage.Unhealthy(stageName, "youtube credentials not configured")
	}
	return stage.Healthy(stageName)
}
