package summarize

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/newsfetch"
	"newsreel/internal/portfolio"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/stage"
)

const stageName = "summarize"

// NoNewsMarker appears in the canned report written when there are no
// articles.
const NoNewsMarker = "No significant news"

const systemPrompt = "You are a financial analyst covering AI and IT companies. Write factual, concise Markdown reports."

//go:embed templates/*.tmpl
var templateFS embed.FS

var numberPrinter = message.NewPrinter(language.English)

var templates = template.Must(template.New("summarize").Funcs(template.FuncMap{
	"inc":    func(i int) int { return i + 1 },
	"money":  func(v float64) string { return formatNumber(v, false) },
	"signed": func(v float64) string { return formatNumber(v, true) },
	"pct":    func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
	"shares": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Result is the summarize step output.
type Result struct {
	Report        string `json:"report"`
	ReportDate    string `json:"report_date"`
	ArticlesCount int    `json:"articles_count"`
	ReportFile    string `json:"report_file"`
}

// Context flattens the result into step output keys.
func (r Result) Context() stage.Context {
	return stage.Context{
		stage.KeyReport:        r.Report,
		stage.KeyReportDate:    r.ReportDate,
		stage.KeyArticlesCount: r.ArticlesCount,
		stage.KeyReportFile:    r.ReportFile,
	}
}

type input struct {
	Articles    []newsfetch.Article `json:"articles"`
	StockPrices *portfolio.Snapshot `json:"stock_prices"`
	HoursAgo    int                 `json:"hours_ago"`
}

type portfolioView struct {
	Date    string
	Summary portfolio.Summary
	Stocks  []portfolio.Stock
}

type promptData struct {
	HoursAgo  int
	Created   string
	Articles  []newsfetch.Article
	Portfolio *portfolioView
}

// Summarizer is the summarize step handler.
type Summarizer struct {
	llm      llm.TextGenerator
	layout   artifacts.Layout
	hoursAgo int
	logger   *slog.Logger
	now      func() time.Time
}

// NewSummarizer constructs the step.
func NewSummarizer(cfg *config.Config, client llm.TextGenerator, logger *slog.Logger) *Summarizer {
	return NewSummarizerWithClock(cfg, client, logger, time.Now)
}

// NewSummarizerWithClock allows injecting the clock (used in tests).
func NewSummarizerWithClock(cfg *config.Config, client llm.TextGenerator, logger *slog.Logger, now func() time.Time) *Summarizer {
	if now == nil {
		now = time.Now
	}
	s := &Summarizer{
		llm:      client,
		layout:   artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		hoursAgo: cfg.Feeds.HoursAgo,
		now:      now,
	}
	s.SetLogger(logger)
	return s
}

// SetLogger swaps the step logger.
func (s *Summarizer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s.logger = logging.NewComponentLogger(logger, "summarize")
}

// Execute writes daily_report.md.
func (s *Summarizer) Execute(ctx context.Context, in stage.Context) (stage.Context, error) {
	logger := logging.WithContext(ctx, s.logger)
	params, err := stage.Decode[input](in)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode input", "articles or stock_prices have an unexpected shape", err)
	}
	hours := params.HoursAgo
	if hours <= 0 {
		hours = s.hoursAgo
	}
	if hours <= 0 {
		hours = 24
	}
	now := s.now()
	data := promptData{
		HoursAgo: hours,
		Created:  now.Format("2006年01月02日 15:04"),
		Articles: params.Articles,
	}
	if snap := params.StockPrices; snap != nil && len(snap.Stocks) > 0 {
		data.Portfolio = &portfolioView{
			Date:    now.Format("2006年01月02日"),
			Summary: snap.PortfolioSummary,
			Stocks:  snap.Stocks,
		}
	}

	var report string
	if len(params.Articles) == 0 {
		logging.WarnWithContext(logger, "no articles to summarize", "summarize_empty",
			logging.String(logging.FieldImpact, "canned report written instead of an analysis"),
		)
		report, err = render("empty_report.tmpl", data)
		if err != nil {
			return nil, err
		}
	} else {
		if s.llm == nil {
			return nil, services.Wrap(services.ErrConfiguration, stageName, "generate report", "text model not configured", nil)
		}
		prompt, err := render("prompt.tmpl", data)
		if err != nil {
			return nil, err
		}
		logger.Info("analyzing articles",
			logging.Int("articles", len(params.Articles)),
			logging.Bool("portfolio", data.Portfolio != nil),
		)
		report, err = s.llm.CompleteText(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalService, stageName, "generate report", "text model call failed", err)
		}
		report = strings.TrimSpace(report)
		if report == "" {
			return nil, services.Wrap(services.ErrExternalService, stageName, "generate report", "text model returned an empty report", nil)
		}
	}

	result := Result{
		Report:        report,
		ReportDate:    now.Format(time.RFC3339),
		ArticlesCount: len(params.Articles),
		ReportFile:    s.layout.ReportPath(),
	}
	if err := artifacts.SaveText(result.ReportFile, report); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save report", result.ReportFile, err)
	}
	logger.Info("report saved",
		logging.String(logging.FieldEventType, "report_saved"),
		logging.String("path", result.ReportFile),
		logging.Int("length", len([]rune(report))),
	)
	return result.Context(), nil
}

// Hydrate reloads daily_report.md.
func (s *Summarizer) Hydrate(context.Context) (stage.Context, error) {
	return LoadReport(s.layout.ReportPath())
}

// LoadReport reads a report file supplied on the command line.
func LoadReport(path string) (stage.Context, error) {
	report, err := artifacts.LoadText(path)
	if err != nil {
		return nil, err
	}
	return stage.Context{
		stage.KeyReport:     report,
		stage.KeyReportFile: path,
	}, nil
}

// HealthCheck verifies the text model is configured.
func (s *Summarizer) HealthCheck(ctx context.Context) stage.Health {
	if s.llm == nil {
		return stage.Unhealthy(stageName, "text model not configured")
	}
	return stage.FromProbe(stageName, s.llm.HealthCheck(ctx))
}

func render(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", services.Wrap(services.ErrParse, stageName, "render template", name, err)
	}
	return buf.String(), nil
}

// formatNumber renders v with thousands separators and two decimals.
func formatNumber(v float64, signed bool) string {
	if signed {
		return numberPrinter.Sprintf("%+.2f", v)
	}
	return numberPrinter.Sprintf("%.2f", v)
}
