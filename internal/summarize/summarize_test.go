package summarize

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"newsreel/internal/newsfetch"
	"newsreel/internal/portfolio"
	"newsreel/internal/services"
	"newsreel/internal/stage"
	"newsreel/internal/testsupport"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func TestEmptyArticlesWritesCannedReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &testsupport.StubLLM{}
	s := NewSummarizerWithClock(cfg, stub, nil, func() time.Time { return fixedNow })

	out, err := s.Execute(context.Background(), stage.Context{stage.KeyArticles: []newsfetch.Article{}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	report := out[stage.KeyReport].(string)
	if report == "" || !strings.Contains(report, NoNewsMarker) {
		t.Fatalf("report missing marker:\n%s", report)
	}
	if len(stub.Prompts()) != 0 {
		t.Fatal("model called for empty article list")
	}
	if out[stage.KeyArticlesCount] != 0 {
		t.Fatalf("articles_count = %v", out[stage.KeyArticlesCount])
	}
	saved, err := os.ReadFile(out[stage.KeyReportFile].(string))
	if err != nil || string(saved) != report {
		t.Fatalf("saved report mismatch: %v", err)
	}
}

func TestMissingArticlesKeyUsesFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := NewSummarizerWithClock(cfg, nil, nil, func() time.Time { return fixedNow })
	out, err := s.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out[stage.KeyReport].(string), NoNewsMarker) {
		t.Fatal("expected fallback report")
	}
}

func TestPromptIncludesArticlesAndPortfolio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &testsupport.StubLLM{Respond: func(int, string, string) (string, error) {
		return "  # AI/IT株式投資 日次レポート\n本文\n", nil
	}}
	s := NewSummarizerWithClock(cfg, stub, nil, func() time.Time { return fixedNow })

	snapshot := portfolio.Snapshot{
		PortfolioSummary: portfolio.Summary{TotalStocks: 1, TotalCurrentValue: 12345.5, TotalPurchaseValue: 10000, TotalGainLoss: 2345.5, TotalGainLossPercent: 23.46},
		Stocks: []portfolio.Stock{{
			Symbol: "NVDA", Name: "NVIDIA", Currency: "USD", CurrentPrice: 123.45, ChangePercent: -1.5,
			Shares: 100, CurrentValue: 12345.5, GainLoss: 2345.5, GainLossPercent: 23.46,
		}},
	}
	// Reloaded-from-disk shapes decode the same as typed values.
	in := stage.Context{
		stage.KeyArticles: []any{map[string]any{
			"source": "NVIDIA", "category": "GPU/AI Hardware", "title": "New GPU",
			"link": "https://example.com/gpu", "published": "2026-10-15T07:00:00Z", "summary": "Launch",
		}},
		stage.KeyStockPrices: snapshot,
	}
	out, err := s.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	prompts := stub.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("prompts = %d", len(prompts))
	}
	for _, want := range []string{"記事 1:", "タイトル: New GPU", "NVIDIA (NVDA)", "USD 123.45 (-1.50%)", "総評価額: 12,345.50", "総損益: +2,345.50 (+23.46%)", "保有株数: 100株", "2026年10月15日 09:30"} {
		if !strings.Contains(prompts[0].User, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompts[0].User)
		}
	}
	if got := out[stage.KeyReport]; got != "# AI/IT株式投資 日次レポート\n本文" {
		t.Fatalf("report = %q", got)
	}
	if out[stage.KeyArticlesCount] != 1 || out[stage.KeyReportDate] != fixedNow.Format(time.RFC3339) {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestModelFailureIsExternalServiceError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &testsupport.StubLLM{Respond: func(int, string, string) (string, error) {
		return "", errors.New("quota")
	}}
	s := NewSummarizer(cfg, stub, nil)
	_, err := s.Execute(context.Background(), stage.Context{stage.KeyArticles: []newsfetch.Article{{Title: "x"}}})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
}

func TestHydrateReloadsReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := NewSummarizer(cfg, nil, nil)
	if _, err := s.Hydrate(context.Background()); !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("Hydrate on empty tree err = %v", err)
	}
	if _, err := s.Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, err := s.Hydrate(context.Background())
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if !strings.Contains(got[stage.KeyReport].(string), NoNewsMarker) {
		t.Fatalf("hydrated report = %v", got[stage.KeyReport])
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in     float64
		signed bool
		want   string
	}{
		{1234567.891, false, "1,234,567.89"},
		{-1234.5, true, "-1,234.50"},
		{12.3, true, "+12.30"},
		{0, false, "0.00"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in, tt.signed); got != tt.want {
			t.Errorf("formatNumber(%v, %v) = %q, want %q", tt.in, tt.signed, got, tt.want)
		}
	}
}
