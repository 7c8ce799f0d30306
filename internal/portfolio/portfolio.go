package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/services"
	"newsreel/internal/stage"
)

const component = "portfolio"

// Holding is one row of portfolio.csv.
type Holding struct {
	Symbol        string
	Name          string
	Currency      string
	Shares        float64
	PurchasePrice float64
}

// Stock is a holding valued at the latest quote.
type Stock struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Currency        string  `json:"currency"`
	CurrentPrice    float64 `json:"current_price"`
	PreviousClose   float64 `json:"previous_close"`
	Change          float64 `json:"change"`
	ChangePercent   float64 `json:"change_percent"`
	Shares          float64 `json:"shares"`
	PurchasePrice   float64 `json:"purchase_price"`
	CurrentValue    float64 `json:"current_value"`
	PurchaseValue   float64 `json:"purchase_value"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
}

// Summary totals the valued holdings.
type Summary struct {
	TotalStocks          int     `json:"total_stocks"`
	TotalCurrentValue    float64 `json:"total_current_value"`
	TotalPurchaseValue   float64 `json:"total_purchase_value"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
}

// Snapshot is the stock_prices value handed to summarize.
type Snapshot struct {
	FetchTime        string  `json:"fetch_time"`
	PortfolioSummary Summary `json:"portfolio_summary"`
	Stocks           []Stock `json:"stocks"`
}

// LoadHoldings reads symbol,shares,purchase_price[,name,currency] rows.
// Rows without a symbol are ignored; unparseable numbers are a ParseError.
func LoadHoldings(path string) ([]Holding, error) {
	rows, err := artifacts.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	holdings := make([]Holding, 0, len(rows))
	for i, row := range rows {
		symbol := strings.ToUpper(strings.TrimSpace(row["symbol"]))
		if symbol == "" {
			continue
		}
		shares, err := strconv.ParseFloat(strings.TrimSpace(row["shares"]), 64)
		if err != nil {
			return nil, services.Wrap(services.ErrParse, component, "load holdings", fmt.Sprintf("row %d: invalid shares", i+2), err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row["purchase_price"]), 64)
		if err != nil {
			return nil, services.Wrap(services.ErrParse, component, "load holdings", fmt.Sprintf("row %d: invalid purchase_price", i+2), err)
		}
		holdings = append(holdings, Holding{
			Symbol:        symbol,
			Name:          strings.TrimSpace(row["name"]),
			Currency:      strings.TrimSpace(row["currency"]),
			Shares:        shares,
			PurchasePrice: price,
		})
	}
	return holdings, nil
}

// Value prices one holding.
func Value(h Holding, q Quote) Stock {
	prev := q.PreviousClose
	if prev == 0 {
		prev = q.Current
	}
	change := q.Current - prev
	currentValue := q.Current * h.Shares
	purchaseValue := h.PurchasePrice * h.Shares
	gain := currentValue - purchaseValue
	return Stock{
		Symbol:          h.Symbol,
		Name:            h.Name,
		Currency:        h.Currency,
		CurrentPrice:    round2(q.Current),
		PreviousClose:   round2(prev),
		Change:          round2(change),
		ChangePercent:   round2(percent(change, prev)),
		Shares:          h.Shares,
		PurchasePrice:   round2(h.PurchasePrice),
		CurrentValue:    round2(currentValue),
		PurchaseValue:   round2(purchaseValue),
		GainLoss:        round2(gain),
		GainLossPercent: round2(percent(gain, purchaseValue)),
	}
}

// Summarize totals stocks.
func Summarize(stocks []Stock) Summary {
	var current, purchase float64
	for _, s := range stocks {
		current += s.CurrentValue
		purchase += s.PurchaseValue
	}
	gain := current - purchase
	return Summary{
		TotalStocks:          len(stocks),
		TotalCurrentValue:    round2(current),
		TotalPurchaseValue:   round2(purchase),
		TotalGainLoss:        round2(gain),
		TotalGainLossPercent: round2(percent(gain, purchase)),
	}
}

func percent(delta, base float64) float64 {
	if base == 0 {
		return 0
	}
	return delta / base * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Service produces snapshots for the configured portfolio.
type Service struct {
	csvPath string
	source  QuoteSource
	layout  artifacts.Layout
	logger  *slog.Logger
	now     func() time.Time
}

// NewService returns nil when the portfolio is disabled.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if cfg == nil || !cfg.Portfolio.Enabled {
		return nil
	}
	return NewServiceWithSource(cfg, logger, NewFinnhubClient(cfg.Portfolio.APIKey), time.Now)
}

// NewServiceWithSource allows injecting the quote source (used in tests).
func NewServiceWithSource(cfg *config.Config, logger *slog.Logger, source QuoteSource, now func() time.Time) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		csvPath: cfg.Portfolio.CSVPath,
		source:  source,
		layout:  artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		logger:  logging.NewComponentLogger(logger, component),
		now:     now,
	}
}

// Snapshot values every holding and writes stock_prices.json. Symbols whose
// quote fails are logged and left out.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	logger := logging.WithContext(ctx, s.logger)
	holdings, err := LoadHoldings(s.csvPath)
	if err != nil {
		return Snapshot{}, err
	}
	stocks := make([]Stock, 0, len(holdings))
	for _, h := range holdings {
		quote, err := s.source.Quote(ctx, h.Symbol)
		if err != nil {
			logging.WarnWithContext(logger, "quote unavailable, holding skipped", "quote_failed",
				logging.String("symbol", h.Symbol),
				logging.Error(err),
				logging.String(logging.FieldImpact, "holding missing from the report"),
			)
			continue
		}
		if h.Name == "" || h.Currency == "" {
			if profile, err := s.source.Profile(ctx, h.Symbol); err == nil {
				h.Name = firstNonEmpty(h.Name, profile.Name)
				h.Currency = firstNonEmpty(h.Currency, profile.Currency)
			} else {
				logger.Debug("profile lookup failed", logging.String("symbol", h.Symbol), logging.Error(err))
			}
		}
		h.Name = firstNonEmpty(h.Name, "N/A")
		h.Currency = firstNonEmpty(h.Currency, "USD")
		stock := Value(h, quote)
		logger.Info("quote fetched",
			logging.String("symbol", stock.Symbol),
			logging.Float64("price", stock.CurrentPrice),
			logging.Float64("change_percent", stock.ChangePercent),
		)
		stocks = append(stocks, stock)
	}
	snapshot := Snapshot{
		FetchTime:        s.now().Format(time.RFC3339),
		PortfolioSummary: Summarize(stocks),
		Stocks:           stocks,
	}
	if err := artifacts.SaveJSON(s.layout.StockPricesPath(), snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("save stock prices: %w", err)
	}
	return snapshot, nil
}

// Seed adds stock_prices to in when the snapshot has any stocks.
func (s *Service) Seed(ctx context.Context, in stage.Context) (stage.Context, error) {
	if s == nil {
		return in, nil
	}
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return in, err
	}
	if len(snapshot.Stocks) == 0 {
		return in, nil
	}
	return in.Merge(stage.Context{stage.KeyStockPrices: snapshot}), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
