package portfolio

import (
	"context"
	"fmt"
	"strings"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// Quote is the subset of a market quote the snapshot uses.
type Quote struct {
	Current       float64
	PreviousClose float64
}

// Profile names a listed company.
type Profile struct {
	Name     string
	Currency string
}

// QuoteSource looks up quotes and company profiles by symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	Profile(ctx context.Context, symbol string) (Profile, error)
}

// FinnhubClient implements QuoteSource against the Finnhub REST API.
type FinnhubClient struct {
	api *finnhub.DefaultApiService
}

// NewFinnhubClient authenticates every request with apiKey.
func NewFinnhubClient(apiKey string) *FinnhubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	return &FinnhubClient{api: finnhub.NewAPIClient(cfg).DefaultApi}
}

// Quote returns the latest price and previous close. A zero current price
// means Finnhub does not know the symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	res, _, err := c.api.Quote(ctx).Symbol(symbol).Execute()
	if err != nil {
		return Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	quote := Quote{
		Current:       float64(res.GetC()),
		PreviousClose: float64(res.GetPc()),
	}
	if quote.Current == 0 {
		return Quote{}, fmt.Errorf("finnhub quote %s: no price data", symbol)
	}
	return quote, nil
}

// Profile returns the company name and reporting currency.
func (c *FinnhubClient) Profile(ctx context.Context, symbol string) (Profile, error) {
	res, _, err := c.api.CompanyProfile2(ctx).Symbol(symbol).Execute()
	if err != nil {
		return Profile{}, fmt.Errorf("finnhub profile %s: %w", symbol, err)
	}
	return Profile{
		Name:     strings.TrimSpace(res.GetName()),
		Currency: strings.TrimSpace(res.GetCurrency()),
	}, nil
}
