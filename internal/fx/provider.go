package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// YahooProvider fetches conversion rates from the Yahoo Finance chart API
// using FX pair symbols (e.g. USDZAR=X). It implements RateProvider.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewYahooProvider creates a provider with a bounded request timeout.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		httpClient: &http.Client{Timeout: 8 * time.Second},
		baseURL:    "https://query1.finance.yahoo.com",
	}
}

// NewYahooProviderWithBaseURL points the provider at an alternate endpoint.
// Used by tests against an httptest server.
func NewYahooProviderWithBaseURL(baseURL string) *YahooProvider {
	p := NewYahooProvider()
	p.baseURL = baseURL
	return p
}

// FetchRate returns how many units of `to` one unit of `from` buys.
func (p *YahooProvider) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s%s=X?interval=1h&range=1d", p.baseURL, from, to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx request %s/%s: %w", from, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fx request %s/%s: http %d", from, to, resp.StatusCode)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
			} `json:"result"`
			Error *string `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("fx response %s/%s: %w", from, to, err)
	}
	if raw.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("fx response %s/%s: %s", from, to, *raw.Chart.Error)
	}
	if len(raw.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("fx response %s/%s: no results", from, to)
	}

	rate := decimal.NewFromFloat(raw.Chart.Result[0].Meta.RegularMarketPrice)
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("fx response %s/%s: non-positive rate %s", from, to, rate)
	}
	return rate, nil
}
