// Package quote fetches current market prices from the Yahoo Finance chart
// API. The engine treats prices as a supplied capability: a failed fetch is
// never fatal, it degrades valuation to the last persisted quote.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
)

// Source supplies the latest price for a symbol in its native currency.
type Source interface {
	LatestQuote(ctx context.Context, symbol string) (model.Quote, error)
}

// Client queries the Yahoo Finance chart API for recent daily closes.
// It implements Source.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Yahoo Finance client with a bounded request timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 8 * time.Second},
		baseURL:    "https://query1.finance.yahoo.com",
	}
}

// NewClientWithBaseURL points the client at an alternate endpoint. Tests use
// this against an httptest server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// chartResponse maps the subset of the Yahoo chart payload the engine needs:
// symbol metadata plus the series of daily closes.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *string `json:"error"`
	} `json:"chart"`
}

// LatestQuote fetches the last five trading days for the symbol and returns
// the most recent close together with its currency and timestamp.
func (c *Client) LatestQuote(ctx context.Context, symbol string) (model.Quote, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Quote{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Quote{}, fmt.Errorf("quote request for %s: http %d", symbol, resp.StatusCode)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return model.Quote{}, fmt.Errorf("quote response for %s: %w", symbol, err)
	}
	if raw.Chart.Error != nil {
		return model.Quote{}, fmt.Errorf("quote response for %s: %s", symbol, *raw.Chart.Error)
	}

	return parseLatest(symbol, raw)
}

// parseLatest extracts the newest non-zero close from the chart series.
// Yahoo pads the close array with zeros for days without trades, so the scan
// walks backwards to the last real price.
func parseLatest(symbol string, raw chartResponse) (model.Quote, error) {
	if len(raw.Chart.Result) == 0 {
		return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteNotFound, symbol)
	}
	result := raw.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return model.Quote{}, fmt.Errorf("%w: %s has no price data", apperrors.ErrQuoteNotFound, symbol)
	}

	closes := result.Indicators.Quote[0].Close
	n := len(closes)
	if n > len(result.Timestamp) {
		n = len(result.Timestamp)
	}

	for i := n - 1; i >= 0; i-- {
		if closes[i] > 0 {
			return model.Quote{
				Symbol:   symbol,
				Price:    decimal.NewFromFloat(closes[i]),
				Currency: result.Meta.Currency,
				AsOf:     time.Unix(result.Timestamp[i], 0).UTC(),
			}, nil
		}
	}
	return model.Quote{}, fmt.Errorf("%w: %s has no usable close", apperrors.ErrQuoteNotFound, symbol)
}
