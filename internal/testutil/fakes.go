package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
)

// FakeQuoteSource is an in-memory quote.Source for tests. Symbols without a
// configured quote, or any call while Err is set, fail.
type FakeQuoteSource struct {
	mu     sync.Mutex
	quotes map[string]model.Quote
	Err    error
}

// NewFakeQuoteSource creates an empty FakeQuoteSource.
func NewFakeQuoteSource() *FakeQuoteSource {
	return &FakeQuoteSource{quotes: make(map[string]model.Quote)}
}

// SetQuote configures the price returned for a symbol.
func (f *FakeQuoteSource) SetQuote(symbol, price, currency string, asOf time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = model.Quote{
		Symbol:   symbol,
		Price:    Dec(price),
		Currency: currency,
		AsOf:     asOf,
	}
}

// Fail makes every subsequent call return err, simulating a provider outage.
func (f *FakeQuoteSource) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

// LatestQuote implements quote.Source.
func (f *FakeQuoteSource) LatestQuote(_ context.Context, symbol string) (model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return model.Quote{}, f.Err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return model.Quote{}, apperrors.ErrQuoteNotFound
	}
	return q, nil
}

// FakeRateProvider is an in-memory fx.RateProvider for tests.
type FakeRateProvider struct {
	mu      sync.Mutex
	rates   map[[2]string]decimal.Decimal
	Err     error
	stalled bool
}

// NewFakeRateProvider creates an empty FakeRateProvider.
func NewFakeRateProvider() *FakeRateProvider {
	return &FakeRateProvider{rates: make(map[[2]string]decimal.Decimal)}
}

// SetRate configures the rate returned for a currency pair.
func (f *FakeRateProvider) SetRate(from, to, rate string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[[2]string{from, to}] = Dec(rate)
}

// Fail makes every subsequent fetch return err, simulating a provider outage.
func (f *FakeRateProvider) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

// Stall makes every subsequent fetch block until the caller's context is
// cancelled, simulating a hung provider.
func (f *FakeRateProvider) Stall() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stalled = true
}

// FetchRate implements fx.RateProvider.
func (f *FakeRateProvider) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	f.mu.Lock()
	if f.stalled {
		f.mu.Unlock()
		<-ctx.Done()
		return decimal.Decimal{}, ctx.Err()
	}
	defer f.mu.Unlock()
	if f.Err != nil {
		return decimal.Decimal{}, f.Err
	}
	rate, ok := f.rates[[2]string{from, to}]
	if !ok {
		return decimal.Decimal{}, apperrors.ErrRateUnavailable
	}
	return rate, nil
}
