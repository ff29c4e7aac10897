// Package fx resolves conversion rates between currency codes. Rates are
// cached with a TTL and served from the (possibly stale) cache when the
// upstream provider is unavailable: a day-old exchange rate degrades the
// valuation quality, refusing to valuate at all degrades the product.
package fx

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
)

// DefaultTTL is the freshness window for cached rates.
const DefaultTTL = time.Hour

// Rate is a resolved conversion rate. Stale marks a value served past its
// TTL because the provider could not be reached; callers log or report it,
// they do not fail on it.
type Rate struct {
	From      string
	To        string
	Value     decimal.Decimal
	FetchedAt time.Time
	Stale     bool
}

// RateProvider fetches a conversion rate from an external source.
// Implementations are expected to honor context cancellation.
type RateProvider interface {
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Store persists successfully fetched rates so the cache can warm-start
// after a restart. A nil Store disables persistence.
type Store interface {
	SaveRate(from, to string, rate decimal.Decimal, fetchedAt time.Time) error
	LatestRates() (map[[2]string]Rate, error)
}

type entry struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Cache is an injected component instance with explicit lifecycle: construct
// one per process and hand it to the valuator. No module-level state.
type Cache struct {
	provider RateProvider
	store    Store
	ttl      time.Duration
	log      zerolog.Logger

	mu      sync.RWMutex
	entries map[[2]string]entry

	flight singleflight.Group

	// now is swappable for TTL tests.
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithStore attaches a persistence layer for warm-starts.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a rate cache backed by the given provider.
func NewCache(provider RateProvider, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		provider: provider,
		ttl:      DefaultTTL,
		log:      log,
		entries:  make(map[[2]string]entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil {
		c.warmStart()
	}
	return c
}

// warmStart seeds the cache from the newest persisted rate per pair. Entries
// are loaded with their original fetch time, so anything older than the TTL
// is immediately treated as stale-fallback material rather than fresh.
func (c *Cache) warmStart() {
	rates, err := c.store.LatestRates()
	if err != nil {
		c.log.Warn().Err(err).Msg("fx cache warm-start failed")
		return
	}
	for pair, r := range rates {
		c.entries[pair] = entry{rate: r.Value, fetchedAt: r.FetchedAt}
	}
	if len(rates) > 0 {
		c.log.Info().Int("pairs", len(rates)).Msg("fx cache warm-started from persisted rates")
	}
}

// GetRate resolves the conversion rate from one currency to another.
//
// An identical pair costs nothing and never expires. A fresh cache entry is
// returned as-is. Otherwise the provider is called, with concurrent misses
// for the same pair coalesced into a single in-flight request; on provider
// failure any prior entry is returned flagged stale, and only a pair that
// has never been fetched at all fails with ErrRateUnavailable.
func (c *Cache) GetRate(ctx context.Context, from, to string) (Rate, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return Rate{}, apperrors.ErrInvalidCurrency
	}

	if from == to {
		return Rate{From: from, To: to, Value: decimal.NewFromInt(1), FetchedAt: c.now()}, nil
	}

	pair := [2]string{from, to}

	c.mu.RLock()
	cached, ok := c.entries[pair]
	c.mu.RUnlock()

	if ok && c.now().Sub(cached.fetchedAt) < c.ttl {
		return Rate{From: from, To: to, Value: cached.rate, FetchedAt: cached.fetchedAt}, nil
	}

	return c.fetch(ctx, from, to, cached, ok)
}

func (c *Cache) fetch(ctx context.Context, from, to string, cached entry, hasCached bool) (Rate, error) {
	key := from + "/" + to

	result, err, _ := c.flight.Do(key, func() (interface{}, error) {
		value, err := c.provider.FetchRate(ctx, from, to)
		if err != nil {
			return nil, err
		}
		fetchedAt := c.now()

		c.mu.Lock()
		c.entries[[2]string{from, to}] = entry{rate: value, fetchedAt: fetchedAt}
		c.mu.Unlock()

		if c.store != nil {
			if err := c.store.SaveRate(from, to, value, fetchedAt); err != nil {
				c.log.Warn().Err(err).Str("pair", key).Msg("failed to persist exchange rate")
			}
		}
		return Rate{From: from, To: to, Value: value, FetchedAt: fetchedAt}, nil
	})

	if err == nil {
		return result.(Rate), nil
	}

	// A coalesced follower may arrive here without its own cache snapshot;
	// re-check before deciding between stale fallback and hard failure.
	if !hasCached {
		c.mu.RLock()
		cached, hasCached = c.entries[[2]string{from, to}]
		c.mu.RUnlock()
	}

	if hasCached {
		c.log.Warn().
			Err(err).
			Str("pair", key).
			Time("fetched_at", cached.fetchedAt).
			Dur("age", c.now().Sub(cached.fetchedAt)).
			Msg("rate provider unavailable, serving stale cached rate")
		return Rate{From: from, To: to, Value: cached.rate, FetchedAt: cached.fetchedAt, Stale: true}, nil
	}

	c.log.Error().Err(err).Str("pair", key).Msg("rate provider unavailable and no cached rate exists")
	return Rate{}, apperrors.ErrRateUnavailable
}

// Pairs returns the currency pairs currently cached, for refresh scheduling.
func (c *Cache) Pairs() [][2]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pairs := make([][2]string, 0, len(c.entries))
	for pair := range c.entries {
		pairs = append(pairs, pair)
	}
	return pairs
}
