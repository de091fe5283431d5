package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
)

const DefaultTTL = 30 * time.Minute

// Store persists rate observations.
type Store interface {
	// Latest returns the most recent active rate for the pair dated within
	// [dayStart, dayEnd), or common.ErrNotFound.
	Latest(ctx context.Context, from, to string, dayStart, dayEnd time.Time) (*models.ExchangeRate, error)
	Save(ctx context.Context, r *models.ExchangeRate) error
}

// Provider fetches the full rate table anchored at base.
type Provider interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}

type entry struct {
	rate     float64
	storedAt time.Time
}

// Cache resolves exchange rates. It is safe for concurrent use; concurrent
// misses on one key share a single store and provider round trip.
type Cache struct {
	store    Store
	provider Provider
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

func NewCache(store Store, provider Provider, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		store:    store,
		provider: provider,
		ttl:      opts.TTL,
		now:      opts.Now,
		log:      opts.Logger,
		entries:  make(map[string]entry),
	}
}

func cacheKey(from, to string, day time.Time) string {
	return from + "|" + to + "|" + day.Format(time.DateOnly)
}

// Rate returns the rate converting from into to as of date. A zero date
// means now. It never fails: when no live rate can be found the built-in
// table answers.
func (c *Cache) Rate(ctx context.Context, from, to string, date time.Time) float64 {
	from, to = models.NormalizeCurrency(from), models.NormalizeCurrency(to)
	if from == to {
		return 1
	}
	if date.IsZero() {
		date = c.now()
	}
	day := models.Day(date)
	key := cacheKey(from, to, day)

	if r, ok := c.cached(key); ok {
		return r
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have filled the key while we waited.
		if r, ok := c.cached(key); ok {
			return r, nil
		}
		return c.load(context.WithoutCancel(ctx), from, to, date, day, key), nil
	})
	return v.(float64)
}

func (c *Cache) cached(key string) (float64, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return 0, false
	}
	return e.rate, true
}

func (c *Cache) put(key string, rate float64) {
	c.mu.Lock()
	c.entries[key] = entry{rate: rate, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *Cache) load(ctx context.Context, from, to string, date, day time.Time, key string) float64 {
	if c.store != nil {
		rec, err := c.store.Latest(ctx, from, to, day, day.AddDate(0, 0, 1))
		switch {
		case err == nil && validRate(rec.Rate):
			c.put(key, rec.Rate)
			return rec.Rate
		case err != nil && !errors.Is(err, common.ErrNotFound):
			c.log.Warn("exchange rate store lookup failed", "from", from, "to", to, "error", err)
		}
	}

	rate, err := c.fetch(ctx, from, to)
	if err != nil {
		fb, exact := fallbackRate(from, to)
		if exact {
			c.log.Warn("exchange rate provider unavailable, using fallback",
				"from", from, "to", to, "rate", fb, "error", err)
		} else {
			c.log.Error("no fallback exchange rate for pair, using 1", "from", from, "to", to, "error", err)
		}
		return fb
	}

	if c.store != nil {
		rec := &models.ExchangeRate{
			FromCurrency: from,
			ToCurrency:   to,
			Rate:         rate,
			Date:         date,
			Source:       models.RateSourceAPI,
			IsActive:     true,
		}
		if err := c.store.Save(ctx, rec); err != nil {
			c.log.Warn("persist exchange rate failed", "from", from, "to", to, "error", err)
		}
	}
	c.put(key, rate)
	return rate
}

func (c *Cache) fetch(ctx context.Context, from, to string) (float64, error) {
	if c.provider == nil {
		return 0, errors.New("no rate provider configured")
	}
	rates, err := c.provider.FetchRates(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := rates[to]
	if !ok {
		return 0, fmt.Errorf("provider table for %s has no %s entry", from, to)
	}
	if !validRate(rate) {
		return 0, fmt.Errorf("provider returned unusable rate %v for %s/%s", rate, from, to)
	}
	return rate, nil
}

func validRate(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}

// Convert returns amount expressed in to, as of date.
func (c *Cache) Convert(ctx context.Context, amount float64, from, to string, date time.Time) float64 {
	return amount * c.Rate(ctx, from, to, date)
}

// MultipleRates resolves base against each target independently.
func (c *Cache) MultipleRates(ctx context.Context, base string, targets []string, date time.Time) map[string]float64 {
	base = models.NormalizeCurrency(base)
	out := make(map[string]float64, len(targets))
	for _, t := range targets {
		t = models.NormalizeCurrency(t)
		if t == base {
			out[t] = 1
			continue
		}
		out[t] = c.Rate(ctx, base, t, date)
	}
	return out
}

// Clear drops every in-process entry. Persisted rates are untouched.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of cached entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
