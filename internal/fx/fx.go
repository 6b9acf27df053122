// Package fx provides currency exchange rate fetching and caching.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the exchangerate-api.com latest-rates endpoint.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// Client fetches spot rates from exchangerate-api.com. Rates are cached
// in memory for the configured TTL; concurrent lookups for the same pair
// collapse into one upstream request. When the API is unreachable a stale
// cached rate is served rather than failing the caller.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
	ttl     time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedRate
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithTTL overrides how long a fetched rate is considered fresh.
func WithTTL(ttl time.Duration) ClientOption {
	return func(c *Client) { c.ttl = ttl }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates an exchangerate-api.com client.
func NewClient(log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "exchangerate-api").Logger(),
		ttl:     time.Hour,
		cache:   make(map[string]cachedRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentRate returns how many units of the destination currency one unit
// of the source currency buys, e.g. CurrentRate(ctx, "JPY", "GBP") yields
// GBP per JPY.
func (c *Client) CurrentRate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return 1.0, nil
	}
	pair := from + ":" + to

	if rate, ok := c.fresh(pair); ok {
		return rate, nil
	}

	v, err, _ := c.group.Do(pair, func() (any, error) {
		// A concurrent caller may have populated the cache while this
		// call waited on the flight group.
		if rate, ok := c.fresh(pair); ok {
			return rate, nil
		}
		rate, err := c.fetch(ctx, from, to)
		if err != nil {
			if stale, ok := c.stale(pair); ok {
				c.log.Warn().Err(err).Str("pair", pair).Float64("rate", stale).
					Msg("rate fetch failed, using stale cached rate")
				return stale, nil
			}
			return 0.0, err
		}
		c.store(pair, rate)
		c.log.Info().Str("from", from).Str("to", to).Float64("rate", rate).Msg("fetched rate")
		return rate, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (c *Client) fetch(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("parse rate response: %w", err)
	}

	rate, ok := result.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no usable rate for %s->%s", from, to)
	}
	return rate, nil
}

func (c *Client) fresh(pair string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[pair]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return 0, false
	}
	return entry.rate, true
}

// stale returns a cached rate regardless of age. Stale data beats no data.
func (c *Client) stale(pair string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[pair]
	return entry.rate, ok
}

func (c *Client) store(pair string, rate float64) {
	c.mu.Lock()
	c.cache[pair] = cachedRate{rate: rate, fetchedAt: time.Now()}
	c.mu.Unlock()
}

// StaticProvider answers every lookup with a fixed rate. Used when the
// operator pins the rate in config instead of polling the API.
type StaticProvider struct {
	Rate float64
}

// CurrentRate returns the pinned rate.
func (s StaticProvider) CurrentRate(_ context.Context, from, to string) (float64, error) {
	if strings.EqualFold(from, to) {
		return 1.0, nil
	}
	if s.Rate <= 0 {
		return 0, fmt.Errorf("static rate not configured")
	}
	return s.Rate, nil
}

// Fallback tries the primary provider and falls back to the secondary
// when the primary fails. Wiring a StaticProvider as secondary keeps
// analysis runs alive through API outages.
type Fallback struct {
	Primary   RateProvider
	Secondary RateProvider
	Log       zerolog.Logger
}

// RateProvider is the lookup surface shared by all rate sources.
type RateProvider interface {
	CurrentRate(ctx context.Context, from, to string) (float64, error)
}

// CurrentRate implements RateProvider.
func (f Fallback) CurrentRate(ctx context.Context, from, to string) (float64, error) {
	rate, err := f.Primary.CurrentRate(ctx, from, to)
	if err == nil {
		return rate, nil
	}
	f.Log.Warn().Err(err).Str("from", from).Str("to", to).
		Msg("primary rate source failed, trying fallback")
	return f.Secondary.CurrentRate(ctx, from, to)
}
