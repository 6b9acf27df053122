package fx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateServer(t *testing.T, calls *atomic.Int64, rate float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"base":"JPY","rates":{"GBP":%g,"USD":0.0067}}`, rate)
	}))
}

func TestCurrentRateFetchAndCache(t *testing.T) {
	var calls atomic.Int64
	srv := rateServer(t, &calls, 0.0055)
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
	ctx := context.Background()

	rate, err := c.CurrentRate(ctx, "JPY", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 0.0055, rate)

	// Second lookup is served from cache.
	rate, err = c.CurrentRate(ctx, "jpy", "gbp")
	require.NoError(t, err)
	assert.Equal(t, 0.0055, rate)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCurrentRateSamePair(t *testing.T) {
	c := NewClient(zerolog.Nop(), WithBaseURL("http://127.0.0.1:0"))
	rate, err := c.CurrentRate(context.Background(), "GBP", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestCurrentRateMissingCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base":"JPY","rates":{"USD":0.0067}}`)
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
	_, err := c.CurrentRate(context.Background(), "JPY", "GBP")
	assert.ErrorContains(t, err, "no usable rate")
}

func TestCurrentRateStaleFallback(t *testing.T) {
	var calls atomic.Int64
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"base":"JPY","rates":{"GBP":0.0055}}`)
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL), WithTTL(time.Nanosecond))
	ctx := context.Background()

	rate, err := c.CurrentRate(ctx, "JPY", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 0.0055, rate)

	// TTL has elapsed; the API now fails but the stale rate survives.
	failing.Store(true)
	time.Sleep(time.Millisecond)
	rate, err = c.CurrentRate(ctx, "JPY", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 0.0055, rate)
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
}

func TestCurrentRateFailsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop(), WithBaseURL(srv.URL))
	_, err := c.CurrentRate(context.Background(), "JPY", "GBP")
	assert.ErrorContains(t, err, "status 500")
}

func TestStaticProvider(t *testing.T) {
	p := StaticProvider{Rate: 0.0055}
	rate, err := p.CurrentRate(context.Background(), "JPY", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 0.0055, rate)

	_, err = StaticProvider{}.CurrentRate(context.Background(), "JPY", "GBP")
	assert.Error(t, err)
}

func TestFallbackUsesSecondary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := Fallback{
		Primary:   NewClient(zerolog.Nop(), WithBaseURL(srv.URL)),
		Secondary: StaticProvider{Rate: 0.006},
		Log:       zerolog.Nop(),
	}
	rate, err := f.CurrentRate(context.Background(), "JPY", "GBP")
	require.NoError(t, err)
	assert.Equal(t, 0.006, rate)
}
