// Package feeds holds the HTTP clients for the upstream market data
// providers: source-market auction results, destination-market retail
// listings, and government registration statistics.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const userAgent = "import-scout/1.0"

// Client is a rate-limited JSON HTTP client shared by the feed wrappers.
type Client struct {
	http   *http.Client
	sem    chan struct{}
	apiKey string
	log    zerolog.Logger
}

// NewClient creates a feed client. Concurrency is capped at 10 in-flight
// requests; the upstream providers throttle well below that.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		sem:    make(chan struct{}, 10),
		apiKey: apiKey,
		log:    log.With().Str("component", "feeds").Logger(),
	}
}

// GetJSON fetches rawURL with the given query parameters and decodes the
// JSON body into dst.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, dst any) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// getPaginated walks page=1..n until a page comes back empty, calling
// fetch for each page. fetch reports how many records the page held.
func (c *Client) getPaginated(ctx context.Context, fetch func(ctx context.Context, page int) (int, error)) error {
	const maxPages = 50
	for page := 1; page <= maxPages; page++ {
		n, err := fetch(ctx, page)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

func pageParams(params url.Values, page int) url.Values {
	out := url.Values{}
	for k, v := range params {
		out[k] = v
	}
	out.Set("page", strconv.Itoa(page))
	return out
}
