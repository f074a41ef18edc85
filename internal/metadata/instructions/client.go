// Package instructions checks for and scrapes LEGO building instructions.
//
// Availability comes from the lego.com building-instructions page; page images
// are scraped from brickinstructions.com.
package instructions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brickcomplete/brickcomplete-server/internal/metrics"
	"github.com/brickcomplete/brickcomplete-server/internal/ratelimit"
)

const (
	// DefaultLegoBaseURL hosts the official building-instructions pages.
	DefaultLegoBaseURL = "https://www.lego.com"

	// DefaultBrickInstructionsBaseURL hosts the scanned instruction pages.
	DefaultBrickInstructionsBaseURL = "https://lego.brickinstructions.com"

	defaultTimeout = 15 * time.Second

	// Per host: 1 request per second, burst of 2
	defaultRPS   = 1.0
	defaultBurst = 2

	maxBodySize = 5 << 20
)

// ErrUnexpectedStatus is returned for any non-200 page response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Options configures the client.
type Options struct {
	LegoBaseURL              string
	BrickInstructionsBaseURL string
	Timeout                  time.Duration

	RPS   float64
	Burst int

	HTTPClient *http.Client
}

// Client fetches instruction pages with a per-host rate limit.
type Client struct {
	http      *http.Client
	legoBase  string
	brickBase string
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
}

// New creates an instructions client.
func New(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.LegoBaseURL == "" {
		opts.LegoBaseURL = DefaultLegoBaseURL
	}
	if opts.BrickInstructionsBaseURL == "" {
		opts.BrickInstructionsBaseURL = DefaultBrickInstructionsBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:      httpClient,
		legoBase:  strings.TrimSuffix(opts.LegoBaseURL, "/"),
		brickBase: strings.TrimSuffix(opts.BrickInstructionsBaseURL, "/"),
		limiter:   ratelimit.New(opts.RPS, opts.Burst),
		logger:    logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// fetchPage GETs a page and returns its status and body.
// Redirects are followed by the HTTP client.
func (c *Client) fetchPage(ctx context.Context, pageURL, upstream string) (int, []byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return 0, nil, fmt.Errorf("parse url: %w", err)
	}

	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return 0, nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; BrickComplete/1.0)")

	c.logger.Debug("instructions request", "url", pageURL)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(upstream, "transport_error").Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestsTotal.WithLabelValues(upstream, fmt.Sprint(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
