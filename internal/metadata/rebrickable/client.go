// Package rebrickable is a rate-limited client for the Rebrickable v3 API.
// It supplies set inventories for sets the local catalog does not know.
package rebrickable

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/brickcomplete/brickcomplete-server/internal/metrics"
	"github.com/brickcomplete/brickcomplete-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the public Rebrickable API host.
	DefaultBaseURL = "https://rebrickable.com"

	// Rate limit: 1 request per second, burst of 3
	defaultRPS   = 1.0
	defaultBurst = 3
	limiterKey   = "rebrickable"

	// HTTP client settings
	defaultTimeout = 15 * time.Second

	// Circuit breaker: open after 5 consecutive failures, probe after 30s
	breakerTrips   = 5
	breakerTimeout = 30 * time.Second

	pageSize = 1000
	maxPages = 50

	upstreamLabel = "rebrickable"
)

// Options configures the client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RPS and Burst override the outbound rate limit.
	RPS   float64
	Burst int

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is a rate-limited, circuit-broken Rebrickable API client.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.KeyedRateLimiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New creates a new Rebrickable client.
func New(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
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
		http:    httpClient,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		limiter: ratelimit.New(opts.RPS, opts.Burst),
		breaker: newBreaker(logger),
		logger:  logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        upstreamLabel,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		// A missing set or a canceled caller says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// GetSet returns a set's metadata.
func (c *Client) GetSet(ctx context.Context, setNumber string) (*Set, error) {
	var set Set
	if err := c.getJSON(ctx, "/api/v3/lego/sets/"+url.PathEscape(setNumber)+"/", &set); err != nil {
		return nil, wrapError("getSet", setNumber, err)
	}
	return &set, nil
}

// GetTheme returns a theme by ID.
func (c *Client) GetTheme(ctx context.Context, id int) (*Theme, error) {
	var theme Theme
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v3/lego/themes/%d/", id), &theme); err != nil {
		return nil, wrapError("getTheme", "", err)
	}
	return &theme, nil
}

// GetSetParts returns the set-level parts of a set, without minifigure parts.
func (c *Client) GetSetParts(ctx context.Context, setNumber string) ([]InventoryPart, error) {
	query := url.Values{}
	query.Set("page_size", fmt.Sprint(pageSize))
	query.Set("inc_minifig_parts", "0")

	parts, err := getPages[InventoryPart](ctx, c, "/api/v3/lego/sets/"+url.PathEscape(setNumber)+"/parts/", query)
	if err != nil {
		return nil, wrapError("getSetParts", setNumber, err)
	}
	return parts, nil
}

// GetSetMinifigs returns the minifigures of a set with their quantities.
func (c *Client) GetSetMinifigs(ctx context.Context, setNumber string) ([]SetMinifig, error) {
	query := url.Values{}
	query.Set("page_size", fmt.Sprint(pageSize))

	figs, err := getPages[SetMinifig](ctx, c, "/api/v3/lego/sets/"+url.PathEscape(setNumber)+"/minifigs/", query)
	if err != nil {
		return nil, wrapError("getSetMinifigs", setNumber, err)
	}
	return figs, nil
}

// GetMinifigParts returns the parts of a single copy of a minifigure.
func (c *Client) GetMinifigParts(ctx context.Context, figNumber string) ([]InventoryPart, error) {
	query := url.Values{}
	query.Set("page_size", fmt.Sprint(pageSize))

	parts, err := getPages[InventoryPart](ctx, c, "/api/v3/lego/minifigs/"+url.PathEscape(figNumber)+"/parts/", query)
	if err != nil {
		return nil, wrapError("getMinifigParts", figNumber, err)
	}
	return parts, nil
}

// getPages collects every page of a list endpoint, following next links.
func getPages[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var (
		out  []T
		next = c.baseURL + path + "?" + query.Encode()
	)

	for i := 0; next != ""; i++ {
		if i == maxPages {
			return nil, fmt.Errorf("more than %d pages", maxPages)
		}

		body, err := c.doRequest(ctx, next)
		if err != nil {
			return nil, err
		}

		var p page[T]
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		out = append(out, p.Results...)
		next = p.Next
	}

	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	body, err := c.doRequest(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// doRequest executes a GET with rate limiting behind the circuit breaker.
func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, fullURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.UpstreamRequestsTotal.WithLabelValues(upstreamLabel, "circuit_open").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// do performs one HTTP round trip and maps the status to a sentinel.
func (c *Client) do(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "BrickComplete/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "key "+c.apiKey)
	}

	c.logger.Debug("rebrickable request", "url", req.URL.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(upstreamLabel, "transport_error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(upstreamLabel, fmt.Sprint(resp.StatusCode)).Inc()

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
