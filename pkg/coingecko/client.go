package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL serves the public and demo tiers.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	// ProBaseURL serves the paid tier.
	ProBaseURL = "https://pro-api.coingecko.com/api/v3"

	defaultHTTPTimeout = 20 * time.Second
	maxErrorBody       = 512
)

// Tier selects the API key header.
type Tier string

const (
	TierDemo Tier = "demo"
	TierPro  Tier = "pro"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko: %s: http status %d: %s", e.URL, e.Status, e.Body)
}

// Client is a thin typed wrapper over the CoinGecko REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	tier       Tier
	limiter    *rate.Limiter
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sends key on every request using the header of the given tier.
func WithAPIKey(key string, tier Tier) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
		if tier != "" {
			c.tier = tier
		}
	}
}

// WithRequestsPerMinute caps the client-wide request rate. Zero disables the cap.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// NewClient constructs a CoinGecko client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		tier:       TierDemo,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
		if c.tier == TierPro {
			c.baseURL = ProBaseURL
		}
	}
	return c
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("coingecko: rate limiter: %w", err)
		}
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader(), c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("coingecko: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) keyHeader() string {
	if c.tier == TierPro {
		return "x-cg-pro-api-key"
	}
	return "x-cg-demo-api-key"
}
