// Package dexscreener reads pair snapshots from the DexScreener public API.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coinsnap/pkg/coerce"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.dexscreener.com"

const maxErrorBody = 512

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dexscreener: %s: http status %d: %s", e.URL, e.Status, e.Body)
}

// Token identifies one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity of a pair. USD is reported as a number.
type Liquidity struct {
	USD coerce.Number `json:"usd"`
}

// Pair is the subset of a pair document used for snapshots. PriceUSD is sent
// as a string.
type Pair struct {
	ChainID     string        `json:"chainId"`
	DexID       *string       `json:"dexId"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   *Token        `json:"baseToken"`
	QuoteToken  *Token        `json:"quoteToken"`
	PriceUSD    coerce.Number `json:"priceUsd"`
	Liquidity   *Liquidity    `json:"liquidity"`
}

type pairResponse struct {
	Pair  *Pair  `json:"pair"`
	Pairs []Pair `json:"pairs"`
}

// Client wraps the pair endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
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

// NewClient constructs a DexScreener client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pair fetches one pair by chain and pair address. A response naming no pair
// yields (nil, nil).
func (c *Client) Pair(ctx context.Context, chain, address string) (*Pair, error) {
	path := "/latest/dex/pairs/" + url.PathEscape(chain) + "/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("dexscreener: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var out pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("dexscreener: decode %s: %w", path, err)
	}
	switch {
	case out.Pair != nil:
		return out.Pair, nil
	case len(out.Pairs) > 0:
		return &out.Pairs[0], nil
	}
	return nil, nil
}
