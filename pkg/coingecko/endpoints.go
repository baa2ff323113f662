package coingecko

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// ListCoins returns every coin id. With includePlatform the contract
// addresses per platform are included.
func (c *Client) ListCoins(ctx context.Context, includePlatform bool) ([]CoinRef, error) {
	q := url.Values{}
	if includePlatform {
		q.Set("include_platform", "true")
	}
	var out []CoinRef
	if err := c.get(ctx, "/coins/list", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Coin fetches the detail document of a coin without tickers or market data.
func (c *Client) Coin(ctx context.Context, id string) (*CoinDetail, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "false")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	var out CoinDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNFTs returns the NFT collection ids.
func (c *Client) ListNFTs(ctx context.Context) ([]NFTRef, error) {
	var out []NFTRef
	if err := c.get(ctx, "/nfts/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NFT fetches one collection.
func (c *Client) NFT(ctx context.Context, id string) (*NFTDetail, error) {
	var out NFTDetail
	if err := c.get(ctx, "/nfts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Categories returns market data per coin category.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.get(ctx, "/coins/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PublicTreasury returns the public companies holding coin.
func (c *Client) PublicTreasury(ctx context.Context, coin string) (*TreasuryResponse, error) {
	var out TreasuryResponse
	if err := c.get(ctx, "/companies/public_treasury/"+url.PathEscape(coin), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Derivatives returns the derivative tickers.
func (c *Client) Derivatives(ctx context.Context) ([]Derivative, error) {
	var out []Derivative
	if err := c.get(ctx, "/derivatives", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Exchanges returns the first page of exchanges.
func (c *Client) Exchanges(ctx context.Context) ([]Exchange, error) {
	var out []Exchange
	if err := c.get(ctx, "/exchanges", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssetPlatforms returns every asset platform.
func (c *Client) AssetPlatforms(ctx context.Context) ([]AssetPlatform, error) {
	var out []AssetPlatform
	if err := c.get(ctx, "/asset_platforms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Global returns aggregate market statistics.
func (c *Client) Global(ctx context.Context) (*GlobalData, error) {
	var out GlobalResponse
	if err := c.get(ctx, "/global", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Trending returns the trending coins.
func (c *Client) Trending(ctx context.Context) ([]TrendingCoin, error) {
	var out TrendingResponse
	if err := c.get(ctx, "/search/trending", nil, &out); err != nil {
		return nil, err
	}
	coins := make([]TrendingCoin, 0, len(out.Coins))
	for _, entry := range out.Coins {
		coins = append(coins, entry.Item)
	}
	return coins, nil
}

// SimplePrice returns current prices of p.IDs in p.Currencies.
func (c *Client) SimplePrice(ctx context.Context, p PriceParams) (SimplePrice, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(p.IDs, ","))
	q.Set("vs_currencies", strings.Join(p.Currencies, ","))
	q.Set("include_market_cap", strconv.FormatBool(p.IncludeMarketCap))
	q.Set("include_24hr_vol", strconv.FormatBool(p.Include24hrVol))
	q.Set("include_24hr_change", strconv.FormatBool(p.Include24hrChange))
	out := SimplePrice{}
	if err := c.get(ctx, "/simple/price", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
