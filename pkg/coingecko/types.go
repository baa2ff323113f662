package coingecko

import "coinsnap/pkg/coerce"

// CoinRef is one entry of /coins/list.
type CoinRef struct {
	ID        string            `json:"id"`
	Symbol    string            `json:"symbol"`
	Name      string            `json:"name"`
	Platforms map[string]string `json:"platforms,omitempty"`
}

// CoinDetail is the subset of /coins/{id} the snapshot sources read.
type CoinDetail struct {
	ID               string                    `json:"id"`
	Symbol           *string                   `json:"symbol"`
	Name             *string                   `json:"name"`
	HashingAlgorithm *string                   `json:"hashing_algorithm"`
	Description      *Description              `json:"description"`
	Links            *Links                    `json:"links"`
	GenesisDate      *string                   `json:"genesis_date"`
	MarketCapRank    coerce.Number             `json:"market_cap_rank"`
	Platforms        map[string]string         `json:"platforms"`
	DetailPlatforms  map[string]DetailPlatform `json:"detail_platforms"`
	Decimals         coerce.Number             `json:"decimals"`
}

// Description holds localized descriptions; only English is kept.
type Description struct {
	En *string `json:"en"`
}

// Links holds the project links of a coin.
type Links struct {
	Homepage []string `json:"homepage"`
}

// DetailPlatform describes a token deployment on one platform.
type DetailPlatform struct {
	DecimalPlace    coerce.Number `json:"decimal_place"`
	ContractAddress string        `json:"contract_address"`
}

// NFTRef is one entry of /nfts/list.
type NFTRef struct {
	ID string `json:"id"`
}

// NFTDetail is the subset of /nfts/{id} the snapshot sources read.
type NFTDetail struct {
	ID         string              `json:"id"`
	Name       *string             `json:"name"`
	Symbol     *string             `json:"symbol"`
	FloorPrice map[string]*float64 `json:"floor_price"`
	Volume24h  map[string]*float64 `json:"volume_24h"`
}

// Category is one entry of /coins/categories.
type Category struct {
	ID        *string  `json:"id"`
	Name      *string  `json:"name"`
	MarketCap *float64 `json:"market_cap"`
	Volume24h *float64 `json:"volume_24h"`
}

// TreasuryResponse is the body of /companies/public_treasury/{coin}.
type TreasuryResponse struct {
	Companies []Company `json:"companies"`
}

// Company is one public treasury holder. The API has used two spellings for the
// value and supply share fields; both are decoded.
type Company struct {
	Name                    string   `json:"name"`
	Symbol                  string   `json:"symbol"`
	Country                 *string  `json:"country"`
	TotalHoldings           *float64 `json:"total_holdings"`
	TotalCurrentValueUSD    *float64 `json:"total_current_value_usd"`
	TotalValueUSD           *float64 `json:"total_value_usd"`
	PercentageOfTotalSupply *float64 `json:"percentage_of_total_supply"`
	PercentageOfSupply      *float64 `json:"percentage_of_supply"`
}

// Derivative is one entry of /derivatives. Price is sent as a string.
type Derivative struct {
	ID           *string `json:"id"`
	Market       *string `json:"market"`
	Symbol       *string `json:"symbol"`
	IndexID      *string `json:"index_id"`
	Price        *string `json:"price"`
	ContractType *string `json:"contract_type"`
}

// Exchange is one entry of /exchanges.
type Exchange struct {
	ID                string        `json:"id"`
	Name              *string       `json:"name"`
	YearEstablished   coerce.Number `json:"year_established"`
	Country           *string       `json:"country"`
	TradeVolume24hBTC *float64      `json:"trade_volume_24h_btc"`
	TrustScore        coerce.Number `json:"trust_score"`
}

// AssetPlatform is one entry of /asset_platforms.
type AssetPlatform struct {
	ID              string        `json:"id"`
	Name            *string       `json:"name"`
	ChainIdentifier coerce.Number `json:"chain_identifier"`
	Shortname       *string       `json:"shortname"`
}

// GlobalResponse is the body of /global.
type GlobalResponse struct {
	Data GlobalData `json:"data"`
}

// GlobalData holds aggregate market statistics.
type GlobalData struct {
	ActiveCryptocurrencies coerce.Number       `json:"active_cryptocurrencies"`
	UpcomingICOs           coerce.Number       `json:"upcoming_icos"`
	OngoingICOs            coerce.Number       `json:"ongoing_icos"`
	EndedICOs              coerce.Number       `json:"ended_icos"`
	Markets                coerce.Number       `json:"markets"`
	TotalMarketCap         map[string]*float64 `json:"total_market_cap"`
	TotalVolume            map[string]*float64 `json:"total_volume"`
	MarketCapPercentage    map[string]*float64 `json:"market_cap_percentage"`
}

// TrendingResponse is the body of /search/trending.
type TrendingResponse struct {
	Coins []TrendingEntry `json:"coins"`
}

// TrendingEntry wraps one trending coin.
type TrendingEntry struct {
	Item TrendingCoin `json:"item"`
}

// TrendingCoin is a coin from the trending search list.
type TrendingCoin struct {
	ID            string        `json:"id"`
	Name          *string       `json:"name"`
	Symbol        *string       `json:"symbol"`
	MarketCapRank coerce.Number `json:"market_cap_rank"`
	Score         coerce.Number `json:"score"`
}

// SimplePrice maps coin id to a flat field map: "<cur>", "<cur>_market_cap",
// "<cur>_24h_vol", "<cur>_24h_change", "last_updated_at".
type SimplePrice map[string]map[string]*float64

// PriceParams selects coins and quote currencies for /simple/price.
type PriceParams struct {
	IDs               []string
	Currencies        []string
	IncludeMarketCap  bool
	Include24hrVol    bool
	Include24hrChange bool
}
