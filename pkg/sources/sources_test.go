package sources

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/dexscreener"
	"coinsnap/pkg/ingest"
)

// upstream serves canned bodies by path and counts calls per path.
type upstream struct {
	bodies map[string]string
	status map[string]int
	calls  map[string]int
}

func newUpstream(bodies map[string]string) *upstream {
	return &upstream{bodies: bodies, status: map[string]int{}, calls: map[string]int{}}
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.calls[r.URL.Path]++
	if code, ok := u.status[r.URL.Path]; ok {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":"upstream"}`))
		return
	}
	body, ok := u.bodies[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(body))
}

func runSource(t *testing.T, name string, cfg *SourceConfig, up *upstream) (ingest.Report, []ingest.Entry, error) {
	t.Helper()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	deps := Deps{
		CoinGecko:   coingecko.NewClient(coingecko.WithBaseURL(srv.URL)),
		DexScreener: dexscreener.NewClient(dexscreener.WithBaseURL(srv.URL)),
	}
	def, ok := Lookup(name)
	require.True(t, ok, "source %s not registered", name)
	if cfg == nil {
		cfg = &SourceConfig{}
	}
	if cfg.Delay == nil {
		zero := time.Duration(0)
		cfg.Delay = &zero
	}
	job, err := def.BuildWith(cfg, deps)
	require.NoError(t, err)

	sink := &ingest.MemorySink{}
	report, err := job.Run(context.Background(), sink)
	return report, sink.Entries(), err
}

func value(t *testing.T, row ingest.Row, name string) any {
	t.Helper()
	v, ok := row.Get(name)
	require.True(t, ok, "column %s missing", name)
	return v
}

// dec renders a decimal column, "" when absent.
func dec(t *testing.T, row ingest.Row, name string) string {
	t.Helper()
	v, ok := value(t, row, name).(decimal.NullDecimal)
	require.True(t, ok, "column %s is not a decimal", name)
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func TestRegisteredSources(t *testing.T) {
	assert.Equal(t, []string{
		"categories", "coins", "companies", "contracts", "derivatives", "exchanges",
		"global", "nfts", "onchain", "platforms", "price", "search",
	}, Names())

	def, ok := Lookup(" Contracts ")
	require.True(t, ok)
	assert.Equal(t, 100, def.Limit)
	assert.Equal(t, 1500*time.Millisecond, def.Delay)

	def, _ = Lookup("nfts")
	assert.Equal(t, 10, def.Limit)
	assert.Equal(t, time.Second, def.Delay)

	def, _ = Lookup("categories")
	assert.Equal(t, "updated_at", def.Relation.StampColumn())
}

func TestBuildWithoutClients(t *testing.T) {
	def, _ := Lookup("coins")
	_, err := def.BuildWith(nil, Deps{})
	assert.ErrorIs(t, err, errNoCoinGecko)

	def, _ = Lookup("onchain")
	_, err = def.BuildWith(nil, Deps{})
	assert.ErrorIs(t, err, errNoDexScreener)
}

func TestCoinsSingleItem(t *testing.T) {
	up := newUpstream(map[string]string{
		"/coins/list":    `[{"id":"bitcoin"}]`,
		"/coins/bitcoin": `{"id":"bitcoin","symbol":"btc","genesis_date":"2009-01-03"}`,
	})

	report, entries, err := runSource(t, "coins", nil, up)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	require.Len(t, entries, 1)

	row := entries[0].Row
	assert.Equal(t, coinsRelation, entries[0].Relation)
	assert.Equal(t, "bitcoin", value(t, row, "id"))
	assert.Equal(t, sql.NullString{String: "btc", Valid: true}, value(t, row, "symbol"))
	assert.Equal(t, sql.NullTime{Time: time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC), Valid: true}, value(t, row, "genesis_date"))
	assert.Equal(t, sql.NullInt64{}, value(t, row, "market_cap_rank"))
	assert.Nil(t, value(t, row, "homepage").(pq.StringArray))
}

func TestCoinsCapAndHomepage(t *testing.T) {
	up := newUpstream(map[string]string{
		"/coins/list":     `[{"id":"bitcoin"},{"id":"ethereum"},{"id":"ripple"}]`,
		"/coins/bitcoin":  `{"id":"bitcoin","links":{"homepage":["http://www.bitcoin.org","",""]},"genesis_date":"Jan 3 2009"}`,
		"/coins/ethereum": `{"id":"ethereum"}`,
	})
	limit := 2

	report, entries, err := runSource(t, "coins", &SourceConfig{Limit: &limit}, up)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Listed)
	assert.Equal(t, 2, report.Visited)
	require.Len(t, entries, 2)
	assert.Zero(t, up.calls["/coins/ripple"])

	assert.Equal(t, pq.StringArray{"http://www.bitcoin.org"}, value(t, entries[0].Row, "homepage"))
	assert.Equal(t, sql.NullTime{}, value(t, entries[0].Row, "genesis_date"))
}

func TestCoinsDetailFailureSkips(t *testing.T) {
	up := newUpstream(map[string]string{
		"/coins/list":     `[{"id":"bitcoin"},{"id":""},{"id":"ethereum"}]`,
		"/coins/ethereum": `{"id":"ethereum","market_cap_rank":2}`,
	})
	up.status["/coins/bitcoin"] = http.StatusNotFound

	report, entries, err := runSource(t, "coins", nil, up)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Processed)
	require.Len(t, entries, 1)
	assert.Equal(t, "ethereum", value(t, entries[0].Row, "id"))
	assert.Equal(t, sql.NullInt64{Int64: 2, Valid: true}, value(t, entries[0].Row, "market_cap_rank"))
}

func TestListFailureIsFatal(t *testing.T) {
	up := newUpstream(map[string]string{"/coins/bitcoin": `{"id":"bitcoin"}`})
	up.status["/coins/list"] = http.StatusInternalServerError

	report, entries, err := runSource(t, "coins", nil, up)
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrListFetch)
	assert.True(t, ingest.IsFatal(err))
	assert.Empty(t, entries)
	assert.Zero(t, report.Written)
	assert.Zero(t, up.calls["/coins/bitcoin"])
}

func TestContractsOneRowPerPlatform(t *testing.T) {
	up := newUpstream(map[string]string{
		"/coins/list":     `[{"id":"usd-coin","platforms":{"ethereum":"0xabc"}}]`,
		"/coins/usd-coin": `{"id":"usd-coin","name":"USDC","platforms":{"ethereum":"0xabc","polygon-pos":""}}`,
	})

	_, entries, err := runSource(t, "contracts", nil, up)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	row := entries[0].Row
	assert.Equal(t, "ethereum", value(t, row, "platform"))
	assert.Equal(t, "0xabc", value(t, row, "contract_address"))
	assert.Equal(t, sql.NullString{String: "USDC", Valid: true}, value(t, row, "name"))
	assert.Equal(t, sql.NullInt64{}, value(t, row, "decimals"))
}

func TestContractRowsSortedWithDecimals(t *testing.T) {
	d := &coingecko.CoinDetail{
		Platforms: map[string]string{"solana": "EPjF", "ethereum": "0xa0b8", "": "0xdead", "tron": " ", "base": "0xb5"},
		DetailPlatforms: map[string]coingecko.DetailPlatform{
			"ethereum": {DecimalPlace: coerce.NumberOf("6")},
			"base":     {DecimalPlace: coerce.NumberOf("6.5")},
		},
		Decimals: coerce.NumberOf("18"),
	}

	var rows []ingest.Row
	for row := range contractRows(d) {
		rows = append(rows, row)
	}
	require.Len(t, rows, 3)
	assert.Equal(t, "base", value(t, rows[0], "platform"))
	assert.Equal(t, sql.NullInt64{Int64: 18, Valid: true}, value(t, rows[0], "decimals"))
	assert.Equal(t, "ethereum", value(t, rows[1], "platform"))
	assert.Equal(t, sql.NullInt64{Int64: 6, Valid: true}, value(t, rows[1], "decimals"))
	assert.Equal(t, "solana", value(t, rows[2], "platform"))
	assert.Equal(t, sql.NullInt64{Int64: 18, Valid: true}, value(t, rows[2], "decimals"))
}

func TestContractsZeroPlatformsZeroRows(t *testing.T) {
	up := newUpstream(map[string]string{
		"/coins/list":    `[{"id":"bitcoin"}]`,
		"/coins/bitcoin": `{"id":"bitcoin","platforms":{"":""}}`,
	})

	report, entries, err := runSource(t, "contracts", nil, up)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Empty(t, entries)
}

func TestNFTsUseUSDKeys(t *testing.T) {
	up := newUpstream(map[string]string{
		"/nfts/list":         `[{"id":"cryptopunks"}]`,
		"/nfts/cryptopunks": `{"id":"cryptopunks","name":"CryptoPunks","symbol":"PUNK","floor_price":{"native_currency":40.5,"usd":120000.25},"volume_24h":{"usd":null}}`,
	})

	_, entries, err := runSource(t, "nfts", nil, up)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "120000.25", dec(t, entries[0].Row, "floor_price"))
	assert.Equal(t, "", dec(t, entries[0].Row, "volume_24h"))
}

func TestPriceRowsPerCurrency(t *testing.T) {
	up := newUpstream(map[string]string{
		"/simple/price": `{"bitcoin":{"usd":50000.5,"usd_market_cap":1e12}}`,
	})
	cfg := &SourceConfig{IDs: []string{"bitcoin", "ethereum"}, Currencies: []string{"usd", "jpy"}}

	report, entries, err := runSource(t, "price", cfg, up)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, entries, 2)

	usd, jpy := entries[0].Row, entries[1].Row
	assert.Equal(t, "usd", value(t, usd, "vs_currency"))
	assert.Equal(t, "50000.5", dec(t, usd, "price"))
	assert.Equal(t, "1000000000000", dec(t, usd, "market_cap"))
	assert.Equal(t, "", dec(t, usd, "volume_24h"))

	assert.Equal(t, "bitcoin", value(t, jpy, "id"))
	assert.Equal(t, "jpy", value(t, jpy, "vs_currency"))
	assert.Equal(t, "", dec(t, jpy, "price"))
	assert.Equal(t, "", dec(t, jpy, "market_cap"))
}

func TestPriceEmptyCurrencyDataYieldsNoRows(t *testing.T) {
	for name, body := range map[string]string{
		"empty":       `{"bitcoin":{}}`,
		"all null":    `{"bitcoin":{"usd":null,"jpy_market_cap":null}}`,
		"unrequested": `{"bitcoin":{"eur":41000}}`,
	} {
		t.Run(name, func(t *testing.T) {
			up := newUpstream(map[string]string{"/simple/price": body})
			cfg := &SourceConfig{IDs: []string{"bitcoin"}, Currencies: []string{"usd", "jpy"}}

			report, entries, err := runSource(t, "price", cfg, up)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Skipped)
			assert.Zero(t, report.Written)
			assert.Empty(t, entries)
		})
	}
}

func TestPriceRowsNeedCurrencyData(t *testing.T) {
	q := quote{ID: "bitcoin", Currencies: []string{"usd", "jpy"}, Fields: map[string]*float64{}}
	n := 0
	for range priceRows(q) {
		n++
	}
	assert.Zero(t, n)

	change := -1.25
	q.Fields["jpy_24h_change"] = &change
	n = 0
	for range priceRows(q) {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestPriceDefaults(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	def, _ := Lookup("price")
	job, err := def.BuildWith(&SourceConfig{Currencies: []string{" "}}, Deps{CoinGecko: coingecko.NewClient(coingecko.WithBaseURL(srv.URL))})
	require.NoError(t, err)
	report, err := job.Run(context.Background(), &ingest.MemorySink{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Skipped)
	assert.Contains(t, query, "ids=bitcoin%2Cethereum%2Cripple")
	assert.Contains(t, query, "vs_currencies=usd%2Cjpy")
	assert.Contains(t, query, "include_24hr_change=true")
}

func TestSingleCallSourcesSkipMissingIDs(t *testing.T) {
	up := newUpstream(map[string]string{
		"/coins/categories": `[{"id":"layer-1","name":"Layer 1","market_cap":1.5e12,"volume_24h":null},{"name":"orphan"}]`,
		"/derivatives":      `[{"id":"binance_futures","symbol":"BTCUSDT","index_id":"BTC","price":"67012.5","contract_type":"perpetual"},{"symbol":"X"},{"id":"bad","price":"n/a"}]`,
	})

	report, entries, err := runSource(t, "categories", nil, up)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, entries, 1)
	assert.Equal(t, "layer-1", value(t, entries[0].Row, "category_id"))
	assert.Equal(t, "", dec(t, entries[0].Row, "volume_24h"))

	report, entries, err = runSource(t, "derivatives", nil, up)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, entries, 2)
	assert.Equal(t, "67012.5", dec(t, entries[0].Row, "price"))
	assert.Equal(t, sql.NullString{String: "BTC", Valid: true}, value(t, entries[0].Row, "index"))
	assert.Equal(t, "", dec(t, entries[1].Row, "price"))
}

func TestCompaniesCoinAndFieldSpellings(t *testing.T) {
	up := newUpstream(map[string]string{
		"/companies/public_treasury/ethereum": `{"companies":[
			{"name":"Bitmine","symbol":"BMNR","total_holdings":100.5,"total_current_value_usd":300000,"percentage_of_total_supply":0.5},
			{"name":"Legacy","symbol":"LGC","total_value_usd":10,"percentage_of_supply":0.01},
			{"name":"","symbol":"NONE"}
		]}`,
	})

	report, entries, err := runSource(t, "companies", &SourceConfig{Coin: "ethereum"}, up)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, entries, 2)
	assert.Equal(t, "300000", dec(t, entries[0].Row, "total_value_usd"))
	assert.Equal(t, "0.5", dec(t, entries[0].Row, "percentage_of_supply"))
	assert.Equal(t, "10", dec(t, entries[1].Row, "total_value_usd"))
	assert.Equal(t, "0.01", dec(t, entries[1].Row, "percentage_of_supply"))
}

func TestGlobalSingleRow(t *testing.T) {
	up := newUpstream(map[string]string{
		"/global": `{"data":{"active_cryptocurrencies":15000,"ended_icos":3376,"total_market_cap":{"usd":2.5e12},"market_cap_percentage":{"btc":52.25}}}`,
	})

	_, entries, err := runSource(t, "global", nil, up)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	row := entries[0].Row
	assert.Equal(t, sql.NullInt64{Int64: 15000, Valid: true}, value(t, row, "active_cryptocurrencies"))
	assert.Equal(t, sql.NullInt64{}, value(t, row, "upcoming_icos"))
	assert.Equal(t, "2500000000000", dec(t, row, "total_market_cap_usd"))
	assert.Equal(t, "", dec(t, row, "total_volume_usd"))
	assert.Equal(t, "52.25", dec(t, row, "btc_dominance"))
	assert.Equal(t, "", dec(t, row, "eth_dominance"))
}

func TestSearchExchangesPlatforms(t *testing.T) {
	up := newUpstream(map[string]string{
		"/search/trending": `{"coins":[{"item":{"id":"pepe","name":"Pepe","symbol":"PEPE","market_cap_rank":30,"score":0}}]}`,
		"/exchanges":       `[{"id":"binance","name":"Binance","year_established":2017,"country":null,"trade_volume_24h_btc":120000.5,"trust_score":10}]`,
		"/asset_platforms": `[{"id":"ethereum","name":"Ethereum","chain_identifier":1,"shortname":"Ethereum"},{"id":"bitcoin-cash","chain_identifier":null}]`,
	})

	_, entries, err := runSource(t, "search", nil, up)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sql.NullInt64{Int64: 0, Valid: true}, value(t, entries[0].Row, "score"))

	_, entries, err = runSource(t, "exchanges", nil, up)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sql.NullString{}, value(t, entries[0].Row, "country"))
	assert.Equal(t, "120000.5", dec(t, entries[0].Row, "trade_volume_24h_btc"))

	_, entries, err = runSource(t, "platforms", nil, up)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, sql.NullInt64{Int64: 1, Valid: true}, value(t, entries[0].Row, "chain_identifier"))
	assert.Equal(t, sql.NullInt64{}, value(t, entries[1].Row, "chain_identifier"))
}

func TestOnchainPair(t *testing.T) {
	path := "/latest/dex/pairs/ethereum/" + defaultPair

	t.Run("present", func(t *testing.T) {
		up := newUpstream(map[string]string{
			path: `{"pair":{"dexId":"uniswap","baseToken":{"address":"0x2260"},"priceUsd":"67000.12","liquidity":{"usd":1500000}}}`,
		})
		_, entries, err := runSource(t, "onchain", nil, up)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		row := entries[0].Row
		assert.Equal(t, "uniswap", value(t, row, "exchange"))
		assert.Equal(t, "0x2260", value(t, row, "token_address"))
		assert.Equal(t, "67000.12", dec(t, row, "price"))
		assert.Equal(t, "1500000", dec(t, row, "liquidity_usd"))
	})

	t.Run("fallbacks", func(t *testing.T) {
		up := newUpstream(map[string]string{path: `{"pair":{"priceUsd":"not-a-number"}}`})
		_, entries, err := runSource(t, "onchain", nil, up)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		row := entries[0].Row
		assert.Equal(t, "unknown", value(t, row, "exchange"))
		assert.Equal(t, "unknown", value(t, row, "token_address"))
		assert.Equal(t, "", dec(t, row, "price"))
		assert.Equal(t, "", dec(t, row, "liquidity_usd"))
	})

	t.Run("no pair", func(t *testing.T) {
		up := newUpstream(map[string]string{path: `{"pair":null,"pairs":null}`})
		report, entries, err := runSource(t, "onchain", nil, up)
		require.NoError(t, err)
		assert.Zero(t, report.Listed)
		assert.Empty(t, entries)
	})

	t.Run("http error is fatal", func(t *testing.T) {
		up := newUpstream(nil)
		up.status[path] = http.StatusServiceUnavailable
		_, _, err := runSource(t, "onchain", nil, up)
		assert.ErrorIs(t, err, ingest.ErrListFetch)
	})
}

func TestValidatePair(t *testing.T) {
	assert.NoError(t, validatePair(defaultPair))
	assert.NoError(t, validatePair("0x"+strings.Repeat("ab", 32)))
	assert.NoError(t, validatePair("Czfq3xZZDmsdGdUyrNLtRhGc47cXcZtLG4crryfu44zE"))
	assert.Error(t, validatePair("0x1234"))
	assert.Error(t, validatePair("0xzz99c3a0ff1de082011efddc58f1908eb6e6d8"))
}

func TestRerunAppendsNewRows(t *testing.T) {
	up := newUpstream(map[string]string{"/exchanges": `[{"id":"binance"}]`})
	srv := httptest.NewServer(up)
	defer srv.Close()

	def, _ := Lookup("exchanges")
	job, err := def.BuildWith(nil, Deps{CoinGecko: coingecko.NewClient(coingecko.WithBaseURL(srv.URL))})
	require.NoError(t, err)

	sink := &ingest.MemorySink{}
	for i := 0; i < 2; i++ {
		_, err := job.Run(context.Background(), sink)
		require.NoError(t, err)
		assert.Equal(t, i+1, sink.Len())
	}
	entries := sink.Entries()
	assert.Equal(t, entries[0].Row, entries[1].Row)
	assert.False(t, entries[1].At.Before(entries[0].At))
}
