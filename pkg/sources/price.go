package sources

import (
	"context"
	"fmt"
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var priceRelation = ingest.Relation{Schema: "simple", Table: "current_price", Key: []string{"id", "vs_currency"}}

var (
	defaultPriceIDs        = []string{"bitcoin", "ethereum", "ripple"}
	defaultPriceCurrencies = []string{"usd", "jpy"}
)

func init() {
	Register(Definition{Name: "price", Relation: priceRelation, Build: buildPrice})
}

// quote is the price document of one requested coin. Fields is nil when the
// upstream omitted the coin.
type quote struct {
	ID         string
	Currencies []string
	Fields     map[string]*float64
}

func buildPrice(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	params := coingecko.PriceParams{
		IDs:               orDefault(s.IDs, defaultPriceIDs...),
		Currencies:        orDefault(s.Currencies, defaultPriceCurrencies...),
		IncludeMarketCap:  true,
		Include24hrVol:    true,
		Include24hrChange: true,
	}
	return &ingest.Pipeline[quote, quote]{
		Source:   "price",
		Relation: priceRelation,
		List: func(ctx context.Context) ([]quote, error) {
			prices, err := cg.SimplePrice(ctx, params)
			if err != nil {
				return nil, err
			}
			return quotes(params, prices), nil
		},
		Identify: identifyQuote,
		Extract:  priceRows,
		Limit:    s.Limit,
	}, nil
}

// quotes lines the response up with the requested ids, in request order.
func quotes(p coingecko.PriceParams, prices coingecko.SimplePrice) []quote {
	out := make([]quote, 0, len(p.IDs))
	for _, id := range p.IDs {
		out = append(out, quote{ID: id, Currencies: p.Currencies, Fields: prices[id]})
	}
	return out
}

func identifyQuote(q quote) (string, error) {
	id, err := requireID(q.ID)
	if err != nil {
		return "", err
	}
	if !q.hasData() {
		return "", fmt.Errorf("%w: no price data for %s", ingest.ErrNoData, id)
	}
	return id, nil
}

// hasData reports whether any requested currency carries a value.
func (q quote) hasData() bool {
	for _, cur := range q.Currencies {
		if cur == "" {
			continue
		}
		for _, key := range priceKeys(cur) {
			if v, ok := q.Fields[key]; ok && v != nil {
				return true
			}
		}
	}
	return false
}

func priceKeys(cur string) [4]string {
	return [4]string{cur, cur + "_market_cap", cur + "_24h_vol", cur + "_24h_change"}
}

// priceRows emits one row per requested currency once the coin has any
// value at all. A currency the response omits still yields a row, with
// absent numerics.
func priceRows(q quote) iter.Seq[ingest.Row] {
	return func(yield func(ingest.Row) bool) {
		if !q.hasData() {
			return
		}
		for _, cur := range q.Currencies {
			if cur == "" {
				continue
			}
			keys := priceKeys(cur)
			row := ingest.Row{
				ingest.Col("id", q.ID),
				ingest.Col("vs_currency", cur),
				ingest.Col("price", coerce.Lookup(q.Fields, keys[0])),
				ingest.Col("market_cap", coerce.Lookup(q.Fields, keys[1])),
				ingest.Col("volume_24h", coerce.Lookup(q.Fields, keys[2])),
				ingest.Col("change_24h", coerce.Lookup(q.Fields, keys[3])),
			}
			if !yield(row) {
				return
			}
		}
	}
}
