package sources

import (
	"context"
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var coinsRelation = ingest.Relation{Schema: "coins", Table: "detail", Key: []string{"id"}}

func init() {
	Register(Definition{
		Name:     "coins",
		Relation: coinsRelation,
		Limit:    100,
		Build:    buildCoins,
	})
}

func buildCoins(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.CoinRef, *coingecko.CoinDetail]{
		Source:   "coins",
		Relation: coinsRelation,
		List: func(ctx context.Context) ([]coingecko.CoinRef, error) {
			return cg.ListCoins(ctx, false)
		},
		Identify: func(ref coingecko.CoinRef) (string, error) { return requireID(ref.ID) },
		Detail:   coinDetail(cg),
		Extract:  coinRows,
		Limit:    s.Limit,
		Delay:    s.Delay,
	}, nil
}

// coinDetail fetches /coins/{id}, keeping the listed id when the document omits it.
func coinDetail(cg *coingecko.Client) ingest.DetailFunc[coingecko.CoinRef, *coingecko.CoinDetail] {
	return func(ctx context.Context, id string, _ coingecko.CoinRef) (*coingecko.CoinDetail, error) {
		detail, err := cg.Coin(ctx, id)
		if err != nil {
			return nil, err
		}
		if detail.ID == "" {
			detail.ID = id
		}
		return detail, nil
	}
}

func coinRows(d *coingecko.CoinDetail) iter.Seq[ingest.Row] {
	var description *string
	if d.Description != nil {
		description = d.Description.En
	}
	var homepage []string
	if d.Links != nil {
		homepage = d.Links.Homepage
	}
	return ingest.One(ingest.Row{
		ingest.Col("id", d.ID),
		ingest.Col("symbol", coerce.Text(d.Symbol)),
		ingest.Col("name", coerce.Text(d.Name)),
		ingest.Col("hashing_algorithm", coerce.Text(d.HashingAlgorithm)),
		ingest.Col("description", coerce.Text(description)),
		ingest.Col("homepage", coerce.TextArray(homepage)),
		ingest.Col("genesis_date", coerce.Date(d.GenesisDate)),
		ingest.Col("market_cap_rank", d.MarketCapRank.Int64()),
	})
}
