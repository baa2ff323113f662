package sources

import (
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var searchRelation = ingest.Relation{Schema: "search", Table: "trending_coins", Key: []string{"id"}}

func init() {
	Register(Definition{Name: "search", Relation: searchRelation, Build: buildSearch})
}

func buildSearch(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.TrendingCoin, coingecko.TrendingCoin]{
		Source:   "search",
		Relation: searchRelation,
		List:     cg.Trending,
		Identify: func(c coingecko.TrendingCoin) (string, error) { return requireID(c.ID) },
		Extract:  trendingRows,
		Limit:    s.Limit,
	}, nil
}

func trendingRows(c coingecko.TrendingCoin) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("id", c.ID),
		ingest.Col("name", coerce.Text(c.Name)),
		ingest.Col("symbol", coerce.Text(c.Symbol)),
		ingest.Col("market_cap_rank", c.MarketCapRank.Int64()),
		ingest.Col("score", c.Score.Int64()),
	})
}
