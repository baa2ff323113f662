package sources

import (
	"context"
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var globalRelation = ingest.Relation{Schema: "global", Table: "market_stats"}

func init() {
	Register(Definition{Name: "global", Relation: globalRelation, Build: buildGlobal})
}

func buildGlobal(_ Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[*coingecko.GlobalData, *coingecko.GlobalData]{
		Source:   "global",
		Relation: globalRelation,
		List: func(ctx context.Context) ([]*coingecko.GlobalData, error) {
			g, err := cg.Global(ctx)
			if err != nil {
				return nil, err
			}
			return []*coingecko.GlobalData{g}, nil
		},
		Extract: globalRows,
	}, nil
}

func globalRows(g *coingecko.GlobalData) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("active_cryptocurrencies", g.ActiveCryptocurrencies.Int64()),
		ingest.Col("upcoming_icos", g.UpcomingICOs.Int64()),
		ingest.Col("ongoing_icos", g.OngoingICOs.Int64()),
		ingest.Col("ended_icos", g.EndedICOs.Int64()),
		ingest.Col("markets", g.Markets.Int64()),
		ingest.Col("total_market_cap_usd", coerce.Lookup(g.TotalMarketCap, "usd")),
		ingest.Col("total_volume_usd", coerce.Lookup(g.TotalVolume, "usd")),
		ingest.Col("btc_dominance", coerce.Lookup(g.MarketCapPercentage, "btc")),
		ingest.Col("eth_dominance", coerce.Lookup(g.MarketCapPercentage, "eth")),
	})
}
