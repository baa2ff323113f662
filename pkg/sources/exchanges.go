package sources

import (
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var exchangesRelation = ingest.Relation{Schema: "exchanges", Table: "exchange_info", Key: []string{"id"}}

func init() {
	Register(Definition{Name: "exchanges", Relation: exchangesRelation, Build: buildExchanges})
}

func buildExchanges(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.Exchange, coingecko.Exchange]{
		Source:   "exchanges",
		Relation: exchangesRelation,
		List:     cg.Exchanges,
		Identify: func(e coingecko.Exchange) (string, error) { return requireID(e.ID) },
		Extract:  exchangeRows,
		Limit:    s.Limit,
	}, nil
}

func exchangeRows(e coingecko.Exchange) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("id", e.ID),
		ingest.Col("name", coerce.Text(e.Name)),
		ingest.Col("year_established", e.YearEstablished.Int64()),
		ingest.Col("country", coerce.Text(e.Country)),
		ingest.Col("trade_volume_24h_btc", coerce.Float(e.TradeVolume24hBTC)),
		ingest.Col("trust_score", e.TrustScore.Int64()),
	})
}
