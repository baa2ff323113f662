package sources

import (
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var derivativesRelation = ingest.Relation{Schema: "derivatives", Table: "derivative_markets", Key: []string{"id"}}

func init() {
	Register(Definition{Name: "derivatives", Relation: derivativesRelation, Build: buildDerivatives})
}

func buildDerivatives(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.Derivative, coingecko.Derivative]{
		Source:   "derivatives",
		Relation: derivativesRelation,
		List:     cg.Derivatives,
		Identify: func(m coingecko.Derivative) (string, error) { return requireIDPtr(m.ID) },
		Extract:  derivativeRows,
		Limit:    s.Limit,
	}, nil
}

// derivativeRows maps index_id to the "index" column; price arrives as text.
func derivativeRows(m coingecko.Derivative) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("id", *m.ID),
		ingest.Col("symbol", coerce.Text(m.Symbol)),
		ingest.Col("index", coerce.Text(m.IndexID)),
		ingest.Col("price", coerce.String(m.Price)),
		ingest.Col("contract_type", coerce.Text(m.ContractType)),
	})
}
