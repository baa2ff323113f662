package sources

import (
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var categoriesRelation = ingest.Relation{
	Schema: "categories",
	Table:  "category_market_data",
	Stamp:  "updated_at",
	Key:    []string{"category_id"},
}

func init() {
	Register(Definition{Name: "categories", Relation: categoriesRelation, Build: buildCategories})
}

func buildCategories(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.Category, coingecko.Category]{
		Source:   "categories",
		Relation: categoriesRelation,
		List:     cg.Categories,
		Identify: func(c coingecko.Category) (string, error) { return requireIDPtr(c.ID) },
		Extract:  categoryRows,
		Limit:    s.Limit,
	}, nil
}

func categoryRows(c coingecko.Category) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("category_id", *c.ID),
		ingest.Col("name", coerce.Text(c.Name)),
		ingest.Col("market_cap", coerce.Float(c.MarketCap)),
		ingest.Col("volume_24h", coerce.Float(c.Volume24h)),
	})
}
