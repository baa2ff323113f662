package sources

import (
	"context"
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var companiesRelation = ingest.Relation{Schema: "companies", Table: "public_holdings", Key: []string{"company_name"}}

func init() {
	Register(Definition{Name: "companies", Relation: companiesRelation, Build: buildCompanies})
}

func buildCompanies(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	coin := stringOr(s.Coin, "bitcoin")
	return &ingest.Pipeline[coingecko.Company, coingecko.Company]{
		Source:   "companies",
		Relation: companiesRelation,
		List: func(ctx context.Context) ([]coingecko.Company, error) {
			res, err := cg.PublicTreasury(ctx, coin)
			if err != nil {
				return nil, err
			}
			return res.Companies, nil
		},
		Identify: func(c coingecko.Company) (string, error) { return requireID(c.Name) },
		Extract:  companyRows,
		Limit:    s.Limit,
	}, nil
}

func companyRows(c coingecko.Company) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("company_name", c.Name),
		ingest.Col("symbol", c.Symbol),
		ingest.Col("total_holdings", coerce.Float(c.TotalHoldings)),
		ingest.Col("total_value_usd", coerce.Float(firstPresent(c.TotalCurrentValueUSD, c.TotalValueUSD))),
		ingest.Col("percentage_of_supply", coerce.Float(firstPresent(c.PercentageOfTotalSupply, c.PercentageOfSupply))),
	})
}

func firstPresent(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
