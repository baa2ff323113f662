package sources

import (
	"context"
	"database/sql"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var contractsRelation = ingest.Relation{Schema: "contract", Table: "token_info", Key: []string{"platform", "contract_address"}}

func init() {
	Register(Definition{
		Name:     "contracts",
		Relation: contractsRelation,
		Limit:    100,
		Delay:    1500 * time.Millisecond,
		Build:    buildContracts,
	})
}

func buildContracts(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.CoinRef, *coingecko.CoinDetail]{
		Source:   "contracts",
		Relation: contractsRelation,
		List: func(ctx context.Context) ([]coingecko.CoinRef, error) {
			return cg.ListCoins(ctx, true)
		},
		Identify: func(ref coingecko.CoinRef) (string, error) { return requireID(ref.ID) },
		Detail:   coinDetail(cg),
		Extract:  contractRows,
		Limit:    s.Limit,
		Delay:    s.Delay,
	}, nil
}

// contractRows emits one row per platform with a non-empty contract address,
// in platform order.
func contractRows(d *coingecko.CoinDetail) iter.Seq[ingest.Row] {
	return func(yield func(ingest.Row) bool) {
		for _, platform := range slices.Sorted(maps.Keys(d.Platforms)) {
			address := strings.TrimSpace(d.Platforms[platform])
			if strings.TrimSpace(platform) == "" || address == "" {
				continue
			}
			row := ingest.Row{
				ingest.Col("platform", platform),
				ingest.Col("contract_address", address),
				ingest.Col("name", coerce.Text(d.Name)),
				ingest.Col("symbol", coerce.Text(d.Symbol)),
				ingest.Col("decimals", contractDecimals(d, platform)),
			}
			if !yield(row) {
				return
			}
		}
	}
}

func contractDecimals(d *coingecko.CoinDetail, platform string) sql.NullInt64 {
	if p, ok := d.DetailPlatforms[platform]; ok {
		if v := p.DecimalPlace.Int64(); v.Valid {
			return v
		}
	}
	return d.Decimals.Int64()
}
