package sources

import (
	"iter"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var platformsRelation = ingest.Relation{Schema: "asset_platforms", Table: "platforms", Key: []string{"id"}}

func init() {
	Register(Definition{Name: "platforms", Relation: platformsRelation, Build: buildPlatforms})
}

func buildPlatforms(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.AssetPlatform, coingecko.AssetPlatform]{
		Source:   "platforms",
		Relation: platformsRelation,
		List:     cg.AssetPlatforms,
		Identify: func(p coingecko.AssetPlatform) (string, error) { return requireID(p.ID) },
		Extract:  platformRows,
		Limit:    s.Limit,
	}, nil
}

func platformRows(p coingecko.AssetPlatform) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("id", p.ID),
		ingest.Col("name", coerce.Text(p.Name)),
		ingest.Col("chain_identifier", p.ChainIdentifier.Int64()),
		ingest.Col("shortname", coerce.Text(p.Shortname)),
	})
}
