package sources

import (
	"context"
	"iter"
	"time"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/ingest"
)

var nftsRelation = ingest.Relation{Schema: "nfts", Table: "collections", Key: []string{"id"}}

func init() {
	Register(Definition{
		Name:     "nfts",
		Relation: nftsRelation,
		Limit:    10,
		Delay:    time.Second,
		Build:    buildNFTs,
	})
}

func buildNFTs(s Settings, d Deps) (ingest.Job, error) {
	cg, err := d.coinGecko()
	if err != nil {
		return nil, err
	}
	return &ingest.Pipeline[coingecko.NFTRef, *coingecko.NFTDetail]{
		Source:   "nfts",
		Relation: nftsRelation,
		List:     cg.ListNFTs,
		Identify: func(ref coingecko.NFTRef) (string, error) { return requireID(ref.ID) },
		Detail: func(ctx context.Context, id string, _ coingecko.NFTRef) (*coingecko.NFTDetail, error) {
			detail, err := cg.NFT(ctx, id)
			if err != nil {
				return nil, err
			}
			if detail.ID == "" {
				detail.ID = id
			}
			return detail, nil
		},
		Extract: nftRows,
		Limit:   s.Limit,
		Delay:   s.Delay,
	}, nil
}

func nftRows(d *coingecko.NFTDetail) iter.Seq[ingest.Row] {
	return ingest.One(ingest.Row{
		ingest.Col("id", d.ID),
		ingest.Col("name", coerce.Text(d.Name)),
		ingest.Col("floor_price", coerce.Lookup(d.FloorPrice, "usd")),
		ingest.Col("volume_24h", coerce.Lookup(d.Volume24h, "usd")),
		ingest.Col("symbol", coerce.Text(d.Symbol)),
	})
}
