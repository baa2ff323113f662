package sources

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/dexscreener"
	"coinsnap/pkg/ingest"
)

var onchainRelation = ingest.Relation{Schema: "onchain", Table: "dex_token_prices", Key: []string{"exchange", "token_address"}}

const (
	defaultChain = "ethereum"
	defaultPair  = "0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8"
	unknownText  = "unknown"
)

func init() {
	Register(Definition{Name: "onchain", Relation: onchainRelation, Build: buildOnchain})
}

// buildOnchain tracks one fixed pair: the list call is the pair lookup itself
// and yields at most one item.
func buildOnchain(s Settings, d Deps) (ingest.Job, error) {
	ds, err := d.dexScreener()
	if err != nil {
		return nil, err
	}
	chain := stringOr(s.Chain, defaultChain)
	pair := stringOr(s.Pair, defaultPair)
	if err := validatePair(pair); err != nil {
		return nil, err
	}
	return &ingest.Pipeline[*dexscreener.Pair, *dexscreener.Pair]{
		Source:   "onchain",
		Relation: onchainRelation,
		List: func(ctx context.Context) ([]*dexscreener.Pair, error) {
			p, err := ds.Pair(ctx, chain, pair)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, nil
			}
			return []*dexscreener.Pair{p}, nil
		},
		Extract: pairRows,
	}, nil
}

func pairRows(p *dexscreener.Pair) iter.Seq[ingest.Row] {
	var token *string
	if p.BaseToken != nil {
		token = &p.BaseToken.Address
	}
	var liquidity coerce.Number
	if p.Liquidity != nil {
		liquidity = p.Liquidity.USD
	}
	return ingest.One(ingest.Row{
		ingest.Col("exchange", coerce.TextOr(p.DexID, unknownText)),
		ingest.Col("token_address", coerce.TextOr(token, unknownText)),
		ingest.Col("price", p.PriceUSD.Decimal()),
		ingest.Col("liquidity_usd", liquidity.Decimal()),
	})
}

// validatePair accepts any non-hex pair id, and for 0x ids requires an EVM
// address or a 32-byte pool id.
func validatePair(pair string) error {
	if !strings.HasPrefix(pair, "0x") && !strings.HasPrefix(pair, "0X") {
		return nil
	}
	if common.IsHexAddress(pair) {
		return nil
	}
	if b, err := hexutil.Decode(pair); err == nil && len(b) == common.HashLength {
		return nil
	}
	return fmt.Errorf("invalid pair address %q", pair)
}
