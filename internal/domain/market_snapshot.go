package domain

import "github.com/shopspring/decimal"

// MarketSnapshot is live market data for a token from the price oracle.
type MarketSnapshot struct {
	PriceUSD                 decimal.Decimal
	LiquidityUSD             decimal.Decimal
	FullyDilutedValuationUSD decimal.Decimal // zero when unknown
	Volume24hUSD             decimal.Decimal
	PriceChange24hPct        decimal.Decimal
	URL                      string
	BaseAsset                *BaseAsset // nil when the oracle did not report it
	Websites                 []Link
	Socials                  []Link
}

// BaseAsset is the traded token's own metadata.
type BaseAsset struct {
	Symbol string
	Name   string
}

// Link is a labelled external URL.
type Link struct {
	Label string
	URL   string
}

// HasBaseAsset reports whether the snapshot can be used to start tracking a token.
func (s *MarketSnapshot) HasBaseAsset() bool {
	return s != nil && s.BaseAsset != nil
}
