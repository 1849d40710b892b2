// Package oracle looks up live market data for token contracts.
package oracle

import (
	"context"

	"mention-radar/internal/domain"
)

// Lookuper returns a market snapshot for a token identifier.
// ok is false when no data is available; that means "insufficient data",
// never "token does not exist".
type Lookuper interface {
	Lookup(ctx context.Context, identifier string) (snapshot *domain.MarketSnapshot, ok bool)
}
