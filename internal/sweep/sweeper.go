// Package sweep prunes tracked tokens whose market valuation fell below a floor.
package sweep

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"mention-radar/internal/observability"
	"mention-radar/internal/oracle"
	"mention-radar/internal/storage"
)

// Default configuration values.
const (
	DefaultDelay    = 500 * time.Millisecond
	DefaultInterval = 24 * time.Hour
)

// DefaultFloorUSD is the valuation below which a token is pruned.
var DefaultFloorUSD = decimal.NewFromInt(5000)

// Result summarises one pass.
type Result struct {
	Checked     int `json:"checked"`     // tokens looked up
	Deleted     int `json:"deleted"`     // tokens removed
	Retained    int `json:"retained"`    // at or above the floor, or unknown valuation
	Unavailable int `json:"unavailable"` // lookups that returned no data; kept
	Errors      int `json:"errors"`      // deletes that failed
}

// Sweeper runs pruning passes over every tracked token.
type Sweeper struct {
	store  storage.MentionStore
	oracle oracle.Lookuper
	floor  decimal.Decimal
	delay  time.Duration
	logger *log.Logger
}

// Options contains configuration for creating a Sweeper.
type Options struct {
	Store    storage.MentionStore
	Oracle   oracle.Lookuper
	FloorUSD *decimal.Decimal // nil selects DefaultFloorUSD; zero disables pruning
	Delay    time.Duration   // pause between lookups. Default: 500ms
	Logger   *log.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(opts Options) *Sweeper {
	floor := DefaultFloorUSD
	if opts.FloorUSD != nil {
		floor = *opts.FloorUSD
	}

	delay := opts.Delay
	if delay == 0 {
		delay = DefaultDelay
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Sweeper{
		store:  opts.Store,
		oracle: opts.Oracle,
		floor:  floor,
		delay:  delay,
		logger: logger,
	}
}

// RunOnce checks every tracked token once. A token is deleted only when its
// valuation is known, positive and below the floor. Per-token failures are
// logged and the pass continues; only listing failure or cancellation ends it.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result

	tokens, err := s.store.ListAllTokens(ctx)
	if err != nil {
		observability.RecordSweepRun("error", time.Since(start).Seconds(), 0, 0)
		return res, err
	}

	s.logger.Printf("Starting sweep over %d tokens (floor $%s)", len(tokens), s.floor.StringFixed(2))

	for i, token := range tokens {
		if i > 0 {
			select {
			case <-ctx.Done():
				observability.RecordSweepRun("cancelled", time.Since(start).Seconds(), res.Checked, res.Deleted)
				return res, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		res.Checked++
		snapshot, ok := s.oracle.Lookup(ctx, token.Identifier)
		if !ok {
			res.Unavailable++
			s.logger.Printf("No market data for %s during sweep, keeping it", token.Identifier)
			continue
		}

		fdv := snapshot.FullyDilutedValuationUSD
		if !fdv.IsPositive() || !fdv.LessThan(s.floor) {
			res.Retained++
			continue
		}

		deleted, err := s.store.DeleteToken(ctx, token.Identifier)
		if err != nil {
			res.Errors++
			s.logger.Printf("Failed to delete %s: %v", token.Identifier, err)
			continue
		}
		if deleted {
			res.Deleted++
			s.logger.Printf("Pruned %s (%s): FDV $%s below $%s",
				token.SymbolOr("?"), token.Identifier, fdv.StringFixed(2), s.floor.StringFixed(2))
		}
	}

	duration := time.Since(start)
	observability.RecordSweepRun("success", duration.Seconds(), res.Checked, res.Deleted)
	s.logger.Printf("Sweep completed in %s: checked=%d deleted=%d retained=%d unavailable=%d errors=%d",
		duration.Round(time.Millisecond), res.Checked, res.Deleted, res.Retained, res.Unavailable, res.Errors)

	return res, nil
}
