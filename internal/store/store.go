// Package store provides local persistence for OHLCV bar data, used as the
// offline cache between the data fetch command and backtest runs.
package store

import (
	"context"
	"time"

	"callisto/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with any existing data for
	// the same symbol and timestamp (new records win).
	WriteBars(ctx context.Context, bars []domain.Bar, market string) error

	// ReadBars returns bars for the symbol within [start, end], sorted by
	// timestamp ascending. A missing symbol yields an empty slice, not an
	// error.
	ReadBars(ctx context.Context, symbol, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}
