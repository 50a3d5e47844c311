// Package data defines the historical-data collaborator boundary: sources
// that yield validated, time-ordered daily bars for one symbol at a time.
package data

import (
	"context"
	"fmt"
	"time"

	"callisto/internal/domain"
	"callisto/internal/store"
)

// Source fetches historical bars for one symbol over a date range. The
// returned series is validated, deduplicated, and strictly time-ordered.
// An empty result is reported as domain.ErrEmptySeries so multi-symbol
// callers can skip the symbol and continue.
type Source interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (*domain.Series, error)
}

// Compile-time interface check.
var _ Source = (*StoreSource)(nil)

// StoreSource serves bars from a local BarStore, the usual path for
// backtests against previously fetched data.
type StoreSource struct {
	store  store.BarStore
	market string
}

// NewStoreSource creates a StoreSource reading from the given store and
// market.
func NewStoreSource(s store.BarStore, market string) *StoreSource {
	return &StoreSource{store: s, market: market}
}

// Fetch reads bars from the store and builds a validated series.
func (s *StoreSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (*domain.Series, error) {
	bars, err := s.store.ReadBars(ctx, symbol, s.market, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}
	return Clean(symbol, bars)
}

// Clean drops bars that fail OHLCV validation and builds a Series from the
// remainder (sorted, deduplicated). Vendors occasionally emit a zero-volume
// placeholder row or an inverted low/high; those rows are discarded rather
// than failing the whole symbol. Returns domain.ErrEmptySeries when nothing
// survives.
func Clean(symbol string, bars []domain.Bar) (*domain.Series, error) {
	kept := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			continue
		}
		kept = append(kept, b)
	}
	return domain.NewSeries(symbol, kept)
}
