package domain

import (
	"fmt"
	"sort"
)

// Series is an ordered, validated sequence of bars for one instrument.
// Timestamps are strictly ascending and deduplicated. Immutable once built;
// the slice returned by Bars must not be modified by callers.
type Series struct {
	symbol string
	bars   []Bar
}

// NewSeries validates and builds a Series from raw bars: every bar must pass
// Validate, duplicates by timestamp are collapsed (last wins), and the result
// is sorted ascending. Returns ErrEmptySeries when no bars survive.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrEmptySeries)
	}
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
	}

	dedup := make(map[int64]Bar, len(bars))
	for _, b := range bars {
		dedup[b.Timestamp.UnixNano()] = b
	}
	out := make([]Bar, 0, len(dedup))
	for _, b := range dedup {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return &Series{symbol: symbol, bars: out}, nil
}

// Symbol returns the instrument identifier.
func (s *Series) Symbol() string { return s.symbol }

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// At returns the bar at index i.
func (s *Series) At(i int) Bar { return s.bars[i] }

// Bars returns the underlying ordered bars. Callers must treat the slice as
// read-only.
func (s *Series) Bars() []Bar { return s.bars }
