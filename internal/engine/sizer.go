package engine

import (
	"fmt"
	"math"

	"callisto/internal/domain"
	"callisto/internal/strategy"
)

// Sizer decides how many shares an unsized buy signal should request.
// Strategies that carry their own stake bypass the sizer entirely.
type Sizer interface {
	Size(view strategy.View, price float64) int64
}

// FixedStake sizes every entry at a constant share count.
type FixedStake struct {
	Stake int64
}

// Size returns the configured stake.
func (s FixedStake) Size(_ strategy.View, _ float64) int64 {
	return s.Stake
}

// PercentOfCash sizes an entry to spend a fraction of available cash at the
// current price.
type PercentOfCash struct {
	pct float64
}

// NewPercentOfCash validates the fraction: it must be in (0, 1].
func NewPercentOfCash(pct float64) (PercentOfCash, error) {
	if pct <= 0 || pct > 1 {
		return PercentOfCash{}, fmt.Errorf("%w: cash fraction %v outside (0, 1]", domain.ErrInvalidParameters, pct)
	}
	return PercentOfCash{pct: pct}, nil
}

// Size returns floor(cash * pct / price), zero when the price is invalid.
func (s PercentOfCash) Size(view strategy.View, price float64) int64 {
	if price <= 0 {
		return 0
	}
	return int64(math.Floor(view.Cash * s.pct / price))
}
