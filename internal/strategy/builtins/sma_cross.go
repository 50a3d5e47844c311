// Package builtins provides the strategy implementations that ship with
// callisto.
package builtins

import (
	"fmt"
	"log/slog"

	"callisto/internal/domain"
	"callisto/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACrossConfig holds the validated parameters of the crossover strategy.
type SMACrossConfig struct {
	FastPeriod int
	SlowPeriod int
	// Stake is the share count for each entry. Zero defers sizing to the
	// engine's sizer.
	Stake int64
}

// Validate rejects non-positive periods and fast >= slow.
func (c SMACrossConfig) Validate() error {
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 {
		return fmt.Errorf("%w: periods must be positive, got fast=%d slow=%d",
			domain.ErrInvalidParameters, c.FastPeriod, c.SlowPeriod)
	}
	if c.FastPeriod >= c.SlowPeriod {
		return fmt.Errorf("%w: fast period %d must be less than slow period %d",
			domain.ErrInvalidParameters, c.FastPeriod, c.SlowPeriod)
	}
	if c.Stake < 0 {
		return fmt.Errorf("%w: negative stake %d", domain.ErrInvalidParameters, c.Stake)
	}
	return nil
}

// SMACross is a simple moving average crossover strategy: buy when the fast
// SMA crosses above the slow SMA while flat, sell the full position when it
// crosses back below. Ties (equal averages) are no-signal. Long only.
type SMACross struct {
	cfg  SMACrossConfig
	fast *rollingSMA
	slow *rollingSMA

	prevDiff float64
	havePrev bool
	pending  bool

	log *slog.Logger
}

// NewSMACross builds an SMACross, validating the configuration up front so a
// bad parameter set fails before any run starts.
func NewSMACross(cfg SMACrossConfig) (*SMACross, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &SMACross{
		cfg: cfg,
		log: slog.Default().With("strategy", "sma-cross"),
	}
	s.reset()
	return s, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// Init resets indicator and pending-order state for a fresh run.
func (s *SMACross) Init() error {
	s.reset()
	return nil
}

func (s *SMACross) reset() {
	s.fast = newRollingSMA(s.cfg.FastPeriod)
	s.slow = newRollingSMA(s.cfg.SlowPeriod)
	s.prevDiff = 0
	s.havePrev = false
	s.pending = false
}

// Warmup returns the first bar index at which a crossover decision is
// possible: the slow SMA needs SlowPeriod closes and the crossover test
// needs the previous bar's averages.
func (s *SMACross) Warmup() int {
	return s.cfg.SlowPeriod
}

// Observe updates both averages with the bar close and emits a signal on a
// crossover. No signal is emitted while an order is pending.
func (s *SMACross) Observe(bar domain.Bar, view strategy.View) *domain.Signal {
	s.fast.Push(bar.Close)
	s.slow.Push(bar.Close)

	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()
	defer func() {
		s.prevDiff = diff
		s.havePrev = true
	}()

	if !s.havePrev {
		return nil
	}
	if s.pending {
		return nil
	}

	crossedAbove := s.prevDiff < 0 && diff > 0
	crossedBelow := s.prevDiff > 0 && diff < 0

	if view.Position.Flat() {
		if crossedAbove {
			s.log.Debug("buy signal", "close", bar.Close)
			s.pending = true
			return &domain.Signal{Type: domain.SignalTypeBuy, Size: s.cfg.Stake, Reason: "fast crossed above slow"}
		}
		return nil
	}

	if crossedBelow {
		s.log.Debug("sell signal", "close", bar.Close)
		s.pending = true
		// Size 0 closes the full position.
		return &domain.Signal{Type: domain.SignalTypeSell, Reason: "fast crossed below slow"}
	}
	return nil
}

// NotifyOrder clears the pending guard once the order reaches a terminal
// state, whether it filled or bounced.
func (s *SMACross) NotifyOrder(order *domain.Order) {
	if order == nil || !order.Status.Terminal() {
		return
	}
	s.pending = false

	switch order.Status {
	case domain.OrderStatusCompleted:
		s.log.Debug("order executed",
			"side", order.Side,
			"price", order.FilledPrice,
			"size", order.Size,
			"commission", order.Commission,
		)
	case domain.OrderStatusMargin, domain.OrderStatusRejected, domain.OrderStatusCanceled:
		s.log.Debug("order not filled", "status", order.Status)
	}
}

// NotifyTrade logs the realized result of a closed round trip.
func (s *SMACross) NotifyTrade(trade domain.Trade) {
	if !trade.Closed {
		return
	}
	s.log.Debug("trade closed", "gross", trade.GrossPnL, "net", trade.NetPnL)
}

// ---------------------------------------------------------------------------
// Rolling simple moving average
// ---------------------------------------------------------------------------

// rollingSMA maintains a simple moving average over the last N values with
// O(1) updates: a ring buffer plus a running sum.
type rollingSMA struct {
	window []float64
	sum    float64
	next   int
	filled bool
}

func newRollingSMA(period int) *rollingSMA {
	return &rollingSMA{window: make([]float64, period)}
}

// Push adds a value, evicting the oldest once the window is full.
func (r *rollingSMA) Push(v float64) {
	r.sum += v - r.window[r.next]
	r.window[r.next] = v
	r.next++
	if r.next == len(r.window) {
		r.next = 0
		r.filled = true
	}
}

// Ready reports whether a full window has been seen.
func (r *rollingSMA) Ready() bool { return r.filled }

// Value returns the current average. Undefined before Ready.
func (r *rollingSMA) Value() float64 {
	return r.sum / float64(len(r.window))
}
