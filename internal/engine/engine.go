// Package engine drives the bar-by-bar simulation loop, wiring a bar series
// through a strategy into the broker simulator and recording the equity
// curve.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"callisto/internal/broker"
	"callisto/internal/domain"
	"callisto/internal/strategy"
)

// Engine runs one simulation over one bar series. Execution is strictly
// single-threaded: bars are processed in order and at most one order is
// outstanding at any time.
type Engine struct {
	broker *broker.SimulatorBroker
	strat  strategy.Strategy
	sizer  Sizer
	log    *slog.Logger
}

// NewEngine creates an Engine. A nil sizer defaults to FixedStake{1}, which
// only matters for strategies that emit unsized buy signals.
func NewEngine(b *broker.SimulatorBroker, s strategy.Strategy, sizer Sizer) *Engine {
	if sizer == nil {
		sizer = FixedStake{Stake: 1}
	}
	return &Engine{
		broker: b,
		strat:  s,
		sizer:  sizer,
		log:    slog.Default().With("component", "engine"),
	}
}

// Run executes the event loop over the series and returns the immutable run
// record. Per bar, in order: resolve the previous bar's pending order at
// this bar's open, ask the strategy for a decision at this bar's close, then
// mark to market and record an equity point. The ordering guarantees an
// order placed at bar i-1 is filled before the strategy sees bar i.
//
// A series shorter than the strategy's warmup is a non-fatal no-op: the run
// completes with an empty equity curve and no trades. A position still open
// at the last bar stays open.
func (e *Engine) Run(ctx context.Context, series *domain.Series, params map[string]float64) (*domain.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.strat.Init(); err != nil {
		return nil, fmt.Errorf("initializing strategy %s: %w", e.strat.Name(), err)
	}

	res := &domain.RunResult{
		Symbol:      series.Symbol(),
		InitialCash: e.broker.Cash(),
		Params:      params,
	}

	warm := e.strat.Warmup()
	n := series.Len()
	if n <= warm {
		e.log.Warn("insufficient history, skipping run",
			"symbol", series.Symbol(), "bars", n, "warmup", warm)
		res.FinalCash = e.broker.Cash()
		return res, nil
	}

	res.Equity = make([]domain.EquityPoint, 0, n-warm)

	for i := 0; i < n; i++ {
		bar := series.At(i)

		// Fill the order submitted during the previous bar at this bar's
		// open, before the strategy is asked for a new decision.
		if order, closed := e.broker.ResolvePending(i, bar.Open); order != nil {
			e.strat.NotifyOrder(order)
			if closed != nil {
				e.strat.NotifyTrade(*closed)
			}
		}

		view := strategy.View{
			Cash:         e.broker.Cash(),
			Position:     e.broker.Position(),
			PendingOrder: e.broker.HasPending(),
		}
		if sig := e.strat.Observe(bar, view); sig != nil {
			e.submit(ctx, sig, bar, i, view)
		}

		if i >= warm {
			res.Equity = append(res.Equity, domain.EquityPoint{
				Index:     i,
				Timestamp: bar.Timestamp,
				Value:     e.broker.MarkToMarket(bar.Close),
			})
		}
	}

	res.FinalCash = e.broker.Cash()
	res.Trades = e.broker.Trades()
	return res, nil
}

// submit converts a signal into an order and hands it to the broker. A
// submission failure is recovered by notifying the strategy with a rejected
// order so its pending guard clears.
func (e *Engine) submit(ctx context.Context, sig *domain.Signal, bar domain.Bar, index int, view strategy.View) {
	order := &domain.Order{
		Symbol:       bar.Symbol,
		Kind:         domain.OrderKindMarket,
		Size:         sig.Size,
		Status:       domain.OrderStatusCreated,
		CreatedIndex: index,
	}

	switch sig.Type {
	case domain.SignalTypeBuy:
		order.Side = domain.OrderSideBuy
		if order.Size == 0 {
			order.Size = e.sizer.Size(view, bar.Close)
		}
	case domain.SignalTypeSell:
		order.Side = domain.OrderSideSell
		if order.Size == 0 {
			order.Size = view.Position.Size
		}
	}

	if _, err := e.broker.SubmitOrder(ctx, order); err != nil {
		e.log.Warn("order submission failed", "side", order.Side, "size", order.Size, "err", err)
		order.Status = domain.OrderStatusRejected
		e.strat.NotifyOrder(order)
	}
}
