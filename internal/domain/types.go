// Package domain defines the core types shared across the callisto
// backtesting engine: bars, orders, trades, positions, and run results.
package domain

import (
	"fmt"
	"time"
)

// Market identifies which exchange universe a symbol belongs to.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// ---------------------------------------------------------------------------
// Bars
// ---------------------------------------------------------------------------

// Bar is a single OHLCV observation for one symbol over a fixed interval.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Validate checks the OHLCV constraints: positive prices, non-negative
// volume, and low <= open, close <= high.
func (b Bar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%w: non-positive price at %s", ErrInvalidSeries, b.Timestamp.Format("2006-01-02"))
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume at %s", ErrInvalidSeries, b.Timestamp.Format("2006-01-02"))
	}
	if b.Low > b.High {
		return fmt.Errorf("%w: low %.4f above high %.4f at %s", ErrInvalidSeries, b.Low, b.High, b.Timestamp.Format("2006-01-02"))
	}
	if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("%w: open/close outside low-high range at %s", ErrInvalidSeries, b.Timestamp.Format("2006-01-02"))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderKind is the execution type of an order.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// OrderStatus is the lifecycle state of an order.
//
// Created -> Submitted -> Accepted -> Completed is the happy path. Margin
// (insufficient cash), Rejected (insufficient position), and Canceled are
// terminal failure states.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusMargin    OrderStatus = "margin"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Terminal reports whether the status is final: no further transitions occur.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCanceled, OrderStatusMargin, OrderStatusRejected:
		return true
	}
	return false
}

// Order is a single request to buy or sell, tracked through its lifecycle by
// the broker. A market order submitted at bar i fills at the open of bar i+1;
// the one-bar execution lag is a deliberate no-look-ahead guarantee, not an
// artifact to be optimized away.
type Order struct {
	ID         string
	Symbol     string
	Side       OrderSide
	Kind       OrderKind
	Size       int64
	LimitPrice float64
	Status     OrderStatus

	// CreatedIndex is the bar index at which the order was created and
	// submitted. Fill fields are set only when Status is Completed.
	CreatedIndex int
	FilledIndex  int
	FilledPrice  float64
	Commission   float64
}

// ---------------------------------------------------------------------------
// Positions and trades
// ---------------------------------------------------------------------------

// Position is the current holding in one instrument. Size 0 means flat;
// only long positions exist in this engine. Owned and mutated exclusively by
// the broker simulator.
type Position struct {
	Symbol        string
	Size          int64
	AvgEntryPrice float64
}

// Flat reports whether no position is held.
func (p Position) Flat() bool { return p.Size == 0 }

// MarketValue returns the position value at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Size) * price
}

// Trade is one round trip: opened when the position leaves flat, closed when
// it returns to flat. While open, exit fields are zero and Closed is false.
type Trade struct {
	Symbol     string
	EntryIndex int
	ExitIndex  int
	EntryPrice float64
	ExitPrice  float64
	Size       int64
	GrossPnL   float64
	NetPnL     float64
	Commission float64
	Closed     bool
}

// AccountInfo is a snapshot of an account's financial state, common to the
// simulator and the live-broker boundary.
type AccountInfo struct {
	Cash   float64
	Equity float64
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// SignalType is the intent of a strategy signal.
type SignalType string

const (
	SignalTypeBuy  SignalType = "buy"
	SignalTypeSell SignalType = "sell"
)

// Signal is a trading intent emitted by a strategy. Size 0 on a buy defers
// sizing to the engine's sizer; Size 0 on a sell closes the full position.
type Signal struct {
	Type   SignalType
	Size   int64
	Reason string
}

// ---------------------------------------------------------------------------
// Run results
// ---------------------------------------------------------------------------

// EquityPoint is the portfolio value (cash + position mark-to-market) at the
// close of one bar. One point per processed bar forms the equity curve.
type EquityPoint struct {
	Index     int
	Timestamp time.Time
	Value     float64
}

// RunResult is the immutable record of one completed simulation: the equity
// curve, the trade log, and the parameters that produced them. An open
// position at the end of the series is included in Trades with Closed false.
type RunResult struct {
	Symbol      string
	InitialCash float64
	FinalCash   float64
	Equity      []EquityPoint
	Trades      []Trade
	Params      map[string]float64
}

// FinalEquity returns the last equity-curve value, or InitialCash when the
// run produced no equity points (insufficient history no-op).
func (r *RunResult) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return r.InitialCash
	}
	return r.Equity[len(r.Equity)-1].Value
}

// ClosedTrades returns only the completed round trips, excluding a trade
// still open at the end of the series.
func (r *RunResult) ClosedTrades() []Trade {
	closed := make([]Trade, 0, len(r.Trades))
	for _, t := range r.Trades {
		if t.Closed {
			closed = append(closed, t)
		}
	}
	return closed
}
