package engine

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"callisto/internal/broker"
	"callisto/internal/domain"
	"callisto/internal/strategy"
	"callisto/internal/strategy/builtins"
)

func makeSeries(t *testing.T, closes []float64) *domain.Series {
	t.Helper()
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	s, err := domain.NewSeries("TEST", bars)
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	return s
}

// fortyBarCloses is a 40-bar path that produces exactly one crossover round
// trip with fast=5, slow=20: falling through the warmup window, rising
// steeply enough for the fast average to cross above the slow one, then
// falling again.
func fortyBarCloses() []float64 {
	closes := make([]float64, 40)
	for i := 0; i < 20; i++ {
		closes[i] = 120 - float64(i)
	}
	for i := 20; i < 30; i++ {
		closes[i] = 100 + 3*float64(i-19)
	}
	for i := 30; i < 40; i++ {
		closes[i] = 130 - 3*float64(i-29)
	}
	return closes
}

func newCrossover(t *testing.T, fast, slow int, stake int64) *builtins.SMACross {
	t.Helper()
	s, err := builtins.NewSMACross(builtins.SMACrossConfig{FastPeriod: fast, SlowPeriod: slow, Stake: stake})
	if err != nil {
		t.Fatalf("NewSMACross: %v", err)
	}
	return s
}

func TestRunSingleRoundTrip(t *testing.T) {
	series := makeSeries(t, fortyBarCloses())
	b := broker.NewSimulatorBroker(100000, 0.001)
	e := NewEngine(b, newCrossover(t, 5, 20, 100), nil)

	res, err := e.Run(context.Background(), series, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One equity point per bar past warmup.
	if len(res.Equity) != 40-20 {
		t.Fatalf("equity points = %d, want 20", len(res.Equity))
	}

	// Exactly one buy and one sell, both completed, filled at the open of
	// the bar after their signal.
	orders := b.Orders()
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(orders))
	}
	buy, sell := orders[0], orders[1]
	if buy.Side != domain.OrderSideBuy || sell.Side != domain.OrderSideSell {
		t.Fatalf("order sides = %s/%s, want buy/sell", buy.Side, sell.Side)
	}
	if buy.Status != domain.OrderStatusCompleted || sell.Status != domain.OrderStatusCompleted {
		t.Fatalf("order statuses = %s/%s, want completed/completed", buy.Status, sell.Status)
	}
	if buy.FilledIndex != buy.CreatedIndex+1 {
		t.Errorf("buy filled at index %d, created at %d: want one-bar lag", buy.FilledIndex, buy.CreatedIndex)
	}
	if sell.FilledIndex != sell.CreatedIndex+1 {
		t.Errorf("sell filled at index %d, created at %d: want one-bar lag", sell.FilledIndex, sell.CreatedIndex)
	}
	if buy.FilledPrice != 118 {
		t.Errorf("buy fill price = %v, want 118 (next bar open)", buy.FilledPrice)
	}
	if sell.FilledPrice != 103 {
		t.Errorf("sell fill price = %v, want 103 (next bar open)", sell.FilledPrice)
	}

	// Net P&L = (103-118)*100 - (11800*0.001 + 10300*0.001) = -1522.1
	closed := res.ClosedTrades()
	if len(closed) != 1 {
		t.Fatalf("closed trades = %d, want 1", len(closed))
	}
	if math.Abs(closed[0].NetPnL-(-1522.1)) > 1e-9 {
		t.Errorf("net pnl = %v, want -1522.1", closed[0].NetPnL)
	}
	if math.Abs(res.FinalCash-98477.9) > 1e-9 {
		t.Errorf("final cash = %v, want 98477.9", res.FinalCash)
	}
	if math.Abs(res.FinalEquity()-98477.9) > 1e-9 {
		t.Errorf("final equity = %v, want 98477.9 (flat at end)", res.FinalEquity())
	}
}

func TestRunFlatSeriesIsInert(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	series := makeSeries(t, closes)
	b := broker.NewSimulatorBroker(100000, 0.001)
	e := NewEngine(b, newCrossover(t, 5, 20, 100), nil)

	res, err := e.Run(context.Background(), series, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0 on constant prices", len(res.Trades))
	}
	if len(res.Equity) != 10 {
		t.Fatalf("equity points = %d, want 10", len(res.Equity))
	}
	for _, p := range res.Equity {
		if p.Value != 100000 {
			t.Fatalf("equity moved to %v on constant prices", p.Value)
		}
	}
}

func TestRunInsufficientHistoryIsNoOp(t *testing.T) {
	series := makeSeries(t, []float64{100, 101, 102, 103, 104})
	b := broker.NewSimulatorBroker(100000, 0.001)
	e := NewEngine(b, newCrossover(t, 5, 20, 100), nil)

	res, err := e.Run(context.Background(), series, nil)
	if err != nil {
		t.Fatalf("Run with short series: %v", err)
	}
	if len(res.Equity) != 0 || len(res.Trades) != 0 {
		t.Errorf("short series produced equity=%d trades=%d, want 0/0", len(res.Equity), len(res.Trades))
	}
	if res.FinalCash != 100000 {
		t.Errorf("final cash = %v, want untouched 100000", res.FinalCash)
	}
}

func TestRunOpenPositionStaysOpen(t *testing.T) {
	// Truncate the path right after the buy fill: still long at the end.
	series := makeSeries(t, fortyBarCloses()[:31])
	b := broker.NewSimulatorBroker(100000, 0.001)
	e := NewEngine(b, newCrossover(t, 5, 20, 100), nil)

	res, err := e.Run(context.Background(), series, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1 open trade", len(res.Trades))
	}
	if res.Trades[0].Closed {
		t.Error("end-of-series position should remain an open trade")
	}
	if len(res.ClosedTrades()) != 0 {
		t.Error("open trade must be excluded from closed-trade statistics")
	}
	if b.Position().Size != 100 {
		t.Errorf("position = %d, want 100 (not force-closed)", b.Position().Size)
	}
}

func TestRunMarginOrderRecovers(t *testing.T) {
	// Stake worth 1000 shares at ~50 against 100 of cash: the buy bounces.
	closes := []float64{30, 20, 10, 40, 50, 50, 50, 50}
	series := makeSeries(t, closes)
	b := broker.NewSimulatorBroker(100, 0.001)
	e := NewEngine(b, newCrossover(t, 2, 3, 1000), nil)

	res, err := e.Run(context.Background(), series, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	orders := b.Orders()
	if len(orders) == 0 {
		t.Fatal("expected at least one order")
	}
	if orders[0].Status != domain.OrderStatusMargin {
		t.Fatalf("first order status = %s, want margin", orders[0].Status)
	}
	if res.FinalCash != 100 {
		t.Errorf("final cash = %v, want unchanged 100", res.FinalCash)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0 after margin rejection", len(res.Trades))
	}
	if !b.Position().Flat() {
		t.Error("position should remain flat after margin rejection")
	}
}

func TestRunAtMostOneOutstandingOrder(t *testing.T) {
	series := makeSeries(t, fortyBarCloses())
	b := broker.NewSimulatorBroker(100000, 0.001)
	e := NewEngine(b, newCrossover(t, 5, 20, 100), nil)

	if _, err := e.Run(context.Background(), series, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Orders fill strictly in sequence: each must be terminal before the
	// next is created.
	orders := b.Orders()
	for i := 1; i < len(orders); i++ {
		prev, cur := orders[i-1], orders[i]
		if !prev.Status.Terminal() {
			t.Fatalf("order %s non-terminal when %s was created", prev.ID, cur.ID)
		}
		if cur.CreatedIndex < prev.FilledIndex {
			t.Fatalf("order %s created at %d before %s resolved at %d",
				cur.ID, cur.CreatedIndex, prev.ID, prev.FilledIndex)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	series := makeSeries(t, fortyBarCloses())

	run := func() *domain.RunResult {
		b := broker.NewSimulatorBroker(100000, 0.001)
		e := NewEngine(b, newCrossover(t, 5, 20, 100), nil)
		res, err := e.Run(context.Background(), series, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different run results")
	}
}

func TestSizerAppliedToUnsizedBuys(t *testing.T) {
	series := makeSeries(t, fortyBarCloses())
	b := broker.NewSimulatorBroker(100000, 0.001)
	// Stake 0: the strategy defers sizing to the engine.
	e := NewEngine(b, newCrossover(t, 5, 20, 0), FixedStake{Stake: 250})

	if _, err := e.Run(context.Background(), series, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	orders := b.Orders()
	if len(orders) == 0 {
		t.Fatal("expected orders")
	}
	if orders[0].Size != 250 {
		t.Errorf("buy size = %d, want sizer stake 250", orders[0].Size)
	}
}

func TestPercentOfCashSizer(t *testing.T) {
	if _, err := NewPercentOfCash(0); err == nil {
		t.Error("NewPercentOfCash(0) should fail")
	}
	if _, err := NewPercentOfCash(1.5); err == nil {
		t.Error("NewPercentOfCash(1.5) should fail")
	}

	s, err := NewPercentOfCash(0.5)
	if err != nil {
		t.Fatalf("NewPercentOfCash: %v", err)
	}
	got := s.Size(strategy.View{Cash: 10000}, 50)
	if got != 100 {
		t.Errorf("Size = %d, want 100 (half of 10000 at price 50)", got)
	}
}
