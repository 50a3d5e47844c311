package domain

import (
	"errors"
	"testing"
	"time"
)

func TestBarValidate(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	valid := Bar{Symbol: "AAPL", Timestamp: ts, Open: 185.0, High: 186.5, Low: 184.0, Close: 185.5, Volume: 50000000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid bar failed validation: %v", err)
	}

	cases := []struct {
		name string
		bar  Bar
	}{
		{"zero open", Bar{Timestamp: ts, Open: 0, High: 10, Low: 5, Close: 7, Volume: 1}},
		{"negative volume", Bar{Timestamp: ts, Open: 7, High: 10, Low: 5, Close: 7, Volume: -1}},
		{"low above high", Bar{Timestamp: ts, Open: 7, High: 5, Low: 10, Close: 7, Volume: 1}},
		{"close above high", Bar{Timestamp: ts, Open: 7, High: 10, Low: 5, Close: 11, Volume: 1}},
		{"open below low", Bar{Timestamp: ts, Open: 4, High: 10, Low: 5, Close: 7, Volume: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.bar.Validate()
			if !errors.Is(err, ErrInvalidSeries) {
				t.Errorf("Validate() = %v, want ErrInvalidSeries", err)
			}
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusCompleted, OrderStatusCanceled, OrderStatusMargin, OrderStatusRejected}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	open := []OrderStatus{OrderStatusCreated, OrderStatusSubmitted, OrderStatusAccepted}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestPosition(t *testing.T) {
	var p Position
	if !p.Flat() {
		t.Error("zero-value Position should be flat")
	}

	p = Position{Symbol: "AAPL", Size: 100, AvgEntryPrice: 185.0}
	if p.Flat() {
		t.Error("Position with size 100 should not be flat")
	}
	if got := p.MarketValue(190.0); got != 19000.0 {
		t.Errorf("MarketValue(190) = %v, want 19000", got)
	}
}

func TestRunResultFinalEquity(t *testing.T) {
	r := &RunResult{InitialCash: 100000}
	if got := r.FinalEquity(); got != 100000 {
		t.Errorf("FinalEquity with empty curve = %v, want initial cash 100000", got)
	}

	r.Equity = []EquityPoint{{Index: 0, Value: 100500}, {Index: 1, Value: 101000}}
	if got := r.FinalEquity(); got != 101000 {
		t.Errorf("FinalEquity = %v, want 101000", got)
	}
}

func TestRunResultClosedTrades(t *testing.T) {
	r := &RunResult{
		Trades: []Trade{
			{EntryIndex: 5, ExitIndex: 10, Closed: true},
			{EntryIndex: 20, Closed: false},
		},
	}
	closed := r.ClosedTrades()
	if len(closed) != 1 {
		t.Fatalf("ClosedTrades returned %d trades, want 1", len(closed))
	}
	if closed[0].EntryIndex != 5 {
		t.Errorf("closed trade EntryIndex = %d, want 5", closed[0].EntryIndex)
	}
}
