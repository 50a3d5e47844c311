package builtins

import (
	"errors"
	"testing"
	"time"

	"callisto/internal/domain"
	"callisto/internal/strategy"
)

func closeBar(n int, close float64) domain.Bar {
	return domain.Bar{
		Symbol:    "TEST",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n),
		Open:      close, High: close, Low: close, Close: close,
		Volume: 1000,
	}
}

func TestSMACrossConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  SMACrossConfig
	}{
		{"fast equals slow", SMACrossConfig{FastPeriod: 10, SlowPeriod: 10}},
		{"fast above slow", SMACrossConfig{FastPeriod: 30, SlowPeriod: 10}},
		{"zero fast", SMACrossConfig{FastPeriod: 0, SlowPeriod: 10}},
		{"negative slow", SMACrossConfig{FastPeriod: 5, SlowPeriod: -1}},
		{"negative stake", SMACrossConfig{FastPeriod: 5, SlowPeriod: 20, Stake: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSMACross(tc.cfg); !errors.Is(err, domain.ErrInvalidParameters) {
				t.Errorf("NewSMACross(%+v) = %v, want ErrInvalidParameters", tc.cfg, err)
			}
		})
	}

	if _, err := NewSMACross(SMACrossConfig{FastPeriod: 5, SlowPeriod: 20, Stake: 100}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestSMACrossSignals(t *testing.T) {
	s, err := NewSMACross(SMACrossConfig{FastPeriod: 2, SlowPeriod: 3, Stake: 100})
	if err != nil {
		t.Fatalf("NewSMACross: %v", err)
	}

	flat := strategy.View{Cash: 100000}

	// Descending closes: fast sits below slow once warmed.
	closes := []float64{30, 20, 10}
	for i, c := range closes {
		if sig := s.Observe(closeBar(i, c), flat); sig != nil {
			t.Fatalf("signal during warmup at bar %d: %+v", i, sig)
		}
	}

	// Sharp rise: fast crosses above slow.
	sig := s.Observe(closeBar(3, 40), flat)
	if sig == nil || sig.Type != domain.SignalTypeBuy {
		t.Fatalf("bar 3 signal = %+v, want buy", sig)
	}
	if sig.Size != 100 {
		t.Errorf("buy size = %d, want stake 100", sig.Size)
	}

	// Fill the order so the pending guard clears and the position is long.
	s.NotifyOrder(&domain.Order{Status: domain.OrderStatusCompleted, Side: domain.OrderSideBuy, FilledPrice: 40, Size: 100})
	long := strategy.View{Cash: 96000, Position: domain.Position{Symbol: "TEST", Size: 100, AvgEntryPrice: 40}}

	// Collapse: fast crosses back below slow within two bars.
	if sig := s.Observe(closeBar(4, 5), long); sig != nil {
		t.Fatalf("bar 4 signal = %+v, want nil (no crossover yet)", sig)
	}
	sig = s.Observe(closeBar(5, 5), long)
	if sig == nil || sig.Type != domain.SignalTypeSell {
		t.Fatalf("bar 5 signal = %+v, want sell", sig)
	}
	if sig.Size != 0 {
		t.Errorf("sell size = %d, want 0 (full close)", sig.Size)
	}
}

func TestSMACrossTieIsNoSignal(t *testing.T) {
	s, _ := NewSMACross(SMACrossConfig{FastPeriod: 2, SlowPeriod: 3, Stake: 100})
	flat := strategy.View{Cash: 100000}

	// Constant closes: both averages equal, diff is exactly zero.
	for i := 0; i < 3; i++ {
		s.Observe(closeBar(i, 10), flat)
	}
	// Rise from a zero diff: previous sign is a tie, so no crossover.
	if sig := s.Observe(closeBar(3, 13), flat); sig != nil {
		t.Fatalf("signal after tie = %+v, want nil", sig)
	}
}

func TestSMACrossPendingGuard(t *testing.T) {
	s, _ := NewSMACross(SMACrossConfig{FastPeriod: 2, SlowPeriod: 3, Stake: 100})
	flat := strategy.View{Cash: 100000}

	for i, c := range []float64{30, 20, 10} {
		s.Observe(closeBar(i, c), flat)
	}
	if sig := s.Observe(closeBar(3, 40), flat); sig == nil {
		t.Fatal("expected buy signal")
	}

	// Order still outstanding: a fresh cross above must not emit even while
	// flat.
	s.Observe(closeBar(4, 5), flat)
	s.Observe(closeBar(5, 5), flat)
	if sig := s.Observe(closeBar(6, 50), flat); sig != nil {
		t.Fatalf("signal while order pending = %+v, want nil", sig)
	}

	// Margin rejection clears the guard and the strategy can try again.
	s.NotifyOrder(&domain.Order{Status: domain.OrderStatusMargin})
	s.Observe(closeBar(7, 4), flat)
	s.Observe(closeBar(8, 1), flat)
	sig := s.Observe(closeBar(9, 60), flat)
	if sig == nil || sig.Type != domain.SignalTypeBuy {
		t.Fatalf("signal after margin recovery = %+v, want buy", sig)
	}
}

func TestSMACrossInitResets(t *testing.T) {
	s, _ := NewSMACross(SMACrossConfig{FastPeriod: 2, SlowPeriod: 3, Stake: 100})
	flat := strategy.View{Cash: 100000}

	for i, c := range []float64{30, 20, 10, 40} {
		s.Observe(closeBar(i, c), flat)
	}

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// After reset the same prefix must behave identically: no signal until
	// the same crossover bar.
	for i, c := range []float64{30, 20, 10} {
		if sig := s.Observe(closeBar(i, c), flat); sig != nil {
			t.Fatalf("signal during warmup after Init at bar %d", i)
		}
	}
	if sig := s.Observe(closeBar(3, 40), flat); sig == nil {
		t.Fatal("expected buy signal after Init reset")
	}
}

func TestRollingSMA(t *testing.T) {
	r := newRollingSMA(3)

	r.Push(1)
	r.Push(2)
	if r.Ready() {
		t.Fatal("Ready before window filled")
	}
	r.Push(3)
	if !r.Ready() {
		t.Fatal("not Ready after window filled")
	}
	if got := r.Value(); got != 2 {
		t.Errorf("Value = %v, want 2", got)
	}

	r.Push(7) // evicts 1
	if got := r.Value(); got != 4 {
		t.Errorf("Value after eviction = %v, want 4", got)
	}
}
