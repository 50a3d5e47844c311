package strategy

import (
	"testing"

	"callisto/internal/domain"
)

type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string                                  { return s.name }
func (s *stubStrategy) Init() error                                   { return nil }
func (s *stubStrategy) Warmup() int                                   { return 0 }
func (s *stubStrategy) Observe(domain.Bar, View) *domain.Signal       { return nil }
func (s *stubStrategy) NotifyOrder(*domain.Order)                     {}
func (s *stubStrategy) NotifyTrade(domain.Trade)                      {}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "bravo"})
	r.Register(&stubStrategy{name: "alpha"})

	if _, ok := r.Get("alpha"); !ok {
		t.Error("Get(alpha) not found after Register")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should not be found")
	}

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "bravo" {
		t.Errorf("List() = %v, want sorted [alpha bravo]", names)
	}
}
