// Package strategy defines the Strategy interface for trading decisions and
// a Registry for looking up implementations by name.
package strategy

import (
	"sort"

	"callisto/internal/domain"
)

// View is the read-only slice of broker state a strategy may observe when
// deciding. The broker remains the sole owner of the underlying ledger.
type View struct {
	Cash         float64
	Position     domain.Position
	PendingOrder bool
}

// Strategy is a decision unit consuming bars and broker state and emitting
// order intents. Implementations must be deterministic: identical bar input
// must produce identical signals.
//
// The same Strategy value drives either the backtest engine or a live order
// router; only the consumer of its signals changes.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init resets all internal indicator state. Called once before a run;
	// a strategy instance may be reused across runs after Init.
	Init() error

	// Warmup returns the index of the first bar at which the strategy's
	// indicators are fully warmed and a decision is possible. The engine
	// only records equity from this index on.
	Warmup() int

	// Observe consumes the next bar and the current broker view, returning
	// a signal or nil. Observe is called for every bar including the warmup
	// prefix so indicators can accumulate.
	Observe(bar domain.Bar, view View) *domain.Signal

	// NotifyOrder informs the strategy that one of its orders reached a new
	// state. Terminal states clear the strategy's pending-order guard.
	NotifyOrder(order *domain.Order)

	// NotifyTrade informs the strategy that a round trip closed.
	NotifyTrade(trade domain.Trade)
}

// Registry holds a named collection of strategies.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns all registered strategy names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
