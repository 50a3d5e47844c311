// Package broker provides the order-execution boundary: a Broker interface
// shared by the in-memory simulator and the live Alpaca adapter, so a
// strategy's order intents can be consumed by either without change.
package broker

import (
	"context"

	"callisto/internal/domain"
)

// Broker abstracts order execution and account state.
type Broker interface {
	// Name returns the broker identifier (e.g. "simulator", "alpaca").
	Name() string

	// SubmitOrder submits an order for execution and returns it with the
	// broker-assigned ID and initial status.
	SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error

	// Positions returns all current holdings.
	Positions(ctx context.Context) ([]domain.Position, error)

	// Account returns a snapshot of the account's financial state.
	Account(ctx context.Context) (domain.AccountInfo, error)
}
