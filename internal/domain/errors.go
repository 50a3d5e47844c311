package domain

import "errors"

// Sentinel errors for the simulation core. Callers classify failures with
// errors.Is: data and parameter errors abort a single run, order-level errors
// are recovered inside the broker and surfaced as order notifications.
var (
	// ErrEmptySeries indicates the data collaborator returned no bars for a
	// symbol. Fatal to that run, non-fatal to a multi-symbol batch.
	ErrEmptySeries = errors.New("empty bar series")

	// ErrInvalidSeries indicates bars that violate OHLCV constraints or
	// ordering and could not be repaired by cleaning.
	ErrInvalidSeries = errors.New("invalid bar series")

	// ErrInvalidParameters indicates a strategy or sizer configuration that
	// fails validation (e.g. fast period >= slow period). Rejected before a
	// run starts.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInsufficientFunds indicates a buy order whose cost plus commission
	// exceeds available cash. The order transitions to OrderStatusMargin.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPosition indicates a sell order larger than the held
	// position. The order transitions to OrderStatusRejected.
	ErrInsufficientPosition = errors.New("insufficient position")

	// ErrOrderPending indicates an order was submitted while another order
	// is still in a non-terminal state.
	ErrOrderPending = errors.New("order already pending")
)
