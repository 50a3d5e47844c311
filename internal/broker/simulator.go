package broker

import (
	"context"
	"fmt"

	"callisto/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

// DefaultCommission is the proportional commission rate applied to notional
// value on both the entry and exit leg (0.1%).
const DefaultCommission = 0.001

// SimulatorBroker is the authoritative cash and position ledger for one
// simulation run. It is the sole mutator of the position: cash and position
// change only through order fills resolved by ResolvePending.
//
// At most one order is outstanding at a time. A market order submitted
// during bar i is filled at the open of bar i+1, never at the signal bar's
// close.
type SimulatorBroker struct {
	cash       float64
	commission float64
	position   domain.Position
	pending    *domain.Order
	orders     []*domain.Order
	trades     []domain.Trade
	open       *domain.Trade
	nextID     int
}

// NewSimulatorBroker creates a simulator with the given starting cash and
// proportional commission rate. A non-positive rate falls back to
// DefaultCommission; pass an explicit tiny rate to approximate zero.
func NewSimulatorBroker(cash, commission float64) *SimulatorBroker {
	if commission <= 0 {
		commission = DefaultCommission
	}
	return &SimulatorBroker{
		cash:       cash,
		commission: commission,
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string { return "simulator" }

// SubmitOrder accepts the order and holds it as pending until the next bar
// open. Only one order may be outstanding; a second submission fails with
// domain.ErrOrderPending.
func (b *SimulatorBroker) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if b.pending != nil {
		return nil, fmt.Errorf("order %s: %w", b.pending.ID, domain.ErrOrderPending)
	}
	if order.Size <= 0 {
		return nil, fmt.Errorf("%w: order size %d", domain.ErrInvalidParameters, order.Size)
	}

	b.nextID++
	order.ID = fmt.Sprintf("sim-%d", b.nextID)
	order.Status = domain.OrderStatusSubmitted
	b.pending = order
	b.orders = append(b.orders, order)
	return order, nil
}

// CancelOrder cancels the pending order if its ID matches.
func (b *SimulatorBroker) CancelOrder(_ context.Context, orderID string) error {
	if b.pending == nil || b.pending.ID != orderID {
		return fmt.Errorf("order %s not open", orderID)
	}
	b.pending.Status = domain.OrderStatusCanceled
	b.pending = nil
	return nil
}

// Positions returns the current position, empty when flat.
func (b *SimulatorBroker) Positions(_ context.Context) ([]domain.Position, error) {
	if b.position.Flat() {
		return nil, nil
	}
	return []domain.Position{b.position}, nil
}

// Account returns cash and cash-only equity. For marked equity during a run
// use MarkToMarket with the current close.
func (b *SimulatorBroker) Account(_ context.Context) (domain.AccountInfo, error) {
	return domain.AccountInfo{Cash: b.cash, Equity: b.cash}, nil
}

// ---------------------------------------------------------------------------
// Engine-facing synchronous API
// ---------------------------------------------------------------------------

// HasPending reports whether an order is awaiting execution.
func (b *SimulatorBroker) HasPending() bool { return b.pending != nil }

// Cash returns the current cash balance.
func (b *SimulatorBroker) Cash() float64 { return b.cash }

// Position returns a copy of the current position.
func (b *SimulatorBroker) Position() domain.Position { return b.position }

// MarkToMarket returns portfolio value at the given close price: cash plus
// position market value.
func (b *SimulatorBroker) MarkToMarket(closePrice float64) float64 {
	return b.cash + b.position.MarketValue(closePrice)
}

// ResolvePending executes the pending order against the open price of the
// bar at index. It returns the resolved order (nil when nothing was
// pending) and, when the fill closed a round trip, the closed trade.
//
// Insufficient cash moves a buy to Margin; an oversized sell moves to
// Rejected. Both leave cash and position untouched and are recoverable:
// the caller notifies the strategy so it can clear its pending flag.
func (b *SimulatorBroker) ResolvePending(index int, openPrice float64) (*domain.Order, *domain.Trade) {
	if b.pending == nil {
		return nil, nil
	}
	order := b.pending
	b.pending = nil
	order.Status = domain.OrderStatusAccepted

	switch order.Side {
	case domain.OrderSideBuy:
		return b.fillBuy(order, index, openPrice)
	case domain.OrderSideSell:
		return b.fillSell(order, index, openPrice)
	default:
		order.Status = domain.OrderStatusRejected
		return order, nil
	}
}

func (b *SimulatorBroker) fillBuy(order *domain.Order, index int, price float64) (*domain.Order, *domain.Trade) {
	cost := price * float64(order.Size)
	comm := cost * b.commission
	if cost+comm > b.cash {
		order.Status = domain.OrderStatusMargin
		return order, nil
	}

	b.cash -= cost + comm

	wasFlat := b.position.Flat()
	oldSize := b.position.Size
	b.position.Symbol = order.Symbol
	b.position.Size += order.Size
	b.position.AvgEntryPrice = (b.position.AvgEntryPrice*float64(oldSize) + cost) / float64(b.position.Size)

	if wasFlat {
		b.open = &domain.Trade{
			Symbol:     order.Symbol,
			EntryIndex: index,
			EntryPrice: price,
			Size:       order.Size,
			Commission: comm,
		}
	} else {
		b.open.Size += order.Size
		b.open.EntryPrice = b.position.AvgEntryPrice
		b.open.Commission += comm
	}

	b.complete(order, index, price, comm)
	return order, nil
}

func (b *SimulatorBroker) fillSell(order *domain.Order, index int, price float64) (*domain.Order, *domain.Trade) {
	if b.position.Size < order.Size {
		order.Status = domain.OrderStatusRejected
		return order, nil
	}

	proceeds := price * float64(order.Size)
	comm := proceeds * b.commission
	b.cash += proceeds - comm
	b.position.Size -= order.Size

	var closed *domain.Trade
	if b.position.Flat() {
		t := b.open
		b.open = nil
		t.ExitIndex = index
		t.ExitPrice = price
		t.GrossPnL = (price - t.EntryPrice) * float64(t.Size)
		t.Commission += comm
		t.NetPnL = t.GrossPnL - t.Commission
		t.Closed = true
		b.trades = append(b.trades, *t)
		closed = &b.trades[len(b.trades)-1]

		b.position.AvgEntryPrice = 0
	} else if b.open != nil {
		b.open.Commission += comm
	}

	b.complete(order, index, price, comm)
	return order, closed
}

func (b *SimulatorBroker) complete(order *domain.Order, index int, price, comm float64) {
	order.Status = domain.OrderStatusCompleted
	order.FilledIndex = index
	order.FilledPrice = price
	order.Commission = comm
}

// Trades returns all round trips in open order; a position still open at the
// end of the series is appended as an unclosed trade.
func (b *SimulatorBroker) Trades() []domain.Trade {
	out := make([]domain.Trade, len(b.trades))
	copy(out, b.trades)
	if b.open != nil {
		out = append(out, *b.open)
	}
	return out
}

// Orders returns every order ever submitted, in submission order.
func (b *SimulatorBroker) Orders() []*domain.Order {
	return b.orders
}
