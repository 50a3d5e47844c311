package broker

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"callisto/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker routes orders to the Alpaca trading API. It lives at the
// live-trading collaborator boundary: the simulation core never touches it,
// but a strategy whose intents are forwarded here behaves identically to one
// driven by the simulator.
type AlpacaBroker struct {
	client *alpaca.Client
}

// NewAlpacaBroker creates an AlpacaBroker with the given credentials and API
// endpoint (paper or live).
func NewAlpacaBroker(apiKey, apiSecret, baseURL string) *AlpacaBroker {
	return &AlpacaBroker{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string { return "alpaca" }

// SubmitOrder places the order with Alpaca and copies back the assigned ID
// and status.
func (b *AlpacaBroker) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	qty := decimal.NewFromInt(order.Size)

	req := alpaca.PlaceOrderRequest{
		Symbol:      order.Symbol,
		Qty:         &qty,
		TimeInForce: alpaca.Day,
	}

	switch order.Side {
	case domain.OrderSideBuy:
		req.Side = alpaca.Buy
	case domain.OrderSideSell:
		req.Side = alpaca.Sell
	default:
		return nil, fmt.Errorf("%w: order side %q", domain.ErrInvalidParameters, order.Side)
	}

	switch order.Kind {
	case domain.OrderKindLimit:
		limit := decimal.NewFromFloat(order.LimitPrice)
		req.Type = alpaca.Limit
		req.LimitPrice = &limit
	default:
		req.Type = alpaca.Market
	}

	placed, err := b.client.PlaceOrder(req)
	if err != nil {
		return nil, fmt.Errorf("placing order: %w", err)
	}

	order.ID = placed.ID
	order.Status = domain.OrderStatusSubmitted
	return order, nil
}

// CancelOrder requests cancellation of an open order.
func (b *AlpacaBroker) CancelOrder(_ context.Context, orderID string) error {
	if err := b.client.CancelOrder(orderID); err != nil {
		return fmt.Errorf("canceling order %s: %w", orderID, err)
	}
	return nil
}

// Positions returns all current holdings at Alpaca.
func (b *AlpacaBroker) Positions(_ context.Context) ([]domain.Position, error) {
	raw, err := b.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, domain.Position{
			Symbol:        p.Symbol,
			Size:          p.Qty.IntPart(),
			AvgEntryPrice: p.AvgEntryPrice.InexactFloat64(),
		})
	}
	return positions, nil
}

// Account returns cash and equity from the Alpaca account.
func (b *AlpacaBroker) Account(_ context.Context) (domain.AccountInfo, error) {
	acct, err := b.client.GetAccount()
	if err != nil {
		return domain.AccountInfo{}, fmt.Errorf("fetching account: %w", err)
	}
	return domain.AccountInfo{
		Cash:   acct.Cash.InexactFloat64(),
		Equity: acct.Equity.InexactFloat64(),
	}, nil
}
