package onecall

import (
	"context"
	"fmt"

	"onecall/pkg/exchange"
)

// ClosePositions flattens every open position on symbol with reduce-only
// market orders on the opposite side. No position means nothing is sent.
// It stops at the first rejected order and returns what was placed so far.
func ClosePositions(ctx context.Context, ex exchange.Exchange, symbol string) ([]exchange.Order, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(ex.Name(), "close positions", "symbol is required")
	}

	positions, err := ex.Positions(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var placed []exchange.Order
	for _, p := range positions {
		if p.Symbol != symbol || !p.Size.IsPositive() {
			continue
		}
		order, err := ex.PlaceOrder(ctx, exchange.OrderRequest{
			Symbol:     symbol,
			Side:       p.Side.Opposite(),
			Type:       exchange.OrderTypeMarket,
			Quantity:   p.Size,
			ReduceOnly: true,
		})
		if err != nil {
			return placed, fmt.Errorf("close %s %s position: %w", p.Side, symbol, err)
		}
		placed = append(placed, *order)
	}
	return placed, nil
}
