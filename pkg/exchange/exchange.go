// Package exchange defines the venue-neutral client contract, the normalized
// types every client returns and the error taxonomy they share.
package exchange

import "context"

// Exchange is implemented once per venue. A value is created with valid
// credentials and is safe for concurrent use.
//
// Every method returns a *Error on failure:
//   - ErrAuthentication when the venue rejects the credentials,
//   - ErrNetwork on transport failure, cancellation or timeout,
//   - ErrExchange on a well-formed error response (including rate limiting),
//   - ErrInvalidRequest when the arguments are unusable for this venue,
//   - ErrNotSupported when the venue has no such operation.
type Exchange interface {
	Name() string

	// OpenOrders lists active orders. An empty symbol lists every symbol where
	// the venue allows it.
	OpenOrders(ctx context.Context, symbol string) ([]Order, error)

	// ClosedOrders lists filled orders.
	ClosedOrders(ctx context.Context, symbol string) ([]Order, error)

	Positions(ctx context.Context, symbol string) ([]Position, error)
	Balances(ctx context.Context) ([]Balance, error)
	OrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)
	Candles(ctx context.Context, req CandleRequest) ([]Candle, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// CancelAll cancels every active order on symbol.
	CancelAll(ctx context.Context, symbol string) error
}
