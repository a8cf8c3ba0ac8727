package exchange

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts the spellings venues use (BUY, Buy, bid, ask, ...).
func ParseSide(s string) Side {
	switch strings.ToLower(s) {
	case "buy", "bid", "long":
		return SideBuy
	case "sell", "ask", "short":
		return SideSell
	}
	return Side(strings.ToLower(s))
}

// Opposite returns the side that closes a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type OrderStatus string

const (
	StatusNew             OrderStatus = "new"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCanceled        OrderStatus = "canceled"
	StatusRejected        OrderStatus = "rejected"
	StatusExpired         OrderStatus = "expired"
	StatusUnknown         OrderStatus = "unknown"
)

// ParseStatus maps venue-specific order states onto OrderStatus.
func ParseStatus(s string) OrderStatus {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "new", "open", "active", "live", "created", "untriggered":
		return StatusNew
	case "partiallyfilled", "partially filled":
		return StatusPartiallyFilled
	case "filled", "closed", "done", "complete":
		return StatusFilled
	case "canceled", "cancelled", "partiallyfilledcanceled", "deactivated":
		return StatusCanceled
	case "rejected":
		return StatusRejected
	case "expired":
		return StatusExpired
	}
	return StatusUnknown
}

// Open reports whether an order in this state can still trade.
func (s OrderStatus) Open() bool {
	return s == StatusNew || s == StatusPartiallyFilled
}

type TimeInForce string

const (
	GoodTillCancel    TimeInForce = "GTC"
	ImmediateOrCancel TimeInForce = "IOC"
	FillOrKill        TimeInForce = "FOK"
)

// Order is a normalized order snapshot as reported by an exchange.
type Order struct {
	Exchange      string          `json:"exchange"`
	ID            string          `json:"id"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"type"`
	Status        OrderStatus     `json:"status"`
	RawStatus     string          `json:"raw_status"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	FilledQty     decimal.Decimal `json:"filled_quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	TimeInForce   TimeInForce     `json:"time_in_force,omitempty"`
	ReduceOnly    bool            `json:"reduce_only"`
	PostOnly      bool            `json:"post_only,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Position struct {
	Exchange         string          `json:"exchange"`
	Symbol           string          `json:"symbol"`
	Side             Side            `json:"side"`
	Size             decimal.Decimal `json:"size"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	MarkPrice        decimal.Decimal `json:"mark_price"`
	LiquidationPrice decimal.Decimal `json:"liquidation_price"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	Leverage         decimal.Decimal `json:"leverage"`
}

type Balance struct {
	Exchange      string          `json:"exchange"`
	Asset         string          `json:"asset"`
	Total         decimal.Decimal `json:"total"`
	Available     decimal.Decimal `json:"available"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// OrderBook is a depth snapshot. Bids are best (highest) first, asks best
// (lowest) first, as delivered by the venue.
type OrderBook struct {
	Exchange string       `json:"exchange"`
	Symbol   string       `json:"symbol"`
	Bids     []PriceLevel `json:"bids"`
	Asks     []PriceLevel `json:"asks"`
	Time     time.Time    `json:"time"`
}

type Candle struct {
	OpenTime  time.Time       `json:"open_time"`
	CloseTime time.Time       `json:"close_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// CandleRequest selects klines. Zero Start/End leave the range to the venue;
// zero Limit uses DefaultCandleLimit.
type CandleRequest struct {
	Symbol   string
	Interval Interval
	Start    time.Time
	End      time.Time
	Limit    int
}

const DefaultCandleLimit = 500

func (r CandleRequest) LimitOrDefault() int {
	if r.Limit <= 0 {
		return DefaultCandleLimit
	}
	return r.Limit
}

// OrderRequest describes a new market or limit order.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal // limit orders only
	TimeInForce   TimeInForce     // defaults to GTC for limit orders
	ClientOrderID string          // generated when empty
	ReduceOnly    bool
	PostOnly      bool
}

// Validate checks the request before anything is sent. It fills in
// TimeInForce for limit orders.
func (r *OrderRequest) Validate(exchange string) error {
	const op = "place order"
	switch {
	case r.Symbol == "":
		return InvalidRequestError(exchange, op, "symbol is required")
	case r.Side != SideBuy && r.Side != SideSell:
		return InvalidRequestError(exchange, op, "side must be buy or sell")
	case r.Type != OrderTypeMarket && r.Type != OrderTypeLimit:
		return InvalidRequestError(exchange, op, "type must be market or limit")
	case !r.Quantity.IsPositive():
		return InvalidRequestError(exchange, op, "quantity must be positive")
	case r.Type == OrderTypeLimit && !r.Price.IsPositive():
		return InvalidRequestError(exchange, op, "limit orders need a positive price")
	}
	if r.Type == OrderTypeLimit && r.TimeInForce == "" {
		r.TimeInForce = GoodTillCancel
	}
	return nil
}
