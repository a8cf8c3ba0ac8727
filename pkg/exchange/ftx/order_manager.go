package ftx

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"onecall/pkg/exchange"
)

type ftxOrder struct {
	ID            int64           `json:"id"`
	ClientID      string          `json:"clientId"`
	Market        string          `json:"market"`
	Type          string          `json:"type"` // market, limit
	Side          string          `json:"side"`
	Price         exchange.Number `json:"price"`
	Size          exchange.Number `json:"size"`
	FilledSize    exchange.Number `json:"filledSize"`
	RemainingSize exchange.Number `json:"remainingSize"`
	AvgFillPrice  exchange.Number `json:"avgFillPrice"`
	Status        string          `json:"status"` // new, open, closed
	CreatedAt     string          `json:"createdAt"`
	IOC           bool            `json:"ioc"`
	PostOnly      bool            `json:"postOnly"`
	ReduceOnly    bool            `json:"reduceOnly"`
}

// FTXOrderRequest is the body of POST /orders. Price is null for market orders.
type FTXOrderRequest struct {
	Market     string  `json:"market"`
	Side       string  `json:"side"`
	Price      *string `json:"price"`
	Type       string  `json:"type"`
	Size       string  `json:"size"`
	ReduceOnly bool    `json:"reduceOnly"`
	IOC        bool    `json:"ioc"`
	PostOnly   bool    `json:"postOnly"`
	ClientID   string  `json:"clientId,omitempty"`
}

func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("market", symbol)
	}
	var result []ftxOrder
	if err := c.request(ctx, "open orders", http.MethodGet, "/orders", params, nil, true, &result); err != nil {
		return nil, err
	}
	return c.convertOrders(result, false), nil
}

// ClosedOrders returns closed orders that were fully filled.
func (c *Client) ClosedOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("market", symbol)
	}
	var result []ftxOrder
	if err := c.request(ctx, "closed orders", http.MethodGet, "/orders/history", params, nil, true, &result); err != nil {
		return nil, err
	}
	return c.convertOrders(result, true), nil
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	if err := req.Validate(c.venue.name); err != nil {
		return nil, err
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	orderReq := FTXOrderRequest{
		Market:     req.Symbol,
		Side:       string(req.Side),
		Type:       string(req.Type),
		Size:       req.Quantity.String(),
		ReduceOnly: req.ReduceOnly,
		ClientID:   req.ClientOrderID,
	}
	if req.Type == exchange.OrderTypeLimit {
		price := req.Price.String()
		orderReq.Price = &price
		orderReq.IOC = req.TimeInForce == exchange.ImmediateOrCancel
		orderReq.PostOnly = req.PostOnly
	}

	var ack ftxOrder
	if err := c.request(ctx, "place order", http.MethodPost, "/orders", nil, orderReq, true, &ack); err != nil {
		return nil, err
	}
	order := c.convertOrder(ack)
	order.TimeInForce = req.TimeInForce
	return &order, nil
}

func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	if symbol == "" {
		return exchange.InvalidRequestError(c.venue.name, "cancel all", "symbol is required")
	}
	payload := map[string]string{"market": symbol}
	return c.request(ctx, "cancel all", http.MethodDelete, "/orders", nil, payload, true, nil)
}

func (c *Client) convertOrders(list []ftxOrder, filledOnly bool) []exchange.Order {
	orders := make([]exchange.Order, 0, len(list))
	for _, o := range list {
		order := c.convertOrder(o)
		if filledOnly && order.Status != exchange.StatusFilled {
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

func (c *Client) convertOrder(o ftxOrder) exchange.Order {
	order := exchange.Order{
		Exchange:      c.venue.name,
		ID:            strconv.FormatInt(o.ID, 10),
		ClientOrderID: o.ClientID,
		Symbol:        o.Market,
		Side:          exchange.ParseSide(o.Side),
		Type:          exchange.OrderType(o.Type),
		Status:        orderStatus(o),
		RawStatus:     o.Status,
		Price:         o.Price.Decimal,
		Quantity:      o.Size.Decimal,
		FilledQty:     o.FilledSize.Decimal,
		AvgPrice:      o.AvgFillPrice.Decimal,
		ReduceOnly:    o.ReduceOnly,
	}
	if o.Type == "limit" {
		order.TimeInForce = exchange.GoodTillCancel
		if o.IOC {
			order.TimeInForce = exchange.ImmediateOrCancel
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, o.CreatedAt); err == nil {
		order.CreatedAt = t.UTC()
	}
	return order
}

// orderStatus: FTX reports new/open/closed; closed orders are split by fill.
func orderStatus(o ftxOrder) exchange.OrderStatus {
	switch o.Status {
	case "new":
		return exchange.StatusNew
	case "open":
		if o.FilledSize.IsPositive() {
			return exchange.StatusPartiallyFilled
		}
		return exchange.StatusNew
	case "closed":
		if o.Size.IsPositive() && o.FilledSize.Equal(o.Size.Decimal) {
			return exchange.StatusFilled
		}
		return exchange.StatusCanceled
	}
	return exchange.StatusUnknown
}
