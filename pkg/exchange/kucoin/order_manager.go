package kucoin

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"onecall/pkg/exchange"
)

// defaultLeverage is sent with every order; KuCoin requires the field.
const defaultLeverage = "1"

// kucoinOrder mirrors an item of /api/v1/orders. Sizes are contract counts and
// come as JSON numbers.
type kucoinOrder struct {
	ID          string          `json:"id"`
	ClientOid   string          `json:"clientOid"`
	Symbol      string          `json:"symbol"`
	Type        string          `json:"type"` // market, limit
	Side        string          `json:"side"` // buy, sell
	Price       exchange.Number `json:"price"`
	Size        exchange.Number `json:"size"`
	DealSize    exchange.Number `json:"dealSize"`
	DealValue   exchange.Number `json:"dealValue"`
	TimeInForce string          `json:"timeInForce"`
	PostOnly    bool            `json:"postOnly"`
	ReduceOnly  bool            `json:"reduceOnly"`
	IsActive    bool            `json:"isActive"`
	CancelExist bool            `json:"cancelExist"`
	Status      string          `json:"status"` // open, done
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

type orderPage struct {
	CurrentPage int           `json:"currentPage"`
	PageSize    int           `json:"pageSize"`
	TotalNum    int           `json:"totalNum"`
	TotalPage   int           `json:"totalPage"`
	Items       []kucoinOrder `json:"items"`
}

// KucoinOrderRequest is the body of POST /api/v1/orders.
type KucoinOrderRequest struct {
	ClientOid   string `json:"clientOid"`
	Side        string `json:"side"`
	Symbol      string `json:"symbol"`
	Type        string `json:"type"`
	Leverage    string `json:"leverage"`
	Size        int64  `json:"size"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	PostOnly    bool   `json:"postOnly,omitempty"`
	ReduceOnly  bool   `json:"reduceOnly,omitempty"`
}

func (c *Client) listOrders(ctx context.Context, op, status, symbol string) ([]kucoinOrder, error) {
	params := url.Values{}
	params.Set("status", status)
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	var page orderPage
	if err := c.request(ctx, op, http.MethodGet, "/api/v1/orders", params, nil, true, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	items, err := c.listOrders(ctx, "open orders", "active", symbol)
	if err != nil {
		return nil, err
	}
	orders := make([]exchange.Order, 0, len(items))
	for _, o := range items {
		orders = append(orders, convertOrder(o))
	}
	return orders, nil
}

// ClosedOrders returns done orders that were completely filled.
func (c *Client) ClosedOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	items, err := c.listOrders(ctx, "closed orders", "done", symbol)
	if err != nil {
		return nil, err
	}
	orders := make([]exchange.Order, 0, len(items))
	for _, o := range items {
		order := convertOrder(o)
		if order.Status != exchange.StatusFilled {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// PlaceOrder sends an order. Quantity is a whole number of contracts.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	if err := req.Validate(Name); err != nil {
		return nil, err
	}
	if !req.Quantity.Equal(req.Quantity.Truncate(0)) {
		return nil, exchange.InvalidRequestError(Name, "place order", "quantity must be a whole number of contracts")
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	orderReq := KucoinOrderRequest{
		ClientOid:  req.ClientOrderID,
		Side:       string(req.Side),
		Symbol:     req.Symbol,
		Type:       string(req.Type),
		Leverage:   defaultLeverage,
		Size:       req.Quantity.IntPart(),
		ReduceOnly: req.ReduceOnly,
	}
	if req.Type == exchange.OrderTypeLimit {
		orderReq.Price = req.Price.String()
		orderReq.TimeInForce = string(req.TimeInForce)
		orderReq.PostOnly = req.PostOnly
	}

	var res struct {
		OrderID string `json:"orderId"`
	}
	if err := c.request(ctx, "place order", http.MethodPost, "/api/v1/orders", nil, orderReq, true, &res); err != nil {
		return nil, err
	}

	return &exchange.Order{
		Exchange:      Name,
		ID:            res.OrderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Status:        exchange.StatusNew,
		Price:         req.Price,
		Quantity:      req.Quantity,
		TimeInForce:   req.TimeInForce,
		ReduceOnly:    req.ReduceOnly,
		PostOnly:      req.PostOnly && req.Type == exchange.OrderTypeLimit,
	}, nil
}

func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	if symbol == "" {
		return exchange.InvalidRequestError(Name, "cancel all", "symbol is required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	return c.request(ctx, "cancel all", http.MethodDelete, "/api/v1/orders", params, nil, true, nil)
}

// orderStatus derives a status; KuCoin only reports open/done.
func orderStatus(o kucoinOrder) exchange.OrderStatus {
	switch {
	case o.Status == "open" || o.IsActive:
		if o.DealSize.IsPositive() {
			return exchange.StatusPartiallyFilled
		}
		return exchange.StatusNew
	case o.Size.IsPositive() && o.DealSize.Equal(o.Size.Decimal):
		return exchange.StatusFilled
	case o.CancelExist || o.Status == "done":
		return exchange.StatusCanceled
	}
	return exchange.StatusUnknown
}

// convertOrder leaves AvgPrice zero: dealValue is notional and needs the
// contract multiplier to become a price.
func convertOrder(o kucoinOrder) exchange.Order {
	return exchange.Order{
		Exchange:      Name,
		ID:            o.ID,
		ClientOrderID: o.ClientOid,
		Symbol:        o.Symbol,
		Side:          exchange.ParseSide(o.Side),
		Type:          exchange.OrderType(o.Type),
		Status:        orderStatus(o),
		RawStatus:     o.Status,
		Price:         o.Price.Decimal,
		Quantity:      o.Size.Decimal,
		FilledQty:     o.DealSize.Decimal,
		TimeInForce:   exchange.TimeInForce(o.TimeInForce),
		ReduceOnly:    o.ReduceOnly,
		CreatedAt:     exchange.Millis(o.CreatedAt),
		UpdatedAt:     exchange.Millis(o.UpdatedAt),
	}
}
