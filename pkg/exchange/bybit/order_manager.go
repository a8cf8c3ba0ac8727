package bybit

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"onecall/pkg/exchange"
)

// postOnly is the timeInForce value Bybit uses for maker-only limit orders.
const postOnly = "PostOnly"

// bybitOrder is one entry of /v5/order/realtime and /v5/order/history.
type bybitOrder struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	Symbol      string `json:"symbol"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`        // Buy, Sell
	OrderStatus string `json:"orderStatus"` // New, PartiallyFilled, Filled, Cancelled...
	OrderType   string `json:"orderType"`   // Market, Limit
	TimeInForce string `json:"timeInForce"`
	CumExecQty  string `json:"cumExecQty"`
	AvgPrice    string `json:"avgPrice"`
	ReduceOnly  bool   `json:"reduceOnly"`
	CreatedTime string `json:"createdTime"`
	UpdatedTime string `json:"updatedTime"`
}

type orderListResult struct {
	List           []bybitOrder `json:"list"`
	NextPageCursor string       `json:"nextPageCursor"`
}

// BybitOrderRequest is the body of /v5/order/create.
type BybitOrderRequest struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`      // Buy, Sell
	OrderType   string `json:"orderType"` // Market, Limit
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"` // GTC, IOC, FOK, PostOnly
	OrderLinkID string `json:"orderLinkId,omitempty"`
	ReduceOnly  bool   `json:"reduceOnly,omitempty"`
}

type createOrderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// OpenOrders lists active linear orders. Without a symbol every USDT-settled
// order is returned.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("openOnly", "0")
	if symbol != "" {
		params.Set("symbol", symbol)
	} else {
		params.Set("settleCoin", settleCoin)
	}

	var res orderListResult
	if err := c.get(ctx, "open orders", "/order/realtime", params, true, &res); err != nil {
		return nil, err
	}
	return convertOrders("open orders", res.List, nil)
}

// ClosedOrders lists filled orders from the order history.
func (c *Client) ClosedOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("orderStatus", "Filled")
	if symbol != "" {
		params.Set("symbol", symbol)
	} else {
		params.Set("settleCoin", settleCoin)
	}

	var res orderListResult
	if err := c.get(ctx, "closed orders", "/order/history", params, true, &res); err != nil {
		return nil, err
	}
	return convertOrders("closed orders", res.List, func(o exchange.Order) bool {
		return o.Status == exchange.StatusFilled
	})
}

// PlaceOrder creates a market or limit order.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	if err := req.Validate(Name); err != nil {
		return nil, err
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	orderReq := BybitOrderRequest{
		Category:    category,
		Symbol:      req.Symbol,
		Side:        sideParam(req.Side),
		Qty:         req.Quantity.String(),
		OrderLinkID: req.ClientOrderID,
		ReduceOnly:  req.ReduceOnly,
	}
	switch req.Type {
	case exchange.OrderTypeMarket:
		orderReq.OrderType = "Market"
		orderReq.TimeInForce = "IOC"
	case exchange.OrderTypeLimit:
		orderReq.OrderType = "Limit"
		orderReq.Price = req.Price.String()
		orderReq.TimeInForce = string(req.TimeInForce)
		if req.PostOnly {
			orderReq.TimeInForce = postOnly
		}
	}

	var res createOrderResult
	if err := c.post(ctx, "place order", "/order/create", orderReq, &res); err != nil {
		return nil, err
	}

	return &exchange.Order{
		Exchange:      Name,
		ID:            res.OrderID,
		ClientOrderID: res.OrderLinkID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Status:        exchange.StatusNew,
		Price:         req.Price,
		Quantity:      req.Quantity,
		TimeInForce:   req.TimeInForce,
		ReduceOnly:    req.ReduceOnly,
		PostOnly:      orderReq.TimeInForce == postOnly,
	}, nil
}

// CancelAll cancels every active linear order on symbol.
func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	if symbol == "" {
		return exchange.InvalidRequestError(Name, "cancel all", "symbol is required")
	}
	payload := map[string]string{
		"category": category,
		"symbol":   symbol,
	}
	return c.post(ctx, "cancel all", "/order/cancel-all", payload, nil)
}

func convertOrders(op string, list []bybitOrder, keep func(exchange.Order) bool) ([]exchange.Order, error) {
	p := exchange.NewParser(Name, op)
	orders := make([]exchange.Order, 0, len(list))
	for _, o := range list {
		order := exchange.Order{
			Exchange:      Name,
			ID:            o.OrderID,
			ClientOrderID: o.OrderLinkID,
			Symbol:        o.Symbol,
			Side:          exchange.ParseSide(o.Side),
			Type:          exchange.OrderType(strings.ToLower(o.OrderType)),
			Status:        exchange.ParseStatus(o.OrderStatus),
			RawStatus:     o.OrderStatus,
			Price:         p.Dec(o.Price),
			Quantity:      p.Dec(o.Qty),
			FilledQty:     p.Dec(o.CumExecQty),
			AvgPrice:      p.Dec(o.AvgPrice),
			TimeInForce:   exchange.TimeInForce(o.TimeInForce),
			ReduceOnly:    o.ReduceOnly,
			PostOnly:      o.TimeInForce == postOnly,
			CreatedAt:     p.Millis(o.CreatedTime),
			UpdatedAt:     p.Millis(o.UpdatedTime),
		}
		if order.PostOnly {
			order.TimeInForce = exchange.GoodTillCancel
		}
		if keep != nil && !keep(order) {
			continue
		}
		orders = append(orders, order)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func sideParam(s exchange.Side) string {
	if s == exchange.SideSell {
		return "Sell"
	}
	return "Buy"
}
