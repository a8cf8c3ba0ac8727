package phemex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/rest"
)

type phemexOrder struct {
	OrderID      string          `json:"orderID"`
	ClOrdID      string          `json:"clOrdID"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`    // Buy, Sell
	OrdType      string          `json:"ordType"` // Market, Limit
	PriceRp      exchange.Number `json:"priceRp"`
	OrderQtyRq   exchange.Number `json:"orderQtyRq"`
	CumQtyRq     exchange.Number `json:"cumQtyRq"`
	CumValueRv   exchange.Number `json:"cumValueRv"`
	OrdStatus    string          `json:"ordStatus"`   // New, PartiallyFilled, Filled, Canceled...
	TimeInForce  string          `json:"timeInForce"` // GoodTillCancel, ImmediateOrCancel, FillOrKill, PostOnly
	ReduceOnly   bool            `json:"reduceOnly"`
	CreatedAtNs  int64           `json:"createdAtNs"`
	ActionTimeNs int64           `json:"actionTimeNs"`
	CreatedAt    int64           `json:"createdAt"` // ms, history endpoint
	UpdatedAt    int64           `json:"updatedAt"` // ms, history endpoint
}

type orderRows struct {
	Rows []phemexOrder `json:"rows"`
}

// PhemexOrderRequest is the body of POST /g-orders.
type PhemexOrderRequest struct {
	ClOrdID     string `json:"clOrdID"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrdType     string `json:"ordType"`
	OrderQtyRq  string `json:"orderQtyRq"`
	PriceRp     string `json:"priceRp,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	ReduceOnly  bool   `json:"reduceOnly,omitempty"`
	PosSide     string `json:"posSide"`
}

var timeInForce = map[string]exchange.TimeInForce{
	"GoodTillCancel":    exchange.GoodTillCancel,
	"PostOnly":          exchange.GoodTillCancel,
	"ImmediateOrCancel": exchange.ImmediateOrCancel,
	"FillOrKill":        exchange.FillOrKill,
}

// OpenOrders needs a symbol: Phemex lists active orders per contract only.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "open orders", "symbol is required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)

	var res orderRows
	code, err := c.get(ctx, "open orders", "/g-orders/activeList", params, true, &res)
	if code == codeNoOrders {
		return []exchange.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	return convertOrders(res.Rows, false), nil
}

func (c *Client) ClosedOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "closed orders", "symbol is required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("ordStatus", "Filled")

	var res orderRows
	if _, err := c.get(ctx, "closed orders", "/api-data/g-futures/orders", params, true, &res); err != nil {
		return nil, err
	}
	return convertOrders(res.Rows, true), nil
}

// PlaceOrder places an order in one-way (Merged) position mode.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	const op = "place order"
	if err := req.Validate(Name); err != nil {
		return nil, err
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	orderReq := PhemexOrderRequest{
		ClOrdID:    req.ClientOrderID,
		Symbol:     req.Symbol,
		Side:       sideParam(req.Side),
		OrderQtyRq: req.Quantity.String(),
		ReduceOnly: req.ReduceOnly,
		PosSide:    "Merged",
	}
	switch req.Type {
	case exchange.OrderTypeMarket:
		orderReq.OrdType = "Market"
		orderReq.TimeInForce = "ImmediateOrCancel"
	case exchange.OrderTypeLimit:
		orderReq.OrdType = "Limit"
		orderReq.PriceRp = req.Price.String()
		orderReq.TimeInForce = tifParam(req)
	}

	body, err := json.Marshal(orderReq)
	if err != nil {
		return nil, exchange.InvalidRequestError(Name, op, "failed to marshal request: "+err.Error())
	}

	var ack phemexOrder
	if _, err := c.call(ctx, rest.Request{
		Op:     op,
		Method: http.MethodPost,
		Path:   "/g-orders",
		Body:   body,
		Signed: true,
	}, &ack); err != nil {
		return nil, err
	}

	order := convertOrder(ack)
	if order.ID == "" {
		return nil, c.rest.APIError(op, "", "order acknowledgement without id")
	}
	if order.Status == exchange.StatusUnknown {
		order.Status = exchange.StatusNew
	}
	order.Symbol = req.Symbol
	order.Side = req.Side
	order.Type = req.Type
	order.Price = req.Price
	order.Quantity = req.Quantity
	order.TimeInForce = req.TimeInForce
	order.ReduceOnly = req.ReduceOnly
	return &order, nil
}

// CancelAll cancels active and untriggered conditional orders on symbol.
func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	if symbol == "" {
		return exchange.InvalidRequestError(Name, "cancel all", "symbol is required")
	}
	for _, untriggered := range []string{"false", "true"} {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("untriggered", untriggered)
		if _, err := c.call(ctx, rest.Request{
			Op:     "cancel all",
			Method: http.MethodDelete,
			Path:   "/g-orders/all",
			Query:  params,
			Signed: true,
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

func convertOrders(rows []phemexOrder, filledOnly bool) []exchange.Order {
	orders := make([]exchange.Order, 0, len(rows))
	for _, row := range rows {
		o := convertOrder(row)
		if filledOnly && o.Status != exchange.StatusFilled {
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

func convertOrder(o phemexOrder) exchange.Order {
	order := exchange.Order{
		Exchange:      Name,
		ID:            o.OrderID,
		ClientOrderID: o.ClOrdID,
		Symbol:        o.Symbol,
		Side:          exchange.ParseSide(o.Side),
		Type:          exchange.OrderTypeLimit,
		Status:        exchange.ParseStatus(o.OrdStatus),
		RawStatus:     o.OrdStatus,
		Price:         o.PriceRp.Decimal,
		Quantity:      o.OrderQtyRq.Decimal,
		FilledQty:     o.CumQtyRq.Decimal,
		TimeInForce:   timeInForce[o.TimeInForce],
		ReduceOnly:    o.ReduceOnly,
		CreatedAt:     nanosOrMillis(o.CreatedAtNs, o.CreatedAt),
		UpdatedAt:     nanosOrMillis(o.ActionTimeNs, o.UpdatedAt),
	}
	if o.OrdType == "Market" {
		order.Type = exchange.OrderTypeMarket
	}
	if o.CumQtyRq.IsPositive() && o.CumValueRv.IsPositive() {
		order.AvgPrice = o.CumValueRv.Div(o.CumQtyRq.Decimal)
	}
	return order
}

func nanosOrMillis(ns, ms int64) time.Time {
	if ns > 0 {
		return time.Unix(0, ns).UTC()
	}
	return exchange.Millis(ms)
}

func sideParam(s exchange.Side) string {
	if s == exchange.SideSell {
		return "Sell"
	}
	return "Buy"
}

func tifParam(req exchange.OrderRequest) string {
	switch {
	case req.PostOnly:
		return "PostOnly"
	case req.TimeInForce == exchange.ImmediateOrCancel:
		return "ImmediateOrCancel"
	case req.TimeInForce == exchange.FillOrKill:
		return "FillOrKill"
	}
	return "GoodTillCancel"
}
