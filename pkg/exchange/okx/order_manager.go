package okx

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"onecall/pkg/exchange"
)

// cancel-batch-orders accepts at most 20 orders per call.
const cancelBatchSize = 20

type okxOrder struct {
	InstID     string `json:"instId"`
	OrdID      string `json:"ordId"`
	ClOrdID    string `json:"clOrdId"`
	Px         string `json:"px"`
	Sz         string `json:"sz"`
	Side       string `json:"side"`    // buy, sell
	OrdType    string `json:"ordType"` // market, limit, post_only, fok, ioc
	State      string `json:"state"`   // live, partially_filled, filled, canceled
	AccFillSz  string `json:"accFillSz"`
	AvgPx      string `json:"avgPx"`
	ReduceOnly string `json:"reduceOnly"`
	CTime      string `json:"cTime"`
	UTime      string `json:"uTime"`
}

// OKXOrderRequest is the body of /trade/order.
type OKXOrderRequest struct {
	InstID     string `json:"instId"`
	TdMode     string `json:"tdMode"`  // cross, isolated, cash
	Side       string `json:"side"`    // buy, sell
	OrdType    string `json:"ordType"` // market, limit, post_only, fok, ioc
	Sz         string `json:"sz"`
	Px         string `json:"px,omitempty"`
	ClOrdID    string `json:"clOrdId,omitempty"`
	ReduceOnly bool   `json:"reduceOnly,omitempty"`
}

type orderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

type cancelRequest struct {
	InstID string `json:"instId"`
	OrdID  string `json:"ordId"`
}

func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	params := url.Values{}
	params.Set("instType", instType)
	if symbol != "" {
		params.Set("instId", symbol)
	}

	var data []okxOrder
	if err := c.get(ctx, "open orders", "/trade/orders-pending", params, true, &data); err != nil {
		return nil, err
	}
	return convertOrders("open orders", data, false)
}

// ClosedOrders lists filled orders of the last seven days.
func (c *Client) ClosedOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	params := url.Values{}
	params.Set("instType", instType)
	params.Set("state", "filled")
	if symbol != "" {
		params.Set("instId", symbol)
	}

	var data []okxOrder
	if err := c.get(ctx, "closed orders", "/trade/orders-history", params, true, &data); err != nil {
		return nil, err
	}
	return convertOrders("closed orders", data, true)
}

// PlaceOrder places an order in cross margin mode.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	if err := req.Validate(Name); err != nil {
		return nil, err
	}
	if req.ClientOrderID == "" {
		// clOrdId: up to 32 alphanumerics
		req.ClientOrderID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	orderReq := OKXOrderRequest{
		InstID:     req.Symbol,
		TdMode:     "cross",
		Side:       string(req.Side),
		OrdType:    ordType(req),
		Sz:         req.Quantity.String(),
		ClOrdID:    req.ClientOrderID,
		ReduceOnly: req.ReduceOnly,
	}
	if req.Type == exchange.OrderTypeLimit {
		orderReq.Px = req.Price.String()
	}

	var acks []orderAck
	if err := c.post(ctx, "place order", "/trade/order", orderReq, &acks); err != nil {
		return nil, err
	}
	if len(acks) == 0 {
		return nil, c.rest.APIError("place order", "", "empty order acknowledgement")
	}
	ack := acks[0]
	if ack.SCode != "" && ack.SCode != "0" {
		return nil, c.rest.APIError("place order", ack.SCode, ack.SMsg)
	}

	return &exchange.Order{
		Exchange:      Name,
		ID:            ack.OrdID,
		ClientOrderID: ack.ClOrdID,
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

// CancelAll has no single endpoint on OKX: the pending orders of symbol are
// listed and cancelled in batches.
func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	if symbol == "" {
		return exchange.InvalidRequestError(Name, "cancel all", "symbol is required")
	}
	open, err := c.OpenOrders(ctx, symbol)
	if err != nil {
		return err
	}

	for start := 0; start < len(open); start += cancelBatchSize {
		end := start + cancelBatchSize
		if end > len(open) {
			end = len(open)
		}
		batch := make([]cancelRequest, 0, end-start)
		for _, o := range open[start:end] {
			batch = append(batch, cancelRequest{InstID: o.Symbol, OrdID: o.ID})
		}

		var acks []orderAck
		if err := c.post(ctx, "cancel all", "/trade/cancel-batch-orders", batch, &acks); err != nil {
			return err
		}
		for _, ack := range acks {
			if ack.SCode != "" && ack.SCode != "0" {
				return c.rest.APIError("cancel all", ack.SCode, ack.SMsg)
			}
		}
	}
	return nil
}

func ordType(req exchange.OrderRequest) string {
	if req.Type == exchange.OrderTypeMarket {
		return "market"
	}
	switch {
	case req.PostOnly:
		return "post_only"
	case req.TimeInForce == exchange.ImmediateOrCancel:
		return "ioc"
	case req.TimeInForce == exchange.FillOrKill:
		return "fok"
	}
	return "limit"
}

func convertOrders(op string, data []okxOrder, filledOnly bool) ([]exchange.Order, error) {
	p := exchange.NewParser(Name, op)
	orders := make([]exchange.Order, 0, len(data))
	for _, o := range data {
		order := exchange.Order{
			Exchange:      Name,
			ID:            o.OrdID,
			ClientOrderID: o.ClOrdID,
			Symbol:        o.InstID,
			Side:          exchange.ParseSide(o.Side),
			Type:          exchange.OrderTypeLimit,
			Status:        exchange.ParseStatus(o.State),
			RawStatus:     o.State,
			Price:         p.Dec(o.Px),
			Quantity:      p.Dec(o.Sz),
			FilledQty:     p.Dec(o.AccFillSz),
			AvgPrice:      p.Dec(o.AvgPx),
			ReduceOnly:    o.ReduceOnly == "true",
			CreatedAt:     p.Millis(o.CTime),
			UpdatedAt:     p.Millis(o.UTime),
		}
		switch o.OrdType {
		case "market":
			order.Type = exchange.OrderTypeMarket
		case "ioc", "optimal_limit_ioc":
			order.TimeInForce = exchange.ImmediateOrCancel
		case "fok":
			order.TimeInForce = exchange.FillOrKill
		case "post_only":
			order.TimeInForce = exchange.GoodTillCancel
			order.PostOnly = true
		default:
			order.TimeInForce = exchange.GoodTillCancel
		}
		if filledOnly && order.Status != exchange.StatusFilled {
			continue
		}
		orders = append(orders, order)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
