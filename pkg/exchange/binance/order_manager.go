package binance

import (
	"context"
	"strconv"
	"strings"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"onecall/pkg/exchange"
)

// maxOrderHistory is the largest page allOrders returns.
const maxOrderHistory = 1000

func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	svc := c.api.NewListOpenOrdersService()
	if symbol != "" {
		svc.Symbol(symbol)
	}
	list, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "open orders", err)
	}
	return convertFuturesOrders("open orders", list, false)
}

// ClosedOrders returns the filled orders among the last page of allOrders.
// Binance only serves order history per symbol.
func (c *Client) ClosedOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "closed orders", "symbol is required")
	}
	list, err := c.api.NewListOrdersService().Symbol(symbol).Limit(maxOrderHistory).Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "closed orders", err)
	}
	return convertFuturesOrders("closed orders", list, true)
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	if err := req.Validate(Name); err != nil {
		return nil, err
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	svc := c.api.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(strings.ToUpper(string(req.Side)))).
		Quantity(req.Quantity.String()).
		NewClientOrderID(req.ClientOrderID)
	if req.ReduceOnly {
		svc.ReduceOnly(true)
	}

	if req.Type == exchange.OrderTypeMarket {
		svc.Type(futures.OrderTypeMarket)
	} else {
		tif := futures.TimeInForceType(req.TimeInForce)
		if req.PostOnly {
			tif = futures.TimeInForceTypeGTX
		}
		svc.Type(futures.OrderTypeLimit).TimeInForce(tif).Price(req.Price.String())
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "place order", err)
	}

	p := exchange.NewParser(Name, "place order")
	order := exchange.Order{
		Exchange:      Name,
		ID:            strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          exchange.ParseSide(string(resp.Side)),
		Type:          orderType(string(resp.Type)),
		Status:        exchange.ParseStatus(string(resp.Status)),
		RawStatus:     string(resp.Status),
		Price:         p.Dec(resp.Price),
		Quantity:      p.Dec(resp.OrigQuantity),
		FilledQty:     p.Dec(resp.ExecutedQuantity),
		TimeInForce:   timeInForce(string(resp.TimeInForce)),
		ReduceOnly:    resp.ReduceOnly,
		PostOnly:      resp.TimeInForce == futures.TimeInForceTypeGTX,
		UpdatedAt:     exchange.Millis(resp.UpdateTime),
	}
	if order.Type == exchange.OrderTypeMarket {
		order.TimeInForce = ""
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	if symbol == "" {
		return exchange.InvalidRequestError(Name, "cancel all", "symbol is required")
	}
	err := c.api.NewCancelAllOpenOrdersService().Symbol(symbol).Do(ctx)
	return wrap(c.rest, "cancel all", err)
}

func convertFuturesOrders(op string, list []*futures.Order, filledOnly bool) ([]exchange.Order, error) {
	p := exchange.NewParser(Name, op)
	orders := make([]exchange.Order, 0, len(list))
	for _, o := range list {
		if o == nil {
			continue
		}
		status := exchange.ParseStatus(string(o.Status))
		if filledOnly && status != exchange.StatusFilled {
			continue
		}
		order := exchange.Order{
			Exchange:      Name,
			ID:            strconv.FormatInt(o.OrderID, 10),
			ClientOrderID: o.ClientOrderID,
			Symbol:        o.Symbol,
			Side:          exchange.ParseSide(string(o.Side)),
			Type:          orderType(string(o.Type)),
			Status:        status,
			RawStatus:     string(o.Status),
			Price:         p.Dec(o.Price),
			Quantity:      p.Dec(o.OrigQuantity),
			FilledQty:     p.Dec(o.ExecutedQuantity),
			AvgPrice:      p.Dec(o.AvgPrice),
			ReduceOnly:    o.ReduceOnly,
			PostOnly:      o.TimeInForce == futures.TimeInForceTypeGTX,
			CreatedAt:     exchange.Millis(o.Time),
			UpdatedAt:     exchange.Millis(o.UpdateTime),
		}
		if order.Type != exchange.OrderTypeMarket {
			order.TimeInForce = timeInForce(string(o.TimeInForce))
		}
		orders = append(orders, order)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *SpotClient) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	svc := c.api.NewListOpenOrdersService()
	if symbol != "" {
		svc.Symbol(symbol)
	}
	list, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "open orders", err)
	}
	return convertSpotOrders("open orders", list, false)
}

func (c *SpotClient) ClosedOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(SpotName, "closed orders", "symbol is required")
	}
	list, err := c.api.NewListOrdersService().Symbol(symbol).Limit(maxOrderHistory).Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "closed orders", err)
	}
	return convertSpotOrders("closed orders", list, true)
}

// PlaceOrder sends post-only limit orders as LIMIT_MAKER, which takes no
// time in force.
func (c *SpotClient) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	if err := req.Validate(SpotName); err != nil {
		return nil, err
	}
	if req.ReduceOnly {
		return nil, exchange.InvalidRequestError(SpotName, "place order", "reduce-only orders need a derivatives account")
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	svc := c.api.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(gobinance.SideType(strings.ToUpper(string(req.Side)))).
		Quantity(req.Quantity.String()).
		NewClientOrderID(req.ClientOrderID)

	switch {
	case req.Type == exchange.OrderTypeMarket:
		svc.Type(gobinance.OrderTypeMarket)
	case req.PostOnly:
		svc.Type(gobinance.OrderTypeLimitMaker).Price(req.Price.String())
	default:
		svc.Type(gobinance.OrderTypeLimit).
			TimeInForce(gobinance.TimeInForceType(req.TimeInForce)).
			Price(req.Price.String())
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "place order", err)
	}

	p := exchange.NewParser(SpotName, "place order")
	order := exchange.Order{
		Exchange:      SpotName,
		ID:            strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          exchange.ParseSide(string(resp.Side)),
		Type:          orderType(string(resp.Type)),
		Status:        exchange.ParseStatus(string(resp.Status)),
		RawStatus:     string(resp.Status),
		Price:         p.Dec(resp.Price),
		Quantity:      p.Dec(resp.OrigQuantity),
		FilledQty:     p.Dec(resp.ExecutedQuantity),
		AvgPrice:      avgPrice(p, resp.CummulativeQuoteQuantity, resp.ExecutedQuantity),
		TimeInForce:   req.TimeInForce,
		PostOnly:      resp.Type == gobinance.OrderTypeLimitMaker,
		CreatedAt:     exchange.Millis(resp.TransactTime),
		UpdatedAt:     exchange.Millis(resp.TransactTime),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *SpotClient) CancelAll(ctx context.Context, symbol string) error {
	if symbol == "" {
		return exchange.InvalidRequestError(SpotName, "cancel all", "symbol is required")
	}
	_, err := c.api.NewCancelOpenOrdersService().Symbol(symbol).Do(ctx)
	return wrap(c.rest, "cancel all", err)
}

func convertSpotOrders(op string, list []*gobinance.Order, filledOnly bool) ([]exchange.Order, error) {
	p := exchange.NewParser(SpotName, op)
	orders := make([]exchange.Order, 0, len(list))
	for _, o := range list {
		if o == nil {
			continue
		}
		status := exchange.ParseStatus(string(o.Status))
		if filledOnly && status != exchange.StatusFilled {
			continue
		}
		order := exchange.Order{
			Exchange:      SpotName,
			ID:            strconv.FormatInt(o.OrderID, 10),
			ClientOrderID: o.ClientOrderID,
			Symbol:        o.Symbol,
			Side:          exchange.ParseSide(string(o.Side)),
			Type:          orderType(string(o.Type)),
			Status:        status,
			RawStatus:     string(o.Status),
			Price:         p.Dec(o.Price),
			Quantity:      p.Dec(o.OrigQuantity),
			FilledQty:     p.Dec(o.ExecutedQuantity),
			AvgPrice:      avgPrice(p, o.CummulativeQuoteQuantity, o.ExecutedQuantity),
			PostOnly:      o.Type == gobinance.OrderTypeLimitMaker,
			CreatedAt:     exchange.Millis(o.Time),
			UpdatedAt:     exchange.Millis(o.UpdateTime),
		}
		if order.Type != exchange.OrderTypeMarket {
			order.TimeInForce = timeInForce(string(o.TimeInForce))
		}
		orders = append(orders, order)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// avgPrice: spot orders only report the cumulative quote amount.
func avgPrice(p *exchange.Parser, cumQuote, executed string) decimal.Decimal {
	qty := p.Dec(executed)
	if qty.IsZero() {
		return decimal.Zero
	}
	return p.Dec(cumQuote).Div(qty)
}

func orderType(s string) exchange.OrderType {
	switch s {
	case "MARKET":
		return exchange.OrderTypeMarket
	case "LIMIT", "LIMIT_MAKER":
		return exchange.OrderTypeLimit
	}
	return exchange.OrderType(strings.ToLower(s))
}

// timeInForce maps GTX (post-only) onto GTC.
func timeInForce(s string) exchange.TimeInForce {
	switch s {
	case "IOC":
		return exchange.ImmediateOrCancel
	case "FOK":
		return exchange.FillOrKill
	case "":
		return ""
	}
	return exchange.GoodTillCancel
}
