package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/exchangetest"
)

const (
	testKey    = "bybit-test-key"
	testSecret = "bybit-test-secret"
)

const openOrdersBody = `{
	"retCode": 0,
	"retMsg": "OK",
	"result": {
		"category": "linear",
		"list": [{
			"orderId": "fd4300ae-7847-404e-b947-b46980a4d140",
			"orderLinkId": "test-000005",
			"symbol": "ETHUSDT",
			"price": "1600.00",
			"qty": "0.10",
			"side": "Buy",
			"orderStatus": "PartiallyFilled",
			"orderType": "Limit",
			"timeInForce": "GTC",
			"cumExecQty": "0.04",
			"avgPrice": "1599.50",
			"reduceOnly": false,
			"createdTime": "1684738540559",
			"updatedTime": "1684738540561"
		}],
		"nextPageCursor": ""
	},
	"time": 1684765770483
}`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	creds, err := exchange.NewCredentials(testKey, testSecret)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	c, err := New(creds, exchange.WithBaseURL(baseURL), exchange.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	return c
}

func TestNew_RejectsEmptyCredentials(t *testing.T) {
	if _, err := New(exchange.Credentials{}); !errors.Is(err, exchange.ErrConfiguration) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
	if _, err := exchange.NewCredentials("", testSecret); !errors.Is(err, exchange.ErrConfiguration) {
		t.Errorf("Expected configuration error for empty key, got: %v", err)
	}
	if _, err := exchange.NewCredentials(testKey, ""); !errors.Is(err, exchange.ErrConfiguration) {
		t.Errorf("Expected configuration error for empty secret, got: %v", err)
	}
}

func TestClient_OpenOrders(t *testing.T) {
	ts := exchangetest.RouteServer(t, exchangetest.Route{
		"GET /v5/order/realtime": openOrdersBody,
	}, func(r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Errorf("Unexpected symbol param: %s", got)
		}
		if got := r.URL.Query().Get("category"); got != "linear" {
			t.Errorf("Unexpected category param: %s", got)
		}
		if got := r.Header.Get("X-BAPI-API-KEY"); got != testKey {
			t.Errorf("Unexpected api key header: %s", got)
		}
		ts := r.Header.Get("X-BAPI-TIMESTAMP")
		c := &Client{creds: mustCreds(t)}
		if expected, actual := c.sign(ts, r.URL.RawQuery), r.Header.Get("X-BAPI-SIGN"); expected != actual {
			t.Errorf("Unexpected signature. Expected: %s; Actual: %s.", expected, actual)
		}
	})

	client := newTestClient(t, ts.URL)
	orders, err := client.OpenOrders(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(orders) != 1 {
		t.Fatalf("Unexpected order count. Expected: 1; Actual: %d.", len(orders))
	}

	o := orders[0]
	if o.ID != "fd4300ae-7847-404e-b947-b46980a4d140" {
		t.Errorf("Unexpected ID: %s", o.ID)
	}
	if o.ClientOrderID != "test-000005" {
		t.Errorf("Unexpected client order ID: %s", o.ClientOrderID)
	}
	if o.Symbol != "ETHUSDT" {
		t.Errorf("Unexpected symbol: %s", o.Symbol)
	}
	if o.Side != exchange.SideBuy {
		t.Errorf("Unexpected side: %s", o.Side)
	}
	if o.Type != exchange.OrderTypeLimit {
		t.Errorf("Unexpected type: %s", o.Type)
	}
	if o.Status != exchange.StatusPartiallyFilled || o.RawStatus != "PartiallyFilled" {
		t.Errorf("Unexpected status: %s (%s)", o.Status, o.RawStatus)
	}
	if !o.Price.Equal(decimal.RequireFromString("1600")) {
		t.Errorf("Unexpected price. Expected: 1600; Actual: %s.", o.Price)
	}
	if !o.Quantity.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("Unexpected quantity. Expected: 0.1; Actual: %s.", o.Quantity)
	}
	if !o.FilledQty.Equal(decimal.RequireFromString("0.04")) {
		t.Errorf("Unexpected filled quantity. Expected: 0.04; Actual: %s.", o.FilledQty)
	}
	if !o.AvgPrice.Equal(decimal.RequireFromString("1599.5")) {
		t.Errorf("Unexpected average price. Expected: 1599.5; Actual: %s.", o.AvgPrice)
	}
	if o.TimeInForce != exchange.GoodTillCancel {
		t.Errorf("Unexpected time in force: %s", o.TimeInForce)
	}
	if expected := time.UnixMilli(1684738540559).UTC(); !o.CreatedAt.Equal(expected) {
		t.Errorf("Unexpected created time. Expected: %s; Actual: %s.", expected, o.CreatedAt)
	}
	if expected := time.UnixMilli(1684738540561).UTC(); !o.UpdatedAt.Equal(expected) {
		t.Errorf("Unexpected updated time. Expected: %s; Actual: %s.", expected, o.UpdatedAt)
	}
}

func TestClient_OpenOrdersIsRepeatable(t *testing.T) {
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v5/order/realtime": openOrdersBody}, nil)
	client := newTestClient(t, ts.URL)

	first, err := client.OpenOrders(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	second, err := client.OpenOrders(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Repeated calls differ: %+v vs %+v", first, second)
	}
}

func TestClient_OpenOrdersAllSymbolsUsesSettleCoin(t *testing.T) {
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v5/order/realtime": openOrdersBody}, func(r *http.Request) {
		if got := r.URL.Query().Get("settleCoin"); got != "USDT" {
			t.Errorf("Unexpected settleCoin param: %q", got)
		}
		if r.URL.Query().Has("symbol") {
			t.Errorf("Symbol must not be sent")
		}
	})
	if _, err := newTestClient(t, ts.URL).OpenOrders(context.Background(), ""); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		target   error
		limited  bool
		code     string
		dropConn bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"retCode":10003,"retMsg":"API key is invalid."}`, target: exchange.ErrAuthentication, code: "10003"},
		{name: "auth code in 200", status: http.StatusOK, body: `{"retCode":10004,"retMsg":"error sign!"}`, target: exchange.ErrAuthentication, code: "10004"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"retCode":10006,"retMsg":"Too many visits!"}`, target: exchange.ErrExchange, limited: true, code: "10006"},
		{name: "rate limit code in 200", status: http.StatusOK, body: `{"retCode":10006,"retMsg":"Too many visits!"}`, target: exchange.ErrExchange, limited: true, code: "10006"},
		{name: "business error", status: http.StatusOK, body: `{"retCode":10001,"retMsg":"params error"}`, target: exchange.ErrExchange, code: "10001"},
		{name: "bad gateway", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, target: exchange.ErrExchange},
		{name: "malformed", status: http.StatusOK, body: `{"retCode":`, target: exchange.ErrExchange},
		{name: "dropped connection", dropConn: true, target: exchange.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var baseURL string
			if tt.dropConn {
				baseURL = exchangetest.DroppingServer(t).URL
			} else {
				baseURL = exchangetest.StatusServer(t, tt.status, tt.body).URL
			}

			_, err := newTestClient(t, baseURL).OpenOrders(context.Background(), "BTCUSDT")
			if !errors.Is(err, tt.target) {
				t.Fatalf("Unexpected error. Expected: %v; Actual: %v.", tt.target, err)
			}
			if exchange.IsRateLimited(err) != tt.limited {
				t.Errorf("Unexpected rate limit flag for %v", err)
			}
			var e *exchange.Error
			if errors.As(err, &e) && e.Code != tt.code {
				t.Errorf("Unexpected code. Expected: %q; Actual: %q.", tt.code, e.Code)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	ts := exchangetest.HangingServer(t)
	creds := mustCreds(t)
	client, err := New(creds, exchange.WithBaseURL(ts.URL), exchange.WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Balances(ctx); !errors.Is(err, exchange.ErrNetwork) {
		t.Errorf("Expected network error, got: %v", err)
	}
}

func TestClient_ClosedOrdersKeepsFilled(t *testing.T) {
	body := `{"retCode":0,"retMsg":"OK","result":{"list":[
		{"orderId":"1","symbol":"BTCUSDT","side":"Sell","orderType":"Market","orderStatus":"Filled","qty":"0.01","cumExecQty":"0.01","avgPrice":"30000"},
		{"orderId":"2","symbol":"BTCUSDT","side":"Buy","orderType":"Limit","orderStatus":"Cancelled","qty":"0.01","price":"25000"}
	]}}`
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v5/order/history": body}, func(r *http.Request) {
		if got := r.URL.Query().Get("orderStatus"); got != "Filled" {
			t.Errorf("Unexpected orderStatus param: %s", got)
		}
	})

	orders, err := newTestClient(t, ts.URL).ClosedOrders(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(orders) != 1 || orders[0].ID != "1" {
		t.Fatalf("Unexpected orders: %+v", orders)
	}
	if orders[0].Side != exchange.SideSell || orders[0].Type != exchange.OrderTypeMarket {
		t.Errorf("Unexpected order: %+v", orders[0])
	}
}

func TestClient_PlaceOrder(t *testing.T) {
	ts := exchangetest.RouteServer(t, exchangetest.Route{
		"POST /v5/order/create": `{"retCode":0,"retMsg":"OK","result":{"orderId":"1321003749386327552","orderLinkId":"my-order"}}`,
	}, func(r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req BybitOrderRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("Error parsing body: %s", err.Error())
		}
		if req.Side != "Sell" || req.OrderType != "Limit" || req.Price != "31000" || req.Qty != "0.002" {
			t.Errorf("Unexpected order request: %+v", req)
		}
		if req.TimeInForce != "PostOnly" {
			t.Errorf("Unexpected time in force: %s", req.TimeInForce)
		}
		ts := r.Header.Get("X-BAPI-TIMESTAMP")
		c := &Client{creds: mustCreds(t)}
		if expected := c.sign(ts, string(body)); r.Header.Get("X-BAPI-SIGN") != expected {
			t.Errorf("Unexpected signature for body")
		}
	})

	order, err := newTestClient(t, ts.URL).PlaceOrder(context.Background(), exchange.OrderRequest{
		Symbol:        "BTCUSDT",
		Side:          exchange.SideSell,
		Type:          exchange.OrderTypeLimit,
		Quantity:      decimal.RequireFromString("0.002"),
		Price:         decimal.RequireFromString("31000"),
		ClientOrderID: "my-order",
		PostOnly:      true,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if order.ID != "1321003749386327552" || order.ClientOrderID != "my-order" {
		t.Errorf("Unexpected order: %+v", order)
	}
	if order.TimeInForce != exchange.GoodTillCancel || !order.PostOnly {
		t.Errorf("Unexpected time in force: %s; post only: %t", order.TimeInForce, order.PostOnly)
	}
}

func TestClient_OpenOrdersReportsPostOnly(t *testing.T) {
	body := `{"retCode":0,"retMsg":"OK","result":{"list":[
		{"orderId":"7","symbol":"BTCUSDT","side":"Buy","orderType":"Limit","orderStatus":"New","timeInForce":"PostOnly","qty":"0.01","price":"25000"}
	]}}`
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v5/order/realtime": body}, nil)

	orders, err := newTestClient(t, ts.URL).OpenOrders(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(orders) != 1 || !orders[0].PostOnly || orders[0].TimeInForce != exchange.GoodTillCancel {
		t.Errorf("Unexpected orders: %+v", orders)
	}
}

func TestClient_MalformedDecimals(t *testing.T) {
	body := `{"retCode":0,"retMsg":"OK","result":{"list":[
		{"orderId":"1","symbol":"ETHUSDT","side":"Buy","orderType":"Limit","orderStatus":"New","price":"1,600.00","qty":"0.1O"}
	]}}`
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v5/order/realtime": body}, nil)

	orders, err := newTestClient(t, ts.URL).OpenOrders(context.Background(), "ETHUSDT")
	if orders != nil {
		t.Errorf("Unexpected orders: %+v", orders)
	}
	var e *exchange.Error
	if !errors.As(err, &e) || e.Kind != exchange.KindExchange {
		t.Fatalf("Unexpected error. Expected: exchange error; Actual: %v.", err)
	}
	if !strings.Contains(e.Message, "failed to parse response") || !strings.Contains(e.Message, "1,600.00") {
		t.Errorf("Unexpected message: %s", e.Message)
	}
}

func TestClient_PlaceOrderValidates(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	_, err := client.PlaceOrder(context.Background(), exchange.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     exchange.SideBuy,
		Type:     exchange.OrderTypeLimit,
		Quantity: decimal.NewFromInt(1),
	})
	if !errors.Is(err, exchange.ErrInvalidRequest) {
		t.Errorf("Expected invalid request, got: %v", err)
	}
}

func TestClient_Candles(t *testing.T) {
	body := `{"retCode":0,"retMsg":"OK","result":{"symbol":"BTCUSDT","category":"linear","list":[
		["1670608800000","17071","17073","17027","17055.5","268611","15.74"],
		["1670605200000","17071.5","17071.5","17061","17071","4177","0.24"]
	]}}`
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v5/market/kline": body}, func(r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "60" {
			t.Errorf("Unexpected interval param: %s", got)
		}
		if r.Header.Get("X-BAPI-SIGN") != "" {
			t.Errorf("Public endpoint must not be signed")
		}
	})

	candles, err := newTestClient(t, ts.URL).Candles(context.Background(), exchange.CandleRequest{
		Symbol:   "BTCUSDT",
		Interval: exchange.OneHour,
		Limit:    2,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(candles) != 2 {
		t.Fatalf("Unexpected candle count: %d", len(candles))
	}
	if !candles[0].OpenTime.Before(candles[1].OpenTime) {
		t.Errorf("Candles are not oldest first")
	}
	if expected := candles[0].OpenTime.Add(time.Hour - time.Millisecond); !candles[0].CloseTime.Equal(expected) {
		t.Errorf("Unexpected close time: %s", candles[0].CloseTime)
	}
	if !candles[1].Close.Equal(decimal.RequireFromString("17055.5")) {
		t.Errorf("Unexpected close: %s", candles[1].Close)
	}

	if _, err := newTestClient(t, ts.URL).Candles(context.Background(), exchange.CandleRequest{
		Symbol:   "BTCUSDT",
		Interval: exchange.EightHour,
	}); !errors.Is(err, exchange.ErrInvalidRequest) {
		t.Errorf("Expected invalid request for 8h, got: %v", err)
	}
}

func TestClient_PositionsSkipsFlat(t *testing.T) {
	body := `{"retCode":0,"retMsg":"OK","result":{"list":[
		{"symbol":"BTCUSDT","side":"Buy","size":"0.5","avgPrice":"30000","markPrice":"30100","liqPrice":"20000","unrealisedPnl":"50","leverage":"10"},
		{"symbol":"ETHUSDT","side":"","size":"0","avgPrice":"0","markPrice":"1800","liqPrice":"","unrealisedPnl":"0","leverage":"10"}
	]}}`
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v5/position/list": body}, nil)

	positions, err := newTestClient(t, ts.URL).Positions(context.Background(), "")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(positions) != 1 {
		t.Fatalf("Unexpected position count: %d", len(positions))
	}
	p := positions[0]
	if p.Side != exchange.SideBuy || !p.Size.Equal(decimal.RequireFromString("0.5")) || !p.Leverage.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Unexpected position: %+v", p)
	}
}

func mustCreds(t *testing.T) exchange.Credentials {
	t.Helper()
	creds, err := exchange.NewCredentials(testKey, testSecret)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	return creds
}
