package phemex

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/exchangetest"
)

const (
	testKey    = "phemex-key"
	testSecret = "cGhlbWV4LXNlY3JldA=="
)

const activeListBody = `{
	"code": 0,
	"msg": "",
	"data": {
		"rows": [{
			"orderID": "ab90a08c-b728-4b6b-97c4-36fa497335bf",
			"clOrdID": "137e1928-5d25-fecd-dbd1-705ded659a4f",
			"symbol": "BTCUSDT",
			"side": "Sell",
			"ordType": "Limit",
			"priceRp": "98970000",
			"orderQtyRq": "1",
			"cumQtyRq": "0",
			"cumValueRv": "0",
			"ordStatus": "New",
			"timeInForce": "GoodTillCancel",
			"reduceOnly": false,
			"createdAtNs": 1580533011990175700,
			"actionTimeNs": 1580533011990175800
		}]
	}
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

func TestClient_OpenOrders(t *testing.T) {
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /g-orders/activeList": activeListBody}, func(r *http.Request) {
		if got := r.Header.Get("x-phemex-access-token"); got != testKey {
			t.Errorf("Unexpected access token: %s", got)
		}
		expiry := r.Header.Get("x-phemex-request-expiry")
		exp, err := strconv.ParseInt(expiry, 10, 64)
		if err != nil || exp <= time.Now().Unix() {
			t.Errorf("Unexpected expiry: %s", expiry)
		}
		c := &Client{creds: newTestClient(t, "http://unused").creds}
		expected := c.sign(r.URL.Path, r.URL.RawQuery, expiry, "")
		if actual := r.Header.Get("x-phemex-request-signature"); expected != actual {
			t.Errorf("Unexpected signature. Expected: %s; Actual: %s.", expected, actual)
		}
	})

	client := newTestClient(t, ts.URL)
	orders, err := client.OpenOrders(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(orders) != 1 {
		t.Fatalf("Unexpected order count. Expected: 1; Actual: %d.", len(orders))
	}

	o := orders[0]
	if o.ID != "ab90a08c-b728-4b6b-97c4-36fa497335bf" || o.ClientOrderID != "137e1928-5d25-fecd-dbd1-705ded659a4f" {
		t.Errorf("Unexpected ids: %s / %s", o.ID, o.ClientOrderID)
	}
	if o.Side != exchange.SideSell || o.Type != exchange.OrderTypeLimit || o.Status != exchange.StatusNew {
		t.Errorf("Unexpected side/type/status: %s %s %s", o.Side, o.Type, o.Status)
	}
	if !o.Price.Equal(decimal.NewFromInt(98970000)) || !o.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Unexpected price/quantity: %s / %s", o.Price, o.Quantity)
	}
	if o.TimeInForce != exchange.GoodTillCancel {
		t.Errorf("Unexpected time in force: %s", o.TimeInForce)
	}
	if expected := time.Unix(0, 1580533011990175700).UTC(); !o.CreatedAt.Equal(expected) {
		t.Errorf("Unexpected created time. Expected: %s; Actual: %s.", expected, o.CreatedAt)
	}

	again, err := client.OpenOrders(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if !reflect.DeepEqual(orders, again) {
		t.Errorf("Repeated calls differ")
	}
}

func TestClient_OpenOrdersNoneOpen(t *testing.T) {
	ts := exchangetest.StatusServer(t, http.StatusOK, `{"code":10002,"msg":"OM_ORDER_NOT_FOUND","data":null}`)
	orders, err := newTestClient(t, ts.URL).OpenOrders(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(orders) != 0 {
		t.Errorf("Expected no orders, got %d", len(orders))
	}
}

func TestClient_OpenOrdersNeedsSymbol(t *testing.T) {
	if _, err := newTestClient(t, "http://127.0.0.1:0").OpenOrders(context.Background(), ""); !errors.Is(err, exchange.ErrInvalidRequest) {
		t.Errorf("Expected invalid request, got: %v", err)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		target  error
		limited bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"code":401,"msg":"Unauthorized"}`, exchange.ErrAuthentication, false},
		{"rate limited", http.StatusTooManyRequests, `{"code":429,"msg":"too many requests"}`, exchange.ErrExchange, true},
		{"rejected", http.StatusOK, `{"code":11001,"msg":"TE_NO_ENOUGH_AVAILABLE_BALANCE"}`, exchange.ErrExchange, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := exchangetest.StatusServer(t, tt.status, tt.body)
			_, err := newTestClient(t, ts.URL).OpenOrders(context.Background(), "BTCUSDT")
			if !errors.Is(err, tt.target) {
				t.Fatalf("Unexpected error. Expected: %v; Actual: %v.", tt.target, err)
			}
			if exchange.IsRateLimited(err) != tt.limited {
				t.Errorf("Unexpected rate limit flag for %v", err)
			}
		})
	}

	ts := exchangetest.DroppingServer(t)
	if _, err := newTestClient(t, ts.URL).OpenOrders(context.Background(), "BTCUSDT"); !errors.Is(err, exchange.ErrNetwork) {
		t.Errorf("Expected network error, got: %v", err)
	}
}

func TestClient_PositionsAndBalances(t *testing.T) {
	body := `{"code":0,"msg":"","data":{
		"account":{"currency":"USDT","accountBalanceRv":"1000.5","totalUsedBalanceRv":"200.5"},
		"positions":[
			{"symbol":"BTCUSDT","side":"Buy","posSide":"Merged","sizeRq":"0.01","avgEntryPriceRp":"30000","markPriceRp":"30500","liquidationPriceRp":"20000","unRealisedPnlRv":"5","leverageRr":"-10"},
			{"symbol":"ETHUSDT","side":"None","posSide":"Merged","sizeRq":"0","avgEntryPriceRp":"0","markPriceRp":"1800","liquidationPriceRp":"0","unRealisedPnlRv":"0","leverageRr":"5"}
		]}}`
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /g-accounts/accountPositions": body}, nil)
	client := newTestClient(t, ts.URL)

	positions, err := client.Positions(context.Background(), "")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(positions) != 1 {
		t.Fatalf("Unexpected position count: %d", len(positions))
	}
	if p := positions[0]; p.Side != exchange.SideBuy || !p.Leverage.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Unexpected position: %+v", p)
	}

	balances, err := client.Balances(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(balances) != 1 {
		t.Fatalf("Unexpected balance count: %d", len(balances))
	}
	b := balances[0]
	if !b.Total.Equal(decimal.RequireFromString("1000.5")) || !b.Available.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Unexpected balance: %+v", b)
	}
	if !b.UnrealizedPnL.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Unexpected unrealized pnl: %s", b.UnrealizedPnL)
	}
}

func TestClient_Candles(t *testing.T) {
	body := `{"code":0,"msg":"OK","data":{"total":-1,"rows":[
		[1666540800,60,"19400.1","19405.0","19420.5","19398.2","19410.0","12.5","242500.1"],
		[1666540740,60,"19390.0","19391.0","19401.0","19388.0","19400.1","3.1","60122.0"]
	]}}`
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /exchange/public/md/v2/kline/last": body}, func(r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("Unexpected limit: %s", got)
		}
	})

	candles, err := newTestClient(t, ts.URL).Candles(context.Background(), exchange.CandleRequest{
		Symbol:   "BTCUSDT",
		Interval: exchange.OneMinute,
		Limit:    2,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(candles) != 2 {
		t.Fatalf("Unexpected candle count: %d", len(candles))
	}
	if candles[0].OpenTime.Unix() != 1666540740 {
		t.Errorf("Candles are not oldest first: %s", candles[0].OpenTime)
	}
	if !candles[1].Volume.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Unexpected volume: %s", candles[1].Volume)
	}
}
