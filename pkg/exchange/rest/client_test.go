package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/exchangetest"
)

func newTestClient(baseURL string, opts ...exchange.Option) *Client {
	opts = append([]exchange.Option{exchange.WithBaseURL(baseURL)}, opts...)
	c, err := New(testSettings, exchange.NewConfig(opts...))
	if err != nil {
		panic(err)
	}
	return c
}

var testSettings = Settings{
	Exchange: "test",
	Sign: func(req *http.Request, query string, body []byte) error {
		req.Header.Set("X-Signed-Query", query)
		return nil
	},
	DecodeError: func(body []byte) (string, string) {
		var env struct {
			Code string `json:"code"`
			Msg  string `json:"msg"`
		}
		json.Unmarshal(body, &env)
		return env.Code, env.Msg
	},
	AuthCodes:      []string{"E1"},
	RateLimitCodes: []string{"E2"},
}

// flakyServer drops the first n connections and then answers 200.
func flakyServer(t *testing.T, n int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= n {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestDo_SignsQuery(t *testing.T) {
	var signed string
	ts := exchangetest.RouteServer(t, exchangetest.Route{"GET /v1/orders": `[]`}, func(r *http.Request) {
		signed = r.Header.Get("X-Signed-Query")
	})
	c := newTestClient(ts.URL)

	_, err := c.Do(context.Background(), Request{
		Op: "open orders", Method: http.MethodGet, Path: "/v1/orders",
		Query: url.Values{"symbol": {"BTCUSDT"}}, Signed: true,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if signed != "symbol=BTCUSDT" {
		t.Errorf("Unexpected signed query. Expected: symbol=BTCUSDT; Actual: %s.", signed)
	}
}

func TestDo_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		kind        exchange.Kind
		code        string
		rateLimited bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, exchange.KindAuthentication, "", false},
		{"auth code in 400", http.StatusBadRequest, `{"code":"E1","msg":"bad key"}`, exchange.KindAuthentication, "E1", false},
		{"bad argument", http.StatusBadRequest, `{"code":"E9","msg":"bad symbol"}`, exchange.KindExchange, "E9", false},
		{"throttled", http.StatusTooManyRequests, `{"code":"E2","msg":"slow down"}`, exchange.KindExchange, "E2", true},
		{"html gateway page", http.StatusBadGateway, `<html>bad gateway</html>`, exchange.KindExchange, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := exchangetest.StatusServer(t, tt.status, tt.body)
			_, err := newTestClient(ts.URL).Do(context.Background(), Request{Op: "op", Method: http.MethodGet, Path: "/"})

			var e *exchange.Error
			if !errors.As(err, &e) {
				t.Fatalf("Unexpected error type: %v", err)
			}
			if e.Kind != tt.kind || e.Code != tt.code || e.StatusCode != tt.status {
				t.Errorf("Unexpected error: %+v", e)
			}
			if e.RateLimited() != tt.rateLimited {
				t.Errorf("Unexpected rate-limit flag. Expected: %t; Actual: %t.", tt.rateLimited, e.RateLimited())
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient("http://unused")
	if err := c.APIError("op", "E1", "bad key"); !errors.Is(err, exchange.ErrAuthentication) {
		t.Errorf("Unexpected error. Expected: authentication; Actual: %v.", err)
	}
	if err := c.APIError("op", "E2", "slow down"); !exchange.IsRateLimited(err) {
		t.Errorf("Expected a rate-limited error, got %v", err)
	}
	if err := c.APIError("op", "E3", "nope"); !errors.Is(err, exchange.ErrExchange) || exchange.IsRateLimited(err) {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDo_RetriesIdempotentReads(t *testing.T) {
	ts, calls := flakyServer(t, 2)
	c := newTestClient(ts.URL, exchange.WithRetries(2))

	body, err := c.Do(context.Background(), Request{Op: "balances", Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body: %s", body)
	}
	if n := atomic.LoadInt32(calls); n != 3 {
		t.Errorf("Unexpected number of attempts. Expected: 3; Actual: %d.", n)
	}
}

func TestDo_DoesNotRetryWrites(t *testing.T) {
	ts, calls := flakyServer(t, 1)
	c := newTestClient(ts.URL, exchange.WithRetries(3))

	_, err := c.Do(context.Background(), Request{Op: "place order", Method: http.MethodPost, Path: "/", Body: []byte(`{}`)})
	if !errors.Is(err, exchange.ErrNetwork) {
		t.Errorf("Unexpected error. Expected: network; Actual: %v.", err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("Unexpected number of attempts. Expected: 1; Actual: %d.", n)
	}
}

func TestDo_BreakerOpensOnNetworkFailures(t *testing.T) {
	ts := exchangetest.DroppingServer(t)
	c := newTestClient(ts.URL)

	for i := 0; i < 3; i++ {
		c.Do(context.Background(), Request{Op: "balances", Method: http.MethodGet, Path: "/"})
	}
	_, err := c.Do(context.Background(), Request{Op: "balances", Method: http.MethodGet, Path: "/"})
	if !errors.Is(err, exchange.ErrNetwork) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Unexpected error. Expected: open breaker; Actual: %v.", err)
	}
}

func TestDo_ClientErrorsKeepBreakerClosed(t *testing.T) {
	ts := exchangetest.StatusServer(t, http.StatusBadRequest, `{}`)
	c := newTestClient(ts.URL)

	for i := 0; i < 5; i++ {
		_, err := c.Do(context.Background(), Request{Op: "balances", Method: http.MethodGet, Path: "/"})
		if errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("Breaker opened after %d rejected requests", i)
		}
	}
}

func TestNew_RejectsMalformedProxy(t *testing.T) {
	for _, addr := range []string{"localhost", "socks.example:", ":1080"} {
		_, err := New(testSettings, exchange.NewConfig(exchange.WithProxy(addr)))
		if !errors.Is(err, exchange.ErrConfiguration) {
			t.Errorf("Unexpected error for proxy %q. Expected: configuration; Actual: %v.", addr, err)
		}
	}

	c, err := New(testSettings, exchange.NewConfig(exchange.WithProxy("127.0.0.1:1080")))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if _, ok := c.http.Transport.(*http.Transport); !ok {
		t.Errorf("Expected a proxied transport, got %T", c.http.Transport)
	}
}
