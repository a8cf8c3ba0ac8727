// Package binance implements exchange.Exchange for Binance USDT-M futures and
// Binance spot on top of github.com/adshao/go-binance/v2. Requests go through
// the shared rest transport so both clients get the module's rate limiter,
// circuit breaker, metrics and error classification.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/rest"
)

const (
	Name     = "binance"
	SpotName = "binance_spot"

	FuturesBaseURL        = "https://fapi.binance.com"
	FuturesTestnetBaseURL = "https://testnet.binancefuture.com"
	SpotBaseURL           = "https://api.binance.com"
	SpotTestnetBaseURL    = "https://testnet.binance.vision"

	codeTooManyRequests = "-1003"
)

var authCodes = []string{"-1002", "-1022", "-2014", "-2015"}

// endpoint names used for errors and metric labels
var ops = map[string]string{
	"openOrders":    "open orders",
	"allOpenOrders": "cancel all",
	"allOrders":     "closed orders",
	"order":         "place order",
	"positionRisk":  "positions",
	"balance":       "balances",
	"account":       "balances",
	"depth":         "order book",
	"klines":        "candles",
	"time":          "server time",
}

func opName(req *http.Request) string {
	path := strings.TrimRight(req.URL.Path, "/")
	last := path[strings.LastIndex(path, "/")+1:]
	if req.Method == http.MethodDelete && last == "openOrders" {
		return "cancel all"
	}
	if op, ok := ops[last]; ok {
		return op
	}
	return path
}

// Client is the USDT-M futures client.
type Client struct {
	api  *futures.Client
	rest *rest.Client
}

// SpotClient is the spot client. Spot accounts have no positions.
type SpotClient struct {
	api  *gobinance.Client
	rest *rest.Client
}

var (
	_ exchange.Exchange = (*Client)(nil)
	_ exchange.Exchange = (*SpotClient)(nil)
)

// New creates a USDT-M futures client.
func New(creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	if err := creds.Check(Name, false); err != nil {
		return nil, err
	}
	cfg := exchange.NewConfig(opts...)

	base := FuturesBaseURL
	if cfg.Testnet {
		base = FuturesTestnetBaseURL
	}
	r, err := newRest(Name, base, cfg)
	if err != nil {
		return nil, err
	}

	api := futures.NewClient(creds.Key(), creds.Secret())
	api.BaseURL = r.BaseURL()
	api.HTTPClient = r.HTTPClient(opName)
	return &Client{api: api, rest: r}, nil
}

// NewSpot creates a spot client.
func NewSpot(creds exchange.Credentials, opts ...exchange.Option) (*SpotClient, error) {
	if err := creds.Check(SpotName, false); err != nil {
		return nil, err
	}
	cfg := exchange.NewConfig(opts...)

	base := SpotBaseURL
	if cfg.Testnet {
		base = SpotTestnetBaseURL
	}
	r, err := newRest(SpotName, base, cfg)
	if err != nil {
		return nil, err
	}

	api := gobinance.NewClient(creds.Key(), creds.Secret())
	api.BaseURL = r.BaseURL()
	api.HTTPClient = r.HTTPClient(opName)
	return &SpotClient{api: api, rest: r}, nil
}

func newRest(name, base string, cfg exchange.Config) (*rest.Client, error) {
	return rest.New(rest.Settings{
		Exchange:       name,
		BaseURL:        base,
		DecodeError:    decodeError,
		AuthCodes:      authCodes,
		RateLimitCodes: []string{codeTooManyRequests},
	}, cfg)
}

func (c *Client) Name() string     { return Name }
func (c *SpotClient) Name() string { return SpotName }

// decodeError reads {"code":-2015,"msg":"..."}.
func decodeError(body []byte) (string, string) {
	var e common.APIError
	if err := json.Unmarshal(body, &e); err != nil || (e.Code == 0 && e.Message == "") {
		return "", ""
	}
	return strconv.FormatInt(e.Code, 10), e.Message
}

// wrap maps whatever the SDK returned onto *exchange.Error. Failures seen by
// the transport already are; what is left are API errors in 2xx bodies,
// cancellations before the request left and payloads the SDK failed to parse.
func wrap(r *rest.Client, op string, err error) error {
	if err == nil {
		return nil
	}

	var e *exchange.Error
	if errors.As(err, &e) {
		return e
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return r.APIError(op, strconv.FormatInt(apiErr.Code, 10), apiErr.Message)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return exchange.NetworkError(r.Exchange(), op, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return exchange.NetworkError(r.Exchange(), op, err)
	}

	return &exchange.Error{
		Kind:     exchange.KindExchange,
		Exchange: r.Exchange(),
		Op:       op,
		Message:  "unexpected response: " + err.Error(),
		Err:      err,
	}
}
