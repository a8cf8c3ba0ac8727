// Package bybit implements exchange.Exchange for Bybit's v5 REST API
// (USDT linear contracts).
package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/rest"
)

const (
	Name = "bybit"

	BybitBaseURL    = "https://api.bybit.com"
	BybitTestnetURL = "https://api-testnet.bybit.com"
	BybitAPIVersion = "/v5"

	recvWindow = "5000"
	category   = "linear"
	settleCoin = "USDT"
)

var (
	authCodes      = []string{"10003", "10004", "10005", "33004"}
	rateLimitCodes = []string{"10006", "10018"}
)

// Client talks to Bybit REST API v5.
type Client struct {
	creds exchange.Credentials
	rest  *rest.Client
}

var _ exchange.Exchange = (*Client)(nil)

// envelope is the response wrapper of every v5 endpoint.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
	Time    int64           `json:"time"`
}

// New creates a Bybit client. Credentials must be valid.
func New(creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	if err := creds.Check(Name, false); err != nil {
		return nil, err
	}
	cfg := exchange.NewConfig(opts...)

	base := BybitBaseURL
	if cfg.Testnet {
		base = BybitTestnetURL
	}

	c := &Client{creds: creds}
	r, err := rest.New(rest.Settings{
		Exchange:       Name,
		BaseURL:        base,
		Sign:           c.signRequest,
		DecodeError:    decodeError,
		AuthCodes:      authCodes,
		RateLimitCodes: rateLimitCodes,
	}, cfg)
	if err != nil {
		return nil, err
	}
	c.rest = r
	return c, nil
}

func (c *Client) Name() string { return Name }

// sign creates the HMAC SHA256 signature Bybit expects: hex of
// timestamp + apiKey + recvWindow + payload.
func (c *Client) sign(timestamp, payload string) string {
	message := timestamp + c.creds.Key() + recvWindow + payload
	h := hmac.New(sha256.New, []byte(c.creds.Secret()))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) signRequest(req *http.Request, query string, body []byte) error {
	payload := query
	if body != nil {
		payload = string(body)
	}
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	req.Header.Set("X-BAPI-API-KEY", c.creds.Key())
	req.Header.Set("X-BAPI-SIGN", c.sign(timestamp, payload))
	req.Header.Set("X-BAPI-SIGN-TYPE", "2")
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	return nil
}

// call performs the request and unwraps the v5 envelope into out.
func (c *Client) call(ctx context.Context, r rest.Request, out interface{}) error {
	body, err := c.rest.Do(ctx, r)
	if err != nil {
		return err
	}

	var env envelope
	if err := c.rest.Decode(r.Op, body, &env); err != nil {
		return err
	}
	if env.RetCode != 0 {
		return c.rest.APIError(r.Op, strconv.Itoa(env.RetCode), env.RetMsg)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	return c.rest.Decode(r.Op, env.Result, out)
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, signed bool, out interface{}) error {
	return c.call(ctx, rest.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   BybitAPIVersion + path,
		Query:  params,
		Signed: signed,
	}, out)
}

func (c *Client) post(ctx context.Context, op, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return exchange.InvalidRequestError(Name, op, "failed to marshal request: "+err.Error())
	}
	return c.call(ctx, rest.Request{
		Op:     op,
		Method: http.MethodPost,
		Path:   BybitAPIVersion + path,
		Body:   body,
		Signed: true,
	}, out)
}

func decodeError(body []byte) (string, string) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || (env.RetCode == 0 && env.RetMsg == "") {
		return "", ""
	}
	return strconv.Itoa(env.RetCode), env.RetMsg
}
