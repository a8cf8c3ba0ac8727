// Package phemex implements exchange.Exchange for Phemex USDT perpetual
// contracts (hedged "g-" endpoints, real-valued Rp/Rq/Rv fields).
package phemex

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
	Name = "phemex"

	PhemexBaseURL    = "https://api.phemex.com"
	PhemexTestnetURL = "https://testnet-api.phemex.com"

	expiryWindow = 60 * time.Second

	// codeNoOrders is returned by activeList when nothing is open.
	codeNoOrders = 10002
)

var authCodes = []string{"401", "10500", "11074"}

type Client struct {
	creds exchange.Credentials
	rest  *rest.Client
}

var _ exchange.Exchange = (*Client)(nil)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func New(creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	if err := creds.Check(Name, false); err != nil {
		return nil, err
	}
	cfg := exchange.NewConfig(opts...)

	base := PhemexBaseURL
	if cfg.Testnet {
		base = PhemexTestnetURL
	}

	c := &Client{creds: creds}
	r, err := rest.New(rest.Settings{
		Exchange:    Name,
		BaseURL:     base,
		Sign:        c.signRequest,
		DecodeError: decodeError,
		AuthCodes:   authCodes,
	}, cfg)
	if err != nil {
		return nil, err
	}
	c.rest = r
	return c, nil
}

func (c *Client) Name() string { return Name }

// sign returns hex(HMAC-SHA256(path + query + expiry + body)). The query has
// no leading '?'.
func (c *Client) sign(path, query, expiry, body string) string {
	h := hmac.New(sha256.New, []byte(c.creds.Secret()))
	h.Write([]byte(path + query + expiry + body))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) signRequest(req *http.Request, query string, body []byte) error {
	expiry := strconv.FormatInt(time.Now().Add(expiryWindow).Unix(), 10)

	req.Header.Set("x-phemex-access-token", c.creds.Key())
	req.Header.Set("x-phemex-request-expiry", expiry)
	req.Header.Set("x-phemex-request-signature", c.sign(req.URL.EscapedPath(), query, expiry, string(body)))
	return nil
}

// call unwraps the {code,msg,data} envelope. It returns the venue code so
// callers can treat specific codes as empty results.
func (c *Client) call(ctx context.Context, r rest.Request, out interface{}) (int, error) {
	body, err := c.rest.Do(ctx, r)
	if err != nil {
		return 0, err
	}

	var env envelope
	if err := c.rest.Decode(r.Op, body, &env); err != nil {
		return 0, err
	}
	if env.Code != 0 {
		return env.Code, c.rest.APIError(r.Op, strconv.Itoa(env.Code), env.Msg)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return 0, nil
	}
	return 0, c.rest.Decode(r.Op, env.Data, out)
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, signed bool, out interface{}) (int, error) {
	return c.call(ctx, rest.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   path,
		Query:  params,
		Signed: signed,
	}, out)
}

func decodeError(body []byte) (string, string) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || (env.Code == 0 && env.Msg == "") {
		return "", ""
	}
	return strconv.Itoa(env.Code), env.Msg
}
