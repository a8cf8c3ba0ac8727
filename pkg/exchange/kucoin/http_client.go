// Package kucoin implements exchange.Exchange for KuCoin Futures (USDT-margined
// contracts, symbols like XBTUSDTM).
package kucoin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/rest"
)

const (
	Name = "kucoin"

	FuturesBaseURL = "https://api-futures.kucoin.com"
	SandboxBaseURL = "https://api-sandbox-futures.kucoin.com"

	successCode = "200000"
	keyVersion  = "2"
)

var (
	authCodes      = []string{"400001", "400003", "400004", "400005", "400006", "400007"}
	rateLimitCodes = []string{"429000"}
)

type Client struct {
	creds exchange.Credentials
	rest  *rest.Client
}

var _ exchange.Exchange = (*Client)(nil)

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// New creates a KuCoin Futures client. KuCoin keys always carry a passphrase.
func New(creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	if err := creds.Check(Name, true); err != nil {
		return nil, err
	}
	cfg := exchange.NewConfig(opts...)

	base := FuturesBaseURL
	if cfg.Testnet {
		base = SandboxBaseURL
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

func (c *Client) hmacBase64(message string) string {
	mac := hmac.New(sha256.New, []byte(c.creds.Secret()))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// sign returns the request signature over timestamp + method + endpoint + body,
// where endpoint includes the query string.
func (c *Client) sign(timestamp, method, endpoint, body string) string {
	return c.hmacBase64(timestamp + method + endpoint + body)
}

// signedPassphrase is the key-version 2 passphrase: HMAC'd with the secret.
func (c *Client) signedPassphrase() string {
	return c.hmacBase64(c.creds.Passphrase())
}

func (c *Client) signRequest(req *http.Request, query string, body []byte) error {
	endpoint := req.URL.EscapedPath()
	if query != "" {
		endpoint += "?" + query
	}
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	req.Header.Set("KC-API-KEY", c.creds.Key())
	req.Header.Set("KC-API-SIGN", c.sign(timestamp, req.Method, endpoint, string(body)))
	req.Header.Set("KC-API-TIMESTAMP", timestamp)
	req.Header.Set("KC-API-PASSPHRASE", c.signedPassphrase())
	req.Header.Set("KC-API-KEY-VERSION", keyVersion)
	return nil
}

func (c *Client) call(ctx context.Context, r rest.Request, out interface{}) error {
	body, err := c.rest.Do(ctx, r)
	if err != nil {
		return err
	}

	var env envelope
	if err := c.rest.Decode(r.Op, body, &env); err != nil {
		return err
	}
	if env.Code != successCode {
		return c.rest.APIError(r.Op, env.Code, env.Msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return c.rest.Decode(r.Op, env.Data, out)
}

func (c *Client) request(ctx context.Context, op, method, path string, params url.Values, payload interface{}, signed bool, out interface{}) error {
	r := rest.Request{
		Op:     op,
		Method: method,
		Path:   path,
		Query:  params,
		Signed: signed,
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return exchange.InvalidRequestError(Name, op, "failed to marshal request: "+err.Error())
		}
		r.Body = body
	}
	return c.call(ctx, r, out)
}

func decodeError(body []byte) (string, string) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", ""
	}
	return env.Code, env.Msg
}
