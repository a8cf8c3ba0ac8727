// Package okx implements exchange.Exchange for OKX REST API v5 perpetual swaps.
// Symbols are OKX instrument IDs such as BTC-USDT-SWAP.
package okx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/rest"
)

const (
	Name = "okx"

	OKXBaseURL    = "https://www.okx.com"
	OKXAPIVersion = "/api/v5"

	instType = "SWAP"
)

var (
	authCodes      = []string{"50111", "50113", "50105", "50101", "50103", "50104"}
	rateLimitCodes = []string{"50011", "50061"}
)

// Client talks to the OKX REST API.
type Client struct {
	creds     exchange.Credentials
	simulated bool
	rest      *rest.Client
}

var _ exchange.Exchange = (*Client)(nil)

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// New creates an OKX client. OKX keys always carry a passphrase.
func New(creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	if err := creds.Check(Name, true); err != nil {
		return nil, err
	}
	cfg := exchange.NewConfig(opts...)

	c := &Client{creds: creds, simulated: cfg.Testnet}
	r, err := rest.New(rest.Settings{
		Exchange:       Name,
		BaseURL:        OKXBaseURL,
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

// sign returns base64(HMAC-SHA256(timestamp + method + requestPath + body)).
func (c *Client) sign(timestamp, method, requestPath, body string) string {
	message := timestamp + method + requestPath + body
	h := hmac.New(sha256.New, []byte(c.creds.Secret()))
	h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// getTimestamp returns the current time in ISO 8601 with milliseconds.
func getTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func (c *Client) signRequest(req *http.Request, query string, body []byte) error {
	requestPath := req.URL.EscapedPath()
	if query != "" {
		requestPath += "?" + query
	}
	timestamp := getTimestamp()

	req.Header.Set("OK-ACCESS-KEY", c.creds.Key())
	req.Header.Set("OK-ACCESS-SIGN", c.sign(timestamp, req.Method, requestPath, string(body)))
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase())
	if c.simulated {
		req.Header.Set("x-simulated-trading", "1")
	}
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
	if env.Code != "0" {
		// code 1/2 means per-item failures; the item carries the useful code
		var acks []orderAck
		if json.Unmarshal(env.Data, &acks) == nil {
			for _, ack := range acks {
				if ack.SCode != "" && ack.SCode != "0" {
					return c.rest.APIError(r.Op, ack.SCode, ack.SMsg)
				}
			}
		}
		return c.rest.APIError(r.Op, env.Code, env.Msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return c.rest.Decode(r.Op, env.Data, out)
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, signed bool, out interface{}) error {
	return c.call(ctx, rest.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   OKXAPIVersion + path,
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
		Path:   OKXAPIVersion + path,
		Body:   body,
		Signed: true,
	}, out)
}

func decodeError(body []byte) (string, string) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", ""
	}
	return env.Code, env.Msg
}
