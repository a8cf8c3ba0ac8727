// Package ftx implements exchange.Exchange for FTX and FTX US. Both venues
// share the API; they differ in host and header prefix.
package ftx

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
	Name   = "ftx"
	NameUS = "ftx_us"

	FTXBaseURL   = "https://ftx.com/api"
	FTXUSBaseURL = "https://ftx.us/api"
)

// venue holds what differs between FTX and FTX US.
type venue struct {
	name         string
	baseURL      string
	headerPrefix string
}

var (
	global = venue{name: Name, baseURL: FTXBaseURL, headerPrefix: "FTX"}
	us     = venue{name: NameUS, baseURL: FTXUSBaseURL, headerPrefix: "FTXUS"}
)

type Client struct {
	venue venue
	creds exchange.Credentials
	rest  *rest.Client
}

var _ exchange.Exchange = (*Client)(nil)

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

// New creates an FTX client.
func New(creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	return newClient(global, creds, opts...)
}

// NewUS creates an FTX US client.
func NewUS(creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	return newClient(us, creds, opts...)
}

func newClient(v venue, creds exchange.Credentials, opts ...exchange.Option) (*Client, error) {
	if err := creds.Check(v.name, false); err != nil {
		return nil, err
	}
	cfg := exchange.NewConfig(opts...)

	c := &Client{venue: v, creds: creds}
	r, err := rest.New(rest.Settings{
		Exchange:    v.name,
		BaseURL:     v.baseURL,
		Sign:        c.signRequest,
		DecodeError: decodeError,
	}, cfg)
	if err != nil {
		return nil, err
	}
	c.rest = r
	return c, nil
}

func (c *Client) Name() string { return c.venue.name }

// sign returns hex(HMAC-SHA256(ts + METHOD + path[?query] + body)).
func (c *Client) sign(ts, method, path, body string) string {
	h := hmac.New(sha256.New, []byte(c.creds.Secret()))
	h.Write([]byte(ts + method + path + body))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) signRequest(req *http.Request, query string, body []byte) error {
	path := req.URL.EscapedPath()
	if query != "" {
		path += "?" + query
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	prefix := c.venue.headerPrefix
	req.Header.Set(prefix+"-KEY", c.creds.Key())
	req.Header.Set(prefix+"-SIGN", c.sign(ts, req.Method, path, string(body)))
	req.Header.Set(prefix+"-TS", ts)
	return nil
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
			return exchange.InvalidRequestError(c.venue.name, op, "failed to marshal request: "+err.Error())
		}
		r.Body = body
	}

	body, err := c.rest.Do(ctx, r)
	if err != nil {
		return err
	}

	var env envelope
	if err := c.rest.Decode(op, body, &env); err != nil {
		return err
	}
	if !env.Success {
		return c.rest.APIError(op, "", env.Error)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	return c.rest.Decode(op, env.Result, out)
}

func decodeError(body []byte) (string, string) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", ""
	}
	return "", env.Error
}
