// Package rest is the signed-request plumbing shared by the hand-written
// exchange clients: rate limiting, circuit breaking, retries of idempotent
// reads, metrics and the mapping of HTTP failures onto exchange.Error.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"onecall/internal/metrics"
	"onecall/pkg/exchange"
)

const maxErrorBody = 512

// Request is one REST call. Query is sent in the URL and Body as JSON.
type Request struct {
	Op     string // operation name, used for errors and metric labels
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Signed bool
}

// Signer adds authentication headers. query is the encoded query string
// without the leading '?', exactly as sent.
type Signer func(req *http.Request, query string, body []byte) error

// ErrorDecoder pulls the venue's error code and message out of a payload.
type ErrorDecoder func(body []byte) (code, message string)

// Settings describe the venue a Client talks to.
type Settings struct {
	Exchange       string
	BaseURL        string
	Sign           Signer
	DecodeError    ErrorDecoder
	AuthCodes      []string // venue codes meaning the credentials were rejected
	RateLimitCodes []string // venue codes meaning the call was throttled
}

type Client struct {
	exchange       string
	baseURL        string
	http           *http.Client
	sign           Signer
	decodeError    ErrorDecoder
	authCodes      map[string]bool
	rateLimitCodes map[string]bool
	limiter        *rate.Limiter
	cb             *gobreaker.CircuitBreaker
	retries        int
	logger         *zap.Logger
}

// New fails only on transport settings that cannot be honoured, such as a
// malformed proxy address.
func New(s Settings, cfg exchange.Config) (*Client, error) {
	httpClient, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, exchange.ConfigurationError(s.Exchange, "invalid transport settings", err)
	}
	c := &Client{
		exchange:       s.Exchange,
		baseURL:        strings.TrimRight(cfg.BaseURLOr(s.BaseURL), "/"),
		http:           httpClient,
		sign:           s.Sign,
		decodeError:    s.DecodeError,
		authCodes:      toSet(s.AuthCodes),
		rateLimitCodes: toSet(s.RateLimitCodes),
		retries:        cfg.MaxRetries,
		logger:         cfg.Logger.With(zap.String("exchange", s.Exchange)),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Exchange + "-api",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker changed state",
				zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
			metrics.CircuitBreakerState.WithLabelValues(s.Exchange).Set(float64(to))
		},
	})
	return c, nil
}

// breakerSuccess counts only failures of the venue itself against the breaker:
// transport errors and 5xx responses. Rejected credentials or bad arguments
// say nothing about the venue's health.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var e *exchange.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind != exchange.KindNetwork && e.StatusCode < http.StatusInternalServerError
}

func (c *Client) Exchange() string { return c.exchange }
func (c *Client) BaseURL() string  { return c.baseURL }
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// Do sends r and returns the body of a 2xx response. Failed GETs are retried
// with exponential backoff when retries are enabled and the failure was a
// network one.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	b := &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 0; ; attempt++ {
		body, err := c.once(ctx, r)
		if err == nil {
			return body, nil
		}

		if attempt >= c.retries || r.Method != http.MethodGet || !errors.Is(err, exchange.ErrNetwork) || ctx.Err() != nil {
			metrics.ExchangeErrorsTotal.WithLabelValues(c.exchange, exchange.KindOf(err).String()).Inc()
			return nil, err
		}

		wait := b.Duration()
		c.logger.Debug("retrying request",
			zap.String("op", r.Op), zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, exchange.NetworkError(c.exchange, r.Op, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) once(ctx context.Context, r Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, exchange.NetworkError(c.exchange, r.Op, err)
		}
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, r)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, exchange.NetworkError(c.exchange, r.Op, err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) roundTrip(ctx context.Context, r Request) ([]byte, error) {
	query := r.Query.Encode()
	reqURL := c.baseURL + r.Path
	if query != "" {
		reqURL += "?" + query
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, reqURL, body)
	if err != nil {
		return nil, exchange.InvalidRequestError(c.exchange, r.Op, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.Signed {
		if c.sign == nil {
			return nil, exchange.ConfigurationError(c.exchange, "client has no request signer", nil)
		}
		if err := c.sign(req, query, r.Body); err != nil {
			return nil, exchange.ConfigurationError(c.exchange, "failed to sign request", err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	metrics.ExchangeRequestDuration.WithLabelValues(c.exchange, r.Op).Observe(duration.Seconds())
	if err != nil {
		metrics.ExchangeRequestsTotal.WithLabelValues(c.exchange, r.Op, "error").Inc()
		return nil, exchange.NetworkError(c.exchange, r.Op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ExchangeRequestsTotal.WithLabelValues(c.exchange, r.Op, "error").Inc()
		return nil, exchange.NetworkError(c.exchange, r.Op, fmt.Errorf("failed to read response: %w", err))
	}

	metrics.ExchangeRequestsTotal.WithLabelValues(c.exchange, r.Op, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("request completed",
		zap.String("op", r.Op),
		zap.String("method", r.Method),
		zap.String("path", r.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", duration))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.statusError(r.Op, resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (c *Client) statusError(op string, status int, body []byte) error {
	var code, msg string
	if c.decodeError != nil {
		code, msg = c.decodeError(body)
	}
	if msg == "" {
		msg = truncate(strings.TrimSpace(string(body)))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	kind := exchange.KindExchange
	if status == http.StatusUnauthorized || status == http.StatusForbidden || c.authCodes[code] {
		kind = exchange.KindAuthentication
	}
	return &exchange.Error{
		Kind:       kind,
		Exchange:   c.exchange,
		Op:         op,
		StatusCode: status,
		Code:       code,
		Message:    msg,
	}
}

// APIError builds the error for a 2xx response whose envelope reports a
// failure code.
func (c *Client) APIError(op, code, msg string) error {
	e := &exchange.Error{
		Kind:     exchange.KindExchange,
		Exchange: c.exchange,
		Op:       op,
		Code:     code,
		Message:  msg,
	}
	switch {
	case c.authCodes[code]:
		e.Kind = exchange.KindAuthentication
	case c.rateLimitCodes[code]:
		e.StatusCode = http.StatusTooManyRequests
	}
	return e
}

// Decode unmarshals a response body; malformed payloads are exchange errors.
func (c *Client) Decode(op string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &exchange.Error{
			Kind:     exchange.KindExchange,
			Exchange: c.exchange,
			Op:       op,
			Message:  "failed to parse response: " + err.Error(),
			Err:      err,
		}
	}
	return nil
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
