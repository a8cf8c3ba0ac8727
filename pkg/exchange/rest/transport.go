package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"onecall/internal/metrics"
	"onecall/pkg/exchange"
)

// OpFunc names the operation behind an outgoing request for errors and metrics.
type OpFunc func(req *http.Request) string

// HTTPClient returns an *http.Client for third-party SDKs. Requests sent
// through it pass the same limiter and circuit breaker as Do, and responses
// with status >= 400 are turned into *exchange.Error before the SDK sees them.
// Transport failures come back wrapped in *url.Error by net/http; errors.As
// still finds the *exchange.Error inside.
func (c *Client) HTTPClient(op OpFunc) *http.Client {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if op == nil {
		op = func(req *http.Request) string { return req.URL.Path }
	}
	return &http.Client{
		Transport: &guardedTransport{c: c, base: base, op: op},
		Timeout:   c.http.Timeout,
	}
}

type guardedTransport struct {
	c    *Client
	base http.RoundTripper
	op   OpFunc
}

func (t *guardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := t.c
	op := t.op(req)

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, c.countError(exchange.NetworkError(c.exchange, op, err))
		}
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		start := time.Now()
		resp, err := t.base.RoundTrip(req)
		duration := time.Since(start)
		metrics.ExchangeRequestDuration.WithLabelValues(c.exchange, op).Observe(duration.Seconds())
		if err != nil {
			metrics.ExchangeRequestsTotal.WithLabelValues(c.exchange, op, "error").Inc()
			return nil, exchange.NetworkError(c.exchange, op, err)
		}

		metrics.ExchangeRequestsTotal.WithLabelValues(c.exchange, op, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Debug("request completed",
			zap.String("op", op),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("took", duration))

		if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return nil, exchange.NetworkError(c.exchange, op, fmt.Errorf("failed to read response: %w", err))
		}
		return nil, c.statusError(op, resp.StatusCode, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = exchange.NetworkError(c.exchange, op, err)
		}
		return nil, c.countError(err)
	}
	return result.(*http.Response), nil
}

func (c *Client) countError(err error) error {
	metrics.ExchangeErrorsTotal.WithLabelValues(c.exchange, exchange.KindOf(err).String()).Inc()
	return err
}
