// Package api serves the exchange clients over HTTP for accounts whose keys
// are kept in the keystore.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"onecall/internal/api/dto"
	"onecall/internal/keystore"
	"onecall/pkg/exchange"
	"onecall/pkg/middleware"
	"onecall/pkg/onecall"
)

// KeyStore is the part of keystore.Service the handlers use.
type KeyStore interface {
	Save(ctx context.Context, account, exchangeName string, creds exchange.Credentials) error
	Credentials(ctx context.Context, account, exchangeName string) (exchange.Credentials, error)
	Delete(ctx context.Context, account, exchangeName string) error
}

// ClientFactory builds a client for a canonical exchange name.
type ClientFactory func(name string, creds exchange.Credentials) (exchange.Exchange, error)

// RegistryFactory builds clients through the onecall registry with opts.
func RegistryFactory(opts ...exchange.Option) ClientFactory {
	return func(name string, creds exchange.Credentials) (exchange.Exchange, error) {
		return onecall.New(name, creds, opts...)
	}
}

type Handler struct {
	keys    KeyStore
	clients ClientFactory
	timeout time.Duration
	logger  *zap.Logger
}

func NewHandler(keys KeyStore, clients ClientFactory, timeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = exchange.DefaultTimeout
	}
	return &Handler{keys: keys, clients: clients, timeout: timeout, logger: logger}
}

// StatusFor maps an error kind onto the HTTP status returned to callers.
func StatusFor(err error) int {
	var e *exchange.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case exchange.KindConfiguration, exchange.KindInvalidRequest:
		return http.StatusBadRequest
	case exchange.KindAuthentication:
		return http.StatusUnauthorized
	case exchange.KindNotSupported:
		return http.StatusNotImplemented
	case exchange.KindNetwork:
		return http.StatusGatewayTimeout
	case exchange.KindExchange:
		if e.RateLimited() {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	resp := middleware.ErrorResponse{Error: err.Error()}
	if kind := exchange.KindOf(err); kind != 0 {
		resp.Kind = kind.String()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	} else {
		h.logger.Info("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	middleware.WriteJSON(w, status, resp)
}

// target resolves the {exchange} path parameter and the caller's account.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (name, account string, ok bool) {
	name, known := onecall.Canonical(chi.URLParam(r, "exchange"))
	if !known {
		middleware.WriteError(w, http.StatusNotFound, "unknown exchange "+chi.URLParam(r, "exchange"))
		return "", "", false
	}
	account, ok = middleware.Account(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return "", "", false
	}
	return name, account, true
}

// client builds the caller's client for the requested exchange and bounds
// the call with the handler timeout.
func (h *Handler) client(w http.ResponseWriter, r *http.Request) (exchange.Exchange, context.Context, context.CancelFunc, bool) {
	name, account, ok := h.target(w, r)
	if !ok {
		return nil, nil, nil, false
	}

	creds, err := h.keys.Credentials(r.Context(), account, name)
	if errors.Is(err, keystore.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "no "+name+" keys stored for this account")
		return nil, nil, nil, false
	}
	if err != nil {
		h.writeError(w, r, err)
		return nil, nil, nil, false
	}

	ex, err := h.clients(name, creds)
	if err != nil {
		h.writeError(w, r, err)
		return nil, nil, nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return ex, ctx, cancel, true
}

func (h *Handler) Exchanges(w http.ResponseWriter, r *http.Request) {
	type venue struct {
		Name            string `json:"name"`
		NeedsPassphrase bool   `json:"needs_passphrase"`
	}
	names := onecall.Names()
	list := make([]venue, 0, len(names))
	for _, n := range names {
		list = append(list, venue{Name: n, NeedsPassphrase: onecall.NeedsPassphrase(n)})
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}

// SaveKeys validates the keys by building a client before storing them.
func (h *Handler) SaveKeys(w http.ResponseWriter, r *http.Request) {
	name, account, ok := h.target(w, r)
	if !ok {
		return
	}
	var req dto.SaveKeysRequest
	if !middleware.DecodeJSON(w, r, &req) {
		return
	}

	creds, err := exchange.NewCredentialsWithPassphrase(req.APIKey, req.SecretKey, req.Passphrase)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.clients(name, creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.keys.Save(r.Context(), account, name, creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.SaveKeysResponse{Exchange: name, APIKey: exchange.MaskKey(creds.Key())})
}

func (h *Handler) DeleteKeys(w http.ResponseWriter, r *http.Request) {
	name, account, ok := h.target(w, r)
	if !ok {
		return
	}
	err := h.keys.Delete(r.Context(), account, name)
	if errors.Is(err, keystore.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "no "+name+" keys stored for this account")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) OpenOrders(w http.ResponseWriter, r *http.Request) {
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	orders, err := ex.OpenOrders(ctx, r.URL.Query().Get("symbol"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.OrdersResponse{Exchange: ex.Name(), Orders: orders})
}

func (h *Handler) ClosedOrders(w http.ResponseWriter, r *http.Request) {
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	orders, err := ex.ClosedOrders(ctx, r.URL.Query().Get("symbol"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.OrdersResponse{Exchange: ex.Name(), Orders: orders})
}

func (h *Handler) Positions(w http.ResponseWriter, r *http.Request) {
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	positions, err := ex.Positions(ctx, r.URL.Query().Get("symbol"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.PositionsResponse{Exchange: ex.Name(), Positions: positions})
}

func (h *Handler) ClosePositions(w http.ResponseWriter, r *http.Request) {
	var req dto.ClosePositionsRequest
	if !middleware.DecodeJSON(w, r, &req) {
		return
	}
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	orders, err := onecall.ClosePositions(ctx, ex, req.Symbol)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.OrdersResponse{Exchange: ex.Name(), Orders: orders})
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	balances, err := ex.Balances(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.BalancesResponse{Exchange: ex.Name(), Balances: balances})
}

func (h *Handler) OrderBook(w http.ResponseWriter, r *http.Request) {
	depth, err := intParam(r, "depth")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	book, err := ex.OrderBook(ctx, r.URL.Query().Get("symbol"), depth)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) Candles(w http.ResponseWriter, r *http.Request) {
	req, err := candleRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	candles, err := ex.Candles(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.CandlesResponse{
		Exchange: ex.Name(),
		Symbol:   req.Symbol,
		Interval: req.Interval.String(),
		Candles:  candles,
	})
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceOrderRequest
	if !middleware.DecodeJSON(w, r, &req) {
		return
	}
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	order, err := ex.PlaceOrder(ctx, req.OrderRequest())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info("order placed",
		zap.String("exchange", ex.Name()), zap.String("symbol", order.Symbol), zap.String("id", order.ID))
	middleware.WriteJSON(w, http.StatusCreated, order)
}

func (h *Handler) CancelAll(w http.ResponseWriter, r *http.Request) {
	ex, ctx, cancel, ok := h.client(w, r)
	if !ok {
		return
	}
	defer cancel()

	if err := ex.CancelAll(ctx, r.URL.Query().Get("symbol")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

// timeParam accepts RFC 3339 or Unix milliseconds.
func timeParam(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC 3339 or Unix milliseconds")
	}
	return t, nil
}

func candleRequest(r *http.Request) (exchange.CandleRequest, error) {
	q := r.URL.Query()
	req := exchange.CandleRequest{Symbol: q.Get("symbol")}

	interval := q.Get("interval")
	if interval == "" {
		interval = "1h"
	}
	iv, err := exchange.ParseInterval(interval)
	if err != nil {
		return req, err
	}
	req.Interval = iv

	if req.Start, err = timeParam(r, "start"); err != nil {
		return req, err
	}
	if req.End, err = timeParam(r, "end"); err != nil {
		return req, err
	}
	if req.Limit, err = intParam(r, "limit"); err != nil {
		return req, err
	}
	return req, nil
}
