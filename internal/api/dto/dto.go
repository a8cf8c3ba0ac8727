package dto

import (
	"github.com/shopspring/decimal"

	"onecall/pkg/exchange"
)

type SaveKeysRequest struct {
	APIKey     string `json:"api_key" validate:"required,printascii"`
	SecretKey  string `json:"secret_key" validate:"required,printascii"`
	Passphrase string `json:"passphrase" validate:"omitempty,printascii"`
}

type SaveKeysResponse struct {
	Exchange string `json:"exchange"`
	APIKey   string `json:"api_key"` // masked
}

// PlaceOrderRequest is the body of POST /api/{exchange}/orders. Quantity and
// price accept JSON numbers or numeric strings.
type PlaceOrderRequest struct {
	Symbol        string          `json:"symbol" validate:"required"`
	Side          string          `json:"side" validate:"required,oneof=buy sell"`
	Type          string          `json:"type" validate:"required,oneof=market limit"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TimeInForce   string          `json:"time_in_force" validate:"omitempty,oneof=GTC IOC FOK"`
	ClientOrderID string          `json:"client_order_id" validate:"omitempty,max=36"`
	ReduceOnly    bool            `json:"reduce_only"`
	PostOnly      bool            `json:"post_only"`
}

func (r PlaceOrderRequest) OrderRequest() exchange.OrderRequest {
	return exchange.OrderRequest{
		Symbol:        r.Symbol,
		Side:          exchange.Side(r.Side),
		Type:          exchange.OrderType(r.Type),
		Quantity:      r.Quantity,
		Price:         r.Price,
		TimeInForce:   exchange.TimeInForce(r.TimeInForce),
		ClientOrderID: r.ClientOrderID,
		ReduceOnly:    r.ReduceOnly,
		PostOnly:      r.PostOnly,
	}
}

type ClosePositionsRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type OrdersResponse struct {
	Exchange string           `json:"exchange"`
	Orders   []exchange.Order `json:"orders"`
}

type PositionsResponse struct {
	Exchange  string              `json:"exchange"`
	Positions []exchange.Position `json:"positions"`
}

type BalancesResponse struct {
	Exchange string             `json:"exchange"`
	Balances []exchange.Balance `json:"balances"`
}

type CandlesResponse struct {
	Exchange string            `json:"exchange"`
	Symbol   string            `json:"symbol"`
	Interval string            `json:"interval"`
	Candles  []exchange.Candle `json:"candles"`
}

type AuthRequest struct {
	Account  string `json:"account" validate:"required,min=3,max=64,printascii"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AuthResponse struct {
	Account string `json:"account"`
	Token   string `json:"token,omitempty"`
}
