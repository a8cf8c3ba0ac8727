package kucoin

import (
	"context"
	"net/http"
	"net/url"

	"onecall/pkg/exchange"
)

const settleCurrency = "USDT"

type kucoinPosition struct {
	Symbol           string          `json:"symbol"`
	CurrentQty       exchange.Number `json:"currentQty"` // signed contract count
	AvgEntryPrice    exchange.Number `json:"avgEntryPrice"`
	MarkPrice        exchange.Number `json:"markPrice"`
	LiquidationPrice exchange.Number `json:"liquidationPrice"`
	UnrealisedPnl    exchange.Number `json:"unrealisedPnl"`
	RealLeverage     exchange.Number `json:"realLeverage"`
	IsOpen           bool            `json:"isOpen"`
}

type accountOverview struct {
	AccountEquity    exchange.Number `json:"accountEquity"`
	UnrealisedPNL    exchange.Number `json:"unrealisedPNL"`
	MarginBalance    exchange.Number `json:"marginBalance"`
	AvailableBalance exchange.Number `json:"availableBalance"`
	Currency         string          `json:"currency"`
}

// Positions reads a single position when symbol is set, otherwise all of them.
func (c *Client) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	var list []kucoinPosition
	if symbol != "" {
		params := url.Values{}
		params.Set("symbol", symbol)
		var p kucoinPosition
		if err := c.request(ctx, "positions", http.MethodGet, "/api/v1/position", params, nil, true, &p); err != nil {
			return nil, err
		}
		list = append(list, p)
	} else {
		if err := c.request(ctx, "positions", http.MethodGet, "/api/v1/positions", nil, nil, true, &list); err != nil {
			return nil, err
		}
	}

	positions := make([]exchange.Position, 0, len(list))
	for _, p := range list {
		qty := p.CurrentQty.Decimal
		if qty.IsZero() {
			continue
		}
		side := exchange.SideBuy
		if qty.IsNegative() {
			side = exchange.SideSell
		}
		positions = append(positions, exchange.Position{
			Exchange:         Name,
			Symbol:           p.Symbol,
			Side:             side,
			Size:             qty.Abs(),
			EntryPrice:       p.AvgEntryPrice.Decimal,
			MarkPrice:        p.MarkPrice.Decimal,
			LiquidationPrice: p.LiquidationPrice.Decimal,
			UnrealizedPnL:    p.UnrealisedPnl.Decimal,
			Leverage:         p.RealLeverage.Decimal,
		})
	}
	return positions, nil
}

// Balances returns the USDT futures account overview.
func (c *Client) Balances(ctx context.Context) ([]exchange.Balance, error) {
	params := url.Values{}
	params.Set("currency", settleCurrency)

	var overview accountOverview
	if err := c.request(ctx, "balances", http.MethodGet, "/api/v1/account-overview", params, nil, true, &overview); err != nil {
		return nil, err
	}

	asset := overview.Currency
	if asset == "" {
		asset = settleCurrency
	}
	return []exchange.Balance{{
		Exchange:      Name,
		Asset:         asset,
		Total:         overview.AccountEquity.Decimal,
		Available:     overview.AvailableBalance.Decimal,
		UnrealizedPnL: overview.UnrealisedPNL.Decimal,
	}}, nil
}
