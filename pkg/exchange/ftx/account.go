package ftx

import (
	"context"
	"net/http"
	"net/url"

	"onecall/pkg/exchange"
)

type ftxPosition struct {
	Future                    string          `json:"future"`
	Side                      string          `json:"side"`
	Size                      exchange.Number `json:"size"`
	NetSize                   exchange.Number `json:"netSize"`
	EntryPrice                exchange.Number `json:"entryPrice"`
	RecentAverageOpenPrice    exchange.Number `json:"recentAverageOpenPrice"`
	EstimatedLiquidationPrice exchange.Number `json:"estimatedLiquidationPrice"`
	UnrealizedPnl             exchange.Number `json:"unrealizedPnl"`
}

type ftxBalance struct {
	Coin  string          `json:"coin"`
	Free  exchange.Number `json:"free"`
	Total exchange.Number `json:"total"`
}

func (c *Client) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	params := url.Values{}
	params.Set("showAvgPrice", "true")

	var result []ftxPosition
	if err := c.request(ctx, "positions", http.MethodGet, "/positions", params, nil, true, &result); err != nil {
		return nil, err
	}

	positions := make([]exchange.Position, 0, len(result))
	for _, p := range result {
		if p.Size.IsZero() || (symbol != "" && p.Future != symbol) {
			continue
		}
		entry := p.RecentAverageOpenPrice.Decimal
		if entry.IsZero() {
			entry = p.EntryPrice.Decimal
		}
		positions = append(positions, exchange.Position{
			Exchange:         c.venue.name,
			Symbol:           p.Future,
			Side:             exchange.ParseSide(p.Side),
			Size:             p.Size.Abs(),
			EntryPrice:       entry,
			LiquidationPrice: p.EstimatedLiquidationPrice.Decimal,
			UnrealizedPnL:    p.UnrealizedPnl.Decimal,
		})
	}
	return positions, nil
}

func (c *Client) Balances(ctx context.Context) ([]exchange.Balance, error) {
	var result []ftxBalance
	if err := c.request(ctx, "balances", http.MethodGet, "/wallet/balances", nil, nil, true, &result); err != nil {
		return nil, err
	}

	balances := make([]exchange.Balance, 0, len(result))
	for _, b := range result {
		balances = append(balances, exchange.Balance{
			Exchange:  c.venue.name,
			Asset:     b.Coin,
			Total:     b.Total.Decimal,
			Available: b.Free.Decimal,
		})
	}
	return balances, nil
}
