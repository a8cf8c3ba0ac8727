package bybit

import (
	"context"
	"net/url"

	"onecall/pkg/exchange"
)

type positionInfo struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"` // Buy, Sell, "" when flat
	Size          string `json:"size"`
	AvgPrice      string `json:"avgPrice"`
	MarkPrice     string `json:"markPrice"`
	LiqPrice      string `json:"liqPrice"`
	UnrealisedPnl string `json:"unrealisedPnl"`
	Leverage      string `json:"leverage"`
}

type walletBalance struct {
	List []struct {
		AccountType string `json:"accountType"`
		Coin        []struct {
			Coin                string `json:"coin"`
			WalletBalance       string `json:"walletBalance"`
			AvailableToWithdraw string `json:"availableToWithdraw"`
			UnrealisedPnl       string `json:"unrealisedPnl"`
		} `json:"coin"`
	} `json:"list"`
}

// Positions returns non-empty linear positions.
func (c *Client) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	params := url.Values{}
	params.Set("category", category)
	if symbol != "" {
		params.Set("symbol", symbol)
	} else {
		params.Set("settleCoin", settleCoin)
	}

	var res struct {
		List []positionInfo `json:"list"`
	}
	if err := c.get(ctx, "positions", "/position/list", params, true, &res); err != nil {
		return nil, err
	}

	p := exchange.NewParser(Name, "positions")
	positions := make([]exchange.Position, 0, len(res.List))
	for _, pos := range res.List {
		size := p.Dec(pos.Size)
		if size.IsZero() {
			continue
		}
		positions = append(positions, exchange.Position{
			Exchange:         Name,
			Symbol:           pos.Symbol,
			Side:             exchange.ParseSide(pos.Side),
			Size:             size,
			EntryPrice:       p.Dec(pos.AvgPrice),
			MarkPrice:        p.Dec(pos.MarkPrice),
			LiquidationPrice: p.Dec(pos.LiqPrice),
			UnrealizedPnL:    p.Dec(pos.UnrealisedPnl),
			Leverage:         p.Dec(pos.Leverage),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}

// Balances reads the unified trading account.
func (c *Client) Balances(ctx context.Context) ([]exchange.Balance, error) {
	params := url.Values{}
	params.Set("accountType", "UNIFIED")

	var res walletBalance
	if err := c.get(ctx, "balances", "/account/wallet-balance", params, true, &res); err != nil {
		return nil, err
	}

	p := exchange.NewParser(Name, "balances")
	var balances []exchange.Balance
	for _, account := range res.List {
		for _, coin := range account.Coin {
			balances = append(balances, exchange.Balance{
				Exchange:      Name,
				Asset:         coin.Coin,
				Total:         p.Dec(coin.WalletBalance),
				Available:     p.Dec(coin.AvailableToWithdraw),
				UnrealizedPnL: p.Dec(coin.UnrealisedPnl),
			})
		}
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}
