package phemex

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"onecall/pkg/exchange"
)

const settleCurrency = "USDT"

type accountPositions struct {
	Account struct {
		Currency           string          `json:"currency"`
		AccountBalanceRv   exchange.Number `json:"accountBalanceRv"`
		TotalUsedBalanceRv exchange.Number `json:"totalUsedBalanceRv"`
	} `json:"account"`
	Positions []struct {
		Symbol             string          `json:"symbol"`
		Side               string          `json:"side"` // Buy, Sell, None
		PosSide            string          `json:"posSide"`
		SizeRq             exchange.Number `json:"sizeRq"`
		AvgEntryPriceRp    exchange.Number `json:"avgEntryPriceRp"`
		MarkPriceRp        exchange.Number `json:"markPriceRp"`
		LiquidationPriceRp exchange.Number `json:"liquidationPriceRp"`
		UnRealisedPnlRv    exchange.Number `json:"unRealisedPnlRv"`
		LeverageRr         exchange.Number `json:"leverageRr"`
	} `json:"positions"`
}

func (c *Client) accountPositions(ctx context.Context, op string) (*accountPositions, error) {
	params := url.Values{}
	params.Set("currency", settleCurrency)

	var res accountPositions
	if _, err := c.get(ctx, op, "/g-accounts/accountPositions", params, true, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Positions returns open USDT positions, optionally filtered by symbol.
func (c *Client) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	res, err := c.accountPositions(ctx, "positions")
	if err != nil {
		return nil, err
	}

	positions := make([]exchange.Position, 0, len(res.Positions))
	for _, p := range res.Positions {
		if p.SizeRq.IsZero() || (symbol != "" && p.Symbol != symbol) {
			continue
		}
		positions = append(positions, exchange.Position{
			Exchange:         Name,
			Symbol:           p.Symbol,
			Side:             exchange.ParseSide(p.Side),
			Size:             p.SizeRq.Abs(),
			EntryPrice:       p.AvgEntryPriceRp.Decimal,
			MarkPrice:        p.MarkPriceRp.Decimal,
			LiquidationPrice: p.LiquidationPriceRp.Decimal,
			UnrealizedPnL:    p.UnRealisedPnlRv.Decimal,
			Leverage:         p.LeverageRr.Abs(),
		})
	}
	return positions, nil
}

// Balances reports the USDT margin account; used balance is margin held by
// positions and orders.
func (c *Client) Balances(ctx context.Context) ([]exchange.Balance, error) {
	res, err := c.accountPositions(ctx, "balances")
	if err != nil {
		return nil, err
	}

	upnl := decimal.Zero
	for _, p := range res.Positions {
		upnl = upnl.Add(p.UnRealisedPnlRv.Decimal)
	}

	asset := res.Account.Currency
	if asset == "" {
		asset = settleCurrency
	}
	total := res.Account.AccountBalanceRv.Decimal
	return []exchange.Balance{{
		Exchange:      Name,
		Asset:         asset,
		Total:         total,
		Available:     total.Sub(res.Account.TotalUsedBalanceRv.Decimal),
		UnrealizedPnL: upnl,
	}}, nil
}
