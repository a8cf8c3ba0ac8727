package okx

import (
	"context"
	"net/url"

	"onecall/pkg/exchange"
)

type okxPosition struct {
	InstID  string `json:"instId"`
	Pos     string `json:"pos"`     // signed in net mode
	PosSide string `json:"posSide"` // long, short, net
	AvgPx   string `json:"avgPx"`
	MarkPx  string `json:"markPx"`
	LiqPx   string `json:"liqPx"`
	Upl     string `json:"upl"`
	Lever   string `json:"lever"`
	MgnMode string `json:"mgnMode"`
}

type okxBalance struct {
	TotalEq string `json:"totalEq"`
	Details []struct {
		Ccy      string `json:"ccy"`
		Eq       string `json:"eq"`
		AvailBal string `json:"availBal"`
		Upl      string `json:"upl"`
	} `json:"details"`
}

func (c *Client) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	params := url.Values{}
	params.Set("instType", instType)
	if symbol != "" {
		params.Set("instId", symbol)
	}

	var data []okxPosition
	if err := c.get(ctx, "positions", "/account/positions", params, true, &data); err != nil {
		return nil, err
	}

	p := exchange.NewParser(Name, "positions")
	positions := make([]exchange.Position, 0, len(data))
	for _, pos := range data {
		size := p.Dec(pos.Pos)
		if size.IsZero() {
			continue
		}

		side := exchange.ParseSide(pos.PosSide)
		if pos.PosSide == "net" || pos.PosSide == "" {
			side = exchange.SideBuy
			if size.IsNegative() {
				side = exchange.SideSell
			}
		}

		positions = append(positions, exchange.Position{
			Exchange:         Name,
			Symbol:           pos.InstID,
			Side:             side,
			Size:             size.Abs(),
			EntryPrice:       p.Dec(pos.AvgPx),
			MarkPrice:        p.Dec(pos.MarkPx),
			LiquidationPrice: p.Dec(pos.LiqPx),
			UnrealizedPnL:    p.Dec(pos.Upl),
			Leverage:         p.Dec(pos.Lever),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) Balances(ctx context.Context) ([]exchange.Balance, error) {
	var data []okxBalance
	if err := c.get(ctx, "balances", "/account/balance", nil, true, &data); err != nil {
		return nil, err
	}

	p := exchange.NewParser(Name, "balances")
	var balances []exchange.Balance
	for _, account := range data {
		for _, d := range account.Details {
			balances = append(balances, exchange.Balance{
				Exchange:      Name,
				Asset:         d.Ccy,
				Total:         p.Dec(d.Eq),
				Available:     p.Dec(d.AvailBal),
				UnrealizedPnL: p.Dec(d.Upl),
			})
		}
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}
