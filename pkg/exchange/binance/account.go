package binance

import (
	"context"

	"github.com/shopspring/decimal"

	"onecall/pkg/exchange"
)

// Positions reads positionRisk. Binance lists every symbol, open or not, so
// flat ones are dropped. In one-way mode the sign of positionAmt is the side.
func (c *Client) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	svc := c.api.NewGetPositionRiskService()
	if symbol != "" {
		svc.Symbol(symbol)
	}
	list, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "positions", err)
	}

	p := exchange.NewParser(Name, "positions")
	positions := make([]exchange.Position, 0, len(list))
	for _, pos := range list {
		if pos == nil {
			continue
		}
		amt := p.Dec(pos.PositionAmt)
		if amt.IsZero() {
			continue
		}
		side := exchange.SideBuy
		if pos.PositionSide == "SHORT" || (pos.PositionSide != "LONG" && amt.IsNegative()) {
			side = exchange.SideSell
		}
		positions = append(positions, exchange.Position{
			Exchange:         Name,
			Symbol:           pos.Symbol,
			Side:             side,
			Size:             amt.Abs(),
			EntryPrice:       p.Dec(pos.EntryPrice),
			MarkPrice:        p.Dec(pos.MarkPrice),
			LiquidationPrice: p.Dec(pos.LiquidationPrice),
			UnrealizedPnL:    p.Dec(pos.UnRealizedProfit),
			Leverage:         p.Dec(pos.Leverage),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) Balances(ctx context.Context) ([]exchange.Balance, error) {
	list, err := c.api.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "balances", err)
	}

	p := exchange.NewParser(Name, "balances")
	balances := make([]exchange.Balance, 0, len(list))
	for _, b := range list {
		if b == nil {
			continue
		}
		balances = append(balances, exchange.Balance{
			Exchange:      Name,
			Asset:         b.Asset,
			Total:         p.Dec(b.Balance),
			Available:     p.Dec(b.AvailableBalance),
			UnrealizedPnL: p.Dec(b.CrossUnPnl),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

func (c *SpotClient) Positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	return nil, exchange.NotSupportedError(SpotName, "positions")
}

// Balances lists assets with a non-zero free or locked amount.
func (c *SpotClient) Balances(ctx context.Context) ([]exchange.Balance, error) {
	account, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "balances", err)
	}

	p := exchange.NewParser(SpotName, "balances")
	balances := make([]exchange.Balance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, locked := p.Dec(b.Free), p.Dec(b.Locked)
		total := free.Add(locked)
		if total.IsZero() {
			continue
		}
		balances = append(balances, exchange.Balance{
			Exchange:      SpotName,
			Asset:         b.Asset,
			Total:         total,
			Available:     free,
			UnrealizedPnL: decimal.Zero,
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}
