package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/shopspring/decimal"

	"onecall/pkg/exchange"
	"onecall/pkg/jwt"
	"onecall/pkg/onecall"
)

func printJSON(e *env, v interface{}) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func side(s exchange.Side) aurora.Value {
	if s == exchange.SideBuy {
		return aurora.Green(string(s))
	}
	return aurora.Red(string(s))
}

func pnl(d decimal.Decimal) aurora.Value {
	if d.IsNegative() {
		return aurora.Red(d.String())
	}
	return aurora.Green(d.String())
}

func printOrders(e *env, v *venueFlags, orders []exchange.Order) error {
	if v.json {
		return printJSON(e, orders)
	}
	if len(orders) == 0 {
		fmt.Fprintln(e.out, aurora.Faint("no orders"))
		return nil
	}
	for _, o := range orders {
		fmt.Fprintf(e.out, "%s %-12s %-4s %-6s %s @ %s filled %s status %s\n",
			aurora.Bold(o.ID), o.Symbol, side(o.Side), o.Type, o.Quantity, o.Price, o.FilledQty, aurora.Cyan(string(o.Status)))
	}
	return nil
}

func openOrders(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("open-orders")
	if err := v.parse(args); err != nil {
		return err
	}
	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	orders, err := ex.OpenOrders(ctx, v.symbol)
	if err != nil {
		return err
	}
	return printOrders(e, v, orders)
}

func closedOrders(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("closed-orders")
	if err := v.parse(args); err != nil {
		return err
	}
	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	orders, err := ex.ClosedOrders(ctx, v.symbol)
	if err != nil {
		return err
	}
	return printOrders(e, v, orders)
}

func positions(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("positions")
	if err := v.parse(args); err != nil {
		return err
	}
	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	list, err := ex.Positions(ctx, v.symbol)
	if err != nil {
		return err
	}
	if v.json {
		return printJSON(e, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(e.out, aurora.Faint("no open positions"))
		return nil
	}
	for _, p := range list {
		fmt.Fprintf(e.out, "%-12s %-4s size %s entry %s mark %s liq %s pnl %s\n",
			aurora.Bold(p.Symbol), side(p.Side), p.Size, p.EntryPrice, p.MarkPrice, p.LiquidationPrice, pnl(p.UnrealizedPnL))
	}
	return nil
}

func closePositions(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("close-positions")
	if err := v.parse(args); err != nil {
		return err
	}
	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	orders, err := onecall.ClosePositions(ctx, ex, v.symbol)
	if perr := printOrders(e, v, orders); perr != nil {
		return perr
	}
	return err
}

func balances(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("balances")
	if err := v.parse(args); err != nil {
		return err
	}
	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	list, err := ex.Balances(ctx)
	if err != nil {
		return err
	}
	if v.json {
		return printJSON(e, list)
	}
	for _, b := range list {
		fmt.Fprintf(e.out, "%-8s total %s available %s upnl %s\n",
			aurora.Bold(b.Asset), aurora.Yellow(b.Total.String()), b.Available, pnl(b.UnrealizedPnL))
	}
	return nil
}

func orderBook(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("orderbook")
	depth := v.fs.Int("depth", 10, "levels per side")
	if err := v.parse(args); err != nil {
		return err
	}
	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	book, err := ex.OrderBook(ctx, v.symbol, *depth)
	if err != nil {
		return err
	}
	if v.json {
		return printJSON(e, book)
	}

	fmt.Fprintf(e.out, "%s %s at %s\n", aurora.Bold(book.Exchange), aurora.Bold(book.Symbol), book.Time.Format(time.RFC3339Nano))
	// asks from the top of the book down to the spread
	for i := len(book.Asks) - 1; i >= 0; i-- {
		fmt.Fprintf(e.out, "  %s  %s\n", aurora.Red(book.Asks[i].Price.String()), book.Asks[i].Quantity)
	}
	fmt.Fprintln(e.out, "  ----")
	for _, l := range book.Bids {
		fmt.Fprintf(e.out, "  %s  %s\n", aurora.Green(l.Price.String()), l.Quantity)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

func candles(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("candles")
	interval := v.fs.String("interval", "1h", "kline interval (1m ... 1M)")
	start := v.fs.String("start", "", "start time, RFC 3339 or Unix ms")
	end := v.fs.String("end", "", "end time, RFC 3339 or Unix ms")
	limit := v.fs.Int("limit", 0, "number of candles")
	if err := v.parse(args); err != nil {
		return err
	}

	req := exchange.CandleRequest{Symbol: v.symbol, Limit: *limit}
	var err error
	if req.Interval, err = exchange.ParseInterval(*interval); err != nil {
		return err
	}
	if req.Start, err = parseTime(*start); err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if req.End, err = parseTime(*end); err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}

	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	list, err := ex.Candles(ctx, req)
	if err != nil {
		return err
	}
	if v.json {
		return printJSON(e, list)
	}
	for _, c := range list {
		colour := aurora.Green
		if c.Close.LessThan(c.Open) {
			colour = aurora.Red
		}
		fmt.Fprintf(e.out, "%s o %s h %s l %s c %s v %s\n",
			c.OpenTime.Format("2006-01-02 15:04"), c.Open, c.High, c.Low, colour(c.Close.String()), c.Volume)
	}
	return nil
}

func placeOrder(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("order")
	sideFlag := v.fs.String("side", "", "buy or sell")
	qty := v.fs.String("qty", "", "quantity")
	price := v.fs.String("price", "", "limit price; omit for a market order")
	tif := v.fs.String("tif", "", "GTC, IOC or FOK")
	clientID := v.fs.String("client-id", "", "client order id")
	reduceOnly := v.fs.Bool("reduce-only", false, "only reduce a position")
	postOnly := v.fs.Bool("post-only", false, "reject if the order would take liquidity")
	if err := v.parse(args); err != nil {
		return err
	}

	req := exchange.OrderRequest{
		Symbol:        v.symbol,
		Side:          exchange.ParseSide(*sideFlag),
		Type:          exchange.OrderTypeMarket,
		TimeInForce:   exchange.TimeInForce(*tif),
		ClientOrderID: *clientID,
		ReduceOnly:    *reduceOnly,
		PostOnly:      *postOnly,
	}
	var err error
	if req.Quantity, err = decimal.NewFromString(*qty); err != nil {
		return fmt.Errorf("invalid -qty %q", *qty)
	}
	if *price != "" {
		if req.Price, err = decimal.NewFromString(*price); err != nil {
			return fmt.Errorf("invalid -price %q", *price)
		}
		req.Type = exchange.OrderTypeLimit
	}

	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	order, err := ex.PlaceOrder(ctx, req)
	if err != nil {
		return err
	}
	return printOrders(e, v, []exchange.Order{*order})
}

func cancelAll(ctx context.Context, e *env, args []string) error {
	v := newVenueFlags("cancel-all")
	if err := v.parse(args); err != nil {
		return err
	}
	ex, err := e.client(ctx, v.exchange)
	if err != nil {
		return err
	}
	if err := ex.CancelAll(ctx, v.symbol); err != nil {
		return err
	}
	fmt.Fprintln(e.out, aurora.Green("cancelled all open orders on "+v.symbol))
	return nil
}

func listExchanges(ctx context.Context, e *env, args []string) error {
	for _, name := range onecall.Names() {
		if onecall.NeedsPassphrase(name) {
			fmt.Fprintf(e.out, "%s %s\n", aurora.Bold(name), aurora.Faint("(passphrase)"))
		} else {
			fmt.Fprintln(e.out, aurora.Bold(name))
		}
	}
	return nil
}

// issueToken signs a gateway token for an account with JWT_SECRET.
func issueToken(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	account := fs.String("account", "", "account the token authenticates")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "lifetime, 0 for none")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *account == "" {
		return fmt.Errorf("token: -account is required")
	}
	if e.cfg.JWTSecret == "" {
		return fmt.Errorf("token: JWT_SECRET is not set")
	}
	token, err := jwt.GenerateToken(e.cfg.JWTSecret, *account, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, token)
	return nil
}
