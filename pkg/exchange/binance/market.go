package binance

import (
	"context"
	"time"

	"onecall/pkg/exchange"
)

const (
	maxKlines     = 1500
	maxSpotKlines = 1000
)

// depthLimits are the only limits the depth endpoints accept.
var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000}

// bookLimit rounds depth up to an accepted limit. Zero leaves the venue default.
func bookLimit(depth int) int {
	if depth <= 0 {
		return 0
	}
	for _, l := range depthLimits {
		if depth <= l {
			return l
		}
	}
	return depthLimits[len(depthLimits)-1]
}

func level(p *exchange.Parser, price, qty string) exchange.PriceLevel {
	return exchange.PriceLevel{Price: p.Dec(price), Quantity: p.Dec(qty)}
}

func trim(levels []exchange.PriceLevel, depth int) []exchange.PriceLevel {
	if depth > 0 && len(levels) > depth {
		return levels[:depth]
	}
	return levels
}

func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "order book", "symbol is required")
	}
	svc := c.api.NewDepthService().Symbol(symbol)
	if limit := bookLimit(depth); limit > 0 {
		svc.Limit(limit)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "order book", err)
	}

	p := exchange.NewParser(Name, "order book")
	book := &exchange.OrderBook{
		Exchange: Name,
		Symbol:   symbol,
		Bids:     make([]exchange.PriceLevel, 0, len(resp.Bids)),
		Asks:     make([]exchange.PriceLevel, 0, len(resp.Asks)),
		Time:     exchange.Millis(resp.Time),
	}
	for _, b := range resp.Bids {
		book.Bids = append(book.Bids, level(p, b.Price, b.Quantity))
	}
	for _, a := range resp.Asks {
		book.Asks = append(book.Asks, level(p, a.Price, a.Quantity))
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	book.Bids, book.Asks = trim(book.Bids, depth), trim(book.Asks, depth)
	return book, nil
}

// OrderBook on spot carries no timestamp; Time is the local receipt time.
func (c *SpotClient) OrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(SpotName, "order book", "symbol is required")
	}
	svc := c.api.NewDepthService().Symbol(symbol)
	if limit := bookLimit(depth); limit > 0 {
		svc.Limit(limit)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "order book", err)
	}

	p := exchange.NewParser(SpotName, "order book")
	book := &exchange.OrderBook{
		Exchange: SpotName,
		Symbol:   symbol,
		Bids:     make([]exchange.PriceLevel, 0, len(resp.Bids)),
		Asks:     make([]exchange.PriceLevel, 0, len(resp.Asks)),
		Time:     time.Now().UTC(),
	}
	for _, b := range resp.Bids {
		book.Bids = append(book.Bids, level(p, b.Price, b.Quantity))
	}
	for _, a := range resp.Asks {
		book.Asks = append(book.Asks, level(p, a.Price, a.Quantity))
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	book.Bids, book.Asks = trim(book.Bids, depth), trim(book.Asks, depth)
	return book, nil
}

type kline struct {
	openTime, closeTime                 int64
	open, high, low, closePrice, volume string
}

func candleRange(venue string, req exchange.CandleRequest, maxLimit int) (int, error) {
	if req.Symbol == "" {
		return 0, exchange.InvalidRequestError(venue, "candles", "symbol is required")
	}
	if !req.Interval.Valid() {
		return 0, exchange.InvalidRequestError(venue, "candles", "unsupported interval "+req.Interval.String())
	}
	limit := req.LimitOrDefault()
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

func toCandles(venue string, rows []kline) ([]exchange.Candle, error) {
	p := exchange.NewParser(venue, "candles")
	candles := make([]exchange.Candle, 0, len(rows))
	for _, k := range rows {
		candles = append(candles, exchange.Candle{
			OpenTime:  exchange.Millis(k.openTime),
			CloseTime: exchange.Millis(k.closeTime),
			Open:      p.Dec(k.open),
			High:      p.Dec(k.high),
			Low:       p.Dec(k.low),
			Close:     p.Dec(k.closePrice),
			Volume:    p.Dec(k.volume),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return candles, nil
}

// Candles: Binance uses the same interval notation as exchange.Interval.
func (c *Client) Candles(ctx context.Context, req exchange.CandleRequest) ([]exchange.Candle, error) {
	limit, err := candleRange(Name, req, maxKlines)
	if err != nil {
		return nil, err
	}
	svc := c.api.NewKlinesService().Symbol(req.Symbol).Interval(req.Interval.String()).Limit(limit)
	if !req.Start.IsZero() {
		svc.StartTime(req.Start.UnixMilli())
	}
	if !req.End.IsZero() {
		svc.EndTime(req.End.UnixMilli())
	}
	list, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "candles", err)
	}

	rows := make([]kline, 0, len(list))
	for _, k := range list {
		rows = append(rows, kline{k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume})
	}
	return toCandles(Name, rows)
}

func (c *SpotClient) Candles(ctx context.Context, req exchange.CandleRequest) ([]exchange.Candle, error) {
	limit, err := candleRange(SpotName, req, maxSpotKlines)
	if err != nil {
		return nil, err
	}
	svc := c.api.NewKlinesService().Symbol(req.Symbol).Interval(req.Interval.String()).Limit(limit)
	if !req.Start.IsZero() {
		svc.StartTime(req.Start.UnixMilli())
	}
	if !req.End.IsZero() {
		svc.EndTime(req.End.UnixMilli())
	}
	list, err := svc.Do(ctx)
	if err != nil {
		return nil, wrap(c.rest, "candles", err)
	}

	rows := make([]kline, 0, len(list))
	for _, k := range list {
		rows = append(rows, kline{k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume})
	}
	return toCandles(SpotName, rows)
}
