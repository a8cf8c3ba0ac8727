package bybit

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"onecall/pkg/exchange"
)

var intervals = map[exchange.Interval]string{
	exchange.OneMinute:     "1",
	exchange.ThreeMinute:   "3",
	exchange.FiveMinute:    "5",
	exchange.FifteenMinute: "15",
	exchange.ThirtyMinute:  "30",
	exchange.OneHour:       "60",
	exchange.TwoHour:       "120",
	exchange.FourHour:      "240",
	exchange.SixHour:       "360",
	exchange.TwelveHour:    "720",
	exchange.OneDay:        "D",
	exchange.OneWeek:       "W",
	exchange.OneMonth:      "M",
}

const maxKlineLimit = 1000

// OrderBook fetches a depth snapshot. Linear books go up to 500 levels.
func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "order book", "symbol is required")
	}
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)
	if depth > 0 {
		if depth > 500 {
			depth = 500
		}
		params.Set("limit", strconv.Itoa(depth))
	}

	var res struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
		Ts     int64      `json:"ts"`
	}
	if err := c.get(ctx, "order book", "/market/orderbook", params, false, &res); err != nil {
		return nil, err
	}

	p := exchange.NewParser(Name, "order book")
	book := &exchange.OrderBook{
		Exchange: Name,
		Symbol:   symbol,
		Bids:     p.Levels(res.Bids),
		Asks:     p.Levels(res.Asks),
		Time:     exchange.Millis(res.Ts),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return book, nil
}

// Candles returns klines oldest first.
func (c *Client) Candles(ctx context.Context, req exchange.CandleRequest) ([]exchange.Candle, error) {
	if req.Symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "candles", "symbol is required")
	}
	interval, ok := intervals[req.Interval]
	if !ok {
		return nil, exchange.InvalidRequestError(Name, "candles", "unsupported interval "+req.Interval.String())
	}

	limit := req.LimitOrDefault()
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", req.Symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if !req.Start.IsZero() {
		params.Set("start", strconv.FormatInt(req.Start.UnixMilli(), 10))
	}
	if !req.End.IsZero() {
		params.Set("end", strconv.FormatInt(req.End.UnixMilli(), 10))
	}

	// rows: [startTime, open, high, low, close, volume, turnover], newest first
	var res struct {
		List [][]string `json:"list"`
	}
	if err := c.get(ctx, "candles", "/market/kline", params, false, &res); err != nil {
		return nil, err
	}

	p := exchange.NewParser(Name, "candles")
	candles := make([]exchange.Candle, 0, len(res.List))
	for _, row := range res.List {
		if len(row) < 6 {
			continue
		}
		open := p.Millis(row[0])
		candles = append(candles, exchange.Candle{
			OpenTime:  open,
			CloseTime: open.Add(req.Interval.Duration() - time.Millisecond),
			Open:      p.Dec(row[1]),
			High:      p.Dec(row[2]),
			Low:       p.Dec(row[3]),
			Close:     p.Dec(row[4]),
			Volume:    p.Dec(row[5]),
		})
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	exchange.ReverseCandles(candles)
	return candles, nil
}
