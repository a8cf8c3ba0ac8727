package kucoin

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"onecall/pkg/exchange"
)

// granularity in minutes
var granularities = map[exchange.Interval]int{
	exchange.OneMinute:     1,
	exchange.FiveMinute:    5,
	exchange.FifteenMinute: 15,
	exchange.ThirtyMinute:  30,
	exchange.OneHour:       60,
	exchange.TwoHour:       120,
	exchange.FourHour:      240,
	exchange.EightHour:     480,
	exchange.TwelveHour:    720,
	exchange.OneDay:        1440,
	exchange.OneWeek:       10080,
}

const maxKlines = 500

type level2Snapshot struct {
	Symbol   string              `json:"symbol"`
	Sequence int64               `json:"sequence"`
	Asks     [][]exchange.Number `json:"asks"`
	Bids     [][]exchange.Number `json:"bids"`
	Ts       int64               `json:"ts"` // nanoseconds
}

// OrderBook fetches the full level 2 snapshot and cuts it to depth.
func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "order book", "symbol is required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)

	var snap level2Snapshot
	if err := c.request(ctx, "order book", http.MethodGet, "/api/v1/level2/snapshot", params, nil, false, &snap); err != nil {
		return nil, err
	}

	book := &exchange.OrderBook{
		Exchange: Name,
		Symbol:   symbol,
		Bids:     exchange.NumberLevels(snap.Bids, depth),
		Asks:     exchange.NumberLevels(snap.Asks, depth),
	}
	if snap.Ts > 0 {
		book.Time = time.Unix(0, snap.Ts).UTC()
	}
	return book, nil
}

// Candles returns klines oldest first, at most req.Limit of the most recent.
func (c *Client) Candles(ctx context.Context, req exchange.CandleRequest) ([]exchange.Candle, error) {
	if req.Symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "candles", "symbol is required")
	}
	granularity, ok := granularities[req.Interval]
	if !ok {
		return nil, exchange.InvalidRequestError(Name, "candles", "unsupported interval "+req.Interval.String())
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("granularity", strconv.Itoa(granularity))
	if !req.Start.IsZero() {
		params.Set("from", strconv.FormatInt(req.Start.UnixMilli(), 10))
	}
	if !req.End.IsZero() {
		params.Set("to", strconv.FormatInt(req.End.UnixMilli(), 10))
	}

	// rows: [time, open, high, low, close, volume], oldest first
	var rows [][]exchange.Number
	if err := c.request(ctx, "candles", http.MethodGet, "/api/v1/kline/query", params, nil, false, &rows); err != nil {
		return nil, err
	}

	limit := req.LimitOrDefault()
	if limit > maxKlines {
		limit = maxKlines
	}
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	candles := make([]exchange.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		open := exchange.Millis(row[0].IntPart())
		candles = append(candles, exchange.Candle{
			OpenTime:  open,
			CloseTime: open.Add(req.Interval.Duration() - time.Millisecond),
			Open:      row[1].Decimal,
			High:      row[2].Decimal,
			Low:       row[3].Decimal,
			Close:     row[4].Decimal,
			Volume:    row[5].Decimal,
		})
	}
	return candles, nil
}
