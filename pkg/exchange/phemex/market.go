package phemex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/rest"
)

// resolution in seconds
var resolutions = map[exchange.Interval]int{
	exchange.OneMinute:     60,
	exchange.FiveMinute:    300,
	exchange.FifteenMinute: 900,
	exchange.ThirtyMinute:  1800,
	exchange.OneHour:       3600,
	exchange.FourHour:      14400,
	exchange.OneDay:        86400,
	exchange.OneWeek:       604800,
	exchange.OneMonth:      2592000,
}

// kline/last accepts only these limits.
var klineLimits = []int{5, 10, 50, 100, 500, 1000}

// The market data endpoint uses a JSON-RPC style wrapper.
type mdResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Result struct {
		Book struct {
			Asks [][]string `json:"asks"`
			Bids [][]string `json:"bids"`
		} `json:"orderbook_p"`
		Symbol    string `json:"symbol"`
		Timestamp int64  `json:"timestamp"` // ns
	} `json:"result"`
}

func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	const op = "order book"
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, op, "symbol is required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.rest.Do(ctx, rest.Request{
		Op:     op,
		Method: http.MethodGet,
		Path:   "/md/v2/orderbook",
		Query:  params,
	})
	if err != nil {
		return nil, err
	}

	var res mdResponse
	if err := c.rest.Decode(op, body, &res); err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, c.rest.APIError(op, strconv.Itoa(res.Error.Code), res.Error.Message)
	}

	bids, asks := res.Result.Book.Bids, res.Result.Book.Asks
	if depth > 0 {
		if len(bids) > depth {
			bids = bids[:depth]
		}
		if len(asks) > depth {
			asks = asks[:depth]
		}
	}
	p := exchange.NewParser(Name, op)
	book := &exchange.OrderBook{
		Exchange: Name,
		Symbol:   symbol,
		Bids:     p.Levels(bids),
		Asks:     p.Levels(asks),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	if res.Result.Timestamp > 0 {
		book.Time = time.Unix(0, res.Result.Timestamp).UTC()
	}
	return book, nil
}

// Candles uses kline/list for an explicit range and kline/last otherwise.
func (c *Client) Candles(ctx context.Context, req exchange.CandleRequest) ([]exchange.Candle, error) {
	const op = "candles"
	if req.Symbol == "" {
		return nil, exchange.InvalidRequestError(Name, op, "symbol is required")
	}
	resolution, ok := resolutions[req.Interval]
	if !ok {
		return nil, exchange.InvalidRequestError(Name, op, "unsupported interval "+req.Interval.String())
	}

	limit := req.LimitOrDefault()
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("resolution", strconv.Itoa(resolution))

	path := "/exchange/public/md/v2/kline/last"
	if !req.Start.IsZero() || !req.End.IsZero() {
		path = "/exchange/public/md/v2/kline/list"
		end := req.End
		if end.IsZero() {
			end = time.Now()
		}
		start := req.Start
		if start.IsZero() {
			start = end.Add(-time.Duration(limit) * req.Interval.Duration())
		}
		params.Set("from", strconv.FormatInt(start.Unix(), 10))
		params.Set("to", strconv.FormatInt(end.Unix(), 10))
	} else {
		params.Set("limit", strconv.Itoa(klineLimit(limit)))
	}

	// rows: [timestamp, interval, lastClose, open, high, low, close, volume, turnover]
	var res struct {
		Rows [][]json.RawMessage `json:"rows"`
	}
	if _, err := c.get(ctx, op, path, params, false, &res); err != nil {
		return nil, err
	}

	candles := make([]exchange.Candle, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) < 8 {
			continue
		}
		var ts int64
		var open, high, low, closePx, volume exchange.Number
		for i, dst := range []interface{}{&ts, nil, nil, &open, &high, &low, &closePx, &volume} {
			if dst == nil {
				continue
			}
			if err := json.Unmarshal(row[i], dst); err != nil {
				return nil, c.rest.APIError(op, "", "malformed kline row: "+err.Error())
			}
		}
		openTime := time.Unix(ts, 0).UTC()
		candles = append(candles, exchange.Candle{
			OpenTime:  openTime,
			CloseTime: openTime.Add(req.Interval.Duration() - time.Millisecond),
			Open:      open.Decimal,
			High:      high.Decimal,
			Low:       low.Decimal,
			Close:     closePx.Decimal,
			Volume:    volume.Decimal,
		})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime.Before(candles[j].OpenTime) })
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func klineLimit(n int) int {
	for _, l := range klineLimits {
		if n <= l {
			return l
		}
	}
	return klineLimits[len(klineLimits)-1]
}
