package okx

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"onecall/pkg/exchange"
)

var bars = map[exchange.Interval]string{
	exchange.OneMinute:     "1m",
	exchange.ThreeMinute:   "3m",
	exchange.FiveMinute:    "5m",
	exchange.FifteenMinute: "15m",
	exchange.ThirtyMinute:  "30m",
	exchange.OneHour:       "1H",
	exchange.TwoHour:       "2H",
	exchange.FourHour:      "4H",
	exchange.SixHour:       "6Hutc",
	exchange.TwelveHour:    "12Hutc",
	exchange.OneDay:        "1Dutc",
	exchange.ThreeDay:      "3Dutc",
	exchange.OneWeek:       "1Wutc",
	exchange.OneMonth:      "1Mutc",
}

const (
	maxBookDepth    = 400
	maxCandlesLimit = 300
)

// OKXOrderBookResponse is the data element of /market/books.
type OKXOrderBookResponse struct {
	Asks [][]string `json:"asks"` // [price, size, deprecated, numOrders]
	Bids [][]string `json:"bids"` // [price, size, deprecated, numOrders]
	Ts   string     `json:"ts"`
}

func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "order book", "symbol is required")
	}
	params := url.Values{}
	params.Set("instId", symbol)
	if depth > 0 {
		if depth > maxBookDepth {
			depth = maxBookDepth
		}
		params.Set("sz", strconv.Itoa(depth))
	}

	var data []OKXOrderBookResponse
	if err := c.get(ctx, "order book", "/market/books", params, false, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, c.rest.APIError("order book", "", "empty order book for "+symbol)
	}

	p := exchange.NewParser(Name, "order book")
	book := &exchange.OrderBook{
		Exchange: Name,
		Symbol:   symbol,
		Bids:     p.Levels(data[0].Bids),
		Asks:     p.Levels(data[0].Asks),
		Time:     p.Millis(data[0].Ts),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return book, nil
}

// Candles returns klines oldest first. OKX pages backwards: "after" bounds the
// range from above and "before" from below.
func (c *Client) Candles(ctx context.Context, req exchange.CandleRequest) ([]exchange.Candle, error) {
	if req.Symbol == "" {
		return nil, exchange.InvalidRequestError(Name, "candles", "symbol is required")
	}
	bar, ok := bars[req.Interval]
	if !ok {
		return nil, exchange.InvalidRequestError(Name, "candles", "unsupported interval "+req.Interval.String())
	}

	limit := req.LimitOrDefault()
	if limit > maxCandlesLimit {
		limit = maxCandlesLimit
	}
	params := url.Values{}
	params.Set("instId", req.Symbol)
	params.Set("bar", bar)
	params.Set("limit", strconv.Itoa(limit))
	if !req.End.IsZero() {
		params.Set("after", strconv.FormatInt(req.End.UnixMilli(), 10))
	}
	if !req.Start.IsZero() {
		params.Set("before", strconv.FormatInt(req.Start.UnixMilli()-1, 10))
	}

	// rows: [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm], newest first
	var rows [][]string
	if err := c.get(ctx, "candles", "/market/candles", params, false, &rows); err != nil {
		return nil, err
	}

	p := exchange.NewParser(Name, "candles")
	candles := make([]exchange.Candle, 0, len(rows))
	for _, row := range rows {
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
