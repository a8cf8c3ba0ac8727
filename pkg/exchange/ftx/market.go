package ftx

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"onecall/pkg/exchange"
)

const maxBookDepth = 100

// FTX accepts 15, 60, 300, 900, 3600, 14400 and multiples of 86400 seconds.
var resolutions = map[exchange.Interval]int{
	exchange.OneMinute:     60,
	exchange.FiveMinute:    300,
	exchange.FifteenMinute: 900,
	exchange.OneHour:       3600,
	exchange.FourHour:      14400,
	exchange.OneDay:        86400,
	exchange.ThreeDay:      3 * 86400,
	exchange.OneWeek:       7 * 86400,
	exchange.OneMonth:      30 * 86400,
}

type ftxCandle struct {
	StartTime string          `json:"startTime"`
	Time      float64         `json:"time"` // ms
	Open      exchange.Number `json:"open"`
	High      exchange.Number `json:"high"`
	Low       exchange.Number `json:"low"`
	Close     exchange.Number `json:"close"`
	Volume    exchange.Number `json:"volume"`
}

func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	if symbol == "" {
		return nil, exchange.InvalidRequestError(c.venue.name, "order book", "symbol is required")
	}
	params := url.Values{}
	if depth > 0 {
		if depth > maxBookDepth {
			depth = maxBookDepth
		}
		params.Set("depth", strconv.Itoa(depth))
	}

	var result struct {
		Bids [][]exchange.Number `json:"bids"`
		Asks [][]exchange.Number `json:"asks"`
	}
	if err := c.request(ctx, "order book", http.MethodGet, "/markets/"+symbol+"/orderbook", params, nil, false, &result); err != nil {
		return nil, err
	}

	return &exchange.OrderBook{
		Exchange: c.venue.name,
		Symbol:   symbol,
		Bids:     exchange.NumberLevels(result.Bids, 0),
		Asks:     exchange.NumberLevels(result.Asks, 0),
		Time:     time.Now().UTC(),
	}, nil
}

func (c *Client) Candles(ctx context.Context, req exchange.CandleRequest) ([]exchange.Candle, error) {
	if req.Symbol == "" {
		return nil, exchange.InvalidRequestError(c.venue.name, "candles", "symbol is required")
	}
	resolution, ok := resolutions[req.Interval]
	if !ok {
		return nil, exchange.InvalidRequestError(c.venue.name, "candles", "unsupported interval "+req.Interval.String())
	}

	params := url.Values{}
	params.Set("resolution", strconv.Itoa(resolution))
	if !req.Start.IsZero() {
		params.Set("start_time", strconv.FormatInt(req.Start.Unix(), 10))
	}
	if !req.End.IsZero() {
		params.Set("end_time", strconv.FormatInt(req.End.Unix(), 10))
	}

	var result []ftxCandle
	if err := c.request(ctx, "candles", http.MethodGet, "/markets/"+req.Symbol+"/candles", params, nil, false, &result); err != nil {
		return nil, err
	}

	if limit := req.LimitOrDefault(); len(result) > limit {
		result = result[len(result)-limit:]
	}
	candles := make([]exchange.Candle, 0, len(result))
	for _, k := range result {
		open := exchange.Millis(int64(k.Time))
		if t, err := time.Parse(time.RFC3339Nano, k.StartTime); err == nil {
			open = t.UTC()
		}
		candles = append(candles, exchange.Candle{
			OpenTime:  open,
			CloseTime: open.Add(req.Interval.Duration() - time.Millisecond),
			Open:      k.Open.Decimal,
			High:      k.High.Decimal,
			Low:       k.Low.Decimal,
			Close:     k.Close.Decimal,
			Volume:    k.Volume.Decimal,
		})
	}
	return candles, nil
}
