package binance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"onecall/pkg/exchange/rest"
)

// clockOffset estimates local minus server time. The server stamped its
// clock somewhere inside the round trip, assumed to be the middle.
func clockOffset(ctx context.Context, serverTime func(context.Context) (int64, error)) (time.Duration, error) {
	before := time.Now()
	ms, err := serverTime(ctx)
	if err != nil {
		return 0, err
	}
	after := time.Now()

	rtt := after.Sub(before)
	local := before.Add(rtt / 2)
	return local.Sub(time.UnixMilli(ms)), nil
}

func syncTime(ctx context.Context, r *rest.Client, serverTime func(context.Context) (int64, error), apply func(ms int64)) (time.Duration, error) {
	offset, err := clockOffset(ctx, serverTime)
	if err != nil {
		return 0, wrap(r, "server time", err)
	}
	apply(offset.Milliseconds())
	r.Logger().Info("clock offset updated", zap.Duration("offset", offset))
	return offset, nil
}

// SyncTime measures the offset between the local clock and Binance and
// applies it to the timestamp of every signed request, so a skewed host
// clock does not trip recvWindow (-1021). Call it before the client is
// shared between goroutines.
func (c *Client) SyncTime(ctx context.Context) (time.Duration, error) {
	serverTime := func(ctx context.Context) (int64, error) {
		return c.api.NewServerTimeService().Do(ctx)
	}
	return syncTime(ctx, c.rest, serverTime, func(ms int64) { c.api.TimeOffset = ms })
}

func (c *SpotClient) SyncTime(ctx context.Context) (time.Duration, error) {
	serverTime := func(ctx context.Context) (int64, error) {
		return c.api.NewServerTimeService().Do(ctx)
	}
	return syncTime(ctx, c.rest, serverTime, func(ms int64) { c.api.TimeOffset = ms })
}
