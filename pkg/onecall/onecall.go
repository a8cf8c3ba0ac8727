// Package onecall selects an exchange client by name.
//
//	creds, _ := exchange.NewCredentials(key, secret)
//	ex, err := onecall.New("bybit", creds, exchange.WithTimeout(10*time.Second))
//	orders, err := ex.OpenOrders(ctx, "BTCUSDT")
package onecall

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"onecall/pkg/exchange"
	"onecall/pkg/exchange/binance"
	"onecall/pkg/exchange/bybit"
	"onecall/pkg/exchange/ftx"
	"onecall/pkg/exchange/kucoin"
	"onecall/pkg/exchange/okx"
	"onecall/pkg/exchange/phemex"
)

// Constructor builds a client from validated credentials.
type Constructor func(creds exchange.Credentials, opts ...exchange.Option) (exchange.Exchange, error)

type venue struct {
	build      Constructor
	passphrase bool
}

var venues = map[string]venue{
	binance.Name: {build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return binance.New(c, o...)
	}},
	binance.SpotName: {build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return binance.NewSpot(c, o...)
	}},
	bybit.Name: {build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return bybit.New(c, o...)
	}},
	kucoin.Name: {passphrase: true, build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return kucoin.New(c, o...)
	}},
	okx.Name: {passphrase: true, build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return okx.New(c, o...)
	}},
	phemex.Name: {build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return phemex.New(c, o...)
	}},
	ftx.Name: {build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return ftx.New(c, o...)
	}},
	ftx.NameUS: {build: func(c exchange.Credentials, o ...exchange.Option) (exchange.Exchange, error) {
		return ftx.NewUS(c, o...)
	}},
}

// "biance" is how the first releases spelled it.
var aliases = map[string]string{
	"biance":       binance.Name,
	"binance-spot": binance.SpotName,
	"binancespot":  binance.SpotName,
	"ftx-us":       ftx.NameUS,
	"ftxus":        ftx.NameUS,
}

// Canonical resolves name, case-insensitively and through aliases, to a
// registered exchange name.
func Canonical(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[n]; ok {
		n = alias
	}
	_, ok := venues[n]
	return n, ok
}

// New returns the client registered under name.
func New(name string, creds exchange.Credentials, opts ...exchange.Option) (exchange.Exchange, error) {
	n, ok := Canonical(name)
	if !ok {
		return nil, exchange.ConfigurationError(name, "unknown exchange; known: "+strings.Join(Names(), ", "), nil)
	}
	return venues[n].build(creds, opts...)
}

// NewFromKeys validates the raw keys and calls New. passphrase may be empty
// for venues that do not use one.
func NewFromKeys(name, key, secret, passphrase string, opts ...exchange.Option) (exchange.Exchange, error) {
	creds, err := exchange.NewCredentialsWithPassphrase(key, secret, passphrase)
	if err != nil {
		var e *exchange.Error
		if errors.As(err, &e) && e.Exchange == "" {
			e.Exchange = name
		}
		return nil, err
	}
	return New(name, creds, opts...)
}

// Names lists the registered exchanges, sorted.
func Names() []string {
	names := make([]string, 0, len(venues))
	for n := range venues {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NeedsPassphrase reports whether the venue's keys come with a passphrase.
func NeedsPassphrase(name string) bool {
	n, _ := Canonical(name)
	return venues[n].passphrase
}

// ClockSyncer is implemented by clients that can correct for local clock skew.
type ClockSyncer interface {
	SyncTime(ctx context.Context) (time.Duration, error)
}

// SyncTime corrects ex's clock offset when it supports it. Other clients
// are left alone and report a zero offset.
func SyncTime(ctx context.Context, ex exchange.Exchange) (time.Duration, error) {
	if s, ok := ex.(ClockSyncer); ok {
		return s.SyncTime(ctx)
	}
	return 0, nil
}
