// Command onecall queries and trades on any supported exchange through one
// command set, or serves the same operations over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/logrusorgru/aurora"
	"go.uber.org/zap"

	"onecall/internal/config"
	"onecall/pkg/exchange"
	"onecall/pkg/logger"
	"onecall/pkg/onecall"
)

type env struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"open-orders":     {"-exchange NAME [-symbol SYM]", openOrders},
	"closed-orders":   {"-exchange NAME -symbol SYM", closedOrders},
	"positions":       {"-exchange NAME [-symbol SYM]", positions},
	"close-positions": {"-exchange NAME -symbol SYM", closePositions},
	"balances":        {"-exchange NAME", balances},
	"orderbook":       {"-exchange NAME -symbol SYM [-depth N]", orderBook},
	"candles":         {"-exchange NAME -symbol SYM [-interval 1h] [-start T] [-end T] [-limit N]", candles},
	"order":           {"-exchange NAME -symbol SYM -side buy|sell -qty Q [-price P] [-reduce-only] [-post-only]", placeOrder},
	"cancel-all":      {"-exchange NAME -symbol SYM", cancelAll},
	"exchanges":       {"", listExchanges},
	"token":           {"-account NAME [-ttl 720h]", issueToken},
	"serve":           {"", serve},
}

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	if errors.Is(err, errUsage) {
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, aurora.Red(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return errUsage
	}

	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Filename = cfg.LogFile
	// the CLI prints results on stdout; keep the console quiet unless asked
	logCfg.Console = args[0] == "serve" || cfg.LogLevel == "debug"
	log, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	return cmd.run(ctx, &env{cfg: cfg, log: log, out: out}, args[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: onecall <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Keys are read from <EXCHANGE>_API_KEY, <EXCHANGE>_API_SECRET and <EXCHANGE>_PASSPHRASE.")
}

// venueFlags are shared by every exchange command.
type venueFlags struct {
	fs       *flag.FlagSet
	exchange string
	symbol   string
	json     bool
}

func newVenueFlags(name string) *venueFlags {
	v := &venueFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	v.fs.StringVar(&v.exchange, "exchange", "", "exchange name ("+strings.Join(onecall.Names(), ", ")+")")
	v.fs.StringVar(&v.symbol, "symbol", "", "instrument symbol as the exchange spells it")
	v.fs.BoolVar(&v.json, "json", false, "print JSON instead of a table")
	return v
}

func (v *venueFlags) parse(args []string) error {
	if err := v.fs.Parse(args); err != nil {
		return err
	}
	if v.exchange == "" {
		return fmt.Errorf("%s: -exchange is required", v.fs.Name())
	}
	return nil
}

// client builds the exchange client from environment keys and corrects its
// clock where the venue supports it.
func (e *env) client(ctx context.Context, name string) (exchange.Exchange, error) {
	canonical, ok := onecall.Canonical(name)
	if !ok {
		canonical = name
	}
	keys := config.ExchangeKeys(canonical)

	opts := append(e.cfg.ExchangeOptions(), exchange.WithLogger(e.log))
	ex, err := onecall.NewFromKeys(canonical, keys.Key, keys.Secret, keys.Passphrase, opts...)
	if err != nil {
		return nil, err
	}

	offset, err := onecall.SyncTime(ctx, ex)
	if err != nil {
		e.log.Warn("clock sync failed", zap.String("exchange", ex.Name()), zap.Error(err))
	} else if offset != 0 {
		e.log.Debug("clock offset applied", zap.String("exchange", ex.Name()), zap.Duration("offset", offset))
	}
	return ex, nil
}
