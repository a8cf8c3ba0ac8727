package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"onecall/pkg/exchange"
	"onecall/pkg/jwt"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "onecall.log"))
	t.Setenv("JWT_SECRET", "cli-test-secret")
}

func TestRun_Usage(t *testing.T) {
	setupEnv(t)
	for _, args := range [][]string{nil, {"frobnicate"}} {
		if err := run(context.Background(), args, &bytes.Buffer{}); !errors.Is(err, errUsage) {
			t.Errorf("Unexpected error for %v. Expected: usage; Actual: %v.", args, err)
		}
	}
}

func TestRun_Token(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer
	if err := run(context.Background(), []string{"token", "-account", "alice"}, &out); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	account, err := jwt.ParseToken("cli-test-secret", strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if account != "alice" {
		t.Errorf("Unexpected account. Expected: alice; Actual: %s.", account)
	}
}

func TestRun_Exchanges(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer
	if err := run(context.Background(), []string{"exchanges"}, &out); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	for _, name := range []string{"binance", "bybit", "kucoin", "okx", "phemex", "ftx"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("Expected %s in the exchange list", name)
		}
	}
}

func TestRun_MissingKeys(t *testing.T) {
	setupEnv(t)
	t.Setenv("BYBIT_API_KEY", "")
	t.Setenv("BYBIT_API_SECRET", "")

	err := run(context.Background(), []string{"balances", "-exchange", "bybit"}, &bytes.Buffer{})
	if !errors.Is(err, exchange.ErrConfiguration) {
		t.Errorf("Unexpected error. Expected: configuration error; Actual: %v.", err)
	}

	err = run(context.Background(), []string{"balances"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "-exchange is required") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRun_OrderFlags(t *testing.T) {
	setupEnv(t)
	err := run(context.Background(), []string{"order", "-exchange", "bybit", "-symbol", "BTCUSDT", "-qty", "lots"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "invalid -qty") {
		t.Errorf("Unexpected error: %v", err)
	}
}
