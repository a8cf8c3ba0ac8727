package config

import (
	"testing"
	"time"

	"onecall/pkg/exchange"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("MAX_RETRIES", "2")
	t.Setenv("TESTNET", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PROXY_ADDR", "127.0.0.1:1080")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if cfg.DatabaseDriver != "sqlite3" || cfg.DatabaseURL != "file:test.db" {
		t.Errorf("Unexpected database settings: %s %s", cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.RateLimit != 10 || cfg.MaxRetries != 2 || !cfg.Testnet {
		t.Errorf("Unexpected endpoint settings: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
	if n := len(cfg.ExchangeOptions()); n != 5 {
		t.Errorf("Unexpected option count. Expected: 5; Actual: %d.", n)
	}
	if ec := exchange.NewConfig(cfg.ExchangeOptions()...); ec.ProxyAddr != "127.0.0.1:1080" || !ec.Testnet {
		t.Errorf("Unexpected exchange config: %+v", ec)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PROXY_ADDR", "TESTNET", "ALLOWED_ORIGINS", "GATEWAY_RATE_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if n := len(cfg.ExchangeOptions()); n != 3 {
		t.Errorf("Unexpected option count. Expected: 3; Actual: %d.", n)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.GatewayRate != 120 {
		t.Errorf("Unexpected gateway rate. Expected: 120; Actual: %d.", cfg.GatewayRate)
	}
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	if _, _, err := Load(); err == nil {
		t.Errorf("Expected an error for a malformed timeout")
	}
}

func TestExchangeKeys(t *testing.T) {
	t.Setenv("FTX_US_API_KEY", "k")
	t.Setenv("FTX_US_API_SECRET", "s")
	keys := ExchangeKeys("ftx-us")
	if keys.Key != "k" || keys.Secret != "s" || keys.Passphrase != "" {
		t.Errorf("Unexpected keys: %+v", keys)
	}
}
