package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"onecall/pkg/exchange"
)

type Config struct {
	DatabaseDriver   string // postgres or sqlite3
	DatabaseURL      string
	JWTSecret        string
	TokenTTL         time.Duration
	EncryptionSecret string
	HTTPAddr         string
	AllowedOrigins   []string
	GatewayRate      int // requests per minute per account
	MetricsUser      string
	MetricsPassword  string

	ProxyAddr      string
	RequestTimeout time.Duration
	RateLimit      float64
	MaxRetries     int
	Testnet        bool

	LogLevel string
	LogFile  string
}

// Load reads .env when present, then the environment. A missing .env is not
// an error; the bool reports whether one was loaded.
func Load() (*Config, bool, error) {
	loaded := godotenv.Load() == nil

	cfg := &Config{
		DatabaseDriver:   getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		EncryptionSecret: os.Getenv("ENCRYPTION_SECRET"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigins:   splitList(os.Getenv("ALLOWED_ORIGINS")),
		MetricsUser:      os.Getenv("METRICS_USER"),
		MetricsPassword:  os.Getenv("METRICS_PASSWORD"),
		ProxyAddr:        os.Getenv("PROXY_ADDR"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", "logs/onecall.log"),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 30*24*time.Hour); err != nil {
		return nil, loaded, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", exchange.DefaultTimeout); err != nil {
		return nil, loaded, err
	}
	if cfg.RateLimit, err = getFloat("RATE_LIMIT", exchange.DefaultRateLimit); err != nil {
		return nil, loaded, err
	}
	if cfg.GatewayRate, err = getInt("GATEWAY_RATE_LIMIT", 120); err != nil {
		return nil, loaded, err
	}
	if cfg.MaxRetries, err = getInt("MAX_RETRIES", 0); err != nil {
		return nil, loaded, err
	}
	if cfg.Testnet, err = getBool("TESTNET", false); err != nil {
		return nil, loaded, err
	}
	return cfg, loaded, nil
}

// ExchangeOptions turns the endpoint settings into client options.
func (c *Config) ExchangeOptions() []exchange.Option {
	opts := []exchange.Option{
		exchange.WithTimeout(c.RequestTimeout),
		exchange.WithRateLimit(c.RateLimit, int(c.RateLimit)),
		exchange.WithRetries(c.MaxRetries),
	}
	if c.ProxyAddr != "" {
		opts = append(opts, exchange.WithProxy(c.ProxyAddr))
	}
	if c.Testnet {
		opts = append(opts, exchange.WithTestnet())
	}
	return opts
}

// Keys are the credentials for one exchange taken from the environment,
// e.g. BYBIT_API_KEY, BYBIT_API_SECRET and BYBIT_PASSPHRASE.
type Keys struct {
	Key        string
	Secret     string
	Passphrase string
}

func ExchangeKeys(exchangeName string) Keys {
	prefix := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(exchangeName))
	return Keys{
		Key:        os.Getenv(prefix + "_API_KEY"),
		Secret:     os.Getenv(prefix + "_API_SECRET"),
		Passphrase: os.Getenv(prefix + "_PASSPHRASE"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
