package exchange

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 50 // requests per second
)

// Config is the endpoint configuration a client is built with. It is filled by
// Options on top of NewConfig's defaults.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	ProxyAddr  string // SOCKS5 host:port
	RateLimit  float64
	RateBurst  int
	MaxRetries int
	Testnet    bool
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Option func(*Config)

// NewConfig applies opts over the defaults.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Timeout:   DefaultTimeout,
		RateLimit: DefaultRateLimit,
		RateBurst: DefaultRateLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return cfg
}

// BaseURLOr returns the configured base URL or def.
func (c Config) BaseURLOr(def string) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return def
}

// WithBaseURL points the client at another host, e.g. a testnet or a mock server.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTimeout bounds every call. Expiry surfaces as ErrNetwork.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithProxy routes requests through a SOCKS5 proxy.
func WithProxy(addr string) Option {
	return func(c *Config) { c.ProxyAddr = addr }
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables the limiter.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Config) {
		c.RateLimit = perSecond
		c.RateBurst = burst
	}
}

// WithRetries retries idempotent reads up to n times on network failure.
func WithRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxRetries = n
		}
	}
}

// WithTestnet selects the venue's test environment where one exists.
func WithTestnet() Option {
	return func(c *Config) { c.Testnet = true }
}

// WithHTTPClient replaces the HTTP client. Timeout and proxy options are ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
