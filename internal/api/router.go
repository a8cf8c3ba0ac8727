package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"onecall/pkg/middleware"
)

type RouterConfig struct {
	JWTSecret       string
	AllowedOrigins  []string
	MetricsUser     string
	MetricsPassword string
	Logger          *zap.Logger

	// RatePerMinute applies per account, or per IP before authentication.
	RatePerMinute int

	// Auth mounts /auth/register and /auth/login when set.
	Auth *AuthHandler
}

// NewRouter mounts the gateway routes. The returned limiter should be pruned
// periodically by the caller.
func NewRouter(h *Handler, cfg RouterConfig) (http.Handler, *middleware.RateLimiter) {
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 120
	}
	limiter := middleware.NewRateLimiter(cfg.RatePerMinute, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	// Browsers are only let in from configured origins. Auth is a bearer
	// token, so cookies are never allowed across origins.
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	metricsHandler := promhttp.Handler()
	if cfg.MetricsUser != "" {
		metricsHandler = middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)(metricsHandler)
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Get("/api/exchanges", h.Exchanges)

	if cfg.Auth != nil {
		r.Group(func(ar chi.Router) {
			ar.Use(limiter.Middleware)
			ar.Use(middleware.ValidateRequest)
			ar.Post("/auth/register", cfg.Auth.Register)
			ar.Post("/auth/login", cfg.Auth.Login)
		})
	}

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuth(cfg.JWTSecret))
		pr.Use(limiter.Middleware)
		pr.Use(middleware.ValidateRequest)

		pr.Route("/api/{exchange}", func(er chi.Router) {
			er.Put("/keys", h.SaveKeys)
			er.Delete("/keys", h.DeleteKeys)

			er.Get("/orders/open", h.OpenOrders)
			er.Get("/orders/closed", h.ClosedOrders)
			er.Post("/orders", h.PlaceOrder)
			er.Delete("/orders", h.CancelAll)

			er.Get("/positions", h.Positions)
			er.Post("/positions/close", h.ClosePositions)
			er.Get("/balances", h.Balances)

			er.Get("/orderbook", h.OrderBook)
			er.Get("/candles", h.Candles)
		})
	})

	return r, limiter
}

// PruneLoop drops idle rate-limiter buckets until done is closed.
func PruneLoop(limiter *middleware.RateLimiter, every time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			limiter.Prune(every)
		case <-done:
			return
		}
	}
}
