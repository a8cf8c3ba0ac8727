package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Gateway HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Exchange API metrics
	ExchangeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_api_requests_total",
			Help: "Total number of exchange API requests",
		},
		[]string{"exchange", "endpoint", "status"},
	)
	ExchangeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "exchange_api_request_duration_seconds",
			Help: "Duration of exchange API requests in seconds",
		},
		[]string{"exchange", "endpoint"},
	)
	ExchangeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_api_errors_total",
			Help: "Exchange API errors by kind",
		},
		[]string{"exchange", "kind"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exchange_circuit_breaker_state",
			Help: "Circuit breaker state per exchange (0 closed, 1 half-open, 2 open)",
		},
		[]string{"exchange"},
	)
)

var once sync.Once

// InitMetrics registers every collector with the default registry. Safe to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(HTTPRequestsInFlight)

		prometheus.MustRegister(ExchangeRequestsTotal)
		prometheus.MustRegister(ExchangeRequestDuration)
		prometheus.MustRegister(ExchangeErrorsTotal)
		prometheus.MustRegister(CircuitBreakerState)
	})
}
