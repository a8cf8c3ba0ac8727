package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"onecall/internal/api"
	"onecall/internal/keystore"
	"onecall/internal/metrics"
	"onecall/internal/user"
	"onecall/pkg/db"
	"onecall/pkg/exchange"
)

const shutdownTimeout = 5 * time.Second

// serve runs the HTTP gateway until ctx is cancelled by a signal.
func serve(ctx context.Context, e *env, args []string) error {
	cfg := e.cfg
	if cfg.JWTSecret == "" {
		return errors.New("serve: JWT_SECRET is not set")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("serve: DATABASE_URL is not set")
	}

	metrics.InitMetrics()

	database, err := db.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer database.Close()
	e.log.Info("database connected", zap.String("driver", cfg.DatabaseDriver))

	accounts := user.NewSQLRepository(database)
	if err := accounts.Migrate(ctx); err != nil {
		return err
	}
	repo := keystore.NewSQLRepository(database)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	cipher, err := keystore.NewCipher(cfg.EncryptionSecret)
	if err != nil {
		return err
	}
	keys := keystore.NewService(repo, cipher, e.log)

	opts := append(cfg.ExchangeOptions(), exchange.WithLogger(e.log))
	handler := api.NewHandler(keys, api.RegistryFactory(opts...), cfg.RequestTimeout, e.log)
	router, limiter := api.NewRouter(handler, api.RouterConfig{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		RatePerMinute:   cfg.GatewayRate,
		MetricsUser:     cfg.MetricsUser,
		MetricsPassword: cfg.MetricsPassword,
		Logger:          e.log,
		Auth:            api.NewAuthHandler(user.NewService(accounts, e.log), cfg.JWTSecret, cfg.TokenTTL, e.log),
	})

	done := make(chan struct{})
	defer close(done)
	go api.PruneLoop(limiter, 10*time.Minute, done)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	e.log.Info("server running", zap.String("addr", ln.Addr().String()))
	return runServer(ctx, server, ln, shutdownTimeout, e.log)
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
// It returns only after Shutdown has finished, so deferred cleanup such as
// closing the database never races with a running handler.
func runServer(ctx context.Context, server *http.Server, ln net.Listener, timeout time.Duration, log *zap.Logger) error {
	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		stopped <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-stopped; err != nil {
		log.Error("server shutdown failed", zap.Error(err))
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
