package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/bakery-cart/api/controllers"
	"github.com/angelmondragon/bakery-cart/api/routes"
	"github.com/angelmondragon/bakery-cart/internal/cart"
	"github.com/angelmondragon/bakery-cart/internal/storage"
	"github.com/angelmondragon/bakery-cart/pkg/config"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
	"github.com/angelmondragon/bakery-cart/pkg/metrics"
	"github.com/angelmondragon/bakery-cart/pkg/migrate"
)

const shutdownTimeout = 10 * time.Second

// newServer derives every request context from ctx, so long-lived requests
// such as cart event streams end when ctx is cancelled and Shutdown can
// drain them.
func newServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "backend": cfg.Cart.Backend})

	backend, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open cart storage", err)
		os.Exit(1)
	}

	if sqlBackend, ok := backend.(*storage.GormBackend); ok && cfg.Cart.Backend == config.BackendPostgres {
		if err := migrate.MaybeRun(ctx, cfg, logg, sqlBackend.Client(), migrate.DefaultDir); err != nil {
			logg.Error(ctx, "failed to run migrations", err)
			_ = backend.Close()
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	carts, err := cart.NewService(backend, cart.Options{
		StorageKey: cfg.Cart.StorageKey,
		CountKey:   cfg.Cart.CountKey,
		Pricing:    cart.PricingFromConfig(cfg.Cart),
		Logger:     logg,
		Metrics:    metrics.NewCartMetrics(registry),
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		_ = backend.Close()
		os.Exit(1)
	}
	defer func() {
		if err := carts.Close(); err != nil {
			logg.Error(context.Background(), "error closing cart storage", err)
		}
	}()

	server := newServer(ctx, ":"+cfg.App.Port, routes.NewRouter(cfg, logg, carts, routes.Options{
		Ready:    map[string]controllers.Pinger{"cart_storage": carts},
		Gatherer: registry,
	}))

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
