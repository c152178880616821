package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bakery-cart/internal/cart"
	"github.com/angelmondragon/bakery-cart/internal/storage"
	"github.com/angelmondragon/bakery-cart/pkg/config"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	root := newRootCmd(openConfigured, os.Stdout, os.Stdin)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openConfigured builds the cart service over the backend named by BAKERY_CART_BACKEND.
func openConfigured(ctx context.Context) (*cart.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logg := logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      "console",
		Output:      os.Stderr,
	})

	backend, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Cart.Backend, err)
	}
	svc, err := cart.NewService(backend, cart.Options{
		StorageKey: cfg.Cart.StorageKey,
		CountKey:   cfg.Cart.CountKey,
		Pricing:    cart.PricingFromConfig(cfg.Cart),
		Logger:     logg,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return svc, nil
}
