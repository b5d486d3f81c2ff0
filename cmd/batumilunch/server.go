package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/availability"
	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/middleware"
	"github.com/VITperson/batumi-lunch-site2/internal/order"
	"github.com/VITperson/batumi-lunch-site2/internal/pricing"
	"github.com/VITperson/batumi-lunch-site2/internal/router"
	"github.com/VITperson/batumi-lunch-site2/internal/storage"
	"github.com/VITperson/batumi-lunch-site2/internal/storage/memory"
	pgstorage "github.com/VITperson/batumi-lunch-site2/internal/storage/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := NewConfig()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}
	defer logger.Log.Sync()

	if cfg.TokenFor > 0 {
		tok, err := middleware.IssueToken([]byte(cfg.JWTSecret), cfg.TokenFor, cfg.TokenAdmin, cfg.TokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load time zone %q: %w", cfg.Timezone, err)
	}
	promo, err := decimal.NewFromString(cfg.PromoDiscount)
	if err != nil {
		return fmt.Errorf("parse PROMO_DISCOUNT: %w", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Log.Warn("failed to close storage", zap.Error(err))
		}
	}()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := store.Ping(pingCtx); err != nil {
		return fmt.Errorf("unable to ping storage: %w", err)
	}

	availSvc := availability.NewService(store, store, availability.Config{
		Location:     loc,
		DeadlineHour: cfg.DeadlineHour,
	})
	priceSvc := pricing.NewService(store, pricing.Config{
		MaxPortions:   cfg.MaxPortions,
		MaxWeeksAhead: cfg.MaxWeeksAhead,
		PromoDiscount: promo,
		Location:      loc,
	})
	orderSvc := order.NewService(store, availSvc, priceSvc, order.Config{
		MaxPortions: cfg.MaxPortions,
		Cooldown:    cfg.OrderCooldown,
		Location:    loc,
	})
	menuSvc := menu.NewService(store, loc, nil)

	r := router.NewRouter(
		availability.NewHandler(availSvc),
		pricing.NewHandler(priceSvc),
		order.NewHandler(orderSvc),
		menu.NewHandler(menuSvc),
		[]byte(cfg.JWTSecret),
		cfg.SigningKey,
	)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go availability.ExpiryLoop(ctx, availSvc, cfg.WindowSweepInterval)

	go func() {
		logger.Log.Info("starting server", zap.String("address", srv.Addr), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("ListenAndServe()", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down server")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("server stopped gracefully")
	return nil
}

// openStorage picks Postgres when a DSN is configured and the in-memory
// store otherwise.
func openStorage(cfg *Config) (storage.Storage, error) {
	if cfg.DatabaseConnection != "" {
		store, err := pgstorage.NewPostgresStorage(cfg.DatabaseConnection)
		if err != nil {
			return nil, fmt.Errorf("initialize Postgres storage: %w", err)
		}
		return store, nil
	}

	store := memory.New()
	logger.Log.Warn("DATABASE_URI is empty, orders are kept in memory")
	if cfg.MenuFile == "" {
		return store, nil
	}
	f, err := os.Open(cfg.MenuFile)
	if err != nil {
		return nil, fmt.Errorf("open menu file: %w", err)
	}
	defer f.Close()
	n, err := store.LoadMenus(f)
	if err != nil {
		return nil, fmt.Errorf("load menu file %s: %w", cfg.MenuFile, err)
	}
	logger.Log.Info("menus loaded", zap.String("file", cfg.MenuFile), zap.Int("weeks", n))
	return store, nil
}
