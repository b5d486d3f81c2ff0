package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	Address             string        `env:"RUN_ADDRESS" envDefault:"localhost:8080"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"INFO"`
	DatabaseConnection  string        `env:"DATABASE_URI"`
	MenuFile            string        `env:"MENU_FILE"`
	JWTSecret           string        `env:"JWT_SECRET"`
	SigningKey          string        `env:"SIGNING_KEY"`
	Timezone            string        `env:"TIMEZONE" envDefault:"Asia/Tbilisi"`
	DeadlineHour        int           `env:"ORDER_DEADLINE_HOUR" envDefault:"10"`
	MaxPortions         int           `env:"MAX_PORTIONS" envDefault:"8"`
	MaxWeeksAhead       int           `env:"MAX_WEEKS_AHEAD" envDefault:"8"`
	PromoDiscount       string        `env:"PROMO_DISCOUNT" envDefault:"5"`
	OrderCooldown       time.Duration `env:"ORDER_COOLDOWN" envDefault:"10s"`
	WindowSweepInterval time.Duration `env:"WINDOW_SWEEP_INTERVAL" envDefault:"1m"`

	// set only from the command line
	TokenFor   int64
	TokenAdmin bool
	TokenTTL   time.Duration
}

func NewConfig() (*Config, error) {
	// .env is optional
	envFileErr := godotenv.Load()
	if envFileErr != nil && !errors.Is(envFileErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", envFileErr)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	address := flag.String("a", cfg.Address, "{Host:port} for server")
	loglevel := flag.String("l", cfg.LogLevel, "Log level for server")
	databaseConnection := flag.String("d", cfg.DatabaseConnection, "Database connection string, in-memory store when empty")
	menuFile := flag.String("m", cfg.MenuFile, "JSON file with menu weeks for the in-memory store")
	timezone := flag.String("z", cfg.Timezone, "Time zone of the kitchen")
	deadlineHour := flag.Int("deadline", cfg.DeadlineHour, "Default order deadline hour")
	maxPortions := flag.Int("p", cfg.MaxPortions, "Max portions per day")
	cooldown := flag.Duration("c", cfg.OrderCooldown, "Min gap between order submissions of a customer (0 disables)")
	sweep := flag.Duration("i", cfg.WindowSweepInterval, "Next-week window expiry check interval")
	tokenFor := flag.Int64("token-for", 0, "Print a token for this customer id and exit")
	tokenAdmin := flag.Bool("token-admin", false, "Issue the printed token with the admin claim")
	tokenTTL := flag.Duration("t", 24*time.Hour, "TTL for the printed token (e.g. 24h; 30m)")

	flag.Parse()

	cfg.Address = *address
	cfg.LogLevel = *loglevel
	cfg.DatabaseConnection = *databaseConnection
	cfg.MenuFile = *menuFile
	cfg.Timezone = *timezone
	cfg.DeadlineHour = *deadlineHour
	cfg.MaxPortions = *maxPortions
	cfg.OrderCooldown = *cooldown
	cfg.WindowSweepInterval = *sweep
	cfg.TokenFor = *tokenFor
	cfg.TokenAdmin = *tokenAdmin
	cfg.TokenTTL = *tokenTTL

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("ENV JWT_SECRET must be set")
	}

	return cfg, nil
}
