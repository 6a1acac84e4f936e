package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/openmint/core"
)

// Config is the daemon configuration, read from the environment. A .env file
// in the working directory is loaded first if present.
type Config struct {
	ListenAddr      string
	MaxWorkers      int
	Cap             uint64
	RoundDuration   time.Duration
	MinIncrement    decimal.Decimal
	AdminAccount    string
	ProceedsAccount string
	BaseURI         string
}

func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file loaded: %v", err)
	}

	maxWorkers, err := getRequiredEnvInt("AUCTIOND_MAX_WORKERS")
	if err != nil {
		return Config{}, fmt.Errorf("failed to get max workers config: %w", err)
	}

	cfg := Config{
		ListenAddr:      getEnvDefault("AUCTIOND_LISTEN_ADDR", "127.0.0.1:7701"),
		MaxWorkers:      maxWorkers,
		RoundDuration:   24 * time.Hour,
		MinIncrement:    decimal.NewFromFloat(0.01),
		AdminAccount:    getEnvDefault("AUCTIOND_ADMIN_ACCOUNT", "house:admin"),
		ProceedsAccount: getEnvDefault("AUCTIOND_PROCEEDS_ACCOUNT", "house:proceeds"),
		BaseURI:         os.Getenv("AUCTIOND_BASE_URI"),
	}

	if raw := os.Getenv("AUCTIOND_SUPPLY_CAP"); raw != "" {
		cap, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUCTIOND_SUPPLY_CAP %q: %w", raw, err)
		}
		cfg.Cap = cap
	}
	if raw := os.Getenv("AUCTIOND_ROUND_DURATION"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid AUCTIOND_ROUND_DURATION %q", raw)
		}
		cfg.RoundDuration = d
	}
	if raw := os.Getenv("AUCTIOND_MIN_INCREMENT"); raw != "" {
		inc, err := core.ParseAmount(raw)
		if err != nil || !inc.IsPositive() {
			return Config{}, fmt.Errorf("invalid AUCTIOND_MIN_INCREMENT %q", raw)
		}
		cfg.MinIncrement = inc
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getRequiredEnvInt(key string) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("environment variable %s must be a positive integer, got %q", key, raw)
	}
	return value, nil
}
