package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds everything cmd/server needs to wire the ledger together.
type Config struct {
	HTTPAddr     string
	StoreBackend string
	DatabaseURL  string
	KafkaBrokers []string // empty disables event publishing
	LogLevel     string
	SeedDemoData bool
}

// Load reads configuration from the environment, first loading .env if one
// exists. Missing optional values fall back to defaults; a postgres backend
// without DATABASE_URL is an error.
func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		StoreBackend: strings.ToLower(getenv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if seed := os.Getenv("SEED_DEMO_DATA"); seed != "" {
		parsed, err := strconv.ParseBool(seed)
		if err != nil {
			return Config{}, fmt.Errorf("parse SEED_DEMO_DATA: %w", err)
		}
		cfg.SeedDemoData = parsed
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendPostgres:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
