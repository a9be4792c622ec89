package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration

	// Empty DatabaseDSN keeps carts in memory.
	DatabaseDSN   string
	RunMigrations bool

	// Empty RabbitMQURL logs events instead of publishing them.
	RabbitMQURL string

	CatalogSource    string
	CatalogBatchSize int

	RemovalDelay time.Duration

	// Carts untouched this long are dropped from memory; they stay stored.
	CartIdleTimeout time.Duration

	// CORS
	CORSAllowOrigins []string

	LogLevel string
}

// Load reads the environment, after applying an optional .env file from the
// working directory.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		RequestTimeout: parseDuration(getenv("REQUEST_TIMEOUT", "3s"), 3*time.Second),

		DatabaseDSN:   getenv("DATABASE_DSN", ""),
		RunMigrations: parseBool(getenv("RUN_MIGRATIONS", "true"), true),

		RabbitMQURL: getenv("RABBITMQ_URL", ""),

		CatalogSource:    getenv("CATALOG_SOURCE", "data/catalog.json"),
		CatalogBatchSize: parseInt(getenv("CATALOG_BATCH_SIZE", "40"), 40),

		RemovalDelay:    parseDuration(getenv("REMOVAL_DELAY", "350ms"), 350*time.Millisecond),
		CartIdleTimeout: parseDuration(getenv("CART_IDLE_TIMEOUT", "30m"), 30*time.Minute),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),

		LogLevel: strings.ToLower(getenv("LOG_LEVEL", "info")),
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
