package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"HTTP_ADDR", "DATABASE_DSN", "RUN_MIGRATIONS", "RABBITMQ_URL", "CATALOG_SOURCE", "CATALOG_BATCH_SIZE", "REMOVAL_DELAY", "CART_IDLE_TIMEOUT", "REQUEST_TIMEOUT", "CORS_ALLOW_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "data/catalog.json", cfg.CatalogSource)
	assert.Equal(t, 40, cfg.CatalogBatchSize)
	assert.Equal(t, 350*time.Millisecond, cfg.RemovalDelay)
	assert.Equal(t, 30*time.Minute, cfg.CartIdleTimeout)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("CATALOG_BATCH_SIZE", "nope")
	t.Setenv("REMOVAL_DELAY", "1s")
	t.Setenv("CART_IDLE_TIMEOUT", "-5m")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 40, cfg.CatalogBatchSize)
	assert.Equal(t, time.Second, cfg.RemovalDelay)
	assert.Equal(t, 30*time.Minute, cfg.CartIdleTimeout, "negative falls back to default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CATALOG_SOURCE=https://cdn.example/catalog.json\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("CATALOG_SOURCE", "")
	require.NoError(t, os.Unsetenv("CATALOG_SOURCE"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/catalog.json", cfg.CatalogSource)
}
