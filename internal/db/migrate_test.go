package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	pending := make(map[string]int)
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e, ".up.sql"):
			pending[strings.TrimSuffix(e, ".up.sql")]++
		case strings.HasSuffix(e, ".down.sql"):
			pending[strings.TrimSuffix(e, ".down.sql")]--
		default:
			t.Fatalf("unexpected migration file %s", e)
		}
	}
	for name, n := range pending {
		assert.Zero(t, n, "migration %s has no matching up/down file", name)
	}
}

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}
