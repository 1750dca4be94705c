package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[http]
addr = ":9090"

[feeds.limits]
user = 10

[feeds.processing]
batch_size = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 10, cfg.Feeds.Limits.User)
	assert.Equal(t, 5, cfg.Feeds.Processing.BatchSize)
	// Values not present in the file keep their defaults.
	assert.Equal(t, Defaults().NATS, cfg.NATS)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BZD_FLUX_DB_ENDPOINT", "postgres://override/db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://override/db", cfg.DB.Endpoint)
}
