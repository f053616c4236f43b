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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.APIBaseURL)
	assert.Equal(t, "laundry.db", cfg.DBPath)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := "API_BASE_URL=http://laundry.example.com\nPOLL_INTERVAL=10s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(contents), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://laundry.example.com", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	// Unset keys keep their defaults.
	assert.Equal(t, "laundry.db", cfg.DBPath)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://10.0.0.5:3000")
	t.Setenv("DB_PATH", "/tmp/alt.db")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:3000", cfg.APIBaseURL)
	assert.Equal(t, "/tmp/alt.db", cfg.DBPath)
}
