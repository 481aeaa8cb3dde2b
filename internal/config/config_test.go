package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "https://api.pixzlo.com", cfg.BackendURL)
	assert.Equal(t, "https://api.figma.com", cfg.FigmaAPIURL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MetadataTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.RenderTTL)
	assert.Equal(t, 15*time.Second, cfg.Cache.ProfileTTL)
	assert.Equal(t, time.Second, cfg.OAuth.GraceDelay)
	assert.Equal(t, 600, cfg.OAuth.PopupWidth)
	assert.Equal(t, 700, cfg.OAuth.PopupHeight)
	assert.Equal(t, filepath.Join(home, ".config", "pixzlo", "storage.db"), cfg.StoragePath)
	assert.Empty(t, cfg.MetricsListen)
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "pixzlo")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[backend]
url = "http://localhost:3000/"

[cache]
metadata_ttl = "1m"

[oauth]
grace_delay = "250ms"

[log]
format = "json"
`), 0o600))

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, time.Minute, cfg.Cache.MetadataTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.OAuth.GraceDelay)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PIXZLO_BACKEND_URL", "http://127.0.0.1:9999")
	t.Setenv("PIXZLO_METRICS_LISTEN", "127.0.0.1:9464")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.BackendURL)
	assert.Equal(t, "127.0.0.1:9464", cfg.MetricsListen)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PIXZLO_BACKEND_URL", "ftp://example.com")

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestValidateRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	cfg.Cache.RenderTTL = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.render_ttl must be positive")
}
