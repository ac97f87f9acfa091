package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/herbscan/config"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.SourceCamera, cfg.Source)
	assert.Equal(t, config.DefaultReadyTimeoutMS, cfg.ReadyTimeoutMS)
	assert.Equal(t, 8*time.Second, cfg.ReadyTimeout())
	assert.Equal(t, 16*time.Millisecond, cfg.PassInterval())
	assert.Equal(t, config.DefaultFormats, cfg.Formats)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herbscan.yaml")
	content := `source: screen
rear_device: video2
ready_timeout_ms: 3000
formats:
  - QR_CODE
  - code_128
sample_url: https://lab.example/samples/{id}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.SourceScreen, cfg.Source)
	assert.Equal(t, "video2", cfg.RearDevice)
	assert.Equal(t, 3*time.Second, cfg.ReadyTimeout())
	assert.Equal(t, []string{"qr_code", "code_128"}, cfg.Formats)
	assert.Equal(t, "https://lab.example/samples/SMP-1", cfg.SampleLink("SMP-1"))
	// untouched keys keep their defaults
	assert.Equal(t, config.DefaultAutoCloseDelayMS, cfg.AutoCloseDelayMS)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HERBSCAN_PASS_INTERVAL_MS", "40")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 40*time.Millisecond, cfg.PassInterval())
}

func TestLoad_RejectsUnknownSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: webcam-ish\n"), 0o600))
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidate_Clamps(t *testing.T) {
	cfg := &config.Config{
		ReadyTimeoutMS:  -1,
		ScanRegionRatio: 3,
		SelectionW:      -5,
		SelectionX:      10,
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultSource, cfg.Source)
	assert.Equal(t, config.DefaultReadyTimeoutMS, cfg.ReadyTimeoutMS)
	assert.InDelta(t, config.DefaultScanRegionRatio, cfg.ScanRegionRatio, 1e-9)
	assert.Zero(t, cfg.SelectionX)
	assert.Equal(t, config.DefaultListenAddr, cfg.ListenAddr)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "herbscan.yaml")
	cfg := config.DefaultConfig()
	cfg.Debug = true
	cfg.AllowedOrigins = []string{"http://localhost:3000"}
	require.NoError(t, cfg.Save(path))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, got.Debug)
	assert.Equal(t, []string{"http://localhost:3000"}, got.AllowedOrigins)
}
