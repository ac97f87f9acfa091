package bridge

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/scan"
)

func TestHost_ReloadAppliesSessionOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "herbscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pass_interval_ms: 40\nformats: [qr_code]\nsample_url: /s/{id}\ntry_harder: true\nscan_region_ratio: 0.5\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.DeviceDir = dir
	h, err := NewHost(cfg, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 16*time.Millisecond, h.Session.Options().PassInterval)

	h.Reload()
	opts := h.Session.Options()
	assert.Equal(t, 40*time.Millisecond, opts.PassInterval)
	assert.Equal(t, []scan.Format{scan.FormatQR}, opts.Formats)
	assert.Equal(t, "/s/SMP-1", h.Server.link("SMP-1"))
	tuning := h.Tuning.Load()
	assert.True(t, tuning.TryHarder)
	assert.Equal(t, 0.5, tuning.RegionRatio)
}

func TestHost_ServeStopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DeviceDir = t.TempDir()
	h, err := NewHost(cfg, "", nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.Equal(t, scan.PhaseClosed, h.Session.Phase())
}
