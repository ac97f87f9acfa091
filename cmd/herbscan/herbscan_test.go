package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/domain/scan"
)

func init() { color.NoColor = true }

type barcodeStream struct{ frame *image.RGBA }

func (s *barcodeStream) Read() (*image.RGBA, error) {
	time.Sleep(5 * time.Millisecond)
	return s.frame, nil
}
func (s *barcodeStream) Stop() error   { return nil }
func (s *barcodeStream) Label() string { return "test" }

type stubDevices struct {
	stream scan.Stream
	err    error
}

func (d *stubDevices) RequestStream(context.Context, scan.Constraints) (scan.Stream, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

func code128Frame(t *testing.T, text string) *image.RGBA {
	t.Helper()
	m, err := oned.NewCode128Writer().Encode(text, gozxing.BarcodeFormat_CODE_128, 360, 90, nil)
	require.NoError(t, err)
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if m.Get(x, y) {
				img.Set(140+x, 195+y, image.Black)
			}
		}
	}
	return img
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.PassIntervalMS = 2
	return cfg
}

func TestScanOnce_Result(t *testing.T) {
	cfg := testConfig()
	devices := &stubDevices{stream: &barcodeStream{frame: code128Frame(t, "SMP-00042")}}
	out, err := scanOnce(context.Background(), cfg, devices, capture.MountedSlot(capture.NewSurface(nil)), nil)
	require.NoError(t, err)
	assert.Equal(t, "SMP-00042", out.Text)
	assert.Equal(t, "/dashboard/SMP-00042", out.URL)
	assert.Positive(t, out.Stats.Passes)

	var buf bytes.Buffer
	printOutcome(&buf, out, false)
	assert.Contains(t, buf.String(), "SMP-00042\n")
	assert.Contains(t, buf.String(), "url:     /dashboard/SMP-00042")

	buf.Reset()
	printOutcome(&buf, out, true)
	assert.Equal(t, "SMP-00042\n", buf.String())
}

func TestScanOnce_Failure(t *testing.T) {
	devices := &stubDevices{err: fmt.Errorf("/dev: %w", scan.ErrDeviceNotFound)}
	_, err := scanOnce(context.Background(), testConfig(), devices, capture.MountedSlot(capture.NewSurface(nil)), nil)
	require.Error(t, err)
	var d scan.ErrorDetail
	require.ErrorAs(t, err, &d)
	assert.Equal(t, scan.KindDeviceNotFound, d.Kind)

	var buf bytes.Buffer
	printFailure(&buf, err)
	assert.True(t, strings.HasPrefix(buf.String(), "device_not_found: "))
	assert.Contains(t, buf.String(), "connect a camera")
}

func TestScanOnce_Timeout(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 64, 48))
	devices := &stubDevices{stream: &barcodeStream{frame: blank}}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := scanOnce(ctx, testConfig(), devices, capture.MountedSlot(capture.NewSurface(nil)), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRenderDevices(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	statuses := []capture.ProbeStatus{
		{Device: capture.Device{Name: "video0", Path: "/dev/video0", Index: 0, Rear: true}},
		{Device: capture.Device{Name: "video1", Path: "/dev/video1", Index: 1}, Err: fmt.Errorf("open: %w", scan.ErrDeviceBusy)},
		{Device: capture.Device{Name: "video2", Path: "/dev/video2", Index: 2}, Err: fmt.Errorf("open: %w", scan.ErrPermissionDenied)},
	}
	out := renderDevices(statuses, map[string]time.Time{"/dev/video0": now.Add(-2 * time.Hour)}, now)
	assert.Contains(t, out, "video0")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "busy")
	assert.Contains(t, out, "permission denied")
	assert.Contains(t, out, "1 USABLE")
	assert.Contains(t, out, "3 TOTAL")
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "herbscan dev\n", buf.String())
}

func TestDevicesCommand_Empty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HERBSCAN_DEVICE_DIR", dir)
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "none.yaml"), "devices"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "no capture devices in "+dir+"\n", buf.String())
}
