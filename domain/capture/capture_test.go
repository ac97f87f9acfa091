package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/scan"
)

type countingStream struct {
	reads   atomic.Int64
	stopped atomic.Bool
	failFor int64
}

func (s *countingStream) Read() (*image.RGBA, error) {
	n := s.reads.Add(1)
	if n <= s.failFor {
		return nil, errors.New("warming up")
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.SetRGBA(0, 0, color.RGBA{R: uint8(n), A: 255})
	time.Sleep(time.Millisecond)
	return img, nil
}
func (s *countingStream) Stop() error   { s.stopped.Store(true); return nil }
func (s *countingStream) Label() string { return "counting" }

func TestSurface_ReadyAfterFirstFrame(t *testing.T) {
	s := NewSurface(nil)
	assert.Nil(t, s.Frame())

	st := &countingStream{failFor: 3}
	require.NoError(t, s.Attach(st))
	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("surface never became ready")
	}
	require.NotNil(t, s.Frame())
	assert.True(t, s.Running())

	stats := s.Stats()
	assert.GreaterOrEqual(t, stats.Skipped, uint64(3))
	assert.GreaterOrEqual(t, stats.Frames, uint64(1))
	assert.Equal(t, "counting", stats.Stream)

	s.Detach()
	assert.False(t, s.Running())
	assert.Nil(t, s.Frame())
	assert.False(t, st.stopped.Load(), "detach leaves the stream to its owner")

	reads := st.reads.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, reads, st.reads.Load(), "pump must not read after detach")
}

func TestSurface_ReattachResetsReady(t *testing.T) {
	s := NewSurface(nil)
	require.NoError(t, s.Attach(&countingStream{}))
	<-s.Ready()
	s.Detach()

	require.NoError(t, s.Attach(&countingStream{failFor: 1 << 40}))
	select {
	case <-s.Ready():
		t.Fatal("ready must not carry over to a new stream")
	case <-time.After(20 * time.Millisecond):
	}
	s.Detach()
	s.Detach()
}

func TestSurface_AttachNil(t *testing.T) {
	err := NewSurface(nil).Attach(nil)
	assert.ErrorIs(t, err, scan.ErrSurfaceUnavailable)
}

func TestSlot(t *testing.T) {
	var slot Slot
	_, err := slot.Surface()
	assert.ErrorIs(t, err, scan.ErrSurfaceUnavailable)

	s := NewSurface(nil)
	slot.Mount(s)
	got, err := slot.Surface()
	require.NoError(t, err)
	assert.Same(t, s, got)

	slot.Unmount()
	assert.Nil(t, slot.Current())
}

func makeDevDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o600))
	}
	return dir
}

type openCall struct {
	dev  Device
	w, h int
}

type fakeOpener struct {
	mu    sync.Mutex
	calls []openCall
	errs  map[string]error
}

func (o *fakeOpener) open(_ context.Context, dev Device, w, h int) (scan.Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, openCall{dev, w, h})
	if err := o.errs[dev.Name]; err != nil {
		return nil, err
	}
	return &countingStream{}, nil
}

func TestDevices_ListOrdersByIndex(t *testing.T) {
	dir := makeDevDir(t, "video10", "video2", "null", "video0")
	d := NewDevices(dir, "video2", nil, nil)
	devs, err := d.List()
	require.NoError(t, err)
	require.Len(t, devs, 3)
	assert.Equal(t, []string{"video0", "video2", "video10"}, []string{devs[0].Name, devs[1].Name, devs[2].Name})
	assert.True(t, devs[1].Rear)
	assert.False(t, devs[0].Rear)
}

func TestDevices_NoDevices(t *testing.T) {
	d := NewDevices(makeDevDir(t, "tty0"), "", nil, nil)
	_, err := d.RequestStream(context.Background(), scan.Constraints{})
	assert.ErrorIs(t, err, scan.ErrDeviceNotFound)

	d = NewDevices(filepath.Join(t.TempDir(), "missing"), "", nil, nil)
	_, err = d.RequestStream(context.Background(), scan.Constraints{})
	assert.ErrorIs(t, err, scan.ErrDeviceNotFound)
}

func TestDevices_RearMissingIsOverconstrained(t *testing.T) {
	op := &fakeOpener{}
	d := NewDevices(makeDevDir(t, "video0"), "video3", op.open, nil)
	_, err := d.RequestStream(context.Background(), scan.Constraints{Facing: scan.FacingRear})
	assert.ErrorIs(t, err, scan.ErrOverconstrained)
	assert.Empty(t, op.calls)

	st, err := d.RequestStream(context.Background(), scan.Constraints{})
	require.NoError(t, err)
	assert.NotNil(t, st)
}

func TestDevices_RearPreferredWithResolution(t *testing.T) {
	op := &fakeOpener{}
	d := NewDevices(makeDevDir(t, "video0", "video1"), "video1", op.open, nil)
	_, err := d.RequestStream(context.Background(), scan.Constraints{Facing: scan.FacingRear, Width: 1280, Height: 720})
	require.NoError(t, err)
	require.Len(t, op.calls, 1)
	assert.Equal(t, "video1", op.calls[0].dev.Name)
	assert.Equal(t, 1280, op.calls[0].w)
}

func TestDevices_SkipsBusyDevice(t *testing.T) {
	op := &fakeOpener{}
	d := NewDevices(makeDevDir(t, "video0", "video1"), "", op.open, nil)
	d.probe = func(path string) error {
		if filepath.Base(path) == "video0" {
			return scan.ErrDeviceBusy
		}
		return nil
	}
	_, err := d.RequestStream(context.Background(), scan.Constraints{})
	require.NoError(t, err)
	require.Len(t, op.calls, 1)
	assert.Equal(t, "video1", op.calls[0].dev.Name)
}

func TestDevices_ReportsFirstProbeError(t *testing.T) {
	d := NewDevices(makeDevDir(t, "video0"), "", (&fakeOpener{}).open, nil)
	d.probe = func(string) error { return scan.ErrPermissionDenied }
	_, err := d.RequestStream(context.Background(), scan.Constraints{})
	assert.ErrorIs(t, err, scan.ErrPermissionDenied)

	statuses, err := d.ProbeAll()
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.ErrorIs(t, statuses[0].Err, scan.ErrPermissionDenied)
}

func TestDevices_OverconstrainedOutranksBusy(t *testing.T) {
	op := &fakeOpener{errs: map[string]error{
		"video0": scan.ErrDeviceBusy,
		"video1": scan.ErrOverconstrained,
	}}
	d := NewDevices(makeDevDir(t, "video0", "video1"), "", op.open, nil)
	d.probe = func(string) error { return nil }
	_, err := d.RequestStream(context.Background(), scan.Constraints{Facing: scan.FacingRear, Width: 4000, Height: 3000})
	assert.ErrorIs(t, err, scan.ErrOverconstrained)
}

func TestOpenWithContext_StopsLateStream(t *testing.T) {
	release := make(chan struct{})
	st := &countingStream{}
	open := func(context.Context, Device, int, int) (scan.Stream, error) {
		<-release
		return st, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := openWithContext(ctx, open, Device{Name: "video0"}, 0, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.Eventually(t, st.stopped.Load, time.Second, time.Millisecond)
}

func TestReticleRect(t *testing.T) {
	b := image.Rect(0, 0, 200, 100)
	r := ReticleRect(b, 0.5)
	assert.Equal(t, image.Rect(75, 25, 125, 75), r)

	assert.Equal(t, image.Rect(50, 0, 150, 100), ReticleRect(b, 0))
	assert.Equal(t, 1, ReticleRect(image.Rect(0, 0, 3, 3), 0.01).Dx())

	off := image.Rect(10, 10, 30, 30)
	assert.True(t, ReticleRect(off, 0.5).In(off))
}

func TestCropFrame(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.SetRGBA(5, 5, color.RGBA{R: 200, A: 255})
	crop := CropFrame(src, image.Rect(4, 4, 8, 8))
	defer RecycleFrame(crop)
	assert.Equal(t, image.Rect(0, 0, 4, 4), crop.Bounds())
	assert.Equal(t, color.RGBA{R: 200, A: 255}, crop.RGBAAt(1, 1))

	empty := CropFrame(src, image.Rect(20, 20, 30, 30))
	assert.True(t, empty.Bounds().Empty())
}

func TestAcquireFrameReuse(t *testing.T) {
	a := AcquireFrame(image.Rect(0, 0, 4, 4))
	assert.Len(t, a.Pix, 64)
	RecycleFrame(a)
	b := AcquireFrame(image.Rect(0, 0, 2, 2))
	assert.Len(t, b.Pix, 16)
	assert.Equal(t, 8, b.Stride)
}

func TestApplyConfig_UpdatesNextCycleOptions(t *testing.T) {
	s := scan.NewSession(nil, nil, nil, scan.Options{})
	cfg := config.DefaultConfig()
	cfg.Formats = []string{"code_128", "ean_13"}
	cfg.PassIntervalMS = 40
	cfg.ReadyTimeoutMS = 3000
	cfg.PreferredWidth = 640

	ApplyConfig(s, cfg)
	seen := s.Options()
	assert.Equal(t, []scan.Format{scan.FormatCode128, scan.FormatEAN13}, seen.Formats)
	assert.Equal(t, 40*time.Millisecond, seen.PassInterval)
	assert.Equal(t, 3*time.Second, seen.ReadyTimeout)
	assert.Equal(t, 640, seen.PreferredWidth)
}
