package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vova616/screenshot"

	"github.com/soocke/herbscan/domain/scan"
)

// screenFrameInterval paces screen grabs; the grab itself is far slower
// than a camera read and has no natural frame clock.
const screenFrameInterval = 33 * time.Millisecond

// Screen implements scan.MediaDevices over the desktop. It is a fallback
// source for machines without a camera: point a phone showing a barcode at
// a screen share, or scan labels displayed on screen. Facing and resolution
// constraints do not apply.
type Screen struct {
	selection func() *image.Rectangle
	grab      func() (*image.RGBA, error)
	grabRect  func(image.Rectangle) (*image.RGBA, error)
}

// NewScreen returns a screen source. selection may return the region to
// capture; nil or an empty rectangle captures the full screen.
func NewScreen(selection func() *image.Rectangle) *Screen {
	return &Screen{selection: selection, grab: screenshot.CaptureScreen, grabRect: screenshot.CaptureRect}
}

// RequestStream implements scan.MediaDevices.
func (s *Screen) RequestStream(ctx context.Context, _ scan.Constraints) (scan.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("screen: %v: %w", err, scan.ErrDeviceNotFound)
	}
	if r.Empty() {
		return nil, fmt.Errorf("screen: empty display: %w", scan.ErrDeviceNotFound)
	}
	return &screenStream{src: s, last: time.Time{}}, nil
}

type screenStream struct {
	src     *Screen
	mu      sync.Mutex
	last    time.Time
	stopped atomic.Bool
}

func (st *screenStream) Read() (*image.RGBA, error) {
	if st.stopped.Load() {
		return nil, errors.New("screen stream stopped")
	}
	st.mu.Lock()
	if wait := screenFrameInterval - time.Since(st.last); wait > 0 {
		time.Sleep(wait)
	}
	st.last = time.Now()
	st.mu.Unlock()

	if st.src.selection != nil {
		if r := st.src.selection(); r != nil && !r.Empty() {
			return st.src.grabRect(*r)
		}
	}
	return st.src.grab()
}

func (st *screenStream) Stop() error {
	st.stopped.Store(true)
	return nil
}

func (st *screenStream) Label() string { return "screen" }
