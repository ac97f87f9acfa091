//go:build gocv

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/soocke/herbscan/domain/scan"
)

// resolutionTolerance is how far the negotiated size may drift from the
// requested one before the request counts as unsatisfiable.
const resolutionTolerance = 0.1

// OpenCamera opens dev through OpenCV's video capture backend.
func OpenCamera(ctx context.Context, dev Device, width, height int) (scan.Stream, error) {
	var target any = dev.Path
	if dev.Index >= 0 {
		target = dev.Index
	}
	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", dev.Path, err, scan.ErrDeviceBusy)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("open %s: %w", dev.Path, scan.ErrDeviceBusy)
	}
	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
		gotW := vc.Get(gocv.VideoCaptureFrameWidth)
		gotH := vc.Get(gocv.VideoCaptureFrameHeight)
		if !near(gotW, width) || !near(gotH, height) {
			_ = vc.Close()
			return nil, fmt.Errorf("%s delivers %.0fx%.0f, want %dx%d: %w",
				dev.Path, gotW, gotH, width, height, scan.ErrOverconstrained)
		}
	}
	if err := ctx.Err(); err != nil {
		_ = vc.Close()
		return nil, err
	}
	mat := gocv.NewMat()
	return &gocvStream{label: dev.Name, vc: vc, mat: mat}, nil
}

func near(got float64, want int) bool {
	return math.Abs(got-float64(want)) <= float64(want)*resolutionTolerance
}

type gocvStream struct {
	label string

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

var errStreamStopped = errors.New("stream stopped")

func (s *gocvStream) Read() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errStreamStopped
	}
	if !s.vc.Read(&s.mat) || s.mat.Empty() {
		return nil, fmt.Errorf("%s: empty frame", s.label)
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out, nil
}

func (s *gocvStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.vc.Close()
	if merr := s.mat.Close(); err == nil {
		err = merr
	}
	return err
}

func (s *gocvStream) Label() string { return s.label }
