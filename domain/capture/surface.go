package capture

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/herbscan/domain/scan"
)

const (
	surfaceStatsLogInterval = 5 * time.Second
	detachTimeout           = 2 * time.Second
	readErrorBackoff        = 5 * time.Millisecond
)

// Surface pumps frames from an attached stream and keeps the latest one
// available to the decoder and the preview. It implements scan.Surface.
type Surface struct {
	logger *slog.Logger

	mu     sync.Mutex
	stream scan.Stream
	ready  chan struct{}
	stop   chan struct{}
	done   chan struct{}

	running   atomic.Bool
	latest    atomic.Pointer[FrameSnapshot]
	frames    atomic.Uint64
	skipped   atomic.Uint64
	readNanos atomic.Uint64
	sequence  atomic.Uint64
	label     atomic.Pointer[string]
}

// NewSurface returns a detached surface.
func NewSurface(logger *slog.Logger) *Surface {
	return &Surface{logger: logger, ready: make(chan struct{})}
}

// Attach starts pumping frames from stream, replacing any earlier stream.
func (s *Surface) Attach(stream scan.Stream) error {
	if stream == nil {
		return fmt.Errorf("attach: %w", scan.ErrSurfaceUnavailable)
	}
	s.Detach()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
	s.ready = make(chan struct{})
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	label := stream.Label()
	s.label.Store(&label)
	s.running.Store(true)
	go s.loop(stream, s.ready, s.stop, s.done)
	return nil
}

// Ready is closed once the first frame of the current stream is published.
func (s *Surface) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Frame returns the latest frame or nil.
func (s *Surface) Frame() image.Image {
	snap := s.latest.Load()
	if snap == nil || snap.Image == nil {
		return nil
	}
	return snap.Image
}

// Detach stops the pump and drops the latest frame. The stream itself is
// not stopped; its owner does that.
func (s *Surface) Detach() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done, s.stream = nil, nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(detachTimeout):
		if s.logger != nil {
			s.logger.Warn("surface pump did not stop in time", "timeout", detachTimeout)
		}
	}
	s.running.Store(false)
	s.latest.Store(nil)
}

// LatestFrame returns the newest snapshot, or the zero value.
func (s *Surface) LatestFrame() FrameSnapshot {
	snap := s.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}

// Running reports whether a stream is attached.
func (s *Surface) Running() bool { return s.running.Load() }

// Stats returns pump counters.
func (s *Surface) Stats() SurfaceStats {
	frames := s.frames.Load()
	total := s.readNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if frames > 0 && total > 0 {
		avg = time.Duration(total / frames)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	snap := s.LatestFrame()
	age := time.Duration(0)
	if !snap.CapturedAt.IsZero() {
		age = time.Since(snap.CapturedAt)
	}
	label := ""
	if l := s.label.Load(); l != nil {
		label = *l
	}
	return SurfaceStats{
		Frames:         frames,
		Skipped:        s.skipped.Load(),
		AvgRead:        avg,
		AvgReadMicros:  avgMicros,
		LastFrame:      snap.CapturedAt,
		LatestFrameAge: age,
		Sequence:       snap.Sequence,
		Stream:         label,
	}
}

func (s *Surface) loop(stream scan.Stream, ready, stop, done chan struct{}) {
	defer close(done)
	defer s.recoverLog()
	logTicker := time.NewTicker(surfaceStatsLogInterval)
	defer logTicker.Stop()
	first := true
	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		img, err := stream.Read()
		if err != nil || img == nil {
			s.skipped.Add(1)
			if err != nil && s.logger != nil {
				s.logger.Debug("surface read", "stream", stream.Label(), "error", err)
			}
			select {
			case <-stop:
				return
			case <-time.After(readErrorBackoff):
			}
			continue
		}

		// A frame read after stop was requested belongs to a detached stream.
		select {
		case <-stop:
			return
		default:
		}
		s.readNanos.Add(uint64(time.Since(start).Nanoseconds()))
		s.frames.Add(1)
		seq := s.sequence.Add(1)
		s.latest.Store(&FrameSnapshot{Image: img, CapturedAt: time.Now(), Sequence: seq})
		if first {
			first = false
			close(ready)
		}

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}
		time.Sleep(200 * time.Microsecond)
	}
}

func (s *Surface) recoverLog() {
	if r := recover(); r != nil && s.logger != nil {
		s.logger.Error("surface pump panic", "error", r)
	}
}

func (s *Surface) logStats() {
	if s.logger == nil {
		return
	}
	st := s.Stats()
	s.logger.Debug("surface.stats",
		"frames", st.Frames,
		"skipped", st.Skipped,
		"avg_read", st.AvgRead,
		"age", st.LatestFrameAge,
		"stream", st.Stream,
	)
}

// Slot holds the surface while its host view is mounted. It implements
// scan.SurfaceProvider.
type Slot struct {
	mu      sync.Mutex
	surface *Surface
}

// MountedSlot returns a slot that already holds surface.
func MountedSlot(surface *Surface) *Slot {
	return &Slot{surface: surface}
}

// Mount makes surface available to sessions.
func (s *Slot) Mount(surface *Surface) {
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
}

// Unmount detaches and removes the surface.
func (s *Slot) Unmount() {
	s.mu.Lock()
	surface := s.surface
	s.surface = nil
	s.mu.Unlock()
	if surface != nil {
		surface.Detach()
	}
}

// Current returns the mounted surface or nil.
func (s *Slot) Current() *Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Surface implements scan.SurfaceProvider.
func (s *Slot) Surface() (scan.Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil {
		return nil, scan.ErrSurfaceUnavailable
	}
	return s.surface, nil
}
