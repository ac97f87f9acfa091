package capture

import (
	"image"
	"time"
)

// FrameSnapshot carries the latest frame published by a surface.
type FrameSnapshot struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// FrameSource provides read-only access to the frames a surface publishes.
type FrameSource interface {
	LatestFrame() FrameSnapshot
	Running() bool
}

// SurfaceStats summarises pump behaviour for instrumentation.
type SurfaceStats struct {
	Frames         uint64
	Skipped        uint64
	AvgRead        time.Duration
	AvgReadMicros  float64
	LastFrame      time.Time
	LatestFrameAge time.Duration
	Sequence       uint64
	Stream         string
}

// Device describes a capture device node.
type Device struct {
	Name  string // e.g. "video0"
	Path  string // e.g. "/dev/video0"
	Index int    // numeric suffix, -1 when absent
	Rear  bool   // matches the configured rear device
}

// ProbeStatus is the result of checking whether a device can be opened.
type ProbeStatus struct {
	Device Device
	Err    error // nil when the device is usable
}
