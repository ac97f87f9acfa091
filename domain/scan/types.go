package scan

import (
	"context"
	"image"
	"log/slog"
	"time"
)

// Phase enumerates the lifecycle states of a scan session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitializing
	PhaseStreaming
	PhaseDecoding
	PhaseSucceeded
	PhaseFailed
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitializing:
		return "initializing"
	case PhaseStreaming:
		return "streaming"
	case PhaseDecoding:
		return "decoding"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Active reports whether a cycle is in flight (acquiring or decoding).
func (p Phase) Active() bool {
	return p == PhaseInitializing || p == PhaseStreaming || p == PhaseDecoding
}

// Facing selects which camera the first acquisition attempt prefers.
type Facing int

const (
	FacingAny Facing = iota
	FacingRear
)

func (f Facing) String() string {
	if f == FacingRear {
		return "rear"
	}
	return "any"
}

// Constraints describe a stream request. Zero Width/Height mean "no preference".
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

// Unconstrained reports whether c asks for any available camera.
func (c Constraints) Unconstrained() bool {
	return c.Facing == FacingAny && c.Width == 0 && c.Height == 0
}

// Format names a barcode symbology understood by the decoder.
type Format string

const (
	FormatCode128 Format = "code_128"
	FormatCode39  Format = "code_39"
	FormatCode93  Format = "code_93"
	FormatEAN13   Format = "ean_13"
	FormatEAN8    Format = "ean_8"
	FormatQR      Format = "qr_code"
	FormatUPCA    Format = "upc_a"
	FormatUPCE    Format = "upc_e"
)

// DefaultFormats is the symbology set used when none is configured.
var DefaultFormats = []Format{
	FormatCode128, FormatCode39, FormatCode93, FormatEAN13,
	FormatEAN8, FormatQR, FormatUPCA, FormatUPCE,
}

// Result is a decoded barcode payload.
type Result struct {
	Text   string
	Format Format
}

// Stream is a live capture device. Stop releases every track obtained from
// the platform and must be safe to call more than once.
type Stream interface {
	Read() (*image.RGBA, error)
	Stop() error
	Label() string
}

// MediaDevices is the platform camera capability.
type MediaDevices interface {
	RequestStream(ctx context.Context, c Constraints) (Stream, error)
}

// Surface renders a stream and exposes its most recent frame.
type Surface interface {
	Attach(Stream) error
	// Ready is closed once the first frame is readable.
	Ready() <-chan struct{}
	// Frame returns the latest frame or nil when none is available yet.
	Frame() image.Image
	Detach()
}

// SurfaceProvider hands out the rendering surface; it returns an error
// wrapping ErrSurfaceUnavailable while the surface is not mounted.
type SurfaceProvider interface {
	Surface() (Surface, error)
}

// Decoder attempts one decode per call and returns ErrNotFound on a miss.
type Decoder interface {
	Decode(img image.Image) (Result, error)
}

// DecoderFactory constructs a decoder for the given symbologies.
type DecoderFactory func(formats []Format) (Decoder, error)

// PhaseListener is called on every phase transition with the cycle ID that
// caused it. Listeners run while the session lock is held and must not call
// back into the session.
type PhaseListener func(cycle string, prev, next Phase)

// Transition is a phase change together with the outcome it carries:
// Result is set when Next is PhaseSucceeded, Detail when it is PhaseFailed.
type Transition struct {
	Cycle  string
	Prev   Phase
	Next   Phase
	Result string
	Detail *ErrorDetail
}

// TransitionListener receives transitions under the same rules as a
// PhaseListener.
type TransitionListener func(Transition)

// Options configure a Session. Zero durations fall back to defaults.
type Options struct {
	Logger          *slog.Logger
	Formats         []Format
	PreferredWidth  int
	PreferredHeight int
	ReadyTimeout    time.Duration
	MountRetryDelay time.Duration
	PassInterval    time.Duration
	AutoCloseDelay  time.Duration

	OnResult func(text string)
	OnError  func(detail ErrorDetail)
}

const (
	DefaultReadyTimeout    = 8 * time.Second
	DefaultMountRetryDelay = 200 * time.Millisecond
	DefaultPassInterval    = 16 * time.Millisecond
	DefaultAutoCloseDelay  = 500 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.MountRetryDelay <= 0 {
		o.MountRetryDelay = DefaultMountRetryDelay
	}
	if o.PassInterval <= 0 {
		o.PassInterval = DefaultPassInterval
	}
	if o.AutoCloseDelay <= 0 {
		o.AutoCloseDelay = DefaultAutoCloseDelay
	}
	if len(o.Formats) == 0 {
		o.Formats = DefaultFormats
	}
	return o
}
