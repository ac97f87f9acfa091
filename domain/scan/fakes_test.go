package scan

import (
	"context"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeStream struct {
	label    string
	gate     chan struct{} // Stop waits on it when set
	stopping atomic.Bool
	stopped  atomic.Int32
}

func (f *fakeStream) Read() (*image.RGBA, error) { return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil }
func (f *fakeStream) Label() string              { return f.label }

func (f *fakeStream) Stop() error {
	f.stopping.Store(true)
	if f.gate != nil {
		<-f.gate
	}
	f.stopped.Add(1)
	return nil
}

// fakeDevices grants a stream per call unless errs holds an error for
// that call index. When block is set, requests wait on it; ignoreCtx makes
// them ignore cancellation while waiting. stopGate is handed to every
// granted stream.
type fakeDevices struct {
	mu        sync.Mutex
	errs      []error
	calls     []Constraints
	streams   []*fakeStream
	block     chan struct{}
	ignoreCtx bool
	stopGate  chan struct{}
}

func (d *fakeDevices) RequestStream(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	idx := len(d.calls)
	d.calls = append(d.calls, c)
	block := d.block
	d.mu.Unlock()

	if block != nil {
		if d.ignoreCtx {
			<-block
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-block:
			}
		}
	}
	if idx < len(d.errs) && d.errs[idx] != nil {
		return nil, d.errs[idx]
	}
	d.mu.Lock()
	st := &fakeStream{label: "fake", gate: d.stopGate}
	d.streams = append(d.streams, st)
	d.mu.Unlock()
	return st, nil
}

func (d *fakeDevices) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDevices) grantedStreams() []*fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeStream(nil), d.streams...)
}

// fakeSurface becomes ready on Attach unless neverReady is set.
type fakeSurface struct {
	mu         sync.Mutex
	neverReady bool
	ready      chan struct{}
	frame      image.Image
	attached   atomic.Int32
	detached   atomic.Int32
	live       atomic.Bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{ready: make(chan struct{})}
}

func (s *fakeSurface) Attach(Stream) error {
	s.attached.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = make(chan struct{})
	if !s.neverReady {
		s.frame = image.NewRGBA(image.Rect(0, 0, 4, 4))
		close(s.ready)
	}
	s.live.Store(true)
	return nil
}

func (s *fakeSurface) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSurface) Frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *fakeSurface) Detach() {
	s.detached.Add(1)
	s.mu.Lock()
	s.frame = nil
	s.live.Store(false)
	s.mu.Unlock()
}

// slowAttachSurface signals attaching and then sleeps before attaching.
type slowAttachSurface struct {
	*fakeSurface
	attaching chan struct{}
	delay     time.Duration
}

func (s *slowAttachSurface) Attach(st Stream) error {
	close(s.attaching)
	time.Sleep(s.delay)
	return s.fakeSurface.Attach(st)
}

type staticSurfaces struct{ surface Surface }

func (p staticSurfaces) Surface() (Surface, error) { return p.surface, nil }

// gateHandler is a slog handler that parks the first record with message
// msg until release is closed.
type gateHandler struct {
	msg     string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateHandler(msg string) *gateHandler {
	return &gateHandler{msg: msg, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateHandler) Enabled(context.Context, slog.Level) bool { return true }
func (g *gateHandler) WithAttrs([]slog.Attr) slog.Handler       { return g }
func (g *gateHandler) WithGroup(string) slog.Handler            { return g }

func (g *gateHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == g.msg {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return nil
}

type fakeSurfaces struct {
	mu          sync.Mutex
	surface     *fakeSurface
	unavailable int
	calls       int
}

func (p *fakeSurfaces) Surface() (Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.unavailable {
		return nil, ErrSurfaceUnavailable
	}
	return p.surface, nil
}

// scriptedDecoder returns hits[n] on the n-th pass (1-based); every pass
// hits when always is set.
type scriptedDecoder struct {
	mu     sync.Mutex
	hits   map[int]Result
	always *Result
	passes int
}

func (d *scriptedDecoder) Decode(image.Image) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passes++
	if d.always != nil {
		return *d.always, nil
	}
	if r, ok := d.hits[d.passes]; ok {
		return r, nil
	}
	return Result{}, ErrNotFound
}

func (d *scriptedDecoder) passCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passes
}

func factoryFor(dec Decoder) DecoderFactory {
	return func([]Format) (Decoder, error) { return dec, nil }
}

// recorder collects callback invocations.
type recorder struct {
	mu      sync.Mutex
	results []string
	errors  []ErrorDetail
}

func (r *recorder) onResult(text string) {
	r.mu.Lock()
	r.results = append(r.results, text)
	r.mu.Unlock()
}

func (r *recorder) onError(d ErrorDetail) {
	r.mu.Lock()
	r.errors = append(r.errors, d)
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]string, []ErrorDetail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...), append([]ErrorDetail(nil), r.errors...)
}

func testOptions(rec *recorder) Options {
	return Options{
		Logger:          discardLogger,
		ReadyTimeout:    time.Second,
		MountRetryDelay: 5 * time.Millisecond,
		PassInterval:    time.Millisecond,
		AutoCloseDelay:  20 * time.Millisecond,
		OnResult:        rec.onResult,
		OnError:         rec.onError,
	}
}

// waitForPhase waits up to timeout for the session to reach expected.
func waitForPhase(t *testing.T, s *Session, expected Phase, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Phase() == expected {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for phase %v (got %v)", expected, s.Phase())
}
