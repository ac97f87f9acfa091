package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session manages one camera scanner: acquire a stream, attach it to a
// surface, decode until a barcode is found, then release the device.
// Each Open starts a fresh cycle; Close tears the current one down.
type Session struct {
	devices  MediaDevices
	surfaces SurfaceProvider
	decoders DecoderFactory
	opts     Options
	logger   *slog.Logger

	mu         sync.Mutex
	phase      Phase
	cur        *cycle
	lastResult string
	hasResult  bool
	errDetail  *ErrorDetail
	listeners  []PhaseListener
	observers  []TransitionListener

	stats counters
}

// cycle is the state owned by a single Open call. Fields other than id,
// opts, ctx, cancel and done are guarded by Session.mu.
type cycle struct {
	id     string
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	handle    *handle
	closed    bool
	emitted   bool
	emitting  bool
	emitter   uint64 // goroutine running the host callback while emitting
	autoClose *time.Timer
}

// handle is the CameraHandle: the granted stream plus the surface it is
// attached to. release is idempotent.
type handle struct {
	stream  Stream
	surface Surface
	once    sync.Once
}

func (h *handle) release(logger *slog.Logger) {
	if h == nil {
		return
	}
	h.once.Do(func() {
		// Detach first so the surface pump is no longer reading when tracks stop.
		if h.surface != nil {
			h.surface.Detach()
		}
		if err := h.stream.Stop(); err != nil && logger != nil {
			logger.Warn("stream stop failed", "stream", h.stream.Label(), "error", err)
		}
		if logger != nil {
			logger.Debug("camera released", "stream", h.stream.Label())
		}
	})
}

// NewSession constructs an idle session.
func NewSession(devices MediaDevices, surfaces SurfaceProvider, decoders DecoderFactory, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		devices:  devices,
		surfaces: surfaces,
		decoders: decoders,
		opts:     opts,
		logger:   opts.Logger,
		phase:    PhaseIdle,
	}
}

// Reconfigure applies update to a copy of the session options. The new
// options take effect from the next Open; a running cycle keeps its own.
// The logger cannot be replaced.
func (s *Session) Reconfigure(update func(*Options)) {
	if update == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := s.opts
	opts.Formats = append([]Format(nil), s.opts.Formats...)
	update(&opts)
	opts.Logger = s.logger
	s.opts = opts.withDefaults()
}

// Options returns a copy of the options the next cycle will use.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := s.opts
	opts.Formats = append([]Format(nil), s.opts.Formats...)
	return opts
}

// AddListener registers a phase listener.
func (s *Session) AddListener(l PhaseListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// AddTransitionListener registers a listener that also receives the
// result or failure of the cycle with the transition that records it.
func (s *Session) AddTransitionListener(l TransitionListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, l)
	s.mu.Unlock()
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Cycle returns the ID of the current cycle, or "" when none is open.
func (s *Session) Cycle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.id
}

// LastResult returns the decoded text of the latest successful cycle.
func (s *Session) LastResult() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.hasResult
}

// ErrorDetail returns the failure of the current cycle while in PhaseFailed.
func (s *Session) ErrorDetail() (ErrorDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errDetail == nil || s.phase != PhaseFailed {
		return ErrorDetail{}, false
	}
	return *s.errDetail, true
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return s.stats.snapshot(s.Phase())
}

// Open starts a scan cycle. It is a no-op while a cycle is acquiring or
// decoding. Anything left over from an earlier cycle is released first.
func (s *Session) Open() {
	s.mu.Lock()
	if s.phase.Active() {
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Debug("scan open ignored", "phase", s.Phase().String())
		}
		return
	}
	old, leftover, wait := s.detachLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c := &cycle{id: uuid.NewString(), opts: s.opts, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	s.cur = c
	s.errDetail = nil
	s.lastResult, s.hasResult = "", false
	s.setPhaseLocked(c.id, PhaseInitializing)
	s.mu.Unlock()

	leftover.release(s.logger)
	if wait {
		<-old.done
	}
	s.stats.opens.Add(1)
	go s.run(c)
}

// Close cancels any pending work, releases the camera and moves the
// session to PhaseClosed. It is safe to call from any phase and more than
// once. Once Close returns no callback of the closed cycle will start, and
// a callback already running on another goroutine has returned.
func (s *Session) Close() {
	s.mu.Lock()
	c, h, wait := s.detachLocked()
	s.mu.Unlock()

	h.release(s.logger)

	s.mu.Lock()
	id := ""
	if c != nil {
		id = c.id
	}
	// An Open that raced the release owns the phase now.
	if s.cur == nil {
		s.setPhaseLocked(id, PhaseClosed)
	}
	s.mu.Unlock()
	if wait {
		<-c.done
	}
}

// closeCycle closes the session only if c is still the current cycle.
func (s *Session) closeCycle(c *cycle) {
	s.mu.Lock()
	if s.cur != c {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.Close()
}

// detachLocked marks the current cycle closed, cancels its worker and
// hands back its camera handle for the caller to release once s.mu is
// dropped. wait reports whether the caller should block on the worker; it
// is false only when the caller is the worker itself, inside a host
// callback.
func (s *Session) detachLocked() (c *cycle, h *handle, wait bool) {
	c = s.cur
	if c == nil {
		return nil, nil, false
	}
	s.cur = nil
	c.closed = true
	c.cancel()
	if c.autoClose != nil {
		c.autoClose.Stop()
		c.autoClose = nil
	}
	h, c.handle = c.handle, nil
	wait = !c.emitting || c.emitter != goroutineID()
	return c, h, wait
}

func (s *Session) setPhaseLocked(cycleID string, next Phase) {
	prev := s.phase
	if prev == next {
		return
	}
	s.phase = next
	if s.logger != nil {
		s.logger.Debug("scan phase transition", "from", prev.String(), "to", next.String(), "cycle", cycleID)
	}
	for _, l := range s.listeners {
		l(cycleID, prev, next)
	}
	if len(s.observers) == 0 {
		return
	}
	tr := Transition{Cycle: cycleID, Prev: prev, Next: next}
	switch next {
	case PhaseSucceeded:
		tr.Result = s.lastResult
	case PhaseFailed:
		if s.errDetail != nil {
			d := *s.errDetail
			tr.Detail = &d
		}
	}
	for _, o := range s.observers {
		o(tr)
	}
}

// advance moves c to next unless it has been closed.
func (s *Session) advance(c *cycle, next Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return false
	}
	s.setPhaseLocked(c.id, next)
	return true
}

func (s *Session) run(c *cycle) {
	defer close(c.done)
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error("scan worker panic", "error", r, "stack", string(debug.Stack()))
			}
			s.fail(c, Classify(panicError(r)))
		}
	}()

	// Acquisition and first-frame readiness share one deadline.
	startCtx, cancel := context.WithTimeout(c.ctx, c.opts.ReadyTimeout)
	defer cancel()

	surface, err := s.mountSurface(startCtx, c.opts.MountRetryDelay)
	if err != nil {
		s.failErr(c, startCtx, err)
		return
	}
	stream, err := s.acquire(startCtx, c.opts)
	if err != nil {
		s.failErr(c, startCtx, err)
		return
	}
	if !s.adopt(c, stream, surface) {
		return
	}
	if err := surface.Attach(stream); err != nil {
		s.failErr(c, startCtx, err)
		return
	}
	if c.ctx.Err() != nil {
		// Close released the handle while the stream was being attached.
		surface.Detach()
		return
	}

	select {
	case <-surface.Ready():
	case <-startCtx.Done():
		s.failErr(c, startCtx, fmt.Errorf("%w after %s", ErrSurfaceTimeout, c.opts.ReadyTimeout))
		return
	}
	if !s.advance(c, PhaseStreaming) {
		return
	}

	dec, err := s.newDecoder(c.opts.Formats)
	if err != nil {
		s.failErr(c, startCtx, err)
		return
	}
	s.decodeLoop(c, surface, dec)
}

// mountSurface fetches the rendering surface, retrying once after
// MountRetryDelay when it is not mounted yet.
func (s *Session) mountSurface(ctx context.Context, retryDelay time.Duration) (Surface, error) {
	if s.surfaces == nil {
		return nil, ErrSurfaceUnavailable
	}
	surface, err := s.surfaces.Surface()
	if err == nil {
		return surface, nil
	}
	if !errors.Is(err, ErrSurfaceUnavailable) {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Warn("surface not mounted, retrying", "delay", retryDelay)
	}
	t := time.NewTimer(retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}
	return s.surfaces.Surface()
}

// acquire requests the rear camera at the preferred resolution and falls
// back to any camera exactly once when those constraints are unsatisfiable.
func (s *Session) acquire(ctx context.Context, opts Options) (Stream, error) {
	if s.devices == nil {
		return nil, ErrDeviceNotFound
	}
	preferred := Constraints{Facing: FacingRear, Width: opts.PreferredWidth, Height: opts.PreferredHeight}
	stream, err := s.devices.RequestStream(ctx, preferred)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, ErrOverconstrained) {
		return nil, err
	}
	s.stats.fallbacks.Add(1)
	if s.logger != nil {
		s.logger.Info("rear camera unavailable, trying any camera", "error", err)
	}
	return s.devices.RequestStream(ctx, Constraints{})
}

// adopt records the stream as the cycle's handle. A stream granted after
// the cycle was closed is stopped immediately.
func (s *Session) adopt(c *cycle, stream Stream, surface Surface) bool {
	h := &handle{stream: stream, surface: surface}
	s.mu.Lock()
	if c.closed {
		s.mu.Unlock()
		h.release(s.logger)
		return false
	}
	c.handle = h
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("camera acquired", "stream", stream.Label(), "cycle", c.id)
	}
	return true
}

func (s *Session) newDecoder(formats []Format) (Decoder, error) {
	if s.decoders == nil {
		return nil, fmt.Errorf("%w: no decoder configured", ErrDecoderInit)
	}
	dec, err := s.decoders(formats)
	if err != nil {
		if errors.Is(err, ErrDecoderInit) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecoderInit, err)
	}
	return dec, nil
}

// failErr classifies err and fails the cycle. Errors caused by the cycle
// being cancelled are dropped.
func (s *Session) failErr(c *cycle, startCtx context.Context, err error) {
	if c.ctx.Err() != nil {
		return
	}
	if startCtx.Err() != nil && !errors.Is(err, ErrSurfaceTimeout) {
		err = fmt.Errorf("%w after %s: %w", ErrSurfaceTimeout, c.opts.ReadyTimeout, err)
	}
	s.fail(c, Classify(err))
}

// fail releases the handle, enters PhaseFailed and reports detail.
func (s *Session) fail(c *cycle, detail ErrorDetail) {
	if !s.finish(c) {
		return
	}
	s.mu.Lock()
	if c.closed {
		s.mu.Unlock()
		return
	}
	s.errDetail = &detail
	s.setPhaseLocked(c.id, PhaseFailed)
	s.stats.failed(detail.Kind)
	if s.logger != nil {
		s.logger.Warn("scan failed", "kind", detail.Kind.String(), "error", detail.Err, "cycle", c.id)
	}
	s.beginEmitLocked(c)
	s.mu.Unlock()

	if c.opts.OnError != nil {
		s.emit(c, func() { c.opts.OnError(detail) })
	}

	s.mu.Lock()
	s.endEmitLocked(c)
	s.mu.Unlock()
}

// succeed records the result, releases the camera before emitting it and
// schedules the automatic close.
func (s *Session) succeed(c *cycle, res Result) {
	if !s.finish(c) {
		return
	}
	s.mu.Lock()
	if c.closed {
		s.mu.Unlock()
		return
	}
	s.lastResult, s.hasResult = res.Text, true
	s.setPhaseLocked(c.id, PhaseSucceeded)
	s.stats.results.Add(1)
	if s.logger != nil {
		s.logger.Info("barcode decoded", "text", res.Text, "format", string(res.Format), "cycle", c.id)
	}
	s.beginEmitLocked(c)
	s.mu.Unlock()

	if c.opts.OnResult != nil {
		s.emit(c, func() { c.opts.OnResult(res.Text) })
	}

	s.mu.Lock()
	s.endEmitLocked(c)
	if !c.closed {
		c.autoClose = time.AfterFunc(c.opts.AutoCloseDelay, func() { s.closeCycle(c) })
	}
	s.mu.Unlock()
}

// finish claims the single terminal outcome of c and releases its camera
// outside the lock. It reports false when c was closed or already finished.
func (s *Session) finish(c *cycle) bool {
	s.mu.Lock()
	if c.closed || c.emitted {
		s.mu.Unlock()
		return false
	}
	c.emitted = true
	h := c.handle
	c.handle = nil
	s.mu.Unlock()

	h.release(s.logger)
	return true
}

func (s *Session) beginEmitLocked(c *cycle) {
	c.emitting = true
	c.emitter = goroutineID()
}

func (s *Session) endEmitLocked(c *cycle) {
	c.emitting = false
	c.emitter = 0
}

// emit runs fn unless c was closed after the outcome was recorded.
func (s *Session) emit(c *cycle, fn func()) {
	s.mu.Lock()
	closed := c.closed
	s.mu.Unlock()
	if closed {
		return
	}
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Error("scan callback panic", "error", r)
		}
	}()
	fn()
}

// goroutineID parses the current goroutine's id from its stack header.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
