package presenter

import (
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/herbscan/devwatch"
	"github.com/soocke/herbscan/domain/scan"
)

// HotplugWatcher watches the device directory while the last cycle failed
// because no camera was present, and fires once when a video node appears.
type HotplugWatcher struct {
	Logger    *slog.Logger
	Dir       string
	OnArrival func()
	debounce  time.Duration

	mu      sync.Mutex
	watcher *devwatch.Watcher
	gen     uint64
}

// NewHotplugWatcher constructs a disarmed watcher for dir.
func NewHotplugWatcher(logger *slog.Logger, dir string, onArrival func()) *HotplugWatcher {
	return &HotplugWatcher{Logger: logger, Dir: dir, OnArrival: onArrival}
}

// OnFailure should be called from the session's error callback; watching
// starts for DeviceNotFound only.
func (w *HotplugWatcher) OnFailure(d scan.ErrorDetail) {
	if w == nil || d.Kind != scan.KindDeviceNotFound {
		return
	}
	w.arm()
}

// OnPhase is a scan.PhaseListener; a new cycle stops watching. It runs
// under the session lock, so the directory watch is closed asynchronously.
func (w *HotplugWatcher) OnPhase(_ string, _, next scan.Phase) {
	if w == nil {
		return
	}
	if next == scan.PhaseInitializing || next == scan.PhaseClosed {
		if dw := w.disarm(); dw != nil {
			go func() { _ = dw.Close() }()
		}
	}
}

// Watching reports whether the device directory is being watched.
func (w *HotplugWatcher) Watching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watcher != nil
}

func (w *HotplugWatcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return
	}
	w.gen++
	gen := w.gen
	dw, err := devwatch.New(w.Dir, func(ev devwatch.Event) { w.onEvent(gen, ev) }, devwatch.Options{
		Match:    devwatch.IsVideoNode,
		Debounce: w.debounce,
		Logger:   w.Logger,
	})
	if err != nil {
		if w.Logger != nil {
			w.Logger.Warn("device hotplug watch unavailable", "dir", w.Dir, "error", err)
		}
		return
	}
	w.watcher = dw
}

func (w *HotplugWatcher) disarm() *devwatch.Watcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	dw := w.watcher
	w.watcher = nil
	return dw
}

func (w *HotplugWatcher) onEvent(gen uint64, ev devwatch.Event) {
	if ev.Op != devwatch.Added {
		return
	}
	w.mu.Lock()
	if w.gen != gen || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	dw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	_ = dw.Close()
	if w.Logger != nil {
		w.Logger.Info("capture device connected", "path", ev.Path)
	}
	if w.OnArrival != nil {
		w.OnArrival()
	}
}
