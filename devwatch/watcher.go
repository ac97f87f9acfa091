// Package devwatch reports capture device nodes appearing and disappearing
// in a directory, and changes to individual files such as the config file.
package devwatch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// Op is the kind of change reported for a path.
type Op int

const (
	Added Op = iota
	Removed
	Changed
)

func (o Op) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// Event is a debounced change to one path.
type Event struct {
	Op   Op
	Path string
}

// Handler receives events from the watcher goroutine.
type Handler func(Event)

// Options configure a Watcher. Match filters base names; nil matches all.
type Options struct {
	Match    func(name string) bool
	Debounce time.Duration
	Logger   *slog.Logger
}

// IsVideoNode matches V4L2 capture nodes (video0, video1, ...).
func IsVideoNode(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "video")
}

// FileName returns a matcher for a single base name.
func FileName(path string) func(string) bool {
	base := filepath.Base(path)
	return func(name string) bool { return filepath.Base(name) == base }
}

// Watcher coalesces fsnotify events per path and delivers the last one
// after the debounce interval has passed without further changes.
type Watcher struct {
	dir     string
	opts    Options
	handler Handler
	fs      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]Op
	timer   *time.Timer
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

// New starts watching dir. handler is called from a background goroutine.
func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:     dir,
		opts:    opts,
		handler: handler,
		fs:      fsw,
		pending: make(map[string]Op),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Close stops the watcher. Pending events are dropped.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.fs.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.record(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if w.opts.Logger != nil {
				w.opts.Logger.Warn("watch error", "dir", w.dir, "error", err)
			}
		}
	}
}

func (w *Watcher) record(ev fsnotify.Event) {
	if w.opts.Match != nil && !w.opts.Match(ev.Name) {
		return
	}
	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = Added
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = Removed
	case ev.Has(fsnotify.Write):
		op = Changed
	default:
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[ev.Name] = op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(w.pending))
	for path, op := range w.pending {
		events = append(events, Event{Op: op, Path: path})
	}
	clear(w.pending)
	w.mu.Unlock()

	for _, ev := range events {
		if w.opts.Logger != nil {
			w.opts.Logger.Debug("watched path changed", "op", ev.Op.String(), "path", ev.Path)
		}
		if w.handler != nil {
			w.handler(ev)
		}
	}
}
