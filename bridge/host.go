package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/devwatch"
	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/domain/decode"
	"github.com/soocke/herbscan/domain/scan"
	"github.com/soocke/herbscan/metrics"
)

const shutdownTimeout = 5 * time.Second

// Host owns a headless scan session and the bridge server in front of it.
type Host struct {
	Server  *Server
	Session *scan.Session
	Surface *capture.Surface
	Tuning  *decode.Tuning

	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	watchers []*devwatch.Watcher
}

// NewHost wires session, metrics and server from cfg. cfgPath may be empty,
// in which case the config file is not watched.
func NewHost(cfg *config.Config, cfgPath string, logger *slog.Logger) (*Host, error) {
	h := &Host{cfg: cfg, cfgPath: cfgPath, logger: logger}
	devices, slot, surface := capture.Headless(cfg, logger)
	h.Surface = surface

	opts := capture.SessionOptions(cfg, logger)
	opts.OnResult = func(text string) { h.Server.OnResult(text) }
	opts.OnError = func(d scan.ErrorDetail) { h.Server.OnError(d) }
	h.Tuning = decode.NewTuning(decode.FromConfig(cfg))
	h.Session = scan.NewSession(devices, slot, h.Tuning.Factory(), opts)

	reg, err := metrics.NewRegistry(h.Session)
	if err != nil {
		return nil, fmt.Errorf("metrics registry: %w", err)
	}
	h.Server = NewServer(cfg, h.Session, metrics.Handler(reg), logger)
	h.Session.AddListener(h.Server.OnPhase)
	return h, nil
}

// Run serves on cfg.ListenAddr until ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", h.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.cfg.ListenAddr, err)
	}
	return h.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then closes the session.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	h.startWatchers()
	defer h.stopWatchers()

	srv := &http.Server{Handler: h.Server.Router(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	if h.logger != nil {
		h.logger.Info("bridge listening", "addr", ln.Addr().String())
	}

	select {
	case err := <-errc:
		h.Session.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	h.Session.Close()
	h.Server.Broadcaster().CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown bridge: %w", err)
	}
	return nil
}

func (h *Host) startWatchers() {
	if h.cfg.Source == config.SourceCamera {
		w, err := devwatch.New(h.cfg.DeviceDir, h.Server.OnDevice, devwatch.Options{Match: devwatch.IsVideoNode, Logger: h.logger})
		if err != nil {
			h.warn("device watcher disabled", err)
		} else {
			h.watchers = append(h.watchers, w)
		}
	}
	if h.cfgPath != "" {
		w, err := devwatch.New(filepath.Dir(h.cfgPath), func(ev devwatch.Event) {
			if ev.Op != devwatch.Removed {
				h.Reload()
			}
		}, devwatch.Options{Match: devwatch.FileName(h.cfgPath), Logger: h.logger})
		if err != nil {
			h.warn("config watcher disabled", err)
		} else {
			h.watchers = append(h.watchers, w)
		}
	}
}

func (h *Host) stopWatchers() {
	for _, w := range h.watchers {
		_ = w.Close()
	}
	h.watchers = nil
}

// Reload re-reads the config file and applies the session timing, format
// and resolution fields and the decoder tuning from the next cycle on; the
// scan region also applies to a running decoder. Source, device and listen
// settings need a restart.
func (h *Host) Reload() {
	cfg, err := config.Load(h.cfgPath)
	if err != nil {
		h.warn("config reload failed", err)
		return
	}
	capture.ApplyConfig(h.Session, cfg)
	h.Tuning.Store(decode.FromConfig(cfg))
	h.Server.SetConfig(cfg)
	if h.logger != nil {
		h.logger.Info("config reloaded", "path", h.cfgPath)
	}
}

func (h *Host) warn(msg string, err error) {
	if h.logger != nil {
		h.logger.Warn(msg, "error", err)
	}
}
