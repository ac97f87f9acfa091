// Package bridge exposes a scan session to a browser dashboard over HTTP
// and a WebSocket event stream.
package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/soocke/herbscan/assets"
	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/devwatch"
	"github.com/soocke/herbscan/domain/scan"
)

// Session is the part of *scan.Session the bridge drives.
type Session interface {
	Open()
	Close()
	Phase() scan.Phase
	Cycle() string
	LastResult() (string, bool)
	ErrorDetail() (scan.ErrorDetail, bool)
	Stats() scan.Stats
}

// Server routes the HTTP API and relays session events to WebSocket
// clients.
type Server struct {
	session     Session
	cfg         atomic.Pointer[config.Config]
	broadcaster *Broadcaster
	metrics     http.Handler
	logger      *slog.Logger
	now         func() time.Time

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool

	awaitingDevice atomic.Bool
}

// NewServer builds a server for session. metrics may be nil.
func NewServer(cfg *config.Config, session Session, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		session:        session,
		broadcaster:    NewBroadcaster(logger),
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}
	s.cfg.Store(cfg)
	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	return s
}

// Broadcaster returns the event fan-out.
func (s *Server) Broadcaster() *Broadcaster { return s.broadcaster }

// SetConfig swaps the config used for sample links. Allowed origins are
// fixed at construction.
func (s *Server) SetConfig(cfg *config.Config) { s.cfg.Store(cfg) }

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/scan").Subrouter()
	api.Use(s.corsMiddleware)
	api.HandleFunc("/open", s.handleOpen).Methods(http.MethodPost)
	api.HandleFunc("/close", s.handleClose).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/{action}", s.handlePreflight).Methods(http.MethodOptions)
	r.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	return r
}

func (s *Server) link(id string) string { return s.cfg.Load().SampleLink(id) }

// Status snapshots the session.
func (s *Server) Status() Status {
	st := Status{
		Phase: s.session.Phase().String(),
		Cycle: s.session.Cycle(),
		Stats: statsBody(s.session.Stats()),
	}
	if text, ok := s.session.LastResult(); ok {
		st.Result = text
		st.URL = s.link(text)
	}
	if d, ok := s.session.ErrorDetail(); ok {
		st.Error = errorBody(d)
	}
	return st
}

func (s *Server) handleOpen(w http.ResponseWriter, _ *http.Request) {
	s.session.Open()
	s.writeJSON(w, http.StatusAccepted, s.Status())
}

func (s *Server) handleClose(w http.ResponseWriter, _ *http.Request) {
	s.session.Close()
	s.writeJSON(w, http.StatusOK, s.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Status())
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(assets.IndexHTML)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("ws upgrade failed", "remote", r.RemoteAddr, "error", err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("ws client connected", "remote", r.RemoteAddr)
	}
	c := s.broadcaster.AddClient(conn, Event{
		Type:  EventPhase,
		Cycle: s.session.Cycle(),
		Phase: s.session.Phase().String(),
		Time:  s.now(),
	})
	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			if s.logger != nil {
				s.logger.Info("ws client disconnected", "remote", r.RemoteAddr)
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if !s.checkOrigin(r) {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin allows requests without an Origin header, configured origins
// and, when none are configured, same-host and loopback origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

// OnPhase is a scan.PhaseListener. It runs under the session lock and only
// queues messages.
func (s *Server) OnPhase(cycle string, prev, next scan.Phase) {
	if next == scan.PhaseInitializing {
		s.awaitingDevice.Store(false)
	}
	s.broadcaster.Publish(Event{Type: EventPhase, Cycle: cycle, Phase: next.String(), Prev: prev.String(), Time: s.now()})
}

// OnResult publishes the decoded sample and the dashboard URL for it.
func (s *Server) OnResult(text string) {
	link := s.link(text)
	if s.logger != nil {
		s.logger.Info("navigate to sample", "id", text, "url", link)
	}
	s.broadcaster.Publish(Event{Type: EventResult, Text: text, URL: link, Time: s.now()})
}

// OnError publishes the failure. A missing device arms the device watcher
// hint.
func (s *Server) OnError(d scan.ErrorDetail) {
	if d.Kind == scan.KindDeviceNotFound {
		s.awaitingDevice.Store(true)
	}
	s.broadcaster.Publish(Event{
		Type:      EventError,
		Kind:      d.Kind.String(),
		Message:   d.Message,
		Retryable: d.Retryable(),
		Time:      s.now(),
	})
}

// OnDevice publishes a capture device change. A device arriving after a
// DeviceNotFound failure makes that failure retryable.
func (s *Server) OnDevice(ev devwatch.Event) {
	out := Event{Type: EventDevice, Op: ev.Op.String(), Path: ev.Path, Time: s.now()}
	if ev.Op == devwatch.Added && s.awaitingDevice.CompareAndSwap(true, false) {
		out.Message = "camera connected, try again"
		out.Retryable = true
	}
	s.broadcaster.Publish(out)
}
