// Package web provides the HTTP status server shared by the weather-sync
// binaries.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	log        *logger.Logger

	trigger func()
	nextRun func() time.Time
	live    *LiveSurface
}

// Option adds an optional endpoint to a Server.
type Option func(*Server)

// WithSync enables POST /sync, which calls trigger. nextRun, if set, is
// reported in the JSON status.
func WithSync(trigger func(), nextRun func() time.Time) Option {
	return func(s *Server) {
		s.trigger = trigger
		s.nextRun = nextRun
	}
}

// WithLive serves the live frame stream on /ws.
func WithLive(live *LiveSurface) Option {
	return func(s *Server) { s.live = live }
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, log *logger.Logger, opts ...Option) *Server {
	s := &Server{tracker: tracker, log: log.With("component", "web")}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if s.trigger != nil {
		mux.HandleFunc("/sync", s.handleSync)
	}
	if s.live != nil {
		mux.Handle("/ws", s.live)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.live != nil {
		s.live.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, s.pageData()); err != nil {
		s.log.Warn("render index failed", logger.Err(err))
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatJSON(s.pageData()))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.log.Info("sync requested", "remote", r.RemoteAddr)
	s.trigger()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write(formatSyncResponse(s.nextRunTime()))
}

func (s *Server) nextRunTime() time.Time {
	if s.nextRun == nil {
		return time.Time{}
	}
	return s.nextRun()
}

// pageData is everything the HTML and JSON views show.
type pageData struct {
	status.Snapshot
	Uptime      time.Duration
	SyncEnabled bool
	NextRun     time.Time
	LiveEnabled bool
	LiveClients int
}

func (s *Server) pageData() pageData {
	snap := s.tracker.Snapshot()
	d := pageData{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		SyncEnabled: s.trigger != nil,
		NextRun:     s.nextRunTime(),
		LiveEnabled: s.live != nil,
	}
	if s.live != nil {
		d.LiveClients = s.live.Clients()
	}
	return d
}
