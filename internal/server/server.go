package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kingrea/roadmap-survey/internal/logbook"
	"github.com/kingrea/roadmap-survey/internal/metrics"
	"github.com/kingrea/roadmap-survey/internal/roadmap"
	"github.com/kingrea/roadmap-survey/internal/survey"
)

// APIVersion identifies the HTTP contract exposed via /health.
const APIVersion = "1.0.0"

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// Logger records server status information. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// Deployment is the survey every session of this server runs.
type Deployment struct {
	Variant survey.Variant
	Title   string
	Seed    roadmap.Seed
	Sink    survey.Sink
}

// Server exposes survey sessions over HTTP. Each session owns its own
// roadmap; the sink, journal and metrics are shared.
type Server struct {
	settings   Settings
	deployment Deployment
	logger     Logger
	logbook    *logbook.Logbook
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	clock      func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time

	sessions *sessionTable
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLogbook journals edits and submissions.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(s *Server) {
		s.logbook = lb
	}
}

// WithMetrics records edit, submission and session instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithGatherer serves the given registry on /metrics. Without it the
// endpoint is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithClock allows tests to control timestamps and session expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a survey server using the provided settings.
func NewServer(settings Settings, deployment Deployment, opts ...Option) *Server {
	if deployment.Variant == "" {
		deployment.Variant = survey.VariantAction
	}
	if deployment.Title == "" {
		deployment.Title = deployment.Variant.Title()
	}
	s := &Server{
		settings:   settings,
		deployment: deployment,
		logger:     nopLogger{},
		clock:      func() time.Time { return time.Now().UTC() },
		status:     StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.sessions = newSessionTable(settings.SessionTTL)
	return s
}

// Handler returns the routed HTTP handler. Start uses it; tests may mount it
// on an httptest server directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/edits", s.handleEdit)
	mux.HandleFunc("POST /sessions/{id}/submit", s.handleSubmit)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server: server is nil")
	}
	if s.deployment.Sink == nil {
		return fmt.Errorf("server: no sink configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server: already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.now()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("server: serve error: %v", err)
		}
	}()
	s.logger.Printf("server: listening on %s (variant=%s sink=%s)", listener.Addr().String(), s.deployment.Variant, s.deployment.Sink.Name())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.listener == nil || s.server == nil {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusDraining
	server := s.server
	s.mu.Unlock()

	// In-flight handlers read server state, so the drain runs unlocked.
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := server.Shutdown(deadline); err != nil {
		return err
	}

	s.mu.Lock()
	if s.server == server {
		s.listener = nil
		s.server = nil
	}
	s.mu.Unlock()
	s.logger.Printf("server: stopped")
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	started := s.startTime
	s.mu.RUnlock()
	if started.IsZero() {
		return 0
	}
	return int64(s.now().Sub(started).Seconds())
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
