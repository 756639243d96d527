package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"streampilot/internal/domain"
	"streampilot/internal/domain/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SessionManager is the playback surface the HTTP layer drives. Implemented
// by session.Manager.
type SessionManager interface {
	Start(ctx context.Context, req domain.ContentRequest) (domain.SessionSnapshot, error)
	Current() (domain.SessionSnapshot, error)
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Seek(ctx context.Context, offsetMs int64) error
	ReportBad(ctx context.Context, reason string) error
	SetAutoPlay(ctx context.Context, seriesID string, enabled bool) error
	AutoPlay(ctx context.Context, seriesID string) bool
}

type Server struct {
	sessions       SessionManager
	progress       ports.WatchProgressStore
	errorLog       ports.ErrorLogStore
	hub            *Hub
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
}

type ServerOption func(*Server)

func WithWatchProgress(store ports.WatchProgressStore) ServerOption {
	return func(s *Server) {
		s.progress = store
	}
}

func WithErrorLog(store ports.ErrorLogStore) ServerOption {
	return func(s *Server) {
		s.errorLog = store
	}
}

func WithHub(hub *Hub) ServerOption {
	return func(s *Server) {
		s.hub = hub
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(sessions SessionManager, opts ...ServerOption) *Server {
	s := &Server{sessions: sessions}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/playback", s.handlePlayback)
	mux.HandleFunc("/playback/pause", s.handlePause)
	mux.HandleFunc("/playback/resume", s.handleResume)
	mux.HandleFunc("/playback/seek", s.handleSeek)
	mux.HandleFunc("/playback/report-bad", s.handleReportBad)
	mux.HandleFunc("/settings/autoplay", s.handleAutoPlaySettings)
	mux.HandleFunc("/watch-progress", s.handleWatchProgress)
	mux.HandleFunc("/errors/recent", s.handleRecentErrors)
	mux.HandleFunc("/internal/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "streampilot",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/internal/health" && !strings.HasPrefix(p, "/ws")
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	s.hub.HandleUpgrade(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	status := map[string]any{"status": "ok"}
	if s.hub != nil {
		status["wsClients"] = s.hub.ClientCount()
	}
	if snap, err := s.sessions.Current(); err == nil {
		status["sessionPhase"] = snap.Phase
	}
	writeJSON(w, http.StatusOK, status)
}
