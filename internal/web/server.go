package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vbonduro/nutrisnap/internal/domain"
	"github.com/vbonduro/nutrisnap/internal/logging"
	"github.com/vbonduro/nutrisnap/internal/metrics"
	"github.com/vbonduro/nutrisnap/internal/photostore"
	"github.com/vbonduro/nutrisnap/internal/service"
)

const shutdownTimeout = 15 * time.Second

// imageAnalyzer is the subset of service.Analyzer that Server requires.
type imageAnalyzer interface {
	Analyze(ctx context.Context, imageBase64 string) (*service.Result, error)
}

// historyStore is the subset of store.AnalysisStore that Server requires.
type historyStore interface {
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	List(ctx context.Context, limit int) ([]*domain.Analysis, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	MaxBodyBytes   int64
	AllowedOrigins []string
	// WriteTimeout must cover both upstream calls of one analysis.
	WriteTimeout time.Duration
}

type Server struct {
	analyzer imageAnalyzer
	history  historyStore
	archive  photostore.PhotoStore
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	opts     Options
	mux      *http.ServeMux
	logger   *slog.Logger
}

func NewServer(a imageAnalyzer, m *metrics.Metrics, g prometheus.Gatherer, opts Options, logger *slog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 150 * time.Second
	}
	s := &Server{
		analyzer: a,
		metrics:  m,
		gatherer: g,
		opts:     opts,
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

// WithHistory enables the /api/analyses endpoints.
func (s *Server) WithHistory(h historyStore) *Server {
	s.history = h
	return s
}

// WithArchive enables serving archived images.
func (s *Server) WithArchive(ps photostore.PhotoStore) *Server {
	s.archive = ps
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/analyze-image", s.handleAnalyzeImage)
	s.mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	s.mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)
	s.mux.HandleFunc("DELETE /api/analyses/{id}", s.handleDeleteAnalysis)
	s.mux.HandleFunc("GET /api/analyses/{id}/image", s.handleGetAnalysisImage)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
	})
	s.mux.Handle("GET /metrics", metrics.Handler(s.gatherer))
}

// securityHeaders sets browser hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and sets CORS headers on /api/ routes for
// the configured origins. "*" allows any origin.
func cors(allowed []string, next http.Handler) http.Handler {
	allowAll := slices.Contains(allowed, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		h := w.Header()
		switch {
		case origin == "":
		case allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(allowed, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		if h.Get("Access-Control-Allow-Origin") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Expose-Headers", "X-Analysis-ID, X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags the request with an id, then logs and counts it once
// the handler returns.
func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(logging.WithRequestID(r.Context(), id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, rec.status, time.Since(start))
		logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, cors(s.opts.AllowedOrigins, securityHeaders(s.mux))).ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
