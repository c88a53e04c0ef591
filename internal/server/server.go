package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"roadnet-planner/internal/config"
	"roadnet-planner/internal/metrics"
	"roadnet-planner/internal/roadmap"
)

// Server serves one generated road network over HTTP. The network is swapped
// as a whole on rebuild; queries hold a reference to the snapshot they
// started with.
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	metrics *metrics.Registry
	mux     *http.ServeMux

	mu       sync.RWMutex
	network  *roadmap.Network
	building bool
}

// New creates a server with routes registered but no network loaded
func New(cfg config.ServerConfig, logger *zap.Logger, reg *metrics.Registry) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: reg,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /build", s.buildHandler)
	s.mux.HandleFunc("GET /lines", s.linesHandler)
	s.mux.HandleFunc("GET /stats", s.statsHandler)
	s.mux.HandleFunc("POST /route", s.routeHandler)
	s.mux.HandleFunc("GET /nearest", s.nearestHandler)
	s.mux.HandleFunc("GET /health", s.healthHandler)
	if reg != nil {
		s.mux.Handle("GET /metrics", reg.Handler())
	}

	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.requestMiddleware(corsMiddleware(s.mux))
}

// SetNetwork replaces the served network
func (s *Server) SetNetwork(n *roadmap.Network) {
	s.mu.Lock()
	s.network = n
	s.mu.Unlock()
}

// Network returns the currently served network, or nil
func (s *Server) Network() *roadmap.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.logger.Info("🚀 Server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type requestIDKey struct{}

// requestMiddleware tags each request with an ID and records its outcome
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))

		elapsed := time.Since(started)
		s.metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rec.status), elapsed)
		s.logger.Debug("request",
			zap.String("requestId", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return s.logger.With(zap.String("requestId", id))
	}
	return s.logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: err, Message: message})
}
