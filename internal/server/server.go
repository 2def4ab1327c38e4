// Package server exposes the extraction processor over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Alessa-Zeller/text-extraction-backend/internal/activity"
	"github.com/Alessa-Zeller/text-extraction-backend/pkg/pdf"
)

const (
	apiPrefix      = "/api/v1/pdf"
	multipartSlack = 1 << 20
	shutdownGrace  = 15 * time.Second
)

// Options configures the HTTP surface.
type Options struct {
	Addr              string
	UploadDir         string
	MaxUploadSize     int64
	MaxBatchSize      int
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Server routes requests to a shared Processor.
type Server struct {
	opts     Options
	proc     *pdf.Processor
	activity activity.Recorder
	logger   *zap.Logger
	router   chi.Router
}

// New builds the router. rec may be nil.
func New(opts Options, proc *pdf.Processor, rec activity.Recorder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}
	s := &Server{
		opts:     opts,
		proc:     proc,
		activity: rec,
		logger:   logger.Named("http"),
	}

	limiter := newRateLimiter(opts.RateLimitRequests, opts.RateLimitWindow, func(r *http.Request) bool {
		return r.URL.Path == apiPrefix+"/health"
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(limiter.Middleware)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/upload", s.handleUpload)
		r.Post("/batch-upload", s.handleBatchUpload)
		r.Post("/extract", s.handleExtract)
		r.Post("/batch-extract", s.handleBatchExtract)
		r.Post("/search", s.handleSearch)
		r.Post("/summary", s.handleSummary)
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr))
		}()
		next.ServeHTTP(ww, r)
	})
}
