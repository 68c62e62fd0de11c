// Package health serves the liveness probe.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/shopbot/core/logger"
)

// NewRouter returns the probe handler: GET / answers {"message":"ok"}.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		ctx := logger.WithRID(r.Context(), middleware.GetReqID(r.Context()))
		logger.LogEvent(ctx, logger.HTTP, slog.LevelDebug, "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_status", ww.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

// Server runs the probe until its context ends.
type Server struct {
	srv *http.Server
}

// NewServer listens on port across all interfaces.
func NewServer(port int) *Server {
	return &Server{srv: &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.LogEvent(ctx, logger.HTTP, slog.LevelInfo, "http.listen", slog.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health shutdown: %w", err)
	}
	return nil
}
