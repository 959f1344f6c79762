package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server serves the health endpoint backed by a Probe.
type Server struct {
	probe *Probe
	addr  string
	path  string
}

// NewServer creates a health Server listening on host:port.
func NewServer(probe *Probe, host string, port int, path string) *Server {
	if path == "" {
		path = "/health"
	}
	return &Server{
		probe: probe,
		addr:  fmt.Sprintf("%s:%d", host, port),
		path:  path,
	}
}

// Handler returns the HTTP handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	code := http.StatusOK
	if !s.probe.Healthy() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	body := map[string]any{"status": status}
	if err := s.probe.LastError(); err != nil && status == "degraded" {
		body["error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("health server listening", "addr", s.addr, "path", s.path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("health server: %w", err)
	}
}
