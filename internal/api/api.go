package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/errs"
)

const opStart errs.Op = "api.Server.Start"

type Config struct {
	Addr  string
	IsDev bool
}

// Server is a runnable HTTP server.
// It accepts a pre-built handler so route registration stays in the agent.
type Server struct {
	cfg     Config
	handler http.Handler
}

func New(cfg Config, handler http.Handler) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	return &Server{cfg: cfg, handler: handler}
}

func NewFromConfig(cfg *config.Config, handler http.Handler) *Server {
	return New(Config{Addr: cfg.HTTPAddr, IsDev: cfg.IsDev}, handler)
}

// Start implements agent.Service.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errs.E(opStart, errs.KindSystem, err, "cannot listen on "+s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve runs on an existing listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           corsMiddleware(s.handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("api: listening", "addr", ln.Addr().String(), "dev", s.cfg.IsDev)
	select {
	case <-ctx.Done():
		slog.Info("api: shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if err != nil {
			return errs.E(opStart, errs.KindSystem, err, "server stopped")
		}
		return nil
	}
}

// localOrigin accepts pages served from the device itself.
func localOrigin(origin string) bool {
	return origin == "http://localhost" || origin == "http://127.0.0.1" ||
		strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "http://127.0.0.1:")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); localOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
