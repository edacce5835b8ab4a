package live

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/FocuswithJustin/loxoracle/internal/logging"
)

// Server serves the live stream:
//
//	GET /ws      websocket of Message values
//	GET /status  the most recent Message as JSON
type Server struct {
	Hub            *Hub
	AllowedOrigins []string

	srv *http.Server
	ln  net.Listener
}

// NewServer creates a server broadcasting through hub.
func NewServer(hub *Hub) *Server {
	return &Server{Hub: hub}
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", s.Hub.ServeWS(s.AllowedOrigins))
	mux.HandleFunc("GET /status", s.handleStatus)
	return logging.CombinedMiddleware(securityHeaders(mux))
}

// securityHeaders sets the response headers for a JSON-only endpoint.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	last := s.Hub.Last()
	if last == nil {
		last = []byte("{}")
	}
	w.Write(last)
}

// Start listens on addr and serves until ctx is done. It returns the bound
// address, which differs from addr when addr has port 0.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Hub.Run(ctx)
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Error("live server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	logging.ServerStartup("live", ln.Addr().String())
	return ln.Addr(), nil
}
