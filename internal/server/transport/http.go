package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/server/lifecycle"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	DefaultPath         = "/mcp"
	DefaultDrainTimeout = 5 * time.Second
	DefaultReadTimeout  = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// HTTP serves the MCP server over streamable HTTP at Path, with a liveness
// probe at /healthz.
type HTTP struct {
	server       *mcp.Server
	addr         string
	path         string
	drainTimeout time.Duration
	logger       *slog.Logger
}

var _ lifecycle.Connector = (*HTTP)(nil)

// HTTPOption configures an HTTP connector.
type HTTPOption func(*HTTP)

// WithPath mounts the MCP endpoint somewhere other than /mcp.
func WithPath(path string) HTTPOption {
	return func(h *HTTP) {
		if path != "" {
			h.path = path
		}
	}
}

// WithDrainTimeout bounds graceful shutdown of in-flight requests.
func WithDrainTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		if d > 0 {
			h.drainTimeout = d
		}
	}
}

// WithHTTPLogHandler sets the slog handler for listener logs.
func WithHTTPLogHandler(handler slog.Handler) HTTPOption {
	return func(h *HTTP) {
		if handler != nil {
			h.logger = slog.New(handler).WithGroup("transport.HTTP")
		}
	}
}

// NewHTTP creates a streamable HTTP connector listening on addr.
func NewHTTP(server *mcp.Server, addr string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		server:       server,
		addr:         addr,
		path:         DefaultPath,
		drainTimeout: DefaultDrainTimeout,
		logger:       slog.Default().WithGroup("transport.HTTP"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns the router: the MCP endpoint plus /healthz.
func (h *HTTP) Handler() http.Handler {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return h.server
	}, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", handleHealth)
	r.Handle(h.path, mcpHandler)
	r.Handle(h.path+"/*", mcpHandler)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Connect binds the listener and serves in the background. Binding errors are
// returned here so the controller never reaches ready on a dead port.
func (h *HTTP) Connect(ctx context.Context) (lifecycle.Session, error) {
	if h.server == nil {
		return nil, ErrMissingServer
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", h.addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	s := &httpSession{
		srv: &http.Server{
			Handler:           h.Handler(),
			ReadHeaderTimeout: DefaultReadTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		addr:         ln.Addr().String(),
		drainTimeout: h.drainTimeout,
		logger:       h.logger,
		done:         make(chan struct{}),
	}
	h.logger.Info("Starting HTTP listener", "address", s.addr, "path", h.path)
	go s.serve(ln)
	return s, nil
}

// httpSession adapts an http.Server to lifecycle.Session.
type httpSession struct {
	srv          *http.Server
	addr         string
	drainTimeout time.Duration
	logger       *slog.Logger

	done chan struct{}
	err  error

	closeOnce sync.Once
	closeErr  error
}

// Addr returns the bound address, useful when listening on port 0.
func (s *httpSession) Addr() string {
	return s.addr
}

func (s *httpSession) serve(ln net.Listener) {
	defer close(s.done)
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.err = err
	}
}

// Wait blocks until the listener stops. It returns nil after Close.
func (s *httpSession) Wait() error {
	<-s.done
	return s.err
}

// Close drains in-flight requests, then stops the listener.
func (s *httpSession) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to gracefully shutdown server", "address", s.addr, "error", err)
			s.closeErr = errors.Join(err, s.srv.Close())
			return
		}
		s.logger.Info("HTTP server shutdown complete", "address", s.addr)
	})
	return s.closeErr
}
