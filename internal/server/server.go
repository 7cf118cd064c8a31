package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/thruflo/wordcloud/internal/config"
	"github.com/thruflo/wordcloud/internal/gateway"
	"github.com/thruflo/wordcloud/internal/hub"
	"github.com/thruflo/wordcloud/internal/logging"
	"github.com/thruflo/wordcloud/internal/metrics"
	"github.com/thruflo/wordcloud/web"
)

// Server is the word cloud's HTTP surface.
type Server struct {
	host string
	port int

	hub     *hub.Hub
	metrics *metrics.Collector
	logger  *logging.Logger

	handler     http.Handler
	upgrader    websocket.Upgrader
	resetLimits *rateLimiter

	// HTTP server
	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	started  bool
}

// Config holds server configuration options.
type Config struct {
	Host string
	Port int

	// UpstreamURL is the embedding service mounted under ProxyPrefix.
	UpstreamURL string
	ProxyPrefix string

	// Hub is required and must be running before the server accepts
	// websocket connections.
	Hub *hub.Hub

	// Metrics is optional; /metrics is only served when it is set.
	Metrics *metrics.Collector

	// Logger defaults to logging.Default().
	Logger *logging.Logger

	// Assets overrides the embedded web client.
	Assets fs.FS

	// ResetLimit bounds POST /admin/reset per client address.
	ResetLimit RateLimitConfig
}

// NewServer creates a new Server instance.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("hub is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	proxy, err := gateway.NewProxy(cfg.UpstreamURL, cfg.ProxyPrefix, gateway.WithProxyLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream proxy: %w", err)
	}

	assets := cfg.Assets
	if assets == nil {
		assets = web.GetAssets("")
	}

	s := &Server{
		host:        cfg.Host,
		port:        cfg.Port,
		hub:         cfg.Hub,
		metrics:     cfg.Metrics,
		logger:      logger,
		resetLimits: newRateLimiter(cfg.ResetLimit),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any page may connect, as any origin may call the REST endpoints.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.handler = s.routes(proxy, cfg.ProxyPrefix, assets)
	return s, nil
}

// NewServerFromConfig creates a Server from the loaded configuration.
func NewServerFromConfig(cfg *config.Config, h *hub.Hub, m *metrics.Collector, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return NewServer(&Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		UpstreamURL: cfg.Upstream.URL,
		ProxyPrefix: cfg.Upstream.Prefix,
		Hub:         h,
		Metrics:     m,
		Logger:      logger,
		ResetLimit:  DefaultRateLimitConfig(),
	})
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the server's router. Useful with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routes builds the router. Middleware order matters: the request logger
// sits outside Recoverer so recovered panics are logged with status 500.
func (s *Server) routes(proxy http.Handler, prefix string, assets fs.FS) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/ws", s.handleWebSocket)
	r.Post("/admin/reset", s.handleAdminReset)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	prefix = trimSlash(prefix)
	r.Handle(prefix, proxy)
	r.Handle(prefix+"/*", proxy)

	r.Handle("/*", http.FileServer(http.FS(assets)))

	return r
}

func trimSlash(p string) string {
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

// Start starts the HTTP server.
// The server runs until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	// Create listener
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	// Websocket connections are long lived, so only header reads are bounded.
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	go s.cleanupRateLimits(ctx)
	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Warn("Server shutdown failed", "error", err)
		}
	}()

	// Run server (blocks until error or server closed)
	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server. Open websocket sessions are not
// affected; they end when the hub stops.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	// Shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.started = false
	return nil
}

// ListenAddr returns the actual address the server is listening on.
// Useful when port 0 is used to get an available port.
// Returns empty string if not started.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// cleanupRateLimits periodically drops expired rate limit entries.
func (s *Server) cleanupRateLimits(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.resetLimits.cleanup()
		}
	}
}
