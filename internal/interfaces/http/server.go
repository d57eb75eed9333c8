package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cryptoinsight/internal/application/pipeline"
	"github.com/sawpanic/cryptoinsight/internal/config"
	"github.com/sawpanic/cryptoinsight/internal/persistence"
	"github.com/sawpanic/cryptoinsight/internal/telemetry/metrics"
)

const requestTimeout = 10 * time.Second

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Deps are the services the API reads from. Ledger, Runs, Cache and
// Providers are optional.
type Deps struct {
	Scorer    *pipeline.Scorer
	State     *State
	Hub       *Hub
	Metrics   *metrics.Registry
	Ledger    persistence.RepositoryHealth
	Runs      persistence.RunsRepo
	Cache     Pinger
	Providers []ProviderStatus
	Version   string

	// StaleAfter marks the last pass stale in /health, 0 disables the check
	StaleAfter time.Duration
}

// Server is the read-only HTTP API
type Server struct {
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
	handlers *Handlers
	health   *HealthHandler
	config   config.ServerConfig
}

// NewServer wires routes and middleware
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(deps),
		health:   NewHealthHandler(deps),
		config:   cfg,
	}
	s.setupRoutes(deps)
	s.handler = s.corsMiddleware(s.router)

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	if deps.Metrics != nil {
		s.router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}
	if deps.Hub != nil {
		s.router.Handle("/ws", deps.Hub).Methods("GET")
	}

	api := s.router.NewRoute().Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	api.Handle("/health", s.health).Methods("GET")
	api.HandleFunc("/assets", s.handlers.Assets).Methods("GET")
	api.HandleFunc("/assets/{id}", s.handlers.AssetDetail).Methods("GET")
	api.HandleFunc("/assets/{id}/history", s.handlers.AssetHistory).Methods("GET")
	api.HandleFunc("/movers", s.handlers.Movers).Methods("GET")
	api.HandleFunc("/overview", s.handlers.Overview).Methods("GET")
	api.HandleFunc("/sentiment", s.handlers.Sentiment).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown. Returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.config.Addr()).Msg("Starting HTTP server (read-only)")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.config.Addr()
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Debug().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("REQ")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware wraps the whole router and only allows local origins
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); isLocalOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the wrapper
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}
