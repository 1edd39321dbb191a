package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/services"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
)

const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Store   session.Store
	Auth    *services.AuthService
	Tokens  *services.TokenManager
	Catalog *services.CatalogProxy
	Logger  *log.Logger
}

// Server owns the HTTP listener and the session housekeeper.
type Server struct {
	cfg         *shared.Config
	router      *BasicRouter
	housekeeper *session.Housekeeper
	logger      *log.Logger
}

// New wires handlers and middleware onto a [BasicRouter].
func New(cfg *shared.Config, deps Deps) *Server {
	cookies := session.Cookies{Secure: cfg.Server.CookieSecure, TTL: cfg.Session.TTL.Duration}

	router := NewBasicRouter()
	router.Use(Logging(deps.Logger), Recover(deps.Logger))
	router.Handler(NewAuthHandler(deps.Store, deps.Auth, deps.Tokens, cookies, deps.Logger))
	router.Handler(NewCatalogHandler(deps.Catalog, cookies, deps.Logger))
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(health))

	return &Server{
		cfg:         cfg,
		router:      router,
		housekeeper: session.NewHousekeeper(deps.Store, cfg.Session.PruneInterval.Duration, deps.Logger),
		logger:      deps.Logger,
	}
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe listens on the configured address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains in-flight requests.
//
// Request contexts do not inherit ctx's cancellation, so requests already running
// when ctx ends get the full drain window.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	hkCtx, stopHousekeeper := context.WithCancel(ctx)
	defer stopHousekeeper()
	go s.housekeeper.Run(hkCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
