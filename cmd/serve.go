package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/tunegate/internal/repositories"
	"github.com/desertthunder/tunegate/internal/server"
	"github.com/desertthunder/tunegate/internal/services"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the proxy until SIGINT or SIGTERM.
//
// Missing credentials are logged but do not stop the server: /auth/start answers 500
// until the configuration is fixed.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	r.applyServeFlags(cmd)

	if err := r.config.Credentials.Spotify.Validate(); err != nil {
		r.logger.Warn("oauth credentials incomplete; authorization will fail", "error", err)
	} else if !r.config.Credentials.Spotify.RedirectIsAbsolute() {
		r.logger.Warn("redirect_uri is not an absolute URL", "redirect_uri", r.config.Credentials.Spotify.RedirectURI)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	r.logger.Info("starting server",
		"addr", r.config.Server.Address(),
		"backend", r.config.Session.Backend,
		"client_id", shared.Redact(r.config.Credentials.Spotify.ClientID),
	)
	return r.newServer(store).ListenAndServe(ctx)
}

func (r *Runner) applyServeFlags(cmd *cli.Command) {
	if cmd == nil {
		return
	}
	if cmd.IsSet("host") {
		r.config.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		r.config.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("backend") {
		r.config.Session.Backend = cmd.String("backend")
	}
}

// newServer wires the service graph over store.
func (r *Runner) newServer(store session.Store) *server.Server {
	cfg := r.config
	oauth := services.NewOAuthClient(cfg.Credentials.Spotify, cfg.Provider, r.httpClient, shared.WithLogger(r.logger, "component", "oauth"))
	tokens := services.NewTokenManager(store, oauth, shared.WithLogger(r.logger, "component", "tokens"))
	catalog := services.NewCatalogClient(cfg.Provider, r.httpClient, shared.WithLogger(r.logger, "component", "catalog"))

	return server.New(cfg, server.Deps{
		Store:   store,
		Auth:    services.NewAuthService(store, oauth, shared.WithLogger(r.logger, "component", "auth")),
		Tokens:  tokens,
		Catalog: services.NewCatalogProxy(tokens, catalog, r.logger),
		Logger:  shared.WithLogger(r.logger, "component", "http"),
	})
}

// openStore builds the configured session backend.
func (r *Runner) openStore(ctx context.Context) (session.Store, error) {
	cfg := r.config
	opts := session.Options{
		TTL:           cfg.Session.TTL.Duration,
		PruneInterval: cfg.Session.PruneInterval.Duration,
	}

	switch cfg.Session.Backend {
	case "", "memory":
		return session.NewMemoryStore(opts), nil
	case "sqlite":
		db, err := shared.NewDatabase(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

		applied, err := shared.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if applied > 0 {
			r.logger.Info("applied migrations", "count", applied, "path", cfg.Database.Path)
		}
		return repositories.NewSessionRepository(db, opts), nil
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(client, cfg.Redis.KeyPrefix, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownBackend, cfg.Session.Backend)
	}
}
