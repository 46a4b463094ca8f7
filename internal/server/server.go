// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and passes it to New, which creates:
//
//	store (sqlite or postgres) → SyncService, ProfileService → handlers
//	providers (github, oidc)   → auth.Registry → AuthHandler
//	TokenService               → AuthHandler, auth.Guard
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/profilesync/internal/auth"
	"github.com/sakif/profilesync/internal/config"
	"github.com/sakif/profilesync/internal/handler"
	"github.com/sakif/profilesync/internal/middleware"
	"github.com/sakif/profilesync/internal/repository"
	pgRepo "github.com/sakif/profilesync/internal/repository/postgres"
	sqliteRepo "github.com/sakif/profilesync/internal/repository/sqlite"
	"github.com/sakif/profilesync/internal/service"
)

// store is a user repository the server owns and closes on shutdown.
type store interface {
	repository.UserRepository
	Close() error
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. When the server shuts down, we
// close it to flush pending writes and release the file lock (SQLite) or
// the pool (Postgres).
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  store
}

// New opens the configured store, discovers the identity providers and
// wires the routes.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package, and repository/postgres as `pgRepo`.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	s, err := newServer(cfg, logger, st, providers)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires an already-open store and provider registry. Tests use it
// directly with an in-memory store and fake providers.
func newServer(cfg config.Config, logger *slog.Logger, st store, providers *auth.Registry) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  st,
	}

	if err := s.setupRoutes(tokens, providers); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the repository implementation from DB_DRIVER.
func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := pgRepo.New(ctx, pgRepo.Config{
			DSN:         cfg.DatabaseURL,
			AutoMigrate: cfg.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil

	default:
		// Ensure the data directory exists.
		// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}

		db, err := sqliteRepo.New(cfg.DBPath, sqliteRepo.Options{AutoMigrate: cfg.AutoMigrate})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
}

// buildProviders registers every provider that has credentials configured.
// OIDC runs discovery against the issuer, so it needs the network at startup.
func buildProviders(ctx context.Context, cfg config.Config) (*auth.Registry, error) {
	var list []auth.Provider

	if cfg.GitHubEnabled() {
		list = append(list, auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.CallbackURL("github")))
	}

	if cfg.OIDCEnabled() {
		p, err := auth.NewOIDCProvider(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.CallbackURL("oidc"))
		if err != nil {
			return nil, fmt.Errorf("creating oidc provider: %w", err)
		}
		list = append(list, p)
	}

	reg := auth.NewRegistry(list...)
	if reg.Len() == 0 {
		return nil, errors.New("no identity provider configured")
	}
	return reg, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                              → Home page                 [public]
// GET    /static/*                      → Static files              [public]
// GET    /sign-in, /sign-up             → Default provider redirect [public]
// GET    /sign-in/{provider}            → Provider redirect         [public]
// GET    /sign-in/{provider}/callback   → Finish sign-in            [public]
// GET    /welcome                       → Sync, then /members       [public]
// POST   /sign-out                      → Clear session
// GET    /members                       → Dashboard page
// GET    /profile                       → Profile page
// GET    /api/profile                   → Caller's record (JSON)
// PUT    /api/profile                   → Update profile (JSON)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
// 5. Guard — decodes the session and rejects anonymous protected requests
// 6. RecordIdentity — hands the caller's id back to Logger
func (s *Server) setupRoutes(tokens *auth.TokenService, providers *auth.Registry) error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(auth.Guard(tokens))
	s.router.Use(middleware.RecordIdentity)

	// === Static Files ===
	// So GET /static/css/style.css → serves {StaticDir}/css/style.css
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// === Services ===
	// The store implements repository.UserRepository; services receive the
	// interface, handlers receive the services.
	syncService := service.NewSyncService(s.store, s.logger)
	profileService := service.NewProfileService(s.store, s.logger)

	// === Page Routes ===
	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, profileService, providers.Names(), s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Get("/", pageHandler.HandleHome)
	s.router.Get("/members", pageHandler.HandleDashboard)
	s.router.Get("/profile", pageHandler.HandleProfilePage)

	// === Auth Routes ===
	authHandler := handler.NewAuthHandler(providers, s.config.DefaultProvider, tokens, s.config.SecureCookies, s.logger)
	for _, prefix := range []string{"/sign-in", "/sign-up"} {
		s.router.Get(prefix, authHandler.HandleSignIn)
		s.router.Get(prefix+"/{provider}", authHandler.HandleProviderSignIn)
		s.router.Get(prefix+"/{provider}/callback", authHandler.HandleCallback)
	}
	s.router.Post("/sign-out", authHandler.HandleSignOut)

	welcomeHandler := handler.NewWelcomeHandler(syncService, s.logger)
	s.router.Get("/welcome", welcomeHandler.HandleWelcome)

	// === API Routes ===
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/profile", profileHandler.HandleGetProfile)
		r.Put("/profile", profileHandler.HandleUpdateProfile)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection
func (s *Server) Start() error {
	// Ensure the database is closed when the server stops.
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.String("driver", s.config.DBDriver),
			slog.String("defaultProvider", s.config.DefaultProvider),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
