// Package app wires storage, the crud engine and the HTTP and RPC surfaces
// into one handler.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/auth"
	"github.com/mmynk/backstack/internal/config"
	"github.com/mmynk/backstack/internal/crud"
	"github.com/mmynk/backstack/internal/endpoint"
	"github.com/mmynk/backstack/internal/metrics"
	"github.com/mmynk/backstack/internal/middleware"
	"github.com/mmynk/backstack/internal/models"
	"github.com/mmynk/backstack/internal/service"
	"github.com/mmynk/backstack/internal/storage/sqlite"
)

// App holds the long-lived dependencies of the server.
type App struct {
	store   *sqlite.SQLiteStore
	handler http.Handler
}

// New opens storage and builds the request handler.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "database", cfg.Database.Path)

	registry, err := models.NewRegistry()
	if err != nil {
		store.Close()
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	engine := crud.NewEngine(store, registry, logger, m)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
	resources := Resources()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		endpoint.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// REST endpoints
	api := http.NewServeMux()
	endpoint.NewRouter(engine, cfg.Server.APIPrefix, logger).Add(Endpoints(resources)...).Mount(api)
	mux.Handle(cfg.Server.APIPrefix+"/", middleware.Authenticate(jwtManager, func(w http.ResponseWriter, r *http.Request) {
		endpoint.WriteError(w, apperr.Unauthenticated())
	})(api))

	// Connect services
	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		middleware.OptionalAuth(jwtManager),
	)
	mux.Handle(service.NewResourceServiceHandler(service.NewResourceService(engine, resources, logger), interceptors))
	mux.Handle(service.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), store, jwtManager, logger),
		interceptors,
	))

	if m != nil {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
	}

	handler := middleware.RequestLogger(logger)(middleware.CORS(cfg.Server.AllowedOrigins)(mux))
	return &App{store: store, handler: handler}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases storage.
func (a *App) Close() error {
	return a.store.Close()
}
