package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/collab/internal/api/http"
	"github.com/aussiebroadwan/collab/internal/api/obs"
	"github.com/aussiebroadwan/collab/internal/api/provider"
	"github.com/aussiebroadwan/collab/internal/api/service"
	"github.com/aussiebroadwan/collab/internal/api/store"
	"github.com/aussiebroadwan/collab/internal/api/store/drivers/sqlite"
	"github.com/aussiebroadwan/collab/pkg/cryptox"
	"github.com/aussiebroadwan/collab/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the API together: store, services and HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// ctx lives as long as the application; the provider's key set
	// refreshes under it.
	ctx    context.Context
	cancel context.CancelFunc

	db      store.Store
	metrics *obs.Metrics

	tokenService        *service.TokenService
	credentialService   *service.CredentialService
	externalService     *service.ExternalAuthService // nil when the provider is disabled
	projectService      *service.ProjectService
	messagingService    *service.MessagingService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "collab-api",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: obs.NewMetrics(BuildVersion),
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		app.cancel()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.cancel()
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler is the root HTTP handler, middleware included.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start(app.ctx)

	app.logger.Info("api starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"external_signin", app.externalService != nil,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down api...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.cancel()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("api stopped")
	return nil
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() error {
	tokens, err := service.NewTokenService(
		app.db,
		[]byte(app.cfg.SigningSecret),
		app.cfg.Issuer,
		app.cfg.AccessTokenTTL,
		app.cfg.RefreshTokenTTL,
		time.Now,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = tokens

	app.credentialService = &service.CredentialService{Store: app.db, Tokens: tokens}
	app.projectService = &service.ProjectService{Store: app.db}
	app.messagingService = &service.MessagingService{Store: app.db}

	if app.cfg.ProviderEnabled() {
		idp, err := provider.New(app.ctx, provider.Config{
			ClientID:     app.cfg.GoogleClientID,
			ClientSecret: app.cfg.GoogleClientSecret,
			RedirectURL:  app.cfg.GoogleRedirectURI,
			AuthURL:      app.cfg.GoogleAuthURL,
			TokenURL:     app.cfg.GoogleTokenURL,
			JWKSURL:      app.cfg.GoogleJWKSURL,
			Issuer:       app.cfg.GoogleIssuer,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize identity provider: %w", err)
		}

		app.externalService = &service.ExternalAuthService{
			Provider: idp,
			Store:    app.db,
			Tokens:   tokens,
			Timeout:  app.cfg.ProviderTimeout,
		}
	} else {
		app.logger.Info("external sign-in disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Validate already rejected unknown values
	delivery, _ := httpapi.ParseDelivery(app.cfg.TokenDelivery)
	router.Transport = &httpapi.Transport{
		Delivery: delivery,
		Secure:   app.cfg.SecureCookies(),
		Domain:   app.cfg.CookieDomain,
	}
	router.Metrics = app.metrics
	router.LandingURL = app.cfg.LandingURL
	router.Dev = app.cfg.Dev()

	router.TokenService = app.tokenService
	router.CredentialService = app.credentialService
	router.ExternalService = app.externalService
	router.ProjectService = app.projectService
	router.MessagingService = app.messagingService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
