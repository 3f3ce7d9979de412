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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/mothertree-labs/mothertree-oss/internal/portal/http"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/metrics"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/provision"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/service"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/store/drivers/sqlite"
	"github.com/mothertree-labs/mothertree-oss/pkg/httpx"
	"github.com/mothertree-labs/mothertree-oss/pkg/kcadmin"
	"github.com/mothertree-labs/mothertree-oss/pkg/mailx"
	"github.com/mothertree-labs/mothertree-oss/pkg/setuptoken"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the portal with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	gateway  *kcadmin.Client
	tokens   *setuptoken.Codec
	db       store.Store
	registry *prometheus.Registry
	metrics  *metrics.Collector
	mailer   mailx.Sender

	// Services
	swapService       *service.SwapService
	recoveryService   *service.RecoveryService
	invitationService *service.InvitationService
	guestService      *service.GuestService
	directoryService  *service.DirectoryService

	// HTTP server
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
			Service: "account-portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	tokens, err := setuptoken.NewFromConfig(cfg.BeginSetupSecret, cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize setup token codec: %w", err)
	}
	app.tokens = tokens

	app.gateway = kcadmin.New(kcadmin.Config{
		BaseURL:      cfg.KeycloakURL,
		Realm:        cfg.KeycloakRealm,
		ClientID:     cfg.KeycloakClientID,
		ClientSecret: cfg.KeycloakClientSecret,
	})

	if err := app.initAuditStore(); err != nil {
		return nil, err
	}
	if err := app.initMailer(); err != nil {
		return nil, err
	}
	app.initMetrics()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("account portal starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
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
	app.logger.Info("shutting down account portal...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing audit store", "error", err)
			return err
		}
	}

	app.logger.Info("account portal stopped")
	return nil
}

// initAuditStore opens the audit database and applies migrations. The
// audit log is optional: without AUDIT_DATABASE_FILE the portal runs
// with auditing disabled.
func (app *Application) initAuditStore() error {
	if app.cfg.AuditDatabaseFile == "" {
		app.logger.Info("audit store disabled, no AUDIT_DATABASE_FILE configured")
		return nil
	}

	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.AuditDatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize audit store: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply audit store migrations: %w", err)
	}

	app.logger.Info("audit store migrations applied successfully")
	app.db = db
	return nil
}

// initMailer selects the notification mail transport. Enrollment links
// are always sent by the identity provider; this sender only carries
// the portal's own notices.
func (app *Application) initMailer() error {
	switch app.cfg.MailProvider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load AWS config for SES: %w", err)
		}
		app.mailer = mailx.NewSESSender(ses.NewFromConfig(awsCfg), app.cfg.MailFrom)
		app.logger.Info("notification mail via SES", "from", app.cfg.MailFrom)
	default:
		app.mailer = &mailx.ConsoleSender{}
		app.logger.Info("notification mail via console logger")
	}
	return nil
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewCollector(app.registry)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	var audit store.AuditLog
	if app.db != nil {
		audit = app.db.Audit()
	}

	var provisioner provision.Provisioner
	if app.cfg.StalwartURL != "" {
		provisioner = provision.NewStalwart(
			app.cfg.StalwartURL,
			app.cfg.StalwartAdminUser,
			app.cfg.StalwartAdminPassword,
		)
		app.logger.Info("mailbox provisioning via Stalwart", "url", app.cfg.StalwartURL)
	}

	app.swapService = &service.SwapService{
		Gateway: app.gateway,
		Audit:   audit,
		Metrics: app.metrics,
	}
	app.recoveryService = &service.RecoveryService{
		Gateway:    app.gateway,
		Tokens:     app.tokens,
		Mailer:     app.mailer,
		Audit:      audit,
		Metrics:    app.metrics,
		WebmailURL: app.cfg.WebmailURL,
		ClientID:   app.cfg.KeycloakClientID,
	}
	app.invitationService = &service.InvitationService{
		Gateway:                 app.gateway,
		Tokens:                  app.tokens,
		Provisioner:             provisioner,
		Audit:                   audit,
		Metrics:                 app.metrics,
		CompleteRegistrationURL: app.cfg.CompleteRegistrationURL,
		ClientID:                app.cfg.KeycloakClientID,
	}
	app.guestService = &service.GuestService{
		Gateway:      app.gateway,
		Audit:        audit,
		Metrics:      app.metrics,
		TenantDomain: app.cfg.TenantDomain,
		BaseURL:      app.cfg.BaseURL,
		ClientID:     app.cfg.KeycloakClientID,
	}
	app.directoryService = &service.DirectoryService{
		Gateway: app.gateway,
		Audit:   audit,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokens,
		app.cfg.TenantDomain,
		app.cfg.InternalAuthToken,
		BuildVersion,
		app.db,
		app.metrics,
		app.registry,
		app.logger,
	)

	// A Redis-backed limiter keeps rate limits coherent across
	// replicas; single instances fall back to the in-memory one.
	if app.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
		})
		router.NewLimiter = func(name string, config httpx.RateLimitConfig) httpx.Limiter {
			return httpx.NewRedisLimiter(client, "ratelimit:"+name, config)
		}
		app.logger.Info("rate limiting via Redis", "addr", app.cfg.RedisAddr)
	}

	// Wire services to router
	router.SwapService = app.swapService
	router.RecoveryService = app.recoveryService
	router.InvitationService = app.invitationService
	router.GuestService = app.guestService
	router.DirectoryService = app.directoryService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
