package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openballot/votegate/internal/vote/challenge"
	"github.com/openballot/votegate/internal/vote/faceapi"
	httpapi "github.com/openballot/votegate/internal/vote/http"
	"github.com/openballot/votegate/internal/vote/ratelimit"
	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/internal/vote/store/drivers/sqlite"
	"github.com/openballot/votegate/pkg/cryptox"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the vote service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db             store.Store
	redisClient    *redis.Client
	challengeStore challenge.Store
	limiter        *ratelimit.Limiter

	// Services
	userService         *service.UserService
	sessionService      *service.SessionService
	biometricService    *service.BiometricService
	challengeService    *service.ChallengeService
	webAuthnService     *service.WebAuthnService
	faceMatchService    *service.FaceMatchService
	faceProofSigner     *service.FaceProofSigner
	voteService         *service.VoteService
	electionService     *service.ElectionService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "votegate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initSharedStores()

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("vote service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully stops the HTTP server, background workers and
// storage connections.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down vote service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("vote service stopped")
	return nil
}

// initDatabase opens the sqlite store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initSharedStores selects the rate-limit and challenge backends. With
// REDIS_ADDR set both are shared across instances; otherwise they are
// process-local.
func (app *Application) initSharedStores() {
	if app.cfg.RedisAddr == "" {
		app.limiter = ratelimit.New(ratelimit.NewMemoryStore())
		app.challengeStore = challenge.NewMemoryStore()
		app.logger.Info("using in-memory rate-limit and challenge stores")
		return
	}

	app.redisClient = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
	app.limiter = ratelimit.New(ratelimit.NewRedisStore(app.redisClient, "votegate:rl"))
	app.challengeStore = challenge.NewRedisStore(app.redisClient, "votegate:ch")
	app.logger.Info("using redis-backed shared stores", "addr", app.cfg.RedisAddr)
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	box, err := cryptox.NewSessionBox(app.cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize session cipher: %w", err)
	}

	app.userService = &service.UserService{Store: app.db}
	app.sessionService = &service.SessionService{Store: app.db, Box: box}
	app.biometricService = &service.BiometricService{Store: app.db}
	app.challengeService = &service.ChallengeService{Store: app.challengeStore}

	origin, err := url.Parse(app.cfg.AppOrigin)
	if err != nil || origin.Hostname() == "" {
		return fmt.Errorf("invalid VOTE_APP_ORIGIN %q", app.cfg.AppOrigin)
	}
	app.webAuthnService = &service.WebAuthnService{
		RPID:           origin.Hostname(),
		AllowedOrigins: []string{app.cfg.AppOrigin},
		AllowLoopback:  app.cfg.Env != "prod",
		Challenges:     app.challengeService,
	}

	app.faceMatchService = &service.FaceMatchService{
		Comparer: faceapi.NewClient(app.cfg.FaceServiceURL),
		Floor:    app.cfg.FaceMatchFloor,
		Margin:   app.cfg.FaceMatchMargin,
	}
	// The proof signer gets its own key so the session cipher and the
	// proof HMAC stay in separate trust domains.
	app.faceProofSigner = &service.FaceProofSigner{
		Secret: cryptox.DeriveKey(app.cfg.SessionSecret, "face-proof"),
	}

	app.voteService = &service.VoteService{
		Store:               app.db,
		Limiter:             app.limiter,
		Face:                app.faceMatchService,
		Challenges:          app.challengeService,
		EnforceDeviceChecks: app.cfg.EnforceDeviceChecks,
		TrackVoterIP:        app.cfg.TrackVoterIP,
		RateWindow:          app.cfg.VoteRateWindow,
		RateMax:             app.cfg.VoteRateMax,
	}
	app.electionService = &service.ElectionService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.challengeStore,
		app.limiter,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	resolver := &httpx.ClientIPResolver{TrustedProxies: app.cfg.TrustedProxies}

	router := httpapi.NewRouter(BuildVersion, app.db, resolver, app.logger)
	router.SecureCookies = app.cfg.Env == "prod"
	router.AdminUsers = app.cfg.AdminUsers
	if app.redisClient != nil {
		client := app.redisClient
		router.CachePing = func() error {
			return client.Ping(context.Background()).Err()
		}
	}

	router.UserService = app.userService
	router.SessionService = app.sessionService
	router.BiometricService = app.biometricService
	router.ChallengeService = app.challengeService
	router.WebAuthnService = app.webAuthnService
	router.FaceMatchService = app.faceMatchService
	router.FaceProofSigner = app.faceProofSigner
	router.VoteService = app.voteService
	router.ElectionService = app.electionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
