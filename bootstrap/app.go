package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dokq/api"
	"dokq/auth"
	"dokq/config"
	"dokq/csrf"

	"go.uber.org/zap"
)

// App represents the DokQ application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	CSRFStore csrf.Store
	Engine    *csrf.Engine
	Resolver  *auth.Resolver
	Issuer    *auth.Issuer
	APIServer *api.API

	serviceWg  *sync.WaitGroup
	shutdownCh chan struct{}
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		serviceWg:  &sync.WaitGroup{},
		shutdownCh: make(chan struct{}),
	}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("DokQ healthcare API starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	// Resolve the JWT signing secret through the configured secret
	// backend. In production an unusable secret is fatal: serving with a
	// guessable signing key is worse than not serving at all.
	secretManager, err := config.NewSecretManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret manager: %w", err)
	}
	secret, err := secretManager.GetJWTSecret()
	if err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("failed to resolve JWT secret: %w", err)
		}
		sugar.Warnw("JWT secret unavailable, continuing with a generated development secret", "error", err)
		secret = ""
	}

	store, err := initCSRFStore(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.CSRFStore = store
	app.Engine = csrf.NewEngine(store, cfg.IsProduction(), sugar)

	resolver, err := auth.NewResolver(ctx, cfg, secret, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verification: %w", err)
	}
	app.Resolver = resolver
	sugar.Infow("Token verification configured", "strategy", resolver.Strategy())

	// The issuer backs the local username/password login. When the secret
	// does not meet the signing bar the login route stays up but answers
	// with a configuration error instead of minting weak tokens.
	issuer, err := auth.NewIssuer(secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.JWTExpiry)
	if err != nil {
		sugar.Warnw("Local token issuing disabled", "error", err)
	} else {
		app.Issuer = issuer
	}

	app.APIServer = api.NewAPI(cfg, resolver, app.Engine, app.Issuer, sugar)

	return app, nil
}

// initCSRFStore selects the CSRF token store backend.
func initCSRFStore(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (csrf.Store, error) {
	if cfg.CSRF.Store == config.CSRFStoreRedis {
		store, err := csrf.NewRedisStore(ctx, cfg.CSRF.Redis.Addr, cfg.CSRF.Redis.Password, cfg.CSRF.Redis.DB, cfg.CSRF.Redis.PoolSize, sugar)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis CSRF store: %w", err)
		}
		sugar.Infow("CSRF store initialized", "backend", "redis", "addr", cfg.CSRF.Redis.Addr)
		return store, nil
	}
	sugar.Infow("CSRF store initialized", "backend", "memory")
	return csrf.NewMemoryStore(sugar), nil
}

// Start starts the API server.
func (a *App) Start(ctx context.Context) error {
	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		addr := fmt.Sprintf(":%d", a.Config.API.Port)
		a.Sugar.Infof("API server started on %s", addr)

		var err error
		if a.Config.API.TLS {
			err = a.APIServer.StartTLS(addr, a.Config.API.CertFile, a.Config.API.KeyFile)
		} else {
			err = a.APIServer.Start(addr)
		}

		if err != nil && err.Error() != "http: Server closed" {
			a.Sugar.Errorf("API server error: %v", err)
		}
	}()
	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	if a.CSRFStore != nil {
		if err := a.CSRFStore.Close(); err != nil {
			a.Sugar.Errorw("Failed to close CSRF store", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	a.Logger.Sync()
}
