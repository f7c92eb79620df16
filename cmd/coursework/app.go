package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/phrazzld/coursework/internal/api"
	"github.com/phrazzld/coursework/internal/config"
	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/events"
	"github.com/phrazzld/coursework/internal/platform/sqldb"
	"github.com/phrazzld/coursework/internal/service"
	"github.com/phrazzld/coursework/internal/service/auth"
	"github.com/phrazzld/coursework/internal/store"
	"github.com/phrazzld/coursework/internal/task"
)

// application holds the wired components of a running process.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	db       *sql.DB
	stores   store.Stores
	services *service.Services
	registry *prometheus.Registry

	loop       *task.Loop
	dispatcher *task.Dispatcher

	diagnostics *http.Server
	listener    net.Listener
}

// newApplication opens and migrates the database and wires every
// component. The returned application owns its resources until shutdown.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	if log == nil {
		log = slog.Default()
	}
	log.Info("configuration loaded",
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"worker_count", cfg.Dispatcher.WorkerCount,
		"diagnostics_enabled", cfg.Diagnostics.ListenAddr != "")

	db, dialect, err := sqldb.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqldb.Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	app := &application{
		config:   cfg,
		logger:   log,
		db:       db,
		registry: prometheus.NewRegistry(),
		loop:     task.NewLoop(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := app.wireServices(cfg, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	app.dispatcher = task.NewDispatcher(task.Config{
		WorkerCount: cfg.Dispatcher.WorkerCount,
		QueueSize:   cfg.Dispatcher.QueueSize,
	}, app.loop, task.NewMetrics(app.registry), log)

	if cfg.Diagnostics.ListenAddr != "" {
		ln, err := net.Listen("tcp", cfg.Diagnostics.ListenAddr)
		if err != nil {
			app.dispatcher.Close()
			_ = db.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Diagnostics.ListenAddr, err)
		}
		app.listener = ln
		app.diagnostics = &http.Server{
			Handler: api.NewDiagnosticsRouter(api.DiagnosticsDeps{
				DB:       db,
				Backlog:  app.dispatcher,
				Gatherer: app.registry,
				Logger:   log,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return app, nil
}

func (app *application) wireServices(cfg *config.Config, dialect sqldb.Dialect) error {
	clk := clock.New()

	authCfg := cfg.Auth
	if authCfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		authCfg.JWTSecret = secret
		app.logger.Warn("no jwt secret configured, using an ephemeral one; sessions end at restart")
	}
	tokens, err := auth.NewTokenService(authCfg, clk)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	app.stores = sqldb.NewStores(app.db, app.logger)
	app.services, err = service.New(service.Dependencies{
		Stores: app.stores,
		UnitOfWork: store.NewUnitOfWork(app.db,
			store.WithTxOptions(dialect.TxOptions()),
			store.WithErrorMapper(sqldb.MapError)),
		Hasher:  auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:  tokens,
		Clock:   clk,
		Events:  events.NewBus(app.logger),
		Metrics: service.NewMetrics(app.registry),
		Logger:  app.logger,
		ReadRetry: store.RetryPolicy{
			MaxRetries:      cfg.Store.ReadRetries,
			InitialInterval: cfg.Store.RetryInterval,
		},
		UnreadCacheTTL: cfg.Inbox.UnreadCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create services: %w", err)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// run serves diagnostics, starts cache eviction, queues the bootstrap admin
// and then runs the interactive loop on the calling goroutine until ctx is
// done.
func (app *application) run(ctx context.Context) error {
	if app.diagnostics != nil {
		go func() {
			app.logger.Info("diagnostics listening", "addr", app.listener.Addr().String())
			if err := app.diagnostics.Serve(app.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Error("diagnostics server failed", "error", err)
			}
		}()
	}

	go app.services.Inbox.StartEviction(ctx)

	if app.config.Bootstrap.Enabled() {
		app.bootstrapAdmin(ctx)
	}

	app.logger.Info("coursework core running")
	if err := app.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// bootstrapAdmin registers the configured admin on a worker. The outcome is
// logged from the interactive loop.
func (app *application) bootstrapAdmin(ctx context.Context) {
	bc := app.config.Bootstrap
	identity := domain.IdentityData{
		Username: bc.AdminUsername,
		Name:     bc.AdminUsername,
		Email:    bc.AdminEmail,
		Password: bc.AdminPassword,
	}

	task.Go(ctx, app.dispatcher, "bootstrap_admin",
		func(ctx context.Context) (domain.Principal, error) {
			return app.services.Workflows.Register(ctx, identity, domain.ProfileData{}, domain.RoleAdmin)
		},
		func(p domain.Principal, err error) {
			var verr *domain.ValidationError
			switch {
			case err == nil:
				app.logger.Info("bootstrap admin registered", "user_id", p.UserIdentity().UserID)
			case errors.As(err, &verr) && (verr.Field == "username" || verr.Field == "email"):
				app.logger.Info("bootstrap admin already exists", "username", bc.AdminUsername)
			default:
				app.logger.Error("bootstrap admin registration failed", "error", err)
			}
		})
}

// shutdown stops admission, lets queued work finish within the configured
// timeout, runs the remaining continuations and releases resources.
func (app *application) shutdown() {
	app.logger.Info("shutting down")

	closed := make(chan struct{})
	go func() {
		app.dispatcher.Close()
		close(closed)
	}()

	timeout := app.config.Dispatcher.ShutdownTimeout
	if timeout <= 0 {
		<-closed
	} else {
		select {
		case <-closed:
		case <-time.After(timeout):
			app.logger.Warn("dispatcher did not finish in time", "timeout", timeout)
		}
	}
	if n := app.loop.Drain(); n > 0 {
		app.logger.Debug("ran remaining continuations", "count", n)
	}

	if app.diagnostics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.diagnostics.Shutdown(ctx); err != nil {
			app.logger.Error("diagnostics shutdown failed", "error", err)
		}
		_ = app.listener.Close()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
	app.logger.Info("shutdown completed")
}
