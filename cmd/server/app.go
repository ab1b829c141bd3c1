package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver

	"github.com/phrazzld/taskboard-api/internal/cache"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/jobs"
	"github.com/phrazzld/taskboard-api/internal/platform/postgres"
	"github.com/phrazzld/taskboard-api/internal/platform/redis"
	"github.com/phrazzld/taskboard-api/internal/ratelimit"
	"github.com/phrazzld/taskboard-api/internal/scheduler"
	"github.com/phrazzld/taskboard-api/internal/service"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// application holds the wired dependencies of the running service.
type application struct {
	config *config.Config
	logger *slog.Logger

	db *sql.DB
	kv *redis.KV

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService  auth.JWTService
	passwords   *auth.BcryptHasher
	limiter     *ratelimit.Limiter
	taskService service.TaskService

	enqueuer  *jobs.QueueEnqueuer
	inspector *asynq.Inspector
	jobServer *jobs.Server
	scanner   *scheduler.OverdueScanner
	pruner    *scheduler.ArchivePruner

	httpServer *http.Server
}

// newApplication wires every component from the configuration.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	kv := redis.NewKV(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := kv.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping key-value store: %w", err)
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		kv:     kv,
	}

	app.userStore = postgres.NewPostgresUserStore(db)
	app.taskStore = postgres.NewPostgresTaskStore(db)

	app.jwtService = auth.NewJWTService(cfg.Auth)
	app.passwords = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	app.limiter = ratelimit.New(kv, cfg.RateLimit.Limit, cfg.RateLimit.Window)

	app.enqueuer = jobs.NewQueueEnqueuer(cfg.Redis, cfg.Jobs)

	appCache := cache.New(kv, cfg.Cache.ListTTL, logger)
	app.taskService = service.NewTaskService(
		app.taskStore,
		appCache,
		app.enqueuer,
		service.TaskServiceTTLs{
			List:  cfg.Cache.ListTTL,
			Item:  cfg.Cache.ItemTTL,
			Stats: cfg.Cache.StatsTTL,
		},
		logger,
	)

	dispatcher := jobs.NewDispatcher(logger)
	jobs.NewNotificationHandlers(logger).RegisterAll(dispatcher)
	app.jobServer = jobs.NewServer(cfg.Redis, cfg.Jobs, dispatcher, logger)

	app.scanner = scheduler.NewOverdueScanner(
		app.taskStore,
		app.enqueuer,
		cfg.Jobs,
		cfg.Scheduler.OverdueScanSchedule,
		logger,
	)

	app.inspector = jobs.NewInspector(cfg.Redis)
	app.pruner = scheduler.NewArchivePruner(
		app.inspector,
		cfg.Jobs.FailedRetention,
		cfg.Scheduler.ArchivePruneSchedule,
		logger,
	)

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// start brings up the job consumer, the overdue scanner, and the HTTP
// server. It blocks serving HTTP until shutdown.
func (app *application) start() error {
	if err := app.jobServer.Start(); err != nil {
		return err
	}

	if err := app.scanner.Start(); err != nil {
		return err
	}

	if err := app.pruner.Start(); err != nil {
		return err
	}

	app.logger.Info("HTTP server listening", slog.Int("port", app.config.Server.Port))
	if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// shutdown stops the components in reverse dependency order.
func (app *application) shutdown(ctx context.Context) {
	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	app.pruner.Stop()
	app.scanner.Stop()
	app.jobServer.Shutdown()

	if err := app.enqueuer.Close(); err != nil {
		app.logger.Error("failed to close job client", slog.String("error", err.Error()))
	}
	if err := app.inspector.Close(); err != nil {
		app.logger.Error("failed to close queue inspector", slog.String("error", err.Error()))
	}
	if err := app.kv.Close(); err != nil {
		app.logger.Error("failed to close key-value store client", slog.String("error", err.Error()))
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}
