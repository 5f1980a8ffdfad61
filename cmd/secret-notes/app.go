package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amirk1998/secret-notes/internal/audit"
	"github.com/amirk1998/secret-notes/internal/config"
	"github.com/amirk1998/secret-notes/internal/database"
	"github.com/amirk1998/secret-notes/internal/logging"
	"github.com/amirk1998/secret-notes/internal/ratelimit"
	"github.com/amirk1998/secret-notes/internal/repository"
	"github.com/amirk1998/secret-notes/internal/repository/redisstore"
	"github.com/amirk1998/secret-notes/internal/security"
	"github.com/amirk1998/secret-notes/internal/service"
)

type Application struct {
	config        *config.Config
	log           logging.Logger
	db            *sql.DB
	rdb           *redis.Client
	store         repository.NoteStore
	noteService   *service.NoteService
	auditLogger   *audit.Logger
	auditMonitor  *audit.Monitor
	createLimiter *ratelimit.RateLimiter
	unlockLimiter *ratelimit.RateLimiter
}

// initializeApplication connects the configured store and builds the note service.
func initializeApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	app := &Application{
		config: cfg,
		log:    logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).With("env", cfg.Environment),
	}

	if err := app.openStore(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	auditLogger, err := audit.NewLogger(app.db, cfg.AuditLogPath, cfg.AuditAsyncMode, app.log.With("component", "audit"))
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	app.auditLogger = auditLogger

	// Failed-unlock detection queries the audit table, which only exists in SQLCipher.
	if app.db != nil {
		app.auditMonitor = audit.NewMonitor(auditLogger, app.log.With("component", "monitor"))
	}

	app.createLimiter = ratelimit.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	app.unlockLimiter = ratelimit.NewRateLimiter(cfg.UnlockRateRPS, cfg.UnlockRateBurst)

	noteService, err := service.NewNoteService(app.store, security.NewNoteCipher(), service.Options{
		BaseURL:    cfg.BaseURL,
		Retention:  cfg.NoteRetention,
		PurgeDelay: cfg.PurgeDelay,
	})
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize note service: %w", err)
	}
	app.noteService = noteService.
		WithRateLimits(app.createLimiter, app.unlockLimiter).
		WithAudit(auditLogger).
		WithLogger(app.log.With("component", "notes"))

	return app, nil
}

func (app *Application) openStore(ctx context.Context) error {
	cfg := app.config

	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		app.rdb = rdb
		app.store = redisstore.New(rdb)

	default:
		db, err := database.Connect(database.Config{
			Path:          cfg.DBPath,
			EncryptionKey: cfg.DBEncryptionKey,
			MaxOpenConns:  25,
			MaxIdleConns:  5,
			MaxLifetime:   1 * time.Hour,
			MaxIdleTime:   10 * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		app.db = db

		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		app.store = repository.NewNoteRepository(db, cfg.StoreTimeout)
	}

	app.log.Info(ctx, "note store ready", "backend", cfg.StoreBackend)
	return nil
}

// cleanup performs cleanup operations
func (app *Application) cleanup() {
	if app.auditLogger != nil {
		if err := app.auditLogger.Close(); err != nil {
			app.log.Warn(context.Background(), "failed to close audit log", "error", err)
		}
	}

	if app.rdb != nil {
		_ = app.rdb.Close()
	}

	if app.db != nil {
		_ = app.db.Close()
	}
}

// loadApplication reads configuration and initializes the application
func loadApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return initializeApplication(ctx, cfg)
}
