package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amirk1998/secret-notes/internal/httpapi"
	"github.com/amirk1998/secret-notes/internal/purge"
)

const (
	shutdownTimeout        = 10 * time.Second
	limiterCleanupInterval = 10 * time.Minute
	monitorInterval        = 5 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the purge scheduler and expiry sweeper",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.cleanup()

		return app.serve(cmd.Context())
	},
}

// serve blocks until ctx is cancelled or the listener fails.
func (app *Application) serve(ctx context.Context) error {
	cfg := app.config

	scheduler := purge.NewScheduler(app.store, app.log.With("component", "purge"), cfg.StoreTimeout)
	scheduler.OnPurged(app.noteService.RecordPurged)
	app.noteService.WithPurger(scheduler)
	defer scheduler.Stop()

	if cfg.SweepInterval > 0 {
		sweeper := purge.NewSweeper(app.store, scheduler, app.log.With("component", "sweeper"))
		sweeper.OnSwept(app.noteService.RecordSwept)
		go sweeper.Run(ctx, cfg.SweepInterval)
	}

	go app.createLimiter.StartCleanupWorker(ctx, limiterCleanupInterval)
	go app.unlockLimiter.StartCleanupWorker(ctx, limiterCleanupInterval)

	if app.auditMonitor != nil {
		go app.auditMonitor.Run(ctx, monitorInterval)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(app.noteService, app.log.With("component", "http")),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.Info(ctx, "http server listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.log.Info(context.Background(), "shutting down", "pending_purges", scheduler.Pending())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}
