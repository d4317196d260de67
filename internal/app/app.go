package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/identitysvc/internal/config"
	"github.com/you/identitysvc/internal/infrastructure/database"
	"github.com/you/identitysvc/internal/logging"
)

// ShutdownTimeout bounds how long in-flight requests may take to finish
const ShutdownTimeout = 15 * time.Second

// Run serves the identity API and the notification worker until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logging.LogWarn(context.Background(), logger, "shutdown close failed", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return Serve(ctx, srv, c.Worker, logger)
}

// worker is the part of notifications.Worker Serve depends on
type worker interface {
	Run(ctx context.Context) error
}

// Serve runs srv and w side by side. It returns when ctx is cancelled or
// either of them fails, after shutting both down.
func Serve(ctx context.Context, srv *http.Server, w worker, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case runErr = <-errCh:
		logging.LogError(context.Background(), logger, "component failed; shutting down", runErr)
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	wg.Wait()
	return runErr
}

// Migrate creates or updates the relational schema and exits
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DSN, !cfg.IsProduction())
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	logger.Info("schema migrated")
	return nil
}
