// Package server initializes and runs the record persistence API: it picks
// the storage backend from configuration, wires the HTTP handlers and
// handles graceful shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/akozlovs/vinotes/internal/logging"
	"github.com/akozlovs/vinotes/internal/server/config"
	"github.com/akozlovs/vinotes/internal/server/httpapi"
	"github.com/akozlovs/vinotes/internal/server/records"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repo   records.Repository
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	logger := logging.NewSlogLogger(slog.New(handler))

	var repo records.Repository
	if cfg.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, using in-memory storage")
		repo = records.NewMemoryRepository()
	} else {
		pg, err := records.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		repo = pg
	}

	return &App{config: cfg, logger: logger, repo: repo}, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the API until ctx is cancelled or a termination signal
// arrives, then drains in-flight requests within the shutdown timeout.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.Info(ctx, "starting server", "addr", app.config.Addr)
	app.initSignalHandler(cancel)

	router := httpapi.NewRouter(httpapi.NewRecordHandler(app.repo, app.logger))
	srv := &http.Server{Addr: app.config.Addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	if closer, ok := app.repo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error(ctx, "closing storage failed", "error", err)
		}
	}
	return nil
}
