package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"timesheet/backend/internal/config"
	"timesheet/backend/internal/handler"
	"timesheet/backend/internal/i18n"
	"timesheet/backend/internal/repository"
	"timesheet/backend/internal/router"
	"timesheet/backend/internal/service"
	"timesheet/backend/internal/writeback"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg, os.Stdout, true)
	slog.SetDefault(logger)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	labels, err := i18n.New(cfg.Locale)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	userRepo := repository.NewUserRepository(database)
	rateRepo := repository.NewRateRepository(database)
	dayRepo := repository.NewDayRepository(database)
	writes := writeback.New(cfg.SaveDebounce, cfg.SaveTimeout, logger)

	authService := service.NewAuthService(userRepo, rateRepo, cfg.JWTSecret, cfg.TokenTTL, logger)
	timesheetService := service.NewTimesheetService(dayRepo, rateRepo, writes, logger)
	exportService := service.NewExportService(timesheetService, labels)

	authHandler := handler.NewAuthHandler(authService)
	timesheetHandler := handler.NewTimesheetHandler(timesheetService, exportService)

	engine := router.New(authService, authHandler, timesheetHandler, cfg.CORSOrigins)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverError := make(chan error, 1)
	go func() {
		logger.Info("backend listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case err := <-serverError:
		return fmt.Errorf("run server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return shutdown(shutdownCtx, srv, timesheetService, logger)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type flusher interface {
	Flush(ctx context.Context) error
}

// shutdown drains in-flight requests, then pushes out whatever saves are
// still debouncing. Both share the deadline of ctx.
func shutdown(ctx context.Context, srv shutdowner, saves flusher, logger *slog.Logger) error {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := saves.Flush(ctx); err != nil {
		return fmt.Errorf("flush pending saves: %w", err)
	}
	logger.Info("pending saves flushed")
	return nil
}
