package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"asset-reservation-backend/config"
	"asset-reservation-backend/internal/api"
	"asset-reservation-backend/internal/audit"
	"asset-reservation-backend/internal/clock"
	"asset-reservation-backend/internal/db"
	"asset-reservation-backend/internal/reservation"
	"asset-reservation-backend/internal/store"
	"asset-reservation-backend/internal/sweeper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the expiry sweeper and the audit writers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg, logger)
	},
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to load configuration from %s", configPath)
	}
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath)
	return cfg, logger, nil
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	logger.Info("database initialized", "driver", cfg.Database.Driver)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	auditPool := audit.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, logger)
	auditPool.Start(ctx)

	clk := clock.NewRealClock()
	engine := reservation.NewEngine(
		reservation.WithClock(clk),
		reservation.WithPersister(appStore),
		reservation.WithEventSink(auditPool),
		reservation.WithLogger(logger),
	)
	if err := engine.Load(ctx); err != nil {
		return err
	}

	sweeperSvc := sweeper.NewService(cfg.Sweeper, engine, clk, logger)
	go sweeperSvc.Run(ctx)

	router := api.NewRouter(api.NewHandler(engine, appStore, logger), cfg, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received, stopping services")
	case err := <-serverErr:
		return errors.Wrap(err, "HTTP server ListenAndServe")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server Shutdown")
	}

	// Stop the sweeper and let the audit workers flush what is queued.
	cancel()
	auditPool.Wait()

	logger.Info("server gracefully stopped")
	return nil
}
