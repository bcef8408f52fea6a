package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/UnknownOlympus/geobatch/internal/config"
	api "github.com/UnknownOlympus/geobatch/internal/http"
	"github.com/UnknownOlympus/geobatch/internal/metrics"
	"github.com/UnknownOlympus/geobatch/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the geocoding HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// Load application configuration.
			cfg := config.MustLoad()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			// Set up the logger based on the environment.
			logger := setupLogger(cfg.Env, os.Stdout)

			// Create a separate registry for metrics.
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			appMetrics := metrics.NewMetrics(reg)

			var db api.Pinger
			if cfg.Database.Configured() {
				pool, err := repository.NewDatabase(
					cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
				)
				if err != nil {
					return fmt.Errorf("failed to connect to DB: %w", err)
				}
				defer pool.Close()
				db = pool
			}

			geoService, err := newGeocodingService(cfg, logger, appMetrics)
			if err != nil {
				return err
			}

			if cfg.Env != envLocal {
				gin.SetMode(gin.ReleaseMode)
			}
			router := api.SetupRouter(api.NewHandler(geoService, db, logger, cfg.MaxBatchRows), reg, cfg.CORSOrigins)

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			return runServer(ctx, server, logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides GEOBATCH_HTTP_PORT)")

	return cmd
}

// runServer serves until ctx is canceled, then shuts down gracefully.
func runServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	logger.InfoContext(ctx, "Server stopped gracefully.")

	return nil
}
