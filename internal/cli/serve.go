package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/edgemetrics/internal/metrics"
)

// shutdownTimeout bounds the metrics server's graceful shutdown.
const shutdownTimeout = 10 * time.Second

func newServeCmd(st *state) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled backups until interrupted",
		Long: `Serve keeps the store open and takes a backup on start, every
backup.interval, and once more on SIGINT or SIGTERM. With --metrics-addr
(or metrics.addr in config.yaml) it also serves Prometheus metrics on
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr == "" {
				metricsAddr = st.settings.MetricsAddr
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, st, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint (disabled when empty)")
	return cmd
}

// runServe blocks until ctx is done or the metrics server fails.
func runServe(ctx context.Context, st *state, metricsAddr string) (err error) {
	logger := st.logger.With(slog.String("run_id", uuid.NewString()))
	st.logger = logger

	provider, err := metrics.NewProvider()
	if err != nil {
		return sysError("metrics: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	bm, err := metrics.NewBusinessMetrics(provider.MeterProvider())
	if err != nil {
		return sysError("metrics: %w", err)
	}

	a, err := st.open(ctx, bm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = sysError("close store: %w", cerr)
		}
	}()

	serverErr := make(chan error, 1)
	var server *metrics.Server
	if metricsAddr != "" {
		server = metrics.NewServer(metricsAddr, provider, logger)
		go func() {
			if err := server.Start(); err != nil {
				serverErr <- err
			}
		}()
	}

	interval := a.Backups.Config().Interval
	logger.Info("backup scheduler started", slog.Duration("interval", interval))
	stop := a.Scheduler().Start(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErr:
		logger.Error("metrics server failed, shutting down", slog.Any("error", runErr))
	}

	// Waits for the exit backup.
	stop()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return sysError("serve: %w", errors.Join(errs...))
	}
	logger.Info("stopped")
	return nil
}
