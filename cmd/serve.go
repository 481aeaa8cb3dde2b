package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/adapters/native"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
	"github.com/pixzlo/pixzlo-bridge/internal/version"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var metricsListen string

	cmd := &cobra.Command{
		Use:   "serve [extension-origin]",
		Short: "Run the native messaging host on stdin/stdout",
		Long:  "serve reads length-prefixed JSON messages from stdin and writes responses to stdout until the browser closes the pipe. The browser starts it automatically when the first argument is a chrome-extension:// origin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := app.logger
			if len(args) == 1 {
				logger = logger.With("origin", args[0])
			}

			listen := metricsListen
			if listen == "" {
				listen = app.cfg.MetricsListen
			}
			if listen != "" {
				stopMetrics, err := startMetricsServer(ctx, listen, logger)
				if err != nil {
					return err
				}
				defer stopMetrics()
			}

			logger.Info("native host started", "version", version.Version)
			host := native.NewHost(cmd.InOrStdin(), cmd.OutOrStdout(), logger, app.dispatcher.Listener())
			err := host.Serve(ctx)
			app.dispatcher.Wait()
			logger.Info("native host stopped")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "address for the Prometheus /metrics endpoint (overrides metrics.listen)")
	return cmd
}

func startMetricsServer(ctx context.Context, addr string, logger *slog.Logger) (func(), error) {
	shutdownMetrics, err := telemetry.InitMetrics(ctx, telemetry.MetricsConfig{
		ServiceName:      "pixzlo-bridge",
		ServiceVersion:   version.Version,
		EnablePrometheus: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = shutdownMetrics(ctx)
		return nil, fmt.Errorf("listen metrics server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.PrometheusHandler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", serveErr)
		}
	}()
	logger.Info("metrics server listening", "addr", listener.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}, nil
}
