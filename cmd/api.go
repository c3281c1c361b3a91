package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gmailbridge/internal/instrumentation"
	"gmailbridge/internal/logging"
	"gmailbridge/internal/server"
)

func newAPICmd() *cobra.Command {
	var (
		debugMode      bool
		addr           string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Start the REST API server",
		Long: `Start the HTTP REST API exposing the Gmail operations under /api.

The vault password is resolved once at startup; the session keeps it for
the lifetime of the server so requests never prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPI(addr, debugMode, MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			})
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&addr, "addr", server.DefaultAPIAddr, "API server address")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runAPI(addr string, debugMode bool, metricsConfig MetricsConfig) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(debugMode)

	if !metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "true" {
		metricsConfig.Enabled = true
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if envAddr := os.Getenv("METRICS_ADDR"); envAddr != "" {
			metricsConfig.Addr = envAddr
		}
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	password, err := resolveVaultPassword()
	if err != nil {
		return err
	}

	serverContext, err := newSession(shutdownCtx, logger, provider.Metrics(), password)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	apiServer := server.NewAPIServer(serverContext, addr)

	fmt.Printf("REST API server starting on %s\n", addr)
	if metricsServer != nil {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", metricsConfig.Addr)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		fmt.Println("Shutdown signal received, stopping API server...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer stopCancel()
		if err := apiServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down API server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("API server stopped with error: %w", err)
		}
	}

	fmt.Println("API server gracefully stopped")
	return nil
}
