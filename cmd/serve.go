package cmd

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

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/bizgateway/internal/config"
	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

// Transports accepted by --transport.
const (
	transportSSE   = "sse"
	transportStdio = "stdio"
)

const startupTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server.

Supported transports:
  - sse: HTTP server with a server-sent event stream (default)
      GET  /mcp/sse       opens the event stream
      POST /mcp/messages  accepts JSON-RPC messages
      GET  /, /health, /analytics, /healthz, /readyz, /healthz/detailed
  - stdio: newline-delimited JSON-RPC on standard input and output

Configuration is read from the defaults, the --config YAML file, the
environment (after loading --env-file) and finally these flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transport != transportSSE && transport != transportStdio {
				return fmt.Errorf("unsupported transport %q, must be one of: sse, stdio", transport)
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(transport, cfg)
		},
	}

	// Settings flags are read by resolveConfig and only applied when set.
	cmd.Flags().StringVar(&transport, "transport", transportSSE, "Transport type: sse or stdio")
	cmd.Flags().String("http-addr", ":3000", "HTTP listen address for the sse transport. Can also use HTTP_ADDR or PORT env vars.")
	cmd.Flags().Bool("read-only", false, "Register only tools that do not send mail or SMS or generate batches. Can also use READ_ONLY env var.")
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	cmd.Flags().Duration("keepalive-interval", server.DefaultKeepAliveInterval, "Interval between keep-alive comments on the event stream. Can also use KEEPALIVE_INTERVAL env var.")

	return cmd
}

// resolveConfig loads the configuration and overlays the serve flags that
// were set explicitly.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	var errs []error
	overlay := func(name string, apply func() error) {
		if flags.Changed(name) {
			errs = append(errs, apply())
		}
	}
	overlay("http-addr", func() (err error) { cfg.HTTP.Addr, err = flags.GetString("http-addr"); return })
	overlay("read-only", func() (err error) { cfg.ReadOnly, err = flags.GetBool("read-only"); return })
	overlay("metrics-enabled", func() (err error) { cfg.Metrics.Enabled, err = flags.GetBool("metrics-enabled"); return })
	overlay("metrics-addr", func() (err error) { cfg.Metrics.Addr, err = flags.GetString("metrics-addr"); return })
	overlay("keepalive-interval", func() (err error) {
		cfg.HTTP.KeepAliveInterval, err = flags.GetDuration("keepalive-interval")
		return
	})
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(transport string, cfg config.Config) error {
	logger := slog.Default()

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if transport == transportStdio && instrConfig.MetricsExporter == instrumentation.ExporterStdout {
		// stdout carries the protocol
		logger.Warn("stdout metrics exporter conflicts with the stdio transport, using prometheus")
		instrConfig.MetricsExporter = instrumentation.ExporterPrometheus
	}
	if transport == transportStdio && instrConfig.TracingExporter == instrumentation.ExporterStdout {
		logger.Warn("stdout tracing exporter conflicts with the stdio transport, disabling tracing")
		instrConfig.TracingExporter = instrumentation.ExporterNone
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", "error", err)
		}
	}()
	metrics := provider.Metrics()

	connectors, closeStores, err := connectorOptions(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	opts := append(connectors,
		server.WithMetrics(metrics),
		server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
	)
	sc, err := server.NewServerContext(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := sc.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", "error", err)
		}
	}()

	reg := newRegistry(sc, logger)
	if err := registerAllTools(reg, sc, cfg.ReadOnly); err != nil {
		return err
	}
	logger.Info("tools registered", "count", reg.Len(), "read_only", cfg.ReadOnly)

	mcpSrv := mcpserver.NewMCPServer(serviceName, version,
		mcpserver.WithToolCapabilities(true),
	)
	dispatcher := registry.NewDispatcher(reg, mcpSrv, logger)

	if transport == transportStdio {
		err := server.ServeStdio(ctx, server.StdioConfig{
			Handler:  dispatcher,
			Sessions: mcpSrv,
			Metrics:  metrics,
			Logger:   logger,
		}, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server error: %w", err)
		}
		return nil
	}

	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(cfg.Metrics.Addr, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	return runSSEServer(ctx, sc, reg, dispatcher, mcpSrv, cfg, logger)
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ready:
		logger.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-errCh:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return nil, errors.New("metrics server startup timed out")
	}
}

func runSSEServer(ctx context.Context, sc *server.ServerContext, reg *registry.Registry, dispatcher *registry.Dispatcher, mcpSrv *mcpserver.MCPServer, cfg config.Config, logger *slog.Logger) error {
	slot := server.NewSessionSlot(ctx, logger)
	transport := server.NewSSETransport(server.TransportConfig{
		Handler:           dispatcher,
		Sessions:          mcpSrv,
		Slot:              slot,
		KeepAliveInterval: cfg.HTTP.KeepAliveInterval,
		Metrics:           sc.Metrics(),
		Logger:            logger,
	})
	defer transport.Close()

	health := server.NewHealthChecker(sc, reg, slot, server.ServiceInfo{
		Name:    serviceName,
		Title:   serviceTitle,
		Version: version,
	})

	httpServer, err := server.NewHTTPServer(server.HTTPConfig{
		Addr:      cfg.HTTP.Addr,
		Transport: transport,
		Health:    health,
		Metrics:   sc.Metrics(),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
		logger.Info("MCP server listening",
			"addr", httpServer.Addr(),
			"sse", server.SSEPath,
			"messages", server.MessagesPath,
		)
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return errors.New("HTTP server startup timed out")
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server stopped")
	return nil
}
