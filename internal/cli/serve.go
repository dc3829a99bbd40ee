package cli

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

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/database"
	"github.com/querypilot/querypilot/internal/tools"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tool catalog as an MCP stdio server",
		Long: `Run the tool catalog as an MCP stdio server.

The four database operations (list_databases, create_database,
switch_database, query_data) are exposed over the Model Context Protocol on
stdin/stdout. Prometheus metrics and a health check are served over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address for /metrics and /healthz (overrides config)")

	return cmd
}

func runServe(ctx context.Context, root *rootOptions, metricsAddr string) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	if metricsAddr == "" {
		metricsAddr = cfg.Server.MetricsAddr
	}
	cfg.Server.MetricsAddr = metricsAddr
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.Default().With("component", "serve")

	manager, err := database.NewManager(cfg.Database.Root,
		database.WithQueryTimeout(cfg.Database.QueryTimeout),
	)
	if err != nil {
		return err
	}

	httpServer := newMetricsServer(metricsAddr)
	go func() {
		logger.Info("metrics server listening", "addr", metricsAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	// Shut the metrics listener down on SIGINT/SIGTERM or when stdio closes.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		logger.Info("MCP server listening on stdio", "root", cfg.Database.Root)
		done <- server.ServeStdio(tools.NewMCPServer(manager, Version))
	}()

	select {
	case err = <-done:
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
		err = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("metrics server shutdown failed", "error", shutdownErr)
	}

	return err
}

func newMetricsServer(addr string) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
