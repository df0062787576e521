// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/health-search/internal/history"
	"github.com/pdiddy/health-search/internal/metrics"
	"github.com/pdiddy/health-search/internal/research"
	"github.com/pdiddy/health-search/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health search HTTP service",
	Long: `Serve listens for POST /health-search (and /functions/v1/health-search)
requests and answers each with a research document. It also serves
GET /healthz and GET /metrics. SIGINT or SIGTERM triggers a graceful shutdown.

A missing research key does not prevent startup; search requests then fail
with a configuration error until the key is provided.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		viper.Set("server.addr", addr)
	}

	cfg, keys, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector("health_search")
	orch := research.New(cfg.Orchestrator, keys, logger, research.WithObserver(collector))
	if err := orch.Configured(); err != nil {
		logger.Warn("research API key not set; searches will fail until it is configured")
	}
	if !orch.EnhancementEnabled() {
		logger.Info("enhancement API key not set; wording enhancement disabled")
	}

	opts := []server.Option{server.WithMetrics(collector)}
	rec, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	if rec != nil {
		defer rec.Close()
		opts = append(opts, server.WithRecorder(rec))
		logger.Info("search history enabled", zap.String("backend", string(cfg.History.Backend)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg.Server, orch, logger, opts...).ListenAndServe(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
