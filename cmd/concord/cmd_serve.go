// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/concord/pkg/logging"
	"github.com/AleutianAI/concord/services/concord"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Concord API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlagOverrides(cmd)
		return runServe()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().Bool("debug", false, "Enable debug mode")
	serveCmd.Flags().Bool("in-memory", false, "Keep all state in memory")
	serveCmd.Flags().String("data-dir", "", "Badger data directory (overrides config)")
}

func applyFlagOverrides(cmd *cobra.Command) {
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		config.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		config.Server.Debug = true
	}
	if inMemory, _ := cmd.Flags().GetBool("in-memory"); inMemory {
		config.Storage.InMemory = true
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		config.Storage.DataDir = dir
	}
}

func runServe() error {
	logger, closeLogs, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Logging.Level),
		LogDir:  config.Logging.Dir,
		Service: "concord",
		JSON:    config.Logging.JSON,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closeLogs() }()

	if config.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, err := concord.NewService(concord.ServiceConfig{
		DataDir:       config.Storage.DataDir,
		InMemory:      config.Storage.InMemory,
		ClosedSchemas: config.Registry.ClosedSchemas,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.LoadPersisted(ctx); err != nil {
		logger.Error("Failed to restore persisted state", "error", err)
		_ = svc.Close(ctx)
		return err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("concord"))
	if config.Server.Debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	concord.RegisterRoutes(v1, concord.NewHandlers(svc))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(config.Server.Port)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting Concord server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = svc.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down Concord server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	return svc.Close(shutdownCtx)
}

func printBanner(port int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                        CONCORD SERVER                             ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Schema-evolution coherence for multi-agent systems.              ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/concord/health                │  ║
║  │                                                             │  ║
║  │ # Register a contract                                       │  ║
║  │ curl -X POST http://localhost:%d/v1/concord/contracts \   │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"agent_name":"OrderService","version":"1.0.0"}'      │  ║
║  │                                                             │  ║
║  │ # Coherence metrics                                         │  ║
║  │ curl http://localhost:%d/v1/concord/coherence/metrics     │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Contracts: /contracts, /compatibility, /impact               ║
║  ├── Graph: /graph                                                ║
║  ├── Migrations: /apply, /rollback, /pending, /plan, /history     ║
║  └── Coherence: /interactions, /metrics, /drift, /report          ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, port, port, port)
}
