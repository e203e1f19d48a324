// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command concord starts the Concord schema-evolution server.
//
// Concord keeps a multi-agent system coherent while schemas evolve:
//   - Versioned contract registry with compatibility validation
//   - Breaking-change impact analysis over a dependency graph
//   - Reversible payload migrations with dependency-safe planning
//   - Live coherence tracking: drift detection, metrics, path analysis
//
// Usage:
//
//	go run ./cmd/concord serve
//	go run ./cmd/concord serve --port 9090 --in-memory
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/concord/health
//
//	# Register a contract
//	curl -X POST http://localhost:8080/v1/concord/contracts \
//	  -H "Content-Type: application/json" \
//	  -d '{"agent_name": "OrderService", "version": "1.0.0", "schema": {}}'
//
//	# Coherence metrics
//	curl http://localhost:8080/v1/concord/coherence/metrics | jq
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	config     Config
)

var rootCmd = &cobra.Command{
	Use:   "concord",
	Short: "Schema-evolution coherence server",
	Long: "Concord tracks agent contracts, analyzes schema-change impact,\n" +
		"plans and executes payload migrations, and measures live coherence.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = LoadConfig(configPath)
		return err
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
