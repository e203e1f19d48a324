// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package concord wires the contract registry, impact analyzer,
// migration executor, and coherence tracker into one service behind
// an HTTP surface.
package concord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/concord/services/concord/coherence"
	"github.com/AleutianAI/concord/services/concord/graph"
	"github.com/AleutianAI/concord/services/concord/migration"
	"github.com/AleutianAI/concord/services/concord/registry"
	"github.com/AleutianAI/concord/services/concord/storage"
)

// ServiceVersion is the Concord service version.
const ServiceVersion = "0.1.0"

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// DataDir is the Badger directory for persisted state. Ignored
	// when InMemory is true.
	DataDir string `yaml:"data_dir"`

	// InMemory keeps all state in process memory. Useful for tests
	// and ephemeral deployments.
	InMemory bool `yaml:"in_memory"`

	// ClosedSchemas makes the registry warn on undeclared producer
	// fields during compatibility validation.
	ClosedSchemas bool `yaml:"closed_schemas"`

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultServiceConfig returns a config persisting under ./data.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{DataDir: "data"}
}

// Service owns the schema-evolution subsystems and their shared
// dependency graph.
//
// Thread Safety: safe for concurrent use; each subsystem serializes
// its own state.
type Service struct {
	registry *registry.ContractRegistry
	impact   *registry.ImpactAnalyzer
	executor *migration.Executor
	tracker  *coherence.Tracker

	store  storage.RecordStore
	logger *slog.Logger
}

// NewService constructs a Service and its subsystems over one shared
// store.
//
// Description:
//
//	Opens the Badger store (or an in-memory one), builds the contract
//	registry, impact analyzer, migration executor, and coherence
//	tracker, and wires the tracker's external rate providers to the
//	executor's completion rate and the analyzer's propagation rate.
func NewService(cfg ServiceConfig) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var store storage.RecordStore
	if cfg.InMemory {
		store = storage.NewMemoryStore()
	} else {
		bcfg := storage.DefaultBadgerConfig(cfg.DataDir)
		bcfg.Logger = logger
		var err error
		store, err = storage.OpenBadger(bcfg)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	regOpts := []registry.Option{
		registry.WithStore(store),
		registry.WithLogger(logger),
	}
	if cfg.ClosedSchemas {
		regOpts = append(regOpts, registry.WithClosedSchemas())
	}
	reg := registry.NewContractRegistry(regOpts...)
	impact := registry.NewImpactAnalyzer(reg, logger)

	executor := migration.NewExecutor(
		migration.WithStore(store),
		migration.WithLogger(logger),
	)

	tracker := coherence.NewTracker(
		coherence.WithStore(store),
		coherence.WithLogger(logger),
		coherence.WithCompletionRate(executor.CompletionRate),
		coherence.WithPropagationRate(impact.PropagationRate),
	)

	return &Service{
		registry: reg,
		impact:   impact,
		executor: executor,
		tracker:  tracker,
		store:    store,
		logger:   logger,
	}, nil
}

// Registry returns the contract registry.
func (s *Service) Registry() *registry.ContractRegistry { return s.registry }

// Impact returns the impact analyzer.
func (s *Service) Impact() *registry.ImpactAnalyzer { return s.impact }

// Executor returns the migration executor.
func (s *Service) Executor() *migration.Executor { return s.executor }

// Tracker returns the coherence tracker.
func (s *Service) Tracker() *coherence.Tracker { return s.tracker }

// SetGraph supplies the dependency graph to every subsystem that
// consumes it.
func (s *Service) SetGraph(g *graph.Graph) {
	s.impact.SetGraph(g)
	s.tracker.SetGraph(g)
}

// Graph returns the shared dependency graph, or nil.
func (s *Service) Graph() *graph.Graph { return s.impact.Graph() }

// LoadPersisted restores all persisted state. Intended for process
// startup, before serving traffic.
func (s *Service) LoadPersisted(ctx context.Context) error {
	if err := s.registry.LoadPersisted(ctx); err != nil {
		return err
	}
	if err := s.executor.LoadPersisted(ctx); err != nil {
		return err
	}
	return s.tracker.LoadPersisted(ctx)
}

// Close flushes the interaction window and releases the store.
func (s *Service) Close(ctx context.Context) error {
	if err := s.tracker.Flush(ctx); err != nil {
		s.logger.Error("final interaction flush failed", "error", err)
	}
	return s.store.Close()
}
