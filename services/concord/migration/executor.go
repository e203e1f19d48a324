// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/concord/services/concord/storage"
)

// historyKey is the storage key for the migration history record.
const historyKey = "migration_history"

// Option is a functional option for configuring Executor.
type Option func(*Executor)

// WithStore sets the durable record store for the migration history.
// Without a store, history is process-local.
func WithStore(store storage.RecordStore) Option {
	return func(e *Executor) {
		e.store = store
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// Executor registers, plans, applies, and rolls back migrations.
//
// Thread Safety: safe for concurrent use. One mutex serializes all
// writes; planning and history reads take the read lock.
type Executor struct {
	mu         sync.RWMutex
	migrations map[string]Migration
	regOrder   []string // IDs in registration order, for cycle fallback
	records    map[string]*Record
	store      storage.RecordStore
	logger     *slog.Logger
}

// NewExecutor creates an empty migration executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		migrations: make(map[string]Migration),
		records:    make(map[string]*Record),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register stores a migration under its derived ID. Last write wins;
// re-registering an ID replaces the transforms but keeps any existing
// record.
func (e *Executor) Register(m Migration) string {
	id := ID(m.Agent(), m.From(), m.To())

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.migrations[id]; !exists {
		e.regOrder = append(e.regOrder, id)
	}
	e.migrations[id] = m
	registeredMigrationsGauge.Set(float64(len(e.migrations)))

	e.logger.Info("migration registered", "id", id)
	return id
}

// Create builds a FuncMigration from transform functions and
// registers it. Convenience wrapper for the proposer's
// (forward, backward, validate) tuples.
func (e *Executor) Create(agent, from, to string, forward, backward TransformFunc, validate ValidateFunc, description string) (string, error) {
	m, err := New(agent, from, to, forward, backward, validate, description)
	if err != nil {
		return "", err
	}
	return e.Register(m), nil
}

// Get returns the migration registered under id.
func (e *Executor) Get(id string) (Migration, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.migrations[id]
	return m, ok
}

// Apply runs a migration's forward transform on a payload.
//
// Description:
//
//	Runs forward(payload), then validate(result). A transform error
//	or failed validation produces a FAILED record carrying the
//	message and an unsuccessful Result — transform failures are
//	expected outcomes, not errors. Success produces an APPLIED record
//	with a timestamp. The updated history is persisted under the same
//	lock; a persistence failure is logged and non-fatal.
//
// Outputs:
//
//	*Result - The outcome, including before/after payloads on success.
//	error - ErrMigrationNotFound only; never transform failures.
func (e *Executor) Apply(ctx context.Context, agent, id string, payload Payload) (*Result, error) {
	m, ok := e.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s (agent %s)", ErrMigrationNotFound, id, agent)
	}
	start := time.Now()
	defer func() {
		migrationDurationSeconds.WithLabelValues("apply").Observe(time.Since(start).Seconds())
	}()

	transformed, err := m.Forward(payload)
	if err != nil {
		e.recordFailure(ctx, m, id, err.Error())
		migrationOperationsTotal.WithLabelValues("apply", "failed").Inc()
		return &Result{MigrationID: id, Success: false, Status: StatusFailed, Before: payload, Error: err.Error()}, nil
	}

	valid, err := m.Validate(transformed)
	if err != nil {
		e.recordFailure(ctx, m, id, err.Error())
		migrationOperationsTotal.WithLabelValues("apply", "failed").Inc()
		return &Result{MigrationID: id, Success: false, Status: StatusFailed, Before: payload, Error: err.Error()}, nil
	}
	if !valid {
		e.recordFailure(ctx, m, id, "validation failed")
		migrationOperationsTotal.WithLabelValues("apply", "failed").Inc()
		return &Result{MigrationID: id, Success: false, Status: StatusFailed, Before: payload, Error: "validation failed"}, nil
	}

	now := time.Now().UTC()
	e.mu.Lock()
	e.records[id] = &Record{
		MigrationID: id,
		Agent:       m.Agent(),
		From:        m.From(),
		To:          m.To(),
		Status:      StatusApplied,
		AppliedAt:   &now,
	}
	e.persistLocked(ctx)
	e.mu.Unlock()

	migrationOperationsTotal.WithLabelValues("apply", "applied").Inc()
	e.logger.Info("migration applied", "id", id, "agent", m.Agent())
	return &Result{MigrationID: id, Success: true, Status: StatusApplied, Before: payload, After: transformed}, nil
}

// Rollback runs a migration's backward transform on a payload.
//
// Description:
//
//	Rollback is defined purely by the backward transform and runs
//	regardless of process-local apply history: rolling back a
//	migration that is not currently APPLIED is a harmless no-op on
//	the record, and the transform still runs. Only a backward
//	transform failure produces an unsuccessful Result.
func (e *Executor) Rollback(ctx context.Context, agent, id string, payload Payload) (*Result, error) {
	m, ok := e.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s (agent %s)", ErrMigrationNotFound, id, agent)
	}
	start := time.Now()
	defer func() {
		migrationDurationSeconds.WithLabelValues("rollback").Observe(time.Since(start).Seconds())
	}()

	restored, err := m.Backward(payload)
	if err != nil {
		migrationOperationsTotal.WithLabelValues("rollback", "failed").Inc()
		return &Result{MigrationID: id, Success: false, Status: StatusFailed, Before: payload, Error: err.Error()}, nil
	}

	now := time.Now().UTC()
	e.mu.Lock()
	if rec, exists := e.records[id]; exists && rec.Status == StatusApplied {
		rec.Status = StatusRolledBack
		rec.RolledBackAt = &now
		e.persistLocked(ctx)
	}
	e.mu.Unlock()

	migrationOperationsTotal.WithLabelValues("rollback", "rolled_back").Inc()
	e.logger.Info("migration rolled back", "id", id, "agent", m.Agent())
	return &Result{MigrationID: id, Success: true, Status: StatusRolledBack, Before: payload, After: restored}, nil
}

// recordFailure writes a FAILED record and persists the history.
func (e *Executor) recordFailure(ctx context.Context, m Migration, id, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.records[id] = &Record{
		MigrationID: id,
		Agent:       m.Agent(),
		From:        m.From(),
		To:          m.To(),
		Status:      StatusFailed,
		Error:       message,
	}
	e.persistLocked(ctx)
	e.logger.Warn("migration failed", "id", id, "agent", m.Agent(), "error", message)
}

// Pending returns migrations with no record or a PENDING record,
// ordered by the plan. If planning hits a cycle the registration
// order is used instead: a caller asking "what's outstanding" must
// not be blocked by a modeling bug elsewhere.
func (e *Executor) Pending(agent string) []Migration {
	e.mu.RLock()
	var candidates []Migration
	for _, id := range e.regOrder {
		m := e.migrations[id]
		if agent != "" && m.Agent() != agent {
			continue
		}
		rec, exists := e.records[id]
		if !exists || rec.Status == StatusPending {
			candidates = append(candidates, m)
		}
	}
	e.mu.RUnlock()

	// Plan treats nil as "everything registered"; an empty candidate
	// set must stay empty.
	if len(candidates) == 0 {
		return nil
	}
	planned, err := e.Plan(candidates)
	if err != nil {
		e.logger.Warn("pending migrations fall back to registration order", "error", err)
		return candidates
	}
	return planned
}

// History returns migration records, optionally filtered by agent,
// sorted by migration ID for stable output.
func (e *Executor) History(agent string) []*Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := make([]*Record, 0, len(e.records))
	for _, rec := range e.records {
		if agent != "" && rec.Agent != agent {
			continue
		}
		copied := *rec
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].MigrationID < records[j].MigrationID
	})
	return records
}

// CompletionRate reports the fraction of registered migrations whose
// record is APPLIED. With nothing registered the rate is 1.0; an
// empty plan is complete by definition.
func (e *Executor) CompletionRate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.migrations) == 0 {
		return 1.0
	}
	applied := 0
	for id := range e.migrations {
		if rec, ok := e.records[id]; ok && rec.Status == StatusApplied {
			applied++
		}
	}
	return float64(applied) / float64(len(e.migrations))
}

// persistLocked writes the full history to the store. Caller must
// hold the write lock so the persisted view is never half-updated.
func (e *Executor) persistLocked(ctx context.Context) {
	if e.store == nil {
		return
	}

	records := make([]*Record, 0, len(e.records))
	for _, rec := range e.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].MigrationID < records[j].MigrationID
	})

	if err := e.store.Put(ctx, historyKey, records); err != nil {
		e.logger.Error("migration history persistence failed", "error", err)
	}
}

// LoadPersisted restores migration records from the configured store.
// Intended for process startup. Migrations themselves are code and
// must be re-registered by the caller; only records are durable.
func (e *Executor) LoadPersisted(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	var records []*Record
	if err := e.store.Get(ctx, historyKey, &records); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load migration history: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range records {
		e.records[rec.MigrationID] = rec
	}
	e.logger.Info("migration history loaded", "count", len(records))
	return nil
}
