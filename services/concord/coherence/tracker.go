// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coherence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/concord/services/concord/graph"
	"github.com/AleutianAI/concord/services/concord/storage"
)

const (
	// flushInterval is how many tracked interactions pass between
	// flushes of the recent window to storage.
	flushInterval = 100

	// persistWindow is how many recent interactions survive a flush.
	// The in-memory log is unbounded; only this window is durable.
	persistWindow = 10000

	// interactionLogKey is the storage key for the persisted window.
	interactionLogKey = "interaction_log"
)

// Interaction is one observed exchange between two agents. Immutable
// once tracked.
type Interaction struct {
	ID            string         `json:"id"`
	SourceAgent   string         `json:"source_agent"`
	TargetAgent   string         `json:"target_agent"`
	Topic         string         `json:"topic"`
	SchemaVersion string         `json:"schema_version"`
	Payload       map[string]any `json:"payload,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Successful    bool           `json:"successful"`
	Error         string         `json:"error,omitempty"`
}

// RateProvider supplies an externally computed rate in [0, 1].
type RateProvider func() float64

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore sets the durable store for the recent-interaction window.
func WithStore(store storage.RecordStore) Option {
	return func(t *Tracker) { t.store = store }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithCompletionRate wires the migration-completion sub-score to a
// live figure, typically Executor.CompletionRate.
func WithCompletionRate(fn RateProvider) Option {
	return func(t *Tracker) { t.completionRate = fn }
}

// WithPropagationRate wires the breaking-change-propagation sub-score
// to a live figure, typically ImpactAnalyzer.PropagationRate.
func WithPropagationRate(fn RateProvider) Option {
	return func(t *Tracker) { t.propagationRate = fn }
}

// Tracker records cross-agent interactions and computes consistency
// measures over the accumulated log.
//
// Thread Safety: all methods are safe for concurrent use. Writes are
// serialized by a single mutex; read-side computations take the read
// lock and never mutate the log.
type Tracker struct {
	mu      sync.RWMutex
	log     []Interaction
	recent  *ringBuffer[Interaction]
	tracked int

	// topicVersions counts version usage per topic. Cumulative for
	// the process lifetime; never truncated by flushes.
	topicVersions map[string]map[string]int

	graph  *graph.Graph
	store  storage.RecordStore
	logger *slog.Logger
	now    func() time.Time

	completionRate  RateProvider
	propagationRate RateProvider
}

// NewTracker creates a Tracker. Without options it keeps everything
// in memory and reports optimistic defaults for the external rates.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		recent:          newRingBuffer[Interaction](persistWindow),
		topicVersions:   make(map[string]map[string]int),
		logger:          slog.Default(),
		now:             func() time.Time { return time.Now().UTC() },
		completionRate:  func() float64 { return 1.0 },
		propagationRate: func() float64 { return 1.0 },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetGraph supplies the dependency graph used by path analysis,
// recommendations, and visualization.
func (t *Tracker) SetGraph(g *graph.Graph) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.graph = g
}

// Graph returns the configured dependency graph, or nil.
func (t *Tracker) Graph() *graph.Graph {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.graph
}

// TrackInteraction appends an observed interaction to the log.
//
// Description:
//
//	Assigns an ID and timestamp, updates the per-topic version
//	counters, and every 100th tracked interaction flushes the most
//	recent 10,000 records to the store. The persisted window
//	truncates; the in-memory log and counters do not. A flush failure
//	is logged and non-fatal.
//
// Outputs:
//
//	Interaction - The recorded interaction, including its assigned ID.
func (t *Tracker) TrackInteraction(ctx context.Context, source, target, topic, schemaVersion string, payload map[string]any, successful bool, errMsg string) Interaction {
	in := Interaction{
		ID:            uuid.NewString(),
		SourceAgent:   source,
		TargetAgent:   target,
		Topic:         topic,
		SchemaVersion: schemaVersion,
		Payload:       payload,
		Timestamp:     t.now(),
		Successful:    successful,
		Error:         errMsg,
	}

	t.mu.Lock()
	t.log = append(t.log, in)
	t.recent.push(in)
	t.countLocked(in)
	t.tracked++
	shouldFlush := t.tracked%flushInterval == 0
	if shouldFlush {
		t.flushLocked(ctx)
	}
	t.mu.Unlock()

	interactionsTrackedTotal.WithLabelValues(strconv.FormatBool(successful)).Inc()
	return in
}

// countLocked updates the cumulative per-topic version counters.
// Caller must hold the write lock.
func (t *Tracker) countLocked(in Interaction) {
	versions := t.topicVersions[in.Topic]
	if versions == nil {
		versions = make(map[string]int)
		t.topicVersions[in.Topic] = versions
	}
	versions[in.SchemaVersion]++
}

// flushLocked persists the recent window. Caller must hold the write
// lock so the persisted view is never half-updated.
func (t *Tracker) flushLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	if err := t.store.Put(ctx, interactionLogKey, t.recent.slice()); err != nil {
		t.logger.Error("interaction log flush failed", "error", err)
		return
	}
	logFlushesTotal.Inc()
	t.logger.Debug("interaction log flushed", "records", t.recent.len())
}

// Flush forces an immediate persistence of the recent window,
// independent of the 100-interaction cadence. Intended for shutdown.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store == nil {
		return nil
	}
	if err := t.store.Put(ctx, interactionLogKey, t.recent.slice()); err != nil {
		return fmt.Errorf("flush interaction log: %w", err)
	}
	logFlushesTotal.Inc()
	return nil
}

// LoadPersisted restores the persisted interaction window into the
// log and rebuilds the version counters from it. Intended for process
// startup, before any tracking.
func (t *Tracker) LoadPersisted(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	var window []Interaction
	if err := t.store.Get(ctx, interactionLogKey, &window); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load interaction log: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, in := range window {
		t.log = append(t.log, in)
		t.recent.push(in)
		t.countLocked(in)
	}
	t.logger.Info("interaction log loaded", "count", len(window))
	return nil
}

// Len returns the size of the in-memory log.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.log)
}

// Interactions returns a copy of the full in-memory log, oldest
// first.
func (t *Tracker) Interactions() []Interaction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Interaction, len(t.log))
	copy(out, t.log)
	return out
}

// inWindow returns log entries newer than now-window, or the whole
// log when window is zero.
func (t *Tracker) inWindow(window time.Duration) []Interaction {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if window <= 0 {
		out := make([]Interaction, len(t.log))
		copy(out, t.log)
		return out
	}
	cutoff := t.now().Add(-window)
	var out []Interaction
	for _, in := range t.log {
		if !in.Timestamp.Before(cutoff) {
			out = append(out, in)
		}
	}
	return out
}

// forAgent returns log entries where the agent appears as source or
// target, or the whole log when agent is empty.
func (t *Tracker) forAgent(agent string) []Interaction {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if agent == "" {
		out := make([]Interaction, len(t.log))
		copy(out, t.log)
		return out
	}
	var out []Interaction
	for _, in := range t.log {
		if in.SourceAgent == agent || in.TargetAgent == agent {
			out = append(out, in)
		}
	}
	return out
}
