// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/concord/services/concord/storage"
)

// contractKeyPrefix namespaces contract records in the store.
const contractKeyPrefix = "contract_"

// Option is a functional option for configuring ContractRegistry.
type Option func(*ContractRegistry)

// WithStore sets the durable record store. Without a store the
// registry is memory-only.
func WithStore(store storage.RecordStore) Option {
	return func(r *ContractRegistry) {
		r.store = store
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *ContractRegistry) {
		r.logger = logger
	}
}

// WithClosedSchemas makes compatibility validation report producer
// fields the consumer never declared. The default is open schemas:
// extra fields never break a reader and are not reported.
func WithClosedSchemas() Option {
	return func(r *ContractRegistry) {
		r.closedSchemas = true
	}
}

// ContractRegistry stores every version of every agent contract.
//
// Thread Safety: safe for concurrent use. Writes are serialized
// through one mutex; reads may run concurrently with each other.
type ContractRegistry struct {
	mu            sync.RWMutex
	contracts     map[string]map[string]*Contract // agent -> version string -> contract
	store         storage.RecordStore
	logger        *slog.Logger
	closedSchemas bool
}

// NewContractRegistry creates an empty registry.
func NewContractRegistry(opts ...Option) *ContractRegistry {
	r := &ContractRegistry{
		contracts: make(map[string]map[string]*Contract),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a contract for (agent, version).
//
// Description:
//
//	The version string must be MAJOR.MINOR.PATCH. Re-registering an
//	existing (agent, version) pair overwrites it; registration is
//	idempotent. The contract is persisted under "{agent}_{version}"
//	when a store is configured; a persistence failure is logged and
//	surfaced via the log only — in-memory state stays authoritative.
//
// Outputs:
//
//	*Contract - The stored contract.
//	error - ErrInvalidVersion (wrapped) on a malformed version string.
func (r *ContractRegistry) Register(agent, version string, schema AgentSchema) (*Contract, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return nil, err
	}

	contract := &Contract{
		AgentName:    agent,
		Version:      v,
		Methods:      schema.Methods,
		Publishes:    schema.Publishes,
		Subscribes:   schema.Subscribes,
		Description:  schema.Description,
		RegisteredAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.contracts[agent] == nil {
		r.contracts[agent] = make(map[string]*Contract)
	}
	r.contracts[agent][v.String()] = contract

	if r.store != nil {
		key := contractKeyPrefix + ContractKey(agent, v)
		if err := r.store.Put(context.Background(), key, contract); err != nil {
			r.logger.Error("contract persistence failed",
				"agent", agent, "version", v.String(), "error", err)
		}
	}

	r.logger.Info("contract registered", "agent", agent, "version", v.String())
	return contract, nil
}

// Get retrieves a contract.
//
// Description:
//
//	With a version string, returns that exact version. With an empty
//	version, returns the highest registered version by semver order.
//
// Outputs:
//
//	*Contract - The contract, or nil if absent.
//	bool - Whether a contract was found.
func (r *ContractRegistry) Get(agent, version string) (*Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion := r.contracts[agent]
	if len(byVersion) == 0 {
		return nil, false
	}

	if version != "" {
		c, ok := byVersion[version]
		return c, ok
	}

	var latest *Contract
	for _, c := range byVersion {
		if latest == nil || latest.Version.Less(c.Version) {
			latest = c
		}
	}
	return latest, latest != nil
}

// AllVersions returns every registered version of an agent, ascending
// by semver order. Empty if the agent is unknown.
func (r *ContractRegistry) AllVersions(agent string) []Version {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allVersionsLocked(agent)
}

func (r *ContractRegistry) allVersionsLocked(agent string) []Version {
	byVersion := r.contracts[agent]
	if len(byVersion) == 0 {
		return nil
	}
	versions := make([]Version, 0, len(byVersion))
	for _, c := range byVersion {
		versions = append(versions, c.Version)
	}
	SortVersions(versions)
	return versions
}

// Agents returns the names of all agents with at least one contract,
// sorted.
func (r *ContractRegistry) Agents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.contracts))
	for agent, byVersion := range r.contracts {
		if len(byVersion) > 0 {
			names = append(names, agent)
		}
	}
	sort.Strings(names)
	return names
}

// ValidateCompatibility checks whether a producer's published events
// satisfy a consumer's subscriptions.
//
// Description:
//
//	Resolves both contracts (latest version when the version argument
//	is empty) and validates every topic the consumer subscribes to
//	that the producer publishes. Fails closed: if either side lacks a
//	contract, the result is incompatible with a missing_contract
//	issue rather than an optimistic pass.
func (r *ContractRegistry) ValidateCompatibility(producer, consumer, producerVersion, consumerVersion string) CompatibilityResult {
	prod, prodOK := r.Get(producer, producerVersion)
	cons, consOK := r.Get(consumer, consumerVersion)

	if !prodOK || !consOK {
		missing := producer
		if prodOK {
			missing = consumer
		}
		return CompatibilityResult{
			Compatible: false,
			Level:      CompatUnknown,
			Issues: []CompatIssue{{
				Severity:    SeverityBreaking,
				Kind:        IssueMissingContract,
				Description: fmt.Sprintf("no contract registered for agent %q", missing),
			}},
		}
	}

	return r.validateContracts(prod, cons)
}

// validateContracts runs topic-by-topic payload validation between
// two resolved contracts.
func (r *ContractRegistry) validateContracts(producer, consumer *Contract) CompatibilityResult {
	var issues []CompatIssue

	topics := make([]string, 0, len(consumer.Subscribes))
	for topic := range consumer.Subscribes {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		produced, publishes := producer.Publishes[topic]
		if !publishes {
			// Another producer may serve this topic; only shared
			// topics are validated here.
			continue
		}
		issues = append(issues, checkTopicCompatibility(topic, produced, consumer.Subscribes[topic], r.closedSchemas)...)
	}

	return summarizeIssues(issues)
}

// MigrationPath returns the registered versions between two endpoints,
// inclusive.
//
// Description:
//
//	The path is a slice of AllVersions bounded by the endpoints:
//	ascending when from < to, descending when from > to, and the
//	single version when they are equal. Empty if either endpoint is
//	not a registered version of the agent.
func (r *ContractRegistry) MigrationPath(agent, from, to string) []Version {
	fromV, err := ParseVersion(from)
	if err != nil {
		return nil
	}
	toV, err := ParseVersion(to)
	if err != nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.allVersionsLocked(agent)
	fromIdx, toIdx := -1, -1
	for i, v := range all {
		if v.Equal(fromV) {
			fromIdx = i
		}
		if v.Equal(toV) {
			toIdx = i
		}
	}
	if fromIdx == -1 || toIdx == -1 {
		return nil
	}

	if fromIdx <= toIdx {
		return append([]Version(nil), all[fromIdx:toIdx+1]...)
	}

	path := make([]Version, 0, fromIdx-toIdx+1)
	for i := fromIdx; i >= toIdx; i-- {
		path = append(path, all[i])
	}
	return path
}

// LoadPersisted restores all contracts from the configured store.
//
// Description:
//
//	Reads every record under the contract key prefix and re-registers
//	it in memory. Intended for process startup. A store read failure
//	aborts the load; individual malformed records are skipped with a
//	warning.
func (r *ContractRegistry) LoadPersisted(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	keys, err := r.store.Keys(ctx, contractKeyPrefix)
	if err != nil {
		return fmt.Errorf("list persisted contracts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, key := range keys {
		var c Contract
		if err := r.store.Get(ctx, key, &c); err != nil {
			r.logger.Warn("skipping unreadable contract record", "key", key, "error", err)
			continue
		}
		if r.contracts[c.AgentName] == nil {
			r.contracts[c.AgentName] = make(map[string]*Contract)
		}
		r.contracts[c.AgentName][c.Version.String()] = &c
		loaded++
	}

	r.logger.Info("contracts loaded from store", "count", loaded)
	return nil
}

// snapshot returns a scratch registry containing the same contracts.
// The impact analyzer uses it to test a proposed schema without
// touching live state.
func (r *ContractRegistry) snapshot() *ContractRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := NewContractRegistry(WithLogger(r.logger))
	clone.closedSchemas = r.closedSchemas
	for agent, byVersion := range r.contracts {
		clone.contracts[agent] = make(map[string]*Contract, len(byVersion))
		for version, c := range byVersion {
			clone.contracts[agent][version] = c
		}
	}
	return clone
}

