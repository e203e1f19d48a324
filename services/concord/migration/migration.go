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
	"fmt"
	"time"

	"github.com/AleutianAI/concord/services/concord/registry"
)

// Payload is a schemaless message payload under migration.
type Payload = map[string]any

// Migration transforms payloads between two versions of one agent's
// schema. Implementations must be stateless: Forward and Backward may
// be called any number of times, in any order, on any payload.
type Migration interface {
	// Agent is the agent whose payloads this migration transforms.
	Agent() string

	// From is the source version.
	From() registry.Version

	// To is the target version.
	To() registry.Version

	// Description documents what the migration does.
	Description() string

	// Forward transforms a payload from the source to the target
	// version. The input payload must not be mutated.
	Forward(p Payload) (Payload, error)

	// Backward transforms a payload from the target back to the
	// source version. The input payload must not be mutated.
	Backward(p Payload) (Payload, error)

	// Validate checks a forward-transformed payload. A false result
	// fails the migration with a validation error.
	Validate(p Payload) (bool, error)
}

// ID derives the canonical migration identifier
// "{agent}_{from}_to_{to}".
func ID(agent string, from, to registry.Version) string {
	return fmt.Sprintf("%s_%s_to_%s", agent, from, to)
}

// TransformFunc transforms one payload into another.
type TransformFunc func(Payload) (Payload, error)

// ValidateFunc checks a transformed payload.
type ValidateFunc func(Payload) (bool, error)

// FuncMigration adapts plain functions to the Migration interface.
// It is the bridge for transforms handed over by the external
// proposer as (forward, backward, validate) tuples.
type FuncMigration struct {
	agent       string
	from        registry.Version
	to          registry.Version
	description string
	forward     TransformFunc
	backward    TransformFunc
	validate    ValidateFunc
}

// New creates a FuncMigration.
//
// Description:
//
//	Versions are parsed and validated eagerly so a malformed
//	migration is rejected at construction, not at apply time.
//	A nil validate function defaults to "always valid".
//
// Outputs:
//
//	*FuncMigration - The migration.
//	error - ErrInvalidMigration (wrapped) on malformed versions or
//	missing transforms.
func New(agent, from, to string, forward, backward TransformFunc, validate ValidateFunc, description string) (*FuncMigration, error) {
	if agent == "" {
		return nil, fmt.Errorf("%w: empty agent name", ErrInvalidMigration)
	}
	if forward == nil || backward == nil {
		return nil, fmt.Errorf("%w: forward and backward transforms are required", ErrInvalidMigration)
	}

	fromV, err := registry.ParseVersion(from)
	if err != nil {
		return nil, fmt.Errorf("%w: from version: %v", ErrInvalidMigration, err)
	}
	toV, err := registry.ParseVersion(to)
	if err != nil {
		return nil, fmt.Errorf("%w: to version: %v", ErrInvalidMigration, err)
	}
	if fromV.Equal(toV) {
		return nil, fmt.Errorf("%w: from and to versions are identical (%s)", ErrInvalidMigration, from)
	}

	if validate == nil {
		validate = func(Payload) (bool, error) { return true, nil }
	}

	return &FuncMigration{
		agent:       agent,
		from:        fromV,
		to:          toV,
		description: description,
		forward:     forward,
		backward:    backward,
		validate:    validate,
	}, nil
}

// MustNew is New that panics on an invalid definition. Intended for
// package-level migration variables, where a bad version string is a
// programming error.
func MustNew(agent, from, to string, forward, backward TransformFunc, validate ValidateFunc, description string) *FuncMigration {
	m, err := New(agent, from, to, forward, backward, validate, description)
	if err != nil {
		panic(err)
	}
	return m
}

// Agent returns the agent name.
func (m *FuncMigration) Agent() string { return m.agent }

// From returns the source version.
func (m *FuncMigration) From() registry.Version { return m.from }

// To returns the target version.
func (m *FuncMigration) To() registry.Version { return m.to }

// Description returns the migration description.
func (m *FuncMigration) Description() string { return m.description }

// Forward applies the forward transform.
func (m *FuncMigration) Forward(p Payload) (Payload, error) { return m.forward(p) }

// Backward applies the backward transform.
func (m *FuncMigration) Backward(p Payload) (Payload, error) { return m.backward(p) }

// Validate applies the validation function.
func (m *FuncMigration) Validate(p Payload) (bool, error) { return m.validate(p) }

// Status is the lifecycle state of a migration record.
type Status string

const (
	// StatusPending means the migration is registered but not applied.
	StatusPending Status = "PENDING"

	// StatusApplied means the forward transform succeeded.
	StatusApplied Status = "APPLIED"

	// StatusFailed means the forward transform or validation failed.
	StatusFailed Status = "FAILED"

	// StatusRolledBack means an applied migration was reversed.
	StatusRolledBack Status = "ROLLED_BACK"
)

// Record is the audit-trail entry for one migration.
//
// Legal transitions: PENDING -> APPLIED, PENDING -> FAILED,
// APPLIED -> ROLLED_BACK. No others.
type Record struct {
	// MigrationID is the canonical migration identifier.
	MigrationID string `json:"migration_id"`

	// Agent is the agent whose payloads the migration transforms.
	Agent string `json:"agent"`

	// From is the source version.
	From registry.Version `json:"from"`

	// To is the target version.
	To registry.Version `json:"to"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// AppliedAt is when the migration was applied, if ever.
	AppliedAt *time.Time `json:"applied_at,omitempty"`

	// RolledBackAt is when the migration was rolled back, if ever.
	RolledBackAt *time.Time `json:"rolled_back_at,omitempty"`

	// Error carries the failure message for FAILED records.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of one apply or rollback call.
type Result struct {
	// MigrationID is the canonical migration identifier.
	MigrationID string `json:"migration_id"`

	// Success is false when the transform or validation failed.
	Success bool `json:"success"`

	// Status is the record status after the operation.
	Status Status `json:"status"`

	// Before is the payload as submitted.
	Before Payload `json:"before,omitempty"`

	// After is the transformed payload, when the transform ran.
	After Payload `json:"after,omitempty"`

	// Error carries the failure message when Success is false.
	Error string `json:"error,omitempty"`
}

// OrderValidation is the outcome of checking the migration graph.
type OrderValidation struct {
	// Valid is false when the ordering graph has cycles.
	Valid bool `json:"valid"`

	// Errors lists fatal ordering problems.
	Errors []string `json:"errors"`

	// Warnings lists version-chain gaps: adjacent known versions of
	// an agent with no direct migration between them.
	Warnings []string `json:"warnings"`
}
