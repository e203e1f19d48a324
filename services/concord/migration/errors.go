// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package migration plans and executes ordered, reversible payload
// transforms between contract versions.
//
// Each migration is a (agent, fromVersion, toVersion) transform pair
// supplied by an external proposer. The planner derives a per-agent
// "must precede" chain from version order, unions all chains into one
// graph, and topologically sorts it. The executor applies or rolls
// back individual migrations, records the outcome as an auditable
// state machine (PENDING, APPLIED, FAILED, ROLLED_BACK), and persists
// the history.
//
// A transform that fails is an expected, actionable outcome: it is
// recorded and returned as an unsuccessful result, never panicked or
// propagated as an error past the apply/rollback boundary. Errors are
// reserved for configuration bugs such as unknown migration IDs and
// ordering cycles.
package migration

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for migration operations.
var (
	// ErrMigrationNotFound is returned when applying or rolling back
	// an unregistered migration ID.
	ErrMigrationNotFound = errors.New("migration not found")

	// ErrInvalidMigration is returned when a migration is constructed
	// with malformed versions or missing transforms.
	ErrInvalidMigration = errors.New("invalid migration")
)

// CycleError reports a migration ordering graph that is not a DAG.
// A cycle means mis-registered migrations (a from/to inversion or a
// duplicate ID forming a back-edge) — a configuration bug, not a
// runtime condition, so planning fails fast instead of guessing an
// order.
type CycleError struct {
	// Nodes lists the migration IDs stuck in cycles, sorted.
	Nodes []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("migration ordering cycle involving: %s", strings.Join(e.Nodes, ", "))
}
