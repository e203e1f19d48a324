// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry stores versioned agent contracts and computes the
// downstream impact of proposed schema changes.
//
// A contract describes what one agent accepts and emits: its methods,
// the events it publishes per topic, and the topics it subscribes to
// with the payload shape it expects there. Contracts are immutable
// per (agent, version); evolution happens by registering new versions.
//
// The impact analyzer combines the registry with an externally-owned
// dependency graph to answer "who breaks if this agent ships that
// schema", before anything rolls out.
package registry

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrInvalidVersion is returned when a version string does not
	// match the MAJOR.MINOR.PATCH format.
	ErrInvalidVersion = errors.New("invalid semantic version")

	// ErrNoGraph is returned by impact operations when no dependency
	// graph has been supplied.
	ErrNoGraph = errors.New("no dependency graph configured")

	// ErrNoExistingContract is returned by impact analysis when the
	// agent has no registered contract to diff against.
	ErrNoExistingContract = errors.New("no existing contract for agent")
)
