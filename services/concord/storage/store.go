// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage provides durable keyed record storage for Concord.
//
// Records are JSON documents addressed by string key. The package
// exposes a small RecordStore interface with two implementations:
//
//   - BadgerStore: embedded BadgerDB storage for production use
//   - MemoryStore: in-memory map for tests and ephemeral runs
//
// Subsystems persist contracts, migration history, and interaction
// log snapshots through this interface. A store failure is surfaced
// to the caller but is never fatal to the owning subsystem; in-memory
// state remains authoritative for the process lifetime.
package storage

import (
	"context"
	"errors"
)

// Sentinel errors for storage operations.
var (
	// ErrRecordNotFound is returned by Get when no record exists
	// under the requested key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// RecordStore reads and writes named JSON records by key.
//
// Implementations must be safe for concurrent use.
type RecordStore interface {
	// Put serializes value as JSON and stores it under key,
	// overwriting any existing record.
	Put(ctx context.Context, key string, value any) error

	// Get loads the record under key and unmarshals it into out.
	// Returns ErrRecordNotFound if no record exists.
	Get(ctx context.Context, key string, out any) error

	// Delete removes the record under key. Deleting a missing
	// record is a no-op.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases store resources. The store is unusable after.
	Close() error
}
