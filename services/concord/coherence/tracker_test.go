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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/concord/services/concord/storage"
)

// at pins the tracker's clock so bucketing and window tests are
// deterministic.
func at(tr *Tracker, ts time.Time) {
	tr.now = func() time.Time { return ts }
}

func TestTrackInteractionAssignsIdentity(t *testing.T) {
	tr := NewTracker()
	in := tr.TrackInteraction(context.Background(), "A", "B", "orders", "1.0.0",
		map[string]any{"id": "o-1"}, true, "")

	assert.NotEmpty(t, in.ID)
	assert.False(t, in.Timestamp.IsZero())
	assert.Equal(t, "A", in.SourceAgent)
	assert.Equal(t, "B", in.TargetAgent)
	assert.True(t, in.Successful)
	assert.Equal(t, 1, tr.Len())

	second := tr.TrackInteraction(context.Background(), "A", "B", "orders", "1.0.0", nil, false, "timeout")
	assert.NotEqual(t, in.ID, second.ID)
	assert.Equal(t, "timeout", second.Error)
	assert.Equal(t, 2, tr.Len())
}

func TestFlushCadence(t *testing.T) {
	store := storage.NewMemoryStore()
	tr := NewTracker(WithStore(store))
	ctx := context.Background()

	for i := 0; i < 99; i++ {
		tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	}
	var persisted []Interaction
	err := store.Get(ctx, interactionLogKey, &persisted)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound, "no flush before the 100th interaction")

	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	require.NoError(t, store.Get(ctx, interactionLogKey, &persisted))
	assert.Len(t, persisted, 100)

	// The 150th interaction must not trigger another flush.
	for i := 0; i < 50; i++ {
		tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	}
	require.NoError(t, store.Get(ctx, interactionLogKey, &persisted))
	assert.Len(t, persisted, 100)
}

func TestExplicitFlushAndReload(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	tr := NewTracker(WithStore(store))
	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", map[string]any{"id": "o-1"}, true, "")
	tr.TrackInteraction(ctx, "B", "C", "shipments", "2.0.0", nil, false, "timeout")
	require.NoError(t, tr.Flush(ctx))

	restarted := NewTracker(WithStore(store))
	require.NoError(t, restarted.LoadPersisted(ctx))
	require.Equal(t, 2, restarted.Len())

	loaded := restarted.Interactions()
	assert.Equal(t, "orders", loaded[0].Topic)
	assert.Equal(t, "o-1", loaded[0].Payload["id"])
	assert.Equal(t, "timeout", loaded[1].Error)

	// Counters must be rebuilt from the loaded window.
	metrics := restarted.CalculateMetrics("")
	assert.Equal(t, 0.5, metrics.ContractComplianceRate)
}

func TestLoadPersistedEmptyStore(t *testing.T) {
	tr := NewTracker(WithStore(storage.NewMemoryStore()))
	require.NoError(t, tr.LoadPersisted(context.Background()))
	assert.Equal(t, 0, tr.Len())
}

func TestRingBufferWraps(t *testing.T) {
	r := newRingBuffer[int](3)
	r.push(1)
	r.push(2)
	assert.Equal(t, []int{1, 2}, r.slice())

	r.push(3)
	r.push(4)
	assert.Equal(t, 3, r.len())
	assert.Equal(t, []int{2, 3, 4}, r.slice(), "oldest evicted on wrap")
}

func TestInteractionsReturnsCopy(t *testing.T) {
	tr := NewTracker()
	tr.TrackInteraction(context.Background(), "A", "B", "orders", "1.0.0", nil, true, "")

	out := tr.Interactions()
	out[0].SourceAgent = "mutated"
	assert.Equal(t, "A", tr.Interactions()[0].SourceAgent)
}
