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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/concord/services/concord/graph"
)

func chain(nodes ...string) *graph.Graph {
	g := graph.New()
	for i := 0; i < len(nodes)-1; i++ {
		g.AddEdge(nodes[i], nodes[i+1])
	}
	return g
}

func TestAnalyzeCoherencePathsRequiresGraph(t *testing.T) {
	_, err := NewTracker().AnalyzeCoherencePaths()
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestAnalyzeCoherencePathsCleanTraffic(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("A", "B", "C"))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
		tr.TrackInteraction(ctx, "B", "C", "orders", "1.0.0", nil, true, "")
	}

	report, err := tr.AnalyzeCoherencePaths()
	require.NoError(t, err)
	assert.Empty(t, report.IncoherentPaths)
	assert.Equal(t, "coherent", report.OverallLevel)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestAnalyzeCoherencePathsVersionSpread(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("A", "B"))
	ctx := context.Background()

	// Two versions over four interactions: 1 - 1/4 = 0.75 < 0.8.
	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	tr.TrackInteraction(ctx, "A", "B", "orders", "2.0.0", nil, true, "")
	tr.TrackInteraction(ctx, "A", "B", "orders", "2.0.0", nil, true, "")

	report, err := tr.AnalyzeCoherencePaths()
	require.NoError(t, err)
	require.Len(t, report.IncoherentPaths, 1)

	p := report.IncoherentPaths[0]
	assert.Equal(t, []string{"A", "B"}, p.Path)
	assert.InDelta(t, 0.75, p.CoherenceScore, 1e-9)
	require.NotEmpty(t, p.Issues)
	assert.Contains(t, p.Issues[0], "2 schema versions")
	assert.Contains(t, p.Recommendation, "synchronize")
}

func TestAnalyzeCoherencePathsFailureRate(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("A", "B"))
	ctx := context.Background()

	// Uniform version but 3 of 10 failing: 1 - 0 - 0.3 = 0.7 < 0.8.
	for i := 0; i < 7; i++ {
		tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	}
	for i := 0; i < 3; i++ {
		tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, false, "timeout")
	}

	report, err := tr.AnalyzeCoherencePaths()
	require.NoError(t, err)
	require.Len(t, report.IncoherentPaths, 1)
	assert.InDelta(t, 0.7, report.IncoherentPaths[0].CoherenceScore, 1e-9)
	assert.Contains(t, report.IncoherentPaths[0].Issues[0], "3 of 10 interactions failed")
}

func TestAnalyzeCoherencePathsScoreFloor(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("A", "B"))
	ctx := context.Background()

	// Three versions over three interactions, all failing, would score
	// negative; it must floor at zero.
	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, false, "x")
	tr.TrackInteraction(ctx, "A", "B", "orders", "2.0.0", nil, false, "x")
	tr.TrackInteraction(ctx, "A", "B", "orders", "3.0.0", nil, false, "x")

	report, err := tr.AnalyzeCoherencePaths()
	require.NoError(t, err)
	require.Len(t, report.IncoherentPaths, 1)
	assert.Equal(t, 0.0, report.IncoherentPaths[0].CoherenceScore)
}

func TestAnalyzeCoherencePathsUnobservedEdges(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("A", "B", "C", "D"))

	report, err := tr.AnalyzeCoherencePaths()
	require.NoError(t, err)
	assert.Empty(t, report.IncoherentPaths, "paths with no traffic are coherent by default")
}

func TestRecommendUpdatesPriorities(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("legacy", "B", "C"))
	ctx := context.Background()

	// Minority share 4/14 ~ 0.29: medium priority.
	for i := 0; i < 10; i++ {
		tr.TrackInteraction(ctx, "A", "B", "orders", "2.0.0", nil, true, "")
	}
	for i := 0; i < 4; i++ {
		tr.TrackInteraction(ctx, "legacy", "B", "orders", "1.0.0", nil, true, "")
	}

	recs := tr.RecommendUpdates()
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "legacy", r.AgentName)
	assert.Equal(t, "1.0.0", r.CurrentVersion)
	assert.Equal(t, "2.0.0", r.RecommendedVersion)
	assert.Equal(t, PriorityMedium, r.Priority)
	assert.Equal(t, []string{"B", "C"}, r.AffectedAgents)

	// Push the share past 0.3: high priority.
	for i := 0; i < 4; i++ {
		tr.TrackInteraction(ctx, "legacy", "B", "orders", "1.0.0", nil, true, "")
	}
	recs = tr.RecommendUpdates()
	require.Len(t, recs, 1)
	assert.Equal(t, PriorityHigh, recs[0].Priority)
}

func TestRecommendUpdatesWithoutGraph(t *testing.T) {
	tr := NewTracker()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		tr.TrackInteraction(ctx, "A", "B", "orders", "2.0.0", nil, true, "")
	}
	for i := 0; i < 4; i++ {
		tr.TrackInteraction(ctx, "legacy", "B", "orders", "1.0.0", nil, true, "")
	}

	recs := tr.RecommendUpdates()
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].AffectedAgents)
}

func TestVisualizeCoherenceAnnotatesEdges(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("A", "B", "C"))
	ctx := context.Background()

	// A->B: one version, 1 of 2 failing. B->C: unobserved.
	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, false, "timeout")

	vg := tr.VisualizeCoherence()
	assert.Equal(t, []string{"A", "B", "C"}, vg.Nodes)
	require.Len(t, vg.Edges, 2)

	ab := vg.Edges[0]
	assert.Equal(t, "A", ab.Source)
	assert.Equal(t, 0.5, ab.CoherenceScore)
	assert.Equal(t, []string{"1.0.0"}, ab.VersionsObserved)
	assert.Equal(t, 2, ab.InteractionCount)

	bc := vg.Edges[1]
	assert.Equal(t, 1.0, bc.CoherenceScore, "unobserved edges default to 1.0")
	assert.Equal(t, 0, bc.InteractionCount)
}

func TestVisualizeCoherenceMultiVersionPenalty(t *testing.T) {
	tr := NewTracker()
	tr.SetGraph(chain("A", "B"))
	ctx := context.Background()

	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	tr.TrackInteraction(ctx, "A", "B", "orders", "2.0.0", nil, true, "")

	vg := tr.VisualizeCoherence()
	require.Len(t, vg.Edges, 1)
	assert.InDelta(t, 0.8, vg.Edges[0].CoherenceScore, 1e-9)
	assert.Equal(t, []string{"1.0.0", "2.0.0"}, vg.Edges[0].VersionsObserved)
}

func TestVisualizeCoherenceSynthesizesGraph(t *testing.T) {
	tr := NewTracker()
	ctx := context.Background()
	tr.TrackInteraction(ctx, "A", "B", "orders", "1.0.0", nil, true, "")
	tr.TrackInteraction(ctx, "B", "C", "shipments", "1.0.0", nil, true, "")

	vg := tr.VisualizeCoherence()
	assert.Equal(t, []string{"A", "B", "C"}, vg.Nodes)
	assert.Len(t, vg.Edges, 2)
}
