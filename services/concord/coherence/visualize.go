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
	"sort"

	"github.com/AleutianAI/concord/services/concord/graph"
)

// multiVersionPenalty discounts an edge's score when its traffic
// spans more than one schema version.
const multiVersionPenalty = 0.8

// CoherenceEdge is one dependency edge annotated with the health of
// its observed traffic.
type CoherenceEdge struct {
	Source           string   `json:"source"`
	Target           string   `json:"target"`
	CoherenceScore   float64  `json:"coherence_score"`
	VersionsObserved []string `json:"versions_observed"`
	InteractionCount int      `json:"interaction_count"`
}

// CoherenceGraph is the annotated dependency graph handed to
// operator-facing surfaces.
type CoherenceGraph struct {
	Nodes []string        `json:"nodes"`
	Edges []CoherenceEdge `json:"edges"`
}

// VisualizeCoherence annotates the dependency graph with per-edge
// traffic health.
//
// Description:
//
//	Uses the supplied dependency graph, or synthesizes one from the
//	log's source/target pairs when none was supplied. Each edge's
//	score is its success rate, discounted to 80% when more than one
//	schema version was observed on it. Edges with no observed traffic
//	default to 1.0.
func (t *Tracker) VisualizeCoherence() *CoherenceGraph {
	g := t.Graph()
	interactions := t.Interactions()
	if g == nil {
		g = synthesizeGraph(interactions)
	}
	byEdge := groupByEdge(interactions)

	edges := g.Edges()
	annotated := make([]CoherenceEdge, 0, len(edges))
	for _, e := range edges {
		annotated = append(annotated, annotateEdge(e[0], e[1], byEdge[[2]string{e[0], e[1]}]))
	}

	return &CoherenceGraph{Nodes: g.Nodes(), Edges: annotated}
}

// annotateEdge scores one edge from its observed interactions.
func annotateEdge(source, target string, observed []Interaction) CoherenceEdge {
	edge := CoherenceEdge{
		Source:           source,
		Target:           target,
		CoherenceScore:   1.0,
		VersionsObserved: []string{},
		InteractionCount: len(observed),
	}
	if len(observed) == 0 {
		return edge
	}

	versions := make(map[string]struct{})
	ok := 0
	for _, in := range observed {
		versions[in.SchemaVersion] = struct{}{}
		if in.Successful {
			ok++
		}
	}

	score := float64(ok) / float64(len(observed))
	if len(versions) > 1 {
		score *= multiVersionPenalty
	}
	edge.CoherenceScore = score
	edge.VersionsObserved = sortedVersionSet(versions)
	return edge
}

// synthesizeGraph builds a dependency graph from the log's observed
// source/target pairs.
func synthesizeGraph(interactions []Interaction) *graph.Graph {
	g := graph.New()
	pairs := make(map[[2]string]struct{})
	for _, in := range interactions {
		pairs[[2]string{in.SourceAgent, in.TargetAgent}] = struct{}{}
	}

	keys := make([][2]string, 0, len(pairs))
	for pair := range pairs {
		keys = append(keys, pair)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, pair := range keys {
		g.AddEdge(pair[0], pair[1])
	}
	return g
}
