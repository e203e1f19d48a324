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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/concord/services/concord/graph"
)

// incoherenceThreshold marks the path score below which a path is
// reported as incoherent.
const incoherenceThreshold = 0.8

// IncoherentPath is a dependency-graph path whose observed traffic
// shows version spread or failures.
type IncoherentPath struct {
	Path           []string `json:"path"`
	CoherenceScore float64  `json:"coherence_score"`
	Issues         []string `json:"issues"`
	Recommendation string   `json:"recommendation"`
}

// CoherenceReport is the full read-side picture: metrics, drift,
// incoherent paths, and recommendations at one point in time.
type CoherenceReport struct {
	GeneratedAt     time.Time              `json:"generated_at"`
	OverallScore    float64                `json:"overall_score"`
	OverallLevel    string                 `json:"overall_level"`
	Metrics         CoherenceMetrics       `json:"metrics"`
	DriftWarnings   []DriftWarning         `json:"drift_warnings"`
	IncoherentPaths []IncoherentPath       `json:"incoherent_paths"`
	Recommendations []UpdateRecommendation `json:"recommendations"`
}

// AnalyzeCoherencePaths walks every bounded simple path in the
// dependency graph and scores the traffic observed along it.
//
// Description:
//
//	For every ordered pair of distinct nodes, enumerates simple paths
//	up to five hops. A path's score starts at
//	1 - (distinctVersionsAlongHops-1)/interactionsAlongHops, loses
//	the failure rate along those hops, and floors at zero. Paths with
//	no observed traffic are coherent by default and never reported.
//	Scores below 0.8 produce an IncoherentPath with per-hop issues.
//
// Outputs:
//
//	*CoherenceReport - Metrics, drift warnings, incoherent paths, and
//	recommendations.
//	error - ErrNoGraph when no dependency graph was supplied.
func (t *Tracker) AnalyzeCoherencePaths() (*CoherenceReport, error) {
	g := t.Graph()
	if g == nil {
		return nil, ErrNoGraph
	}

	interactions := t.Interactions()
	byEdge := groupByEdge(interactions)

	var incoherent []IncoherentPath
	nodes := g.Nodes()
	for _, from := range nodes {
		for _, to := range nodes {
			if from == to {
				continue
			}
			for _, path := range g.SimplePaths(from, to, graph.DefaultMaxHops) {
				if p, bad := scorePath(path, byEdge); bad {
					incoherent = append(incoherent, p)
				}
			}
		}
	}

	sort.Slice(incoherent, func(i, j int) bool {
		if incoherent[i].CoherenceScore != incoherent[j].CoherenceScore {
			return incoherent[i].CoherenceScore < incoherent[j].CoherenceScore
		}
		return strings.Join(incoherent[i].Path, ">") < strings.Join(incoherent[j].Path, ">")
	})

	metrics := t.CalculateMetrics("")
	report := &CoherenceReport{
		GeneratedAt:     time.Now().UTC(),
		OverallScore:    metrics.Overall,
		OverallLevel:    coherenceLevel(metrics.Overall),
		Metrics:         metrics,
		DriftWarnings:   t.DetectSchemaDrift(0),
		IncoherentPaths: incoherent,
		Recommendations: t.RecommendUpdates(),
	}
	return report, nil
}

// scorePath scores one path against the observed traffic on its
// hops. The second return is true when the path is incoherent.
func scorePath(path []string, byEdge map[[2]string][]Interaction) (IncoherentPath, bool) {
	var along []Interaction
	for i := 0; i < len(path)-1; i++ {
		along = append(along, byEdge[[2]string{path[i], path[i+1]}]...)
	}
	if len(along) == 0 {
		return IncoherentPath{}, false
	}

	versions := make(map[string]struct{})
	failures := 0
	for _, in := range along {
		versions[in.SchemaVersion] = struct{}{}
		if !in.Successful {
			failures++
		}
	}

	score := 1.0 - float64(len(versions)-1)/float64(len(along))
	score -= float64(failures) / float64(len(along))
	if score < 0 {
		score = 0
	}
	if score >= incoherenceThreshold {
		return IncoherentPath{}, false
	}

	var issues []string
	for i := 0; i < len(path)-1; i++ {
		hop := byEdge[[2]string{path[i], path[i+1]}]
		if len(hop) == 0 {
			continue
		}
		hopVersions := make(map[string]struct{})
		hopFailures := 0
		for _, in := range hop {
			hopVersions[in.SchemaVersion] = struct{}{}
			if !in.Successful {
				hopFailures++
			}
		}
		if len(hopVersions) > 1 {
			issues = append(issues, fmt.Sprintf("%s->%s: %d schema versions observed (%s)",
				path[i], path[i+1], len(hopVersions), strings.Join(sortedVersionSet(hopVersions), ", ")))
		}
		if hopFailures > 0 {
			issues = append(issues, fmt.Sprintf("%s->%s: %d of %d interactions failed",
				path[i], path[i+1], hopFailures, len(hop)))
		}
	}

	return IncoherentPath{
		Path:           path,
		CoherenceScore: score,
		Issues:         issues,
		Recommendation: fmt.Sprintf("synchronize schema versions along %s", strings.Join(path, " -> ")),
	}, true
}

// groupByEdge indexes interactions by (source, target) pair.
func groupByEdge(interactions []Interaction) map[[2]string][]Interaction {
	byEdge := make(map[[2]string][]Interaction)
	for _, in := range interactions {
		key := [2]string{in.SourceAgent, in.TargetAgent}
		byEdge[key] = append(byEdge[key], in)
	}
	return byEdge
}

// coherenceLevel buckets an overall score into an operator-facing
// label.
func coherenceLevel(score float64) string {
	switch {
	case score >= 0.9:
		return "coherent"
	case score >= 0.7:
		return "degraded"
	default:
		return "incoherent"
	}
}

// sortedVersionSet flattens a version set into sorted order.
func sortedVersionSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
