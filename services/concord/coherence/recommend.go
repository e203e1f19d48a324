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

import "fmt"

// Recommendation priorities, by drift severity.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// UpdateRecommendation tells one agent to move off a minority schema
// version.
type UpdateRecommendation struct {
	AgentName          string   `json:"agent_name"`
	CurrentVersion     string   `json:"current_version"`
	RecommendedVersion string   `json:"recommended_version"`
	Priority           string   `json:"priority"`
	Reason             string   `json:"reason"`
	AffectedAgents     []string `json:"affected_agents"`
}

// RecommendUpdates produces one recommendation per all-time drift
// warning. Priority follows severity: above 0.3 high, above 0.1
// medium, otherwise low. AffectedAgents lists the drifting agent's
// graph descendants, empty when no graph was supplied.
func (t *Tracker) RecommendUpdates() []UpdateRecommendation {
	warnings := t.DetectSchemaDrift(0)
	g := t.Graph()

	recommendations := make([]UpdateRecommendation, 0, len(warnings))
	for _, w := range warnings {
		affected := []string{}
		if g != nil {
			affected = g.Descendants(w.AgentName)
		}
		recommendations = append(recommendations, UpdateRecommendation{
			AgentName:          w.AgentName,
			CurrentVersion:     w.ActualVersion,
			RecommendedVersion: w.ExpectedVersion,
			Priority:           priorityFor(w.Severity),
			Reason: fmt.Sprintf("schema drift on topic %s: %s carries %.0f%% of traffic against dominant %s",
				w.Topic, w.ActualVersion, w.Severity*100, w.ExpectedVersion),
			AffectedAgents: affected,
		})
	}
	return recommendations
}

func priorityFor(severity float64) string {
	switch {
	case severity > 0.3:
		return PriorityHigh
	case severity > 0.1:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
