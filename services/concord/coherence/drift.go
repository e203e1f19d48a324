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
	"time"
)

// driftThreshold is the minority share above which a version counts
// as drift rather than noise.
const driftThreshold = 0.10

// DriftWarning reports one source agent still emitting a minority
// schema version on a topic where a different version dominates.
type DriftWarning struct {
	AgentName            string    `json:"agent_name"`
	Topic                string    `json:"topic"`
	ExpectedVersion      string    `json:"expected_version"`
	ActualVersion        string    `json:"actual_version"`
	Severity             float64   `json:"severity"`
	Description          string    `json:"description"`
	AffectedInteractions int       `json:"affected_interactions"`
	FirstDetected        time.Time `json:"first_detected"`
}

// DetectSchemaDrift scans the log for topics where live traffic is
// split across schema versions.
//
// Description:
//
//	Filters to the given window (all-time when zero), groups by
//	topic, and finds each topic's dominant version by count. Every
//	minority version whose share of the topic's traffic exceeds 10%
//	produces one warning per distinct source agent using it. Severity
//	is the minority version's share of the topic's interactions;
//	FirstDetected is the agent's earliest such usage.
//
// Outputs:
//
//	[]DriftWarning - Sorted by topic, then version, then agent.
func (t *Tracker) DetectSchemaDrift(window time.Duration) []DriftWarning {
	interactions := t.inWindow(window)

	byTopic := make(map[string][]Interaction)
	for _, in := range interactions {
		byTopic[in.Topic] = append(byTopic[in.Topic], in)
	}

	var warnings []DriftWarning
	for topic, group := range byTopic {
		counts := make(map[string]int)
		for _, in := range group {
			counts[in.SchemaVersion]++
		}
		dominant := dominantVersion(counts)

		for version, count := range counts {
			if version == dominant {
				continue
			}
			share := float64(count) / float64(len(group))
			if share <= driftThreshold {
				continue
			}

			// One warning per distinct source agent on the minority
			// version.
			perAgent := make(map[string][]Interaction)
			for _, in := range group {
				if in.SchemaVersion == version {
					perAgent[in.SourceAgent] = append(perAgent[in.SourceAgent], in)
				}
			}
			for agent, usages := range perAgent {
				first := usages[0].Timestamp
				for _, in := range usages[1:] {
					if in.Timestamp.Before(first) {
						first = in.Timestamp
					}
				}
				warnings = append(warnings, DriftWarning{
					AgentName:       agent,
					Topic:           topic,
					ExpectedVersion: dominant,
					ActualVersion:   version,
					Severity:        share,
					Description: fmt.Sprintf("agent %s still emits %s on topic %s where %s dominates (%.0f%% of traffic)",
						agent, version, topic, dominant, share*100),
					AffectedInteractions: len(usages),
					FirstDetected:        first,
				})
			}
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.Topic != b.Topic {
			return a.Topic < b.Topic
		}
		if a.ActualVersion != b.ActualVersion {
			return a.ActualVersion < b.ActualVersion
		}
		return a.AgentName < b.AgentName
	})

	driftWarningsGauge.Set(float64(len(warnings)))
	return warnings
}

// dominantVersion picks the version with the highest count. Ties
// break toward the lexicographically greater version so repeated
// scans of a split topic are stable.
func dominantVersion(counts map[string]int) string {
	var dominant string
	best := -1
	for version, count := range counts {
		if count > best || (count == best && version > dominant) {
			dominant = version
			best = count
		}
	}
	return dominant
}
