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
	"time"
)

// Sub-score weights. They sum to 1.0.
const (
	weightSchemaConsistency  = 0.25
	weightContractCompliance = 0.20
	weightMigrationCompleted = 0.15
	weightPropagation        = 0.10
	weightTemporal           = 0.15
	weightSpatial            = 0.15
)

// CoherenceMetrics holds the six consistency sub-scores, each in
// [0, 1], and their weighted overall score.
type CoherenceMetrics struct {
	SchemaVersionConsistency  float64 `json:"schema_version_consistency"`
	ContractComplianceRate    float64 `json:"contract_compliance_rate"`
	MigrationCompletionRate   float64 `json:"migration_completion_rate"`
	BreakingChangePropagation float64 `json:"breaking_change_propagation"`
	TemporalConsistency       float64 `json:"temporal_consistency"`
	SpatialConsistency        float64 `json:"spatial_consistency"`
	Overall                   float64 `json:"overall"`
}

// CalculateMetrics computes coherence metrics over the log,
// optionally restricted to interactions touching one agent.
//
// Description:
//
//	With zero matching interactions every sub-score is 1.0: absence
//	of evidence is never evidence of incoherence. Otherwise:
//	schema_version_consistency averages each topic's dominant-version
//	share; contract_compliance_rate is the successful fraction;
//	migration_completion_rate and breaking_change_propagation come
//	from the wired providers; temporal_consistency averages, over
//	source agents with at least two interactions, one minus the rate
//	of version changes along their chronological interactions;
//	spatial_consistency averages the version spread penalty over
//	one-hour buckets with at least two interactions.
func (t *Tracker) CalculateMetrics(agent string) CoherenceMetrics {
	interactions := t.forAgent(agent)
	if len(interactions) == 0 {
		m := CoherenceMetrics{
			SchemaVersionConsistency:  1.0,
			ContractComplianceRate:    1.0,
			MigrationCompletionRate:   1.0,
			BreakingChangePropagation: 1.0,
			TemporalConsistency:       1.0,
			SpatialConsistency:        1.0,
			Overall:                   1.0,
		}
		overallCoherenceGauge.Set(m.Overall)
		return m
	}

	m := CoherenceMetrics{
		SchemaVersionConsistency:  schemaVersionConsistency(interactions),
		ContractComplianceRate:    complianceRate(interactions),
		MigrationCompletionRate:   t.completionRate(),
		BreakingChangePropagation: t.propagationRate(),
		TemporalConsistency:       temporalConsistency(interactions),
		SpatialConsistency:        spatialConsistency(interactions),
	}
	m.Overall = weightSchemaConsistency*m.SchemaVersionConsistency +
		weightContractCompliance*m.ContractComplianceRate +
		weightMigrationCompleted*m.MigrationCompletionRate +
		weightPropagation*m.BreakingChangePropagation +
		weightTemporal*m.TemporalConsistency +
		weightSpatial*m.SpatialConsistency

	overallCoherenceGauge.Set(m.Overall)
	return m
}

// schemaVersionConsistency averages, over topics, the share of each
// topic's traffic carried by its dominant version.
func schemaVersionConsistency(interactions []Interaction) float64 {
	byTopic := make(map[string]map[string]int)
	totals := make(map[string]int)
	for _, in := range interactions {
		if byTopic[in.Topic] == nil {
			byTopic[in.Topic] = make(map[string]int)
		}
		byTopic[in.Topic][in.SchemaVersion]++
		totals[in.Topic]++
	}

	var sum float64
	for topic, counts := range byTopic {
		best := 0
		for _, count := range counts {
			if count > best {
				best = count
			}
		}
		sum += float64(best) / float64(totals[topic])
	}
	return sum / float64(len(byTopic))
}

// complianceRate is the fraction of interactions marked successful.
func complianceRate(interactions []Interaction) float64 {
	ok := 0
	for _, in := range interactions {
		if in.Successful {
			ok++
		}
	}
	return float64(ok) / float64(len(interactions))
}

// temporalConsistency averages, over source agents with at least two
// interactions, one minus the version-change rate along that agent's
// chronologically sorted interactions.
func temporalConsistency(interactions []Interaction) float64 {
	bySource := make(map[string][]Interaction)
	for _, in := range interactions {
		bySource[in.SourceAgent] = append(bySource[in.SourceAgent], in)
	}

	var sum float64
	agents := 0
	for _, group := range bySource {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
		changes := 0
		for i := 1; i < len(group); i++ {
			if group[i].SchemaVersion != group[i-1].SchemaVersion {
				changes++
			}
		}
		sum += 1.0 - float64(changes)/float64(len(group))
		agents++
	}
	if agents == 0 {
		return 1.0
	}
	return sum / float64(agents)
}

// spatialConsistency buckets interactions into one-hour windows and
// averages, over buckets with at least two interactions,
// max(0, 1 - (distinctVersions-1)/bucketSize).
func spatialConsistency(interactions []Interaction) float64 {
	buckets := make(map[time.Time][]Interaction)
	for _, in := range interactions {
		hour := in.Timestamp.Truncate(time.Hour)
		buckets[hour] = append(buckets[hour], in)
	}

	var sum float64
	counted := 0
	for _, group := range buckets {
		if len(group) < 2 {
			continue
		}
		versions := make(map[string]struct{})
		for _, in := range group {
			versions[in.SchemaVersion] = struct{}{}
		}
		score := 1.0 - float64(len(versions)-1)/float64(len(group))
		if score < 0 {
			score = 0
		}
		sum += score
		counted++
	}
	if counted == 0 {
		return 1.0
	}
	return sum / float64(counted)
}
