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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interactionsTrackedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concord_interactions_tracked_total",
		Help: "Total interactions recorded by the coherence tracker.",
	}, []string{"successful"})

	logFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "concord_interaction_log_flushes_total",
		Help: "Times the recent-interaction window was flushed to storage.",
	})

	driftWarningsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "concord_schema_drift_warnings",
		Help: "Drift warnings produced by the most recent detection pass.",
	})

	overallCoherenceGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "concord_coherence_overall_score",
		Help: "Overall coherence score from the most recent metrics pass.",
	})
)
