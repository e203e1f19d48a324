// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package migration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	migrationOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concord_migration_operations_total",
		Help: "Total migration operations by type and status",
	}, []string{"operation", "status"})

	migrationDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "concord_migration_duration_seconds",
		Help:    "Time to apply or roll back a migration",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	registeredMigrationsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "concord_migrations_registered",
		Help: "Number of registered migrations",
	})
)
