// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package concord

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all Concord routes with the router.
//
// Description:
//
//	Registers all /v1/concord/* endpoints with the given Gin router
//	group. The group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Contract Endpoints:
//
//	POST /v1/concord/contracts - Register a contract version
//	GET  /v1/concord/contracts - List registered agents
//	GET  /v1/concord/contracts/:agent - Get a contract (latest or ?version=)
//	GET  /v1/concord/contracts/:agent/versions - List versions, ascending
//	GET  /v1/concord/contracts/:agent/path - Version path (?from=&to=)
//	POST /v1/concord/compatibility - Validate producer/consumer compatibility
//	POST /v1/concord/impact - Analyze schema-change impact
//	GET  /v1/concord/impact/:agent/downstream - Transitive downstream agents
//
// Graph Endpoints:
//
//	PUT  /v1/concord/graph - Set the dependency graph
//	GET  /v1/concord/graph - Get the dependency graph
//
// Migration Endpoints:
//
//	POST /v1/concord/migrations/:id/apply - Apply a migration to a payload
//	POST /v1/concord/migrations/:id/rollback - Roll a payload back
//	GET  /v1/concord/migrations/pending - Outstanding migrations (?agent=)
//	GET  /v1/concord/migrations/plan - Full execution plan
//	GET  /v1/concord/migrations/validate_order - Ordering diagnostics
//	GET  /v1/concord/migrations/history - Migration records (?agent=)
//	GET  /v1/concord/migrations/template - Migration boilerplate (?agent=&from=&to=)
//
// Coherence Endpoints:
//
//	POST /v1/concord/interactions - Track an observed interaction
//	GET  /v1/concord/coherence/metrics - Coherence metrics (?agent=)
//	GET  /v1/concord/coherence/drift - Drift warnings (?window=)
//	GET  /v1/concord/coherence/report - Full coherence report
//	GET  /v1/concord/coherence/recommendations - Update recommendations
//	GET  /v1/concord/coherence/graph - Annotated coherence graph
//
// Health Endpoints:
//
//	GET  /v1/concord/health - Health check
//	GET  /v1/concord/ready - Readiness check
//
// Example:
//
//	service, _ := concord.NewService(concord.DefaultServiceConfig())
//	handlers := concord.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	concord.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	concord := rg.Group("/concord")
	{
		// Contract registry
		concord.POST("/contracts", handlers.HandleRegisterContract)
		concord.GET("/contracts", handlers.HandleListAgents)
		concord.GET("/contracts/:agent", handlers.HandleGetContract)
		concord.GET("/contracts/:agent/versions", handlers.HandleListVersions)
		concord.GET("/contracts/:agent/path", handlers.HandleMigrationPath)

		// Compatibility and impact
		concord.POST("/compatibility", handlers.HandleCompatibility)
		concord.POST("/impact", handlers.HandleImpact)
		concord.GET("/impact/:agent/downstream", handlers.HandleDownstream)

		// Dependency graph
		concord.PUT("/graph", handlers.HandleSetGraph)
		concord.GET("/graph", handlers.HandleGetGraph)

		// Migrations
		migrations := concord.Group("/migrations")
		{
			migrations.POST("/:id/apply", handlers.HandleApplyMigration)
			migrations.POST("/:id/rollback", handlers.HandleRollbackMigration)
			migrations.GET("/pending", handlers.HandlePendingMigrations)
			migrations.GET("/plan", handlers.HandlePlanMigrations)
			migrations.GET("/validate_order", handlers.HandleValidateOrder)
			migrations.GET("/history", handlers.HandleMigrationHistory)
			migrations.GET("/template", handlers.HandleMigrationTemplate)
		}

		// Coherence tracking
		concord.POST("/interactions", handlers.HandleTrackInteraction)
		coherenceGroup := concord.Group("/coherence")
		{
			coherenceGroup.GET("/metrics", handlers.HandleMetrics)
			coherenceGroup.GET("/drift", handlers.HandleDrift)
			coherenceGroup.GET("/report", handlers.HandleCoherenceReport)
			coherenceGroup.GET("/recommendations", handlers.HandleRecommendations)
			coherenceGroup.GET("/graph", handlers.HandleCoherenceGraph)
		}

		// Health checks
		concord.GET("/health", handlers.HandleHealth)
		concord.GET("/ready", handlers.HandleReady)
	}
}
