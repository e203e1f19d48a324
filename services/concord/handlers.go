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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/concord/services/concord/coherence"
	"github.com/AleutianAI/concord/services/concord/graph"
	"github.com/AleutianAI/concord/services/concord/migration"
	"github.com/AleutianAI/concord/services/concord/registry"
)

// Handlers contains the HTTP handlers for Concord.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// HandleRegisterContract handles POST /v1/concord/contracts.
//
// Response:
//
//	200 OK: registry.Contract
//	400 Bad Request: invalid body or version
func (h *Handlers) HandleRegisterContract(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRegisterContract")

	var req RegisterContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	contract, err := h.svc.Registry().Register(req.AgentName, req.Version, req.Schema)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidVersion) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_VERSION"})
			return
		}
		logger.Error("Contract registration failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "REGISTER_FAILED"})
		return
	}

	logger.Info("Contract registered", "agent", req.AgentName, "version", req.Version)
	c.JSON(http.StatusOK, contract)
}

// HandleListAgents handles GET /v1/concord/contracts.
func (h *Handlers) HandleListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, AgentsResponse{Agents: h.svc.Registry().Agents()})
}

// HandleGetContract handles GET /v1/concord/contracts/:agent.
//
// Description:
//
//	Returns the contract for the agent. Without a version query
//	parameter, the highest registered version is returned.
func (h *Handlers) HandleGetContract(c *gin.Context) {
	agent := c.Param("agent")
	version := c.Query("version")

	contract, ok := h.svc.Registry().Get(agent, version)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "contract not found", Code: "CONTRACT_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, contract)
}

// HandleListVersions handles GET /v1/concord/contracts/:agent/versions.
func (h *Handlers) HandleListVersions(c *gin.Context) {
	agent := c.Param("agent")
	versions := h.svc.Registry().AllVersions(agent)
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.String())
	}
	c.JSON(http.StatusOK, VersionsResponse{AgentName: agent, Versions: out})
}

// HandleMigrationPath handles GET /v1/concord/contracts/:agent/path.
func (h *Handlers) HandleMigrationPath(c *gin.Context) {
	agent := c.Param("agent")
	from := c.Query("from")
	to := c.Query("to")

	path := h.svc.Registry().MigrationPath(agent, from, to)
	out := make([]string, 0, len(path))
	for _, v := range path {
		out = append(out, v.String())
	}
	c.JSON(http.StatusOK, MigrationPathResponse{AgentName: agent, From: from, To: to, Path: out})
}

// HandleCompatibility handles POST /v1/concord/compatibility.
func (h *Handlers) HandleCompatibility(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCompatibility")

	var req CompatibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	result := h.svc.Registry().ValidateCompatibility(req.Producer, req.Consumer, req.ProducerVersion, req.ConsumerVersion)
	c.JSON(http.StatusOK, result)
}

// HandleImpact handles POST /v1/concord/impact.
//
// Response:
//
//	200 OK: registry.ImpactAnalysis
//	404 Not Found: the agent has no existing contract
//	409 Conflict: no dependency graph configured
func (h *Handlers) HandleImpact(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleImpact")

	var req ImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	analysis, err := h.svc.Impact().AnalyzeSchemaImpact(c.Request.Context(), req.AgentName, req.Schema, req.NewVersion)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNoGraph):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "NO_GRAPH"})
		case errors.Is(err, registry.ErrNoExistingContract):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NO_EXISTING_CONTRACT"})
		case errors.Is(err, registry.ErrInvalidVersion):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_VERSION"})
		default:
			logger.Error("Impact analysis failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "IMPACT_FAILED"})
		}
		return
	}

	logger.Info("Impact analyzed", "agent", req.AgentName, "breaking", analysis.Breaking)
	c.JSON(http.StatusOK, analysis)
}

// HandleDownstream handles GET /v1/concord/impact/:agent/downstream.
func (h *Handlers) HandleDownstream(c *gin.Context) {
	agent := c.Param("agent")

	downstream, err := h.svc.Impact().NotifyDownstreamAgents(agent)
	if err != nil {
		if errors.Is(err, registry.ErrNoGraph) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "NO_GRAPH"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "DOWNSTREAM_FAILED"})
		return
	}
	c.JSON(http.StatusOK, DownstreamResponse{AgentName: agent, Downstream: downstream})
}

// HandleSetGraph handles PUT /v1/concord/graph.
func (h *Handlers) HandleSetGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSetGraph")

	var req SetGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	g := graph.New()
	for _, node := range req.Nodes {
		g.AddNode(node)
	}
	for _, edge := range req.Edges {
		g.AddEdge(edge.From, edge.To)
	}
	h.svc.SetGraph(g)

	logger.Info("Dependency graph configured", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	c.JSON(http.StatusOK, graphResponse(g))
}

// HandleGetGraph handles GET /v1/concord/graph.
func (h *Handlers) HandleGetGraph(c *gin.Context) {
	g := h.svc.Graph()
	if g == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no dependency graph configured", Code: "NO_GRAPH"})
		return
	}
	c.JSON(http.StatusOK, graphResponse(g))
}

func graphResponse(g *graph.Graph) GraphResponse {
	edges := g.Edges()
	out := GraphResponse{Nodes: g.Nodes(), Edges: make([]GraphEdge, 0, len(edges))}
	for _, e := range edges {
		out.Edges = append(out.Edges, GraphEdge{From: e[0], To: e[1]})
	}
	return out
}

// HandleApplyMigration handles POST /v1/concord/migrations/:id/apply.
//
// Description:
//
//	A transform or validation failure is a 200 with success=false;
//	only an unregistered migration id is an error.
func (h *Handlers) HandleApplyMigration(c *gin.Context) {
	h.runMigration(c, "HandleApplyMigration", h.svc.Executor().Apply)
}

// HandleRollbackMigration handles POST /v1/concord/migrations/:id/rollback.
func (h *Handlers) HandleRollbackMigration(c *gin.Context) {
	h.runMigration(c, "HandleRollbackMigration", h.svc.Executor().Rollback)
}

func (h *Handlers) runMigration(c *gin.Context, name string, op func(ctx context.Context, agent, id string, payload migration.Payload) (*migration.Result, error)) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", name)

	var req ApplyMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	result, err := op(c.Request.Context(), req.Agent, c.Param("id"), req.Payload)
	if err != nil {
		if errors.Is(err, migration.ErrMigrationNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "MIGRATION_NOT_FOUND"})
			return
		}
		logger.Error("Migration operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "MIGRATION_FAILED"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandlePendingMigrations handles GET /v1/concord/migrations/pending.
func (h *Handlers) HandlePendingMigrations(c *gin.Context) {
	pending := h.svc.Executor().Pending(c.Query("agent"))
	c.JSON(http.StatusOK, summarizeMigrations(pending))
}

// HandlePlanMigrations handles GET /v1/concord/migrations/plan.
//
// Response:
//
//	200 OK: ordered migration summaries
//	409 Conflict: the registered set contains an ordering cycle
func (h *Handlers) HandlePlanMigrations(c *gin.Context) {
	planned, err := h.svc.Executor().Plan(nil)
	if err != nil {
		var cycleErr *migration.CycleError
		if errors.As(err, &cycleErr) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "MIGRATION_CYCLE"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "PLAN_FAILED"})
		return
	}
	c.JSON(http.StatusOK, summarizeMigrations(planned))
}

func summarizeMigrations(migrations []migration.Migration) []PendingMigration {
	out := make([]PendingMigration, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, PendingMigration{
			MigrationID: migration.ID(m.Agent(), m.From(), m.To()),
			Agent:       m.Agent(),
			From:        m.From().String(),
			To:          m.To().String(),
			Description: m.Description(),
		})
	}
	return out
}

// HandleValidateOrder handles GET /v1/concord/migrations/validate_order.
func (h *Handlers) HandleValidateOrder(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Executor().ValidateOrder())
}

// HandleMigrationHistory handles GET /v1/concord/migrations/history.
func (h *Handlers) HandleMigrationHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Executor().History(c.Query("agent")))
}

// HandleMigrationTemplate handles GET /v1/concord/migrations/template.
func (h *Handlers) HandleMigrationTemplate(c *gin.Context) {
	agent := c.Query("agent")
	from := c.Query("from")
	to := c.Query("to")
	if agent == "" || from == "" || to == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "agent, from, and to query parameters are required", Code: "INVALID_REQUEST"})
		return
	}
	c.JSON(http.StatusOK, TemplateResponse{
		AgentName: agent,
		From:      from,
		To:        to,
		Source:    migration.Template(agent, from, to),
	})
}

// HandleTrackInteraction handles POST /v1/concord/interactions.
func (h *Handlers) HandleTrackInteraction(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleTrackInteraction")

	var req TrackInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	in := h.svc.Tracker().TrackInteraction(c.Request.Context(),
		req.SourceAgent, req.TargetAgent, req.Topic, req.SchemaVersion,
		req.Payload, *req.Successful, req.Error)
	c.JSON(http.StatusOK, in)
}

// HandleMetrics handles GET /v1/concord/coherence/metrics.
func (h *Handlers) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Tracker().CalculateMetrics(c.Query("agent")))
}

// HandleDrift handles GET /v1/concord/coherence/drift.
//
// Description:
//
//	The optional window query parameter is a Go duration string
//	("24h", "90m"). Omitted or zero means all-time.
func (h *Handlers) HandleDrift(c *gin.Context) {
	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid window duration", Code: "INVALID_WINDOW"})
			return
		}
		window = parsed
	}
	c.JSON(http.StatusOK, h.svc.Tracker().DetectSchemaDrift(window))
}

// HandleCoherenceReport handles GET /v1/concord/coherence/report.
func (h *Handlers) HandleCoherenceReport(c *gin.Context) {
	report, err := h.svc.Tracker().AnalyzeCoherencePaths()
	if err != nil {
		if errors.Is(err, coherence.ErrNoGraph) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "NO_GRAPH"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "REPORT_FAILED"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleRecommendations handles GET /v1/concord/coherence/recommendations.
func (h *Handlers) HandleRecommendations(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Tracker().RecommendUpdates())
}

// HandleCoherenceGraph handles GET /v1/concord/coherence/graph.
func (h *Handlers) HandleCoherenceGraph(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Tracker().VisualizeCoherence())
}

// HandleHealth handles GET /v1/concord/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "concord", Version: ServiceVersion})
}

// HandleReady handles GET /v1/concord/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Service: "concord", Version: ServiceVersion})
}
