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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/concord/services/concord/migration"
	"github.com/AleutianAI/concord/services/concord/registry"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(t.Context()) })
	return svc
}

func setupTestRouter(svc *Service) *gin.Engine {
	router := gin.New()
	handlers := NewHandlers(svc)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func orderSchema() registry.AgentSchema {
	return registry.AgentSchema{
		Publishes: map[string]registry.EventSchema{
			"orders": {
				Name: "orders",
				Payload: map[string]registry.SchemaField{
					"id": {Name: "id", Type: registry.FieldTypeString, Required: true},
				},
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "GET", "/v1/concord/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestContractLifecycle(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	for _, version := range []string{"1.0.0", "2.0.0"} {
		w := doJSON(t, router, "POST", "/v1/concord/contracts", RegisterContractRequest{
			AgentName: "OrderService",
			Version:   version,
			Schema:    orderSchema(),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// Latest version wins without an explicit query.
	w := doJSON(t, router, "GET", "/v1/concord/contracts/OrderService", nil)
	require.Equal(t, http.StatusOK, w.Code)
	contract := decode[registry.Contract](t, w)
	assert.Equal(t, "2.0.0", contract.Version.String())

	w = doJSON(t, router, "GET", "/v1/concord/contracts/OrderService?version=1.0.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	contract = decode[registry.Contract](t, w)
	assert.Equal(t, "1.0.0", contract.Version.String())

	w = doJSON(t, router, "GET", "/v1/concord/contracts/OrderService/versions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	versions := decode[VersionsResponse](t, w)
	assert.Equal(t, []string{"1.0.0", "2.0.0"}, versions.Versions)

	w = doJSON(t, router, "GET", "/v1/concord/contracts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	agents := decode[AgentsResponse](t, w)
	assert.Equal(t, []string{"OrderService"}, agents.Agents)

	w = doJSON(t, router, "GET", "/v1/concord/contracts/OrderService/path?from=2.0.0&to=1.0.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	path := decode[MigrationPathResponse](t, w)
	assert.Equal(t, []string{"2.0.0", "1.0.0"}, path.Path)
}

func TestRegisterContractInvalidVersion(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "POST", "/v1/concord/contracts", RegisterContractRequest{
		AgentName: "OrderService",
		Version:   "not-a-version",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_VERSION", decode[ErrorResponse](t, w).Code)
}

func TestGetContractNotFound(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "GET", "/v1/concord/contracts/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CONTRACT_NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestCompatibilityFailsClosed(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "POST", "/v1/concord/compatibility", CompatibilityRequest{
		Producer: "A",
		Consumer: "B",
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[registry.CompatibilityResult](t, w)
	assert.False(t, result.Compatible)
}

func TestImpactRequiresGraph(t *testing.T) {
	svc := newTestService(t)
	router := setupTestRouter(svc)

	w := doJSON(t, router, "POST", "/v1/concord/contracts", RegisterContractRequest{
		AgentName: "OrderService",
		Version:   "1.0.0",
		Schema:    orderSchema(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/v1/concord/impact", ImpactRequest{
		AgentName: "OrderService",
		Schema:    orderSchema(),
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_GRAPH", decode[ErrorResponse](t, w).Code)
}

func TestGraphAndDownstream(t *testing.T) {
	svc := newTestService(t)
	router := setupTestRouter(svc)

	w := doJSON(t, router, "PUT", "/v1/concord/graph", SetGraphRequest{
		Edges: []GraphEdge{{From: "A", To: "B"}, {From: "B", To: "C"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	g := decode[GraphResponse](t, w)
	assert.Equal(t, []string{"A", "B", "C"}, g.Nodes)
	assert.Len(t, g.Edges, 2)

	w = doJSON(t, router, "GET", "/v1/concord/impact/A/downstream", nil)
	require.Equal(t, http.StatusOK, w.Code)
	downstream := decode[DownstreamResponse](t, w)
	assert.Equal(t, []string{"B", "C"}, downstream.Downstream)

	w = doJSON(t, router, "GET", "/v1/concord/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetGraphUnconfigured(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "GET", "/v1/concord/graph", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_GRAPH", decode[ErrorResponse](t, w).Code)
}

func TestMigrationEndpoints(t *testing.T) {
	svc := newTestService(t)
	router := setupTestRouter(svc)

	id, err := svc.Executor().Create("X", "1.0.0", "2.0.0",
		func(p migration.Payload) (migration.Payload, error) {
			out := make(migration.Payload, len(p)+1)
			for k, v := range p {
				out[k] = v
			}
			out["migrated"] = true
			return out, nil
		},
		func(p migration.Payload) (migration.Payload, error) {
			out := make(migration.Payload, len(p))
			for k, v := range p {
				out[k] = v
			}
			delete(out, "migrated")
			return out, nil
		},
		nil, "add migrated flag")
	require.NoError(t, err)

	w := doJSON(t, router, "GET", "/v1/concord/migrations/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]PendingMigration](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].MigrationID)

	w = doJSON(t, router, "POST", "/v1/concord/migrations/"+id+"/apply", ApplyMigrationRequest{
		Agent:   "X",
		Payload: map[string]any{"id": "o-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[migration.Result](t, w)
	assert.True(t, result.Success)
	assert.Equal(t, true, result.After["migrated"])

	w = doJSON(t, router, "GET", "/v1/concord/migrations/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]migration.Record](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, migration.StatusApplied, history[0].Status)

	w = doJSON(t, router, "POST", "/v1/concord/migrations/"+id+"/rollback", ApplyMigrationRequest{
		Agent:   "X",
		Payload: result.After,
	})
	require.Equal(t, http.StatusOK, w.Code)
	rolled := decode[migration.Result](t, w)
	assert.True(t, rolled.Success)
	_, still := rolled.After["migrated"]
	assert.False(t, still)

	w = doJSON(t, router, "GET", "/v1/concord/migrations/validate_order", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode[migration.OrderValidation](t, w)
	assert.True(t, order.Valid)
}

func TestApplyUnknownMigration(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "POST", "/v1/concord/migrations/nope/apply", ApplyMigrationRequest{Agent: "X"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MIGRATION_NOT_FOUND", decode[ErrorResponse](t, w).Code)
}

func TestMigrationTemplateEndpoint(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "GET", "/v1/concord/migrations/template?agent=X&from=1.0.0&to=2.0.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[TemplateResponse](t, w)
	assert.Contains(t, resp.Source, "migration.MustNew")

	w = doJSON(t, router, "GET", "/v1/concord/migrations/template?agent=X", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInteractionAndCoherenceEndpoints(t *testing.T) {
	svc := newTestService(t)
	router := setupTestRouter(svc)

	yes := true
	for i := 0; i < 10; i++ {
		w := doJSON(t, router, "POST", "/v1/concord/interactions", TrackInteractionRequest{
			SourceAgent:   "A",
			TargetAgent:   "B",
			Topic:         "orders",
			SchemaVersion: "2.0.0",
			Successful:    &yes,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}
	for i := 0; i < 4; i++ {
		w := doJSON(t, router, "POST", "/v1/concord/interactions", TrackInteractionRequest{
			SourceAgent:   "legacy",
			TargetAgent:   "B",
			Topic:         "orders",
			SchemaVersion: "1.0.0",
			Successful:    &yes,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, router, "GET", "/v1/concord/coherence/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var metrics map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.InDelta(t, 10.0/14.0, metrics["schema_version_consistency"], 1e-9)

	w = doJSON(t, router, "GET", "/v1/concord/coherence/drift", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/v1/concord/coherence/drift?window=bogus", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", "/v1/concord/coherence/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/v1/concord/coherence/report", nil)
	require.Equal(t, http.StatusConflict, w.Code, "report requires a graph")

	doJSON(t, router, "PUT", "/v1/concord/graph", SetGraphRequest{
		Edges: []GraphEdge{{From: "A", To: "B"}},
	})
	w = doJSON(t, router, "GET", "/v1/concord/coherence/report", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/v1/concord/coherence/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTrackInteractionValidation(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, "POST", "/v1/concord/interactions", map[string]any{
		"source_agent": "A",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
