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

import "github.com/AleutianAI/concord/services/concord/registry"

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RegisterContractRequest is the body of POST /v1/concord/contracts.
type RegisterContractRequest struct {
	AgentName string               `json:"agent_name" binding:"required"`
	Version   string               `json:"version" binding:"required"`
	Schema    registry.AgentSchema `json:"schema"`
}

// CompatibilityRequest is the body of POST /v1/concord/compatibility.
type CompatibilityRequest struct {
	Producer        string `json:"producer" binding:"required"`
	Consumer        string `json:"consumer" binding:"required"`
	ProducerVersion string `json:"producer_version"`
	ConsumerVersion string `json:"consumer_version"`
}

// ImpactRequest is the body of POST /v1/concord/impact.
type ImpactRequest struct {
	AgentName  string               `json:"agent_name" binding:"required"`
	Schema     registry.AgentSchema `json:"schema"`
	NewVersion string               `json:"new_version"`
}

// GraphEdge is one directed dependency edge.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SetGraphRequest is the body of PUT /v1/concord/graph.
type SetGraphRequest struct {
	Nodes []string    `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphResponse describes the configured dependency graph.
type GraphResponse struct {
	Nodes []string    `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// ApplyMigrationRequest is the body of apply/rollback calls.
type ApplyMigrationRequest struct {
	Agent   string         `json:"agent" binding:"required"`
	Payload map[string]any `json:"payload"`
}

// TrackInteractionRequest is the body of POST /v1/concord/interactions.
type TrackInteractionRequest struct {
	SourceAgent   string         `json:"source_agent" binding:"required"`
	TargetAgent   string         `json:"target_agent" binding:"required"`
	Topic         string         `json:"topic" binding:"required"`
	SchemaVersion string         `json:"schema_version" binding:"required"`
	Payload       map[string]any `json:"payload"`
	Successful    *bool          `json:"successful" binding:"required"`
	Error         string         `json:"error"`
}

// AgentsResponse lists registered agent names.
type AgentsResponse struct {
	Agents []string `json:"agents"`
}

// VersionsResponse lists an agent's registered versions, ascending.
type VersionsResponse struct {
	AgentName string   `json:"agent_name"`
	Versions  []string `json:"versions"`
}

// MigrationPathResponse is an ordered version sequence between two
// registered versions.
type MigrationPathResponse struct {
	AgentName string   `json:"agent_name"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Path      []string `json:"path"`
}

// DownstreamResponse lists transitive downstream agents.
type DownstreamResponse struct {
	AgentName  string   `json:"agent_name"`
	Downstream []string `json:"downstream"`
}

// TemplateResponse carries generated migration boilerplate.
type TemplateResponse struct {
	AgentName string `json:"agent_name"`
	From      string `json:"from"`
	To        string `json:"to"`
	Source    string `json:"source"`
}

// PendingMigration summarizes one outstanding migration.
type PendingMigration struct {
	MigrationID string `json:"migration_id"`
	Agent       string `json:"agent"`
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description"`
}

// HealthResponse is the health/readiness body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
