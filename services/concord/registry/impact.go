// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/concord/services/concord/graph"
)

// ImpactAnalysis is the outcome of analyzing a proposed schema change.
type ImpactAnalysis struct {
	// Agent is the agent proposing the change.
	Agent string `json:"agent"`

	// NewVersion is the version the change would ship as.
	NewVersion Version `json:"new_version"`

	// Breaking indicates the change breaks the current contract.
	Breaking bool `json:"breaking"`

	// AffectedAgents lists every transitive downstream agent, sorted.
	AffectedAgents []string `json:"affected_agents"`

	// BreakingChanges maps affected agent name to the breaking issues
	// the new schema would cause it.
	BreakingChanges map[string][]CompatIssue `json:"breaking_changes"`

	// Warnings lists non-breaking findings across all descendants.
	Warnings []string `json:"warnings"`

	// AnalyzedAt is when the analysis ran.
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// ImpactAnalyzer walks the dependency graph to find what a proposed
// schema change breaks downstream.
//
// Thread Safety: safe for concurrent use. SetGraph is the only write
// and is serialized against analyses.
type ImpactAnalyzer struct {
	registry *ContractRegistry
	logger   *slog.Logger

	mu           sync.RWMutex
	graph        *graph.Graph
	lastAnalysis *ImpactAnalysis
}

// NewImpactAnalyzer creates an analyzer over the given registry. The
// dependency graph is supplied separately via SetGraph because it is
// owned by an external discovery component and may arrive later.
func NewImpactAnalyzer(registry *ContractRegistry, logger *slog.Logger) *ImpactAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpactAnalyzer{registry: registry, logger: logger}
}

// SetGraph installs the dependency graph. The graph is consumed
// read-only; edges point from producer to its dependents.
func (a *ImpactAnalyzer) SetGraph(g *graph.Graph) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph = g
}

// Graph returns the installed dependency graph, or nil.
func (a *ImpactAnalyzer) Graph() *graph.Graph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}

// AnalyzeSchemaImpact computes the downstream impact of a proposed
// schema for an agent.
//
// Description:
//
//	Diffs the proposed schema against the agent's latest contract to
//	classify the change, derives the next version (+1 major when
//	breaking, else +1 patch, unless explicitVersion overrides), then
//	registers the proposal in a disposable copy of the registry and
//	re-validates compatibility against every transitive descendant.
//
// Inputs:
//
//	ctx - Context for tracing. Must be non-nil.
//	agent - The agent proposing the change.
//	newSchema - The proposed schema.
//	explicitVersion - Optional version override; "" derives one.
//
// Outputs:
//
//	*ImpactAnalysis - Per-descendant breaking changes and warnings.
//	error - ErrNoGraph without a graph, ErrNoExistingContract without
//	a current contract, ErrInvalidVersion on a bad explicit version.
func (a *ImpactAnalyzer) AnalyzeSchemaImpact(ctx context.Context, agent string, newSchema AgentSchema, explicitVersion string) (*ImpactAnalysis, error) {
	if err := initMetrics(); err != nil {
		a.logger.Warn("impact metrics unavailable", "error", err)
	}
	ctx, span := tracer.Start(ctx, "registry.AnalyzeSchemaImpact")
	defer span.End()
	start := time.Now()

	g := a.Graph()
	if g == nil {
		return nil, ErrNoGraph
	}

	current, ok := a.registry.Get(agent, "")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoExistingContract, agent)
	}

	schemaIssues := classifySchemaChange(current.Schema(), newSchema)
	breaking := false
	var warnings []string
	var breakingIssues []CompatIssue
	for _, issue := range schemaIssues {
		if issue.Severity == SeverityBreaking {
			breaking = true
			breakingIssues = append(breakingIssues, issue)
		} else {
			warnings = append(warnings, issue.Description)
		}
	}

	newVersion := current.Version.BumpPatch()
	if breaking {
		newVersion = current.Version.BumpMajor()
	}
	if explicitVersion != "" {
		v, err := ParseVersion(explicitVersion)
		if err != nil {
			return nil, err
		}
		newVersion = v
	}

	analysis := &ImpactAnalysis{
		Agent:           agent,
		NewVersion:      newVersion,
		Breaking:        breaking,
		AffectedAgents:  g.Descendants(agent),
		BreakingChanges: make(map[string][]CompatIssue),
		Warnings:        warnings,
		AnalyzedAt:      time.Now().UTC(),
	}
	if len(breakingIssues) > 0 {
		analysis.BreakingChanges[agent] = breakingIssues
	}

	// Re-validate every descendant against a scratch registry holding
	// the proposed contract, so live state is never touched.
	scratch := a.registry.snapshot()
	if _, err := scratch.Register(agent, newVersion.String(), newSchema); err != nil {
		return nil, err
	}

	for _, downstream := range analysis.AffectedAgents {
		result := scratch.ValidateCompatibility(agent, downstream, newVersion.String(), "")
		for _, issue := range result.Issues {
			switch issue.Severity {
			case SeverityBreaking:
				if issue.Kind == IssueMissingContract {
					analysis.Warnings = append(analysis.Warnings,
						fmt.Sprintf("%s: %s", downstream, issue.Description))
					continue
				}
				analysis.BreakingChanges[downstream] = append(analysis.BreakingChanges[downstream], issue)
			default:
				analysis.Warnings = append(analysis.Warnings,
					fmt.Sprintf("%s: %s", downstream, issue.Description))
			}
		}
	}

	a.mu.Lock()
	a.lastAnalysis = analysis
	a.mu.Unlock()

	if analysisTotal != nil {
		analysisTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent", agent),
			attribute.Bool("breaking", breaking),
		))
		analysisLatency.Record(ctx, time.Since(start).Seconds())
		affectedAgents.Record(ctx, int64(len(analysis.AffectedAgents)))
	}

	a.logger.Info("schema impact analyzed",
		"agent", agent,
		"new_version", newVersion.String(),
		"breaking", breaking,
		"affected", len(analysis.AffectedAgents))
	return analysis, nil
}

// NotifyDownstreamAgents returns the transitive downstream agents of
// the given agent. Delivery of the actual notification is owned by
// the transport layer; this is purely the recipient set.
func (a *ImpactAnalyzer) NotifyDownstreamAgents(agent string) ([]string, error) {
	g := a.Graph()
	if g == nil {
		return nil, ErrNoGraph
	}
	return g.Descendants(agent), nil
}

// PropagationRate reports the fraction of agents affected by the most
// recent impact analysis that have registered a new contract since it
// ran. With no analysis on record, or an analysis that affected
// nobody, the rate is 1.0 — absence of evidence is not incoherence.
func (a *ImpactAnalyzer) PropagationRate() float64 {
	a.mu.RLock()
	analysis := a.lastAnalysis
	a.mu.RUnlock()

	if analysis == nil || len(analysis.AffectedAgents) == 0 {
		return 1.0
	}

	migrated := 0
	for _, agent := range analysis.AffectedAgents {
		c, ok := a.registry.Get(agent, "")
		if ok && c.RegisteredAt.After(analysis.AnalyzedAt) {
			migrated++
		}
	}
	return float64(migrated) / float64(len(analysis.AffectedAgents))
}

// classifySchemaChange diffs an existing schema against a proposal.
//
// Breaking if and only if: a method was removed, an output field was
// removed from a surviving method, or a required input field was
// added to a surviving method. Everything else surfaces as warnings.
func classifySchemaChange(old, proposed AgentSchema) []CompatIssue {
	var issues []CompatIssue

	for _, name := range sortedMethodNames(old.Methods) {
		oldMethod := old.Methods[name]
		newMethod, stillExists := proposed.Methods[name]
		if !stillExists {
			issues = append(issues, CompatIssue{
				Severity:    SeverityBreaking,
				Kind:        IssueMethodRemoved,
				Description: fmt.Sprintf("method %q removed", name),
			})
			continue
		}

		for _, field := range sortedFieldNames(oldMethod.Output) {
			if _, ok := newMethod.Output[field]; !ok {
				issues = append(issues, CompatIssue{
					Severity:    SeverityBreaking,
					Kind:        IssueOutputFieldLost,
					Field:       field,
					Description: fmt.Sprintf("method %q: output field %q removed", name, field),
				})
			}
		}

		for _, field := range sortedFieldNames(newMethod.Input) {
			spec := newMethod.Input[field]
			if _, existed := oldMethod.Input[field]; !existed && spec.Required {
				issues = append(issues, CompatIssue{
					Severity:    SeverityBreaking,
					Kind:        IssueRequiredInput,
					Field:       field,
					Description: fmt.Sprintf("method %q: required input field %q added", name, field),
				})
			}
		}
	}

	for _, topic := range sortedEventNames(old.Publishes) {
		if _, ok := proposed.Publishes[topic]; !ok {
			issues = append(issues, CompatIssue{
				Severity:    SeverityWarning,
				Topic:       topic,
				Description: fmt.Sprintf("published topic %q removed", topic),
			})
		}
	}

	return issues
}

func sortedMethodNames(m map[string]MethodSchema) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedFieldNames(m map[string]SchemaField) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedEventNames(m map[string]EventSchema) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
