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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/concord/services/concord/graph"
)

// processMethod builds the OrderService "process" method with the
// given input fields ("name:required" entries) and a status output.
func processMethod(inputs map[string]bool) MethodSchema {
	input := make(map[string]SchemaField, len(inputs))
	for name, required := range inputs {
		ft := FieldTypeString
		if name == "priority" {
			ft = FieldTypeInt
		}
		input[name] = SchemaField{Name: name, Type: ft, Required: required}
	}
	return MethodSchema{
		Name:  "process",
		Input: input,
		Output: map[string]SchemaField{
			"status": {Name: "status", Type: FieldTypeString, Required: true},
		},
	}
}

// chainFixture registers contracts for A, B, C at 1.0.0 and wires the
// graph A -> B -> C.
func chainFixture(t *testing.T) (*ContractRegistry, *ImpactAnalyzer) {
	t.Helper()

	r := NewContractRegistry()
	for _, agent := range []string{"A", "B", "C"} {
		_, err := r.Register(agent, "1.0.0", AgentSchema{})
		require.NoError(t, err)
	}

	g := graph.New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(g)
	return r, a
}

func TestAnalyzeSchemaImpactRequiresGraph(t *testing.T) {
	r := NewContractRegistry()
	a := NewImpactAnalyzer(r, nil)

	_, err := a.AnalyzeSchemaImpact(context.Background(), "A", AgentSchema{}, "")
	assert.ErrorIs(t, err, ErrNoGraph)

	_, err = a.NotifyDownstreamAgents("A")
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestAnalyzeSchemaImpactRequiresContract(t *testing.T) {
	r := NewContractRegistry()
	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(graph.New())

	_, err := a.AnalyzeSchemaImpact(context.Background(), "ghost", AgentSchema{}, "")
	assert.ErrorIs(t, err, ErrNoExistingContract)
}

// Adding a required input field is breaking and bumps the major
// version: 1.0.0 -> 2.0.0.
func TestAnalyzeSchemaImpactAddedRequiredInput(t *testing.T) {
	r := NewContractRegistry()
	_, err := r.Register("OrderService", "1.0.0", AgentSchema{
		Methods: map[string]MethodSchema{
			"process": processMethod(map[string]bool{"id": true}),
		},
	})
	require.NoError(t, err)

	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(graph.New())

	proposal := AgentSchema{
		Methods: map[string]MethodSchema{
			"process": processMethod(map[string]bool{"id": true, "priority": true}),
		},
	}

	analysis, err := a.AnalyzeSchemaImpact(context.Background(), "OrderService", proposal, "")
	require.NoError(t, err)
	assert.True(t, analysis.Breaking)
	assert.Equal(t, "2.0.0", analysis.NewVersion.String())

	issues := analysis.BreakingChanges["OrderService"]
	require.Len(t, issues, 1)
	assert.Equal(t, IssueRequiredInput, issues[0].Kind)
	assert.Equal(t, "priority", issues[0].Field)
}

func TestAnalyzeSchemaImpactNonBreakingBumpsPatch(t *testing.T) {
	r := NewContractRegistry()
	_, err := r.Register("OrderService", "1.2.3", AgentSchema{
		Methods: map[string]MethodSchema{
			"process": processMethod(map[string]bool{"id": true}),
		},
	})
	require.NoError(t, err)

	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(graph.New())

	// Optional input addition is non-breaking.
	proposal := AgentSchema{
		Methods: map[string]MethodSchema{
			"process": processMethod(map[string]bool{"id": true, "priority": false}),
		},
	}

	analysis, err := a.AnalyzeSchemaImpact(context.Background(), "OrderService", proposal, "")
	require.NoError(t, err)
	assert.False(t, analysis.Breaking)
	assert.Equal(t, "1.2.4", analysis.NewVersion.String())
	assert.Empty(t, analysis.BreakingChanges)
}

func TestAnalyzeSchemaImpactMethodRemoved(t *testing.T) {
	r := NewContractRegistry()
	_, err := r.Register("A", "1.0.0", AgentSchema{
		Methods: map[string]MethodSchema{
			"process": processMethod(map[string]bool{"id": true}),
		},
	})
	require.NoError(t, err)

	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(graph.New())

	analysis, err := a.AnalyzeSchemaImpact(context.Background(), "A", AgentSchema{}, "")
	require.NoError(t, err)
	assert.True(t, analysis.Breaking)
	require.Len(t, analysis.BreakingChanges["A"], 1)
	assert.Equal(t, IssueMethodRemoved, analysis.BreakingChanges["A"][0].Kind)
}

func TestAnalyzeSchemaImpactExplicitVersion(t *testing.T) {
	r := NewContractRegistry()
	_, err := r.Register("A", "1.0.0", AgentSchema{})
	require.NoError(t, err)

	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(graph.New())

	analysis, err := a.AnalyzeSchemaImpact(context.Background(), "A", AgentSchema{}, "5.0.0")
	require.NoError(t, err)
	assert.Equal(t, "5.0.0", analysis.NewVersion.String())

	_, err = a.AnalyzeSchemaImpact(context.Background(), "A", AgentSchema{}, "not-a-version")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestNotifyDownstreamAgentsChain(t *testing.T) {
	_, a := chainFixture(t)

	downstream, err := a.NotifyDownstreamAgents("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, downstream)

	downstream, err = a.NotifyDownstreamAgents("C")
	require.NoError(t, err)
	assert.Empty(t, downstream)
}

// A breaking payload change on a topic a downstream agent subscribes
// to must show up in that agent's breaking-change list.
func TestAnalyzeSchemaImpactDownstreamBreakage(t *testing.T) {
	r := NewContractRegistry()

	_, err := r.Register("A", "1.0.0", AgentSchema{
		Publishes: map[string]EventSchema{"orders": orderEvent("orders", "id", "status")},
	})
	require.NoError(t, err)
	_, err = r.Register("B", "1.0.0", AgentSchema{
		Subscribes: map[string]EventSchema{"orders": orderEvent("orders", "id", "status")},
	})
	require.NoError(t, err)

	g := graph.New()
	g.AddEdge("A", "B")

	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(g)

	// Proposal drops "status" from the payload.
	proposal := AgentSchema{
		Publishes: map[string]EventSchema{"orders": orderEvent("orders", "id")},
	}

	analysis, err := a.AnalyzeSchemaImpact(context.Background(), "A", proposal, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, analysis.AffectedAgents)

	issues := analysis.BreakingChanges["B"]
	require.NotEmpty(t, issues)
	assert.Equal(t, IssueMissingField, issues[0].Kind)
	assert.Equal(t, "status", issues[0].Field)

	// Live state must be untouched by the disposable registry.
	_, ok := r.Get("A", analysis.NewVersion.String())
	assert.False(t, ok)
}

func TestPropagationRate(t *testing.T) {
	r := NewContractRegistry()
	_, err := r.Register("A", "1.0.0", AgentSchema{
		Publishes: map[string]EventSchema{"orders": orderEvent("orders", "id")},
	})
	require.NoError(t, err)
	_, err = r.Register("B", "1.0.0", AgentSchema{
		Subscribes: map[string]EventSchema{"orders": orderEvent("orders", "id")},
	})
	require.NoError(t, err)

	g := graph.New()
	g.AddEdge("A", "B")

	a := NewImpactAnalyzer(r, nil)
	a.SetGraph(g)

	// No analysis yet: optimistic default.
	assert.Equal(t, 1.0, a.PropagationRate())

	_, err = a.AnalyzeSchemaImpact(context.Background(), "A", AgentSchema{
		Publishes: map[string]EventSchema{"orders": orderEvent("orders", "id")},
	}, "")
	require.NoError(t, err)

	// B has not re-registered since the analysis.
	assert.Equal(t, 0.0, a.PropagationRate())

	_, err = r.Register("B", "1.0.1", AgentSchema{
		Subscribes: map[string]EventSchema{"orders": orderEvent("orders", "id")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.PropagationRate())
}
