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
	"fmt"
	"sort"

	"github.com/AleutianAI/concord/services/concord/graph"
	"github.com/AleutianAI/concord/services/concord/registry"
)

// Plan orders migrations so that each agent's version chain is
// respected.
//
// Description:
//
//	Groups migrations by agent, sorts each group by source version
//	ascending, and adds a directed "must precede" edge between
//	consecutive migrations of the same agent. All agents' edges are
//	unioned into one graph keyed by migration ID and topologically
//	sorted. Migrations of different agents carry no cross-edges, so
//	their relative order falls back to the deterministic sorted-ID
//	order of the sort.
//
// Inputs:
//
//	migrations - The set to plan. Nil plans every registered
//	migration.
//
// Outputs:
//
//	[]Migration - The execution order.
//	error - *CycleError when the ordering graph is not a DAG. A cycle
//	is a configuration bug (a from/to inversion or duplicate ID
//	forming a back-edge) and is never silently recovered.
func (e *Executor) Plan(migrations []Migration) ([]Migration, error) {
	if migrations == nil {
		e.mu.RLock()
		migrations = make([]Migration, 0, len(e.regOrder))
		for _, id := range e.regOrder {
			migrations = append(migrations, e.migrations[id])
		}
		e.mu.RUnlock()
	}
	if len(migrations) == 0 {
		return nil, nil
	}

	byID := make(map[string]Migration, len(migrations))
	byAgent := make(map[string][]Migration)
	g := graph.New()

	for _, m := range migrations {
		id := ID(m.Agent(), m.From(), m.To())
		byID[id] = m
		byAgent[m.Agent()] = append(byAgent[m.Agent()], m)
		g.AddNode(id)
	}

	for _, group := range byAgent {
		sort.Slice(group, func(i, j int) bool {
			return group[i].From().Less(group[j].From())
		})
		for i := 0; i < len(group)-1; i++ {
			fromID := ID(group[i].Agent(), group[i].From(), group[i].To())
			toID := ID(group[i+1].Agent(), group[i+1].From(), group[i+1].To())
			g.AddEdge(fromID, toID)
		}
		// A version chain that folds back on itself (to <= from of a
		// later link) is expressed as an explicit back-edge so cycle
		// detection can name it.
		for i := 0; i < len(group); i++ {
			for j := 0; j < len(group); j++ {
				if i == j {
					continue
				}
				if group[i].To().Equal(group[j].From()) {
					g.AddEdge(
						ID(group[i].Agent(), group[i].From(), group[i].To()),
						ID(group[j].Agent(), group[j].From(), group[j].To()),
					)
				}
			}
		}
	}

	order, cyclic := g.TopologicalSort()
	if len(cyclic) > 0 {
		return nil, &CycleError{Nodes: cyclic}
	}

	planned := make([]Migration, 0, len(order))
	for _, id := range order {
		planned = append(planned, byID[id])
	}
	return planned, nil
}

// ValidateOrder checks the full set of registered migrations for
// ordering problems.
//
// Description:
//
//	Errors come from cycle detection on the planning graph. Warnings
//	flag version-chain gaps: for each agent, the union of all from/to
//	versions is sorted, and every adjacent pair with no direct
//	migration between them is reported. A gap is not fatal — the
//	proposer may simply not have handed over that step yet — but it
//	means a full-chain upgrade cannot run.
func (e *Executor) ValidateOrder() OrderValidation {
	result := OrderValidation{Valid: true, Errors: []string{}, Warnings: []string{}}

	if _, err := e.Plan(nil); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	versionsByAgent := make(map[string][]registry.Version)
	directByAgent := make(map[string]map[string]bool)
	for _, m := range e.migrations {
		agent := m.Agent()
		versionsByAgent[agent] = append(versionsByAgent[agent], m.From(), m.To())
		if directByAgent[agent] == nil {
			directByAgent[agent] = make(map[string]bool)
		}
		directByAgent[agent][m.From().String()+">"+m.To().String()] = true
	}

	agents := make([]string, 0, len(versionsByAgent))
	for agent := range versionsByAgent {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	for _, agent := range agents {
		versions := dedupeVersions(versionsByAgent[agent])
		for i := 0; i < len(versions)-1; i++ {
			a, b := versions[i], versions[i+1]
			if !directByAgent[agent][a.String()+">"+b.String()] {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("agent %s: no direct migration from %s to %s", agent, a, b))
			}
		}
	}

	return result
}

// dedupeVersions sorts versions ascending and removes duplicates.
func dedupeVersions(versions []registry.Version) []registry.Version {
	registry.SortVersions(versions)
	out := versions[:0]
	for i, v := range versions {
		if i == 0 || !v.Equal(versions[i-1]) {
			out = append(out, v)
		}
	}
	return out
}
