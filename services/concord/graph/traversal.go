// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "sort"

// DefaultMaxHops bounds simple-path enumeration. Path analysis cost
// grows combinatorially with hop count on high-fan-out graphs, so a
// larger cutoff must be a deliberate caller decision.
const DefaultMaxHops = 5

// Descendants returns every node reachable from id by following
// outgoing edges, excluding id itself. Result is sorted. Returns nil
// for an unknown node.
func (g *Graph) Descendants(id string) []string {
	if !g.HasNode(id) {
		return nil
	}

	visited := map[string]struct{}{id: {}}
	queue := []string{id}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for next := range g.succ[current] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	delete(visited, id)
	return sortedKeys(visited)
}

// SimplePaths enumerates all simple paths from one node to another
// with at most maxHops edges.
//
// Description:
//
//	Depth-first enumeration with an on-path set so each node appears
//	at most once per path. maxHops <= 0 falls back to DefaultMaxHops.
//	Paths are returned in lexicographic order of their node sequence.
//
// Outputs:
//
//	[][]string - Each path as a node sequence including endpoints.
//	Nil if either endpoint is unknown or from == to.
func (g *Graph) SimplePaths(from, to string, maxHops int) [][]string {
	if !g.HasNode(from) || !g.HasNode(to) || from == to {
		return nil
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	var paths [][]string
	onPath := map[string]struct{}{from: {}}
	path := []string{from}

	var walk func(current string)
	walk = func(current string) {
		if len(path)-1 > maxHops {
			return
		}
		if current == to {
			paths = append(paths, append([]string(nil), path...))
			return
		}
		if len(path)-1 == maxHops {
			return
		}
		for _, next := range g.Successors(current) {
			if _, seen := onPath[next]; seen {
				continue
			}
			onPath[next] = struct{}{}
			path = append(path, next)
			walk(next)
			path = path[:len(path)-1]
			delete(onPath, next)
		}
	}
	walk(from)

	return paths
}

// TopologicalSort orders nodes so that every edge points from an
// earlier node to a later one.
//
// Description:
//
//	Kahn's algorithm. Zero in-degree nodes are processed in sorted
//	order so the result is deterministic across runs. When the graph
//	contains a cycle, the returned order covers only the acyclic
//	portion and the second return value names the nodes still stuck
//	in cycles, for diagnostics.
//
// Outputs:
//
//	[]string - Topological order of the acyclic portion.
//	[]string - Nodes participating in cycles, sorted. Empty for a DAG.
func (g *Graph) TopologicalSort() ([]string, []string) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.pred[id])
	}

	var queue []string
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		ready := make([]string, 0)
		for _, next := range g.Successors(current) {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
		// Keep the frontier sorted without re-sorting the whole queue.
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}

	cyclic := make([]string, 0)
	for id, degree := range inDegree {
		if degree > 0 {
			cyclic = append(cyclic, id)
		}
	}
	sort.Strings(cyclic)
	return order, cyclic
}
