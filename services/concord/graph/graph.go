// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides a string-keyed directed graph for agent
// dependency tracking.
//
// Nodes are agent names; a directed edge from A to B means B consumes
// what A produces, so a change to A flows downstream to B. The same
// structure backs three consumers: impact analysis (descendant sets),
// migration planning (topological ordering with cycle detection), and
// coherence path analysis (bounded simple-path enumeration).
//
// # Thread Safety
//
// Graph is NOT safe for concurrent modification. It is designed to be
// built once and then queried concurrently, the same contract as the
// rest of the read-side structures in this service.
package graph

import "sort"

// Graph is a directed graph over string node IDs.
type Graph struct {
	nodes map[string]struct{}
	succ  map[string]map[string]struct{}
	pred  map[string]map[string]struct{}
	edges int
}

// New creates an empty directed graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		succ:  make(map[string]map[string]struct{}),
		pred:  make(map[string]map[string]struct{}),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if id == "" {
		return
	}
	g.nodes[id] = struct{}{}
}

// AddEdge adds a directed edge from one node to another, creating
// either endpoint if absent. Duplicate edges and self-loops are
// ignored; a self-loop carries no ordering information and would only
// poison cycle detection.
func (g *Graph) AddEdge(from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	g.AddNode(from)
	g.AddNode(to)

	if g.succ[from] == nil {
		g.succ[from] = make(map[string]struct{})
	}
	if _, dup := g.succ[from][to]; dup {
		return
	}
	g.succ[from][to] = struct{}{}

	if g.pred[to] == nil {
		g.pred[to] = make(map[string]struct{})
	}
	g.pred[to][from] = struct{}{}
	g.edges++
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether the directed edge exists.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.succ[from][to]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct directed edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes returns all node IDs, sorted.
func (g *Graph) Nodes() []string {
	return sortedKeys(g.nodes)
}

// Successors returns the direct downstream neighbors of id, sorted.
func (g *Graph) Successors(id string) []string {
	return sortedKeys(g.succ[id])
}

// Predecessors returns the direct upstream neighbors of id, sorted.
func (g *Graph) Predecessors(id string) []string {
	return sortedKeys(g.pred[id])
}

// Edges returns every directed edge as a [from, to] pair, sorted by
// source then target.
func (g *Graph) Edges() [][2]string {
	result := make([][2]string, 0, g.edges)
	for _, from := range g.Nodes() {
		for _, to := range g.Successors(from) {
			result = append(result, [2]string{from, to})
		}
	}
	return result
}

// sortedKeys extracts map keys in sorted order. Sorting keeps every
// traversal in this package deterministic.
func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
