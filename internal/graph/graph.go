// Package graph holds the precedence DAG the solver searches over. Nodes are
// operations keyed by id and weighted by duration; edges point from a
// predecessor to the operations that must wait for it.
//
// The graph is built once per solve and then only read, so unlike a live
// execution graph it carries no locking.
package graph

import (
	"fmt"
)

// Graph is a directed acyclic dependency graph over operations.
type Graph struct {
	nodes map[string]*node
	// order preserves insertion order so traversals are deterministic.
	order []string
}

type node struct {
	id         string
	duration   int
	deps       map[string]*node
	dependents map[string]*node
}

// New returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds an operation node with the given id and duration. Adding an
// id twice is a no-op.
func (g *Graph) AddNode(id string, duration int) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		duration:   duration,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// AddEdge records that toID may not start before fromID ends. An error is
// returned if either node is missing or the edge is self-referential.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, toID)
	}
	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Dependencies returns the ids the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	deps := make([]string, 0, len(n.deps))
	for _, ord := range g.order {
		if _, ok := n.deps[ord]; ok {
			deps = append(deps, ord)
		}
	}
	return deps, nil
}

// Dependents returns the ids that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	dependents := make([]string, 0, len(n.dependents))
	for _, ord := range g.order {
		if _, ok := n.dependents[ord]; ok {
			dependents = append(dependents, ord)
		}
	}
	return dependents, nil
}

// TopoSort returns the node ids in a precedence-respecting order using
// Kahn's algorithm. A cyclic graph cannot be ordered; the error names a node
// still trapped in the cycle. Ties are broken by insertion order so repeat
// solves of the same instance walk the same order.
func (g *Graph) TopoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		indegree[id] = len(g.nodes[id].deps)
	}

	var queue []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		n := g.nodes[id]
		for _, depID := range g.order {
			if _, ok := n.dependents[depID]; !ok {
				continue
			}
			indegree[depID]--
			if indegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		for _, id := range g.order {
			if indegree[id] > 0 {
				return nil, fmt.Errorf("cycle detected involving node '%s'", id)
			}
		}
	}
	return sorted, nil
}

// TailLengths returns, for every node, the length of the longest duration
// chain that starts with that node (inclusive) and follows dependents to a
// sink. The maximum over all nodes is the critical path length, a lower
// bound on any feasible makespan.
func (g *Graph) TailLengths() (map[string]int, error) {
	sorted, err := g.TopoSort()
	if err != nil {
		return nil, err
	}

	tails := make(map[string]int, len(g.nodes))
	// Walk in reverse topological order so every dependent is resolved
	// before the nodes that feed it.
	for i := len(sorted) - 1; i >= 0; i-- {
		n := g.nodes[sorted[i]]
		longest := 0
		for _, dep := range n.dependents {
			if t := tails[dep.id]; t > longest {
				longest = t
			}
		}
		tails[n.id] = n.duration + longest
	}
	return tails, nil
}

// CriticalPathLength returns the length of the longest duration chain in the
// graph, or an error for cyclic input.
func (g *Graph) CriticalPathLength() (int, error) {
	tails, err := g.TailLengths()
	if err != nil {
		return 0, err
	}
	longest := 0
	for _, t := range tails {
		if t > longest {
			longest = t
		}
	}
	return longest, nil
}
