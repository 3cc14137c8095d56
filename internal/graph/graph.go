package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle marks a computation graph that is not acyclic.
var ErrCycle = errors.New("computation graph contains a cycle")

// #region types
// Edge is a typed data dependency between two method-instance nodes.
type Edge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	EdgeType string `json:"edge_type"`
}

// Node is one method instance in the execution.
type Node struct {
	ID        string `json:"id"`
	MethodID  string `json:"method_id"`
	Signature string `json:"signature"` // registry signature id for wiring checks
}

// Graph is the DAG of method-instance nodes and data dependencies within one
// execution. Validate must pass before any scoring runs against it.
type Graph struct {
	nodes map[string]Node
	edges []Edge
}

// #endregion types

// #region constructor
// New builds a graph and checks referential integrity. Acyclicity is checked
// separately by Validate so callers can report both kinds of failure.
func New(nodes []Node, edges []Edge) (*Graph, error) {
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("graph: node with empty id")
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("graph: duplicate node id %s", n.ID)
		}
		byID[n.ID] = n
	}
	for _, e := range edges {
		if _, ok := byID[e.SourceID]; !ok {
			return nil, fmt.Errorf("graph: edge source %s is not a node", e.SourceID)
		}
		if _, ok := byID[e.TargetID]; !ok {
			return nil, fmt.Errorf("graph: edge target %s is not a node", e.TargetID)
		}
		if e.EdgeType == "" {
			return nil, fmt.Errorf("graph: edge %s->%s has empty type", e.SourceID, e.TargetID)
		}
	}
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SourceID != sorted[j].SourceID {
			return sorted[i].SourceID < sorted[j].SourceID
		}
		if sorted[i].TargetID != sorted[j].TargetID {
			return sorted[i].TargetID < sorted[j].TargetID
		}
		return sorted[i].EdgeType < sorted[j].EdgeType
	})
	return &Graph{nodes: byID, edges: sorted}, nil
}

// #endregion constructor

// #region accessors
// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in lexical order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges returns the edges in canonical order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// #endregion accessors

// #region validate
// Validate rejects cyclic graphs, naming the nodes left on the cycle.
func (g *Graph) Validate() error {
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns node ids in dependency order, or ErrCycle.
// Ties break lexically so the order is deterministic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	succ := make(map[string][]string, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = 0
	}
	for _, e := range g.edges {
		succ[e.SourceID] = append(succ[e.SourceID], e.TargetID)
		indegree[e.TargetID]++
	}

	var ready []string
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		next := append([]string(nil), succ[id]...)
		sort.Strings(next)
		for _, t := range next {
			indegree[t]--
			if indegree[t] == 0 {
				ready = append(ready, t)
			}
		}
		sort.Strings(ready)
	}

	if len(order) != len(g.nodes) {
		var stuck []string
		for id, d := range indegree {
			if d > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: nodes %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return order, nil
}

// #endregion validate

// #region hash
// Hash returns a hex sha256 over the canonical node/edge encoding. Two graphs
// with the same nodes, signatures, and edges hash identically regardless of
// construction order.
func (g *Graph) Hash() string {
	h := sha256.New()
	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		fmt.Fprintf(h, "n|%s|%s|%s\n", n.ID, n.MethodID, n.Signature)
	}
	for _, e := range g.edges {
		fmt.Fprintf(h, "e|%s|%s|%s\n", e.SourceID, e.TargetID, e.EdgeType)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion hash
