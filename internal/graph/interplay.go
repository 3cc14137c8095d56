package graph

import (
	"fmt"
	"sort"
)

// #region fusion-rule
// FusionRule declares how an interplay subgraph combines its inputs into the
// declared output. Each rule accepts a fixed set of input edge types.
type FusionRule string

const (
	FusionWeightedSum FusionRule = "weighted_sum" // numeric inputs
	FusionMin         FusionRule = "min"          // numeric inputs
	FusionConcat      FusionRule = "concat"       // text inputs
	FusionVote        FusionRule = "vote"         // label inputs
)

// ruleInputs maps each fusion rule to the edge types it can consume.
var ruleInputs = map[FusionRule]map[string]bool{
	FusionWeightedSum: {"score": true, "numeric": true},
	FusionMin:         {"score": true, "numeric": true},
	FusionConcat:      {"text": true, "fragment": true},
	FusionVote:        {"label": true, "class": true},
}

// #endregion fusion-rule

// #region interplay
// InterplaySubgraph is a subset of a computation graph feeding one declared
// output node under one declared fusion rule.
type InterplaySubgraph struct {
	NodeIDs  []string   `json:"node_ids"`
	OutputID string     `json:"output_id"`
	Rule     FusionRule `json:"rule"`
}

// Validate checks membership, the single declared output, and that every edge
// into the output carries a type the fusion rule accepts.
func (s InterplaySubgraph) Validate(g *Graph) error {
	accepted, ok := ruleInputs[s.Rule]
	if !ok {
		return fmt.Errorf("interplay subgraph: unknown fusion rule %q", s.Rule)
	}
	member := make(map[string]bool, len(s.NodeIDs))
	for _, id := range s.NodeIDs {
		if _, ok := g.Node(id); !ok {
			return fmt.Errorf("interplay subgraph: node %s is not in the graph", id)
		}
		member[id] = true
	}
	if !member[s.OutputID] {
		return fmt.Errorf("interplay subgraph: output %s is not a member node", s.OutputID)
	}

	inbound := 0
	for _, e := range g.Edges() {
		if e.TargetID != s.OutputID || !member[e.SourceID] {
			continue
		}
		inbound++
		if !accepted[e.EdgeType] {
			return fmt.Errorf("interplay subgraph: rule %s cannot consume edge type %q from %s", s.Rule, e.EdgeType, e.SourceID)
		}
	}
	if inbound == 0 {
		return fmt.Errorf("interplay subgraph: output %s has no inputs from member nodes", s.OutputID)
	}
	return nil
}

// Score grades how well-formed the subgraph is for the @C layer: 1.0 for a
// valid subgraph, scaled down by the fraction of member nodes that do not
// reach the output.
func (s InterplaySubgraph) Score(g *Graph) (float64, error) {
	if err := s.Validate(g); err != nil {
		return 0, err
	}
	member := make(map[string]bool, len(s.NodeIDs))
	for _, id := range s.NodeIDs {
		member[id] = true
	}

	// Reverse reachability from the output within the member set.
	pred := make(map[string][]string)
	for _, e := range g.Edges() {
		if member[e.SourceID] && member[e.TargetID] {
			pred[e.TargetID] = append(pred[e.TargetID], e.SourceID)
		}
	}
	reached := map[string]bool{s.OutputID: true}
	frontier := []string{s.OutputID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		srcs := append([]string(nil), pred[id]...)
		sort.Strings(srcs)
		for _, src := range srcs {
			if !reached[src] {
				reached[src] = true
				frontier = append(frontier, src)
			}
		}
	}
	return float64(len(reached)) / float64(len(member)), nil
}

// #endregion interplay
