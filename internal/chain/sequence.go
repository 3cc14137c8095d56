package chain

import (
	"fmt"
)

// #region sequence-types
// Hop is one method instance in an execution sequence, wired by signature id.
// Extra carries hop-specific inputs offered in addition to whatever earlier
// hops produced.
type Hop struct {
	NodeID      string         `json:"node_id"`
	SignatureID string         `json:"signature_id"`
	Extra       []OfferedInput `json:"extra,omitempty"`
}

// HopResult pairs one hop with its gate decision.
type HopResult struct {
	NodeID      string   `json:"node_id"`
	SignatureID string   `json:"signature_id"`
	Decision    Decision `json:"decision"`
}

// SequenceResult reports the weakest-link quality of a whole sequence.
type SequenceResult struct {
	Quality     float64     `json:"quality"`      // minimum hop score
	WeakestHop  int         `json:"weakest_hop"`  // 1-based index of the weakest hop
	WeakestNode string      `json:"weakest_node"`
	Hops        []HopResult `json:"hops"`
}

// #endregion sequence-types

// #region sequence
// ValidateSequence gates every hop in order. A hop may consume the initial
// input set plus the declared outputs of strictly earlier hops; nothing is
// available by lookahead. Sequence quality is the minimum hop score.
func (g *Gate) ValidateSequence(initial []OfferedInput, hops []Hop) (SequenceResult, error) {
	if len(hops) == 0 {
		return SequenceResult{}, fmt.Errorf("chain sequence: no hops")
	}

	available := make(map[string]OfferedInput, len(initial))
	for _, in := range initial {
		available[in.Name] = in
	}

	result := SequenceResult{Quality: 1.0}
	for i, hop := range hops {
		sig, ok := g.registry.Get(hop.SignatureID)
		if !ok {
			return SequenceResult{}, fmt.Errorf("chain sequence hop %d: unknown signature %s", i+1, hop.SignatureID)
		}

		offered := make([]OfferedInput, 0, len(available)+len(hop.Extra))
		for _, in := range available {
			offered = append(offered, in)
		}
		offered = append(offered, hop.Extra...)

		decision, err := g.Evaluate(hop.SignatureID, offered)
		if err != nil {
			return SequenceResult{}, fmt.Errorf("chain sequence hop %d: %w", i+1, err)
		}
		result.Hops = append(result.Hops, HopResult{
			NodeID:      hop.NodeID,
			SignatureID: hop.SignatureID,
			Decision:    decision,
		})
		if result.WeakestHop == 0 || decision.Score < result.Quality {
			result.Quality = decision.Score
			result.WeakestHop = i + 1
			result.WeakestNode = hop.NodeID
		}

		// Outputs become available to later hops only after this hop.
		for _, out := range sig.Outputs {
			available[out.Name] = OfferedInput{Name: out.Name, Type: out.Type}
		}
		for _, in := range hop.Extra {
			available[in.Name] = in
		}
	}
	return result, nil
}

// #endregion sequence
