package audit

import (
	"math"
	"sort"

	"github.com/danielpatrickdp/docscore/calibration/internal/cert"
)

// #region diff-types
// LayerDelta is one layer's score movement between two certificates.
type LayerDelta struct {
	Layer string  `json:"layer"`
	A     float64 `json:"a"`
	B     float64 `json:"b"`
	Delta float64 `json:"delta"` // b - a
}

// Diff reports how two certificates differ. LayerDeltas is ordered by
// magnitude, largest first, so the dominant mover leads.
type Diff struct {
	ScoreDelta      float64      `json:"score_delta"` // b - a
	LayerDeltas     []LayerDelta `json:"layer_deltas,omitempty"`
	SameConfig      bool         `json:"same_config"`
	SameGraph       bool         `json:"same_graph"`
	SameInstance    bool         `json:"same_instance"`
	EpochComparable bool         `json:"epoch_comparable"` // same validator version
}

// #endregion diff-types

// #region compare
// Compare diffs two certificates: the fused score delta, per-layer deltas by
// magnitude, and hash equality for cheap config/graph comparison.
func Compare(a, b cert.Certificate) Diff {
	d := Diff{
		ScoreDelta:      b.CalibratedScore - a.CalibratedScore,
		SameConfig:      a.ConfigHash == b.ConfigHash,
		SameGraph:       a.GraphHash == b.GraphHash,
		SameInstance:    a.InstanceID == b.InstanceID,
		EpochComparable: a.ValidatorVersion == b.ValidatorVersion,
	}

	seen := make(map[string]bool, len(a.LayerScores)+len(b.LayerScores))
	for sym := range a.LayerScores {
		seen[sym] = true
	}
	for sym := range b.LayerScores {
		seen[sym] = true
	}
	for sym := range seen {
		xa := a.LayerScores[sym]
		xb := b.LayerScores[sym]
		if xa == xb {
			continue
		}
		d.LayerDeltas = append(d.LayerDeltas, LayerDelta{Layer: sym, A: xa, B: xb, Delta: xb - xa})
	}
	sort.Slice(d.LayerDeltas, func(i, j int) bool {
		mi, mj := math.Abs(d.LayerDeltas[i].Delta), math.Abs(d.LayerDeltas[j].Delta)
		if mi != mj {
			return mi > mj
		}
		return d.LayerDeltas[i].Layer < d.LayerDeltas[j].Layer
	})
	return d
}

// #endregion compare
