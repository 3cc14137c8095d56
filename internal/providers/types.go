package providers

import (
	"github.com/danielpatrickdp/docscore/calibration/internal/chain"
	"github.com/danielpatrickdp/docscore/calibration/internal/graph"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// #region method
// Method identifies one computational unit being calibrated.
type Method struct {
	MethodID    string           `json:"method_id"`
	Role        layer.MethodRole `json:"role"`
	SignatureID string           `json:"signature_id"`
}

// #endregion method

// #region evidence
// Evidence carries the per-method sub-component scores the pure layers
// average over, plus references into the evidence store for the trail.
type Evidence struct {
	StructuralValidity    float64  `json:"structural_validity"`
	LogicalConsistency    float64  `json:"logical_consistency"`
	AssumptionAppropriate float64  `json:"assumption_appropriateness"`
	GovernanceCompliance  float64  `json:"governance_compliance"`
	AuditCoverage         float64  `json:"audit_coverage"`
	Refs                  []string `json:"refs,omitempty"`
}

// Store is the read boundary to the pipeline's evidence collaborator.
type Store interface {
	Evidence(methodID string) (Evidence, bool)
}

// MemoryStore is an in-memory evidence store for tests and replay fixtures.
type MemoryStore map[string]Evidence

// Evidence returns the stored evidence for methodID.
func (s MemoryStore) Evidence(methodID string) (Evidence, bool) {
	ev, ok := s[methodID]
	return ev, ok
}

// #endregion evidence

// #region inputs
// Inputs bundles the per-evaluation material the non-pure layers need: the
// offered wiring inputs for @chain and the interplay subgraph for @C.
type Inputs struct {
	Offered   []chain.OfferedInput
	Graph     *graph.Graph
	Interplay *graph.InterplaySubgraph
}

// TrailEntry records where one layer score came from.
type TrailEntry struct {
	Layer  layer.Symbol `json:"layer"`
	Source string       `json:"source"`
	Refs   []string     `json:"refs,omitempty"`
	Note   string       `json:"note,omitempty"`
}

// #endregion inputs
