package cert

import (
	"time"

	"github.com/danielpatrickdp/docscore/calibration/internal/fusion"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
	"github.com/danielpatrickdp/docscore/calibration/internal/providers"
)

// ValidatorVersion names the certificate schema and check set in force.
const ValidatorVersion = "calib-validator/1.2"

// #region formula
// FusionFormula is the self-describing record of how the calibrated score was
// computed: the symbolic form, the fully expanded numeric form, and the
// per-term trace.
type FusionFormula struct {
	Symbolic         string        `json:"symbolic"`
	Expanded         string        `json:"expanded"`
	ComputationTrace []fusion.Step `json:"computation_trace"`
}

// #endregion formula

// #region provenance
// ProvenanceEntry names where one parameter or score in the certificate came
// from.
type ProvenanceEntry struct {
	Parameter string `json:"parameter"`
	Source    string `json:"source"`
	Detail    string `json:"detail,omitempty"`
}

// Check is one generation-time validation result embedded in the certificate.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// #endregion provenance

// #region certificate
// Certificate is the terminal, immutable record of one calibration
// evaluation. It is self-describing: the embedded layer metadata, formula
// trace, and provenance let an auditor re-check every invariant without the
// issuing configuration. Any field change invalidates the signature.
type Certificate struct {
	InstanceID          string                   `json:"instance_id"`
	MethodID            string                   `json:"method_id"`
	NodeID              string                   `json:"node_id"`
	Context             layer.ExecutionContext   `json:"context"`
	Role                layer.MethodRole         `json:"role"`
	IntrinsicScore      float64                  `json:"intrinsic_score"`
	LayerScores         map[string]float64       `json:"layer_scores"`
	CalibratedScore     float64                  `json:"calibrated_score"`
	FusionFormula       FusionFormula            `json:"fusion_formula"`
	LinearWeights       map[string]float64       `json:"linear_weights"`
	InteractionWeights  []fusion.Interaction     `json:"interaction_weights,omitempty"`
	ParameterProvenance []ProvenanceEntry        `json:"parameter_provenance"`
	EvidenceTrail       []providers.TrailEntry   `json:"evidence_trail"`
	ConfigHash          string                   `json:"config_hash"`
	GraphHash           string                   `json:"graph_hash,omitempty"`
	ValidationChecks    []Check                  `json:"validation_checks"`
	SensitivityAnalysis map[string]float64       `json:"sensitivity_analysis"`
	LayerMetadata       map[string]layer.Metadata `json:"layer_metadata"`
	Timestamp           time.Time                `json:"timestamp"`
	ValidatorVersion    string                   `json:"validator_version"`
	Signature           string                   `json:"signature"` // hex digest
}

// #endregion certificate
