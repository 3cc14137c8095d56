package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/docscore/calibration/internal/chain"
	"github.com/danielpatrickdp/docscore/calibration/internal/config"
	"github.com/danielpatrickdp/docscore/calibration/internal/graph"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
	"github.com/danielpatrickdp/docscore/calibration/internal/providers"
)

// #region fixture-types
// Fixture is the top-level JSON structure for a calibration replay fixture:
// one embedded epoch config, the evidence store contents, a batch of
// requests, and the expected outcomes.
type Fixture struct {
	Description string                        `json:"description"`
	Epoch       config.File                   `json:"epoch"`
	Evidence    map[string]providers.Evidence `json:"evidence,omitempty"`
	Graph       *FixtureGraph                 `json:"graph,omitempty"`
	Requests    []FixtureRequest              `json:"requests"`
	Expected    []ExpectedResult              `json:"expected_results"`
}

// FixtureGraph is the shared computation graph for the run.
type FixtureGraph struct {
	Nodes     []graph.Node             `json:"nodes"`
	Edges     []graph.Edge             `json:"edges"`
	Interplay *graph.InterplaySubgraph `json:"interplay,omitempty"`
}

// FixtureContext mirrors layer.ExecutionContext before validation.
type FixtureContext struct {
	QuestionID  string  `json:"question_id,omitempty"`
	DimensionID string  `json:"dimension_id"`
	PolicyID    string  `json:"policy_id"`
	UnitQuality float64 `json:"unit_quality"`
}

// FixtureRequest is one calibration request in the batch.
type FixtureRequest struct {
	NodeID      string               `json:"node_id"`
	MethodID    string               `json:"method_id"`
	Role        string               `json:"role"`
	SignatureID string               `json:"signature_id,omitempty"`
	Context     FixtureContext       `json:"context"`
	Offered     []chain.OfferedInput `json:"offered,omitempty"`
}

// ExpectedResult pins the expected certificate values for one request.
type ExpectedResult struct {
	NodeID          string   `json:"node_id"`
	CalibratedScore float64  `json:"calibrated_score"`
	Tolerance       float64  `json:"tolerance"`
	ChainScore      *float64 `json:"chain_score,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader
// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToMethod converts one request to a domain method identity.
func (r *FixtureRequest) ToMethod() providers.Method {
	return providers.Method{
		MethodID:    r.MethodID,
		Role:        layer.MethodRole(r.Role),
		SignatureID: r.SignatureID,
	}
}

// ToContext validates the fixture context into a domain one.
func (r *FixtureRequest) ToContext() (layer.ExecutionContext, error) {
	return layer.NewExecutionContext(r.Context.QuestionID, r.Context.DimensionID, r.Context.PolicyID, r.Context.UnitQuality)
}

// #endregion fixture-loader
