package providers

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/docscore/calibration/internal/chain"
	"github.com/danielpatrickdp/docscore/calibration/internal/compat"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// #region set
// Set wires the eight layer scorers to their read-only collaborators: the
// compatibility mappings, the evidence store, and the chain gate. A Set is
// built once per epoch and safe for concurrent use.
type Set struct {
	mappings map[string]*compat.Mapping
	evidence Store
	gate     *chain.Gate
}

// NewSet builds a provider set. Mappings are keyed by method id.
func NewSet(mappings map[string]*compat.Mapping, evidence Store, gate *chain.Gate) *Set {
	return &Set{mappings: mappings, evidence: evidence, gate: gate}
}

// #endregion set

// #region pure-layers
// BaseScore averages the three declared @b sub-components.
func BaseScore(ev Evidence) float64 {
	return (ev.StructuralValidity + ev.LogicalConsistency + ev.AssumptionAppropriate) / 3
}

// UnitScore is the context's unit quality, already validated into [0,1].
func UnitScore(ctx layer.ExecutionContext) float64 {
	return ctx.UnitQuality
}

// MetaScore averages the governance sub-components.
func MetaScore(ev Evidence) float64 {
	return (ev.GovernanceCompliance + ev.AuditCoverage) / 2
}

// #endregion pure-layers

// #region score-all
// ScoreAll produces a score for every layer the method's role requires, plus
// the evidence trail. Requesting a role with an unknown mapping or evidence
// entry is a configuration error; so is an invalid role.
func (s *Set) ScoreAll(m Method, ctx layer.ExecutionContext, in Inputs) (layer.Scores, []TrailEntry, error) {
	if !m.Role.Valid() {
		return nil, nil, fmt.Errorf("providers: unknown role %q for method %s", m.Role, m.MethodID)
	}

	scores := make(layer.Scores)
	var trail []TrailEntry

	for _, sym := range m.Role.RequiredLayers() {
		score, entry, err := s.scoreLayer(sym, m, ctx, in)
		if err != nil {
			return nil, nil, err
		}
		scores[sym] = score
		trail = append(trail, entry)
	}
	sort.Slice(trail, func(i, j int) bool { return trail[i].Layer < trail[j].Layer })
	return scores, trail, nil
}

// ScoreLayer scores a single layer, enforcing the role requirement: scoring a
// layer the role does not declare is a configuration error, never silent.
func (s *Set) ScoreLayer(sym layer.Symbol, m Method, ctx layer.ExecutionContext, in Inputs) (float64, error) {
	if !m.Role.Requires(sym) {
		return 0, fmt.Errorf("providers: role %s does not require layer %s (method %s)", m.Role, sym, m.MethodID)
	}
	score, _, err := s.scoreLayer(sym, m, ctx, in)
	return score, err
}

func (s *Set) scoreLayer(sym layer.Symbol, m Method, ctx layer.ExecutionContext, in Inputs) (float64, TrailEntry, error) {
	switch sym {
	case layer.Base:
		ev, ok := s.evidence.Evidence(m.MethodID)
		if !ok {
			return 0, TrailEntry{}, fmt.Errorf("providers: no evidence for method %s", m.MethodID)
		}
		return BaseScore(ev), TrailEntry{Layer: sym, Source: "evidence_store", Refs: ev.Refs, Note: "mean of structural, logical, assumption sub-scores"}, nil

	case layer.Chain:
		decision, err := s.gate.Evaluate(m.SignatureID, in.Offered)
		if err != nil {
			return 0, TrailEntry{}, err
		}
		note := fmt.Sprintf("gate tier %.1f, %d findings, %d warnings", decision.Score, len(decision.Findings), len(decision.Warnings))
		return decision.Score, TrailEntry{Layer: sym, Source: "signature_registry", Note: note}, nil

	case layer.Unit:
		return UnitScore(ctx), TrailEntry{Layer: sym, Source: "execution_context", Note: "unit_quality"}, nil

	case layer.Question:
		mapping, err := s.mapping(m.MethodID)
		if err != nil {
			return 0, TrailEntry{}, err
		}
		return mapping.QuestionScore(ctx.QuestionID), TrailEntry{Layer: sym, Source: "compatibility_mapping", Note: "question " + ctx.QuestionID}, nil

	case layer.Dimension:
		mapping, err := s.mapping(m.MethodID)
		if err != nil {
			return 0, TrailEntry{}, err
		}
		return mapping.DimensionScore(ctx.DimensionID), TrailEntry{Layer: sym, Source: "compatibility_mapping", Note: "dimension " + ctx.DimensionID}, nil

	case layer.Policy:
		mapping, err := s.mapping(m.MethodID)
		if err != nil {
			return 0, TrailEntry{}, err
		}
		return mapping.PolicyScore(ctx.PolicyID), TrailEntry{Layer: sym, Source: "compatibility_mapping", Note: "policy " + ctx.PolicyID}, nil

	case layer.Interplay:
		if in.Graph == nil || in.Interplay == nil {
			return 0, TrailEntry{}, fmt.Errorf("providers: layer %s requires a graph and interplay subgraph (method %s)", sym, m.MethodID)
		}
		score, err := in.Interplay.Score(in.Graph)
		if err != nil {
			return 0, TrailEntry{}, err
		}
		return score, TrailEntry{Layer: sym, Source: "computation_graph", Note: "interplay subgraph reachability"}, nil

	case layer.Meta:
		ev, ok := s.evidence.Evidence(m.MethodID)
		if !ok {
			return 0, TrailEntry{}, fmt.Errorf("providers: no evidence for method %s", m.MethodID)
		}
		return MetaScore(ev), TrailEntry{Layer: sym, Source: "evidence_store", Refs: ev.Refs, Note: "mean of governance sub-scores"}, nil
	}
	return 0, TrailEntry{}, fmt.Errorf("providers: unknown layer %q", sym)
}

func (s *Set) mapping(methodID string) (*compat.Mapping, error) {
	m, ok := s.mappings[methodID]
	if !ok {
		return nil, fmt.Errorf("providers: no compatibility mapping for method %s", methodID)
	}
	return m, nil
}

// #endregion score-all
