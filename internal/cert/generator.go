package cert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/docscore/calibration/internal/config"
	"github.com/danielpatrickdp/docscore/calibration/internal/fusion"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
	"github.com/danielpatrickdp/docscore/calibration/internal/providers"
)

// chainTiers is the discrete value set the @chain layer may take.
var chainTiers = map[float64]bool{0.0: true, 0.3: true, 0.6: true, 0.8: true, 1.0: true}

// #region generator
// Generator issues certificates against one immutable epoch. It is safe for
// concurrent use; every call is a pure function of the request and the epoch.
type Generator struct {
	epoch *config.Epoch
	set   *providers.Set
}

// NewGenerator binds a generator to an epoch and its provider set.
func NewGenerator(epoch *config.Epoch, set *providers.Set) *Generator {
	return &Generator{epoch: epoch, set: set}
}

// Request is one calibration evaluation: the method instance, its context,
// and the wiring material. A zero Timestamp uses the epoch's issue time so
// identical requests yield byte-identical certificates.
type Request struct {
	Method    providers.Method
	NodeID    string
	Context   layer.ExecutionContext
	Inputs    providers.Inputs
	Timestamp time.Time
}

// #endregion generator

// #region generate
// Generate runs the full pipeline: graph validation, layer scoring, fusion,
// validation checks, provenance, and signing. It returns a complete signed
// certificate or an error; nothing partial ever escapes.
func (g *Generator) Generate(req Request) (Certificate, error) {
	if req.NodeID == "" {
		return Certificate{}, fmt.Errorf("certificate generate: empty node id")
	}

	graphHash := ""
	if req.Inputs.Graph != nil {
		if err := req.Inputs.Graph.Validate(); err != nil {
			return Certificate{}, fmt.Errorf("certificate generate: %w", err)
		}
		graphHash = req.Inputs.Graph.Hash()
	}

	scores, trail, err := g.set.ScoreAll(req.Method, req.Context, req.Inputs)
	if err != nil {
		return Certificate{}, fmt.Errorf("certificate generate: %w", err)
	}

	fused, err := fusion.Fuse(g.epoch.Fusion, scores)
	if err != nil {
		return Certificate{}, fmt.Errorf("certificate generate: %w", err)
	}

	checks, err := runChecks(req.Method.Role, scores, fused.Score, g.epoch.Fusion)
	if err != nil {
		return Certificate{}, fmt.Errorf("certificate generate: %w", err)
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = g.epoch.IssuedAt
	}
	ts = ts.UTC()

	c := Certificate{
		InstanceID:          instanceID(req, g.epoch.Hash()),
		MethodID:            req.Method.MethodID,
		NodeID:              req.NodeID,
		Context:             req.Context,
		Role:                req.Method.Role,
		IntrinsicScore:      scores[layer.Base],
		LayerScores:         scoreMap(scores),
		CalibratedScore:     fused.Score,
		FusionFormula:       FusionFormula{Symbolic: fused.Symbolic, Expanded: fused.Expanded, ComputationTrace: fused.Steps},
		LinearWeights:       weightMap(g.epoch.Fusion.Linear),
		InteractionWeights:  append([]fusion.Interaction(nil), g.epoch.Fusion.Interactions...),
		ParameterProvenance: provenance(g.epoch.EpochID, g.epoch.Fusion, trail),
		EvidenceTrail:       trail,
		ConfigHash:          g.epoch.Hash(),
		GraphHash:           graphHash,
		ValidationChecks:    checks,
		SensitivityAnalysis: sensitivityMap(g.epoch.Fusion, scores),
		LayerMetadata:       map[string]layer.Metadata{},
		Timestamp:           ts,
		ValidatorVersion:    ValidatorVersion,
	}

	// The certificate is self-describing: every active layer carries its
	// epoch metadata.
	for sym := range scores {
		meta, ok := g.epoch.Registry.Get(sym)
		if !ok {
			return Certificate{}, fmt.Errorf("certificate generate: no metadata for active layer %s", sym)
		}
		c.LayerMetadata[string(sym)] = meta
	}

	sig, err := Sign(c, g.epoch.SigningKey)
	if err != nil {
		return Certificate{}, err
	}
	c.Signature = sig
	return c, nil
}

// #endregion generate

// #region checks
// runChecks confirms the hard invariants at generation time. A failed check
// here is an invariant violation and aborts generation; the passing results
// are embedded so the certificate records what was verified.
func runChecks(role layer.MethodRole, scores layer.Scores, calibrated float64, fc fusion.Config) ([]Check, error) {
	var checks []Check
	add := func(name string, passed bool, detail string) {
		checks = append(checks, Check{Name: name, Passed: passed, Detail: detail})
	}

	add("layer_scores_bounded", scores.Bounded(), "all layer scores in [0,1]")
	add("calibrated_bounded", calibrated >= 0 && calibrated <= 1, fmt.Sprintf("calibrated score %.6f", calibrated))

	nonneg := true
	for _, w := range fc.Linear {
		if w < 0 {
			nonneg = false
		}
	}
	for _, it := range fc.Interactions {
		if it.Weight < 0 {
			nonneg = false
		}
	}
	add("weights_nonnegative", nonneg, "linear and interaction weights")

	complete := true
	for _, sym := range role.RequiredLayers() {
		if _, ok := scores[sym]; !ok {
			complete = false
		}
	}
	add("layer_completeness", complete, fmt.Sprintf("role %s", role))

	discrete := true
	if x, ok := scores[layer.Chain]; ok {
		discrete = chainTiers[x]
	}
	add("chain_discreteness", discrete, "@chain in {0.0,0.3,0.6,0.8,1.0}")

	for _, ch := range checks {
		if !ch.Passed {
			return nil, fmt.Errorf("validation check %s failed: %s", ch.Name, ch.Detail)
		}
	}
	return checks, nil
}

// #endregion checks

// #region helpers
// instanceID derives a deterministic v5 uuid from the evaluation identity, so
// regenerating under the same configuration reproduces the same id.
func instanceID(req Request, configHash string) string {
	seed := req.Method.MethodID + "|" + req.NodeID + "|" + req.Context.Key() + "|" + configHash
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func scoreMap(scores layer.Scores) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for sym, x := range scores {
		out[string(sym)] = x
	}
	return out
}

func weightMap(linear map[layer.Symbol]float64) map[string]float64 {
	out := make(map[string]float64, len(linear))
	for sym, w := range linear {
		out[string(sym)] = w
	}
	return out
}

func sensitivityMap(fc fusion.Config, scores layer.Scores) map[string]float64 {
	out := make(map[string]float64)
	for sym, w := range fusion.Sensitivity(fc, scores) {
		out[string(sym)] = w
	}
	return out
}

// provenance records a source for every weight and every layer score.
func provenance(epochID string, fc fusion.Config, trail []providers.TrailEntry) []ProvenanceEntry {
	var entries []ProvenanceEntry
	for _, sym := range layer.All {
		if w, ok := fc.Linear[sym]; ok {
			entries = append(entries, ProvenanceEntry{
				Parameter: fmt.Sprintf("linear_weight[%s]", sym),
				Source:    "epoch_config:" + epochID,
				Detail:    fmt.Sprintf("%.4f", w),
			})
		}
	}
	for _, it := range fc.Interactions {
		entries = append(entries, ProvenanceEntry{
			Parameter: fmt.Sprintf("interaction_weight[%s,%s]", it.A, it.B),
			Source:    "epoch_config:" + epochID,
			Detail:    fmt.Sprintf("%.4f", it.Weight),
		})
	}
	for _, t := range trail {
		entries = append(entries, ProvenanceEntry{
			Parameter: fmt.Sprintf("layer_score[%s]", t.Layer),
			Source:    t.Source,
			Detail:    t.Note,
		})
	}
	return entries
}

// #endregion helpers
