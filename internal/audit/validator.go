package audit

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/docscore/calibration/internal/cert"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// recomputeTolerance absorbs float formatting noise when re-deriving the
// calibrated score from embedded weights and scores.
const recomputeTolerance = 1e-9

// #region findings
// Finding is one validation observation. Errors are hard invariant
// violations; warnings are advisory. The split lets callers choose strict or
// advisory handling, and a violation is never reported as success.
type Finding struct {
	Check  string `json:"check"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail"`
}

// Report is the structured outcome of validating one certificate.
type Report struct {
	Errors   []Finding `json:"errors,omitempty"`
	Warnings []Finding `json:"warnings,omitempty"`
}

// Valid reports whether the certificate passed every hard check.
func (r Report) Valid() bool { return len(r.Errors) == 0 }

func (r *Report) erro(check, field, format string, args ...any) {
	r.Errors = append(r.Errors, Finding{Check: check, Field: field, Detail: fmt.Sprintf(format, args...)})
}

func (r *Report) warn(check, field, format string, args ...any) {
	r.Warnings = append(r.Warnings, Finding{Check: check, Field: field, Detail: fmt.Sprintf(format, args...)})
}

// #endregion findings

// #region validate
// Validate re-checks every invariant from the certificate contents alone; no
// issuing configuration is consulted. Signature checking needs the key and
// lives in CheckTamper.
func Validate(c cert.Certificate) Report {
	var r Report

	// Identity fields.
	if c.InstanceID == "" {
		r.erro("identity", "instance_id", "empty instance id")
	}
	if c.MethodID == "" {
		r.erro("identity", "method_id", "empty method id")
	}

	// Boundedness of every score field.
	if c.IntrinsicScore < 0 || c.IntrinsicScore > 1 {
		r.erro("boundedness", "intrinsic_score", "%.6f outside [0,1]", c.IntrinsicScore)
	}
	if c.CalibratedScore < 0 || c.CalibratedScore > 1 {
		r.erro("boundedness", "calibrated_score", "%.6f outside [0,1]", c.CalibratedScore)
	}
	for sym, x := range c.LayerScores {
		if x < 0 || x > 1 {
			r.erro("boundedness", "layer_scores."+sym, "%.6f outside [0,1]", x)
		}
		if !layer.Symbol(sym).Valid() {
			r.erro("layer_set", "layer_scores."+sym, "unknown layer symbol")
		}
	}

	// Non-negative weights.
	for sym, w := range c.LinearWeights {
		if w < 0 {
			r.erro("weights", "linear_weights."+sym, "negative weight %.4f", w)
		}
	}
	for _, it := range c.InteractionWeights {
		if it.Weight < 0 {
			r.erro("weights", fmt.Sprintf("interaction_weights[%s,%s]", it.A, it.B), "negative weight %.4f", it.Weight)
		}
	}

	// Weight/formula consistency: the embedded weights and scores must
	// reproduce the recorded calibrated score.
	if recomputed, ok := recompute(c); ok {
		if math.Abs(recomputed-c.CalibratedScore) > recomputeTolerance {
			r.erro("formula_consistency", "calibrated_score",
				"recomputed %.9f differs from recorded %.9f", recomputed, c.CalibratedScore)
		}
	} else {
		r.erro("formula_consistency", "layer_scores", "weighted layer missing from layer_scores")
	}

	// Layer completeness against the method's role.
	if !c.Role.Valid() {
		r.erro("role", "role", "unknown role %q", c.Role)
	} else {
		for _, sym := range c.Role.RequiredLayers() {
			if _, ok := c.LayerScores[string(sym)]; !ok {
				r.erro("layer_completeness", "layer_scores."+string(sym),
					"role %s requires layer %s", c.Role, sym)
			}
		}
	}

	// The @chain layer never interpolates.
	if x, ok := c.LayerScores[string(layer.Chain)]; ok {
		switch x {
		case 0.0, 0.3, 0.6, 0.8, 1.0:
		default:
			r.erro("chain_discreteness", "layer_scores.@chain", "%.6f is not a gate tier", x)
		}
	}

	// Self-description: every scored layer should carry its metadata.
	for sym := range c.LayerScores {
		if _, ok := c.LayerMetadata[sym]; !ok {
			r.warn("self_description", "layer_metadata."+sym, "scored layer has no embedded metadata")
		}
	}
	if len(c.ValidationChecks) == 0 {
		r.warn("self_description", "validation_checks", "no generation-time checks recorded")
	}
	for _, ch := range c.ValidationChecks {
		if !ch.Passed {
			r.erro("generation_checks", "validation_checks."+ch.Name, "recorded check failed: %s", ch.Detail)
		}
	}
	if c.Signature == "" {
		r.erro("signature", "signature", "certificate is unsigned")
	}

	return r
}

// recompute re-derives the calibrated score from the embedded weights.
func recompute(c cert.Certificate) (float64, bool) {
	var sum float64
	for sym, w := range c.LinearWeights {
		x, ok := c.LayerScores[sym]
		if !ok {
			return 0, false
		}
		sum += w * x
	}
	for _, it := range c.InteractionWeights {
		xa, okA := c.LayerScores[string(it.A)]
		xb, okB := c.LayerScores[string(it.B)]
		if !okA || !okB {
			return 0, false
		}
		sum += it.Weight * math.Min(xa, xb)
	}
	return sum, true
}

// #endregion validate

// #region tamper
// CheckTamper recomputes the signature over current contents and compares to
// the stored one. A mismatch is reported, never repaired.
func CheckTamper(c cert.Certificate, key []byte) (bool, error) {
	return cert.Verify(c, key)
}

// #endregion tamper
