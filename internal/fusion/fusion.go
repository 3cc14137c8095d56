package fusion

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// ErrUnbounded marks a weight configuration that could push the fused score
// outside [0,1] for some valid input. Such configs are rejected at load time,
// never clamped at evaluation time.
var ErrUnbounded = errors.New("fusion weights can exceed [0,1]")

// #region config
// Interaction is one pairwise term w*min(xA, xB), conservative "both must be
// strong" semantics.
type Interaction struct {
	A      layer.Symbol `json:"a"`
	B      layer.Symbol `json:"b"`
	Weight float64      `json:"weight"`
}

// Config fixes the linear and interaction weights for one epoch.
type Config struct {
	Linear       map[layer.Symbol]float64 `json:"linear"`
	Interactions []Interaction            `json:"interactions,omitempty"`
}

// Validate enforces the boundedness contract: every weight non-negative,
// every symbol known, pairs distinct, and the total weight mass in (0,1].
// With all layer scores in [0,1] and min(x,y) <= 1, the fused score is then
// bounded by the total mass.
func (c Config) Validate() error {
	var total float64
	for sym, w := range c.Linear {
		if !sym.Valid() {
			return fmt.Errorf("fusion config: unknown layer %q", sym)
		}
		if w < 0 {
			return fmt.Errorf("fusion config: negative weight %s=%.4f", sym, w)
		}
		total += w
	}
	seen := map[string]bool{}
	for _, it := range c.Interactions {
		if !it.A.Valid() || !it.B.Valid() {
			return fmt.Errorf("fusion config: unknown layer in interaction (%s,%s)", it.A, it.B)
		}
		if it.A == it.B {
			return fmt.Errorf("fusion config: interaction (%s,%s) pairs a layer with itself", it.A, it.B)
		}
		key := pairKey(it.A, it.B)
		if seen[key] {
			return fmt.Errorf("fusion config: duplicate interaction %s", key)
		}
		seen[key] = true
		if it.Weight < 0 {
			return fmt.Errorf("fusion config: negative interaction weight %s=%.4f", key, it.Weight)
		}
		total += it.Weight
	}
	if total <= 0 {
		return fmt.Errorf("fusion config: total weight mass %.6f is not positive", total)
	}
	if total > 1+1e-9 {
		return fmt.Errorf("fusion config: total weight mass %.6f: %w", total, ErrUnbounded)
	}
	return nil
}

func pairKey(a, b layer.Symbol) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "," + string(b)
}

// #endregion config

// #region result
// Step is one recorded term of the fusion computation.
type Step struct {
	Term     string  `json:"term"`
	Operands string  `json:"operands"`
	Weight   float64 `json:"weight"`
	Value    float64 `json:"value"`
}

// Result is the fused score with its full trace and formula renderings.
type Result struct {
	Score    float64 `json:"score"`
	Symbolic string  `json:"symbolic"`
	Expanded string  `json:"expanded"`
	Steps    []Step  `json:"steps"`
}

// #endregion result

// #region fuse
// Fuse computes Cal = sum(w_l * x_l) + sum(w_ab * min(x_a, x_b)). Every
// weighted layer must have a score; a missing score is a configuration error
// for the evaluation, not a zero. Term order is canonical, so the trace and
// the rendered formulas are deterministic.
func Fuse(c Config, scores layer.Scores) (Result, error) {
	if !scores.Bounded() {
		return Result{}, fmt.Errorf("fusion: layer scores outside [0,1]")
	}

	var res Result
	var symbolic, expanded []string

	for _, sym := range layer.All {
		w, ok := c.Linear[sym]
		if !ok || w == 0 {
			continue
		}
		x, ok := scores[sym]
		if !ok {
			return Result{}, fmt.Errorf("fusion: no score for weighted layer %s", sym)
		}
		v := w * x
		res.Score += v
		res.Steps = append(res.Steps, Step{
			Term:     string(sym),
			Operands: fmt.Sprintf("%.4f*%.4f", w, x),
			Weight:   w,
			Value:    v,
		})
		symbolic = append(symbolic, fmt.Sprintf("w(%s)*%s", sym, sym))
		expanded = append(expanded, fmt.Sprintf("%.4f*%.4f", w, x))
	}

	for _, it := range c.Interactions {
		if it.Weight == 0 {
			continue
		}
		xa, okA := scores[it.A]
		xb, okB := scores[it.B]
		if !okA || !okB {
			return Result{}, fmt.Errorf("fusion: interaction (%s,%s) missing a layer score", it.A, it.B)
		}
		m := math.Min(xa, xb)
		v := it.Weight * m
		res.Score += v
		res.Steps = append(res.Steps, Step{
			Term:     fmt.Sprintf("min(%s,%s)", it.A, it.B),
			Operands: fmt.Sprintf("%.4f*min(%.4f,%.4f)", it.Weight, xa, xb),
			Weight:   it.Weight,
			Value:    v,
		})
		symbolic = append(symbolic, fmt.Sprintf("w(%s,%s)*min(%s,%s)", it.A, it.B, it.A, it.B))
		expanded = append(expanded, fmt.Sprintf("%.4f*min(%.4f,%.4f)", it.Weight, xa, xb))
	}

	res.Symbolic = "Cal = " + strings.Join(symbolic, " + ")
	res.Expanded = fmt.Sprintf("Cal = %s = %.6f", strings.Join(expanded, " + "), res.Score)
	return res, nil
}

// #endregion fuse

// #region sensitivity
// Sensitivity returns the effective weight of each layer at the given scores:
// the linear weight plus every interaction weight where the layer is the
// binding (minimum) side, both sides on a tie.
func Sensitivity(c Config, scores layer.Scores) map[layer.Symbol]float64 {
	eff := make(map[layer.Symbol]float64)
	for sym, w := range c.Linear {
		eff[sym] += w
	}
	for _, it := range c.Interactions {
		xa, xb := scores[it.A], scores[it.B]
		switch {
		case xa < xb:
			eff[it.A] += it.Weight
		case xb < xa:
			eff[it.B] += it.Weight
		default:
			eff[it.A] += it.Weight
			eff[it.B] += it.Weight
		}
	}
	return eff
}

// #endregion sensitivity
