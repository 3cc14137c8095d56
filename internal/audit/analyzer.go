package audit

import (
	"math"
	"sort"

	"github.com/danielpatrickdp/docscore/calibration/internal/cert"
)

// #region summary
// LayerStat is one layer's contribution summary.
type LayerStat struct {
	Layer           string  `json:"layer"`
	Score           float64 `json:"score"`
	LinearWeight    float64 `json:"linear_weight"`
	EffectiveWeight float64 `json:"effective_weight"`
	Contribution    float64 `json:"contribution"` // linear term only
}

// Summary is the read-only analysis of one certificate.
type Summary struct {
	CalibratedScore float64     `json:"calibrated_score"`
	IntrinsicScore  float64     `json:"intrinsic_score"`
	MinLayer        string      `json:"min_layer"`
	MinScore        float64     `json:"min_score"`
	MaxLayer        string      `json:"max_layer"`
	MaxScore        float64     `json:"max_score"`
	MeanScore       float64     `json:"mean_score"`
	WeightMass      float64     `json:"weight_mass"` // linear + interaction
	Layers          []LayerStat `json:"layers"`
}

// #endregion summary

// #region analyze
// Analyze derives summary statistics from a certificate. It never mutates or
// re-validates; pair it with Validate for audit flows.
func Analyze(c cert.Certificate) Summary {
	s := Summary{
		CalibratedScore: c.CalibratedScore,
		IntrinsicScore:  c.IntrinsicScore,
		MinScore:        math.Inf(1),
		MaxScore:        math.Inf(-1),
	}

	syms := make([]string, 0, len(c.LayerScores))
	for sym := range c.LayerScores {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	var sum float64
	for _, sym := range syms {
		x := c.LayerScores[sym]
		w := c.LinearWeights[sym]
		s.Layers = append(s.Layers, LayerStat{
			Layer:           sym,
			Score:           x,
			LinearWeight:    w,
			EffectiveWeight: c.SensitivityAnalysis[sym],
			Contribution:    w * x,
		})
		sum += x
		if x < s.MinScore {
			s.MinScore, s.MinLayer = x, sym
		}
		if x > s.MaxScore {
			s.MaxScore, s.MaxLayer = x, sym
		}
	}
	if len(syms) > 0 {
		s.MeanScore = sum / float64(len(syms))
	} else {
		s.MinScore, s.MaxScore = 0, 0
	}

	for _, w := range c.LinearWeights {
		s.WeightMass += w
	}
	for _, it := range c.InteractionWeights {
		s.WeightMass += it.Weight
	}
	return s
}

// #endregion analyze
