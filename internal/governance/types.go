package governance

import (
	"fmt"

	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// #region thresholds
// Thresholds configure when a weight delta between epochs is worth flagging.
type Thresholds struct {
	WeightWarning  float64 `json:"weight_warning"`
	WeightCritical float64 `json:"weight_critical"`
}

// DefaultThresholds returns the standing governance defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{WeightWarning: 0.05, WeightCritical: 0.15}
}

// Validate rejects inverted or non-positive thresholds.
func (t Thresholds) Validate() error {
	if t.WeightWarning <= 0 {
		return fmt.Errorf("governance thresholds: weight_warning %.4f must be positive", t.WeightWarning)
	}
	if t.WeightCritical <= t.WeightWarning {
		return fmt.Errorf("governance thresholds: weight_critical %.4f must exceed weight_warning %.4f", t.WeightCritical, t.WeightWarning)
	}
	return nil
}

// #endregion thresholds

// #region change-class
// ChangeClass grades a formula text change between epochs.
type ChangeClass string

const (
	ChangeNone       ChangeClass = "none"
	ChangeCosmetic   ChangeClass = "cosmetic"   // whitespace only
	ChangeParametric ChangeClass = "parametric" // numeric constants shifted
	ChangeStructural ChangeClass = "structural" // terms added, removed, or reshaped
)

// FormulaChange is one layer's classified formula diff.
type FormulaChange struct {
	Layer         layer.Symbol `json:"layer"`
	Class         ChangeClass  `json:"class"`
	Old           string       `json:"old"`
	New           string       `json:"new"`
	NeedsNewEpoch bool         `json:"needs_new_epoch"`
}

// #endregion change-class

// #region weight-diff
// Severity grades one weight delta against the thresholds.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// WeightDiff is one component weight's movement between epochs.
type WeightDiff struct {
	Layer     layer.Symbol `json:"layer"`
	Component string       `json:"component"`
	Old       float64      `json:"old"`
	New       float64      `json:"new"`
	Delta     float64      `json:"delta"`
	Severity  Severity     `json:"severity"`
}

// #endregion weight-diff

// #region impact
// RiskLevel is the overall migration risk grade.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// LayerImpact estimates per-layer score drift under the new epoch.
type LayerImpact struct {
	Layer         layer.Symbol `json:"layer"`
	DriftEstimate float64      `json:"drift_estimate"`
	Notes         []string     `json:"notes,omitempty"`
}

// MigrationImpact aggregates the assessment for one epoch transition.
type MigrationImpact struct {
	FromEpoch       string        `json:"from_epoch"`
	ToEpoch         string        `json:"to_epoch"`
	PerLayer        []LayerImpact `json:"per_layer"`
	Risk            RiskLevel     `json:"risk"`
	BreakingChanges []string      `json:"breaking_changes,omitempty"`
}

// #endregion impact

// #region violation
// Violation is one governance rule breach found by the evolution validator.
type Violation struct {
	Rule   string       `json:"rule"`
	Layer  layer.Symbol `json:"layer,omitempty"`
	Detail string       `json:"detail"`
}

// #endregion violation
