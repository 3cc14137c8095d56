package governance

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// #region formula-change
var numberToken = regexp.MustCompile(`\d+(\.\d+)?`)

// DetectFormulaChanges diffs formula text per layer between two epochs and
// classifies each change. Structural changes require a new epoch identity;
// cosmetic and parametric changes are in-place patches.
func DetectFormulaChanges(old, cur *layer.MetadataRegistry) []FormulaChange {
	var changes []FormulaChange
	for _, sym := range old.Symbols() {
		oldMeta, _ := old.Get(sym)
		curMeta, ok := cur.Get(sym)
		if !ok {
			continue // removal is the evolution validator's concern
		}
		class := classifyFormula(oldMeta.Formula, curMeta.Formula)
		if class == ChangeNone {
			continue
		}
		changes = append(changes, FormulaChange{
			Layer:         sym,
			Class:         class,
			Old:           oldMeta.Formula,
			New:           curMeta.Formula,
			NeedsNewEpoch: class == ChangeStructural,
		})
	}
	return changes
}

// classifyFormula grades two formula texts: identical, whitespace-only,
// numeric-constant-only, or structural.
func classifyFormula(old, cur string) ChangeClass {
	if old == cur {
		return ChangeNone
	}
	if collapseSpace(old) == collapseSpace(cur) {
		return ChangeCosmetic
	}
	if numberToken.ReplaceAllString(collapseSpace(old), "#") ==
		numberToken.ReplaceAllString(collapseSpace(cur), "#") {
		return ChangeParametric
	}
	return ChangeStructural
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// #endregion formula-change

// #region weight-diff
// AnalyzeWeightDiffs flags per-component weight movement between two epochs
// against the configured warning and critical thresholds.
func AnalyzeWeightDiffs(old, cur *layer.MetadataRegistry, t Thresholds) []WeightDiff {
	var diffs []WeightDiff
	for _, sym := range old.Symbols() {
		oldMeta, _ := old.Get(sym)
		curMeta, ok := cur.Get(sym)
		if !ok {
			continue
		}
		components := make(map[string]bool)
		for c := range oldMeta.ComponentWeights {
			components[c] = true
		}
		for c := range curMeta.ComponentWeights {
			components[c] = true
		}
		names := make([]string, 0, len(components))
		for c := range components {
			names = append(names, c)
		}
		sort.Strings(names)
		for _, c := range names {
			ow := oldMeta.ComponentWeights[c]
			nw := curMeta.ComponentWeights[c]
			delta := nw - ow
			if delta == 0 {
				continue
			}
			diffs = append(diffs, WeightDiff{
				Layer:     sym,
				Component: c,
				Old:       ow,
				New:       nw,
				Delta:     delta,
				Severity:  gradeDelta(delta, t),
			})
		}
	}
	return diffs
}

func gradeDelta(delta float64, t Thresholds) Severity {
	switch abs := math.Abs(delta); {
	case abs >= t.WeightCritical:
		return SeverityCritical
	case abs >= t.WeightWarning:
		return SeverityWarning
	}
	return SeverityOK
}

// #endregion weight-diff

// #region migration-impact
// AssessMigrationImpact estimates per-layer score drift and grades the
// overall transition risk. Drift per layer is the summed absolute component
// weight movement; a structural formula change adds a fixed penalty since the
// shape of the score itself changes.
func AssessMigrationImpact(old, cur *layer.MetadataRegistry, t Thresholds) MigrationImpact {
	impact := MigrationImpact{FromEpoch: old.EpochID, ToEpoch: cur.EpochID}

	changes := make(map[layer.Symbol]FormulaChange)
	for _, ch := range DetectFormulaChanges(old, cur) {
		changes[ch.Layer] = ch
	}
	diffsByLayer := make(map[layer.Symbol][]WeightDiff)
	for _, d := range AnalyzeWeightDiffs(old, cur, t) {
		diffsByLayer[d.Layer] = append(diffsByLayer[d.Layer], d)
	}

	const structuralPenalty = 0.5

	var worst float64
	for _, sym := range old.Symbols() {
		li := LayerImpact{Layer: sym}
		for _, d := range diffsByLayer[sym] {
			li.DriftEstimate += math.Abs(d.Delta)
			if d.Severity == SeverityCritical {
				li.Notes = append(li.Notes, fmt.Sprintf("component %s moved %.4f", d.Component, d.Delta))
			}
		}
		if ch, ok := changes[sym]; ok && ch.Class == ChangeStructural {
			li.DriftEstimate += structuralPenalty
			li.Notes = append(li.Notes, "structural formula change")
			impact.BreakingChanges = append(impact.BreakingChanges,
				fmt.Sprintf("layer %s: structural formula change", sym))
		}
		if _, ok := cur.Get(sym); !ok {
			li.DriftEstimate = 1
			li.Notes = append(li.Notes, "layer removed")
			impact.BreakingChanges = append(impact.BreakingChanges,
				fmt.Sprintf("layer %s removed", sym))
		}
		if li.DriftEstimate > 0 {
			impact.PerLayer = append(impact.PerLayer, li)
		}
		if li.DriftEstimate > worst {
			worst = li.DriftEstimate
		}
	}

	switch {
	case len(impact.BreakingChanges) > 0 || worst >= 1:
		impact.Risk = RiskCritical
	case worst >= t.WeightCritical:
		impact.Risk = RiskHigh
	case worst >= t.WeightWarning:
		impact.Risk = RiskMedium
	default:
		impact.Risk = RiskLow
	}
	return impact
}

// #endregion migration-impact

// #region evolution-validator
// Proposal describes one intended epoch transition: the two registries and the
// documented justifications for any critical weight movement, keyed by layer.
type Proposal struct {
	Old            *layer.MetadataRegistry
	New            *layer.MetadataRegistry
	Justifications map[layer.Symbol]string
}

// ValidateEvolution enforces the governance rules end-to-end and returns every
// breach. An empty slice means the transition is admissible.
func ValidateEvolution(p Proposal, t Thresholds) []Violation {
	var violations []Violation
	sameEpoch := p.Old.EpochID == p.New.EpochID

	// Rule: the layer set is closed. Removing a layer is never an in-place
	// change, and adding one demands a new epoch identity.
	for _, sym := range p.Old.Symbols() {
		if _, ok := p.New.Get(sym); !ok {
			violations = append(violations, Violation{
				Rule:   "layer_removed",
				Layer:  sym,
				Detail: fmt.Sprintf("layer %s present in %s but missing in %s", sym, p.Old.EpochID, p.New.EpochID),
			})
		}
	}
	for _, sym := range p.New.Symbols() {
		if _, ok := p.Old.Get(sym); !ok && sameEpoch {
			violations = append(violations, Violation{
				Rule:   "layer_added_in_place",
				Layer:  sym,
				Detail: fmt.Sprintf("layer %s added without a new epoch id", sym),
			})
		}
	}

	// Rule: structural formula changes require a new epoch identity.
	for _, ch := range DetectFormulaChanges(p.Old, p.New) {
		if ch.NeedsNewEpoch && sameEpoch {
			violations = append(violations, Violation{
				Rule:   "structural_change_in_place",
				Layer:  ch.Layer,
				Detail: fmt.Sprintf("structural formula change on %s without a new epoch id", ch.Layer),
			})
		}
	}

	// Rule: weight movement at or beyond the critical threshold requires a
	// documented justification.
	for _, d := range AnalyzeWeightDiffs(p.Old, p.New, t) {
		if d.Severity != SeverityCritical {
			continue
		}
		if strings.TrimSpace(p.Justifications[d.Layer]) == "" {
			violations = append(violations, Violation{
				Rule:   "critical_weight_unjustified",
				Layer:  d.Layer,
				Detail: fmt.Sprintf("component %s moved %.4f (threshold %.4f) with no documented justification", d.Component, d.Delta, t.WeightCritical),
			})
		}
	}

	return violations
}

// #endregion evolution-validator
