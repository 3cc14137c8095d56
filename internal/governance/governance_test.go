package governance

import (
	"testing"

	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

func registry(t *testing.T, epochID string, metas ...layer.Metadata) *layer.MetadataRegistry {
	t.Helper()
	r, err := layer.NewMetadataRegistry(epochID, metas)
	if err != nil {
		t.Fatalf("registry construction failed: %v", err)
	}
	return r
}

func baseMeta() layer.Metadata {
	return layer.Metadata{
		Symbol:  layer.Base,
		Name:    "base quality",
		Formula: "0.4*structural + 0.3*logical + 0.3*assumption",
		ComponentWeights: map[string]float64{
			"structural": 0.4, "logical": 0.3, "assumption": 0.3,
		},
	}
}

func TestClassifyFormula(t *testing.T) {
	cases := []struct {
		name string
		old  string
		cur  string
		want ChangeClass
	}{
		{"identical", "a + b", "a + b", ChangeNone},
		{"whitespace", "a + b", "a  +  b", ChangeCosmetic},
		{"constant shift", "0.4*a + 0.6*b", "0.5*a + 0.5*b", ChangeParametric},
		{"term added", "a + b", "a + b + c", ChangeStructural},
		{"operator change", "a + b", "a * b", ChangeStructural},
	}
	for _, tc := range cases {
		if got := classifyFormula(tc.old, tc.cur); got != tc.want {
			t.Fatalf("%s: classified %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDetectFormulaChanges(t *testing.T) {
	old := registry(t, "E1", baseMeta())
	curMeta := baseMeta()
	curMeta.Formula = "min(structural, logical, assumption)"
	cur := registry(t, "E2", curMeta)

	changes := DetectFormulaChanges(old, cur)
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	ch := changes[0]
	if ch.Layer != layer.Base || ch.Class != ChangeStructural || !ch.NeedsNewEpoch {
		t.Fatalf("unexpected change: %+v", ch)
	}
}

func TestAnalyzeWeightDiffs(t *testing.T) {
	old := registry(t, "E1", baseMeta())
	curMeta := baseMeta()
	curMeta.ComponentWeights = map[string]float64{
		"structural": 0.46, // +0.06: warning
		"logical":    0.3,  // unchanged
		"assumption": 0.10, // -0.20: critical
		"novelty":    0.14, // added: warning
	}
	cur := registry(t, "E2", curMeta)

	diffs := AnalyzeWeightDiffs(old, cur, DefaultThresholds())
	bySeverity := map[string]Severity{}
	for _, d := range diffs {
		bySeverity[d.Component] = d.Severity
	}
	if len(diffs) != 3 {
		t.Fatalf("got %d diffs, want 3: %+v", len(diffs), diffs)
	}
	if bySeverity["structural"] != SeverityWarning {
		t.Fatalf("structural graded %s, want warning", bySeverity["structural"])
	}
	if bySeverity["assumption"] != SeverityCritical {
		t.Fatalf("assumption graded %s, want critical", bySeverity["assumption"])
	}
	if bySeverity["novelty"] != SeverityWarning {
		t.Fatalf("novelty graded %s, want warning", bySeverity["novelty"])
	}
}

func TestAssessMigrationImpact(t *testing.T) {
	metaMeta := layer.Metadata{Symbol: layer.Meta, Name: "meta", Formula: "mean(governance, audit)"}
	old := registry(t, "E1", baseMeta(), metaMeta)

	curBase := baseMeta()
	curBase.Formula = "min(structural, logical)"
	cur := registry(t, "E2", curBase, metaMeta)

	impact := AssessMigrationImpact(old, cur, DefaultThresholds())
	if impact.Risk != RiskCritical {
		t.Fatalf("structural change graded %s, want critical", impact.Risk)
	}
	if len(impact.BreakingChanges) == 0 {
		t.Fatal("structural change not listed as breaking")
	}
	if len(impact.PerLayer) != 1 || impact.PerLayer[0].Layer != layer.Base {
		t.Fatalf("unexpected per-layer impact: %+v", impact.PerLayer)
	}
}

func TestMigrationImpactSmallDrift(t *testing.T) {
	old := registry(t, "E1", baseMeta())
	curMeta := baseMeta()
	curMeta.ComponentWeights = map[string]float64{
		"structural": 0.42, "logical": 0.28, "assumption": 0.3,
	}
	cur := registry(t, "E2", curMeta)

	impact := AssessMigrationImpact(old, cur, DefaultThresholds())
	if impact.Risk != RiskLow {
		t.Fatalf("0.04 total drift graded %s, want low", impact.Risk)
	}
}

func TestEvolutionStructuralChangeInPlace(t *testing.T) {
	old := registry(t, "E1", baseMeta())
	curMeta := baseMeta()
	curMeta.Formula = "min(structural, logical, assumption)"
	cur := registry(t, "E1", curMeta) // same epoch id

	violations := ValidateEvolution(Proposal{Old: old, New: cur}, DefaultThresholds())
	if len(violations) != 1 || violations[0].Rule != "structural_change_in_place" {
		t.Fatalf("want structural_change_in_place, got %+v", violations)
	}

	// The same change under a new epoch id is admissible.
	cur2 := registry(t, "E2", curMeta)
	if v := ValidateEvolution(Proposal{Old: old, New: cur2}, DefaultThresholds()); len(v) != 0 {
		t.Fatalf("new-epoch structural change rejected: %+v", v)
	}
}

func TestEvolutionCriticalWeightNeedsJustification(t *testing.T) {
	old := registry(t, "E1", baseMeta())
	curMeta := baseMeta()
	curMeta.Formula = "0.6*structural + 0.1*logical + 0.3*assumption"
	curMeta.ComponentWeights = map[string]float64{
		"structural": 0.6, "logical": 0.1, "assumption": 0.3,
	}
	cur := registry(t, "E2", curMeta)

	violations := ValidateEvolution(Proposal{Old: old, New: cur}, DefaultThresholds())
	found := false
	for _, v := range violations {
		if v.Rule == "critical_weight_unjustified" && v.Layer == layer.Base {
			found = true
		}
	}
	if !found {
		t.Fatalf("unjustified critical weight move not flagged: %+v", violations)
	}

	justified := Proposal{Old: old, New: cur, Justifications: map[layer.Symbol]string{
		layer.Base: "rebalanced after the 2026 audit round",
	}}
	for _, v := range ValidateEvolution(justified, DefaultThresholds()) {
		if v.Rule == "critical_weight_unjustified" {
			t.Fatalf("justified critical move still flagged: %+v", v)
		}
	}
}

func TestEvolutionLayerRemoved(t *testing.T) {
	old := registry(t, "E1", baseMeta(), layer.Metadata{Symbol: layer.Meta, Name: "meta", Formula: "mean(governance, audit)"})
	cur := registry(t, "E2", baseMeta())

	violations := ValidateEvolution(Proposal{Old: old, New: cur}, DefaultThresholds())
	if len(violations) != 1 || violations[0].Rule != "layer_removed" || violations[0].Layer != layer.Meta {
		t.Fatalf("want layer_removed for %s, got %+v", layer.Meta, violations)
	}
}

func TestEvolutionLayerAddedInPlace(t *testing.T) {
	old := registry(t, "E1", baseMeta())
	cur := registry(t, "E1", baseMeta(), layer.Metadata{Symbol: layer.Meta, Name: "meta", Formula: "mean(governance, audit)"})

	violations := ValidateEvolution(Proposal{Old: old, New: cur}, DefaultThresholds())
	if len(violations) != 1 || violations[0].Rule != "layer_added_in_place" {
		t.Fatalf("want layer_added_in_place, got %+v", violations)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	bad := []Thresholds{
		{WeightWarning: 0, WeightCritical: 0.15},
		{WeightWarning: -0.05, WeightCritical: 0.15},
		{WeightWarning: 0.2, WeightCritical: 0.1},
		{WeightWarning: 0.1, WeightCritical: 0.1},
	}
	for i, th := range bad {
		if err := th.Validate(); err == nil {
			t.Fatalf("case %d: invalid thresholds accepted: %+v", i, th)
		}
	}
}
