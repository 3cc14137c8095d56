package cert

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/docscore/calibration/internal/chain"
	"github.com/danielpatrickdp/docscore/calibration/internal/config"
	"github.com/danielpatrickdp/docscore/calibration/internal/graph"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
	"github.com/danielpatrickdp/docscore/calibration/internal/providers"
)

func testEpoch(t *testing.T) *config.Epoch {
	t.Helper()
	f := config.File{
		EpochID:    "COHORT-2026-A",
		IssuedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		SigningKey: "6b65792d636f686f72742d32303236",
		Fusion: config.FusionSection{
			Linear: map[string]float64{
				"@b": 0.17, "@chain": 0.13, "@q": 0.08, "@d": 0.07,
				"@p": 0.06, "@C": 0.08, "@u": 0.04, "@m": 0.04,
			},
			Interactions: []config.InteractionSection{
				{A: "@u", B: "@chain", Weight: 0.13},
				{A: "@chain", B: "@C", Weight: 0.10},
				{A: "@q", B: "@d", Weight: 0.10},
			},
		},
		Layers: []config.LayerSection{
			{Symbol: "@b", Name: "base quality", Formula: "mean(structural, logical, assumption)"},
			{Symbol: "@chain", Name: "wiring compatibility", Formula: "gate tier"},
			{Symbol: "@u", Name: "unit of analysis", Formula: "unit_quality"},
			{Symbol: "@q", Name: "question fit", Formula: "mapping lookup"},
			{Symbol: "@d", Name: "dimension fit", Formula: "mapping lookup"},
			{Symbol: "@p", Name: "policy fit", Formula: "mapping lookup"},
			{Symbol: "@C", Name: "interplay", Formula: "subgraph reachability"},
			{Symbol: "@m", Name: "meta governance", Formula: "mean(governance, audit)"},
		},
		Signatures: []chain.Signature{{
			SignatureID: "score-v1",
			MethodID:    "scorer",
			Required:    []chain.InputSpec{{Name: "doc", Type: "text"}},
		}},
		Mappings: []config.MappingSection{{
			MethodID:   "scorer",
			Questions:  map[string]float64{"Q1": 1.0},
			Dimensions: map[string]float64{"DIM01": 1.0, "DIM02": 0.3},
			Policies:   map[string]float64{"PA01": 1.0},
		}},
	}
	e, err := config.Build(f)
	if err != nil {
		t.Fatalf("epoch build failed: %v", err)
	}
	return e
}

func testRequest(t *testing.T) Request {
	t.Helper()
	ctx, err := layer.NewExecutionContext("Q1", "DIM01", "PA01", 0.75)
	if err != nil {
		t.Fatalf("context construction failed: %v", err)
	}
	g, err := graph.New(
		[]graph.Node{{ID: "a", MethodID: "scorer"}, {ID: "out", MethodID: "scorer"}},
		[]graph.Edge{{SourceID: "a", TargetID: "out", EdgeType: "score"}},
	)
	if err != nil {
		t.Fatalf("graph construction failed: %v", err)
	}
	return Request{
		Method: providers.Method{MethodID: "scorer", Role: layer.RoleScore, SignatureID: "score-v1"},
		NodeID: "node-7",
		Context: ctx,
		Inputs: providers.Inputs{
			Offered: []chain.OfferedInput{{Name: "doc", Type: "text"}},
			Graph:   g,
			Interplay: &graph.InterplaySubgraph{
				NodeIDs:  []string{"a", "out"},
				OutputID: "out",
				Rule:     graph.FusionWeightedSum,
			},
		},
	}
}

func testGenerator(t *testing.T) (*Generator, *config.Epoch) {
	t.Helper()
	epoch := testEpoch(t)
	evidence := providers.MemoryStore{"scorer": {
		StructuralValidity:    0.85,
		LogicalConsistency:    0.85,
		AssumptionAppropriate: 0.85,
		GovernanceCompliance:  0.95,
		AuditCoverage:         0.95,
	}}
	set := providers.NewSet(epoch.Mappings, evidence, chain.NewGate(chain.DefaultGateConfig(), epoch.Signatures))
	return NewGenerator(epoch, set), epoch
}

func TestGenerateReferenceScore(t *testing.T) {
	gen, epoch := testGenerator(t)
	c, err := gen.Generate(testRequest(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if math.Abs(c.CalibratedScore-0.93) > 0.01 {
		t.Fatalf("calibrated score %.6f, want 0.93 +-0.01", c.CalibratedScore)
	}
	if c.IntrinsicScore != c.LayerScores["@b"] {
		t.Fatalf("intrinsic score %.4f does not mirror @b %.4f", c.IntrinsicScore, c.LayerScores["@b"])
	}
	if len(c.LayerScores) != len(layer.All) {
		t.Fatalf("SCORE role recorded %d layer scores, want %d", len(c.LayerScores), len(layer.All))
	}
	if c.ConfigHash != epoch.Hash() {
		t.Fatal("config hash not embedded")
	}
	if c.GraphHash == "" {
		t.Fatal("graph hash not embedded")
	}
	if c.ValidatorVersion != ValidatorVersion {
		t.Fatalf("validator version %q", c.ValidatorVersion)
	}
	if len(c.ValidationChecks) == 0 {
		t.Fatal("no validation checks embedded")
	}
	for _, ch := range c.ValidationChecks {
		if !ch.Passed {
			t.Fatalf("embedded check %s failed", ch.Name)
		}
	}
	if len(c.LayerMetadata) != len(c.LayerScores) {
		t.Fatal("layer metadata does not cover every active layer")
	}
	if !c.Timestamp.Equal(epoch.IssuedAt) {
		t.Fatalf("zero request timestamp did not default to epoch issue time: %v", c.Timestamp)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen, _ := testGenerator(t)
	a, err := gen.Generate(testRequest(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	b, err := gen.Generate(testRequest(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if a.InstanceID != b.InstanceID {
		t.Fatalf("instance ids differ: %s vs %s", a.InstanceID, b.InstanceID)
	}
	if a.Signature != b.Signature {
		t.Fatal("signatures differ across identical runs")
	}

	ab, err := CanonicalBytes(a)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	bb, err := CanonicalBytes(b)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	if !bytes.Equal(ab, bb) {
		t.Fatal("canonical bytes differ across identical runs")
	}
}

func TestCertificateJSONRoundTrip(t *testing.T) {
	gen, _ := testGenerator(t)
	c, err := gen.Generate(testRequest(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var back Certificate
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(c, back); diff != "" {
		t.Fatalf("round-trip mismatch (-issued +decoded):\n%s", diff)
	}

	ok, err := Verify(back, testEpoch(t).SigningKey)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("round-tripped certificate fails verification")
	}
}

func TestVerifyDetectsTamper(t *testing.T) {
	gen, epoch := testGenerator(t)
	c, err := gen.Generate(testRequest(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	ok, err := Verify(c, epoch.SigningKey)
	if err != nil || !ok {
		t.Fatalf("pristine certificate fails verification: ok=%v err=%v", ok, err)
	}

	mutations := []func(*Certificate){
		func(c *Certificate) { c.CalibratedScore += 0.001 },
		func(c *Certificate) { c.LayerScores["@b"] = 1.0 },
		func(c *Certificate) { c.MethodID = "other" },
		func(c *Certificate) { c.ConfigHash = "0000" },
		func(c *Certificate) { c.Timestamp = c.Timestamp.Add(time.Second) },
	}
	for i, mutate := range mutations {
		tampered := c
		tampered.LayerScores = map[string]float64{}
		for k, v := range c.LayerScores {
			tampered.LayerScores[k] = v
		}
		mutate(&tampered)
		ok, err := Verify(tampered, epoch.SigningKey)
		if err != nil {
			t.Fatalf("mutation %d: verify errored: %v", i, err)
		}
		if ok {
			t.Fatalf("mutation %d: tampered certificate still verifies", i)
		}
	}
}

func TestGenerateRejectsBadGraph(t *testing.T) {
	gen, _ := testGenerator(t)
	req := testRequest(t)
	g, err := graph.New(
		[]graph.Node{{ID: "a", MethodID: "scorer"}, {ID: "b", MethodID: "scorer"}},
		[]graph.Edge{
			{SourceID: "a", TargetID: "b", EdgeType: "score"},
			{SourceID: "b", TargetID: "a", EdgeType: "score"},
		},
	)
	if err != nil {
		t.Fatalf("graph construction failed: %v", err)
	}
	req.Inputs.Graph = g
	req.Inputs.Interplay = &graph.InterplaySubgraph{NodeIDs: []string{"a", "b"}, OutputID: "b", Rule: graph.FusionWeightedSum}
	if _, err := gen.Generate(req); err == nil {
		t.Fatal("cyclic graph accepted")
	}
}

func TestGenerateRequiresNodeID(t *testing.T) {
	gen, _ := testGenerator(t)
	req := testRequest(t)
	req.NodeID = ""
	if _, err := gen.Generate(req); err == nil {
		t.Fatal("empty node id accepted")
	}
}

func TestInstanceIDTracksIdentity(t *testing.T) {
	gen, _ := testGenerator(t)
	a, err := gen.Generate(testRequest(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	req := testRequest(t)
	req.NodeID = "node-8"
	b, err := gen.Generate(req)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if a.InstanceID == b.InstanceID {
		t.Fatal("different node ids share an instance id")
	}
}
