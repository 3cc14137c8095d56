package chain

import (
	"testing"
)

const rubricSchema = `{"type":"object","properties":{"scale":{"type":"number"}},"required":["scale"]}`

func sequenceRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]Signature{
		{
			SignatureID: "split-v1",
			MethodID:    "splitter",
			Required:    []InputSpec{{Name: "doc", Type: "text"}},
			Outputs:     []OutputSpec{{Name: "chunks", Type: "text"}},
		},
		{
			SignatureID: "score-v1",
			MethodID:    "scorer",
			Required:    []InputSpec{{Name: "chunks", Type: "text"}},
			Optional: []InputSpec{
				{Name: "doc", Type: "text"},
				{Name: "rubric", Type: "object", Schema: rubricSchema},
			},
			Outputs: []OutputSpec{{Name: "scores", Type: "object"}},
		},
		{
			SignatureID: "report-v1",
			MethodID:    "reporter",
			Required:    []InputSpec{{Name: "scores", Type: "object"}},
			Optional: []InputSpec{
				{Name: "doc", Type: "text"},
				{Name: "chunks", Type: "text"},
				{Name: "rubric", Type: "object"},
			},
			Outputs: []OutputSpec{{Name: "report", Type: "text"}},
		},
	})
	if err != nil {
		t.Fatalf("registry construction failed: %v", err)
	}
	return r
}

func TestSequenceWeakestLink(t *testing.T) {
	g := NewGate(DefaultGateConfig(), sequenceRegistry(t))

	initial := []OfferedInput{{Name: "doc", Type: "text"}}
	hops := []Hop{
		{NodeID: "n1", SignatureID: "split-v1"},
		{NodeID: "n2", SignatureID: "score-v1", Extra: []OfferedInput{
			{Name: "rubric", Type: "object", Payload: []byte(`{"scale": "five"}`)},
		}},
		{NodeID: "n3", SignatureID: "report-v1", Extra: []OfferedInput{
			{Name: "footnote", Type: "text"},
		}},
	}

	result, err := g.ValidateSequence(initial, hops)
	if err != nil {
		t.Fatalf("sequence validation failed: %v", err)
	}

	want := []float64{1.0, 0.6, 0.8}
	if len(result.Hops) != len(want) {
		t.Fatalf("got %d hop results, want %d", len(result.Hops), len(want))
	}
	for i, w := range want {
		if got := result.Hops[i].Decision.Score; got != w {
			t.Fatalf("hop %d scored %.1f, want %.1f", i+1, got, w)
		}
	}
	if result.Quality != 0.6 {
		t.Fatalf("sequence quality %.1f, want 0.6 (minimum hop)", result.Quality)
	}
	if result.WeakestHop != 2 || result.WeakestNode != "n2" {
		t.Fatalf("weakest hop %d (%s), want 2 (n2)", result.WeakestHop, result.WeakestNode)
	}
}

func TestSequenceNoLookahead(t *testing.T) {
	g := NewGate(DefaultGateConfig(), sequenceRegistry(t))

	// score-v1 consumes chunks, which only split-v1 produces. Running it
	// first must gate to 0.0 even though a later hop would produce chunks.
	initial := []OfferedInput{{Name: "doc", Type: "text"}}
	hops := []Hop{
		{NodeID: "n2", SignatureID: "score-v1"},
		{NodeID: "n1", SignatureID: "split-v1"},
	}

	result, err := g.ValidateSequence(initial, hops)
	if err != nil {
		t.Fatalf("sequence validation failed: %v", err)
	}
	if result.Hops[0].Decision.Score != 0.0 {
		t.Fatalf("hop consuming a future output scored %.1f, want 0.0", result.Hops[0].Decision.Score)
	}
	if result.Quality != 0.0 || result.WeakestHop != 1 {
		t.Fatalf("quality %.1f weakest %d, want 0.0 at hop 1", result.Quality, result.WeakestHop)
	}
}

func TestSequenceEmpty(t *testing.T) {
	g := NewGate(DefaultGateConfig(), sequenceRegistry(t))
	if _, err := g.ValidateSequence(nil, nil); err == nil {
		t.Fatal("empty sequence accepted")
	}
}

func TestSequenceUnknownSignature(t *testing.T) {
	g := NewGate(DefaultGateConfig(), sequenceRegistry(t))
	_, err := g.ValidateSequence(nil, []Hop{{NodeID: "n1", SignatureID: "ghost-v1"}})
	if err == nil {
		t.Fatal("unknown hop signature accepted")
	}
}
