package graph

import (
	"errors"
	"testing"
)

func makeGraph(t *testing.T, nodes []Node, edges []Edge) *Graph {
	t.Helper()
	g, err := New(nodes, edges)
	if err != nil {
		t.Fatalf("graph construction failed: %v", err)
	}
	return g
}

func TestTwoNodeCycleRejected(t *testing.T) {
	g := makeGraph(t,
		[]Node{{ID: "A", MethodID: "m1"}, {ID: "B", MethodID: "m2"}},
		[]Edge{
			{SourceID: "A", TargetID: "B", EdgeType: "score"},
			{SourceID: "B", TargetID: "A", EdgeType: "score"},
		},
	)
	err := g.Validate()
	if err == nil {
		t.Fatal("2-node cycle accepted")
	}
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	nodes := []Node{{ID: "c"}, {ID: "a"}, {ID: "b"}}
	edges := []Edge{{SourceID: "a", TargetID: "c", EdgeType: "score"}}
	g := makeGraph(t, nodes, edges)

	first, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("valid dag rejected: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := g.TopologicalOrder()
		if err != nil {
			t.Fatalf("valid dag rejected: %v", err)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("order not deterministic: %v vs %v", first, again)
			}
		}
	}
	// a must come before c
	pos := map[string]int{}
	for i, id := range first {
		pos[id] = i
	}
	if pos["a"] > pos["c"] {
		t.Fatalf("dependency order violated: %v", first)
	}
}

func TestReferentialIntegrity(t *testing.T) {
	if _, err := New([]Node{{ID: "A"}}, []Edge{{SourceID: "A", TargetID: "ghost", EdgeType: "score"}}); err == nil {
		t.Fatal("edge to missing node accepted")
	}
	if _, err := New([]Node{{ID: "A"}, {ID: "A"}}, nil); err == nil {
		t.Fatal("duplicate node id accepted")
	}
	if _, err := New([]Node{{ID: "A"}, {ID: "B"}}, []Edge{{SourceID: "A", TargetID: "B"}}); err == nil {
		t.Fatal("edge with empty type accepted")
	}
}

func TestHashIgnoresConstructionOrder(t *testing.T) {
	nodes := []Node{{ID: "A", MethodID: "m1", Signature: "s1"}, {ID: "B", MethodID: "m2", Signature: "s2"}}
	edges := []Edge{{SourceID: "A", TargetID: "B", EdgeType: "score"}}

	g1 := makeGraph(t, nodes, edges)
	g2 := makeGraph(t, []Node{nodes[1], nodes[0]}, edges)
	if g1.Hash() != g2.Hash() {
		t.Fatal("hash depends on node order")
	}

	g3 := makeGraph(t, nodes, []Edge{{SourceID: "A", TargetID: "B", EdgeType: "text"}})
	if g1.Hash() == g3.Hash() {
		t.Fatal("hash ignores edge type")
	}
}

func TestInterplayValidation(t *testing.T) {
	g := makeGraph(t,
		[]Node{{ID: "A"}, {ID: "B"}, {ID: "out"}},
		[]Edge{
			{SourceID: "A", TargetID: "out", EdgeType: "score"},
			{SourceID: "B", TargetID: "out", EdgeType: "score"},
		},
	)

	good := InterplaySubgraph{NodeIDs: []string{"A", "B", "out"}, OutputID: "out", Rule: FusionWeightedSum}
	if err := good.Validate(g); err != nil {
		t.Fatalf("valid subgraph rejected: %v", err)
	}
	score, err := good.Score(g)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if score != 1.0 {
		t.Fatalf("fully reachable subgraph scored %.2f, want 1.0", score)
	}

	badRule := InterplaySubgraph{NodeIDs: []string{"A", "B", "out"}, OutputID: "out", Rule: FusionConcat}
	if err := badRule.Validate(g); err == nil {
		t.Fatal("type-incompatible fusion rule accepted")
	}

	notMember := InterplaySubgraph{NodeIDs: []string{"A", "B"}, OutputID: "out", Rule: FusionWeightedSum}
	if err := notMember.Validate(g); err == nil {
		t.Fatal("output outside member set accepted")
	}
}

func TestInterplayPartialReachability(t *testing.T) {
	g := makeGraph(t,
		[]Node{{ID: "A"}, {ID: "B"}, {ID: "stray"}, {ID: "out"}},
		[]Edge{
			{SourceID: "A", TargetID: "out", EdgeType: "score"},
			{SourceID: "B", TargetID: "out", EdgeType: "score"},
		},
	)
	s := InterplaySubgraph{NodeIDs: []string{"A", "B", "stray", "out"}, OutputID: "out", Rule: FusionMin}
	score, err := s.Score(g)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if score != 0.75 {
		t.Fatalf("3 of 4 nodes reach output, scored %.2f, want 0.75", score)
	}
}
