package replay

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/docscore/calibration/internal/cert"
	"github.com/danielpatrickdp/docscore/calibration/internal/chain"
	"github.com/danielpatrickdp/docscore/calibration/internal/config"
	"github.com/danielpatrickdp/docscore/calibration/internal/graph"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
	"github.com/danielpatrickdp/docscore/calibration/internal/providers"
)

// #region types
// Result captures the outcome of replaying one request end-to-end.
type Result struct {
	NodeID      string           `json:"node_id"`
	Certificate cert.Certificate `json:"certificate"`
	Pass        bool             `json:"pass"`
	Reason      string           `json:"reason"`
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total  int `json:"total"`
	Passes int `json:"passes"`
	Fails  int `json:"fails"`
}

// #endregion types

// #region replay
// Replay builds the epoch from the fixture, issues a certificate per request,
// and checks each against the expected results. Operates entirely in-memory.
func Replay(f *Fixture) ([]Result, error) {
	epoch, err := config.Build(f.Epoch)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	var g *graph.Graph
	var interplay *graph.InterplaySubgraph
	if f.Graph != nil {
		g, err = graph.New(f.Graph.Nodes, f.Graph.Edges)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		interplay = f.Graph.Interplay
	}

	evidence := providers.MemoryStore{}
	for id, ev := range f.Evidence {
		evidence[id] = ev
	}
	gate := chain.NewGate(chain.DefaultGateConfig(), epoch.Signatures)
	set := providers.NewSet(epoch.Mappings, evidence, gate)
	gen := cert.NewGenerator(epoch, set)

	expected := make(map[string]ExpectedResult, len(f.Expected))
	for _, e := range f.Expected {
		expected[e.NodeID] = e
	}

	results := make([]Result, 0, len(f.Requests))
	for _, req := range f.Requests {
		ctx, err := req.ToContext()
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", req.NodeID, err)
		}
		c, err := gen.Generate(cert.Request{
			Method:  req.ToMethod(),
			NodeID:  req.NodeID,
			Context: ctx,
			Inputs: providers.Inputs{
				Offered:   req.Offered,
				Graph:     g,
				Interplay: interplay,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", req.NodeID, err)
		}
		results = append(results, check(c, expected[req.NodeID]))
	}
	return results, nil
}

// check compares one certificate to its expected result.
func check(c cert.Certificate, want ExpectedResult) Result {
	r := Result{NodeID: c.NodeID, Certificate: c, Pass: true, Reason: "matched expectations"}
	if want.NodeID == "" {
		r.Reason = "no expectations declared"
		return r
	}
	tol := want.Tolerance
	if tol == 0 {
		tol = 1e-9
	}
	if math.Abs(c.CalibratedScore-want.CalibratedScore) > tol {
		r.Pass = false
		r.Reason = fmt.Sprintf("calibrated score %.6f outside %.6f ± %.6f", c.CalibratedScore, want.CalibratedScore, tol)
		return r
	}
	if want.ChainScore != nil {
		got := c.LayerScores[string(layer.Chain)]
		if got != *want.ChainScore {
			r.Pass = false
			r.Reason = fmt.Sprintf("chain score %.1f, expected %.1f", got, *want.ChainScore)
		}
	}
	return r
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Pass {
			s.Passes++
		} else {
			s.Fails++
		}
	}
	return s
}

// #endregion replay
