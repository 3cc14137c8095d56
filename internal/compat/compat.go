package compat

import (
	"errors"
	"fmt"
)

// #region weights
// Declared compatibility tiers. Lookups for ids a method never declared fall
// back to the undeclared penalty.
const (
	Primary    = 1.0
	Secondary  = 0.7
	Compatible = 0.3
	Undeclared = 0.1
)

// universalityCutoff is the per-axis mean at which a mapping counts as
// near-universal on that axis.
const universalityCutoff = 0.9

// ErrAntiUniversality marks a mapping whose declared compatibility is
// near-perfect across questions, dimensions, and policies at once.
var ErrAntiUniversality = errors.New("anti-universality: mapping is near-universal on all three axes")

// validTier reports whether w is one of the four declared tiers.
func validTier(w float64) bool {
	switch w {
	case Primary, Secondary, Compatible, Undeclared:
		return true
	}
	return false
}

// #endregion weights

// #region mapping
// Mapping holds one method's declared compatibility per question, dimension,
// and policy id. A Mapping is validated at construction and immutable after.
type Mapping struct {
	MethodID   string             `json:"method_id"`
	Questions  map[string]float64 `json:"questions,omitempty"`
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
	Policies   map[string]float64 `json:"policies,omitempty"`
}

// NewMapping validates tiers and the anti-universality invariant.
func NewMapping(methodID string, questions, dimensions, policies map[string]float64) (*Mapping, error) {
	if methodID == "" {
		return nil, fmt.Errorf("compatibility mapping: empty method id")
	}
	m := &Mapping{
		MethodID:   methodID,
		Questions:  questions,
		Dimensions: dimensions,
		Policies:   policies,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate re-checks every declared tier and the anti-universality invariant.
func (m *Mapping) Validate() error {
	for axis, decl := range map[string]map[string]float64{
		"questions":  m.Questions,
		"dimensions": m.Dimensions,
		"policies":   m.Policies,
	} {
		for id, w := range decl {
			if !validTier(w) {
				return fmt.Errorf("compatibility mapping %s: %s[%s]=%.4f is not a declared tier", m.MethodID, axis, id, w)
			}
		}
	}
	if mean(m.Questions) >= universalityCutoff &&
		mean(m.Dimensions) >= universalityCutoff &&
		mean(m.Policies) >= universalityCutoff {
		return fmt.Errorf("compatibility mapping %s: %w", m.MethodID, ErrAntiUniversality)
	}
	return nil
}

// Lookup returns the declared tier for id on the given axis map, or the
// undeclared penalty when absent.
func Lookup(decl map[string]float64, id string) float64 {
	if w, ok := decl[id]; ok {
		return w
	}
	return Undeclared
}

// QuestionScore returns the compatibility tier for a question id.
func (m *Mapping) QuestionScore(id string) float64 { return Lookup(m.Questions, id) }

// DimensionScore returns the compatibility tier for a dimension id.
func (m *Mapping) DimensionScore(id string) float64 { return Lookup(m.Dimensions, id) }

// PolicyScore returns the compatibility tier for a policy id.
func (m *Mapping) PolicyScore(id string) float64 { return Lookup(m.Policies, id) }

// #endregion mapping

// #region helpers
// mean over declared tiers only; an empty axis is maximally non-universal.
func mean(decl map[string]float64) float64 {
	if len(decl) == 0 {
		return 0
	}
	var sum float64
	for _, w := range decl {
		sum += w
	}
	return sum / float64(len(decl))
}

// #endregion helpers
