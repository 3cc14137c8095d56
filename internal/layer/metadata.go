package layer

import (
	"fmt"
	"sort"
)

// #region layer-metadata
// Metadata describes one layer within one configuration epoch: its formula
// text, component weights, and thresholds. A Metadata value is immutable for
// the lifetime of its epoch; governance compares values across epochs.
type Metadata struct {
	Symbol           Symbol             `json:"symbol"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	Formula          string             `json:"formula"`
	ComponentWeights map[string]float64 `json:"component_weights,omitempty"`
	Thresholds       map[string]float64 `json:"thresholds,omitempty"`
}

// Validate checks the metadata against the closed layer set.
func (m Metadata) Validate() error {
	if !m.Symbol.Valid() {
		return fmt.Errorf("layer metadata: unknown symbol %q", m.Symbol)
	}
	if m.Name == "" {
		return fmt.Errorf("layer metadata %s: empty name", m.Symbol)
	}
	if m.Formula == "" {
		return fmt.Errorf("layer metadata %s: empty formula", m.Symbol)
	}
	for comp, w := range m.ComponentWeights {
		if w < 0 {
			return fmt.Errorf("layer metadata %s: negative component weight %s=%.4f", m.Symbol, comp, w)
		}
	}
	return nil
}

// #endregion layer-metadata

// #region registry
// MetadataRegistry is one epoch's snapshot of all layer metadata, keyed by
// symbol. The epoch id names the COHORT the snapshot belongs to.
type MetadataRegistry struct {
	EpochID string             `json:"epoch_id"`
	Layers  map[Symbol]Metadata `json:"layers"`
}

// NewMetadataRegistry validates every entry and returns an immutable registry.
func NewMetadataRegistry(epochID string, layers []Metadata) (*MetadataRegistry, error) {
	if epochID == "" {
		return nil, fmt.Errorf("metadata registry: empty epoch id")
	}
	bySymbol := make(map[Symbol]Metadata, len(layers))
	for _, m := range layers {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("metadata registry %s: %w", epochID, err)
		}
		if _, dup := bySymbol[m.Symbol]; dup {
			return nil, fmt.Errorf("metadata registry %s: duplicate layer %s", epochID, m.Symbol)
		}
		bySymbol[m.Symbol] = m
	}
	return &MetadataRegistry{EpochID: epochID, Layers: bySymbol}, nil
}

// Get returns the metadata for s, if present.
func (r *MetadataRegistry) Get(s Symbol) (Metadata, bool) {
	m, ok := r.Layers[s]
	return m, ok
}

// Symbols returns the registered symbols in canonical order.
func (r *MetadataRegistry) Symbols() []Symbol {
	out := make([]Symbol, 0, len(r.Layers))
	for s := range r.Layers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// #endregion registry
