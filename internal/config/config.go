package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/docscore/calibration/internal/chain"
	"github.com/danielpatrickdp/docscore/calibration/internal/compat"
	"github.com/danielpatrickdp/docscore/calibration/internal/fusion"
	"github.com/danielpatrickdp/docscore/calibration/internal/governance"
	"github.com/danielpatrickdp/docscore/calibration/internal/layer"
)

// #region file-shape
// File is the YAML shape of one epoch configuration. It is parsed once and
// turned into an immutable Epoch; every class-1 configuration error fires
// here, at load, never during scoring.
type File struct {
	EpochID    string              `yaml:"epoch_id" json:"epoch_id"`
	IssuedAt   time.Time           `yaml:"issued_at" json:"issued_at"`
	SigningKey string              `yaml:"signing_key" json:"signing_key"` // hex
	Fusion     FusionSection       `yaml:"fusion" json:"fusion"`
	Layers     []LayerSection      `yaml:"layers" json:"layers"`
	Roles      map[string][]string `yaml:"roles,omitempty" json:"roles,omitempty"`
	Signatures []chain.Signature   `yaml:"signatures,omitempty" json:"signatures,omitempty"`
	Mappings   []MappingSection    `yaml:"mappings,omitempty" json:"mappings,omitempty"`
	Governance GovernanceSection   `yaml:"governance" json:"governance"`
}

// FusionSection mirrors fusion.Config with YAML-friendly keys.
type FusionSection struct {
	Linear       map[string]float64   `yaml:"linear" json:"linear"`
	Interactions []InteractionSection `yaml:"interactions,omitempty" json:"interactions,omitempty"`
}

// InteractionSection is one pairwise interaction term.
type InteractionSection struct {
	A      string  `yaml:"a" json:"a"`
	B      string  `yaml:"b" json:"b"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// LayerSection is one layer's metadata for the epoch.
type LayerSection struct {
	Symbol           string             `yaml:"symbol" json:"symbol"`
	Name             string             `yaml:"name" json:"name"`
	Description      string             `yaml:"description,omitempty" json:"description,omitempty"`
	Formula          string             `yaml:"formula" json:"formula"`
	ComponentWeights map[string]float64 `yaml:"component_weights,omitempty" json:"component_weights,omitempty"`
	Thresholds       map[string]float64 `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
}

// MappingSection is one method's compatibility declaration.
type MappingSection struct {
	MethodID   string             `yaml:"method_id" json:"method_id"`
	Questions  map[string]float64 `yaml:"questions,omitempty" json:"questions,omitempty"`
	Dimensions map[string]float64 `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	Policies   map[string]float64 `yaml:"policies,omitempty" json:"policies,omitempty"`
}

// GovernanceSection carries the diff thresholds for epoch comparison.
type GovernanceSection struct {
	WeightWarning  float64 `yaml:"weight_warning" json:"weight_warning"`
	WeightCritical float64 `yaml:"weight_critical" json:"weight_critical"`
}

// #endregion file-shape

// #region epoch
// Epoch is the immutable, validated configuration snapshot shared by every
// concurrent evaluation. Nothing on it mutates after Load.
type Epoch struct {
	EpochID    string
	IssuedAt   time.Time
	SigningKey []byte
	Fusion     fusion.Config
	Registry   *layer.MetadataRegistry
	Signatures *chain.Registry
	Mappings   map[string]*compat.Mapping
	Thresholds governance.Thresholds
	hash       string
}

// Hash is a hex sha256 over the canonical encoding of the epoch's scoring
// configuration, cheap equality between certificates.
func (e *Epoch) Hash() string { return e.hash }

// #endregion epoch

// #region load
// Load reads and validates one epoch file.
func Load(path string) (*Epoch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return Build(f)
}

// Build validates a parsed file into an immutable Epoch.
func Build(f File) (*Epoch, error) {
	if f.EpochID == "" {
		return nil, fmt.Errorf("config: empty epoch_id")
	}
	key, err := hex.DecodeString(f.SigningKey)
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("config %s: signing_key must be non-empty hex", f.EpochID)
	}

	fc := fusion.Config{Linear: make(map[layer.Symbol]float64, len(f.Fusion.Linear))}
	for sym, w := range f.Fusion.Linear {
		fc.Linear[layer.Symbol(sym)] = w
	}
	for _, it := range f.Fusion.Interactions {
		fc.Interactions = append(fc.Interactions, fusion.Interaction{
			A:      layer.Symbol(it.A),
			B:      layer.Symbol(it.B),
			Weight: it.Weight,
		})
	}
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", f.EpochID, err)
	}

	metas := make([]layer.Metadata, 0, len(f.Layers))
	for _, l := range f.Layers {
		metas = append(metas, layer.Metadata{
			Symbol:           layer.Symbol(l.Symbol),
			Name:             l.Name,
			Description:      l.Description,
			Formula:          l.Formula,
			ComponentWeights: l.ComponentWeights,
			Thresholds:       l.Thresholds,
		})
	}
	registry, err := layer.NewMetadataRegistry(f.EpochID, metas)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", f.EpochID, err)
	}
	for sym := range fc.Linear {
		if _, ok := registry.Get(sym); !ok {
			return nil, fmt.Errorf("config %s: weighted layer %s has no metadata", f.EpochID, sym)
		}
	}

	// The role map is closed; a config may restate it but never change it.
	if err := checkRoles(f.Roles); err != nil {
		return nil, fmt.Errorf("config %s: %w", f.EpochID, err)
	}

	sigs, err := chain.NewRegistry(f.Signatures)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", f.EpochID, err)
	}

	mappings := make(map[string]*compat.Mapping, len(f.Mappings))
	for _, m := range f.Mappings {
		cm, err := compat.NewMapping(m.MethodID, m.Questions, m.Dimensions, m.Policies)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", f.EpochID, err)
		}
		if _, dup := mappings[m.MethodID]; dup {
			return nil, fmt.Errorf("config %s: duplicate mapping for method %s", f.EpochID, m.MethodID)
		}
		mappings[m.MethodID] = cm
	}

	th := governance.Thresholds{
		WeightWarning:  f.Governance.WeightWarning,
		WeightCritical: f.Governance.WeightCritical,
	}
	if th.WeightWarning == 0 {
		th.WeightWarning = governance.DefaultThresholds().WeightWarning
	}
	if th.WeightCritical == 0 {
		th.WeightCritical = governance.DefaultThresholds().WeightCritical
	}
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", f.EpochID, err)
	}

	e := &Epoch{
		EpochID:    f.EpochID,
		IssuedAt:   f.IssuedAt.UTC(),
		SigningKey: key,
		Fusion:     fc,
		Registry:   registry,
		Signatures: sigs,
		Mappings:   mappings,
		Thresholds: th,
	}
	e.hash = computeHash(e, f)
	return e, nil
}

// checkRoles verifies a restated role map against the closed one.
func checkRoles(roles map[string][]string) error {
	for name, layers := range roles {
		role := layer.MethodRole(name)
		if !role.Valid() {
			return fmt.Errorf("unknown role %q", name)
		}
		want := role.RequiredLayers()
		if len(layers) != len(want) {
			return fmt.Errorf("role %s declares %d layers, the closed set has %d", name, len(layers), len(want))
		}
		got := make([]string, len(layers))
		copy(got, layers)
		sort.Strings(got)
		wantStr := make([]string, len(want))
		for i, s := range want {
			wantStr[i] = string(s)
		}
		sort.Strings(wantStr)
		for i := range got {
			if got[i] != wantStr[i] {
				return fmt.Errorf("role %s: layer set differs from the closed role map", name)
			}
		}
	}
	return nil
}

// #endregion load

// #region hash
// hashView is the scoring-relevant slice of the config. The signing key stays
// out: two epochs that score identically hash identically.
type hashView struct {
	EpochID    string                 `json:"epoch_id"`
	Fusion     fusion.Config          `json:"fusion"`
	Layers     map[string]layer.Metadata `json:"layers"`
	Signatures []chain.Signature      `json:"signatures,omitempty"`
	Mappings   []MappingSection       `json:"mappings,omitempty"`
	Governance GovernanceSection      `json:"governance"`
}

func computeHash(e *Epoch, f File) string {
	layers := make(map[string]layer.Metadata, len(e.Registry.Layers))
	for sym, m := range e.Registry.Layers {
		layers[string(sym)] = m
	}
	sigs := append([]chain.Signature(nil), f.Signatures...)
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].SignatureID < sigs[j].SignatureID })
	maps := append([]MappingSection(nil), f.Mappings...)
	sort.Slice(maps, func(i, j int) bool { return maps[i].MethodID < maps[j].MethodID })

	view := hashView{
		EpochID:    e.EpochID,
		Fusion:     e.Fusion,
		Layers:     layers,
		Signatures: sigs,
		Mappings:   maps,
		Governance: GovernanceSection{
			WeightWarning:  e.Thresholds.WeightWarning,
			WeightCritical: e.Thresholds.WeightCritical,
		},
	}
	// Map keys sort during JSON marshaling, so the bytes are canonical.
	b, err := json.Marshal(view)
	if err != nil {
		// hashView contains only marshalable types.
		panic(fmt.Sprintf("config hash: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// #endregion hash
