package chain

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// #region specs
// InputSpec declares one input slot of a method signature. Schema, when set,
// is a JSON Schema source applied to offered payloads. Critical marks optional
// inputs whose absence degrades the method materially.
type InputSpec struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Critical bool   `json:"critical,omitempty" yaml:"critical,omitempty"`
	Schema   string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// OutputSpec declares one output a method instance makes available downstream.
type OutputSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Signature is one method's declared wiring contract.
type Signature struct {
	SignatureID string       `json:"signature_id" yaml:"signature_id"`
	MethodID    string       `json:"method_id" yaml:"method_id"`
	Required    []InputSpec  `json:"required,omitempty" yaml:"required,omitempty"`
	Optional    []InputSpec  `json:"optional,omitempty" yaml:"optional,omitempty"`
	Outputs     []OutputSpec `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// #endregion specs

// #region registry
// Registry holds every declared method signature for one epoch, with all
// payload schemas compiled up front. A schema that fails to compile is a
// configuration error, surfaced at load, never during scoring.
type Registry struct {
	byID    map[string]Signature
	schemas map[string]*jsonschema.Schema // signatureID/inputName -> compiled schema
}

// NewRegistry validates and indexes the signatures and compiles their schemas.
func NewRegistry(sigs []Signature) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]Signature, len(sigs)),
		schemas: make(map[string]*jsonschema.Schema),
	}
	for _, sig := range sigs {
		if sig.SignatureID == "" {
			return nil, fmt.Errorf("signature registry: empty signature id (method %q)", sig.MethodID)
		}
		if _, dup := r.byID[sig.SignatureID]; dup {
			return nil, fmt.Errorf("signature registry: duplicate signature %s", sig.SignatureID)
		}
		seen := map[string]bool{}
		for _, in := range append(append([]InputSpec{}, sig.Required...), sig.Optional...) {
			if in.Name == "" || in.Type == "" {
				return nil, fmt.Errorf("signature registry %s: input with empty name or type", sig.SignatureID)
			}
			if seen[in.Name] {
				return nil, fmt.Errorf("signature registry %s: duplicate input %s", sig.SignatureID, in.Name)
			}
			seen[in.Name] = true
			if in.Schema == "" {
				continue
			}
			compiler := jsonschema.NewCompiler()
			res := fmt.Sprintf("mem://%s/%s.json", sig.SignatureID, in.Name)
			if err := compiler.AddResource(res, strings.NewReader(in.Schema)); err != nil {
				return nil, fmt.Errorf("signature registry %s: schema for %s: %w", sig.SignatureID, in.Name, err)
			}
			schema, err := compiler.Compile(res)
			if err != nil {
				return nil, fmt.Errorf("signature registry %s: schema for %s: %w", sig.SignatureID, in.Name, err)
			}
			r.schemas[sig.SignatureID+"/"+in.Name] = schema
		}
		r.byID[sig.SignatureID] = sig
	}
	return r, nil
}

// Get returns the signature with the given id.
func (r *Registry) Get(signatureID string) (Signature, bool) {
	sig, ok := r.byID[signatureID]
	return sig, ok
}

// schema returns the compiled payload schema for one input slot, if declared.
func (r *Registry) schema(signatureID, inputName string) (*jsonschema.Schema, bool) {
	s, ok := r.schemas[signatureID+"/"+inputName]
	return s, ok
}

// #endregion registry
