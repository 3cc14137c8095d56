package chain

import (
	"encoding/json"
	"fmt"
)

// #region gate
// Gate scores how well a set of offered inputs wires into a declared method
// signature. The output is always one of the five configured tiers.
type Gate struct {
	config   GateConfig
	registry *Registry
}

// NewGate creates a gate over the given signature registry.
func NewGate(config GateConfig, registry *Registry) *Gate {
	return &Gate{config: config, registry: registry}
}

// Evaluate runs the tier ladder for one signature against the offered inputs.
// An unknown signature id is a configuration error, not a zero score.
func (g *Gate) Evaluate(signatureID string, offered []OfferedInput) (Decision, error) {
	sig, ok := g.registry.Get(signatureID)
	if !ok {
		return Decision{}, fmt.Errorf("chain gate: unknown signature %s", signatureID)
	}

	byName := make(map[string]OfferedInput, len(offered))
	for _, in := range offered {
		byName[in.Name] = in
	}

	var findings []Finding
	var warnings []string

	// --- Hard mismatch pass: conflicts and absent required inputs stop the
	// ladder at 0.0.
	for _, req := range sig.Required {
		in, present := byName[req.Name]
		if !present {
			findings = append(findings, Finding{
				Class:  FindingMissingRequired,
				Input:  req.Name,
				Reason: fmt.Sprintf("required input %s absent", req.Name),
			})
			continue
		}
		if conflict, note := typeConflict(req.Type, in.Type); conflict {
			findings = append(findings, Finding{
				Class:  FindingTypeConflict,
				Input:  req.Name,
				Reason: fmt.Sprintf("required input %s declared %s, offered %s", req.Name, req.Type, in.Type),
			})
		} else if note != "" {
			warnings = append(warnings, note)
		}
	}
	for _, opt := range sig.Optional {
		in, present := byName[opt.Name]
		if !present {
			continue
		}
		if conflict, note := typeConflict(opt.Type, in.Type); conflict {
			findings = append(findings, Finding{
				Class:  FindingTypeConflict,
				Input:  opt.Name,
				Reason: fmt.Sprintf("optional input %s declared %s, offered %s", opt.Name, opt.Type, in.Type),
			})
		} else if note != "" {
			warnings = append(warnings, note)
		}
	}
	if len(findings) > 0 {
		return Decision{Score: g.config.HardMismatch, Findings: findings, Warnings: warnings}, nil
	}

	// --- Missing critical optional pass.
	for _, opt := range sig.Optional {
		if !opt.Critical {
			continue
		}
		if _, present := byName[opt.Name]; !present {
			findings = append(findings, Finding{
				Class:  FindingMissingCritical,
				Input:  opt.Name,
				Reason: fmt.Sprintf("critical optional input %s absent", opt.Name),
			})
		}
	}
	if len(findings) > 0 {
		return Decision{Score: g.config.MissingCritical, Findings: findings, Warnings: warnings}, nil
	}

	// --- Schema pass over offered non-critical optionals.
	for _, opt := range sig.Optional {
		if opt.Critical {
			continue
		}
		in, present := byName[opt.Name]
		if !present || len(in.Payload) == 0 {
			continue
		}
		schema, declared := g.registry.schema(signatureID, opt.Name)
		if !declared {
			continue
		}
		var doc any
		if err := json.Unmarshal(in.Payload, &doc); err != nil {
			findings = append(findings, Finding{
				Class:  FindingSchemaDeviation,
				Input:  opt.Name,
				Reason: fmt.Sprintf("payload for %s is not valid JSON: %v", opt.Name, err),
			})
			continue
		}
		if err := schema.Validate(doc); err != nil {
			findings = append(findings, Finding{
				Class:  FindingSchemaDeviation,
				Input:  opt.Name,
				Reason: fmt.Sprintf("payload for %s violates schema: %v", opt.Name, err),
			})
		}
	}
	if len(findings) > 0 {
		return Decision{Score: g.config.SchemaDeviation, Findings: findings, Warnings: warnings}, nil
	}

	// --- Diagnostics: undeclared extras never change wiring correctness but
	// downgrade a clean pass to the advisory tier.
	declared := make(map[string]bool, len(sig.Required)+len(sig.Optional))
	for _, in := range sig.Required {
		declared[in.Name] = true
	}
	for _, in := range sig.Optional {
		declared[in.Name] = true
	}
	for _, in := range offered {
		if !declared[in.Name] {
			warnings = append(warnings, fmt.Sprintf("input %s offered but not declared by %s", in.Name, signatureID))
		}
	}

	if len(warnings) > 0 {
		return Decision{Score: g.config.CleanWithNotes, Warnings: warnings}, nil
	}
	return Decision{Score: g.config.Clean}, nil
}

// #endregion gate

// #region type-compat
// typeConflict reports whether an offered type conflicts with the declared
// one. Integer payloads wire into number slots; that widening is allowed but
// noted as a diagnostic.
func typeConflict(declaredType, offeredType string) (bool, string) {
	if declaredType == offeredType {
		return false, ""
	}
	if declaredType == "number" && offeredType == "integer" {
		return false, "integer offered where number declared (widened)"
	}
	return true, ""
}

// #endregion type-compat
