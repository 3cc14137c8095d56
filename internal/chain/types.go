package chain

// #region finding
// FindingClass enumerates wiring defect categories.
type FindingClass string

const (
	FindingTypeConflict    FindingClass = "type_conflict"
	FindingMissingRequired FindingClass = "missing_required"
	FindingMissingCritical FindingClass = "missing_critical_optional"
	FindingSchemaDeviation FindingClass = "schema_deviation"
)

// Finding records one detected wiring defect.
type Finding struct {
	Class  FindingClass `json:"class"`
	Input  string       `json:"input"`
	Reason string       `json:"reason"`
}

// #endregion finding

// #region gate-config
// GateConfig fixes the discrete score tiers. The tier values are business
// constants carried over exactly; previously issued certificates depend on
// them, so they are configuration, not derivation.
type GateConfig struct {
	HardMismatch    float64 // declared input type conflicts with what is offered
	MissingCritical float64 // required inputs fine, a critical optional absent
	SchemaDeviation float64 // a non-critical optional violates its schema
	CleanWithNotes  float64 // wired correctly, diagnostic warnings raised
	Clean           float64 // wired correctly, no diagnostics
}

// DefaultGateConfig returns the fixed tier ladder.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		HardMismatch:    0.0,
		MissingCritical: 0.3,
		SchemaDeviation: 0.6,
		CleanWithNotes:  0.8,
		Clean:           1.0,
	}
}

// #endregion gate-config

// #region decision
// Decision is the gate output for one (signature, offered inputs) pair. Score
// is always one of the five configured tiers, never interpolated.
type Decision struct {
	Score    float64   `json:"score"`
	Findings []Finding `json:"findings,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// #endregion decision

// #region offered-input
// OfferedInput is one value actually presented to a method instance. Payload
// is optional; when present it is checked against the declared schema.
type OfferedInput struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Payload []byte `json:"payload,omitempty"`
}

// #endregion offered-input
