package layer

// #region layer-symbol
// Symbol identifies one of the eight fixed scoring layers. The set is closed;
// adding or renaming a layer is a governance event, never a runtime decision.
type Symbol string

const (
	Base      Symbol = "@b"     // base quality
	Chain     Symbol = "@chain" // wiring compatibility
	Unit      Symbol = "@u"     // unit-of-analysis
	Question  Symbol = "@q"     // question compatibility
	Dimension Symbol = "@d"     // dimension compatibility
	Policy    Symbol = "@p"     // policy compatibility
	Interplay Symbol = "@C"     // interplay / contract
	Meta      Symbol = "@m"     // meta / governance
)

// All lists every layer symbol in canonical order.
var All = []Symbol{Base, Chain, Unit, Question, Dimension, Policy, Interplay, Meta}

// Valid reports whether s is one of the eight known symbols.
func (s Symbol) Valid() bool {
	switch s {
	case Base, Chain, Unit, Question, Dimension, Policy, Interplay, Meta:
		return true
	}
	return false
}

// #endregion layer-symbol

// #region method-role
// MethodRole classifies what a method does in the pipeline. Each role maps to
// a fixed subset of layers that must be scored for methods of that role.
type MethodRole string

const (
	RoleIngest    MethodRole = "INGEST"
	RoleStructure MethodRole = "STRUCTURE"
	RoleExtract   MethodRole = "EXTRACT"
	RoleScore     MethodRole = "SCORE"
	RoleAggregate MethodRole = "AGGREGATE"
	RoleReport    MethodRole = "REPORT"
	RoleMetaTool  MethodRole = "META_TOOL"
	RoleTransform MethodRole = "TRANSFORM"
)

// requiredLayers maps each role to the layers that must be scored for it.
// SCORE methods participate in every layer; infrastructure roles only in the
// wiring and governance layers.
var requiredLayers = map[MethodRole][]Symbol{
	RoleIngest:    {Base, Chain, Unit, Meta},
	RoleStructure: {Base, Chain, Unit, Interplay, Meta},
	RoleExtract:   {Base, Chain, Unit, Question, Dimension, Meta},
	RoleScore:     {Base, Chain, Unit, Question, Dimension, Policy, Interplay, Meta},
	RoleAggregate: {Base, Chain, Unit, Dimension, Policy, Interplay, Meta},
	RoleReport:    {Base, Chain, Unit, Policy, Meta},
	RoleMetaTool:  {Base, Chain, Meta},
	RoleTransform: {Base, Chain, Unit, Interplay, Meta},
}

// Valid reports whether r is a known role.
func (r MethodRole) Valid() bool {
	_, ok := requiredLayers[r]
	return ok
}

// RequiredLayers returns the layers that must be scored for role r, in
// canonical order. Unknown roles return nil.
func (r MethodRole) RequiredLayers() []Symbol {
	req := requiredLayers[r]
	out := make([]Symbol, len(req))
	copy(out, req)
	return out
}

// Requires reports whether role r requires layer s to be scored.
func (r MethodRole) Requires(s Symbol) bool {
	for _, l := range requiredLayers[r] {
		if l == s {
			return true
		}
	}
	return false
}

// #endregion method-role

// #region layer-scores
// Scores holds one score per layer for a single (method, context) evaluation.
// All values are in [0,1]; @chain is additionally restricted to the discrete
// set {0.0, 0.3, 0.6, 0.8, 1.0}.
type Scores map[Symbol]float64

// Clone returns an independent copy of the score map.
func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Bounded reports whether every score is in [0,1].
func (s Scores) Bounded() bool {
	for _, v := range s {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// #endregion layer-scores
