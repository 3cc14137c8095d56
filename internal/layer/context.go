package layer

import (
	"fmt"
	"regexp"
)

// #region patterns
var (
	dimensionPattern = regexp.MustCompile(`^DIM0[1-6]$`)
	policyPattern    = regexp.MustCompile(`^PA(0[1-9]|10)$`)
)

// #endregion patterns

// #region execution-context
// ExecutionContext pins one calibration evaluation to a question, dimension,
// policy, and unit quality. It is immutable after construction; malformed
// identifiers fail in NewExecutionContext, never later.
type ExecutionContext struct {
	QuestionID  string  `json:"question_id,omitempty"`
	DimensionID string  `json:"dimension_id"`
	PolicyID    string  `json:"policy_id"`
	UnitQuality float64 `json:"unit_quality"`
}

// NewExecutionContext validates the identifiers and bounds and returns the
// context. questionID may be empty for question-agnostic evaluations.
func NewExecutionContext(questionID, dimensionID, policyID string, unitQuality float64) (ExecutionContext, error) {
	if !dimensionPattern.MatchString(dimensionID) {
		return ExecutionContext{}, fmt.Errorf("execution context: dimension_id %q does not match DIM01..DIM06", dimensionID)
	}
	if !policyPattern.MatchString(policyID) {
		return ExecutionContext{}, fmt.Errorf("execution context: policy_id %q does not match PA01..PA10", policyID)
	}
	if unitQuality < 0 || unitQuality > 1 {
		return ExecutionContext{}, fmt.Errorf("execution context: unit_quality %.4f outside [0,1]", unitQuality)
	}
	return ExecutionContext{
		QuestionID:  questionID,
		DimensionID: dimensionID,
		PolicyID:    policyID,
		UnitQuality: unitQuality,
	}, nil
}

// Key returns a stable string form used for hashing and instance ids.
func (c ExecutionContext) Key() string {
	return fmt.Sprintf("%s|%s|%s|%.6f", c.QuestionID, c.DimensionID, c.PolicyID, c.UnitQuality)
}

// #endregion execution-context
