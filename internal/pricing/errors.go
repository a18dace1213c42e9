package pricing

import (
	"fmt"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

// Calculation failures are typed so callers can tell trips with no
// applicable rule apart from rate card authoring defects. All of them are
// terminal for the single calculation; nothing is retried internally.

// NoApplicableRuleError reports that no rule's matching keys fit the trip.
type NoApplicableRuleError struct {
	TripID string
}

func (e *NoApplicableRuleError) Error() string {
	return fmt.Sprintf("no applicable rate rule for trip %q", e.TripID)
}

// ConditionsNotMetError reports that a selected rule's own conditions
// failed at calculation time. Selection should already have filtered the
// rule in, so this is surfaced rather than silently skipped.
type ConditionsNotMetError struct {
	RuleID string
	TripID string
}

func (e *ConditionsNotMetError) Error() string {
	return fmt.Sprintf("conditions of rule %q not met for trip %q", e.RuleID, e.TripID)
}

// UnsupportedRateTypeError reports a rate type the engine cannot price.
type UnsupportedRateTypeError struct {
	RuleID   string
	RateType domain.RateType
}

func (e *UnsupportedRateTypeError) Error() string {
	return fmt.Sprintf("rule %q: unsupported rate type %q", e.RuleID, e.RateType)
}

// UnsupportedOperatorError reports a condition operator the evaluator does
// not implement.
type UnsupportedOperatorError struct {
	Operator  domain.Operator
	Parameter string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q on parameter %q", e.Operator, e.Parameter)
}

// InvalidOperandError reports a condition operand that could not be parsed
// for its operator, e.g. a non-numeric bound for GREATER_THAN or a BETWEEN
// operand that is not "min,max".
type InvalidOperandError struct {
	Operator domain.Operator
	Operand  string
}

func (e *InvalidOperandError) Error() string {
	return fmt.Sprintf("operand %q is not valid for operator %q", e.Operand, e.Operator)
}
