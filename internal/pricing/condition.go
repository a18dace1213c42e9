// Package pricing implements the rate calculation engine: condition
// evaluation, rule selection, and charge composition against a catalog of
// rate cards.
package pricing

import (
	"strconv"
	"strings"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

// evaluateCondition reports whether a single condition holds for a trip.
// A missing trip parameter is "not met", never an error. A malformed
// operand or an unknown operator is an authoring defect and returns an
// error instead of a silent false.
func evaluateCondition(cond domain.Condition, trip *domain.TripRecord) (bool, error) {
	val, ok := trip.Field(cond.Parameter)
	if !ok {
		return false, nil
	}

	switch cond.Operator {
	case domain.OpEquals:
		return looseEquals(val, cond.Value), nil

	case domain.OpNotEquals:
		return !looseEquals(val, cond.Value), nil

	case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanEqual, domain.OpLessThanEqual:
		operand, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
		if err != nil {
			return false, &InvalidOperandError{Operator: cond.Operator, Operand: cond.Value}
		}
		num, numeric := val.Float()
		if !numeric {
			return false, nil
		}
		switch cond.Operator {
		case domain.OpGreaterThan:
			return num > operand, nil
		case domain.OpLessThan:
			return num < operand, nil
		case domain.OpGreaterThanEqual:
			return num >= operand, nil
		default:
			return num <= operand, nil
		}

	case domain.OpBetween:
		lo, hi, err := parseRange(cond.Value)
		if err != nil {
			return false, &InvalidOperandError{Operator: cond.Operator, Operand: cond.Value}
		}
		num, numeric := val.Float()
		if !numeric {
			return false, nil
		}
		return num >= lo && num <= hi, nil

	case domain.OpIn:
		return inList(val, cond.Value), nil

	case domain.OpNotIn:
		return !inList(val, cond.Value), nil

	case domain.OpContains:
		return strings.Contains(val.String(), cond.Value), nil

	default:
		return false, &UnsupportedOperatorError{Operator: cond.Operator, Parameter: cond.Parameter}
	}
}

// conditionsMet evaluates a condition list with logical AND. The first
// evaluation error aborts; a plain false short-circuits without error.
func conditionsMet(conds []domain.Condition, trip *domain.TripRecord) (bool, error) {
	for _, cond := range conds {
		ok, err := evaluateCondition(cond, trip)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// looseEquals compares numerically when the operand is numeric-looking and
// the value can be read as a number; otherwise it falls back to a string
// comparison of the stringified value.
func looseEquals(val domain.Value, operand string) bool {
	if o, err := strconv.ParseFloat(strings.TrimSpace(operand), 64); err == nil {
		if n, numeric := val.Float(); numeric {
			return n == o
		}
	}
	return val.String() == operand
}

func parseRange(operand string) (float64, float64, error) {
	parts := strings.Split(operand, ",")
	if len(parts) != 2 {
		return 0, 0, strconv.ErrSyntax
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func inList(val domain.Value, operand string) bool {
	s := val.String()
	for _, item := range strings.Split(operand, ",") {
		if strings.TrimSpace(item) == s {
			return true
		}
	}
	return false
}

// checkCondition statically validates a condition the way evaluation would,
// without a trip. Used when a rate card is loaded so authoring defects fail
// at load time instead of on the first matching trip.
func checkCondition(cond domain.Condition) error {
	switch cond.Operator {
	case domain.OpEquals, domain.OpNotEquals, domain.OpIn, domain.OpNotIn, domain.OpContains:
		return nil
	case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanEqual, domain.OpLessThanEqual:
		if _, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64); err != nil {
			return &InvalidOperandError{Operator: cond.Operator, Operand: cond.Value}
		}
		return nil
	case domain.OpBetween:
		if _, _, err := parseRange(cond.Value); err != nil {
			return &InvalidOperandError{Operator: cond.Operator, Operand: cond.Value}
		}
		return nil
	default:
		return &UnsupportedOperatorError{Operator: cond.Operator, Parameter: cond.Parameter}
	}
}
