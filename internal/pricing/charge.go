package pricing

import (
	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

// baseCharge computes the pre-component charge for a rule against a trip,
// clamped to the rule's minimum. Multiplicative rate types scale the base
// rate by the matching trip quantity; everything else is a flat amount.
func baseCharge(rule *domain.RateRule, trip *domain.TripRecord) (float64, error) {
	var amount float64
	switch rule.RateType {
	case domain.RateFixed, domain.RateSlabBased, domain.RateZoneBased:
		amount = rule.BaseRate
	case domain.RatePerDistance:
		amount = rule.BaseRate * trip.Distance
	case domain.RatePerWeight:
		amount = rule.BaseRate * trip.Weight
	case domain.RatePerVolume:
		amount = rule.BaseRate * trip.Volume
	default:
		return 0, &UnsupportedRateTypeError{RuleID: rule.ID, RateType: rule.RateType}
	}
	if amount < rule.MinimumCharge {
		amount = rule.MinimumCharge
	}
	return amount, nil
}

// componentAmount resolves a charge component to its monetary value.
// Percentage components are taken against the clamped base charge.
func componentAmount(comp domain.ChargeComponent, base float64) float64 {
	if comp.IsPercentage {
		return base * comp.Magnitude / 100
	}
	return comp.Magnitude
}

// fuelAmount computes the fuel adjustment for a rule. Disabled adjustments
// and a zero reference price both yield zero; the latter guards the
// division rather than producing an Inf charge.
func fuelAmount(fuel *domain.FuelAdjustment, base, currentPrice float64) float64 {
	if fuel == nil || !fuel.Enabled {
		return 0
	}
	if fuel.BasePrice == 0 {
		return 0
	}
	deltaPct := (currentPrice - fuel.BasePrice) / fuel.BasePrice * 100
	return base * deltaPct * fuel.Factor / 100
}
