package pricing

import (
	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

// keyMatches compares a rule key against a trip attribute. A wildcard key
// matches anything, including an empty attribute.
func keyMatches(ruleVal, tripVal string) bool {
	return ruleVal == domain.Wildcard || ruleVal == tripVal
}

// ruleMatches reports whether a rule's origin, destination and vehicle type
// keys all cover the trip.
func ruleMatches(rule *domain.RateRule, trip *domain.TripRecord) bool {
	return keyMatches(rule.Origin, trip.Origin) &&
		keyMatches(rule.Destination, trip.Destination) &&
		keyMatches(rule.VehicleType, trip.VehicleType)
}

// selectRule returns the first rule in card order whose keys cover the
// trip. Ties resolve by position; authors order cards from specific to
// general so wildcards act as fallbacks.
func selectRule(rules []*domain.RateRule, trip *domain.TripRecord) (*domain.RateRule, error) {
	for _, rule := range rules {
		if ruleMatches(rule, trip) {
			return rule, nil
		}
	}
	return nil, &NoApplicableRuleError{TripID: trip.ID}
}

// calculateCharge prices a trip against a single rule. The caller supplies
// the current fuel price; a conditions miss is reported as
// ConditionsNotMetError so callers can distinguish it from authoring
// defects.
func calculateCharge(rule *domain.RateRule, trip *domain.TripRecord, fuelPrice float64) (domain.ChargeBreakdown, error) {
	ok, err := conditionsMet(rule.Conditions, trip)
	if err != nil {
		return domain.ChargeBreakdown{}, err
	}
	if !ok {
		return domain.ChargeBreakdown{}, &ConditionsNotMetError{RuleID: rule.ID, TripID: trip.ID}
	}

	base, err := baseCharge(rule, trip)
	if err != nil {
		return domain.ChargeBreakdown{}, err
	}

	b := newBreakdownBuilder(base)
	for _, comp := range rule.Charges {
		ok, err := conditionsMet(comp.Conditions, trip)
		if err != nil {
			return domain.ChargeBreakdown{}, err
		}
		if !ok {
			continue
		}
		amount := componentAmount(comp, base)
		switch comp.Kind {
		case domain.ChargeDiscount:
			b.addDiscount(comp.Name, amount)
		case domain.ChargeSurcharge:
			b.addSurcharge(comp.Name, amount)
		default:
			b.addCharge(comp.Name, amount)
		}
	}

	if rule.Fuel != nil && rule.Fuel.Enabled {
		price := fuelPrice
		if price == 0 {
			price = rule.Fuel.CurrentPrice
		}
		b.setFuel(fuelAmount(rule.Fuel, base, price))
	}

	return b.finalize(), nil
}
