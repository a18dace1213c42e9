package domain

import "time"

// Wildcard matches any trip value in a rule's origin/destination/vehicle keys.
const Wildcard = "*"

// RateType determines how a rule's base charge is derived from the trip.
type RateType string

const (
	RateFixed       RateType = "FIXED"
	RatePerDistance RateType = "PER_DISTANCE"
	RatePerWeight   RateType = "PER_WEIGHT"
	RatePerVolume   RateType = "PER_VOLUME"
	RateSlabBased   RateType = "SLAB_BASED"
	RateZoneBased   RateType = "ZONE_BASED"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEquals           Operator = "EQUALS"
	OpNotEquals        Operator = "NOT_EQUALS"
	OpGreaterThan      Operator = "GREATER_THAN"
	OpLessThan         Operator = "LESS_THAN"
	OpGreaterThanEqual Operator = "GREATER_THAN_EQUAL"
	OpLessThanEqual    Operator = "LESS_THAN_EQUAL"
	OpBetween          Operator = "BETWEEN"
	OpIn               Operator = "IN"
	OpNotIn            Operator = "NOT_IN"
	OpContains         Operator = "CONTAINS"
)

// ChargeKind classifies a charge component. Discounts subtract from the
// total and surcharges add to it; every other kind lands in the additional
// charges section.
type ChargeKind string

const (
	ChargeLoading          ChargeKind = "LOADING"
	ChargeUnloading        ChargeKind = "UNLOADING"
	ChargeDetention        ChargeKind = "DETENTION"
	ChargeToll             ChargeKind = "TOLL"
	ChargePermit           ChargeKind = "PERMIT"
	ChargeMultipleDelivery ChargeKind = "MULTIPLE_DELIVERY"
	ChargeDiscount         ChargeKind = "DISCOUNT"
	ChargeSurcharge        ChargeKind = "SURCHARGE"
	ChargeOther            ChargeKind = "OTHER"
)

// Condition is a predicate over one trip field. Value holds the raw operand;
// BETWEEN expects "min,max" and IN/NOT_IN a comma-separated list.
type Condition struct {
	Parameter string   `json:"parameter"`
	Operator  Operator `json:"operator"`
	Value     string   `json:"value"`
}

// ChargeComponent is an optional add-on amount gated by its own conditions.
// When IsPercentage is set, Magnitude is a percentage of the base charge;
// otherwise it is an absolute amount.
type ChargeComponent struct {
	Name         string      `json:"name"`
	Kind         ChargeKind  `json:"kind"`
	Magnitude    float64     `json:"magnitude"`
	IsPercentage bool        `json:"isPercentage"`
	Conditions   []Condition `json:"conditions,omitempty"`
}

// FuelAdjustment derives a charge adjustment from the proportional change
// between a reference fuel price and the current price.
type FuelAdjustment struct {
	Enabled      bool    `json:"enabled"`
	BasePrice    float64 `json:"basePrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Factor       float64 `json:"factor"`
}

// RateRule is one pricing rule inside a rate card: matching keys, a rate
// type with base rate and minimum charge, gating conditions, ordered charge
// components, and at most one fuel adjustment. Guard optionally holds a CEL
// expression evaluated against the trip in addition to the conditions; it is
// compiled when the card is loaded.
type RateRule struct {
	ID            string            `json:"id"`
	CardID        string            `json:"cardId,omitempty"`
	Origin        string            `json:"origin"`
	Destination   string            `json:"destination"`
	VehicleType   string            `json:"vehicleType"`
	RateType      RateType          `json:"rateType"`
	BaseRate      float64           `json:"baseRate"`
	MinimumCharge float64           `json:"minimumCharge"`
	Conditions    []Condition       `json:"conditions,omitempty"`
	Charges       []ChargeComponent `json:"charges,omitempty"`
	Fuel          *FuelAdjustment   `json:"fuel,omitempty"`
	Guard         string            `json:"guard,omitempty"`
}

// RateCard is an ordered set of rate rules for one client and time window.
// Rule order is significant: when several rules match a trip, the first one
// in stored order wins.
type RateCard struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Currency string `json:"currency"`

	// Validity window; zero times leave the side open.
	ValidFrom time.Time `json:"validFrom,omitempty"`
	ValidTo   time.Time `json:"validTo,omitempty"`

	Rules   []*RateRule `json:"rules"`
	Enabled bool        `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// CoversDate reports whether the card's validity window contains t.
func (c *RateCard) CoversDate(t time.Time) bool {
	if !c.ValidFrom.IsZero() && t.Before(c.ValidFrom) {
		return false
	}
	if !c.ValidTo.IsZero() && t.After(c.ValidTo) {
		return false
	}
	return true
}
