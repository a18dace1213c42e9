package pricing

import (
	"math"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

// round2 rounds half away from zero to two decimal places. Applied when a
// line is added and again when the total is finalized, so intermediate and
// final figures agree with what an invoice would print.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// breakdownBuilder accumulates charge lines on top of a base charge and
// produces an immutable breakdown. Adding a line under a name that already
// exists overwrites the amount in place, keeping the original position.
type breakdownBuilder struct {
	base       float64
	additional []domain.ChargeLine
	discounts  []domain.ChargeLine
	surcharges []domain.ChargeLine
	fuel       float64
}

func newBreakdownBuilder(base float64) *breakdownBuilder {
	return &breakdownBuilder{base: round2(base)}
}

func upsertLine(lines []domain.ChargeLine, name string, amount float64) []domain.ChargeLine {
	for i := range lines {
		if lines[i].Name == name {
			lines[i].Amount = amount
			return lines
		}
	}
	return append(lines, domain.ChargeLine{Name: name, Amount: amount})
}

func (b *breakdownBuilder) addCharge(name string, amount float64) {
	b.additional = upsertLine(b.additional, name, round2(amount))
}

func (b *breakdownBuilder) addDiscount(name string, amount float64) {
	b.discounts = upsertLine(b.discounts, name, round2(amount))
}

func (b *breakdownBuilder) addSurcharge(name string, amount float64) {
	b.surcharges = upsertLine(b.surcharges, name, round2(amount))
}

func (b *breakdownBuilder) setFuel(amount float64) {
	b.fuel = round2(amount)
}

// finalize computes the total as base + additional + fuel + surcharges -
// discounts and returns the completed breakdown.
func (b *breakdownBuilder) finalize() domain.ChargeBreakdown {
	total := b.base + b.fuel
	for _, l := range b.additional {
		total += l.Amount
	}
	for _, l := range b.surcharges {
		total += l.Amount
	}
	for _, l := range b.discounts {
		total -= l.Amount
	}
	return domain.ChargeBreakdown{
		Base:           b.base,
		Additional:     b.additional,
		FuelAdjustment: b.fuel,
		Discounts:      b.discounts,
		Surcharges:     b.surcharges,
		Total:          round2(total),
	}
}
