// Package quote assembles pricing results into persisted quote documents
// with identity, currency, and timing metadata.
package quote

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/pricing"
)

// EngineVersion is stamped into quote metadata so a stored quote can be
// traced back to the engine build that produced it.
const EngineVersion = "ratesvc-1.0"

// Builder turns a pricing result into a quote document.
type Builder struct {
	// DefaultCurrency applies when the winning card carries no currency.
	DefaultCurrency string
}

// NewBuilder creates a builder with the given fallback currency.
func NewBuilder(defaultCurrency string) *Builder {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Builder{DefaultCurrency: defaultCurrency}
}

// BuildInput contains everything needed to assemble a quote.
type BuildInput struct {
	TenantID  string
	TraceID   string
	Trip      *domain.TripRecord
	Result    *pricing.PriceResult
	SelectMs  int64
	StartTime time.Time
}

// Build assembles a quote from a pricing result.
func (b *Builder) Build(ctx context.Context, input *BuildInput) *domain.Quote {
	start := time.Now()

	currency := input.Result.Currency
	if currency == "" {
		currency = b.DefaultCurrency
	}

	q := &domain.Quote{
		ID:        uuid.New().String(),
		TenantID:  input.TenantID,
		TripID:    input.Trip.ID,
		CardID:    input.Result.CardID,
		RuleID:    input.Result.RuleID,
		Currency:  currency,
		Breakdown: input.Result.Breakdown,
		Timestamp: time.Now().UTC(),
	}

	q.Metadata = domain.QuoteMetadata{
		TraceID:         input.TraceID,
		SelectMs:        input.SelectMs,
		PriceMs:         time.Since(start).Milliseconds(),
		TotalMs:         time.Since(input.StartTime).Milliseconds(),
		RulesConsidered: input.Result.RulesConsidered,
		EngineVersion:   EngineVersion,
	}

	return q
}

// Lines flattens a quote's breakdown into named lines in display order:
// base, additional charges, fuel, surcharges, discounts, total.
func Lines(q *domain.Quote) []domain.ChargeLine {
	lines := make([]domain.ChargeLine, 0, len(q.Breakdown.Additional)+len(q.Breakdown.Surcharges)+len(q.Breakdown.Discounts)+3)
	lines = append(lines, domain.ChargeLine{Name: "base", Amount: q.Breakdown.Base})
	lines = append(lines, q.Breakdown.Additional...)
	if q.Breakdown.FuelAdjustment != 0 {
		lines = append(lines, domain.ChargeLine{Name: "fuel adjustment", Amount: q.Breakdown.FuelAdjustment})
	}
	lines = append(lines, q.Breakdown.Surcharges...)
	for _, d := range q.Breakdown.Discounts {
		lines = append(lines, domain.ChargeLine{Name: d.Name, Amount: -d.Amount})
	}
	lines = append(lines, domain.ChargeLine{Name: "total", Amount: q.Breakdown.Total})
	return lines
}
