package quote

import (
	"context"
	"testing"
	"time"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/pricing"
)

func testInput() *BuildInput {
	return &BuildInput{
		TenantID: "tenant-001",
		TraceID:  "trace-abc",
		Trip:     &domain.TripRecord{ID: "trip-001", TenantID: "tenant-001"},
		Result: &pricing.PriceResult{
			CardID:   "card-001",
			RuleID:   "rule-001",
			Currency: "INR",
			Breakdown: domain.ChargeBreakdown{
				Base:           1000,
				Additional:     []domain.ChargeLine{{Name: "loading", Amount: 150}},
				FuelAdjustment: 50,
				Surcharges:     []domain.ChargeLine{{Name: "night", Amount: 75}},
				Discounts:      []domain.ChargeLine{{Name: "contract", Amount: 100}},
				Total:          1175,
			},
			RulesConsidered: 3,
		},
		SelectMs:  2,
		StartTime: time.Now().Add(-5 * time.Millisecond),
	}
}

func TestBuildQuote(t *testing.T) {
	b := NewBuilder("USD")
	q := b.Build(context.Background(), testInput())

	if q.ID == "" {
		t.Error("expected generated quote ID")
	}
	if q.TripID != "trip-001" || q.CardID != "card-001" || q.RuleID != "rule-001" {
		t.Errorf("unexpected identity fields: %s %s %s", q.TripID, q.CardID, q.RuleID)
	}
	if q.Currency != "INR" {
		t.Errorf("expected card currency INR, got %s", q.Currency)
	}
	if q.Breakdown.Total != 1175 {
		t.Errorf("expected total 1175, got %.2f", q.Breakdown.Total)
	}
	if q.Metadata.TraceID != "trace-abc" {
		t.Errorf("expected trace ID propagated, got %s", q.Metadata.TraceID)
	}
	if q.Metadata.RulesConsidered != 3 {
		t.Errorf("expected 3 rules considered, got %d", q.Metadata.RulesConsidered)
	}
	if q.Metadata.EngineVersion != EngineVersion {
		t.Errorf("expected engine version stamp, got %s", q.Metadata.EngineVersion)
	}
	if q.Metadata.TotalMs < 0 {
		t.Errorf("expected non-negative total ms, got %d", q.Metadata.TotalMs)
	}
}

func TestBuildQuoteCurrencyFallback(t *testing.T) {
	b := NewBuilder("EUR")
	input := testInput()
	input.Result.Currency = ""

	q := b.Build(context.Background(), input)
	if q.Currency != "EUR" {
		t.Errorf("expected fallback currency EUR, got %s", q.Currency)
	}
}

func TestLinesOrderAndSigns(t *testing.T) {
	b := NewBuilder("USD")
	q := b.Build(context.Background(), testInput())

	lines := Lines(q)
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	if lines[0].Name != "base" || lines[0].Amount != 1000 {
		t.Errorf("expected base first, got %+v", lines[0])
	}
	if lines[4].Name != "contract" || lines[4].Amount != -100 {
		t.Errorf("expected negated discount, got %+v", lines[4])
	}
	if lines[5].Name != "total" || lines[5].Amount != 1175 {
		t.Errorf("expected total last, got %+v", lines[5])
	}
}
