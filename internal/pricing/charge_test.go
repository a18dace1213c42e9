package pricing

import (
	"errors"
	"testing"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

func TestBaseChargeByRateType(t *testing.T) {
	trip := &domain.TripRecord{ID: "t1", Distance: 8, Weight: 3, Volume: 2.5}

	tests := []struct {
		name string
		rule domain.RateRule
		want float64
	}{
		{"fixed", domain.RateRule{RateType: domain.RateFixed, BaseRate: 5000}, 5000},
		{"slab flat", domain.RateRule{RateType: domain.RateSlabBased, BaseRate: 750}, 750},
		{"zone flat", domain.RateRule{RateType: domain.RateZoneBased, BaseRate: 1200}, 1200},
		{"per distance", domain.RateRule{RateType: domain.RatePerDistance, BaseRate: 12}, 96},
		{"per weight", domain.RateRule{RateType: domain.RatePerWeight, BaseRate: 100}, 300},
		{"per volume", domain.RateRule{RateType: domain.RatePerVolume, BaseRate: 40}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := baseCharge(&tt.rule, trip)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

func TestBaseChargeMinimumClamp(t *testing.T) {
	trip := &domain.TripRecord{ID: "t1", Distance: 8}
	rule := &domain.RateRule{RateType: domain.RatePerDistance, BaseRate: 5, MinimumCharge: 50}

	got, err := baseCharge(rule, trip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 50 {
		t.Errorf("expected clamp to minimum 50, got %.2f", got)
	}
}

func TestBaseChargeUnsupportedRateType(t *testing.T) {
	rule := &domain.RateRule{ID: "r1", RateType: "HOURLY", BaseRate: 10}
	_, err := baseCharge(rule, &domain.TripRecord{})
	var rtErr *UnsupportedRateTypeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected UnsupportedRateTypeError, got %v", err)
	}
	if rtErr.RuleID != "r1" {
		t.Errorf("expected rule ID in error, got %q", rtErr.RuleID)
	}
}

func TestComponentAmount(t *testing.T) {
	pct := domain.ChargeComponent{Name: "handling", Magnitude: 10, IsPercentage: true}
	if got := componentAmount(pct, 100); got != 10 {
		t.Errorf("expected 10%% of 100 = 10, got %.2f", got)
	}

	abs := domain.ChargeComponent{Name: "toll", Magnitude: 250}
	if got := componentAmount(abs, 100); got != 250 {
		t.Errorf("expected absolute 250, got %.2f", got)
	}
}

func TestFuelAmount(t *testing.T) {
	fuel := &domain.FuelAdjustment{Enabled: true, BasePrice: 100, Factor: 0.5}

	// 10% price rise at factor 0.5 against a 200 base.
	if got := fuelAmount(fuel, 200, 110); got != 10 {
		t.Errorf("expected fuel adjustment 10, got %.2f", got)
	}

	// Price drop yields a negative adjustment.
	if got := fuelAmount(fuel, 200, 90); got != -10 {
		t.Errorf("expected fuel adjustment -10, got %.2f", got)
	}
}

func TestFuelAmountDisabledOrZeroReference(t *testing.T) {
	if got := fuelAmount(nil, 200, 110); got != 0 {
		t.Errorf("expected 0 for nil adjustment, got %.2f", got)
	}
	disabled := &domain.FuelAdjustment{Enabled: false, BasePrice: 100, Factor: 1}
	if got := fuelAmount(disabled, 200, 110); got != 0 {
		t.Errorf("expected 0 for disabled adjustment, got %.2f", got)
	}
	zeroRef := &domain.FuelAdjustment{Enabled: true, BasePrice: 0, Factor: 1}
	if got := fuelAmount(zeroRef, 200, 110); got != 0 {
		t.Errorf("expected 0 for zero reference price, got %.2f", got)
	}
}
