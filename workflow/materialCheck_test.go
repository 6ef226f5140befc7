package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEvaluateAvailabilityMissingSnapshotIsFullShortage(t *testing.T) {
	requirements := []ComponentRequirement{
		{ComponentId: 1, RequiredQty: decimal.NewFromInt(100)},
	}
	result := EvaluateAvailability(7, requirements, map[int]decimal.Decimal{})

	if !result.HasAnyShortage {
		t.Fatal("expected shortage when component has no snapshot")
	}
	check := result.Components[0]
	if !check.IsShort {
		t.Fatal("expected component flagged short")
	}
	if !check.AvailableQty.IsZero() {
		t.Fatalf("expected available 0, got %s", check.AvailableQty)
	}
	if !check.ShortageQty.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected shortage 100, got %s", check.ShortageQty)
	}
	if !result.WorstShortageRatio.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected worst ratio 1, got %s", result.WorstShortageRatio)
	}
}

func TestEvaluateAvailabilitySufficientStock(t *testing.T) {
	requirements := []ComponentRequirement{
		{ComponentId: 1, RequiredQty: decimal.NewFromInt(100)},
		{ComponentId: 2, RequiredQty: decimal.NewFromInt(40)},
	}
	onHand := map[int]decimal.Decimal{
		1: decimal.NewFromInt(150),
		2: decimal.NewFromInt(40),
	}
	result := EvaluateAvailability(7, requirements, onHand)

	if result.HasAnyShortage {
		t.Fatalf("expected no shortage, got %+v", result)
	}
	if !result.WorstShortageRatio.IsZero() {
		t.Fatalf("expected worst ratio 0, got %s", result.WorstShortageRatio)
	}
	for _, check := range result.Components {
		if check.IsShort || !check.ShortageQty.IsZero() {
			t.Fatalf("component %d unexpectedly short: %+v", check.ComponentId, check)
		}
	}
}

func TestEvaluateAvailabilityWorstRatioPicksDeepestShortage(t *testing.T) {
	requirements := []ComponentRequirement{
		{ComponentId: 1, RequiredQty: decimal.NewFromInt(100)}, // short 20 -> 0.2
		{ComponentId: 2, RequiredQty: decimal.NewFromInt(50)},  // short 30 -> 0.6
	}
	onHand := map[int]decimal.Decimal{
		1: decimal.NewFromInt(80),
		2: decimal.NewFromInt(20),
	}
	result := EvaluateAvailability(7, requirements, onHand)

	if !result.HasAnyShortage {
		t.Fatal("expected shortage")
	}
	if !result.WorstShortageRatio.Equal(decimal.NewFromFloat(0.6)) {
		t.Fatalf("expected worst ratio 0.6, got %s", result.WorstShortageRatio)
	}
}

func TestEvaluateAvailabilityNegativeStockReadsAsZero(t *testing.T) {
	requirements := []ComponentRequirement{
		{ComponentId: 1, RequiredQty: decimal.NewFromInt(10)},
	}
	onHand := map[int]decimal.Decimal{
		1: decimal.NewFromInt(-5),
	}
	result := EvaluateAvailability(7, requirements, onHand)

	if !result.Components[0].AvailableQty.IsZero() {
		t.Fatalf("expected available clamped to 0, got %s", result.Components[0].AvailableQty)
	}
	if !result.Components[0].ShortageQty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected shortage 10, got %s", result.Components[0].ShortageQty)
	}
}
