package workflow

import (
	"github.com/shopspring/decimal"
)

// ComponentCheckResult is the per-component outcome of an availability check.
// It is a report, not a ledger: recomputed on every run, never persisted as
// authoritative truth.
type ComponentCheckResult struct {
	ComponentId  int             `json:"component_id"`
	RequiredQty  decimal.Decimal `json:"required_qty"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	ShortageQty  decimal.Decimal `json:"shortage_qty"`
	IsShort      bool            `json:"is_short"`
}

type MaterialCheckResult struct {
	OrderId            int                    `json:"order_id"`
	Components         []ComponentCheckResult `json:"components"`
	HasAnyShortage     bool                   `json:"has_any_shortage"`
	WorstShortageRatio decimal.Decimal        `json:"worst_shortage_ratio"`
}

// ShortagePayload is the event body for ComponentShortageDetected.
type ShortagePayload struct {
	OrderId            int                    `json:"order_id"`
	WorstShortageRatio decimal.Decimal        `json:"worst_shortage_ratio"`
	Components         []ComponentCheckResult `json:"components"`
}

// EvaluateAvailability compares exploded requirements against on-hand stock.
// A component with no snapshot at all is treated as fully short (fail-safe,
// not fail-open): absence of data must never read as abundance of stock.
func EvaluateAvailability(orderId int, requirements []ComponentRequirement, onHand map[int]decimal.Decimal) MaterialCheckResult {
	result := MaterialCheckResult{
		OrderId:            orderId,
		Components:         make([]ComponentCheckResult, 0, len(requirements)),
		WorstShortageRatio: decimal.Zero,
	}

	for _, req := range requirements {
		available, hasSnapshot := onHand[req.ComponentId]
		if !hasSnapshot {
			available = decimal.Zero
		}
		if available.IsNegative() {
			available = decimal.Zero
		}

		shortage := req.RequiredQty.Sub(available)
		if shortage.IsNegative() {
			shortage = decimal.Zero
		}

		check := ComponentCheckResult{
			ComponentId:  req.ComponentId,
			RequiredQty:  req.RequiredQty,
			AvailableQty: available,
			ShortageQty:  shortage,
			IsShort:      shortage.IsPositive() || !hasSnapshot,
		}
		result.Components = append(result.Components, check)

		if check.IsShort {
			result.HasAnyShortage = true
		}
		if req.RequiredQty.IsPositive() {
			ratio := shortage.Div(req.RequiredQty)
			if ratio.GreaterThan(result.WorstShortageRatio) {
				result.WorstShortageRatio = ratio
			}
		}
	}
	return result
}
