package workflow

import (
	"sort"

	"github.com/mmdatafocus/planning_backend/models"
	"github.com/shopspring/decimal"
)

// ComponentRequirement is one exploded line of a bill of materials.
type ComponentRequirement struct {
	ComponentId int             `json:"component_id"`
	RequiredQty decimal.Decimal `json:"required_qty"`
}

// ExplodeBom expands a product's single-level BOM into required component
// quantities for the given order quantity. Required quantities are rounded UP
// to a multiple of the component's orderable unit: under-ordering materials is
// the worse failure mode. Sub-assemblies are out of scope, so there is no
// recursion here.
func ExplodeBom(details []models.BomDetail, orderQty decimal.Decimal) ([]ComponentRequirement, error) {
	if !orderQty.IsPositive() {
		return nil, models.ErrInvalidQuantity
	}
	if len(details) == 0 {
		return nil, models.ErrNoBomDefined
	}

	sorted := make([]models.BomDetail, len(details))
	copy(sorted, details)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})

	requirements := make([]ComponentRequirement, 0, len(sorted))
	for _, detail := range sorted {
		required := roundUpToUnit(detail.QtyPerUnit.Mul(orderQty), detail.OrderableUnit)
		requirements = append(requirements, ComponentRequirement{
			ComponentId: detail.ComponentId,
			RequiredQty: required,
		})
	}
	return requirements, nil
}

// roundUpToUnit rounds qty up to the next multiple of unit. A non-positive
// unit means the component is orderable in any fraction; the raw quantity is
// still ceiled to the next whole orderable step of 1 in that case.
func roundUpToUnit(qty decimal.Decimal, unit decimal.Decimal) decimal.Decimal {
	if !unit.IsPositive() {
		unit = decimal.NewFromInt(1)
	}
	steps := qty.Div(unit).Ceil()
	return steps.Mul(unit)
}
