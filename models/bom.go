package models

import "github.com/shopspring/decimal"

// BomHeader owns the ordered detail rows of a product's single-level bill of
// materials. Sub-assemblies are intentionally not modelled.
type BomHeader struct {
	ID        int         `gorm:"primary_key" json:"id"`
	TenantId  string      `gorm:"index;not null" json:"tenant_id" binding:"required"`
	ProductId int         `gorm:"index;not null" json:"product_id" binding:"required"`
	Details   []BomDetail `gorm:"foreignKey:BomHeaderId" json:"details"`
}

type BomDetail struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BomHeaderId int             `gorm:"index;not null" json:"bom_header_id"`
	ComponentId int             `gorm:"index;not null" json:"component_id" binding:"required"`
	QtyPerUnit  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty_per_unit" binding:"required"`
	// OrderableUnit is the smallest quantity the component can be procured in.
	// Explosion rounds required quantities up to a multiple of it.
	OrderableUnit decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"orderable_unit"`
	Position      int             `gorm:"not null;default:0" json:"position"`
}
