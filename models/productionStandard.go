package models

import "github.com/shopspring/decimal"

// ProductionStandard maps a product to its engineered SAM (standard allowed
// minutes per unit). Immutable reference data within a planning run.
type ProductionStandard struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"index;not null" json:"tenant_id" binding:"required"`
	ProductId     int             `gorm:"index;not null" json:"product_id" binding:"required"`
	OperationCode string          `gorm:"size:100" json:"operation_code"`
	SamMinutes    decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"sam_minutes" binding:"required"`
}
