package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshot is a point-in-time on-hand figure per component. A newer
// snapshot supersedes the previous one (last write wins, no history merge);
// availability checks always read the latest row per component.
type StockSnapshot struct {
	ID          int             `gorm:"primary_key" json:"id"`
	TenantId    string          `gorm:"index;not null" json:"tenant_id" binding:"required"`
	ComponentId int             `gorm:"index;not null" json:"component_id" binding:"required"`
	OnHandQty   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"on_hand_qty"`
	AsOf        time.Time       `gorm:"not null" json:"as_of" binding:"required"`
}
