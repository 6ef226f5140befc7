package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ManufacturingOrder is the demand side of a planning run. Creation belongs to
// the upstream CRUD layer; the scheduling workflow is the only writer of Status.
type ManufacturingOrder struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"index;not null" json:"tenant_id" binding:"required"`
	ProductId     int             `gorm:"index;not null" json:"product_id" binding:"required"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity" binding:"required"`
	Priority      int             `gorm:"not null;default:0" json:"priority"`
	RequestedDate time.Time       `gorm:"not null" json:"requested_date" binding:"required"`
	Status        OrderStatus     `gorm:"type:enum('PENDING','SCHEDULED','IN_PROGRESS','COMPLETE','CANCELLED');not null;default:'PENDING'" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TransitionOrderStatus moves one order through the state machine, guarded by
// the current status in the WHERE clause so racing writers cannot both win.
// Returns ErrOrderStateConflict when the row was not in `from` anymore.
func TransitionOrderStatus(tx *gorm.DB, orderId int, from OrderStatus, to OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	result := tx.Model(&ManufacturingOrder{}).
		Where("id = ? AND status = ?", orderId, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderStateConflict
	}
	return nil
}
