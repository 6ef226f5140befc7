package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Schedule is the committable view of an analysis run's allocation. DRAFT rows
// may be discarded freely; COMMITTED is terminal and binds the referenced orders.
type Schedule struct {
	ID          int            `gorm:"primary_key" json:"id"`
	TenantId    string         `gorm:"index;not null" json:"tenant_id"`
	RunId       string         `gorm:"size:36;index;not null" json:"run_id"`
	Status      ScheduleStatus `gorm:"type:enum('DRAFT','COMMITTED');not null;default:'DRAFT'" json:"status"`
	CommittedAt *time.Time     `json:"committed_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// ScheduleAssignment is one (order, line, period) allocation. Position keeps
// the assignment order stable so re-reads reproduce the run's allocation order.
type ScheduleAssignment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ScheduleId    int             `gorm:"index;not null" json:"schedule_id"`
	TenantId      string          `gorm:"index;not null" json:"tenant_id"`
	OrderId       int             `gorm:"index;not null" json:"order_id"`
	LineId        int             `gorm:"not null" json:"line_id"`
	PeriodDate    time.Time       `gorm:"not null" json:"period_date"`
	ShiftNo       int             `gorm:"not null" json:"shift_no"`
	AssignedQty   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"assigned_qty"`
	AssignedHours decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"assigned_hours"`
	Position      int             `gorm:"not null;default:0" json:"position"`
}
