package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KPICommitment tracks planned versus actual output per schedule period.
// Planned quantities are seeded at commit time; actuals accrue afterwards as
// production entries land. VariancePct is nil when planned is zero.
type KPICommitment struct {
	ID          int              `gorm:"primary_key" json:"id"`
	TenantId    string           `gorm:"index;not null" json:"tenant_id"`
	ScheduleId  int              `gorm:"index;not null" json:"schedule_id"`
	PeriodDate  time.Time        `gorm:"not null" json:"period_date"`
	ShiftNo     int              `gorm:"not null" json:"shift_no"`
	PlannedQty  decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"planned_qty"`
	ActualQty   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"actual_qty"`
	Variance    decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"variance"`
	VariancePct *decimal.Decimal `gorm:"type:decimal(10,4)" json:"variance_pct"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
