package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CapacityAnalysisRun is the run-level summary of one analysis. Immutable once
// written; a re-run produces a new row, it never mutates an old one.
type CapacityAnalysisRun struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	RunId               string          `gorm:"size:36;uniqueIndex;not null" json:"run_id"`
	TenantId            string          `gorm:"index;not null" json:"tenant_id"`
	PeriodStart         time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd           time.Time       `gorm:"not null" json:"period_end"`
	ScenarioType        ScenarioType    `gorm:"size:50" json:"scenario_type"` // empty for baseline runs
	EfficiencyDefault   decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"efficiency_default"`
	BottleneckCeiling   decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"bottleneck_ceiling"`
	TotalOrdersPlaced   int             `gorm:"not null;default:0" json:"total_orders_placed"`
	TotalOrdersUnplaced int             `gorm:"not null;default:0" json:"total_orders_unplaced"`
	BottleneckCount     int             `gorm:"not null;default:0" json:"bottleneck_count"`
	AvgUtilization      decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"avg_utilization"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CapacityAnalysisResult is one line-period row of a run. A period is a
// (date, shift) pair. Rows are immutable, superseded by re-runs.
type CapacityAnalysisResult struct {
	ID               int             `gorm:"primary_key" json:"id"`
	RunId            string          `gorm:"size:36;index;not null" json:"run_id"`
	TenantId         string          `gorm:"index;not null" json:"tenant_id"`
	LineId           int             `gorm:"index;not null" json:"line_id"`
	PeriodDate       time.Time       `gorm:"not null" json:"period_date"`
	ShiftNo          int             `gorm:"not null" json:"shift_no"`
	AvailableHours   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"available_hours"`
	PlannedLoadHours decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"planned_load_hours"`
	Utilization      decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"utilization"`
	IsBottleneck     *bool           `gorm:"not null;default:false" json:"is_bottleneck"`
}
