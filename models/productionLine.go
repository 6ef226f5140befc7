package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductionLine is created/edited by planners and only ever read by analysis runs.
type ProductionLine struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"index;not null" json:"tenant_id" binding:"required"`
	Name              string          `gorm:"size:255;not null" json:"name" binding:"required"`
	RatedHourlyOutput decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rated_hourly_output"`
	OperatorCount     int             `gorm:"not null;default:0" json:"operator_count"`
	// EfficiencyFactor of zero means "use the deployment default".
	EfficiencyFactor decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"efficiency_factor"`
	CalendarId       int             `gorm:"index;not null" json:"calendar_id"`
	IsActive         *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ShiftDefinition describes one shift slot on a line. ShiftNo is 1-based;
// a line running three shifts carries three rows.
type ShiftDefinition struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"index;not null" json:"tenant_id" binding:"required"`
	LineId        int             `gorm:"index;not null" json:"line_id" binding:"required"`
	ShiftNo       int             `gorm:"not null" json:"shift_no" binding:"required"`
	Hours         decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"hours" binding:"required"`
	OperatorCount int             `gorm:"not null;default:0" json:"operator_count"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
}

type WorkingCalendar struct {
	ID       int    `gorm:"primary_key" json:"id"`
	TenantId string `gorm:"index;not null" json:"tenant_id" binding:"required"`
	Name     string `gorm:"size:255;not null" json:"name" binding:"required"`
}

// WorkingDay marks a calendar date as a working or non-working day.
// Dates are stored at midnight UTC; the planning granularity is one day.
type WorkingDay struct {
	ID         int       `gorm:"primary_key" json:"id"`
	TenantId   string    `gorm:"index;not null" json:"tenant_id"`
	CalendarId int       `gorm:"index;not null" json:"calendar_id" binding:"required"`
	Date       time.Time `gorm:"not null" json:"date" binding:"required"`
	IsWorking  *bool     `gorm:"not null;default:true" json:"is_working"`
}
