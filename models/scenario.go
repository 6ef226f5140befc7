package models

import "time"

// Scenario records one what-if run. It owns a private analysis run and draft
// schedule (never the baseline's rows) and is immutable: re-running produces
// a new Scenario.
type Scenario struct {
	ID                string       `gorm:"primaryKey;size:36" json:"id"`
	TenantId          string       `gorm:"index;not null" json:"tenant_id"`
	ScenarioType      ScenarioType `gorm:"size:50;not null" json:"scenario_type"`
	Params            []byte       `gorm:"type:json" json:"params"`
	RunId             string       `gorm:"size:36;not null" json:"run_id"`
	ScheduleId        int          `gorm:"not null" json:"schedule_id"`
	BaselineRunId     string       `gorm:"size:36" json:"baseline_run_id"`
	ComparisonGroupId string       `gorm:"size:36;index" json:"comparison_group_id"`
	CreatedAt         time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
