package models

import (
	"log"

	"github.com/mmdatafocus/planning_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&ProductionLine{}, &ShiftDefinition{}, &WorkingCalendar{}, &WorkingDay{},
		&ManufacturingOrder{}, &ProductionStandard{},
		&BomHeader{}, &BomDetail{}, &StockSnapshot{},
		&CapacityAnalysisRun{}, &CapacityAnalysisResult{},
		&Schedule{}, &ScheduleAssignment{},
		&Scenario{}, &KPICommitment{},
		&PlanningEventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
