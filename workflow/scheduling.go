package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/planning_backend/config"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/mmdatafocus/planning_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PersistAnalysisOutcome writes the run summary and its line-period rows
// inside the caller's transaction. Rows are append-only; a re-run never
// touches a previous run's rows.
func PersistAnalysisOutcome(ctx context.Context, tx *gorm.DB, outcome *AnalysisOutcome) error {
	run := models.CapacityAnalysisRun{
		RunId:               outcome.RunId,
		TenantId:            outcome.TenantId,
		PeriodStart:         outcome.PeriodStart,
		PeriodEnd:           outcome.PeriodEnd,
		ScenarioType:        outcome.ScenarioType,
		EfficiencyDefault:   outcome.EfficiencyDefault,
		BottleneckCeiling:   outcome.BottleneckCeiling,
		TotalOrdersPlaced:   outcome.TotalOrdersPlaced,
		TotalOrdersUnplaced: outcome.TotalOrdersUnplaced,
		BottleneckCount:     outcome.BottleneckCount,
		AvgUtilization:      outcome.AvgUtilization,
	}
	if err := tx.WithContext(ctx).Create(&run).Error; err != nil {
		return err
	}

	if len(outcome.LinePeriods) == 0 {
		return nil
	}
	results := make([]models.CapacityAnalysisResult, 0, len(outcome.LinePeriods))
	for _, period := range outcome.LinePeriods {
		isBottleneck := period.IsBottleneck
		results = append(results, models.CapacityAnalysisResult{
			RunId:            outcome.RunId,
			TenantId:         outcome.TenantId,
			LineId:           period.LineId,
			PeriodDate:       period.PeriodDate,
			ShiftNo:          period.ShiftNo,
			AvailableHours:   period.AvailableHours,
			PlannedLoadHours: period.PlannedLoadHours,
			Utilization:      period.Utilization,
			IsBottleneck:     &isBottleneck,
		})
	}
	return tx.WithContext(ctx).CreateInBatches(results, 200).Error
}

// BuildDraftSchedule materialises the run's allocation as a DRAFT schedule.
// The assignments are the run's assignments verbatim; Position preserves the
// first-fit order so re-reads reproduce it exactly.
func BuildDraftSchedule(ctx context.Context, tx *gorm.DB, outcome *AnalysisOutcome) (*models.Schedule, error) {
	schedule := models.Schedule{
		TenantId: outcome.TenantId,
		RunId:    outcome.RunId,
		Status:   models.ScheduleStatusDraft,
	}
	if err := tx.WithContext(ctx).Create(&schedule).Error; err != nil {
		return nil, err
	}

	if len(outcome.Assignments) > 0 {
		rows := make([]models.ScheduleAssignment, 0, len(outcome.Assignments))
		for position, assignment := range outcome.Assignments {
			rows = append(rows, models.ScheduleAssignment{
				ScheduleId:    schedule.ID,
				TenantId:      outcome.TenantId,
				OrderId:       assignment.OrderId,
				LineId:        assignment.LineId,
				PeriodDate:    assignment.PeriodDate,
				ShiftNo:       assignment.ShiftNo,
				AssignedQty:   assignment.AssignedQty,
				AssignedHours: assignment.AssignedHours,
				Position:      position,
			})
		}
		if err := tx.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
			return nil, err
		}
	}
	return &schedule, nil
}

// CommitSchedule promotes a DRAFT schedule to COMMITTED: flips the referenced
// orders PENDING -> SCHEDULED under a status-guarded update, stamps the
// schedule, and seeds the KPI commitments per (date, shift) period. All of it
// in one transaction; a conflicting order rolls the whole commit back.
//
// The redislock is a best-effort fast path to keep two commits of the same
// schedule from burning a transaction each; correctness comes from the
// in-transaction status checks, not the lock.
func CommitSchedule(ctx context.Context, tx *gorm.DB, collector *EventCollector, scheduleId int) (*models.Schedule, error) {
	var schedule models.Schedule
	err := tx.WithContext(ctx).First(&schedule, scheduleId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusCommitted {
		return nil, models.ErrAlreadyCommitted
	}

	var assignments []models.ScheduleAssignment
	if err := tx.WithContext(ctx).
		Where("schedule_id = ?", scheduleId).
		Order("position").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	for _, orderId := range distinctOrderIds(assignments) {
		if err := models.TransitionOrderStatus(tx.WithContext(ctx), orderId, models.OrderStatusPending, models.OrderStatusScheduled); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	result := tx.WithContext(ctx).Model(&models.Schedule{}).
		Where("id = ? AND status = ?", scheduleId, models.ScheduleStatusDraft).
		Updates(map[string]interface{}{
			"status":       models.ScheduleStatusCommitted,
			"committed_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, models.ErrAlreadyCommitted
	}
	schedule.Status = models.ScheduleStatusCommitted
	schedule.CommittedAt = &now

	if err := seedKPICommitments(ctx, tx, &schedule, assignments); err != nil {
		return nil, err
	}

	committedBy, _ := utils.GetUserIdFromContext(ctx)
	payload := map[string]interface{}{
		"schedule_id":  schedule.ID,
		"run_id":       schedule.RunId,
		"committed_at": now,
		"committed_by": committedBy,
		"order_count":  len(distinctOrderIds(assignments)),
	}
	if err := models.PublishPlanningEvent(ctx, tx, schedule.TenantId, models.EventScheduleCommitted, payload); err != nil {
		return nil, err
	}
	if collector != nil {
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		collector.Emit(models.EventScheduleCommitted, schedule.TenantId, correlationId, payload)
	}
	return &schedule, nil
}

// AcquireCommitLock takes the best-effort per-schedule commit lock. A nil
// release function means locking is unavailable (no Redis) and the commit
// proceeds on DB guarantees alone.
func AcquireCommitLock(ctx context.Context, scheduleId int) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, fmt.Sprintf("scheduleCommit:%d", scheduleId), 30*time.Second, nil)
	if err != nil {
		// redislock.ErrNotObtained included: fall through, the guarded
		// UPDATE settles the race.
		return func() {}
	}
	return func() { _ = lock.Release(context.Background()) }
}

func distinctOrderIds(assignments []models.ScheduleAssignment) []int {
	seen := make(map[int]bool, len(assignments))
	var ids []int
	for _, assignment := range assignments {
		if !seen[assignment.OrderId] {
			seen[assignment.OrderId] = true
			ids = append(ids, assignment.OrderId)
		}
	}
	return ids
}

// seedKPICommitments groups assignments by (date, shift) and writes one
// commitment row per period with the summed planned quantity.
func seedKPICommitments(ctx context.Context, tx *gorm.DB, schedule *models.Schedule, assignments []models.ScheduleAssignment) error {
	type periodKey struct {
		date    time.Time
		shiftNo int
	}
	planned := make(map[periodKey]decimal.Decimal)
	var keys []periodKey
	for _, assignment := range assignments {
		key := periodKey{date: assignment.PeriodDate, shiftNo: assignment.ShiftNo}
		if _, exists := planned[key]; !exists {
			keys = append(keys, key)
		}
		planned[key] = planned[key].Add(assignment.AssignedQty)
	}

	commitments := make([]models.KPICommitment, 0, len(keys))
	for _, key := range keys {
		commitments = append(commitments, models.KPICommitment{
			TenantId:   schedule.TenantId,
			ScheduleId: schedule.ID,
			PeriodDate: key.date,
			ShiftNo:    key.shiftNo,
			PlannedQty: planned[key],
			ActualQty:  decimal.Zero,
			Variance:   planned[key].Neg(),
		})
	}
	if len(commitments) == 0 {
		return nil
	}
	return tx.WithContext(ctx).CreateInBatches(commitments, 200).Error
}
