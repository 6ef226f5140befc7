package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/planning_backend/config"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/mmdatafocus/planning_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ComputeVariance derives variance figures from planned and actual output.
// Variance is actual minus planned; the percentage is nil when planned is
// zero, because "how far off an empty plan" has no meaningful answer.
func ComputeVariance(planned decimal.Decimal, actual decimal.Decimal) (decimal.Decimal, *decimal.Decimal) {
	variance := actual.Sub(planned)
	if planned.IsZero() {
		return variance, nil
	}
	pct := variance.Div(planned).Mul(hundred).Round(4)
	return variance, &pct
}

// ActualProductionInput is one recorded production figure for a committed
// schedule's period.
type ActualProductionInput struct {
	ScheduleId int             `json:"schedule_id" binding:"required"`
	PeriodDate time.Time       `json:"period_date" binding:"required"`
	ShiftNo    int             `json:"shift_no" binding:"required"`
	ActualQty  decimal.Decimal `json:"actual_qty"`
}

// VarianceAlertPayload is the event body for KPIVarianceAlert.
type VarianceAlertPayload struct {
	ScheduleId  int             `json:"schedule_id"`
	PeriodDate  time.Time       `json:"period_date"`
	ShiftNo     int             `json:"shift_no"`
	PlannedQty  decimal.Decimal `json:"planned_qty"`
	ActualQty   decimal.Decimal `json:"actual_qty"`
	VariancePct decimal.Decimal `json:"variance_pct"`
}

// RecordActual books an actual quantity against a committed schedule's period
// commitment, recomputes the variance, and emits a variance alert when the
// deviation crosses the configured threshold in either direction.
//
// Actuals against DRAFT schedules are rejected: a draft is a proposal, there
// is nothing to deviate from yet. Repeated calls for the same period are
// last-write-wins, matching how shop-floor corrections arrive.
func RecordActual(ctx context.Context, tx *gorm.DB, collector *EventCollector, input ActualProductionInput) (*models.KPICommitment, error) {
	var schedule models.Schedule
	err := tx.WithContext(ctx).First(&schedule, input.ScheduleId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusCommitted {
		return nil, models.ErrScheduleNotCommitted
	}

	var commitment models.KPICommitment
	err = tx.WithContext(ctx).
		Where("schedule_id = ? AND period_date = ? AND shift_no = ?",
			input.ScheduleId, input.PeriodDate, input.ShiftNo).
		First(&commitment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Output on a period the schedule never planned: track it against a
		// zero plan rather than dropping the figure.
		commitment = models.KPICommitment{
			TenantId:   schedule.TenantId,
			ScheduleId: input.ScheduleId,
			PeriodDate: input.PeriodDate,
			ShiftNo:    input.ShiftNo,
			PlannedQty: decimal.Zero,
		}
	} else if err != nil {
		return nil, err
	}

	commitment.ActualQty = input.ActualQty
	commitment.Variance, commitment.VariancePct = ComputeVariance(commitment.PlannedQty, commitment.ActualQty)
	if err := tx.WithContext(ctx).Save(&commitment).Error; err != nil {
		return nil, err
	}

	if commitment.VariancePct != nil {
		threshold := config.VarianceAlertThresholdPct()
		if commitment.VariancePct.Abs().GreaterThan(threshold) {
			payload := VarianceAlertPayload{
				ScheduleId:  commitment.ScheduleId,
				PeriodDate:  commitment.PeriodDate,
				ShiftNo:     commitment.ShiftNo,
				PlannedQty:  commitment.PlannedQty,
				ActualQty:   commitment.ActualQty,
				VariancePct: utils.DereferencePtr(commitment.VariancePct),
			}
			if err := models.PublishPlanningEvent(ctx, tx, schedule.TenantId, models.EventKPIVarianceAlert, payload); err != nil {
				return nil, err
			}
			if collector != nil {
				correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
				collector.Emit(models.EventKPIVarianceAlert, schedule.TenantId, correlationId, payload)
			}
		}
	}
	return &commitment, nil
}

// GetVariance returns the commitment rows of one committed schedule in period
// order.
func GetVariance(ctx context.Context, db *gorm.DB, scheduleId int) ([]models.KPICommitment, error) {
	var schedule models.Schedule
	err := db.WithContext(ctx).First(&schedule, scheduleId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusCommitted {
		return nil, models.ErrScheduleNotCommitted
	}

	var commitments []models.KPICommitment
	err = db.WithContext(ctx).
		Where("schedule_id = ?", scheduleId).
		Order("period_date, shift_no").
		Find(&commitments).Error
	if err != nil {
		return nil, err
	}
	return commitments, nil
}
