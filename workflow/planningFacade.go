package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/planning_backend/config"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/mmdatafocus/planning_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrMissingTenant = errors.New("tenant id missing from context")

// PlanningFacade is the single entry point the HTTP layer talks to. Every
// operation follows the same shape: open a collector, run the work in one DB
// transaction, flush the collector only after commit. A rollback therefore
// discards both the rows and the events, in-process and outbox alike.
type PlanningFacade struct {
	DB     *gorm.DB
	Bus    *EventBus
	Logger *logrus.Logger
}

func NewPlanningFacade(db *gorm.DB, bus *EventBus, logger *logrus.Logger) *PlanningFacade {
	return &PlanningFacade{DB: db, Bus: bus, Logger: logger}
}

type AnalyzeRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
	// Optional subset of order ids; empty means all pending orders.
	OrderIds []int `json:"order_ids"`
}

type AnalyzeResponse struct {
	Outcome    *AnalysisOutcome `json:"outcome"`
	ScheduleId int              `json:"schedule_id"`
}

type analysisCompletedPayload struct {
	RunId               string `json:"run_id"`
	ScheduleId          int    `json:"schedule_id"`
	TotalOrdersPlaced   int    `json:"total_orders_placed"`
	TotalOrdersUnplaced int    `json:"total_orders_unplaced"`
	BottleneckCount     int    `json:"bottleneck_count"`
}

// Analyze runs a baseline capacity analysis and materialises its allocation as
// a DRAFT schedule in the same transaction.
func (f *PlanningFacade) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, ErrMissingTenant
	}

	collector := f.Bus.NewCollector()
	defer collector.Discard()

	var response *AnalyzeResponse
	err := f.DB.Transaction(func(tx *gorm.DB) error {
		outcome, scheduleId, err := f.runAndPersist(ctx, tx, collector, tenantId, req, "", nil)
		if err != nil {
			return err
		}
		response = &AnalyzeResponse{Outcome: outcome, ScheduleId: scheduleId}
		return nil
	})
	if err != nil {
		config.LogError(f.Logger, "workflow", "Analyze", "capacity analysis failed", logrus.Fields{"tenant_id": tenantId}, err)
		return nil, err
	}
	collector.Flush()
	return response, nil
}

// runAndPersist is the shared core of Analyze and RunScenario: run the
// pipeline over a fresh snapshot, persist the run rows and a draft schedule,
// queue the completion event. Caller owns the transaction.
func (f *PlanningFacade) runAndPersist(ctx context.Context, tx *gorm.DB, collector *EventCollector, tenantId string, req AnalyzeRequest, scenarioType models.ScenarioType, overrides *ScenarioOverrides) (*AnalysisOutcome, int, error) {
	snapshot, err := LoadPlanningSnapshot(ctx, tx, tenantId, req.PeriodStart, req.PeriodEnd, req.OrderIds)
	if err != nil {
		return nil, 0, err
	}

	outcome, err := RunCapacityAnalysis(snapshot, AnalysisOptions{
		EfficiencyDefault: config.DefaultEfficiencyFactor(),
		BottleneckCeiling: config.BottleneckCeiling(),
		ScenarioType:      scenarioType,
		Overrides:         overrides,
	})
	if err != nil {
		return nil, 0, err
	}

	if err := PersistAnalysisOutcome(ctx, tx, outcome); err != nil {
		return nil, 0, err
	}
	schedule, err := BuildDraftSchedule(ctx, tx, outcome)
	if err != nil {
		return nil, 0, err
	}

	payload := analysisCompletedPayload{
		RunId:               outcome.RunId,
		ScheduleId:          schedule.ID,
		TotalOrdersPlaced:   outcome.TotalOrdersPlaced,
		TotalOrdersUnplaced: outcome.TotalOrdersUnplaced,
		BottleneckCount:     outcome.BottleneckCount,
	}
	if err := models.PublishPlanningEvent(ctx, tx, tenantId, models.EventCapacityAnalysisCompleted, payload); err != nil {
		return nil, 0, err
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	collector.Emit(models.EventCapacityAnalysisCompleted, tenantId, correlationId, payload)

	return outcome, schedule.ID, nil
}

// CommitSchedule promotes a draft schedule. The per-schedule lock is a fast
// path; the transaction's guarded updates are the actual correctness story.
func (f *PlanningFacade) CommitSchedule(ctx context.Context, scheduleId int) (*models.Schedule, error) {
	release := AcquireCommitLock(ctx, scheduleId)
	defer release()

	collector := f.Bus.NewCollector()
	defer collector.Discard()

	var schedule *models.Schedule
	err := f.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		schedule, err = CommitSchedule(ctx, tx, collector, scheduleId)
		return err
	})
	if err != nil {
		return nil, err
	}
	collector.Flush()
	return schedule, nil
}

// CheckMaterials explodes the order's BOM and evaluates it against the latest
// stock snapshots. Read-only except for the shortage event, which still goes
// through the outbox so external subscribers hear about it.
func (f *PlanningFacade) CheckMaterials(ctx context.Context, orderId int) (*MaterialCheckResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, ErrMissingTenant
	}

	collector := f.Bus.NewCollector()
	defer collector.Discard()

	var result MaterialCheckResult
	err := f.DB.Transaction(func(tx *gorm.DB) error {
		order, err := LoadOrder(ctx, tx, orderId)
		if err != nil {
			return err
		}
		details, err := LoadBomDetails(ctx, tx, order.ProductId)
		if err != nil {
			return err
		}
		requirements, err := ExplodeBom(details, order.Quantity)
		if err != nil {
			return err
		}
		componentIds := make([]int, 0, len(requirements))
		for _, req := range requirements {
			componentIds = append(componentIds, req.ComponentId)
		}
		onHand, err := LoadLatestStock(ctx, tx, componentIds)
		if err != nil {
			return err
		}

		result = EvaluateAvailability(order.ID, requirements, onHand)
		if result.HasAnyShortage {
			payload := ShortagePayload{
				OrderId:            result.OrderId,
				WorstShortageRatio: result.WorstShortageRatio,
				Components:         result.Components,
			}
			if err := models.PublishPlanningEvent(ctx, tx, tenantId, models.EventComponentShortageDetected, payload); err != nil {
				return err
			}
			correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
			collector.Emit(models.EventComponentShortageDetected, tenantId, correlationId, payload)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	collector.Flush()
	return &result, nil
}

type ScenarioRequest struct {
	PeriodStart time.Time      `json:"period_start" binding:"required"`
	PeriodEnd   time.Time      `json:"period_end" binding:"required"`
	OrderIds    []int          `json:"order_ids"`
	Params      ScenarioParams `json:"params" binding:"required"`
	// BaselineRunId names an existing run to compare against; empty means
	// "run a fresh baseline alongside the scenario".
	BaselineRunId     string `json:"baseline_run_id"`
	ComparisonGroupId string `json:"comparison_group_id"`
}

type ScenarioResponse struct {
	Scenario *models.Scenario `json:"scenario"`
	Outcome  *AnalysisOutcome `json:"outcome"`
}

// RunScenario executes a what-if analysis. The scenario gets its own run and
// draft schedule; the baseline rows are never touched. When no baseline run is
// named, a fresh baseline is computed in the same transaction so the pair is
// consistent over one snapshot of the data.
func (f *PlanningFacade) RunScenario(ctx context.Context, req ScenarioRequest) (*ScenarioResponse, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, ErrMissingTenant
	}

	scenarioType, overrides, err := BuildOverrides(req.Params, req.PeriodStart)
	if err != nil {
		return nil, err
	}

	collector := f.Bus.NewCollector()
	defer collector.Discard()

	var response *ScenarioResponse
	err = f.DB.Transaction(func(tx *gorm.DB) error {
		analyzeReq := AnalyzeRequest{PeriodStart: req.PeriodStart, PeriodEnd: req.PeriodEnd, OrderIds: req.OrderIds}

		baselineRunId := req.BaselineRunId
		if baselineRunId == "" {
			baselineOutcome, _, err := f.runAndPersist(ctx, tx, collector, tenantId, analyzeReq, "", nil)
			if err != nil {
				return err
			}
			baselineRunId = baselineOutcome.RunId
		} else {
			var count int64
			if err := tx.WithContext(ctx).Model(&models.CapacityAnalysisRun{}).
				Where("run_id = ?", baselineRunId).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return utils.ErrorRecordNotFound
			}
		}

		outcome, scheduleId, err := f.runAndPersist(ctx, tx, collector, tenantId, analyzeReq, scenarioType, overrides)
		if err != nil {
			return err
		}

		params, err := utils.MarshalToJSON(req.Params)
		if err != nil {
			return err
		}
		groupId := req.ComparisonGroupId
		if groupId == "" {
			groupId = uuid.NewString()
		}
		scenario := models.Scenario{
			ID:                uuid.NewString(),
			TenantId:          tenantId,
			ScenarioType:      scenarioType,
			Params:            []byte(params),
			RunId:             outcome.RunId,
			ScheduleId:        scheduleId,
			BaselineRunId:     baselineRunId,
			ComparisonGroupId: groupId,
		}
		if err := tx.WithContext(ctx).Create(&scenario).Error; err != nil {
			return err
		}

		payload := map[string]interface{}{
			"scenario_id":     scenario.ID,
			"scenario_type":   scenarioType,
			"run_id":          outcome.RunId,
			"baseline_run_id": baselineRunId,
		}
		if err := models.PublishPlanningEvent(ctx, tx, tenantId, models.EventCapacityScenarioCreated, payload); err != nil {
			return err
		}
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		collector.Emit(models.EventCapacityScenarioCreated, tenantId, correlationId, payload)

		response = &ScenarioResponse{Scenario: &scenario, Outcome: outcome}
		return nil
	})
	if err != nil {
		config.LogError(f.Logger, "workflow", "RunScenario", "scenario run failed", logrus.Fields{"tenant_id": tenantId, "scenario_type": req.Params.ScenarioType}, err)
		return nil, err
	}
	collector.Flush()
	return response, nil
}

// CompareScenarios builds the side-by-side report for a comparison group. All
// scenarios in the group share one baseline; mixed baselines in a group are a
// caller mistake and the first scenario's baseline wins.
func (f *PlanningFacade) CompareScenarios(ctx context.Context, comparisonGroupId string) (*ScenarioComparisonReport, error) {
	var scenarios []models.Scenario
	err := f.DB.WithContext(ctx).
		Where("comparison_group_id = ?", comparisonGroupId).
		Order("created_at, id").
		Find(&scenarios).Error
	if err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	runIds := []string{scenarios[0].BaselineRunId}
	for _, scenario := range scenarios {
		runIds = append(runIds, scenario.RunId)
	}
	var runs []models.CapacityAnalysisRun
	if err := f.DB.WithContext(ctx).Where("run_id IN ?", runIds).Find(&runs).Error; err != nil {
		return nil, err
	}
	runsByRunId := make(map[string]models.CapacityAnalysisRun, len(runs))
	for _, run := range runs {
		runsByRunId[run.RunId] = run
	}
	baseline, ok := runsByRunId[scenarios[0].BaselineRunId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}

	report := CompareRuns(baseline, scenarios, runsByRunId)
	return &report, nil
}

// RecordActual books one actual production figure and flushes any variance
// alert after the transaction commits.
func (f *PlanningFacade) RecordActual(ctx context.Context, input ActualProductionInput) (*models.KPICommitment, error) {
	collector := f.Bus.NewCollector()
	defer collector.Discard()

	var commitment *models.KPICommitment
	err := f.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		commitment, err = RecordActual(ctx, tx, collector, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	collector.Flush()
	return commitment, nil
}

func (f *PlanningFacade) GetVariance(ctx context.Context, scheduleId int) ([]models.KPICommitment, error) {
	return GetVariance(ctx, f.DB, scheduleId)
}
