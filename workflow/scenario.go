package workflow

import (
	"time"

	"github.com/mmdatafocus/planning_backend/models"
	"github.com/mmdatafocus/planning_backend/utils"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// DefaultSubcontractFraction applies when a SUBCONTRACT scenario names an
// operation but no fraction.
var DefaultSubcontractFraction = decimal.NewFromFloat(0.40)

// ScenarioOverrides is the knob set a scenario turns before an analysis run.
// The zero value is a no-op: every factor defaults to 1, every list to empty.
// Overrides only exist for the lifetime of one run; the snapshot and the
// stored baseline rows are never mutated.
type ScenarioOverrides struct {
	// Multiplied into available-hours per line-period (OVERTIME > 1).
	AvailableHoursFactor decimal.Decimal
	// Multiplied into required-hours per order (SETUP_REDUCTION < 1).
	RequiredHoursFactor decimal.Decimal
	// Multiplied into the operator count per shift (ABSENTEEISM_SPIKE < 1).
	OperatorFactor decimal.Decimal
	// Forces every line to run exactly this many shifts (THREE_SHIFT = 3).
	ShiftCountOverride int
	// Extra lines that exist only inside this run (NEW_LINE).
	SyntheticLines []SyntheticLine
	// Orders requested before this date are excluded (LEAD_TIME_DELAY).
	MaterialReadyDate *time.Time
	// Fraction of load moved off-site, keyed by operation code (SUBCONTRACT).
	SubcontractFractionByOp map[string]decimal.Decimal
}

type SyntheticLine struct {
	Name             string
	OperatorCount    int
	ShiftHours       decimal.Decimal
	EfficiencyFactor decimal.Decimal
}

// normalized returns a non-nil receiver with all zero factors promoted to 1,
// so the pipeline can multiply unconditionally.
func (o *ScenarioOverrides) normalized() *ScenarioOverrides {
	if o == nil {
		return &ScenarioOverrides{}
	}
	return o
}

func (o *ScenarioOverrides) availableHoursFactor() decimal.Decimal {
	if o.AvailableHoursFactor.IsPositive() {
		return o.AvailableHoursFactor
	}
	return one
}

func (o *ScenarioOverrides) requiredHoursFactor() decimal.Decimal {
	if o.RequiredHoursFactor.IsPositive() {
		return o.RequiredHoursFactor
	}
	return one
}

func (o *ScenarioOverrides) operatorFactor() decimal.Decimal {
	if o.OperatorFactor.IsPositive() {
		return o.OperatorFactor
	}
	return one
}

// ScenarioParams is the request body for scenario runs. One flat shape covers
// all scenario types; BuildOverrides enforces which fields each type needs.
// MULTI_CONSTRAINT nests child param sets under Scenarios.
type ScenarioParams struct {
	ScenarioType string `json:"scenario_type" binding:"required"`

	ExtraHoursPct   decimal.Decimal `json:"extra_hours_pct,omitempty"`
	SamReductionPct decimal.Decimal `json:"sam_reduction_pct,omitempty"`

	OperationCode       string          `json:"operation_code,omitempty"`
	SubcontractFraction decimal.Decimal `json:"subcontract_fraction,omitempty"`

	LineName         string          `json:"line_name,omitempty"`
	OperatorCount    int             `json:"operator_count,omitempty"`
	ShiftHours       decimal.Decimal `json:"shift_hours,omitempty"`
	EfficiencyFactor decimal.Decimal `json:"efficiency_factor,omitempty"`

	ShiftCount int `json:"shift_count,omitempty"`
	DelayDays  int `json:"delay_days,omitempty"`

	AbsentPct decimal.Decimal `json:"absent_pct,omitempty"`

	Scenarios []ScenarioParams `json:"scenarios,omitempty"`
}

// BuildOverrides translates scenario parameters into run overrides. The switch
// is closed over the known types; an unknown type is a request error, never a
// silent baseline run. periodStart anchors LEAD_TIME_DELAY's day offset.
func BuildOverrides(params ScenarioParams, periodStart time.Time) (models.ScenarioType, *ScenarioOverrides, error) {
	scenarioType, err := models.ParseScenarioType(params.ScenarioType)
	if err != nil {
		return "", nil, err
	}

	overrides := &ScenarioOverrides{}
	switch scenarioType {
	case models.ScenarioTypeOvertime:
		if !params.ExtraHoursPct.IsPositive() {
			return "", nil, models.ErrInvalidScenarioParams
		}
		overrides.AvailableHoursFactor = one.Add(params.ExtraHoursPct.Div(hundred))

	case models.ScenarioTypeSetupReduction:
		if !params.SamReductionPct.IsPositive() || params.SamReductionPct.GreaterThanOrEqual(hundred) {
			return "", nil, models.ErrInvalidScenarioParams
		}
		overrides.RequiredHoursFactor = one.Sub(params.SamReductionPct.Div(hundred))

	case models.ScenarioTypeSubcontract:
		if params.OperationCode == "" {
			return "", nil, models.ErrInvalidScenarioParams
		}
		fraction := params.SubcontractFraction
		if !fraction.IsPositive() {
			fraction = DefaultSubcontractFraction
		}
		if fraction.GreaterThan(one) {
			return "", nil, models.ErrInvalidScenarioParams
		}
		overrides.SubcontractFractionByOp = map[string]decimal.Decimal{
			params.OperationCode: fraction,
		}

	case models.ScenarioTypeNewLine:
		if params.LineName == "" || params.OperatorCount <= 0 || !params.ShiftHours.IsPositive() {
			return "", nil, models.ErrInvalidScenarioParams
		}
		overrides.SyntheticLines = []SyntheticLine{{
			Name:             params.LineName,
			OperatorCount:    params.OperatorCount,
			ShiftHours:       params.ShiftHours,
			EfficiencyFactor: params.EfficiencyFactor,
		}}

	case models.ScenarioTypeThreeShift:
		shiftCount := params.ShiftCount
		if shiftCount == 0 {
			shiftCount = 3
		}
		if shiftCount < 1 || shiftCount > 4 {
			return "", nil, models.ErrInvalidScenarioParams
		}
		overrides.ShiftCountOverride = shiftCount

	case models.ScenarioTypeLeadTimeDelay:
		if params.DelayDays <= 0 {
			return "", nil, models.ErrInvalidScenarioParams
		}
		ready := periodStart.AddDate(0, 0, params.DelayDays)
		overrides.MaterialReadyDate = &ready

	case models.ScenarioTypeAbsenteeismSpike:
		if !params.AbsentPct.IsPositive() || params.AbsentPct.GreaterThanOrEqual(hundred) {
			return "", nil, models.ErrInvalidScenarioParams
		}
		overrides.OperatorFactor = one.Sub(params.AbsentPct.Div(hundred))

	case models.ScenarioTypeMultiConstraint:
		if len(params.Scenarios) < 2 {
			return "", nil, models.ErrInvalidScenarioParams
		}
		for _, child := range params.Scenarios {
			childType, childOverrides, err := BuildOverrides(child, periodStart)
			if err != nil {
				return "", nil, err
			}
			if childType == models.ScenarioTypeMultiConstraint {
				return "", nil, models.ErrInvalidScenarioParams
			}
			mergeOverrides(overrides, childOverrides)
		}
	}

	return scenarioType, overrides, nil
}

// mergeOverrides folds child overrides into dst: factors multiply, lists
// append, the latest material-ready date and the largest shift count win.
func mergeOverrides(dst *ScenarioOverrides, src *ScenarioOverrides) {
	dst.AvailableHoursFactor = dst.availableHoursFactor().Mul(src.availableHoursFactor())
	dst.RequiredHoursFactor = dst.requiredHoursFactor().Mul(src.requiredHoursFactor())
	dst.OperatorFactor = dst.operatorFactor().Mul(src.operatorFactor())
	if src.ShiftCountOverride > dst.ShiftCountOverride {
		dst.ShiftCountOverride = src.ShiftCountOverride
	}
	dst.SyntheticLines = append(dst.SyntheticLines, src.SyntheticLines...)
	if src.MaterialReadyDate != nil {
		if dst.MaterialReadyDate == nil || src.MaterialReadyDate.After(*dst.MaterialReadyDate) {
			dst.MaterialReadyDate = src.MaterialReadyDate
		}
	}
	for op, fraction := range src.SubcontractFractionByOp {
		if dst.SubcontractFractionByOp == nil {
			dst.SubcontractFractionByOp = make(map[string]decimal.Decimal)
		}
		dst.SubcontractFractionByOp[op] = fraction
	}
}

// ScenarioMetrics are the headline numbers of one persisted run.
type ScenarioMetrics struct {
	RunId               string              `json:"run_id"`
	ScenarioType        models.ScenarioType `json:"scenario_type,omitempty"`
	AvgUtilization      decimal.Decimal     `json:"avg_utilization"`
	TotalOrdersPlaced   int                 `json:"total_orders_placed"`
	TotalOrdersUnplaced int                 `json:"total_orders_unplaced"`
	BottleneckCount     int                 `json:"bottleneck_count"`
}

// ScenarioVariantReport pairs one scenario's metrics with its deltas against
// the baseline. Deltas are signed: negative unplaced-delta means the scenario
// placed more demand than the baseline did.
type ScenarioVariantReport struct {
	ScenarioId           string          `json:"scenario_id"`
	Params               ScenarioParams  `json:"params"`
	Metrics              ScenarioMetrics `json:"metrics"`
	AvgUtilizationDelta  decimal.Decimal `json:"avg_utilization_delta"`
	OrdersUnplacedDelta  int             `json:"orders_unplaced_delta"`
	BottleneckCountDelta int             `json:"bottleneck_count_delta"`
}

type ScenarioComparisonReport struct {
	Baseline  ScenarioMetrics         `json:"baseline"`
	Scenarios []ScenarioVariantReport `json:"scenarios"`
}

func metricsFromRun(run models.CapacityAnalysisRun) ScenarioMetrics {
	return ScenarioMetrics{
		RunId:               run.RunId,
		ScenarioType:        run.ScenarioType,
		AvgUtilization:      run.AvgUtilization,
		TotalOrdersPlaced:   run.TotalOrdersPlaced,
		TotalOrdersUnplaced: run.TotalOrdersUnplaced,
		BottleneckCount:     run.BottleneckCount,
	}
}

// CompareRuns builds the side-by-side report for persisted runs. Pure: callers
// load the rows, this only arranges them.
func CompareRuns(baseline models.CapacityAnalysisRun, scenarios []models.Scenario, runsByRunId map[string]models.CapacityAnalysisRun) ScenarioComparisonReport {
	report := ScenarioComparisonReport{
		Baseline:  metricsFromRun(baseline),
		Scenarios: make([]ScenarioVariantReport, 0, len(scenarios)),
	}
	for _, scenario := range scenarios {
		run, ok := runsByRunId[scenario.RunId]
		if !ok {
			continue
		}
		metrics := metricsFromRun(run)
		var params ScenarioParams
		if len(scenario.Params) > 0 {
			// Stored params are our own marshalled struct; a row predating a
			// schema change just reports empty params.
			_ = utils.UnmarshalFromJSON(scenario.Params, &params)
		}
		report.Scenarios = append(report.Scenarios, ScenarioVariantReport{
			ScenarioId:           scenario.ID,
			Params:               params,
			Metrics:              metrics,
			AvgUtilizationDelta:  metrics.AvgUtilization.Sub(report.Baseline.AvgUtilization),
			OrdersUnplacedDelta:  metrics.TotalOrdersUnplaced - report.Baseline.TotalOrdersUnplaced,
			BottleneckCountDelta: metrics.BottleneckCount - report.Baseline.BottleneckCount,
		})
	}
	return report
}
