package workflow

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// PlanningSnapshot is the in-memory, tenant-scoped view of everything a
// capacity run reads. It is loaded once per call (snapshotLoader.go) and never
// shared between runs, so concurrent analyses cannot observe each other.
type PlanningSnapshot struct {
	TenantId    string
	PeriodStart time.Time
	PeriodEnd   time.Time

	Lines                 []models.ProductionLine
	ShiftsByLine          map[int][]models.ShiftDefinition
	WorkingDaysByCalendar map[int][]time.Time

	Orders              []models.ManufacturingOrder
	StandardsByProduct  map[int]models.ProductionStandard
	ScheduledQtyByOrder map[int]decimal.Decimal
}

type AnalysisOptions struct {
	EfficiencyDefault decimal.Decimal
	BottleneckCeiling decimal.Decimal
	ScenarioType      models.ScenarioType // empty for baseline runs
	Overrides         *ScenarioOverrides
}

// LinePeriodResult is one (line, date, shift) row of the analysis.
type LinePeriodResult struct {
	LineId           int             `json:"line_id"`
	PeriodDate       time.Time       `json:"period_date"`
	ShiftNo          int             `json:"shift_no"`
	AvailableHours   decimal.Decimal `json:"available_hours"`
	PlannedLoadHours decimal.Decimal `json:"planned_load_hours"`
	Utilization      decimal.Decimal `json:"utilization"`
	IsBottleneck     bool            `json:"is_bottleneck"`
}

// OrderAssignment is one allocation block produced by the first-fit pass.
// The draft schedule persists these verbatim: the analysis and the schedule
// are two views of one allocation, consistent by construction.
type OrderAssignment struct {
	OrderId       int             `json:"order_id"`
	LineId        int             `json:"line_id"`
	PeriodDate    time.Time       `json:"period_date"`
	ShiftNo       int             `json:"shift_no"`
	AssignedQty   decimal.Decimal `json:"assigned_qty"`
	AssignedHours decimal.Decimal `json:"assigned_hours"`
}

// OrderPlacement summarises how much of one order the run could place.
type OrderPlacement struct {
	OrderId       int             `json:"order_id"`
	RequiredHours decimal.Decimal `json:"required_hours"`
	PlacedHours   decimal.Decimal `json:"placed_hours"`
	UnplacedHours decimal.Decimal `json:"unplaced_hours"`
	FullyPlaced   bool            `json:"fully_placed"`
}

type AnalysisOutcome struct {
	RunId             string              `json:"run_id"`
	TenantId          string              `json:"tenant_id"`
	PeriodStart       time.Time           `json:"period_start"`
	PeriodEnd         time.Time           `json:"period_end"`
	ScenarioType      models.ScenarioType `json:"scenario_type,omitempty"`
	EfficiencyDefault decimal.Decimal     `json:"efficiency_default"`
	BottleneckCeiling decimal.Decimal     `json:"bottleneck_ceiling"`

	LinePeriods []LinePeriodResult `json:"line_periods"`
	Assignments []OrderAssignment  `json:"assignments"`
	Placements  []OrderPlacement   `json:"placements"`

	// Orders excluded from load calculation because their product carries no
	// production standard. The run still succeeds; one bad reference-data row
	// must not block an entire planning run.
	NoStandardOrderIds []int `json:"no_standard_order_ids"`

	TotalOrdersPlaced   int             `json:"total_orders_placed"`
	TotalOrdersUnplaced int             `json:"total_orders_unplaced"`
	BottleneckCount     int             `json:"bottleneck_count"`
	AvgUtilization      decimal.Decimal `json:"avg_utilization"`
}

// linePeriod is the mutable working state of one (line, date, shift) slot.
type linePeriod struct {
	lineId         int
	date           time.Time
	shiftNo        int
	availableHours decimal.Decimal
	plannedLoad    decimal.Decimal
}

// candidateOrder pairs an order with its derived load figures.
type candidateOrder struct {
	order         models.ManufacturingOrder
	remainingQty  decimal.Decimal
	requiredHours decimal.Decimal
}

// RunCapacityAnalysis executes the fixed twelve-step derivation over one
// snapshot. Every step depends only on the output of prior steps; the whole
// function is pure, so identical inputs always produce identical results
// (the sort keys below are the only ordering anything relies on).
func RunCapacityAnalysis(snapshot *PlanningSnapshot, opts AnalysisOptions) (*AnalysisOutcome, error) {
	overrides := opts.Overrides.normalized()

	// 1) Resolve working days for the period range, per calendar.
	workingDays := resolveWorkingDays(snapshot)

	// 2) Resolve active lines (plus any synthetic scenario lines).
	lines, shiftsByLine := resolveLines(snapshot, overrides)
	if len(lines) == 0 {
		return nil, models.ErrNoCapacityDefined
	}

	// 3) Resolve shift definitions per line per day.
	// 4) Compute available-hours per line-period.
	periods := buildLinePeriods(lines, shiftsByLine, workingDays, opts.EfficiencyDefault, overrides)

	// 5) Filter candidate orders to those not already fully scheduled.
	candidates := filterCandidates(snapshot, overrides)

	// 6) Resolve the production standard per candidate; flag the ones without.
	// 7) Compute required-hours per order (SAM minutes x quantity / 60).
	loadable, noStandard := computeRequiredHours(candidates, snapshot.StandardsByProduct, overrides)

	// 8) Greedy first-fit accumulation in (priority, requested date, id) order.
	assignments, placements := assignOrders(loadable, periods)

	// 9)..11) Planned load, utilization, bottleneck flag per line-period.
	// 12) Emit one result row per line-period plus the run-level summary.
	outcome := &AnalysisOutcome{
		RunId:              uuid.NewString(),
		TenantId:           snapshot.TenantId,
		PeriodStart:        snapshot.PeriodStart,
		PeriodEnd:          snapshot.PeriodEnd,
		ScenarioType:       opts.ScenarioType,
		EfficiencyDefault:  opts.EfficiencyDefault,
		BottleneckCeiling:  opts.BottleneckCeiling,
		Assignments:        assignments,
		Placements:         placements,
		NoStandardOrderIds: noStandard,
	}

	utilizationSum := decimal.Zero
	utilizationCount := 0
	for _, period := range periods {
		utilization := decimal.Zero
		if period.availableHours.IsPositive() {
			// Zero available-hours yields utilization 0, not a division
			// error: a line with no scheduled hours is not infinitely loaded.
			utilization = period.plannedLoad.DivRound(period.availableHours, 6)
			utilizationSum = utilizationSum.Add(utilization)
			utilizationCount++
		}
		isBottleneck := utilization.IsPositive() && utilization.GreaterThanOrEqual(opts.BottleneckCeiling)
		if isBottleneck {
			outcome.BottleneckCount++
		}
		outcome.LinePeriods = append(outcome.LinePeriods, LinePeriodResult{
			LineId:           period.lineId,
			PeriodDate:       period.date,
			ShiftNo:          period.shiftNo,
			AvailableHours:   period.availableHours,
			PlannedLoadHours: period.plannedLoad,
			Utilization:      utilization,
			IsBottleneck:     isBottleneck,
		})
	}

	for _, placement := range placements {
		if placement.FullyPlaced {
			outcome.TotalOrdersPlaced++
		} else {
			// Partial placements count as unplaced: the remainder is real
			// demand the period range could not absorb.
			outcome.TotalOrdersUnplaced++
		}
	}
	if utilizationCount > 0 {
		outcome.AvgUtilization = utilizationSum.DivRound(decimal.NewFromInt(int64(utilizationCount)), 6)
	}

	return outcome, nil
}

func resolveWorkingDays(snapshot *PlanningSnapshot) map[int][]time.Time {
	resolved := make(map[int][]time.Time, len(snapshot.WorkingDaysByCalendar))
	for calendarId, days := range snapshot.WorkingDaysByCalendar {
		var inRange []time.Time
		for _, day := range days {
			if day.Before(snapshot.PeriodStart) || day.After(snapshot.PeriodEnd) {
				continue
			}
			inRange = append(inRange, day)
		}
		sort.Slice(inRange, func(i, j int) bool { return inRange[i].Before(inRange[j]) })
		resolved[calendarId] = inRange
	}
	return resolved
}

func resolveLines(snapshot *PlanningSnapshot, overrides *ScenarioOverrides) ([]models.ProductionLine, map[int][]models.ShiftDefinition) {
	lines := make([]models.ProductionLine, 0, len(snapshot.Lines))
	shiftsByLine := make(map[int][]models.ShiftDefinition, len(snapshot.Lines))

	maxLineId := 0
	for _, line := range snapshot.Lines {
		if line.IsActive != nil && !*line.IsActive {
			continue
		}
		lines = append(lines, line)
		if line.ID > maxLineId {
			maxLineId = line.ID
		}

		var shifts []models.ShiftDefinition
		for _, shift := range snapshot.ShiftsByLine[line.ID] {
			if shift.IsActive != nil && !*shift.IsActive {
				continue
			}
			shifts = append(shifts, shift)
		}
		sort.Slice(shifts, func(i, j int) bool { return shifts[i].ShiftNo < shifts[j].ShiftNo })
		shiftsByLine[line.ID] = shifts
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })

	// Synthetic lines inherit the first real line's calendar; with no real
	// lines there is no calendar to borrow and the synthetic line contributes
	// no periods.
	for i, synthetic := range overrides.SyntheticLines {
		calendarId := 0
		if len(lines) > 0 {
			calendarId = lines[0].CalendarId
		}
		lineId := maxLineId + 1 + i
		lines = append(lines, models.ProductionLine{
			ID:               lineId,
			TenantId:         snapshot.TenantId,
			Name:             synthetic.Name,
			OperatorCount:    synthetic.OperatorCount,
			EfficiencyFactor: synthetic.EfficiencyFactor,
			CalendarId:       calendarId,
		})
		shiftsByLine[lineId] = []models.ShiftDefinition{{
			LineId:        lineId,
			ShiftNo:       1,
			Hours:         synthetic.ShiftHours,
			OperatorCount: synthetic.OperatorCount,
		}}
	}

	// A forced shift count clones the first shift's template into the
	// missing slots (a third shift runs with the same crew and hours).
	if overrides.ShiftCountOverride > 0 {
		for lineId, shifts := range shiftsByLine {
			if len(shifts) == 0 {
				continue
			}
			template := shifts[0]
			have := make(map[int]bool, len(shifts))
			for _, s := range shifts {
				have[s.ShiftNo] = true
			}
			for no := 1; no <= overrides.ShiftCountOverride; no++ {
				if have[no] {
					continue
				}
				clone := template
				clone.ShiftNo = no
				shifts = append(shifts, clone)
			}
			sort.Slice(shifts, func(i, j int) bool { return shifts[i].ShiftNo < shifts[j].ShiftNo })
			if len(shifts) > overrides.ShiftCountOverride {
				shifts = shifts[:overrides.ShiftCountOverride]
			}
			shiftsByLine[lineId] = shifts
		}
	}

	return lines, shiftsByLine
}

func buildLinePeriods(lines []models.ProductionLine, shiftsByLine map[int][]models.ShiftDefinition, workingDays map[int][]time.Time, efficiencyDefault decimal.Decimal, overrides *ScenarioOverrides) []*linePeriod {
	var periods []*linePeriod
	for _, line := range lines {
		efficiency := line.EfficiencyFactor
		if !efficiency.IsPositive() {
			efficiency = efficiencyDefault
		}
		for _, day := range workingDays[line.CalendarId] {
			for _, shift := range shiftsByLine[line.ID] {
				operators := decimal.NewFromInt(int64(shift.OperatorCount))
				if shift.OperatorCount == 0 {
					operators = decimal.NewFromInt(int64(line.OperatorCount))
				}
				operators = operators.Mul(overrides.operatorFactor())
				available := operators.
					Mul(shift.Hours).
					Mul(efficiency).
					Mul(overrides.availableHoursFactor())
				if available.IsNegative() {
					available = decimal.Zero
				}
				periods = append(periods, &linePeriod{
					lineId:         line.ID,
					date:           day,
					shiftNo:        shift.ShiftNo,
					availableHours: available,
					plannedLoad:    decimal.Zero,
				})
			}
		}
	}
	// First-fit consumes periods chronologically; line then shift breaks ties.
	sort.Slice(periods, func(i, j int) bool {
		if !periods[i].date.Equal(periods[j].date) {
			return periods[i].date.Before(periods[j].date)
		}
		if periods[i].lineId != periods[j].lineId {
			return periods[i].lineId < periods[j].lineId
		}
		return periods[i].shiftNo < periods[j].shiftNo
	})
	return periods
}

func filterCandidates(snapshot *PlanningSnapshot, overrides *ScenarioOverrides) []candidateOrder {
	var candidates []candidateOrder
	for _, order := range snapshot.Orders {
		if order.Status != models.OrderStatusPending {
			continue
		}
		if overrides.MaterialReadyDate != nil && order.RequestedDate.Before(*overrides.MaterialReadyDate) {
			// Material cannot arrive in time for this order under the
			// simulated lead-time delay; it drops out of the candidate set.
			continue
		}
		remaining := order.Quantity.Sub(snapshot.ScheduledQtyByOrder[order.ID])
		if !remaining.IsPositive() {
			continue
		}
		candidates = append(candidates, candidateOrder{order: order, remainingQty: remaining})
	}
	return candidates
}

func computeRequiredHours(candidates []candidateOrder, standards map[int]models.ProductionStandard, overrides *ScenarioOverrides) ([]candidateOrder, []int) {
	loadable := make([]candidateOrder, 0, len(candidates))
	var noStandard []int
	for _, candidate := range candidates {
		standard, ok := standards[candidate.order.ProductId]
		if !ok || !standard.SamMinutes.IsPositive() {
			noStandard = append(noStandard, candidate.order.ID)
			continue
		}
		required := standard.SamMinutes.
			Mul(candidate.remainingQty).
			Div(sixty).
			Mul(overrides.requiredHoursFactor())
		if fraction, found := overrides.SubcontractFractionByOp[standard.OperationCode]; found && fraction.IsPositive() {
			required = required.Mul(decimal.NewFromInt(1).Sub(fraction))
		}
		candidate.requiredHours = required
		loadable = append(loadable, candidate)
	}
	sort.Slice(noStandard, func(i, j int) bool { return noStandard[i] < noStandard[j] })
	return loadable, noStandard
}

// assignOrders is the greedy first-fit pass. The sort key (priority, requested
// date, id) is explicit and stable so the allocation is reproducible; nothing
// here depends on map iteration order. Line-period capacity is filled exactly
// to its ceiling, never past it; whatever does not fit is reported unplaced.
func assignOrders(candidates []candidateOrder, periods []*linePeriod) ([]OrderAssignment, []OrderPlacement) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].order, candidates[j].order
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.RequestedDate.Equal(b.RequestedDate) {
			return a.RequestedDate.Before(b.RequestedDate)
		}
		return a.ID < b.ID
	})

	var assignments []OrderAssignment
	placements := make([]OrderPlacement, 0, len(candidates))

	for _, candidate := range candidates {
		remaining := candidate.requiredHours
		placed := decimal.Zero

		if candidate.requiredHours.IsPositive() {
			hoursPerUnit := candidate.requiredHours.Div(candidate.remainingQty)
			qtyLeft := candidate.remainingQty
			for _, period := range periods {
				if !remaining.IsPositive() {
					break
				}
				free := period.availableHours.Sub(period.plannedLoad)
				if !free.IsPositive() {
					continue
				}
				take := remaining
				if take.GreaterThan(free) {
					take = free
				}
				period.plannedLoad = period.plannedLoad.Add(take)
				remaining = remaining.Sub(take)
				placed = placed.Add(take)

				// Quantity conservation: intermediate splits truncate, the
				// final split absorbs the remainder, so per-order assigned
				// quantity never sums past the order's remaining quantity.
				var qty decimal.Decimal
				if remaining.IsPositive() {
					qty = take.Div(hoursPerUnit).Truncate(4)
					if qty.GreaterThan(qtyLeft) {
						qty = qtyLeft
					}
				} else {
					qty = qtyLeft
				}
				qtyLeft = qtyLeft.Sub(qty)

				assignments = append(assignments, OrderAssignment{
					OrderId:       candidate.order.ID,
					LineId:        period.lineId,
					PeriodDate:    period.date,
					ShiftNo:       period.shiftNo,
					AssignedQty:   qty,
					AssignedHours: take,
				})
			}
		}

		placements = append(placements, OrderPlacement{
			OrderId:       candidate.order.ID,
			RequiredHours: candidate.requiredHours,
			PlacedHours:   placed,
			UnplacedHours: remaining,
			FullyPlaced:   !remaining.IsPositive(),
		})
	}
	return assignments, placements
}
