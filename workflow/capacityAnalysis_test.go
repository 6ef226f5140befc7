package workflow

import (
	"reflect"
	"testing"
	"time"

	"github.com/mmdatafocus/planning_backend/models"
	"github.com/shopspring/decimal"
)

var (
	testDay    = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	testActive = true
)

func baseOptions() AnalysisOptions {
	return AnalysisOptions{
		EfficiencyDefault: decimal.NewFromFloat(0.85),
		BottleneckCeiling: decimal.NewFromInt(1),
	}
}

// oneLineSnapshot builds a single line with one shift on one working day.
// operators x hours x efficiency gives the available hours.
func oneLineSnapshot(operators int, hours int64, efficiency float64, orders []models.ManufacturingOrder, standards map[int]models.ProductionStandard) *PlanningSnapshot {
	return &PlanningSnapshot{
		TenantId:    "t1",
		PeriodStart: testDay,
		PeriodEnd:   testDay,
		Lines: []models.ProductionLine{
			{ID: 1, TenantId: "t1", Name: "Line A", OperatorCount: operators, EfficiencyFactor: decimal.NewFromFloat(efficiency), CalendarId: 1, IsActive: &testActive},
		},
		ShiftsByLine: map[int][]models.ShiftDefinition{
			1: {{LineId: 1, ShiftNo: 1, Hours: decimal.NewFromInt(hours), OperatorCount: operators, IsActive: &testActive}},
		},
		WorkingDaysByCalendar: map[int][]time.Time{1: {testDay}},
		Orders:                orders,
		StandardsByProduct:    standards,
		ScheduledQtyByOrder:   map[int]decimal.Decimal{},
	}
}

func TestAnalysisPlacesFirstOrderFullySecondPartially(t *testing.T) {
	// One line, 8 available hours; two orders of 5 required hours each.
	orders := []models.ManufacturingOrder{
		{ID: 1, TenantId: "t1", ProductId: 100, Quantity: decimal.NewFromInt(5), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
		{ID: 2, TenantId: "t1", ProductId: 100, Quantity: decimal.NewFromInt(5), Priority: 2, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, OperationCode: "SEW", SamMinutes: decimal.NewFromInt(60)},
	}
	snapshot := oneLineSnapshot(1, 8, 1.0, orders, standards)

	outcome, err := RunCapacityAnalysis(snapshot, baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Placements) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(outcome.Placements))
	}
	first, second := outcome.Placements[0], outcome.Placements[1]
	if first.OrderId != 1 || !first.FullyPlaced || !first.PlacedHours.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("first order should be fully placed with 5h, got %+v", first)
	}
	if second.OrderId != 2 || second.FullyPlaced {
		t.Fatalf("second order should be partial, got %+v", second)
	}
	if !second.PlacedHours.Equal(decimal.NewFromInt(3)) || !second.UnplacedHours.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("second order should place 3h and leave 2h, got placed=%s unplaced=%s", second.PlacedHours, second.UnplacedHours)
	}

	if len(outcome.LinePeriods) != 1 {
		t.Fatalf("expected 1 line-period, got %d", len(outcome.LinePeriods))
	}
	period := outcome.LinePeriods[0]
	if !period.Utilization.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected utilization 1.0, got %s", period.Utilization)
	}
	if !period.IsBottleneck {
		t.Fatal("a fully loaded period is a bottleneck")
	}
	if outcome.TotalOrdersPlaced != 1 || outcome.TotalOrdersUnplaced != 1 {
		t.Fatalf("expected 1 placed / 1 unplaced, got %d/%d", outcome.TotalOrdersPlaced, outcome.TotalOrdersUnplaced)
	}
}

func TestAnalysisDemandBeyondCapacity(t *testing.T) {
	// SAM 2.0 min x 300 units = 10 required hours against 1 x 8h x 0.85 = 6.8h.
	orders := []models.ManufacturingOrder{
		{ID: 1, TenantId: "t1", ProductId: 100, Quantity: decimal.NewFromInt(300), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, OperationCode: "SEW", SamMinutes: decimal.NewFromFloat(2.0)},
	}
	snapshot := oneLineSnapshot(1, 8, 0.85, orders, standards)

	outcome, err := RunCapacityAnalysis(snapshot, baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	placement := outcome.Placements[0]
	if !placement.RequiredHours.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected required 10h, got %s", placement.RequiredHours)
	}
	if !placement.PlacedHours.Equal(decimal.NewFromFloat(6.8)) {
		t.Fatalf("expected placed 6.8h, got %s", placement.PlacedHours)
	}
	if !placement.UnplacedHours.Equal(decimal.NewFromFloat(3.2)) {
		t.Fatalf("expected unplaced 3.2h, got %s", placement.UnplacedHours)
	}

	period := outcome.LinePeriods[0]
	if !period.PlannedLoadHours.Equal(decimal.NewFromFloat(6.8)) {
		t.Fatalf("planned load must cap at available hours, got %s", period.PlannedLoadHours)
	}
	if !period.IsBottleneck {
		t.Fatal("exhausted period must be flagged bottleneck")
	}
	if outcome.TotalOrdersUnplaced != 1 {
		t.Fatalf("expected 1 unplaced order, got %d", outcome.TotalOrdersUnplaced)
	}
}

func TestUtilizationIsZeroWhenNoAvailableHours(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(10), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(60)},
	}
	snapshot := oneLineSnapshot(0, 8, 1.0, orders, standards)

	outcome, err := RunCapacityAnalysis(snapshot, baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	period := outcome.LinePeriods[0]
	if !period.AvailableHours.IsZero() {
		t.Fatalf("expected 0 available hours, got %s", period.AvailableHours)
	}
	if !period.Utilization.IsZero() {
		t.Fatalf("zero capacity must yield utilization 0, got %s", period.Utilization)
	}
	if period.IsBottleneck {
		t.Fatal("an idle period is not a bottleneck")
	}
	if outcome.TotalOrdersUnplaced != 1 {
		t.Fatalf("expected the order unplaced, got %d", outcome.TotalOrdersUnplaced)
	}
}

func TestAnalysisFailsWithoutActiveLines(t *testing.T) {
	inactive := false
	snapshot := &PlanningSnapshot{
		TenantId:    "t1",
		PeriodStart: testDay,
		PeriodEnd:   testDay,
		Lines: []models.ProductionLine{
			{ID: 1, CalendarId: 1, IsActive: &inactive},
		},
		ShiftsByLine:          map[int][]models.ShiftDefinition{},
		WorkingDaysByCalendar: map[int][]time.Time{1: {testDay}},
		ScheduledQtyByOrder:   map[int]decimal.Decimal{},
	}
	if _, err := RunCapacityAnalysis(snapshot, baseOptions()); err != models.ErrNoCapacityDefined {
		t.Fatalf("expected ErrNoCapacityDefined, got %v", err)
	}
}

func TestPlannedLoadNeverExceedsAvailableHours(t *testing.T) {
	var orders []models.ManufacturingOrder
	for i := 1; i <= 12; i++ {
		orders = append(orders, models.ManufacturingOrder{
			ID: i, ProductId: 100, Quantity: decimal.NewFromInt(int64(i * 37)),
			Priority: i % 3, RequestedDate: testDay.AddDate(0, 0, i%5), Status: models.OrderStatusPending,
		})
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromFloat(3.7)},
	}
	snapshot := oneLineSnapshot(10, 8, 0.85, orders, standards)
	snapshot.WorkingDaysByCalendar[1] = []time.Time{testDay, testDay.AddDate(0, 0, 1), testDay.AddDate(0, 0, 2)}

	outcome, err := RunCapacityAnalysis(snapshot, baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, period := range outcome.LinePeriods {
		if period.PlannedLoadHours.GreaterThan(period.AvailableHours) {
			t.Fatalf("period %v/%d overloaded: %s > %s", period.PeriodDate, period.ShiftNo, period.PlannedLoadHours, period.AvailableHours)
		}
		if period.Utilization.IsNegative() {
			t.Fatalf("negative utilization: %s", period.Utilization)
		}
	}
}

func TestAnalysisIsDeterministic(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 3, ProductId: 100, Quantity: decimal.NewFromInt(100), Priority: 2, RequestedDate: testDay, Status: models.OrderStatusPending},
		{ID: 1, ProductId: 101, Quantity: decimal.NewFromInt(50), Priority: 1, RequestedDate: testDay.AddDate(0, 0, 1), Status: models.OrderStatusPending},
		{ID: 2, ProductId: 100, Quantity: decimal.NewFromInt(75), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromFloat(4.5)},
		101: {ProductId: 101, SamMinutes: decimal.NewFromFloat(6.0)},
	}

	build := func() *PlanningSnapshot {
		s := oneLineSnapshot(5, 8, 0.9, orders, standards)
		s.WorkingDaysByCalendar[1] = []time.Time{testDay, testDay.AddDate(0, 0, 1)}
		return s
	}

	a, err := RunCapacityAnalysis(build(), baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := RunCapacityAnalysis(build(), baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// RunId is the only per-run value.
	b.RunId = a.RunId
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("re-run over identical input diverged:\n%+v\nvs\n%+v", a, b)
	}
}

func TestOvertimeNeverReducesAvailableHours(t *testing.T) {
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(60)},
	}
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(20), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}

	baseline, err := RunCapacityAnalysis(oneLineSnapshot(2, 8, 0.85, orders, standards), baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := baseOptions()
	opts.ScenarioType = models.ScenarioTypeOvertime
	opts.Overrides = &ScenarioOverrides{AvailableHoursFactor: decimal.NewFromFloat(1.10)}
	overtime, err := RunCapacityAnalysis(oneLineSnapshot(2, 8, 0.85, orders, standards), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range baseline.LinePeriods {
		if overtime.LinePeriods[i].AvailableHours.LessThan(baseline.LinePeriods[i].AvailableHours) {
			t.Fatalf("overtime reduced available hours: %s < %s",
				overtime.LinePeriods[i].AvailableHours, baseline.LinePeriods[i].AvailableHours)
		}
	}
}

func TestOrdersWithoutStandardAreReportedNotPlaced(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(10), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
		{ID: 2, ProductId: 999, Quantity: decimal.NewFromInt(10), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(30)},
	}
	outcome, err := RunCapacityAnalysis(oneLineSnapshot(2, 8, 1.0, orders, standards), baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.NoStandardOrderIds) != 1 || outcome.NoStandardOrderIds[0] != 2 {
		t.Fatalf("expected order 2 flagged as missing standard, got %v", outcome.NoStandardOrderIds)
	}
	for _, placement := range outcome.Placements {
		if placement.OrderId == 2 {
			t.Fatal("order without standard must not be placed")
		}
	}
}

func TestCommittedQuantityShrinksRemainingLoad(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(100), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(6)},
	}
	snapshot := oneLineSnapshot(4, 8, 1.0, orders, standards)
	snapshot.ScheduledQtyByOrder[1] = decimal.NewFromInt(40)

	outcome, err := RunCapacityAnalysis(snapshot, baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 60 remaining units x 6 min / 60 = 6 required hours.
	if !outcome.Placements[0].RequiredHours.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected 6 required hours for the remainder, got %s", outcome.Placements[0].RequiredHours)
	}
}

func TestLeadTimeDelayDropsOrdersBeforeMaterialReady(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(10), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
		{ID: 2, ProductId: 100, Quantity: decimal.NewFromInt(10), Priority: 1, RequestedDate: testDay.AddDate(0, 0, 10), Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(30)},
	}
	ready := testDay.AddDate(0, 0, 5)

	opts := baseOptions()
	opts.ScenarioType = models.ScenarioTypeLeadTimeDelay
	opts.Overrides = &ScenarioOverrides{MaterialReadyDate: &ready}
	outcome, err := RunCapacityAnalysis(oneLineSnapshot(2, 8, 1.0, orders, standards), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Placements) != 1 || outcome.Placements[0].OrderId != 2 {
		t.Fatalf("expected only order 2 to remain a candidate, got %+v", outcome.Placements)
	}
}

func TestFirstFitOrderingByPriorityThenDateThenId(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 5, ProductId: 100, Quantity: decimal.NewFromInt(1), Priority: 2, RequestedDate: testDay, Status: models.OrderStatusPending},
		{ID: 4, ProductId: 100, Quantity: decimal.NewFromInt(1), Priority: 1, RequestedDate: testDay.AddDate(0, 0, 1), Status: models.OrderStatusPending},
		{ID: 3, ProductId: 100, Quantity: decimal.NewFromInt(1), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
		{ID: 2, ProductId: 100, Quantity: decimal.NewFromInt(1), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(60)},
	}
	outcome, err := RunCapacityAnalysis(oneLineSnapshot(2, 8, 1.0, orders, standards), baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []int
	for _, placement := range outcome.Placements {
		got = append(got, placement.OrderId)
	}
	want := []int{2, 3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected placement order %v, got %v", want, got)
	}
}

func TestSyntheticLineAddsCapacity(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(100), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(60)},
	}

	opts := baseOptions()
	opts.ScenarioType = models.ScenarioTypeNewLine
	opts.Overrides = &ScenarioOverrides{SyntheticLines: []SyntheticLine{
		{Name: "Line X", OperatorCount: 3, ShiftHours: decimal.NewFromInt(8), EfficiencyFactor: decimal.NewFromInt(1)},
	}}
	outcome, err := RunCapacityAnalysis(oneLineSnapshot(1, 8, 1.0, orders, standards), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One real line-period plus one synthetic line-period, synthetic id = max real id + 1.
	if len(outcome.LinePeriods) != 2 {
		t.Fatalf("expected 2 line-periods, got %d", len(outcome.LinePeriods))
	}
	foundSynthetic := false
	for _, period := range outcome.LinePeriods {
		if period.LineId == 2 {
			foundSynthetic = true
			if !period.AvailableHours.Equal(decimal.NewFromInt(24)) {
				t.Fatalf("synthetic line should offer 3x8x1.0 = 24h, got %s", period.AvailableHours)
			}
		}
	}
	if !foundSynthetic {
		t.Fatal("expected a period on the synthetic line")
	}
}

func TestShiftCountOverrideClonesTheFirstShift(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(10), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, SamMinutes: decimal.NewFromInt(30)},
	}

	opts := baseOptions()
	opts.ScenarioType = models.ScenarioTypeThreeShift
	opts.Overrides = &ScenarioOverrides{ShiftCountOverride: 3}
	outcome, err := RunCapacityAnalysis(oneLineSnapshot(2, 8, 1.0, orders, standards), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.LinePeriods) != 3 {
		t.Fatalf("expected 3 line-periods with the shift override, got %d", len(outcome.LinePeriods))
	}
	for i, period := range outcome.LinePeriods {
		if period.ShiftNo != i+1 {
			t.Fatalf("expected shift numbers 1..3 in order, got %d at %d", period.ShiftNo, i)
		}
		if !period.AvailableHours.Equal(decimal.NewFromInt(16)) {
			t.Fatalf("cloned shifts must inherit the template capacity, got %s", period.AvailableHours)
		}
	}
}

func TestSubcontractFractionReducesRequiredHours(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, ProductId: 100, Quantity: decimal.NewFromInt(100), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, OperationCode: "SEW", SamMinutes: decimal.NewFromInt(6)},
	}

	opts := baseOptions()
	opts.ScenarioType = models.ScenarioTypeSubcontract
	opts.Overrides = &ScenarioOverrides{SubcontractFractionByOp: map[string]decimal.Decimal{
		"SEW": decimal.NewFromFloat(0.4),
	}}
	outcome, err := RunCapacityAnalysis(oneLineSnapshot(4, 8, 1.0, orders, standards), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100 x 6 / 60 = 10h, 40% moved off-site -> 6h in-house.
	if !outcome.Placements[0].RequiredHours.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected 6 in-house hours, got %s", outcome.Placements[0].RequiredHours)
	}
}

// unevenSlotSnapshot spreads one tiny order across many uneven shift slots so
// every split produces a fractional quantity that does not round cleanly.
func unevenSlotSnapshot(slotHours []float64, orders []models.ManufacturingOrder, standards map[int]models.ProductionStandard) *PlanningSnapshot {
	shifts := make([]models.ShiftDefinition, 0, len(slotHours))
	for i, hours := range slotHours {
		shifts = append(shifts, models.ShiftDefinition{
			LineId: 1, ShiftNo: i + 1, Hours: decimal.NewFromFloat(hours), OperatorCount: 1, IsActive: &testActive,
		})
	}
	return &PlanningSnapshot{
		TenantId:    "t1",
		PeriodStart: testDay,
		PeriodEnd:   testDay,
		Lines: []models.ProductionLine{
			{ID: 1, TenantId: "t1", Name: "Line A", OperatorCount: 1, EfficiencyFactor: decimal.NewFromInt(1), CalendarId: 1, IsActive: &testActive},
		},
		ShiftsByLine:          map[int][]models.ShiftDefinition{1: shifts},
		WorkingDaysByCalendar: map[int][]time.Time{1: {testDay}},
		Orders:                orders,
		StandardsByProduct:    standards,
		ScheduledQtyByOrder:   map[int]decimal.Decimal{},
	}
}

func TestAssignedQuantitySumsExactlyToOrderQuantity(t *testing.T) {
	// One unit at SAM 1 split across seven uneven slots. Per-slot rounding of
	// the converted quantity must never make the total drift past the order
	// quantity; the final slot absorbs the remainder exactly.
	orders := []models.ManufacturingOrder{
		{ID: 1, TenantId: "t1", ProductId: 100, Quantity: decimal.NewFromInt(1), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, OperationCode: "SEW", SamMinutes: decimal.NewFromInt(1)},
	}
	slots := []float64{0.000186, 0.000246, 0.000306, 0.000366, 0.000426, 0.000486, 0.05}
	snapshot := unevenSlotSnapshot(slots, orders, standards)

	outcome, err := RunCapacityAnalysis(snapshot, baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !outcome.Placements[0].FullyPlaced {
		t.Fatalf("order should be fully placed, got %+v", outcome.Placements[0])
	}
	if len(outcome.Assignments) != len(slots) {
		t.Fatalf("expected %d splits, got %d", len(slots), len(outcome.Assignments))
	}
	totalQty := decimal.Zero
	for _, assignment := range outcome.Assignments {
		if assignment.AssignedQty.IsNegative() {
			t.Fatalf("negative assigned qty: %+v", assignment)
		}
		totalQty = totalQty.Add(assignment.AssignedQty)
	}
	if !totalQty.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("assigned quantities must sum to the order quantity, got %s", totalQty)
	}
}

func TestAssignedQuantityNeverExceedsOrderQuantityWhenPartial(t *testing.T) {
	orders := []models.ManufacturingOrder{
		{ID: 1, TenantId: "t1", ProductId: 100, Quantity: decimal.NewFromInt(1), Priority: 1, RequestedDate: testDay, Status: models.OrderStatusPending},
	}
	standards := map[int]models.ProductionStandard{
		100: {ProductId: 100, OperationCode: "SEW", SamMinutes: decimal.NewFromInt(1)},
	}
	// Capacity covers only a sliver of the required hours.
	snapshot := unevenSlotSnapshot([]float64{0.000186, 0.000246}, orders, standards)

	outcome, err := RunCapacityAnalysis(snapshot, baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Placements[0].FullyPlaced {
		t.Fatal("order cannot be fully placed in this capacity")
	}
	totalQty := decimal.Zero
	for _, assignment := range outcome.Assignments {
		totalQty = totalQty.Add(assignment.AssignedQty)
	}
	if totalQty.GreaterThan(decimal.NewFromInt(1)) {
		t.Fatalf("partial placement must not over-assign quantity, got %s", totalQty)
	}
}
