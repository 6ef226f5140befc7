package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/planning_backend/config"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const standardsCacheTTL = 5 * time.Minute

// StandardsCacheKey names the per-tenant Redis entry for cached production
// standards. Exposed so tools that rewrite standards can drop the stale entry.
func StandardsCacheKey(tenantId string) string {
	return fmt.Sprintf("planningStandards:%s", tenantId)
}

// LoadPlanningSnapshot reads everything one analysis run needs in a single
// pass. The tenant guard scopes every query; the explicit tenant id on the raw
// SQL below is the one place the guard cannot reach.
func LoadPlanningSnapshot(ctx context.Context, db *gorm.DB, tenantId string, periodStart time.Time, periodEnd time.Time, orderIds []int) (*PlanningSnapshot, error) {
	snapshot := &PlanningSnapshot{
		TenantId:    tenantId,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}

	var lines []models.ProductionLine
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&lines).Error; err != nil {
		return nil, err
	}
	snapshot.Lines = lines

	var shifts []models.ShiftDefinition
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("line_id, shift_no").Find(&shifts).Error; err != nil {
		return nil, err
	}
	snapshot.ShiftsByLine = make(map[int][]models.ShiftDefinition, len(lines))
	for _, shift := range shifts {
		snapshot.ShiftsByLine[shift.LineId] = append(snapshot.ShiftsByLine[shift.LineId], shift)
	}

	var days []models.WorkingDay
	if err := db.WithContext(ctx).
		Where("date >= ? AND date <= ? AND is_working = ?", periodStart, periodEnd, true).
		Order("calendar_id, date").
		Find(&days).Error; err != nil {
		return nil, err
	}
	snapshot.WorkingDaysByCalendar = make(map[int][]time.Time)
	for _, day := range days {
		snapshot.WorkingDaysByCalendar[day.CalendarId] = append(snapshot.WorkingDaysByCalendar[day.CalendarId], day.Date)
	}

	orderQuery := db.WithContext(ctx).Where("status = ?", models.OrderStatusPending)
	if len(orderIds) > 0 {
		orderQuery = orderQuery.Where("id IN ?", orderIds)
	}
	var orders []models.ManufacturingOrder
	if err := orderQuery.Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}
	snapshot.Orders = orders

	standards, err := loadStandardsMap(ctx, db, tenantId)
	if err != nil {
		return nil, err
	}
	snapshot.StandardsByProduct = standards

	scheduled, err := loadCommittedQtyByOrder(ctx, db, tenantId)
	if err != nil {
		return nil, err
	}
	snapshot.ScheduledQtyByOrder = scheduled

	return snapshot, nil
}

// loadStandardsMap reads the production standards through Redis. Standards are
// reference data edited rarely and read on every run, so a short TTL cache
// pays for itself; a cache miss or a dead Redis just falls through to MySQL.
func loadStandardsMap(ctx context.Context, db *gorm.DB, tenantId string) (map[int]models.ProductionStandard, error) {
	cacheKey := StandardsCacheKey(tenantId)

	var cached []models.ProductionStandard
	if found, err := config.GetRedisObject(cacheKey, &cached); err == nil && found {
		return standardsByProduct(cached), nil
	}

	var standards []models.ProductionStandard
	if err := db.WithContext(ctx).Order("product_id, id").Find(&standards).Error; err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(cacheKey, standards, standardsCacheTTL)
	return standardsByProduct(standards), nil
}

func standardsByProduct(standards []models.ProductionStandard) map[int]models.ProductionStandard {
	byProduct := make(map[int]models.ProductionStandard, len(standards))
	for _, standard := range standards {
		// First row per product wins; duplicates are a data-entry mistake and
		// the deterministic pick keeps re-runs stable.
		if _, exists := byProduct[standard.ProductId]; !exists {
			byProduct[standard.ProductId] = standard
		}
	}
	return byProduct
}

// loadCommittedQtyByOrder sums quantities already bound by COMMITTED schedules
// so a re-run only plans the remainder of each order.
func loadCommittedQtyByOrder(ctx context.Context, db *gorm.DB, tenantId string) (map[int]decimal.Decimal, error) {
	type orderQtyRow struct {
		OrderId  int             `gorm:"column:order_id"`
		TotalQty decimal.Decimal `gorm:"column:total_qty"`
	}
	var rows []orderQtyRow
	err := db.WithContext(ctx).Raw(`
		SELECT sa.order_id AS order_id, SUM(sa.assigned_qty) AS total_qty
		FROM schedule_assignments sa
		JOIN schedules s ON s.id = sa.schedule_id
		WHERE s.status = ? AND s.tenant_id = ? AND sa.tenant_id = ?
		GROUP BY sa.order_id`,
		models.ScheduleStatusCommitted, tenantId, tenantId).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	scheduled := make(map[int]decimal.Decimal, len(rows))
	for _, row := range rows {
		scheduled[row.OrderId] = row.TotalQty
	}
	return scheduled, nil
}

// LoadOrder fetches one order or ErrOrderNotFound.
func LoadOrder(ctx context.Context, db *gorm.DB, orderId int) (*models.ManufacturingOrder, error) {
	var order models.ManufacturingOrder
	err := db.WithContext(ctx).First(&order, orderId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LoadBomDetails returns the detail rows of a product's BOM, or ErrNoBomDefined
// when the product has no header.
func LoadBomDetails(ctx context.Context, db *gorm.DB, productId int) ([]models.BomDetail, error) {
	var header models.BomHeader
	err := db.WithContext(ctx).
		Preload("Details", func(tx *gorm.DB) *gorm.DB { return tx.Order("position, id") }).
		Where("product_id = ?", productId).
		First(&header).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNoBomDefined
	}
	if err != nil {
		return nil, err
	}
	if len(header.Details) == 0 {
		return nil, models.ErrNoBomDefined
	}
	return header.Details, nil
}

// LoadLatestStock returns the latest on-hand quantity per component. Only the
// newest snapshot per component counts; history is never merged.
func LoadLatestStock(ctx context.Context, db *gorm.DB, componentIds []int) (map[int]decimal.Decimal, error) {
	if len(componentIds) == 0 {
		return map[int]decimal.Decimal{}, nil
	}
	var snapshots []models.StockSnapshot
	err := db.WithContext(ctx).
		Where("component_id IN ?", componentIds).
		Order("component_id, as_of, id").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	onHand := make(map[int]decimal.Decimal, len(componentIds))
	for _, snapshot := range snapshots {
		// Rows are ordered oldest-first, so the last write per component wins.
		onHand[snapshot.ComponentId] = snapshot.OnHandQty
	}
	return onHand, nil
}
