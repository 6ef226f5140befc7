package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/planning_backend/config"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/mmdatafocus/planning_backend/utils"
	"github.com/mmdatafocus/planning_backend/workflow"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seeds a small but complete planning dataset for one tenant: two lines on a
// Mon-Sat calendar, three products with standards and BOMs, stock snapshots
// and a handful of pending orders. Enough to exercise every planning endpoint
// against a fresh database.
func main() {
	tenantID := flag.String("tenant-id", "demo-tenant", "Tenant id to seed")
	startDate := flag.String("start", "", "Optional: first calendar date (YYYY-MM-DD). Defaults to next Monday.")
	weeks := flag.Int("weeks", 4, "Number of weeks of working days to seed")
	flag.Parse()

	tenant := strings.TrimSpace(*tenantID)
	if tenant == "" {
		fmt.Fprintln(os.Stderr, "tenant-id must not be empty")
		os.Exit(1)
	}

	// Explicit DB connect (config does not connect DB in init()).
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	start := nextMonday(time.Now().UTC())
	if strings.TrimSpace(*startDate) != "" {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(*startDate))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -start date: %v\n", err)
			os.Exit(1)
		}
		start = d.UTC()
	}

	// The seeder writes as an operator, not as a tenant: skip the tenant guard
	// so nothing in the transaction gets silently rescoped.
	ctx := utils.SetSkipTenantScopeInContext(context.Background())
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return seedTenant(tx, tenant, start, *weeks)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded tenant %s starting %s (%d weeks)\n", tenant, start.Format("2006-01-02"), *weeks)

	// Reseeding over a warm API leaves a stale standards cache behind; drop it
	// when a Redis address is configured.
	if strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != "" {
		config.ConnectRedisWithRetry()
		if err := config.RemoveRedisKey(workflow.StandardsCacheKey(tenant)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not invalidate standards cache: %v\n", err)
		}
	}

	// Print a token so the endpoints can be exercised immediately.
	token, err := utils.JwtGenerate(0, tenant, "planner")
	if err == nil {
		fmt.Printf("bearer token: %s\n", token)
	}
}

func nextMonday(from time.Time) time.Time {
	d := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func seedTenant(tx *gorm.DB, tenant string, start time.Time, weeks int) error {
	active := utils.Ptr(true)

	calendar := models.WorkingCalendar{TenantId: tenant, Name: "Mon-Sat"}
	if err := tx.Create(&calendar).Error; err != nil {
		return err
	}
	var days []models.WorkingDay
	for d := start; d.Before(start.AddDate(0, 0, weeks*7)); d = d.AddDate(0, 0, 1) {
		working := d.Weekday() != time.Sunday
		days = append(days, models.WorkingDay{
			TenantId:   tenant,
			CalendarId: calendar.ID,
			Date:       d,
			IsWorking:  utils.Ptr(working),
		})
	}
	if err := tx.CreateInBatches(days, 200).Error; err != nil {
		return err
	}

	lines := []models.ProductionLine{
		{TenantId: tenant, Name: "Line A", OperatorCount: 20, EfficiencyFactor: decimal.NewFromFloat(0.85), CalendarId: calendar.ID, IsActive: active},
		{TenantId: tenant, Name: "Line B", OperatorCount: 15, CalendarId: calendar.ID, IsActive: active},
	}
	if err := tx.Create(&lines).Error; err != nil {
		return err
	}
	shifts := []models.ShiftDefinition{
		{TenantId: tenant, LineId: lines[0].ID, ShiftNo: 1, Hours: decimal.NewFromInt(8), OperatorCount: 20, IsActive: active},
		{TenantId: tenant, LineId: lines[0].ID, ShiftNo: 2, Hours: decimal.NewFromInt(8), OperatorCount: 18, IsActive: active},
		{TenantId: tenant, LineId: lines[1].ID, ShiftNo: 1, Hours: decimal.NewFromInt(8), OperatorCount: 15, IsActive: active},
	}
	if err := tx.Create(&shifts).Error; err != nil {
		return err
	}

	standards := []models.ProductionStandard{
		{TenantId: tenant, ProductId: 1001, OperationCode: "SEW", SamMinutes: decimal.NewFromFloat(12.5)},
		{TenantId: tenant, ProductId: 1002, OperationCode: "SEW", SamMinutes: decimal.NewFromFloat(18.0)},
		{TenantId: tenant, ProductId: 1003, OperationCode: "ASSEMBLE", SamMinutes: decimal.NewFromFloat(7.25)},
	}
	if err := tx.Create(&standards).Error; err != nil {
		return err
	}

	for productId, components := range map[int][]models.BomDetail{
		1001: {
			{ComponentId: 2001, QtyPerUnit: decimal.NewFromFloat(1.2), OrderableUnit: decimal.NewFromInt(50), Position: 1},
			{ComponentId: 2002, QtyPerUnit: decimal.NewFromInt(4), OrderableUnit: decimal.NewFromInt(100), Position: 2},
		},
		1002: {
			{ComponentId: 2001, QtyPerUnit: decimal.NewFromFloat(2.4), OrderableUnit: decimal.NewFromInt(50), Position: 1},
			{ComponentId: 2003, QtyPerUnit: decimal.NewFromInt(1), OrderableUnit: decimal.NewFromInt(1), Position: 2},
		},
		1003: {
			{ComponentId: 2002, QtyPerUnit: decimal.NewFromInt(2), OrderableUnit: decimal.NewFromInt(100), Position: 1},
		},
	} {
		header := models.BomHeader{TenantId: tenant, ProductId: productId}
		if err := tx.Create(&header).Error; err != nil {
			return err
		}
		for i := range components {
			components[i].BomHeaderId = header.ID
		}
		if err := tx.Create(&components).Error; err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	stock := []models.StockSnapshot{
		{TenantId: tenant, ComponentId: 2001, OnHandQty: decimal.NewFromInt(5000), AsOf: now},
		{TenantId: tenant, ComponentId: 2002, OnHandQty: decimal.NewFromInt(800), AsOf: now},
		// Component 2003 deliberately has no snapshot: it will read as fully
		// short in material checks.
	}
	if err := tx.Create(&stock).Error; err != nil {
		return err
	}

	orders := []models.ManufacturingOrder{
		{TenantId: tenant, ProductId: 1001, Quantity: decimal.NewFromInt(1200), Priority: 1, RequestedDate: start.AddDate(0, 0, 5), Status: models.OrderStatusPending},
		{TenantId: tenant, ProductId: 1002, Quantity: decimal.NewFromInt(600), Priority: 2, RequestedDate: start.AddDate(0, 0, 10), Status: models.OrderStatusPending},
		{TenantId: tenant, ProductId: 1003, Quantity: decimal.NewFromInt(3000), Priority: 2, RequestedDate: start.AddDate(0, 0, 12), Status: models.OrderStatusPending},
		{TenantId: tenant, ProductId: 1001, Quantity: decimal.NewFromInt(400), Priority: 3, RequestedDate: start.AddDate(0, 0, 18), Status: models.OrderStatusPending},
	}
	return tx.Create(&orders).Error
}
