package forecast

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"supplyline/internal/store"
)

func TestOptimizationFlagsLowStock(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	item, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "KitchenAid Stand Mixer", SKU: "KITCH-KA-MIX",
		CurrentStock: 35, UnitCost: 250, SellingPrice: 429.99,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	// 30 units sold in the trailing month leaves 5 on hand, well under the
	// derived reorder point.
	if _, err := mem.ApplyStockMovement(ctx, store.MovementRequest{
		ItemID: item.ID, Type: store.MovementOut, Quantity: 30, Reason: "test sales",
	}); err != nil {
		t.Fatalf("apply movement: %v", err)
	}

	svc := NewService(mem, rand.New(rand.NewSource(3)))
	report, err := svc.Optimization(ctx)
	if err != nil {
		t.Fatalf("Optimization: %v", err)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("expected one recommendation, got %d", len(report.Recommendations))
	}

	rec := report.Recommendations[0]
	if rec.StockStatus != "low" || rec.Action != "reorder" || rec.Priority != "high" {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
	// daily velocity 1: optimal = 30 + 10.5, reorder point = 7 + 10.5.
	if rec.OptimalStock != 41 || rec.ReorderPoint != 18 {
		t.Fatalf("unexpected stock targets: %+v", rec)
	}
	if rec.MonthlyVelocity != 30 {
		t.Fatalf("unexpected velocity: %+v", rec)
	}
	if rec.CostImpact <= 0 {
		t.Fatalf("shortage risk must carry positive cost impact: %+v", rec)
	}
	if report.Summary.HighPriorityActions != 1 || report.Summary.RiskMitigationValue != rec.CostImpact {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
}

func TestOptimizationFlagsExcessStock(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Canon EOS R6 Camera", SKU: "CAM-CANON-R6",
		CurrentStock: 100, UnitCost: 60, SellingPrice: 99.99,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	svc := NewService(mem, rand.New(rand.NewSource(3)))
	report, err := svc.Optimization(ctx)
	if err != nil {
		t.Fatalf("Optimization: %v", err)
	}

	rec := report.Recommendations[0]
	if rec.StockStatus != "excess" || rec.Action != "reduce" || rec.Priority != "medium" {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
	// No velocity means the whole 100 units count as excess carrying cost.
	if math.Abs(rec.CostImpact-(-600)) > 1e-9 {
		t.Fatalf("unexpected cost impact: %v", rec.CostImpact)
	}
	if math.Abs(report.Summary.PotentialCostSavings-600) > 1e-9 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
}

func TestOptimizationOrdersByPriority(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Canon EOS R6 Camera", SKU: "CAM-CANON-R6",
		CurrentStock: 100, UnitCost: 60, SellingPrice: 99.99,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}
	low, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "KitchenAid Stand Mixer", SKU: "KITCH-KA-MIX",
		CurrentStock: 35, UnitCost: 250, SellingPrice: 429.99,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := mem.ApplyStockMovement(ctx, store.MovementRequest{
		ItemID: low.ID, Type: store.MovementOut, Quantity: 30, Reason: "test sales",
	}); err != nil {
		t.Fatalf("apply movement: %v", err)
	}

	svc := NewService(mem, rand.New(rand.NewSource(3)))
	report, err := svc.Optimization(ctx)
	if err != nil {
		t.Fatalf("Optimization: %v", err)
	}
	if len(report.Recommendations) != 2 {
		t.Fatalf("expected two recommendations, got %d", len(report.Recommendations))
	}
	if report.Recommendations[0].Priority != "high" {
		t.Fatalf("high priority must sort first: %+v", report.Recommendations)
	}
}

func TestInventoryTurnover(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Nike Air Max 270", SKU: "SHOE-NIKE-AM270",
		CurrentStock: 10, UnitCost: 50,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	svc := NewService(mem, rand.New(rand.NewSource(3)))
	// Inventory value 500, annual COGS 0.7 * 1000 * 12 = 8400.
	turnover, err := svc.InventoryTurnover(ctx, 1000)
	if err != nil {
		t.Fatalf("InventoryTurnover: %v", err)
	}
	if math.Abs(turnover-16.8) > 1e-9 {
		t.Fatalf("unexpected turnover: %v", turnover)
	}

	empty := NewService(store.NewMemory(), rand.New(rand.NewSource(3)))
	turnover, err = empty.InventoryTurnover(ctx, 1000)
	if err != nil {
		t.Fatalf("InventoryTurnover empty: %v", err)
	}
	if turnover != 0 {
		t.Fatalf("expected zero turnover with no inventory, got %v", turnover)
	}
}

func TestInsightsReportsTrendAndAlerts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Bounty Paper Towels 12-Pack", SKU: "HOME-BOUN-PT12",
		CurrentStock: 2, ReorderPoint: 5,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	svc := NewService(mem, rand.New(rand.NewSource(3)))
	report, err := svc.Insights(ctx, 1100, 1000)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if len(report.Insights) != 3 {
		t.Fatalf("expected three insights, got %d", len(report.Insights))
	}

	stock := report.Insights[0]
	if stock.Type != "stock_alert" || stock.Severity != "medium" {
		t.Fatalf("unexpected stock insight: %+v", stock)
	}
	trend := report.Insights[1]
	if trend.Trend != "up" {
		t.Fatalf("expected upward trend for 10%% growth: %+v", trend)
	}
	if report.Metrics.ItemsOptimized != 1 || report.Metrics.AlertsGenerated != 3 {
		t.Fatalf("unexpected metrics: %+v", report.Metrics)
	}
	if report.Metrics.ForecastAccuracy < 85 || report.Metrics.ForecastAccuracy > 95 {
		t.Fatalf("forecast accuracy out of range: %v", report.Metrics.ForecastAccuracy)
	}
	if len(report.ModelPerformance) != 2 {
		t.Fatalf("unexpected model performance: %+v", report.ModelPerformance)
	}
}
