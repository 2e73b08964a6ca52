package forecast

import (
	"context"
	"math/rand"
	"testing"

	"supplyline/internal/store"
)

func seedForecastStore(t *testing.T) (*store.Memory, store.InventoryItem) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	item, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Dell XPS 13 Laptop", SKU: "LAPTOP-DELL-XPS13",
		CurrentStock: 100, ReorderPoint: 8,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := mem.ApplyStockMovement(ctx, store.MovementRequest{
		ItemID: item.ID, Type: store.MovementOut, Quantity: 45, Reason: "test sales",
	}); err != nil {
		t.Fatalf("apply movement: %v", err)
	}
	return mem, item
}

func TestDemandForecastSingleItem(t *testing.T) {
	mem, item := seedForecastStore(t)
	svc := NewService(mem, rand.New(rand.NewSource(7)))

	report, err := svc.DemandForecast(context.Background(), item.ID, 30)
	if err != nil {
		t.Fatalf("DemandForecast: %v", err)
	}
	if report.ModelVersion != "v1.0-demo" {
		t.Fatalf("unexpected model version %q", report.ModelVersion)
	}
	if len(report.Forecasts) != 1 {
		t.Fatalf("expected one forecast, got %d", len(report.Forecasts))
	}

	fc := report.Forecasts[0]
	if fc.SKU != "LAPTOP-DELL-XPS13" {
		t.Fatalf("unexpected item: %+v", fc)
	}
	// 45 units over the 90-day window.
	if fc.AvgDailyDemand != 0.5 {
		t.Fatalf("expected avg daily demand 0.5, got %v", fc.AvgDailyDemand)
	}
	if len(fc.Forecast) != 7 {
		t.Fatalf("expected 7 rendered days, got %d", len(fc.Forecast))
	}
	for _, day := range fc.Forecast {
		if day.PredictedDemand < 0 {
			t.Fatalf("negative predicted demand: %+v", day)
		}
		if day.Confidence < 0.75 || day.Confidence > 0.95 {
			t.Fatalf("confidence out of range: %+v", day)
		}
	}
	if fc.ModelAccuracy < 0.80 || fc.ModelAccuracy > 0.95 {
		t.Fatalf("model accuracy out of range: %v", fc.ModelAccuracy)
	}
}

func TestDemandForecastDefaultsToDailyDemandOfOne(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Adidas Hoodie", SKU: "HOOD-ADID-CLAS", CurrentStock: 10,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	svc := NewService(mem, rand.New(rand.NewSource(7)))
	report, err := svc.DemandForecast(ctx, 0, 14)
	if err != nil {
		t.Fatalf("DemandForecast: %v", err)
	}
	if len(report.Forecasts) != 1 {
		t.Fatalf("expected one forecast, got %d", len(report.Forecasts))
	}
	if got := report.Forecasts[0].AvgDailyDemand; got != 1 {
		t.Fatalf("expected fallback demand 1, got %v", got)
	}
	if report.Forecasts[0].ForecastPeriod != "14 days" {
		t.Fatalf("unexpected period %q", report.Forecasts[0].ForecastPeriod)
	}
}

func TestDemandForecastUnknownItem(t *testing.T) {
	mem := store.NewMemory()
	svc := NewService(mem, rand.New(rand.NewSource(7)))
	if _, err := svc.DemandForecast(context.Background(), 42, 30); err == nil {
		t.Fatal("expected error for unknown item")
	}
}
