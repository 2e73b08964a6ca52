package sim

import (
	"context"
	"math/rand"
	"testing"

	"supplyline/internal/logging"
	"supplyline/internal/store"
)

// scriptedSource replays a fixed sequence of Int63 values so tests can force
// the chance draws. A value of 0 makes Float64 return 0 (draw taken); a
// value of 1<<62 makes it return 0.5 (draw missed at the default chances).
// For Intn(16) the low 4 bits of value>>32 select the delta index.
type scriptedSource struct {
	values []int64
	i      int
}

func (s *scriptedSource) Int63() int64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func (s *scriptedSource) Seed(int64) {}

const (
	drawTaken  = int64(0)
	drawMissed = int64(1) << 62
)

// deltaDraw encodes an Intn(16) result of idx, i.e. a stock delta of idx-5.
func deltaDraw(idx int64) int64 { return idx << 32 }

func testConfig() Config {
	return Config{
		InventorySample:   5,
		DeliverySample:    2,
		StockChangeChance: 0.3,
		DeliveryAdvance:   0.2,
		MinStockDelta:     -5,
		MaxStockDelta:     10,
	}
}

func newTestEngine(t *testing.T, mem *store.Memory, script ...int64) *Engine {
	t.Helper()
	rng := rand.New(&scriptedSource{values: script})
	return NewEngine(mem, testConfig(), rng, nil, nil, logging.New("sim-test"))
}

func createItem(t *testing.T, mem *store.Memory, stock int) store.InventoryItem {
	t.Helper()
	item, err := mem.CreateInventoryItem(context.Background(), store.InventoryItem{
		Name: "Coleman 6-Person Tent", SKU: "TENT-COLE-6P",
		CurrentStock: stock, ReorderPoint: 8,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func TestInventoryStepAppliesRestock(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	item := createItem(t, mem, 20)

	// Chance taken, delta index 15 => +10.
	engine := newTestEngine(t, mem, drawTaken, deltaDraw(15))
	if err := engine.StepInventory(ctx); err != nil {
		t.Fatalf("StepInventory: %v", err)
	}

	got, err := mem.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.CurrentStock != 30 {
		t.Fatalf("expected stock 30 after restock, got %d", got.CurrentStock)
	}
	movements, err := mem.RecentStockMovements(ctx, 1)
	if err != nil {
		t.Fatalf("recent movements: %v", err)
	}
	if movements[0].MovementType != store.MovementIn || movements[0].Quantity != 10 {
		t.Fatalf("unexpected movement: %+v", movements[0])
	}
	if movements[0].Reason != "Automated restock simulation" {
		t.Fatalf("unexpected reason: %q", movements[0].Reason)
	}
}

func TestInventoryStepAppliesSale(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	item := createItem(t, mem, 20)

	// Chance taken, delta index 0 => -5.
	engine := newTestEngine(t, mem, drawTaken, deltaDraw(0))
	if err := engine.StepInventory(ctx); err != nil {
		t.Fatalf("StepInventory: %v", err)
	}

	got, err := mem.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.CurrentStock != 15 {
		t.Fatalf("expected stock 15 after sale, got %d", got.CurrentStock)
	}
	movements, err := mem.RecentStockMovements(ctx, 1)
	if err != nil {
		t.Fatalf("recent movements: %v", err)
	}
	if movements[0].Reason != "Automated sale simulation" {
		t.Fatalf("unexpected reason: %q", movements[0].Reason)
	}
}

func TestInventoryStepSkipsSaleThatWouldDriveStockNegative(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	item := createItem(t, mem, 3)

	// Chance taken, delta -5, but stock is only 3: no movement.
	engine := newTestEngine(t, mem, drawTaken, deltaDraw(0))
	if err := engine.StepInventory(ctx); err != nil {
		t.Fatalf("StepInventory: %v", err)
	}

	got, err := mem.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.CurrentStock != 3 {
		t.Fatalf("expected stock unchanged at 3, got %d", got.CurrentStock)
	}
	movements, err := mem.RecentStockMovements(ctx, 10)
	if err != nil {
		t.Fatalf("recent movements: %v", err)
	}
	// Only the initial-stock movement from item creation.
	if len(movements) != 1 {
		t.Fatalf("expected no simulation movement, got %+v", movements)
	}
}

func TestInventoryStepMissedChanceLeavesStockAlone(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	item := createItem(t, mem, 20)

	engine := newTestEngine(t, mem, drawMissed)
	if err := engine.StepInventory(ctx); err != nil {
		t.Fatalf("StepInventory: %v", err)
	}

	got, err := mem.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.CurrentStock != 20 {
		t.Fatalf("expected stock unchanged, got %d", got.CurrentStock)
	}
}

func TestDeliveryStepAdvancesExactlyOneStep(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	created, err := mem.CreateDelivery(ctx, store.Delivery{
		DeliveryNumber: "DEL-TEST-1",
		Status:         store.DeliveryPending,
	})
	if err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	engine := newTestEngine(t, mem, drawTaken)
	if err := engine.StepDeliveries(ctx); err != nil {
		t.Fatalf("StepDeliveries: %v", err)
	}

	got, err := mem.GetDelivery(ctx, created.ID)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if got.Status != store.DeliveryAssigned {
		t.Fatalf("expected ASSIGNED after one forced step, got %s", got.Status)
	}
}

func TestDeliveryStepMissedChanceLeavesStatusAlone(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	created, err := mem.CreateDelivery(ctx, store.Delivery{
		DeliveryNumber: "DEL-TEST-2",
		Status:         store.DeliveryAssigned,
	})
	if err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	engine := newTestEngine(t, mem, drawMissed)
	if err := engine.StepDeliveries(ctx); err != nil {
		t.Fatalf("StepDeliveries: %v", err)
	}

	got, err := mem.GetDelivery(ctx, created.ID)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if got.Status != store.DeliveryAssigned {
		t.Fatalf("expected status unchanged, got %s", got.Status)
	}
}

func TestDisabledEngineIsInert(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	item := createItem(t, mem, 20)
	delivery, err := mem.CreateDelivery(ctx, store.Delivery{
		DeliveryNumber: "DEL-TEST-3",
		Status:         store.DeliveryPending,
	})
	if err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	engine := newTestEngine(t, mem, drawTaken, deltaDraw(15))
	engine.SetEnabled(false)
	if err := engine.StepInventory(ctx); err != nil {
		t.Fatalf("StepInventory: %v", err)
	}
	if err := engine.StepDeliveries(ctx); err != nil {
		t.Fatalf("StepDeliveries: %v", err)
	}

	gotItem, _ := mem.GetInventoryItem(ctx, item.ID)
	if gotItem.CurrentStock != 20 {
		t.Fatalf("disabled engine must not touch stock, got %d", gotItem.CurrentStock)
	}
	gotDelivery, _ := mem.GetDelivery(ctx, delivery.ID)
	if gotDelivery.Status != store.DeliveryPending {
		t.Fatalf("disabled engine must not touch deliveries, got %s", gotDelivery.Status)
	}
}

func TestStockStaysNonNegativeAcrossManySteps(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	ids := make([]int64, 0, 3)
	for _, stock := range []int{0, 2, 6} {
		item, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
			Name: "Yeti Rambler Tumbler", SKU: "TUMB-YETI-" + string(rune('A'+stock)),
			CurrentStock: stock, ReorderPoint: 5,
		})
		if err != nil {
			t.Fatalf("create item: %v", err)
		}
		ids = append(ids, item.ID)
	}

	rng := rand.New(rand.NewSource(42))
	engine := NewEngine(mem, testConfig(), rng, nil, nil, logging.New("sim-test"))
	for i := 0; i < 500; i++ {
		if err := engine.StepInventory(ctx); err != nil {
			t.Fatalf("StepInventory: %v", err)
		}
		for _, id := range ids {
			item, err := mem.GetInventoryItem(ctx, id)
			if err != nil {
				t.Fatalf("get item: %v", err)
			}
			if item.CurrentStock < 0 {
				t.Fatalf("stock went negative for item %d: %d", id, item.CurrentStock)
			}
		}
	}
}
