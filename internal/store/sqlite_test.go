package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func newSQLiteStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteFulfillStockDepletedByOutbound(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	item, err := s.CreateInventoryItem(ctx, InventoryItem{
		Name: "Ring Video Doorbell", SKU: "ELEC-RING-DB01",
		CurrentStock: 10, ReorderPoint: 5, ReorderQuantity: 20,
		UnitCost: 60, SellingPrice: 99.99,
	})
	if err != nil {
		t.Fatalf("CreateInventoryItem: %v", err)
	}

	if err := s.ReserveStock(ctx, item.ID, 8); err != nil {
		t.Fatalf("ReserveStock: %v", err)
	}
	if _, err := s.ApplyStockMovement(ctx, MovementRequest{
		ItemID: item.ID, Type: MovementOut, Quantity: 5,
		ReferenceType: "SALE", Reason: "Automated sale simulation", CreatedBy: "SYSTEM",
	}); err != nil {
		t.Fatalf("ApplyStockMovement: %v", err)
	}

	// The reservation outlived the on-hand stock; fulfilling it must fail
	// with the store's own error, not a constraint violation.
	if err := s.FulfillStock(ctx, item.ID, 8, 77); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	got, err := s.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetInventoryItem: %v", err)
	}
	if got.CurrentStock != 5 || got.ReservedStock != 8 {
		t.Fatalf("rejected fulfill must not mutate stock: %+v", got)
	}
}

func TestSQLiteListOrdersNoLimitReturnsAll(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		if _, err := s.CreateOrder(ctx, Order{
			OrderNumber: fmt.Sprintf("ORD-20260828-%08d", i),
			CustomerID:  1, TotalAmount: 10,
		}); err != nil {
			t.Fatalf("CreateOrder %d: %v", i, err)
		}
	}

	all, err := s.ListOrders(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(all) != 120 {
		t.Fatalf("expected all 120 orders with no limit, got %d", len(all))
	}

	capped, err := s.ListOrders(ctx, "", 5)
	if err != nil {
		t.Fatalf("ListOrders limit 5: %v", err)
	}
	if len(capped) != 5 {
		t.Fatalf("expected 5 orders, got %d", len(capped))
	}
}

func TestSQLiteListDeliveriesNoLimitReturnsAll(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 110; i++ {
		if _, err := s.CreateDelivery(ctx, Delivery{
			DeliveryNumber: fmt.Sprintf("DEL-20260828-%08d", i),
			OrderID:        int64(i + 1),
			Address:        "742 Evergreen Terrace",
			City:           "Springfield",
		}); err != nil {
			t.Fatalf("CreateDelivery %d: %v", i, err)
		}
	}

	all, err := s.ListDeliveries(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListDeliveries: %v", err)
	}
	if len(all) != 110 {
		t.Fatalf("expected all 110 deliveries with no limit, got %d", len(all))
	}
}
