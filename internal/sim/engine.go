package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"supplyline/internal/events"
	"supplyline/internal/logging"
	"supplyline/internal/metrics"
	"supplyline/internal/provenance"
	"supplyline/internal/store"
)

// EngineStore is the slice of the store the simulation mutates.
type EngineStore interface {
	SampleInventoryItems(ctx context.Context, limit int) ([]store.InventoryItem, error)
	ApplyStockMovement(ctx context.Context, req store.MovementRequest) (store.InventoryItem, error)
	AdvanceableDeliveries(ctx context.Context, limit int) ([]store.Delivery, error)
	AdvanceDeliveryStatus(ctx context.Context, id int64) (store.Delivery, error)
}

// Config bounds the randomized behavior of a simulation step.
type Config struct {
	InventorySample   int
	DeliverySample    int
	StockChangeChance float64
	DeliveryAdvance   float64
	MinStockDelta     int
	MaxStockDelta     int
}

// Engine stands in for real telemetry feeds in the demo deployment: each
// step nudges a handful of inventory items and deliveries. The random source
// is injected so tests can force an advance or a skip.
type Engine struct {
	store   EngineStore
	cfg     Config
	rng     *rand.Rand
	log     *logging.Logger
	bridge  *events.Bridge
	ledger  *provenance.Ledger
	enabled atomic.Bool
}

func NewEngine(st EngineStore, cfg Config, rng *rand.Rand, bridge *events.Bridge, ledger *provenance.Ledger, log *logging.Logger) *Engine {
	e := &Engine{store: st, cfg: cfg, rng: rng, log: log, bridge: bridge, ledger: ledger}
	e.enabled.Store(true)
	return e
}

func (e *Engine) recordProvenance(eventType string, payload map[string]any) {
	if e.ledger == nil {
		return
	}
	if _, err := e.ledger.Record(eventType, payload); err != nil {
		e.log.Error("provenance_record", "ledger append failed", err)
	}
}

// SetEnabled toggles the simulation without tearing down the broadcast path.
func (e *Engine) SetEnabled(on bool) { e.enabled.Store(on) }

func (e *Engine) Enabled() bool { return e.enabled.Load() }

// StepInventory samples up to InventorySample items and, per item with
// probability StockChangeChance, applies a random stock delta. Positive
// deltas restock; negative deltas sell only when stock strictly exceeds the
// draw, so stock never goes negative here.
func (e *Engine) StepInventory(ctx context.Context) error {
	if !e.enabled.Load() {
		return nil
	}
	items, err := e.store.SampleInventoryItems(ctx, e.cfg.InventorySample)
	if err != nil {
		return fmt.Errorf("sample inventory: %w", err)
	}

	for _, item := range items {
		if e.rng.Float64() >= e.cfg.StockChangeChance {
			continue
		}
		delta := e.cfg.MinStockDelta + e.rng.Intn(e.cfg.MaxStockDelta-e.cfg.MinStockDelta+1)
		switch {
		case delta > 0:
			updated, err := e.store.ApplyStockMovement(ctx, store.MovementRequest{
				ItemID:        item.ID,
				Type:          store.MovementIn,
				Quantity:      delta,
				ReferenceType: "RESTOCK",
				Reason:        "Automated restock simulation",
			})
			if err != nil {
				return fmt.Errorf("restock item %d: %w", item.ID, err)
			}
			metrics.StockMovementsTotal.WithLabelValues("IN").Inc()
			e.bridge.PublishStockMovement(ctx, updated.ID, updated.SKU, "IN", delta, updated.CurrentStock)
			e.recordProvenance("STOCK_MOVEMENT", map[string]any{
				"item_id": updated.ID, "sku": updated.SKU,
				"movement_type": "IN", "quantity": delta,
			})
		case delta < 0 && item.CurrentStock > -delta:
			updated, err := e.store.ApplyStockMovement(ctx, store.MovementRequest{
				ItemID:        item.ID,
				Type:          store.MovementOut,
				Quantity:      -delta,
				ReferenceType: "SALE",
				Reason:        "Automated sale simulation",
			})
			if err != nil {
				return fmt.Errorf("sell item %d: %w", item.ID, err)
			}
			metrics.StockMovementsTotal.WithLabelValues("OUT").Inc()
			e.bridge.PublishStockMovement(ctx, updated.ID, updated.SKU, "OUT", -delta, updated.CurrentStock)
			e.recordProvenance("STOCK_MOVEMENT", map[string]any{
				"item_id": updated.ID, "sku": updated.SKU,
				"movement_type": "OUT", "quantity": -delta,
			})
		}
	}
	return nil
}

// StepDeliveries samples up to DeliverySample deliveries in PENDING or
// ASSIGNED and, per delivery with probability DeliveryAdvance, moves its
// status forward by exactly one step.
func (e *Engine) StepDeliveries(ctx context.Context) error {
	if !e.enabled.Load() {
		return nil
	}
	deliveries, err := e.store.AdvanceableDeliveries(ctx, e.cfg.DeliverySample)
	if err != nil {
		return fmt.Errorf("sample deliveries: %w", err)
	}

	for _, delivery := range deliveries {
		if e.rng.Float64() >= e.cfg.DeliveryAdvance {
			continue
		}
		updated, err := e.store.AdvanceDeliveryStatus(ctx, delivery.ID)
		if err != nil {
			return fmt.Errorf("advance delivery %d: %w", delivery.ID, err)
		}
		metrics.DeliveryTransitionsTotal.WithLabelValues(string(updated.Status)).Inc()
		e.bridge.PublishDeliveryTransition(ctx, updated.ID, updated.DeliveryNumber, string(delivery.Status), string(updated.Status))
		e.recordProvenance("DELIVERY_TRANSITION", map[string]any{
			"delivery_id": updated.ID, "delivery_number": updated.DeliveryNumber,
			"from": string(delivery.Status), "to": string(updated.Status),
		})
		e.log.Debug("delivery_advanced", "simulation moved a delivery forward", map[string]any{
			"delivery_id": updated.ID,
			"from":        string(delivery.Status),
			"to":          string(updated.Status),
		})
	}
	return nil
}
