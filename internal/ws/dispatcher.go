package ws

import (
	"context"
	"fmt"
	"time"

	"supplyline/internal/logging"
	"supplyline/internal/metrics"
	"supplyline/internal/store"
)

const recentMovementLimit = 10

// SnapshotStore is the read surface the dispatcher composes broadcast
// payloads from.
type SnapshotStore interface {
	LowStockItems(ctx context.Context) ([]store.InventoryItem, error)
	RecentStockMovements(ctx context.Context, limit int) ([]store.StockMovement, error)
	ActiveDeliveries(ctx context.Context) ([]store.Delivery, error)
	ListOrders(ctx context.Context, status store.OrderStatus, limit int) ([]store.Order, error)
}

// Dispatcher fans typed messages out to the registry's connections. Sends
// are fire-and-forget: a failed write marks the connection for removal and
// never blocks or aborts the rest of the fan-out.
type Dispatcher struct {
	registry *Registry
	log      *logging.Logger
}

func NewDispatcher(registry *Registry, log *logging.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log}
}

// SendToOne writes an envelope to a single connection. A transport failure
// disconnects the target; the connection is treated as already gone.
func (d *Dispatcher) SendToOne(id string, env Envelope) error {
	conn, ok := d.registry.lookup(id)
	if !ok {
		return fmt.Errorf("send to %q: %w", id, ErrUnknownConnection)
	}
	if err := conn.writeJSON(env); err != nil {
		metrics.SendFailuresTotal.Inc()
		d.log.Warn("send_failed", "dropping subscriber after failed write", map[string]any{
			"client_id": id,
			"error":     err.Error(),
		})
		d.registry.Disconnect(id)
		return fmt.Errorf("send to %q: %w", id, err)
	}
	return nil
}

// Broadcast delivers a message to every connection matching its audience.
// Failed recipients are collected during the fan-out and disconnected
// afterwards so the registry snapshot is never mutated mid-iteration.
// Zero matching connections is a quiet no-op.
func (d *Dispatcher) Broadcast(msg Message) {
	targets := d.registry.ConnectionsForRoles(msg.Audience)
	if len(targets) == 0 {
		return
	}
	metrics.BroadcastsTotal.WithLabelValues(string(msg.Envelope.Type)).Inc()

	var stale []string
	for _, target := range targets {
		conn, ok := d.registry.lookup(target.ID)
		if !ok {
			continue
		}
		if err := conn.writeJSON(msg.Envelope); err != nil {
			metrics.SendFailuresTotal.Inc()
			d.log.Warn("send_failed", "dropping subscriber after failed write", map[string]any{
				"client_id": target.ID,
				"type":      string(msg.Envelope.Type),
				"error":     err.Error(),
			})
			stale = append(stale, target.ID)
		}
	}
	for _, id := range stale {
		d.registry.Disconnect(id)
	}
}

// BuildInventorySnapshot composes an inventory_update from low-stock items
// and the ten most recent stock movements. Audience: admin and manager.
func (d *Dispatcher) BuildInventorySnapshot(ctx context.Context, st SnapshotStore) (Message, error) {
	lowStock, err := st.LowStockItems(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("low stock items: %w", err)
	}
	movements, err := st.RecentStockMovements(ctx, recentMovementLimit)
	if err != nil {
		return Message{}, fmt.Errorf("recent movements: %w", err)
	}

	data := InventoryUpdateData{
		LowStockItems:   make([]LowStockItem, 0, len(lowStock)),
		RecentMovements: make([]MovementSummary, 0, len(movements)),
	}
	for _, item := range lowStock {
		data.LowStockItems = append(data.LowStockItems, LowStockItem{
			ID:           item.ID,
			Name:         item.Name,
			SKU:          item.SKU,
			CurrentStock: item.CurrentStock,
			ReorderPoint: item.ReorderPoint,
		})
	}
	for _, mov := range movements {
		data.RecentMovements = append(data.RecentMovements, MovementSummary{
			ID:           mov.ID,
			ItemName:     mov.ItemName,
			MovementType: string(mov.MovementType),
			Quantity:     mov.Quantity,
			CreatedAt:    mov.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return Message{
		Envelope: newEnvelope(TypeInventoryUpdate, data),
		Audience: Staff(),
	}, nil
}

// BuildDeliverySnapshot composes a delivery_update from deliveries in
// ASSIGNED or IN_TRANSIT. Coordinates are included only when both latitude
// and longitude are known. Audience: admin, manager, and driver.
func (d *Dispatcher) BuildDeliverySnapshot(ctx context.Context, st SnapshotStore) (Message, error) {
	active, err := st.ActiveDeliveries(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("active deliveries: %w", err)
	}

	data := DeliveryUpdateData{ActiveDeliveries: make([]ActiveDelivery, 0, len(active))}
	for _, delivery := range active {
		entry := ActiveDelivery{
			ID:             delivery.ID,
			DeliveryNumber: delivery.DeliveryNumber,
			Status:         string(delivery.Status),
		}
		if delivery.Driver != nil {
			name := delivery.Driver.DisplayName()
			entry.DriverName = &name
		}
		if delivery.CurrentLatitude != nil && delivery.CurrentLongitude != nil {
			entry.CurrentLocation = &Location{
				Latitude:  *delivery.CurrentLatitude,
				Longitude: *delivery.CurrentLongitude,
			}
		}
		if delivery.EstimatedArrival != nil {
			eta := delivery.EstimatedArrival.UTC().Format(time.RFC3339)
			entry.EstimatedArrival = &eta
		}
		data.ActiveDeliveries = append(data.ActiveDeliveries, entry)
	}
	return Message{
		Envelope: newEnvelope(TypeDeliveryUpdate, data),
		Audience: Roles(RoleAdmin, RoleManager, RoleDriver),
	}, nil
}

// BuildOrderSnapshot composes an order_update from pending orders, showing
// the five most recent. Audience: admin and manager.
func (d *Dispatcher) BuildOrderSnapshot(ctx context.Context, st SnapshotStore) (Message, error) {
	pending, err := st.ListOrders(ctx, store.OrderPending, 0)
	if err != nil {
		return Message{}, fmt.Errorf("pending orders: %w", err)
	}

	data := OrderUpdateData{
		PendingOrdersCount: len(pending),
		RecentOrders:       make([]OrderSummary, 0, 5),
	}
	for i, order := range pending {
		if i >= 5 {
			break
		}
		data.RecentOrders = append(data.RecentOrders, OrderSummary{
			ID:          order.ID,
			OrderNumber: order.OrderNumber,
			Status:      string(order.Status),
			TotalAmount: order.TotalAmount,
			OrderDate:   order.OrderDate.UTC().Format(time.RFC3339),
		})
	}
	return Message{
		Envelope: newEnvelope(TypeOrderUpdate, data),
		Audience: Staff(),
	}, nil
}

// SendAlert broadcasts an ad hoc alert. A nil audience defaults to staff.
func (d *Dispatcher) SendAlert(alertType, message, severity string, audience RoleSet) {
	if audience == nil {
		audience = Staff()
	}
	data := AlertData{
		AlertType: alertType,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	d.Broadcast(Message{
		Envelope: newEnvelope(TypeAlert, data),
		Audience: audience,
	})
}

// SendDeliveryNotification notifies about a delivery status change. With a
// customer connection ID it unicasts; otherwise it broadcasts to all
// customers.
func (d *Dispatcher) SendDeliveryNotification(deliveryID int64, status string, customerConnID string) {
	env := newEnvelope(TypeDeliveryNotification, DeliveryNotificationData{
		DeliveryID: deliveryID,
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if customerConnID != "" {
		// Best effort, same as a broadcast to a single recipient.
		_ = d.SendToOne(customerConnID, env)
		return
	}
	d.Broadcast(Message{Envelope: env, Audience: Roles(RoleCustomer)})
}
