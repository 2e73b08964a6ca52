package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a mutex-guarded in-process store. It is the default backend for
// demo runs and the fixture for package tests; semantics match the SQL
// backends (conditional stock checks, append-only movement log).
type Memory struct {
	mu         sync.Mutex
	items      map[int64]*InventoryItem
	movements  []StockMovement
	deliveries map[int64]*Delivery
	delUpdates []DeliveryUpdate
	orders     map[int64]*Order
	suppliers  map[int64]*Supplier
	warehouses map[int64]*Warehouse
	drivers    map[int64]*Driver

	nextItemID     int64
	nextMovementID int64
	nextDeliveryID int64
	nextUpdateID   int64
	nextOrderID    int64
	nextSupplierID int64
	nextWarehouse  int64
	nextDriverID   int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items:      make(map[int64]*InventoryItem),
		deliveries: make(map[int64]*Delivery),
		orders:     make(map[int64]*Order),
		suppliers:  make(map[int64]*Supplier),
		warehouses: make(map[int64]*Warehouse),
		drivers:    make(map[int64]*Driver),
	}
}

func (m *Memory) Close() error { return nil }

func sortedItemIDs(items map[int64]*InventoryItem) []int64 {
	ids := make([]int64, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ListInventory returns all items ordered by ID.
func (m *Memory) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]InventoryItem, 0, len(m.items))
	for _, id := range sortedItemIDs(m.items) {
		out = append(out, *m.items[id])
	}
	return out, nil
}

func (m *Memory) GetInventoryItem(ctx context.Context, id int64) (InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return InventoryItem{}, ErrNotFound
	}
	return *item, nil
}

func (m *Memory) CreateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextItemID++
	now := time.Now().UTC()
	item.ID = m.nextItemID
	item.AvailableStock = item.CurrentStock - item.ReservedStock
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.LastRestocked.IsZero() {
		item.LastRestocked = now
	}
	stored := item
	m.items[item.ID] = &stored

	m.appendMovementLocked(item.ID, MovementIn, item.CurrentStock, "INITIAL_STOCK", 0, "Initial inventory setup", "SYSTEM")
	return item, nil
}

func (m *Memory) UpdateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[item.ID]
	if !ok {
		return InventoryItem{}, ErrNotFound
	}

	oldStock := existing.CurrentStock
	item.CreatedAt = existing.CreatedAt
	item.LastRestocked = existing.LastRestocked
	item.AvailableStock = item.CurrentStock - item.ReservedStock
	item.UpdatedAt = time.Now().UTC()
	*existing = item

	if oldStock != item.CurrentStock {
		change := item.CurrentStock - oldStock
		mt := MovementIn
		if change < 0 {
			mt = MovementOut
			change = -change
		}
		m.appendMovementLocked(item.ID, mt, change, "ADJUSTMENT", 0, "Manual inventory adjustment", "SYSTEM")
	}
	return *existing, nil
}

// SampleInventoryItems returns up to limit items, lowest IDs first. Selection
// order is not a correctness property for the simulation; first-K by ID keeps
// it deterministic for tests.
func (m *Memory) SampleInventoryItems(ctx context.Context, limit int) ([]InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]InventoryItem, 0, limit)
	for _, id := range sortedItemIDs(m.items) {
		if len(out) == limit {
			break
		}
		out = append(out, *m.items[id])
	}
	return out, nil
}

func (m *Memory) LowStockItems(ctx context.Context) ([]InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []InventoryItem
	for _, id := range sortedItemIDs(m.items) {
		if item := m.items[id]; item.LowStock() {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *Memory) RecentStockMovements(ctx context.Context, limit int) ([]StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]StockMovement, 0, limit)
	for i := len(m.movements) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.movements[i])
	}
	return out, nil
}

func (m *Memory) appendMovementLocked(itemID int64, mt MovementType, qty int, refType string, refID int64, reason, by string) {
	m.nextMovementID++
	name := ""
	if item, ok := m.items[itemID]; ok {
		name = item.Name
	}
	m.movements = append(m.movements, StockMovement{
		ID:            m.nextMovementID,
		ItemID:        itemID,
		ItemName:      name,
		MovementType:  mt,
		Quantity:      qty,
		ReferenceType: refType,
		ReferenceID:   refID,
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
		CreatedBy:     by,
	})
}

// ApplyStockMovement mutates stock and records the movement in one critical
// section. OUT movements that would drive stock negative fail with
// ErrInsufficientStock and leave the item untouched.
func (m *Memory) ApplyStockMovement(ctx context.Context, req MovementRequest) (InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[req.ItemID]
	if !ok {
		return InventoryItem{}, ErrNotFound
	}

	now := time.Now().UTC()
	switch req.Type {
	case MovementIn:
		item.CurrentStock += req.Quantity
		item.LastRestocked = now
	case MovementOut:
		if item.CurrentStock < req.Quantity {
			return InventoryItem{}, ErrInsufficientStock
		}
		item.CurrentStock -= req.Quantity
	default:
		// RESERVED/RELEASED go through ReserveStock/ReleaseStock.
		return InventoryItem{}, ErrInvalidTransition
	}
	item.AvailableStock = item.CurrentStock - item.ReservedStock
	item.UpdatedAt = now

	by := req.CreatedBy
	if by == "" {
		by = "SYSTEM"
	}
	m.appendMovementLocked(req.ItemID, req.Type, req.Quantity, req.ReferenceType, req.ReferenceID, req.Reason, by)
	return *item, nil
}

func (m *Memory) ReserveStock(ctx context.Context, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return ErrNotFound
	}
	if item.AvailableStock < quantity {
		return ErrInsufficientStock
	}
	item.ReservedStock += quantity
	item.AvailableStock = item.CurrentStock - item.ReservedStock
	item.UpdatedAt = time.Now().UTC()
	m.appendMovementLocked(itemID, MovementReserved, quantity, "ORDER", 0, "Stock reserved for order", "SYSTEM")
	return nil
}

func (m *Memory) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return ErrNotFound
	}
	if item.ReservedStock < quantity {
		return ErrInsufficientStock
	}
	item.ReservedStock -= quantity
	item.AvailableStock = item.CurrentStock - item.ReservedStock
	item.UpdatedAt = time.Now().UTC()
	m.appendMovementLocked(itemID, MovementReleased, quantity, "ORDER", 0, "Stock released from reservation", "SYSTEM")
	return nil
}

func (m *Memory) FulfillStock(ctx context.Context, itemID int64, quantity int, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return ErrNotFound
	}
	if item.ReservedStock < quantity || item.CurrentStock < quantity {
		return ErrInsufficientStock
	}
	item.CurrentStock -= quantity
	item.ReservedStock -= quantity
	item.AvailableStock = item.CurrentStock - item.ReservedStock
	item.UpdatedAt = time.Now().UTC()
	m.appendMovementLocked(itemID, MovementOut, quantity, "ORDER", orderID, "Stock fulfilled for order", "SYSTEM")
	return nil
}

func (m *Memory) OutboundQuantitySince(ctx context.Context, itemID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, mov := range m.movements {
		if mov.ItemID == itemID && mov.MovementType == MovementOut && !mov.CreatedAt.Before(since) {
			total += mov.Quantity
		}
	}
	return total, nil
}

func (m *Memory) InventoryMetrics(ctx context.Context) (InventoryMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var metrics InventoryMetrics
	metrics.TotalItems = len(m.items)
	for _, item := range m.items {
		if item.LowStock() {
			metrics.LowStockItems++
		}
		if item.CurrentStock <= 0 {
			metrics.OutOfStockItems++
		}
		metrics.TotalValue += float64(item.CurrentStock) * item.UnitCost
	}
	return metrics, nil
}

func sortedDeliveryIDs(deliveries map[int64]*Delivery) []int64 {
	ids := make([]int64, 0, len(deliveries))
	for id := range deliveries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Memory) deliverySnapshotLocked(d *Delivery) Delivery {
	out := *d
	if d.DriverID != 0 {
		if drv, ok := m.drivers[d.DriverID]; ok {
			cp := *drv
			out.Driver = &cp
		}
	}
	return out
}

func (m *Memory) ListDeliveries(ctx context.Context, status DeliveryStatus, limit int) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Delivery, 0, limit)
	for _, id := range sortedDeliveryIDs(m.deliveries) {
		d := m.deliveries[id]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, m.deliverySnapshotLocked(d))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) GetDelivery(ctx context.Context, id int64) (Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deliveries[id]
	if !ok {
		return Delivery{}, ErrNotFound
	}
	return m.deliverySnapshotLocked(d), nil
}

func (m *Memory) CreateDelivery(ctx context.Context, d Delivery) (Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextDeliveryID++
	now := time.Now().UTC()
	d.ID = m.nextDeliveryID
	if d.Status == "" {
		d.Status = DeliveryPending
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	stored := d
	m.deliveries[d.ID] = &stored

	m.appendDeliveryUpdateLocked(d.ID, d.Status, "Delivery created and awaiting assignment")
	return m.deliverySnapshotLocked(&stored), nil
}

func (m *Memory) ActiveDeliveries(ctx context.Context) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Delivery
	for _, id := range sortedDeliveryIDs(m.deliveries) {
		d := m.deliveries[id]
		if d.Status == DeliveryAssigned || d.Status == DeliveryInTransit {
			out = append(out, m.deliverySnapshotLocked(d))
		}
	}
	return out, nil
}

func (m *Memory) AdvanceableDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Delivery, 0, limit)
	for _, id := range sortedDeliveryIDs(m.deliveries) {
		d := m.deliveries[id]
		if d.Status != DeliveryPending && d.Status != DeliveryAssigned {
			continue
		}
		out = append(out, m.deliverySnapshotLocked(d))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// AdvanceDeliveryStatus moves a delivery exactly one step forward and appends
// a status-log entry. Terminal or in-transit deliveries fail with
// ErrInvalidTransition.
func (m *Memory) AdvanceDeliveryStatus(ctx context.Context, id int64) (Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deliveries[id]
	if !ok {
		return Delivery{}, ErrNotFound
	}
	next, ok := NextDeliveryStatus(d.Status)
	if !ok {
		return Delivery{}, ErrInvalidTransition
	}

	now := time.Now().UTC()
	d.Status = next
	d.UpdatedAt = now
	if next == DeliveryAssigned && d.EstimatedArrival == nil {
		eta := now.Add(2 * time.Hour)
		d.EstimatedArrival = &eta
	}
	m.appendDeliveryUpdateLocked(id, next, "Status advanced by simulation")
	return m.deliverySnapshotLocked(d), nil
}

func (m *Memory) UpdateDeliveryLocation(ctx context.Context, id int64, lat, lon float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.CurrentLatitude = &lat
	d.CurrentLongitude = &lon
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) appendDeliveryUpdateLocked(deliveryID int64, status DeliveryStatus, message string) {
	m.nextUpdateID++
	m.delUpdates = append(m.delUpdates, DeliveryUpdate{
		ID:         m.nextUpdateID,
		DeliveryID: deliveryID,
		Status:     status,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  "SYSTEM",
	})
}

func (m *Memory) DeliveryUpdates(ctx context.Context, deliveryID int64) ([]DeliveryUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []DeliveryUpdate
	for _, u := range m.delUpdates {
		if u.DeliveryID == deliveryID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) DeliveryMetrics(ctx context.Context) (DeliveryMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var metrics DeliveryMetrics
	metrics.TotalDeliveries = len(m.deliveries)
	for _, d := range m.deliveries {
		if d.Status == DeliveryDelivered {
			metrics.SuccessfulDeliveries++
		}
	}
	if metrics.TotalDeliveries > 0 {
		metrics.SuccessRate = float64(metrics.SuccessfulDeliveries) / float64(metrics.TotalDeliveries) * 100
	}
	return metrics, nil
}

func (m *Memory) ListOrders(ctx context.Context, status OrderStatus, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	// Newest first, matching the SQL backends' ORDER BY order_date DESC.
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	out := make([]Order, 0, limit)
	for _, id := range ids {
		o := m.orders[id]
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, *o)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) GetOrder(ctx context.Context, id int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (m *Memory) CreateOrder(ctx context.Context, o Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextOrderID++
	now := time.Now().UTC()
	o.ID = m.nextOrderID
	if o.Status == "" {
		o.Status = OrderPending
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	o.UpdatedAt = now
	for i := range o.Items {
		o.Items[i].ID = int64(i + 1)
		o.Items[i].OrderID = o.ID
	}
	stored := o
	m.orders[o.ID] = &stored
	return o, nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return *o, nil
}

func (m *Memory) SupplyChainMetrics(ctx context.Context) (SupplyChainMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	monthAgo := now.AddDate(0, 0, -30)
	twoMonthsAgo := now.AddDate(0, 0, -60)

	var metrics SupplyChainMetrics
	metrics.TotalOrders = len(m.orders)
	for _, o := range m.orders {
		switch o.Status {
		case OrderPending:
			metrics.PendingOrders++
		case OrderShipped:
			metrics.ShippedOrders++
		case OrderDelivered:
			metrics.DeliveredOrders++
		}
		metrics.TotalRevenue += o.TotalAmount
		if !o.OrderDate.Before(monthAgo) {
			metrics.MonthlyRevenue += o.TotalAmount
		} else if !o.OrderDate.Before(twoMonthsAgo) {
			metrics.PriorMonthRevenue += o.TotalAmount
		}
	}
	if metrics.TotalOrders > 0 {
		metrics.FulfillmentRate = float64(metrics.DeliveredOrders) / float64(metrics.TotalOrders) * 100
	}
	if len(m.suppliers) > 0 {
		var total float64
		for _, s := range m.suppliers {
			total += s.ReliabilityScore
		}
		metrics.SupplierPerformance = total / float64(len(m.suppliers))
	}
	return metrics, nil
}

func (m *Memory) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.suppliers))
	for id := range m.suppliers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Supplier, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.suppliers[id])
	}
	return out, nil
}

func (m *Memory) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSupplierID++
	s.ID = m.nextSupplierID
	stored := s
	m.suppliers[s.ID] = &stored
	return s, nil
}

func (m *Memory) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.warehouses))
	for id := range m.warehouses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Warehouse, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.warehouses[id])
	}
	return out, nil
}

func (m *Memory) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextWarehouse++
	w.ID = m.nextWarehouse
	stored := w
	m.warehouses[w.ID] = &stored
	return w, nil
}

func (m *Memory) CreateDriver(ctx context.Context, d Driver) (Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextDriverID++
	d.ID = m.nextDriverID
	stored := d
	m.drivers[d.ID] = &stored
	return d, nil
}
