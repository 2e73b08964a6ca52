package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an entity ID does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInsufficientStock is returned when a movement or reservation would
	// drive a stock counter negative.
	ErrInsufficientStock = errors.New("store: insufficient stock")
	// ErrInvalidTransition is returned when a delivery has no next status.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn       MovementType = "IN"
	MovementOut      MovementType = "OUT"
	MovementReserved MovementType = "RESERVED"
	MovementReleased MovementType = "RELEASED"
)

// DeliveryStatus is the delivery lifecycle state.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
	DeliveryCancelled DeliveryStatus = "CANCELLED"
)

// NextDeliveryStatus returns the single permitted forward transition within
// the simulated subset. Only PENDING and ASSIGNED advance; everything else is
// terminal or driver-controlled.
func NextDeliveryStatus(s DeliveryStatus) (DeliveryStatus, bool) {
	switch s {
	case DeliveryPending:
		return DeliveryAssigned, true
	case DeliveryAssigned:
		return DeliveryInTransit, true
	default:
		return s, false
	}
}

// OrderStatus is the customer-order lifecycle state.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a status string from an API request.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// InventoryItem is a stocked SKU. AvailableStock is always derived as
// CurrentStock - ReservedStock; CurrentStock never goes negative.
type InventoryItem struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	SKU             string    `json:"sku"`
	Category        string    `json:"category"`
	CurrentStock    int       `json:"current_stock"`
	ReservedStock   int       `json:"reserved_stock"`
	AvailableStock  int       `json:"available_stock"`
	ReorderPoint    int       `json:"reorder_point"`
	ReorderQuantity int       `json:"reorder_quantity"`
	UnitCost        float64   `json:"unit_cost"`
	SellingPrice    float64   `json:"selling_price"`
	WarehouseID     int64     `json:"warehouse_id"`
	LastRestocked   time.Time `json:"last_restocked"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LowStock reports whether the item is at or below its reorder point.
func (i InventoryItem) LowStock() bool {
	return i.CurrentStock <= i.ReorderPoint
}

// StockMovement is one append-only inventory ledger entry. ItemName is
// denormalized at read time for display.
type StockMovement struct {
	ID            int64        `json:"id"`
	ItemID        int64        `json:"item_id"`
	ItemName      string       `json:"item_name"`
	MovementType  MovementType `json:"movement_type"`
	Quantity      int          `json:"quantity"`
	ReferenceType string       `json:"reference_type"`
	ReferenceID   int64        `json:"reference_id,omitempty"`
	Reason        string       `json:"reason"`
	CreatedAt     time.Time    `json:"created_at"`
	CreatedBy     string       `json:"created_by"`
}

// MovementRequest describes a stock mutation to apply. Quantity is always
// positive; the type determines direction.
type MovementRequest struct {
	ItemID        int64
	Type          MovementType
	Quantity      int
	ReferenceType string
	ReferenceID   int64
	Reason        string
	CreatedBy     string
}

// Driver is a delivery driver, trimmed to display fields.
type Driver struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    string `json:"status"`
}

// DisplayName renders the driver's full name for broadcast payloads.
func (d Driver) DisplayName() string {
	return d.FirstName + " " + d.LastName
}

// Delivery is a last-mile delivery. Coordinates are nil until the first
// location report.
type Delivery struct {
	ID               int64          `json:"id"`
	DeliveryNumber   string         `json:"delivery_number"`
	OrderID          int64          `json:"order_id"`
	Status           DeliveryStatus `json:"status"`
	DriverID         int64          `json:"driver_id,omitempty"`
	Driver           *Driver        `json:"driver,omitempty"`
	Address          string         `json:"address"`
	City             string         `json:"city"`
	CurrentLatitude  *float64       `json:"current_latitude"`
	CurrentLongitude *float64       `json:"current_longitude"`
	EstimatedArrival *time.Time     `json:"estimated_arrival"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// DeliveryUpdate is one append-only entry in a delivery's status log.
type DeliveryUpdate struct {
	ID         int64          `json:"id"`
	DeliveryID int64          `json:"delivery_id"`
	Status     DeliveryStatus `json:"status"`
	Message    string         `json:"message"`
	Latitude   *float64       `json:"latitude,omitempty"`
	Longitude  *float64       `json:"longitude,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	CreatedBy  string         `json:"created_by"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id"`
	ItemID     int64   `json:"inventory_item_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// Order is a customer order with denormalized totals.
type Order struct {
	ID           int64       `json:"id"`
	OrderNumber  string      `json:"order_number"`
	CustomerID   int64       `json:"customer_id"`
	WarehouseID  int64       `json:"warehouse_id"`
	Status       OrderStatus `json:"status"`
	TotalAmount  float64     `json:"total_amount"`
	TaxAmount    float64     `json:"tax_amount"`
	ShippingCost float64     `json:"shipping_cost"`
	OrderDate    time.Time   `json:"order_date"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Items        []OrderItem `json:"items,omitempty"`
}

// Supplier is an upstream vendor.
type Supplier struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ContactPerson    string  `json:"contact_person"`
	Email            string  `json:"email"`
	City             string  `json:"city"`
	Country          string  `json:"country"`
	ReliabilityScore float64 `json:"reliability_score"`
	AvgDeliveryDays  int     `json:"average_delivery_time"`
	Active           bool    `json:"is_active"`
}

// Warehouse is a stocking location.
type Warehouse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Capacity    float64 `json:"total_capacity"`
	Utilization float64 `json:"current_utilization"`
	Kind        string  `json:"warehouse_type"`
}

// InventoryMetrics are the aggregate figures for the analytics dashboard.
type InventoryMetrics struct {
	TotalItems      int     `json:"total_items"`
	LowStockItems   int     `json:"low_stock_items"`
	OutOfStockItems int     `json:"out_of_stock_items"`
	TotalValue      float64 `json:"total_inventory_value"`
}

// DeliveryMetrics are the aggregate delivery figures.
type DeliveryMetrics struct {
	TotalDeliveries      int     `json:"total_deliveries"`
	SuccessfulDeliveries int     `json:"successful_deliveries"`
	SuccessRate          float64 `json:"success_rate"`
}

// SupplyChainMetrics are the aggregate order and revenue figures. Monthly
// windows are trailing 30-day periods from the time of the query.
type SupplyChainMetrics struct {
	TotalOrders         int     `json:"total_orders"`
	PendingOrders       int     `json:"pending_orders"`
	ShippedOrders       int     `json:"shipped_orders"`
	DeliveredOrders     int     `json:"delivered_orders"`
	FulfillmentRate     float64 `json:"fulfillment_rate"`
	TotalRevenue        float64 `json:"total_revenue"`
	MonthlyRevenue      float64 `json:"monthly_revenue"`
	PriorMonthRevenue   float64 `json:"prior_month_revenue"`
	SupplierPerformance float64 `json:"supplier_performance"`
}

// Store is the transactional state store behind the back office. Backends:
// in-memory (demo/tests), SQLite, and PostgreSQL.
type Store interface {
	// Inventory.
	ListInventory(ctx context.Context) ([]InventoryItem, error)
	GetInventoryItem(ctx context.Context, id int64) (InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error)
	SampleInventoryItems(ctx context.Context, limit int) ([]InventoryItem, error)
	LowStockItems(ctx context.Context) ([]InventoryItem, error)
	RecentStockMovements(ctx context.Context, limit int) ([]StockMovement, error)
	ApplyStockMovement(ctx context.Context, req MovementRequest) (InventoryItem, error)
	ReserveStock(ctx context.Context, itemID int64, quantity int) error
	ReleaseStock(ctx context.Context, itemID int64, quantity int) error
	FulfillStock(ctx context.Context, itemID int64, quantity int, orderID int64) error
	OutboundQuantitySince(ctx context.Context, itemID int64, since time.Time) (int, error)
	InventoryMetrics(ctx context.Context) (InventoryMetrics, error)

	// Deliveries. A non-positive limit on list calls returns all rows.
	ListDeliveries(ctx context.Context, status DeliveryStatus, limit int) ([]Delivery, error)
	GetDelivery(ctx context.Context, id int64) (Delivery, error)
	CreateDelivery(ctx context.Context, d Delivery) (Delivery, error)
	ActiveDeliveries(ctx context.Context) ([]Delivery, error)
	AdvanceableDeliveries(ctx context.Context, limit int) ([]Delivery, error)
	AdvanceDeliveryStatus(ctx context.Context, id int64) (Delivery, error)
	UpdateDeliveryLocation(ctx context.Context, id int64, lat, lon float64) error
	DeliveryUpdates(ctx context.Context, deliveryID int64) ([]DeliveryUpdate, error)
	DeliveryMetrics(ctx context.Context) (DeliveryMetrics, error)

	// Orders.
	ListOrders(ctx context.Context, status OrderStatus, limit int) ([]Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	CreateOrder(ctx context.Context, o Order) (Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (Order, error)
	SupplyChainMetrics(ctx context.Context) (SupplyChainMetrics, error)

	// Suppliers, warehouses, drivers.
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error)
	CreateDriver(ctx context.Context, d Driver) (Driver, error)

	Close() error
}
