package ws

import "time"

// MessageType enumerates the outbound message envelope types.
type MessageType string

const (
	TypeInventoryUpdate      MessageType = "inventory_update"
	TypeDeliveryUpdate       MessageType = "delivery_update"
	TypeOrderUpdate          MessageType = "order_update"
	TypeAlert                MessageType = "alert"
	TypeDeliveryNotification MessageType = "delivery_notification"
	TypeConnectionConfirmed  MessageType = "connection_confirmed"
)

// Envelope is the wire shape of every outbound message. Data carries the
// type-specific payload; Message and ClientID are only set on
// connection_confirmed and echo acknowledgments.
type Envelope struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Message pairs an envelope with the audience it is meant for.
type Message struct {
	Envelope Envelope
	Audience RoleSet
}

func newEnvelope(t MessageType, data any) Envelope {
	return Envelope{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

type LowStockItem struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	CurrentStock int    `json:"current_stock"`
	ReorderPoint int    `json:"reorder_point"`
}

type MovementSummary struct {
	ID           int64  `json:"id"`
	ItemName     string `json:"item_name"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	CreatedAt    string `json:"created_at"`
}

type InventoryUpdateData struct {
	LowStockItems   []LowStockItem    `json:"low_stock_items"`
	RecentMovements []MovementSummary `json:"recent_movements"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ActiveDelivery struct {
	ID               int64     `json:"id"`
	DeliveryNumber   string    `json:"delivery_number"`
	Status           string    `json:"status"`
	DriverName       *string   `json:"driver_name"`
	CurrentLocation  *Location `json:"current_location"`
	EstimatedArrival *string   `json:"estimated_arrival"`
}

type DeliveryUpdateData struct {
	ActiveDeliveries []ActiveDelivery `json:"active_deliveries"`
}

type OrderSummary struct {
	ID          int64   `json:"id"`
	OrderNumber string  `json:"order_number"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	OrderDate   string  `json:"order_date"`
}

type OrderUpdateData struct {
	PendingOrdersCount int            `json:"pending_orders_count"`
	RecentOrders       []OrderSummary `json:"recent_orders"`
}

type AlertData struct {
	AlertType string `json:"alert_type"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Timestamp string `json:"timestamp"`
}

type DeliveryNotificationData struct {
	DeliveryID int64  `json:"delivery_id"`
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
}
