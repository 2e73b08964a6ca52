package store

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

type seedItem struct {
	name     string
	sku      string
	category string
	cost     float64
	price    float64
	stock    int
	reorder  int
	quantity int
}

var seedItems = []seedItem{
	{"Samsung 65\" 4K Smart TV", "TV-SAM-65-4K", "Electronics", 450.00, 699.99, 25, 10, 50},
	{"Apple iPhone 15 Pro", "PHONE-APPL-15P", "Electronics", 800.00, 1199.99, 45, 15, 30},
	{"Sony WH-1000XM5 Headphones", "HEAD-SONY-1000", "Electronics", 200.00, 349.99, 60, 20, 100},
	{"Dell XPS 13 Laptop", "LAPTOP-DELL-XPS13", "Electronics", 650.00, 999.99, 18, 8, 25},
	{"Nintendo Switch Console", "GAME-NINT-SWITCH", "Electronics", 200.00, 299.99, 35, 12, 40},
	{"Levi's 501 Original Jeans", "JEAN-LEVI-501", "Clothing", 25.00, 59.99, 120, 50, 200},
	{"Nike Air Force 1 Sneakers", "SHOE-NIKE-AF1", "Clothing", 45.00, 89.99, 85, 30, 150},
	{"Adidas Hoodie", "HOOD-ADID-CLAS", "Clothing", 30.00, 64.99, 95, 25, 100},
	{"KitchenAid Stand Mixer", "MIXER-KA-STAND", "Home & Garden", 180.00, 299.99, 30, 8, 20},
	{"Dyson V15 Vacuum Cleaner", "VAC-DYSON-V15", "Home & Garden", 350.00, 549.99, 22, 5, 15},
	{"Weber Genesis Gas Grill", "GRILL-WEB-GEN", "Home & Garden", 400.00, 649.99, 12, 3, 10},
	{"Roomba i7+ Robot Vacuum", "ROBOT-ROOM-I7", "Home & Garden", 500.00, 799.99, 8, 3, 12},
	{"Yeti Rambler Tumbler", "TUMB-YETI-RAMB", "Sports & Outdoors", 15.00, 34.99, 150, 40, 200},
	{"Coleman 6-Person Tent", "TENT-COLE-6P", "Sports & Outdoors", 80.00, 149.99, 25, 8, 30},
	{"Fitbit Charge 5", "FIT-FITB-CH5", "Sports & Outdoors", 90.00, 149.99, 40, 15, 50},
}

var seedWarehouses = []Warehouse{
	{Name: "Northeast Distribution Center", Code: "NE-DC-01", City: "Boston", Latitude: 42.3601, Longitude: -71.0589, Capacity: 10000, Utilization: 65, Kind: "DISTRIBUTION"},
	{Name: "Southeast Fulfillment Center", Code: "SE-FC-01", City: "Atlanta", Latitude: 33.7490, Longitude: -84.3880, Capacity: 8000, Utilization: 72, Kind: "FULFILLMENT"},
	{Name: "West Coast Hub", Code: "WC-HUB-01", City: "Los Angeles", Latitude: 34.0522, Longitude: -118.2437, Capacity: 12000, Utilization: 58, Kind: "DISTRIBUTION"},
}

var seedSuppliers = []Supplier{
	{Name: "Global Electronics Inc", ContactPerson: "David Wilson", Email: "david@globalelectronics.com", City: "San Jose", Country: "USA", ReliabilityScore: 8.5, AvgDeliveryDays: 5, Active: true},
	{Name: "Fashion Forward LLC", ContactPerson: "Lisa Rodriguez", Email: "lisa@fashionforward.com", City: "New York", Country: "USA", ReliabilityScore: 7.8, AvgDeliveryDays: 7, Active: true},
	{Name: "Home & Garden Supplies", ContactPerson: "Robert Taylor", Email: "robert@homegardenco.com", City: "Phoenix", Country: "USA", ReliabilityScore: 9.1, AvgDeliveryDays: 4, Active: true},
}

var seedDrivers = []Driver{
	{FirstName: "Mike", LastName: "Rodriguez", Status: "AVAILABLE"},
	{FirstName: "Sarah", LastName: "Thompson", Status: "AVAILABLE"},
	{FirstName: "James", LastName: "Anderson", Status: "AVAILABLE"},
	{FirstName: "Lisa", LastName: "Garcia", Status: "AVAILABLE"},
}

// NewOrderNumber builds an order number like ORD-20260828-1A2B3C4D.
func NewOrderNumber(at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), shortUUID())
}

// NewDeliveryNumber builds a delivery number like DEL-20260828-1A2B3C4D.
func NewDeliveryNumber(at time.Time) string {
	return fmt.Sprintf("DEL-%s-%s", at.Format("20060102"), shortUUID())
}

func shortUUID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// Seed populates a fresh store with demo data. It is a no-op when inventory
// already exists, so restarting the server does not duplicate rows.
func Seed(ctx context.Context, s Store, rng *rand.Rand) error {
	existing, err := s.ListInventory(ctx)
	if err != nil {
		return fmt.Errorf("check existing inventory: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	warehouseIDs := make([]int64, 0, len(seedWarehouses))
	for _, w := range seedWarehouses {
		created, err := s.CreateWarehouse(ctx, w)
		if err != nil {
			return fmt.Errorf("seed warehouse %s: %w", w.Code, err)
		}
		warehouseIDs = append(warehouseIDs, created.ID)
	}

	for _, sup := range seedSuppliers {
		if _, err := s.CreateSupplier(ctx, sup); err != nil {
			return fmt.Errorf("seed supplier %s: %w", sup.Name, err)
		}
	}

	items := make([]InventoryItem, 0, len(seedItems))
	for i, si := range seedItems {
		item, err := s.CreateInventoryItem(ctx, InventoryItem{
			Name:            si.name,
			SKU:             si.sku,
			Category:        si.category,
			CurrentStock:    si.stock,
			ReservedStock:   rng.Intn(6),
			ReorderPoint:    si.reorder,
			ReorderQuantity: si.quantity,
			UnitCost:        si.cost,
			SellingPrice:    si.price,
			WarehouseID:     warehouseIDs[i%len(warehouseIDs)],
		})
		if err != nil {
			return fmt.Errorf("seed item %s: %w", si.sku, err)
		}
		items = append(items, item)
	}

	driverIDs := make([]int64, 0, len(seedDrivers))
	for _, d := range seedDrivers {
		created, err := s.CreateDriver(ctx, d)
		if err != nil {
			return fmt.Errorf("seed driver %s: %w", d.DisplayName(), err)
		}
		driverIDs = append(driverIDs, created.ID)
	}

	now := time.Now().UTC()
	statuses := []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered}
	var shipped []Order
	for i := 0; i < 10; i++ {
		orderDate := now.AddDate(0, 0, -(rng.Intn(30) + 1))
		status := statuses[rng.Intn(len(statuses))]

		var (
			orderItems []OrderItem
			total      float64
		)
		for _, idx := range rng.Perm(len(items))[:rng.Intn(4)+1] {
			item := items[idx]
			qty := rng.Intn(3) + 1
			orderItems = append(orderItems, OrderItem{
				ItemID:     item.ID,
				Quantity:   qty,
				UnitPrice:  item.SellingPrice,
				TotalPrice: float64(qty) * item.SellingPrice,
			})
			total += float64(qty) * item.SellingPrice
		}

		order, err := s.CreateOrder(ctx, Order{
			OrderNumber:  NewOrderNumber(orderDate),
			CustomerID:   int64(rng.Intn(5) + 1),
			WarehouseID:  warehouseIDs[rng.Intn(len(warehouseIDs))],
			Status:       status,
			TotalAmount:  total,
			TaxAmount:    total * 0.08,
			ShippingCost: 15.99,
			OrderDate:    orderDate,
			Items:        orderItems,
		})
		if err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
		if status == OrderShipped || status == OrderDelivered {
			shipped = append(shipped, order)
		}
	}

	// Deliveries stay PENDING or ASSIGNED so the simulation has transitions
	// left to perform.
	deliveryStatuses := []DeliveryStatus{DeliveryPending, DeliveryAssigned}
	for i, order := range shipped {
		if i >= 5 {
			break
		}
		lat := 40.7128 + rng.Float64()*0.2 - 0.1
		lon := -74.0060 + rng.Float64()*0.2 - 0.1
		if _, err := s.CreateDelivery(ctx, Delivery{
			DeliveryNumber:   NewDeliveryNumber(order.OrderDate),
			OrderID:          order.ID,
			Status:           deliveryStatuses[i%len(deliveryStatuses)],
			DriverID:         driverIDs[rng.Intn(len(driverIDs))],
			Address:          "123 Sample St",
			City:             "Sample City",
			CurrentLatitude:  &lat,
			CurrentLongitude: &lon,
		}); err != nil {
			return fmt.Errorf("seed delivery: %w", err)
		}
	}
	return nil
}
