package httpapi

import (
	"context"
	"net/http"
	"time"

	"supplyline/internal/store"
)

const (
	orderTaxRate          = 0.08
	standardShippingCost  = 15.99
	freeShippingThreshold = 100.0
)

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	status := store.OrderStatus(r.URL.Query().Get("status"))
	orders, err := s.store.ListOrders(r.Context(), status, 0)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := s.store.GetOrder(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type createOrderRequest struct {
	CustomerID  int64 `json:"customer_id"`
	WarehouseID int64 `json:"warehouse_id"`
	Items       []struct {
		ItemID   int64 `json:"item_id"`
		Quantity int   `json:"quantity"`
	} `json:"items"`
}

// createOrder prices the requested items, reserves their stock, and persists
// the order. Reserved stock is released again if a later line fails.
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order needs at least one item")
		return
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "item quantity must be positive")
			return
		}
	}

	ctx := r.Context()
	var (
		orderItems []store.OrderItem
		subtotal   float64
		reserved   []store.OrderItem
	)
	release := func() {
		for _, line := range reserved {
			if err := s.store.ReleaseStock(ctx, line.ItemID, line.Quantity); err != nil {
				s.log.Error("release_stock", "rollback of reservation failed", err)
			}
		}
	}

	for _, line := range req.Items {
		item, err := s.store.GetInventoryItem(ctx, line.ItemID)
		if err != nil {
			release()
			storeError(w, err)
			return
		}
		if err := s.store.ReserveStock(ctx, line.ItemID, line.Quantity); err != nil {
			release()
			storeError(w, err)
			return
		}
		orderItem := store.OrderItem{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			UnitPrice:  item.SellingPrice,
			TotalPrice: float64(line.Quantity) * item.SellingPrice,
		}
		reserved = append(reserved, orderItem)
		orderItems = append(orderItems, orderItem)
		subtotal += orderItem.TotalPrice
	}

	shipping := standardShippingCost
	if subtotal >= freeShippingThreshold {
		shipping = 0
	}

	now := time.Now().UTC()
	order, err := s.store.CreateOrder(ctx, store.Order{
		OrderNumber:  store.NewOrderNumber(now),
		CustomerID:   req.CustomerID,
		WarehouseID:  req.WarehouseID,
		Status:       store.OrderPending,
		TotalAmount:  subtotal,
		TaxAmount:    subtotal * orderTaxRate,
		ShippingCost: shipping,
		OrderDate:    now,
		Items:        orderItems,
	})
	if err != nil {
		release()
		s.log.Error("create_order", "order create failed", err)
		storeError(w, err)
		return
	}
	s.broadcastOrders(ctx)
	writeJSON(w, http.StatusCreated, order)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req orderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, ok := store.ParseOrderStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	ctx := r.Context()
	order, err := s.store.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		storeError(w, err)
		return
	}

	s.broadcastOrders(ctx)
	if status == store.OrderDelivered {
		s.notifyOrderDelivered(ctx, order.ID)
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) broadcastOrders(ctx context.Context) {
	msg, err := s.dispatcher.BuildOrderSnapshot(ctx, s.store)
	if err != nil {
		s.log.Error("order_broadcast", "snapshot build failed", err)
		return
	}
	s.dispatcher.Broadcast(msg)
}

// notifyOrderDelivered pushes a delivery notification to customers for every
// delivery tied to the order.
func (s *Server) notifyOrderDelivered(ctx context.Context, orderID int64) {
	deliveries, err := s.store.ListDeliveries(ctx, "", 0)
	if err != nil {
		s.log.Error("delivery_lookup", "delivery query failed", err)
		return
	}
	for _, d := range deliveries {
		if d.OrderID == orderID {
			s.dispatcher.SendDeliveryNotification(d.ID, string(store.DeliveryDelivered), "")
		}
	}
}
