package httpapi

import (
	"net/http"
	"time"

	"supplyline/internal/store"
)

func (s *Server) listInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListInventory(r.Context())
	if err != nil {
		s.log.Error("list_inventory", "inventory query failed", err)
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := s.store.GetInventoryItem(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type inventoryItemRequest struct {
	Name            string  `json:"name"`
	SKU             string  `json:"sku"`
	Category        string  `json:"category"`
	CurrentStock    int     `json:"current_stock"`
	ReorderPoint    int     `json:"reorder_point"`
	ReorderQuantity int     `json:"reorder_quantity"`
	UnitCost        float64 `json:"unit_cost"`
	SellingPrice    float64 `json:"selling_price"`
	WarehouseID     int64   `json:"warehouse_id"`
}

func (req *inventoryItemRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.SKU == "" {
		return "sku is required"
	}
	if req.CurrentStock < 0 {
		return "current_stock must not be negative"
	}
	return ""
}

func (s *Server) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req inventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.store.CreateInventoryItem(r.Context(), store.InventoryItem{
		Name:            req.Name,
		SKU:             req.SKU,
		Category:        req.Category,
		CurrentStock:    req.CurrentStock,
		ReorderPoint:    req.ReorderPoint,
		ReorderQuantity: req.ReorderQuantity,
		UnitCost:        req.UnitCost,
		SellingPrice:    req.SellingPrice,
		WarehouseID:     req.WarehouseID,
	})
	if err != nil {
		s.log.Error("create_inventory", "item create failed", err)
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req inventoryItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.store.UpdateInventoryItem(r.Context(), store.InventoryItem{
		ID:              id,
		Name:            req.Name,
		SKU:             req.SKU,
		Category:        req.Category,
		CurrentStock:    req.CurrentStock,
		ReorderPoint:    req.ReorderPoint,
		ReorderQuantity: req.ReorderQuantity,
		UnitCost:        req.UnitCost,
		SellingPrice:    req.SellingPrice,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) lowStockItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.LowStockItems(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// triggerReorder simulates placing a purchase order for an item at or below
// its reorder point. A real deployment would call out to supplier APIs here.
func (s *Server) triggerReorder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := s.store.GetInventoryItem(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	if item.CurrentStock > item.ReorderPoint {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Item stock is above reorder point",
		})
		return
	}

	s.dispatcher.SendAlert("reorder_triggered",
		"Reorder triggered for "+item.Name, "medium", nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Reorder triggered for " + item.Name,
		"details": map[string]any{
			"item_name":         item.Name,
			"sku":               item.SKU,
			"current_stock":     item.CurrentStock,
			"reorder_point":     item.ReorderPoint,
			"reorder_quantity":  item.ReorderQuantity,
			"estimated_cost":    float64(item.ReorderQuantity) * item.UnitCost,
			"expected_delivery": time.Now().UTC().AddDate(0, 0, 7).Format(time.RFC3339),
		},
	})
}
