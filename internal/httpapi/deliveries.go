package httpapi

import (
	"net/http"

	"supplyline/internal/store"
)

func (s *Server) listDeliveries(w http.ResponseWriter, r *http.Request) {
	status := store.DeliveryStatus(r.URL.Query().Get("status"))
	deliveries, err := s.store.ListDeliveries(r.Context(), status, 0)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deliveries)
}

func (s *Server) getDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid delivery id")
		return
	}
	delivery, err := s.store.GetDelivery(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

type locationUpdateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) updateDeliveryLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid delivery id")
		return
	}
	var req locationUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	if err := s.store.UpdateDeliveryLocation(r.Context(), id, *req.Latitude, *req.Longitude); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Location updated successfully"})
}

func (s *Server) trackDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid delivery id")
		return
	}

	ctx := r.Context()
	delivery, err := s.store.GetDelivery(ctx, id)
	if err != nil {
		storeError(w, err)
		return
	}
	updates, err := s.store.DeliveryUpdates(ctx, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if updates == nil {
		updates = []store.DeliveryUpdate{}
	}

	var location map[string]float64
	if delivery.CurrentLatitude != nil && delivery.CurrentLongitude != nil {
		location = map[string]float64{
			"latitude":  *delivery.CurrentLatitude,
			"longitude": *delivery.CurrentLongitude,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"delivery": map[string]any{
			"id":               delivery.ID,
			"delivery_number":  delivery.DeliveryNumber,
			"status":           delivery.Status,
			"current_location": location,
		},
		"updates": updates,
	})
}

func (s *Server) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.store.ListSuppliers(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

type supplierRequest struct {
	Name             string  `json:"name"`
	ContactPerson    string  `json:"contact_person"`
	Email            string  `json:"email"`
	City             string  `json:"city"`
	Country          string  `json:"country"`
	ReliabilityScore float64 `json:"reliability_score"`
	AvgDeliveryDays  int     `json:"average_delivery_days"`
}

func (s *Server) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	supplier, err := s.store.CreateSupplier(r.Context(), store.Supplier{
		Name:             req.Name,
		ContactPerson:    req.ContactPerson,
		Email:            req.Email,
		City:             req.City,
		Country:          req.Country,
		ReliabilityScore: req.ReliabilityScore,
		AvgDeliveryDays:  req.AvgDeliveryDays,
		Active:           true,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, supplier)
}

func (s *Server) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := s.store.ListWarehouses(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, warehouses)
}
