// Package httpapi exposes the REST surface of the back office: inventory,
// orders, deliveries, suppliers, analytics, and operational endpoints.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"supplyline/internal/forecast"
	"supplyline/internal/logging"
	"supplyline/internal/metrics"
	"supplyline/internal/provenance"
	"supplyline/internal/store"
	"supplyline/internal/ws"
)

const apiVersion = "1.0.0"

// Deps collects everything the HTTP layer serves from.
type Deps struct {
	Store      store.Store
	Registry   *ws.Registry
	Dispatcher *ws.Dispatcher
	WSHandler  *ws.Handler
	Forecaster *forecast.Service
	Ledger     *provenance.Ledger
	PromReg    *prometheus.Registry
	Log        *logging.Logger
}

type Server struct {
	store      store.Store
	registry   *ws.Registry
	dispatcher *ws.Dispatcher
	wsHandler  *ws.Handler
	forecaster *forecast.Service
	ledger     *provenance.Ledger
	promReg    *prometheus.Registry
	log        *logging.Logger
}

func NewServer(d Deps) *Server {
	return &Server{
		store:      d.Store,
		registry:   d.Registry,
		dispatcher: d.Dispatcher,
		wsHandler:  d.WSHandler,
		forecaster: d.Forecaster,
		ledger:     d.Ledger,
		promReg:    d.PromReg,
		log:        d.Log,
	}
}

// Routes builds the request mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /ws/{client_id}", s.wsHandler)
	s.handle(mux, "GET /ws/stats", s.wsStats)

	s.handle(mux, "GET /api/inventory", s.listInventory)
	s.handle(mux, "POST /api/inventory", s.createInventoryItem)
	s.handle(mux, "GET /api/inventory/low-stock", s.lowStockItems)
	s.handle(mux, "GET /api/inventory/{id}", s.getInventoryItem)
	s.handle(mux, "PUT /api/inventory/{id}", s.updateInventoryItem)
	s.handle(mux, "POST /api/inventory/reorder/{id}", s.triggerReorder)

	s.handle(mux, "GET /api/orders", s.listOrders)
	s.handle(mux, "POST /api/orders", s.createOrder)
	s.handle(mux, "GET /api/orders/{id}", s.getOrder)
	s.handle(mux, "PUT /api/orders/{id}/status", s.updateOrderStatus)

	s.handle(mux, "GET /api/deliveries", s.listDeliveries)
	s.handle(mux, "GET /api/deliveries/{id}", s.getDelivery)
	s.handle(mux, "POST /api/deliveries/{id}/update-location", s.updateDeliveryLocation)
	s.handle(mux, "GET /api/deliveries/{id}/track", s.trackDelivery)

	s.handle(mux, "GET /api/suppliers", s.listSuppliers)
	s.handle(mux, "POST /api/suppliers", s.createSupplier)
	s.handle(mux, "GET /api/warehouses", s.listWarehouses)
	s.handle(mux, "GET /api/supply-chain/metrics", s.supplyChainMetrics)
	s.handle(mux, "POST /api/optimize-routes", s.optimizeRoutes)

	s.handle(mux, "GET /api/analytics/demand-forecast", s.demandForecast)
	s.handle(mux, "GET /api/analytics/inventory-optimization", s.inventoryOptimization)
	s.handle(mux, "GET /api/analytics/dashboard", s.dashboard)
	s.handle(mux, "GET /api/analytics/performance", s.performanceMetrics)
	s.handle(mux, "GET /api/provenance/events", s.provenanceEvents)
	s.handle(mux, "GET /api/provenance/verify", s.provenanceVerify)

	s.handle(mux, "GET /health", s.health)
	if s.promReg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	}
	return mux
}

// handle registers a handler wrapped with request-duration instrumentation.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	method, route, _ := strings.Cut(pattern, " ")
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		h(w, r)
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(started).Seconds())
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   apiVersion,
	})
}

func (s *Server) wsStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}
