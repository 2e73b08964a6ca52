package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"supplyline/internal/forecast"
	"supplyline/internal/logging"
	"supplyline/internal/provenance"
	"supplyline/internal/store"
	"supplyline/internal/ws"
)

type fakeTransport struct {
	mu     sync.Mutex
	writes []any
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error { return nil }

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) envelopes() []ws.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ws.Envelope
	for _, w := range f.writes {
		if env, ok := w.(ws.Envelope); ok {
			out = append(out, env)
		}
	}
	return out
}

type testEnv struct {
	server   *httptest.Server
	store    *store.Memory
	registry *ws.Registry
	ledger   *provenance.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logging.New("api-test")
	mem := store.NewMemory()
	registry := ws.NewRegistry(log)
	dispatcher := ws.NewDispatcher(registry, log)
	ledger := provenance.NewLedger()

	srv := NewServer(Deps{
		Store:      mem,
		Registry:   registry,
		Dispatcher: dispatcher,
		WSHandler:  ws.NewHandler(registry, log),
		Forecaster: forecast.NewService(mem, rand.New(rand.NewSource(1))),
		Ledger:     ledger,
		Log:        log,
	})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, store: mem, registry: registry, ledger: ledger}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "healthy" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestInventoryLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/inventory", map[string]any{
		"name": "Sony WH-1000XM5 Headphones", "sku": "HEAD-SONY-1000",
		"category": "Electronics", "current_stock": 60,
		"reorder_point": 20, "reorder_quantity": 100,
		"unit_cost": 200.0, "selling_price": 349.99,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decode[store.InventoryItem](t, resp)
	if created.ID == 0 || created.AvailableStock != 60 {
		t.Fatalf("unexpected created item: %+v", created)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/inventory/%d", created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/inventory/999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/inventory", map[string]any{"sku": "X"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/inventory", nil)
	items := decode[[]store.InventoryItem](t, resp)
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
}

func TestTriggerReorder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := &fakeTransport{}
	if err := env.registry.Connect("admin-1", ws.RoleAdmin, admin); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	healthy, err := env.store.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Nintendo Switch Console", SKU: "GAME-NINT-SWITCH",
		CurrentStock: 35, ReorderPoint: 12, ReorderQuantity: 40, UnitCost: 200,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	low, err := env.store.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Weber Genesis Gas Grill", SKU: "GRILL-WEB-GEN",
		CurrentStock: 2, ReorderPoint: 3, ReorderQuantity: 10, UnitCost: 400,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/inventory/reorder/%d", healthy.ID), nil)
	body := decode[map[string]any](t, resp)
	if body["success"] != false {
		t.Fatalf("expected reorder refusal above reorder point, got %v", body)
	}

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/inventory/reorder/%d", low.ID), nil)
	body = decode[map[string]any](t, resp)
	if body["success"] != true {
		t.Fatalf("expected reorder success, got %v", body)
	}

	var sawAlert bool
	for _, e := range admin.envelopes() {
		if e.Type == ws.TypeAlert {
			sawAlert = true
		}
	}
	if !sawAlert {
		t.Fatal("expected reorder to broadcast an alert to staff")
	}
}

func TestCreateOrderReservesStockAndPrices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item, err := env.store.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Levi's 501 Original Jeans", SKU: "JEAN-LEVI-501",
		CurrentStock: 120, SellingPrice: 59.99,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/orders", map[string]any{
		"customer_id": 1,
		"items":       []map[string]any{{"item_id": item.ID, "quantity": 2}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	order := decode[store.Order](t, resp)
	if math.Abs(order.TotalAmount-119.98) > 1e-9 {
		t.Fatalf("unexpected total: %v", order.TotalAmount)
	}
	if order.ShippingCost != 0 {
		t.Fatalf("expected free shipping at %v, got %v", order.TotalAmount, order.ShippingCost)
	}
	if order.TaxAmount == 0 {
		t.Fatal("expected tax to be applied")
	}

	got, err := env.store.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.ReservedStock != 2 {
		t.Fatalf("expected 2 reserved, got %d", got.ReservedStock)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	small, err := env.store.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Roomba i7+ Robot Vacuum", SKU: "ROBOT-ROOM-I7",
		CurrentStock: 3, SellingPrice: 799.99,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/orders", map[string]any{
		"items": []map[string]any{{"item_id": small.ID, "quantity": 10}},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	got, err := env.store.GetInventoryItem(ctx, small.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.ReservedStock != 0 {
		t.Fatalf("failed order must not leave reservations, got %d", got.ReservedStock)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.store.CreateOrder(ctx, store.Order{
		OrderNumber: "ORD-TEST-1", Status: store.OrderPending,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	resp := env.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", order.ID),
		map[string]string{"status": "SHIPPED"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decode[store.Order](t, resp)
	if updated.Status != store.OrderShipped {
		t.Fatalf("expected SHIPPED, got %s", updated.Status)
	}

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", order.ID),
		map[string]string{"status": "TELEPORTED"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestDeliveryTracking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	delivery, err := env.store.CreateDelivery(ctx, store.Delivery{
		DeliveryNumber: "DEL-TEST-1", Status: store.DeliveryPending,
	})
	if err != nil {
		t.Fatalf("create delivery: %v", err)
	}

	resp := env.do(t, http.MethodPost,
		fmt.Sprintf("/api/deliveries/%d/update-location", delivery.ID),
		map[string]float64{"latitude": 40.71, "longitude": -74.0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/deliveries/999/update-location",
		map[string]float64{"latitude": 1, "longitude": 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/deliveries/%d/track", delivery.ID), nil)
	track := decode[map[string]any](t, resp)
	deliveryBody, ok := track["delivery"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected tracking body: %v", track)
	}
	if deliveryBody["current_location"] == nil {
		t.Fatal("expected current_location after update")
	}
	if track["updates"] == nil {
		t.Fatal("expected updates log")
	}
}

func TestProvenanceEndpoints(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.ledger.Record("STOCK_MOVEMENT", map[string]any{"item_id": 1}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/provenance/events", nil)
	events := decode[map[string]any](t, resp)
	if events["length"].(float64) != 1 {
		t.Fatalf("unexpected ledger length: %v", events)
	}

	resp = env.do(t, http.MethodGet, "/api/provenance/verify", nil)
	verify := decode[map[string]any](t, resp)
	if verify["valid"] != true {
		t.Fatalf("expected valid chain, got %v", verify)
	}
}

func TestDemandForecastEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.store.CreateInventoryItem(context.Background(), store.InventoryItem{
		Name: "Fitbit Charge 5", SKU: "FIT-FITB-CH5", CurrentStock: 40,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/analytics/demand-forecast?days=14", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	report := decode[forecast.Report](t, resp)
	if report.ModelVersion != "v1.0-demo" || len(report.Forecasts) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSupplyChainMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.store.CreateOrder(ctx, store.Order{
		OrderNumber: "ORD-TEST-10", Status: store.OrderDelivered, TotalAmount: 200,
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := env.store.CreateOrder(ctx, store.Order{
		OrderNumber: "ORD-TEST-11", Status: store.OrderPending, TotalAmount: 100,
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/supply-chain/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	metrics := decode[store.SupplyChainMetrics](t, resp)
	if metrics.TotalOrders != 2 || metrics.DeliveredOrders != 1 || metrics.PendingOrders != 1 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}
	if metrics.FulfillmentRate != 50 || metrics.TotalRevenue != 300 {
		t.Fatalf("unexpected rates: %+v", metrics)
	}
}

func TestInventoryOptimizationEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.store.CreateInventoryItem(context.Background(), store.InventoryItem{
		Name: "Patagonia Down Jacket", SKU: "JACK-PATA-DOWN",
		CurrentStock: 80, UnitCost: 120, SellingPrice: 229.99,
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/analytics/inventory-optimization", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	report := decode[forecast.OptimizationReport](t, resp)
	if report.Summary.TotalItemsAnalyzed != 1 || len(report.Recommendations) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Recommendations[0].Recommendation == "" {
		t.Fatalf("expected recommendation text: %+v", report.Recommendations[0])
	}
}

func TestPerformanceMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/analytics/performance", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	for _, key := range []string{"inventory_turnover", "order_fulfillment_rate", "delivery_success_rate", "customer_satisfaction"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing %q in %v", key, body)
		}
	}
	if body["customer_satisfaction"].(float64) != 4.5 {
		t.Fatalf("unexpected satisfaction score: %v", body["customer_satisfaction"])
	}
}

func TestDashboardIncludesSupplyChainAndInsights(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/analytics/dashboard", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	for _, key := range []string{"inventory_metrics", "supply_chain_metrics", "delivery_metrics", "ml_insights", "connections"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing %q in dashboard body", key)
		}
	}
}

func TestOptimizeRoutes(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/optimize-routes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Routes optimized" {
		t.Fatalf("unexpected body: %v", body)
	}
	details, ok := body["details"].(map[string]any)
	if !ok || details["routes_optimized"].(float64) != 5 {
		t.Fatalf("unexpected details: %v", body)
	}
}

func TestWSStats(t *testing.T) {
	env := newTestEnv(t)
	if err := env.registry.Connect("admin-1", ws.RoleAdmin, &fakeTransport{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/ws/stats", nil)
	stats := decode[ws.Stats](t, resp)
	if stats.TotalConnections != 1 || stats.CountsByRole["admin"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
