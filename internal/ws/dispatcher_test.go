package ws

import (
	"context"
	"errors"
	"testing"

	"supplyline/internal/logging"
	"supplyline/internal/store"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Registry) {
	t.Helper()
	registry := newTestRegistry()
	return NewDispatcher(registry, logging.New("ws-test")), registry
}

func TestBroadcastTargetsMatchingRolesOnly(t *testing.T) {
	dispatcher, registry := newTestDispatcher(t)

	admin := &fakeTransport{}
	driver := &fakeTransport{}
	customer := &fakeTransport{}
	for _, c := range []struct {
		id        string
		role      Role
		transport *fakeTransport
	}{
		{"a", RoleAdmin, admin},
		{"b", RoleDriver, driver},
		{"c", RoleCustomer, customer},
	} {
		if err := registry.Connect(c.id, c.role, c.transport); err != nil {
			t.Fatalf("Connect(%s): %v", c.id, err)
		}
	}
	adminBaseline := admin.writeCount()
	driverBaseline := driver.writeCount()
	customerBaseline := customer.writeCount()

	dispatcher.Broadcast(Message{
		Envelope: newEnvelope(TypeInventoryUpdate, InventoryUpdateData{}),
		Audience: Staff(),
	})

	if got := admin.writeCount() - adminBaseline; got != 1 {
		t.Fatalf("expected admin to receive 1 message, got %d", got)
	}
	if got := driver.writeCount() - driverBaseline; got != 0 {
		t.Fatalf("expected driver to receive nothing, got %d", got)
	}
	if got := customer.writeCount() - customerBaseline; got != 0 {
		t.Fatalf("expected customer to receive nothing, got %d", got)
	}
}

func TestBroadcastWithNoMatchingConnectionsIsNoop(t *testing.T) {
	dispatcher, registry := newTestDispatcher(t)
	driver := &fakeTransport{}
	if err := registry.Connect("d", RoleDriver, driver); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	baseline := driver.writeCount()

	dispatcher.Broadcast(Message{
		Envelope: newEnvelope(TypeAlert, AlertData{}),
		Audience: Roles(RoleAdmin),
	})

	if got := driver.writeCount() - baseline; got != 0 {
		t.Fatalf("expected zero sends, got %d", got)
	}
}

func TestBroadcastDisconnectsFailedRecipients(t *testing.T) {
	dispatcher, registry := newTestDispatcher(t)

	healthy := &fakeTransport{}
	broken := &fakeTransport{}
	if err := registry.Connect("healthy", RoleAdmin, healthy); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := registry.Connect("broken", RoleAdmin, broken); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	broken.fail = true
	baseline := healthy.writeCount()

	dispatcher.Broadcast(Message{
		Envelope: newEnvelope(TypeInventoryUpdate, InventoryUpdateData{}),
		Audience: Staff(),
	})

	if got := healthy.writeCount() - baseline; got != 1 {
		t.Fatalf("expected healthy recipient to still receive, got %d sends", got)
	}
	conns := registry.ConnectionsForRoles(nil)
	if len(conns) != 1 || conns[0].ID != "healthy" {
		t.Fatalf("expected broken connection to be removed, got %+v", conns)
	}
	if !broken.closed {
		t.Fatal("expected broken transport to be closed")
	}
}

func TestSendToOneUnknownConnection(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	err := dispatcher.SendToOne("ghost", newEnvelope(TypeAlert, AlertData{}))
	if !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("expected ErrUnknownConnection, got %v", err)
	}
}

func TestSendToOneDisconnectsOnFailure(t *testing.T) {
	dispatcher, registry := newTestDispatcher(t)
	broken := &fakeTransport{}
	if err := registry.Connect("broken", RoleCustomer, broken); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	broken.fail = true

	if err := dispatcher.SendToOne("broken", newEnvelope(TypeAlert, AlertData{})); err == nil {
		t.Fatal("expected send failure")
	}
	if got := registry.Stats().TotalConnections; got != 0 {
		t.Fatalf("expected failed connection to be removed, got %d", got)
	}
}

func seedSnapshotStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	low, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Roomba i7+ Robot Vacuum", SKU: "ROBOT-ROOM-I7",
		CurrentStock: 2, ReorderPoint: 3,
	})
	if err != nil {
		t.Fatalf("create low-stock item: %v", err)
	}
	if _, err := mem.CreateInventoryItem(ctx, store.InventoryItem{
		Name: "Yeti Rambler Tumbler", SKU: "TUMB-YETI-RAMB",
		CurrentStock: 150, ReorderPoint: 40,
	}); err != nil {
		t.Fatalf("create healthy item: %v", err)
	}
	if _, err := mem.ApplyStockMovement(ctx, store.MovementRequest{
		ItemID: low.ID, Type: store.MovementIn, Quantity: 5, Reason: "test restock",
	}); err != nil {
		t.Fatalf("apply movement: %v", err)
	}
	return mem
}

func TestBuildInventorySnapshot(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	mem := seedSnapshotStore(t)

	msg, err := dispatcher.BuildInventorySnapshot(context.Background(), mem)
	if err != nil {
		t.Fatalf("BuildInventorySnapshot: %v", err)
	}
	if msg.Envelope.Type != TypeInventoryUpdate {
		t.Fatalf("expected inventory_update, got %s", msg.Envelope.Type)
	}
	if !msg.Audience.Contains(RoleAdmin) || !msg.Audience.Contains(RoleManager) {
		t.Fatal("expected staff audience")
	}
	if msg.Audience.Contains(RoleDriver) {
		t.Fatal("driver must not be in the inventory audience")
	}

	data, ok := msg.Envelope.Data.(InventoryUpdateData)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Envelope.Data)
	}
	// Stock rose to 7, reorder point is 3: no longer low.
	if len(data.LowStockItems) != 0 {
		t.Fatalf("expected no low-stock items after restock, got %+v", data.LowStockItems)
	}
	if len(data.RecentMovements) == 0 {
		t.Fatal("expected recent movements in snapshot")
	}
	if data.RecentMovements[0].Quantity != 5 {
		t.Fatalf("expected newest movement first, got %+v", data.RecentMovements[0])
	}
}

func TestBuildDeliverySnapshotLocationRequiresBothCoordinates(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()
	mem := store.NewMemory()

	driver, err := mem.CreateDriver(ctx, store.Driver{FirstName: "Mike", LastName: "Rodriguez", Status: "AVAILABLE"})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	lat := 40.71
	if _, err := mem.CreateDelivery(ctx, store.Delivery{
		DeliveryNumber: "DEL-1", Status: store.DeliveryAssigned,
		DriverID: driver.ID, CurrentLatitude: &lat,
	}); err != nil {
		t.Fatalf("create delivery: %v", err)
	}
	if _, err := mem.CreateDelivery(ctx, store.Delivery{
		DeliveryNumber: "DEL-2", Status: store.DeliveryPending,
	}); err != nil {
		t.Fatalf("create pending delivery: %v", err)
	}

	msg, err := dispatcher.BuildDeliverySnapshot(ctx, mem)
	if err != nil {
		t.Fatalf("BuildDeliverySnapshot: %v", err)
	}
	if !msg.Audience.Contains(RoleDriver) {
		t.Fatal("expected driver in the delivery audience")
	}

	data, ok := msg.Envelope.Data.(DeliveryUpdateData)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Envelope.Data)
	}
	if len(data.ActiveDeliveries) != 1 {
		t.Fatalf("expected only the ASSIGNED delivery, got %+v", data.ActiveDeliveries)
	}
	entry := data.ActiveDeliveries[0]
	if entry.DeliveryNumber != "DEL-1" {
		t.Fatalf("unexpected delivery: %+v", entry)
	}
	if entry.CurrentLocation != nil {
		t.Fatal("location must be omitted when longitude is unknown")
	}
	if entry.DriverName == nil || *entry.DriverName != "Mike Rodriguez" {
		t.Fatalf("unexpected driver name: %v", entry.DriverName)
	}
}

func TestSendDeliveryNotificationUnicastAndBroadcast(t *testing.T) {
	dispatcher, registry := newTestDispatcher(t)

	customerA := &fakeTransport{}
	customerB := &fakeTransport{}
	admin := &fakeTransport{}
	for _, c := range []struct {
		id        string
		role      Role
		transport *fakeTransport
	}{
		{"cust-a", RoleCustomer, customerA},
		{"cust-b", RoleCustomer, customerB},
		{"admin", RoleAdmin, admin},
	} {
		if err := registry.Connect(c.id, c.role, c.transport); err != nil {
			t.Fatalf("Connect(%s): %v", c.id, err)
		}
	}
	aBase, bBase, adminBase := customerA.writeCount(), customerB.writeCount(), admin.writeCount()

	dispatcher.SendDeliveryNotification(7, "IN_TRANSIT", "cust-a")
	if got := customerA.writeCount() - aBase; got != 1 {
		t.Fatalf("expected unicast to cust-a, got %d sends", got)
	}
	if got := customerB.writeCount() - bBase; got != 0 {
		t.Fatalf("unicast must not reach cust-b, got %d sends", got)
	}

	dispatcher.SendDeliveryNotification(7, "DELIVERED", "")
	if got := customerB.writeCount() - bBase; got != 1 {
		t.Fatalf("expected broadcast to reach cust-b, got %d sends", got)
	}
	if got := admin.writeCount() - adminBase; got != 0 {
		t.Fatalf("delivery notifications must not reach admin, got %d sends", got)
	}
}

func TestSendAlertDefaultsToStaff(t *testing.T) {
	dispatcher, registry := newTestDispatcher(t)
	manager := &fakeTransport{}
	customer := &fakeTransport{}
	if err := registry.Connect("m", RoleManager, manager); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := registry.Connect("c", RoleCustomer, customer); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	mBase, cBase := manager.writeCount(), customer.writeCount()

	dispatcher.SendAlert("stockout", "item 3 is out of stock", "high", nil)

	if got := manager.writeCount() - mBase; got != 1 {
		t.Fatalf("expected manager to receive alert, got %d", got)
	}
	if got := customer.writeCount() - cBase; got != 0 {
		t.Fatalf("customer must not receive staff alerts, got %d", got)
	}
}
