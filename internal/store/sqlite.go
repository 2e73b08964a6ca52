package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	sku TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL DEFAULT '',
	current_stock INTEGER NOT NULL DEFAULT 0,
	reserved_stock INTEGER NOT NULL DEFAULT 0,
	reorder_point INTEGER NOT NULL DEFAULT 10,
	reorder_quantity INTEGER NOT NULL DEFAULT 100,
	unit_cost REAL NOT NULL DEFAULT 0,
	selling_price REAL NOT NULL DEFAULT 0,
	warehouse_id INTEGER NOT NULL DEFAULT 0,
	last_restocked TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	CHECK (current_stock >= 0)
);
CREATE TABLE IF NOT EXISTS stock_movements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id INTEGER NOT NULL REFERENCES inventory_items(id),
	movement_type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	reference_type TEXT NOT NULL DEFAULT '',
	reference_id INTEGER NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	created_by TEXT NOT NULL DEFAULT 'SYSTEM'
);
CREATE TABLE IF NOT EXISTS drivers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'AVAILABLE'
);
CREATE TABLE IF NOT EXISTS deliveries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	delivery_number TEXT NOT NULL UNIQUE,
	order_id INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'PENDING',
	driver_id INTEGER NOT NULL DEFAULT 0,
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	current_latitude REAL,
	current_longitude REAL,
	estimated_arrival TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS delivery_updates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	delivery_id INTEGER NOT NULL REFERENCES deliveries(id),
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	latitude REAL,
	longitude REAL,
	created_at TIMESTAMP NOT NULL,
	created_by TEXT NOT NULL DEFAULT 'SYSTEM'
);
CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_number TEXT NOT NULL UNIQUE,
	customer_id INTEGER NOT NULL DEFAULT 0,
	warehouse_id INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'PENDING',
	total_amount REAL NOT NULL DEFAULT 0,
	tax_amount REAL NOT NULL DEFAULT 0,
	shipping_cost REAL NOT NULL DEFAULT 0,
	order_date TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL REFERENCES orders(id),
	item_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price REAL NOT NULL,
	total_price REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS suppliers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	contact_person TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	reliability_score REAL NOT NULL DEFAULT 5.0,
	average_delivery_days INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS warehouses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	code TEXT NOT NULL UNIQUE,
	city TEXT NOT NULL DEFAULT '',
	latitude REAL NOT NULL DEFAULT 0,
	longitude REAL NOT NULL DEFAULT 0,
	capacity REAL NOT NULL DEFAULT 0,
	utilization REAL NOT NULL DEFAULT 0,
	kind TEXT NOT NULL DEFAULT 'DISTRIBUTION'
);
CREATE INDEX IF NOT EXISTS idx_movements_item ON stock_movements(item_id, created_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
`

// SQLite is the file-backed demo store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates, if necessary) the SQLite database at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under the scheduler plus request handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

const itemColumns = `id, name, sku, category, current_stock, reserved_stock,
	current_stock - reserved_stock, reorder_point, reorder_quantity,
	unit_cost, selling_price, warehouse_id, last_restocked, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.SKU, &item.Category,
		&item.CurrentStock, &item.ReservedStock, &item.AvailableStock,
		&item.ReorderPoint, &item.ReorderQuantity, &item.UnitCost,
		&item.SellingPrice, &item.WarehouseID, &item.LastRestocked,
		&item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return item, ErrNotFound
	}
	return item, err
}

func (s *SQLite) queryItems(ctx context.Context, query string, args ...any) ([]InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLite) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY id`)
}

func (s *SQLite) GetInventoryItem(ctx context.Context, id int64) (InventoryItem, error) {
	return scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id))
}

func (s *SQLite) SampleInventoryItems(ctx context.Context, limit int) ([]InventoryItem, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY id LIMIT ?`, limit)
}

func (s *SQLite) LowStockItems(ctx context.Context) ([]InventoryItem, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE current_stock <= reorder_point ORDER BY id`)
}

func (s *SQLite) CreateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (name, sku, category, current_stock, reserved_stock,
			reorder_point, reorder_quantity, unit_cost, selling_price, warehouse_id,
			last_restocked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.SKU, item.Category, item.CurrentStock, item.ReservedStock,
		item.ReorderPoint, item.ReorderQuantity, item.UnitCost, item.SellingPrice,
		item.WarehouseID, now, now, now)
	if err != nil {
		return InventoryItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return InventoryItem{}, err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reason, created_at, created_by)
		VALUES (?, 'IN', ?, 'INITIAL_STOCK', 'Initial inventory setup', ?, 'SYSTEM')`,
		id, item.CurrentStock, now); err != nil {
		return InventoryItem{}, err
	}
	return s.GetInventoryItem(ctx, id)
}

func (s *SQLite) UpdateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error) {
	old, err := s.GetInventoryItem(ctx, item.ID)
	if err != nil {
		return InventoryItem{}, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE inventory_items SET name = ?, sku = ?, category = ?, current_stock = ?,
			reserved_stock = ?, reorder_point = ?, reorder_quantity = ?, unit_cost = ?,
			selling_price = ?, updated_at = ? WHERE id = ?`,
		item.Name, item.SKU, item.Category, item.CurrentStock, item.ReservedStock,
		item.ReorderPoint, item.ReorderQuantity, item.UnitCost, item.SellingPrice,
		now, item.ID)
	if err != nil {
		return InventoryItem{}, err
	}
	if old.CurrentStock != item.CurrentStock {
		change := item.CurrentStock - old.CurrentStock
		mt := MovementIn
		if change < 0 {
			mt = MovementOut
			change = -change
		}
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reason, created_at, created_by)
			VALUES (?, ?, ?, 'ADJUSTMENT', 'Manual inventory adjustment', ?, 'SYSTEM')`,
			item.ID, string(mt), change, now); err != nil {
			return InventoryItem{}, err
		}
	}
	return s.GetInventoryItem(ctx, item.ID)
}

func (s *SQLite) RecentStockMovements(ctx context.Context, limit int) ([]StockMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.item_id, i.name, m.movement_type, m.quantity, m.reference_type,
			m.reference_id, m.reason, m.created_at, m.created_by
		FROM stock_movements m JOIN inventory_items i ON i.id = m.item_id
		ORDER BY m.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockMovement
	for rows.Next() {
		var mov StockMovement
		if err := rows.Scan(&mov.ID, &mov.ItemID, &mov.ItemName, &mov.MovementType,
			&mov.Quantity, &mov.ReferenceType, &mov.ReferenceID, &mov.Reason,
			&mov.CreatedAt, &mov.CreatedBy); err != nil {
			return nil, err
		}
		out = append(out, mov)
	}
	return out, rows.Err()
}

// ApplyStockMovement runs stock mutation and ledger append in one transaction.
func (s *SQLite) ApplyStockMovement(ctx context.Context, req MovementRequest) (InventoryItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return InventoryItem{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var res sql.Result
	switch req.Type {
	case MovementIn:
		res, err = tx.ExecContext(ctx, `
			UPDATE inventory_items SET current_stock = current_stock + ?,
				last_restocked = ?, updated_at = ? WHERE id = ?`,
			req.Quantity, now, now, req.ItemID)
	case MovementOut:
		res, err = tx.ExecContext(ctx, `
			UPDATE inventory_items SET current_stock = current_stock - ?, updated_at = ?
			WHERE id = ? AND current_stock >= ?`,
			req.Quantity, now, req.ItemID, req.Quantity)
	default:
		return InventoryItem{}, ErrInvalidTransition
	}
	if err != nil {
		return InventoryItem{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return InventoryItem{}, err
	}
	if affected == 0 {
		if err := itemExistsTx(ctx, tx, req.ItemID); err != nil {
			return InventoryItem{}, err
		}
		return InventoryItem{}, ErrInsufficientStock
	}

	by := req.CreatedBy
	if by == "" {
		by = "SYSTEM"
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reference_id, reason, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ItemID, string(req.Type), req.Quantity, req.ReferenceType, req.ReferenceID, req.Reason, now, by); err != nil {
		return InventoryItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return InventoryItem{}, err
	}
	return s.GetInventoryItem(ctx, req.ItemID)
}

// itemExistsTx distinguishes a missing row from a constraint miss without
// leaving the transaction's connection.
func itemExistsTx(ctx context.Context, tx *sql.Tx, itemID int64) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items WHERE id = ?`, itemID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) adjustReservation(ctx context.Context, itemID int64, quantity int, mt MovementType, condition, update, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET `+update+`, updated_at = ? WHERE id = ? AND `+condition,
		quantity, now, itemID, quantity)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if err := itemExistsTx(ctx, tx, itemID); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reason, created_at, created_by)
		VALUES (?, ?, ?, 'ORDER', ?, ?, 'SYSTEM')`,
		itemID, string(mt), quantity, reason, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) ReserveStock(ctx context.Context, itemID int64, quantity int) error {
	return s.adjustReservation(ctx, itemID, quantity, MovementReserved,
		`current_stock - reserved_stock >= ?`,
		`reserved_stock = reserved_stock + ?`,
		"Stock reserved for order")
}

func (s *SQLite) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	return s.adjustReservation(ctx, itemID, quantity, MovementReleased,
		`reserved_stock >= ?`,
		`reserved_stock = reserved_stock - ?`,
		"Stock released from reservation")
}

func (s *SQLite) FulfillStock(ctx context.Context, itemID int64, quantity int, orderID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_items SET current_stock = current_stock - ?,
			reserved_stock = reserved_stock - ?, updated_at = ?
		WHERE id = ? AND reserved_stock >= ? AND current_stock >= ?`,
		quantity, quantity, now, itemID, quantity, quantity)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if err := itemExistsTx(ctx, tx, itemID); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reference_id, reason, created_at, created_by)
		VALUES (?, 'OUT', ?, 'ORDER', ?, 'Stock fulfilled for order', ?, 'SYSTEM')`,
		itemID, quantity, orderID, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) OutboundQuantitySince(ctx context.Context, itemID int64, since time.Time) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(quantity) FROM stock_movements
		WHERE item_id = ? AND movement_type = 'OUT' AND created_at >= ?`,
		itemID, since).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

func (s *SQLite) InventoryMetrics(ctx context.Context) (InventoryMetrics, error) {
	var metrics InventoryMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN current_stock <= reorder_point THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN current_stock <= 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(current_stock * unit_cost), 0)
		FROM inventory_items`).Scan(
		&metrics.TotalItems, &metrics.LowStockItems, &metrics.OutOfStockItems, &metrics.TotalValue)
	return metrics, err
}

const deliveryColumns = `d.id, d.delivery_number, d.order_id, d.status, d.driver_id,
	d.address, d.city, d.current_latitude, d.current_longitude, d.estimated_arrival,
	d.created_at, d.updated_at, dr.id, dr.first_name, dr.last_name, dr.status`

const deliveryJoin = ` FROM deliveries d LEFT JOIN drivers dr ON dr.id = d.driver_id `

func scanDelivery(row interface{ Scan(...any) error }) (Delivery, error) {
	var d Delivery
	var drvID sql.NullInt64
	var drvFirst, drvLast, drvStatus sql.NullString
	err := row.Scan(&d.ID, &d.DeliveryNumber, &d.OrderID, &d.Status, &d.DriverID,
		&d.Address, &d.City, &d.CurrentLatitude, &d.CurrentLongitude, &d.EstimatedArrival,
		&d.CreatedAt, &d.UpdatedAt, &drvID, &drvFirst, &drvLast, &drvStatus)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if drvID.Valid {
		d.Driver = &Driver{ID: drvID.Int64, FirstName: drvFirst.String, LastName: drvLast.String, Status: drvStatus.String}
	}
	return d, nil
}

func (s *SQLite) queryDeliveries(ctx context.Context, query string, args ...any) ([]Delivery, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLite) ListDeliveries(ctx context.Context, status DeliveryStatus, limit int) ([]Delivery, error) {
	// A non-positive limit returns everything; SQLite treats a negative
	// LIMIT as unbounded.
	if limit <= 0 {
		limit = -1
	}
	if status == "" {
		return s.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`ORDER BY d.created_at DESC LIMIT ?`, limit)
	}
	return s.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.status = ? ORDER BY d.created_at DESC LIMIT ?`, string(status), limit)
}

func (s *SQLite) GetDelivery(ctx context.Context, id int64) (Delivery, error) {
	return scanDelivery(s.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.id = ?`, id))
}

func (s *SQLite) CreateDelivery(ctx context.Context, d Delivery) (Delivery, error) {
	now := time.Now().UTC()
	if d.Status == "" {
		d.Status = DeliveryPending
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (delivery_number, order_id, status, driver_id, address, city,
			current_latitude, current_longitude, estimated_arrival, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DeliveryNumber, d.OrderID, string(d.Status), d.DriverID, d.Address, d.City,
		d.CurrentLatitude, d.CurrentLongitude, d.EstimatedArrival, now, now)
	if err != nil {
		return Delivery{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Delivery{}, err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_updates (delivery_id, status, message, created_at, created_by)
		VALUES (?, ?, 'Delivery created and awaiting assignment', ?, 'SYSTEM')`,
		id, string(d.Status), now); err != nil {
		return Delivery{}, err
	}
	return s.GetDelivery(ctx, id)
}

func (s *SQLite) ActiveDeliveries(ctx context.Context) ([]Delivery, error) {
	return s.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.status IN ('ASSIGNED', 'IN_TRANSIT') ORDER BY d.id`)
}

func (s *SQLite) AdvanceableDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	return s.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.status IN ('PENDING', 'ASSIGNED') ORDER BY d.id LIMIT ?`, limit)
}

func (s *SQLite) AdvanceDeliveryStatus(ctx context.Context, id int64) (Delivery, error) {
	d, err := s.GetDelivery(ctx, id)
	if err != nil {
		return Delivery{}, err
	}
	next, ok := NextDeliveryStatus(d.Status)
	if !ok {
		return Delivery{}, ErrInvalidTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Delivery{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	// Conditional on the old status so a concurrent advance cannot skip a step.
	res, err := tx.ExecContext(ctx, `
		UPDATE deliveries SET status = ?, updated_at = ?,
			estimated_arrival = COALESCE(estimated_arrival, ?)
		WHERE id = ? AND status = ?`,
		string(next), now, now.Add(2*time.Hour), id, string(d.Status))
	if err != nil {
		return Delivery{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Delivery{}, err
	}
	if affected == 0 {
		return Delivery{}, ErrInvalidTransition
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO delivery_updates (delivery_id, status, message, created_at, created_by)
		VALUES (?, ?, 'Status advanced by simulation', ?, 'SYSTEM')`,
		id, string(next), now); err != nil {
		return Delivery{}, err
	}
	if err := tx.Commit(); err != nil {
		return Delivery{}, err
	}
	return s.GetDelivery(ctx, id)
}

func (s *SQLite) UpdateDeliveryLocation(ctx context.Context, id int64, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries SET current_latitude = ?, current_longitude = ?, updated_at = ? WHERE id = ?`,
		lat, lon, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeliveryUpdates(ctx context.Context, deliveryID int64) ([]DeliveryUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, delivery_id, status, message, latitude, longitude, created_at, created_by
		FROM delivery_updates WHERE delivery_id = ? ORDER BY id`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryUpdate
	for rows.Next() {
		var u DeliveryUpdate
		if err := rows.Scan(&u.ID, &u.DeliveryID, &u.Status, &u.Message,
			&u.Latitude, &u.Longitude, &u.CreatedAt, &u.CreatedBy); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLite) DeliveryMetrics(ctx context.Context) (DeliveryMetrics, error) {
	var metrics DeliveryMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'DELIVERED' THEN 1 ELSE 0 END), 0)
		FROM deliveries`).Scan(&metrics.TotalDeliveries, &metrics.SuccessfulDeliveries)
	if err != nil {
		return metrics, err
	}
	if metrics.TotalDeliveries > 0 {
		metrics.SuccessRate = float64(metrics.SuccessfulDeliveries) / float64(metrics.TotalDeliveries) * 100
	}
	return metrics, nil
}

const orderColumns = `id, order_number, customer_id, warehouse_id, status,
	total_amount, tax_amount, shipping_cost, order_date, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.WarehouseID, &o.Status,
		&o.TotalAmount, &o.TaxAmount, &o.ShippingCost, &o.OrderDate, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (s *SQLite) ListOrders(ctx context.Context, status OrderStatus, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = -1
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY order_date DESC LIMIT ?`, string(status), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLite) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		return Order{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, quantity, unit_price, total_price
		FROM order_items WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (s *SQLite) CreateOrder(ctx context.Context, o Order) (Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if o.Status == "" {
		o.Status = OrderPending
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (order_number, customer_id, warehouse_id, status, total_amount,
			tax_amount, shipping_cost, order_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNumber, o.CustomerID, o.WarehouseID, string(o.Status), o.TotalAmount,
		o.TaxAmount, o.ShippingCost, o.OrderDate, now)
	if err != nil {
		return Order{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Order{}, err
	}
	for _, it := range o.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_id, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?)`,
			id, it.ItemID, it.Quantity, it.UnitPrice, it.TotalPrice); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func (s *SQLite) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (Order, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return Order{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Order{}, err
	}
	if affected == 0 {
		return Order{}, ErrNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *SQLite) SupplyChainMetrics(ctx context.Context) (SupplyChainMetrics, error) {
	now := time.Now().UTC()
	monthAgo := now.AddDate(0, 0, -30)
	twoMonthsAgo := now.AddDate(0, 0, -60)

	var metrics SupplyChainMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'SHIPPED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'DELIVERED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(CASE WHEN order_date >= ? THEN total_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN order_date >= ? AND order_date < ? THEN total_amount ELSE 0 END), 0)
		FROM orders`, monthAgo, twoMonthsAgo, monthAgo).Scan(
		&metrics.TotalOrders, &metrics.PendingOrders, &metrics.ShippedOrders,
		&metrics.DeliveredOrders, &metrics.TotalRevenue, &metrics.MonthlyRevenue,
		&metrics.PriorMonthRevenue)
	if err != nil {
		return metrics, err
	}
	if metrics.TotalOrders > 0 {
		metrics.FulfillmentRate = float64(metrics.DeliveredOrders) / float64(metrics.TotalOrders) * 100
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(reliability_score), 0) FROM suppliers`).Scan(&metrics.SupplierPerformance)
	return metrics, err
}

func (s *SQLite) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_person, email, city, country, reliability_score,
			average_delivery_days, is_active
		FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Email, &sup.City,
			&sup.Country, &sup.ReliabilityScore, &sup.AvgDeliveryDays, &sup.Active); err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateSupplier(ctx context.Context, sup Supplier) (Supplier, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (name, contact_person, email, city, country, reliability_score, average_delivery_days, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sup.Name, sup.ContactPerson, sup.Email, sup.City, sup.Country,
		sup.ReliabilityScore, sup.AvgDeliveryDays, sup.Active)
	if err != nil {
		return Supplier{}, err
	}
	sup.ID, err = res.LastInsertId()
	return sup, err
}

func (s *SQLite) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, code, city, latitude, longitude, capacity, utilization, kind
		FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Code, &w.City, &w.Latitude, &w.Longitude,
			&w.Capacity, &w.Utilization, &w.Kind); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouses (name, code, city, latitude, longitude, capacity, utilization, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.Name, w.Code, w.City, w.Latitude, w.Longitude, w.Capacity, w.Utilization, w.Kind)
	if err != nil {
		return Warehouse{}, err
	}
	w.ID, err = res.LastInsertId()
	return w, err
}

func (s *SQLite) CreateDriver(ctx context.Context, d Driver) (Driver, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO drivers (first_name, last_name, status) VALUES (?, ?, ?)`,
		d.FirstName, d.LastName, d.Status)
	if err != nil {
		return Driver{}, err
	}
	d.ID, err = res.LastInsertId()
	return d, err
}
