package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	sku TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL DEFAULT '',
	current_stock INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
	reserved_stock INTEGER NOT NULL DEFAULT 0,
	reorder_point INTEGER NOT NULL DEFAULT 10,
	reorder_quantity INTEGER NOT NULL DEFAULT 100,
	unit_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
	selling_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	warehouse_id BIGINT NOT NULL DEFAULT 0,
	last_restocked TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS stock_movements (
	id BIGSERIAL PRIMARY KEY,
	item_id BIGINT NOT NULL REFERENCES inventory_items(id),
	movement_type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	reference_type TEXT NOT NULL DEFAULT '',
	reference_id BIGINT NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by TEXT NOT NULL DEFAULT 'SYSTEM'
);
CREATE TABLE IF NOT EXISTS drivers (
	id BIGSERIAL PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'AVAILABLE'
);
CREATE TABLE IF NOT EXISTS deliveries (
	id BIGSERIAL PRIMARY KEY,
	delivery_number TEXT NOT NULL UNIQUE,
	order_id BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'PENDING',
	driver_id BIGINT NOT NULL DEFAULT 0,
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	current_latitude DOUBLE PRECISION,
	current_longitude DOUBLE PRECISION,
	estimated_arrival TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS delivery_updates (
	id BIGSERIAL PRIMARY KEY,
	delivery_id BIGINT NOT NULL REFERENCES deliveries(id),
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by TEXT NOT NULL DEFAULT 'SYSTEM'
);
CREATE TABLE IF NOT EXISTS orders (
	id BIGSERIAL PRIMARY KEY,
	order_number TEXT NOT NULL UNIQUE,
	customer_id BIGINT NOT NULL DEFAULT 0,
	warehouse_id BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'PENDING',
	total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	tax_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	shipping_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
	order_date TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS order_items (
	id BIGSERIAL PRIMARY KEY,
	order_id BIGINT NOT NULL REFERENCES orders(id),
	item_id BIGINT NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price DOUBLE PRECISION NOT NULL,
	total_price DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS suppliers (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	contact_person TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	reliability_score DOUBLE PRECISION NOT NULL DEFAULT 5.0,
	average_delivery_days INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS warehouses (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	code TEXT NOT NULL UNIQUE,
	city TEXT NOT NULL DEFAULT '',
	latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
	capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
	utilization DOUBLE PRECISION NOT NULL DEFAULT 0,
	kind TEXT NOT NULL DEFAULT 'DISTRIBUTION'
);
CREATE INDEX IF NOT EXISTS idx_movements_item ON stock_movements(item_id, created_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
`

// PostgresConfig carries connection settings for the Postgres backend.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// Postgres is the production store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres builds a DSN, configures the pool, verifies connectivity, and
// applies the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.Name,
		User:   url.UserPassword(cfg.User, cfg.Password),
	}

	pcfg, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `SET TIME ZONE 'UTC'`)
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanItemPg(row pgx.Row) (InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.SKU, &item.Category,
		&item.CurrentStock, &item.ReservedStock, &item.AvailableStock,
		&item.ReorderPoint, &item.ReorderQuantity, &item.UnitCost,
		&item.SellingPrice, &item.WarehouseID, &item.LastRestocked,
		&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return item, ErrNotFound
	}
	return item, err
}

func (p *Postgres) queryItems(ctx context.Context, query string, args ...any) ([]InventoryItem, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InventoryItem
	for rows.Next() {
		item, err := scanItemPg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (p *Postgres) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	return p.queryItems(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY id`)
}

func (p *Postgres) GetInventoryItem(ctx context.Context, id int64) (InventoryItem, error) {
	return scanItemPg(p.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
}

func (p *Postgres) SampleInventoryItems(ctx context.Context, limit int) ([]InventoryItem, error) {
	return p.queryItems(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY id LIMIT $1`, limit)
}

func (p *Postgres) LowStockItems(ctx context.Context) ([]InventoryItem, error) {
	return p.queryItems(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE current_stock <= reorder_point ORDER BY id`)
}

func (p *Postgres) CreateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error) {
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (name, sku, category, current_stock, reserved_stock,
			reorder_point, reorder_quantity, unit_cost, selling_price, warehouse_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		item.Name, item.SKU, item.Category, item.CurrentStock, item.ReservedStock,
		item.ReorderPoint, item.ReorderQuantity, item.UnitCost, item.SellingPrice,
		item.WarehouseID).Scan(&id)
	if err != nil {
		return InventoryItem{}, err
	}
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reason)
		VALUES ($1, 'IN', $2, 'INITIAL_STOCK', 'Initial inventory setup')`,
		id, item.CurrentStock); err != nil {
		return InventoryItem{}, err
	}
	return p.GetInventoryItem(ctx, id)
}

func (p *Postgres) UpdateInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error) {
	old, err := p.GetInventoryItem(ctx, item.ID)
	if err != nil {
		return InventoryItem{}, err
	}
	_, err = p.pool.Exec(ctx, `
		UPDATE inventory_items SET name = $1, sku = $2, category = $3, current_stock = $4,
			reserved_stock = $5, reorder_point = $6, reorder_quantity = $7, unit_cost = $8,
			selling_price = $9, updated_at = now() WHERE id = $10`,
		item.Name, item.SKU, item.Category, item.CurrentStock, item.ReservedStock,
		item.ReorderPoint, item.ReorderQuantity, item.UnitCost, item.SellingPrice, item.ID)
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
		if _, err := p.pool.Exec(ctx, `
			INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reason)
			VALUES ($1, $2, $3, 'ADJUSTMENT', 'Manual inventory adjustment')`,
			item.ID, string(mt), change); err != nil {
			return InventoryItem{}, err
		}
	}
	return p.GetInventoryItem(ctx, item.ID)
}

func (p *Postgres) RecentStockMovements(ctx context.Context, limit int) ([]StockMovement, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT m.id, m.item_id, i.name, m.movement_type, m.quantity, m.reference_type,
			m.reference_id, m.reason, m.created_at, m.created_by
		FROM stock_movements m JOIN inventory_items i ON i.id = m.item_id
		ORDER BY m.id DESC LIMIT $1`, limit)
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

func (p *Postgres) ApplyStockMovement(ctx context.Context, req MovementRequest) (InventoryItem, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return InventoryItem{}, err
	}
	defer tx.Rollback(ctx)

	var tag int64
	switch req.Type {
	case MovementIn:
		res, err := tx.Exec(ctx, `
			UPDATE inventory_items SET current_stock = current_stock + $1,
				last_restocked = now(), updated_at = now() WHERE id = $2`,
			req.Quantity, req.ItemID)
		if err != nil {
			return InventoryItem{}, err
		}
		tag = res.RowsAffected()
	case MovementOut:
		res, err := tx.Exec(ctx, `
			UPDATE inventory_items SET current_stock = current_stock - $1, updated_at = now()
			WHERE id = $2 AND current_stock >= $1`,
			req.Quantity, req.ItemID)
		if err != nil {
			return InventoryItem{}, err
		}
		tag = res.RowsAffected()
	default:
		return InventoryItem{}, ErrInvalidTransition
	}
	if tag == 0 {
		if _, err := p.GetInventoryItem(ctx, req.ItemID); err != nil {
			return InventoryItem{}, err
		}
		return InventoryItem{}, ErrInsufficientStock
	}

	by := req.CreatedBy
	if by == "" {
		by = "SYSTEM"
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reference_id, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ItemID, string(req.Type), req.Quantity, req.ReferenceType, req.ReferenceID, req.Reason, by); err != nil {
		return InventoryItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return InventoryItem{}, err
	}
	return p.GetInventoryItem(ctx, req.ItemID)
}

func (p *Postgres) adjustReservation(ctx context.Context, itemID int64, quantity int, mt MovementType, update string, reason string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, update, quantity, itemID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		if _, err := p.GetInventoryItem(ctx, itemID); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reason)
		VALUES ($1, $2, $3, 'ORDER', $4)`,
		itemID, string(mt), quantity, reason); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) ReserveStock(ctx context.Context, itemID int64, quantity int) error {
	return p.adjustReservation(ctx, itemID, quantity, MovementReserved, `
		UPDATE inventory_items SET reserved_stock = reserved_stock + $1, updated_at = now()
		WHERE id = $2 AND current_stock - reserved_stock >= $1`,
		"Stock reserved for order")
}

func (p *Postgres) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	return p.adjustReservation(ctx, itemID, quantity, MovementReleased, `
		UPDATE inventory_items SET reserved_stock = reserved_stock - $1, updated_at = now()
		WHERE id = $2 AND reserved_stock >= $1`,
		"Stock released from reservation")
}

func (p *Postgres) FulfillStock(ctx context.Context, itemID int64, quantity int, orderID int64) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE inventory_items SET current_stock = current_stock - $1,
			reserved_stock = reserved_stock - $1, updated_at = now()
		WHERE id = $2 AND reserved_stock >= $1 AND current_stock >= $1`,
		quantity, itemID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		if _, err := p.GetInventoryItem(ctx, itemID); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (item_id, movement_type, quantity, reference_type, reference_id, reason)
		VALUES ($1, 'OUT', $2, 'ORDER', $3, 'Stock fulfilled for order')`,
		itemID, quantity, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) OutboundQuantitySince(ctx context.Context, itemID int64, since time.Time) (int, error) {
	var total *int64
	err := p.pool.QueryRow(ctx, `
		SELECT SUM(quantity) FROM stock_movements
		WHERE item_id = $1 AND movement_type = 'OUT' AND created_at >= $2`,
		itemID, since).Scan(&total)
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return int(*total), nil
}

func (p *Postgres) InventoryMetrics(ctx context.Context) (InventoryMetrics, error) {
	var metrics InventoryMetrics
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN current_stock <= reorder_point THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN current_stock <= 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(current_stock * unit_cost), 0)
		FROM inventory_items`).Scan(
		&metrics.TotalItems, &metrics.LowStockItems, &metrics.OutOfStockItems, &metrics.TotalValue)
	return metrics, err
}

func scanDeliveryPg(row pgx.Row) (Delivery, error) {
	var d Delivery
	var drvID *int64
	var drvFirst, drvLast, drvStatus *string
	err := row.Scan(&d.ID, &d.DeliveryNumber, &d.OrderID, &d.Status, &d.DriverID,
		&d.Address, &d.City, &d.CurrentLatitude, &d.CurrentLongitude, &d.EstimatedArrival,
		&d.CreatedAt, &d.UpdatedAt, &drvID, &drvFirst, &drvLast, &drvStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if drvID != nil {
		d.Driver = &Driver{ID: *drvID, FirstName: *drvFirst, LastName: *drvLast, Status: *drvStatus}
	}
	return d, nil
}

func (p *Postgres) queryDeliveries(ctx context.Context, query string, args ...any) ([]Delivery, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDeliveryPg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) ListDeliveries(ctx context.Context, status DeliveryStatus, limit int) ([]Delivery, error) {
	if status == "" {
		return p.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`ORDER BY d.created_at DESC LIMIT $1`, pgLimit(limit))
	}
	return p.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.status = $1 ORDER BY d.created_at DESC LIMIT $2`, string(status), pgLimit(limit))
}

// pgLimit maps a non-positive limit to LIMIT NULL, which Postgres reads as
// no limit. Keeps list semantics identical to the other backends.
func pgLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func (p *Postgres) GetDelivery(ctx context.Context, id int64) (Delivery, error) {
	return scanDeliveryPg(p.pool.QueryRow(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.id = $1`, id))
}

func (p *Postgres) CreateDelivery(ctx context.Context, d Delivery) (Delivery, error) {
	if d.Status == "" {
		d.Status = DeliveryPending
	}
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO deliveries (delivery_number, order_id, status, driver_id, address, city,
			current_latitude, current_longitude, estimated_arrival)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		d.DeliveryNumber, d.OrderID, string(d.Status), d.DriverID, d.Address, d.City,
		d.CurrentLatitude, d.CurrentLongitude, d.EstimatedArrival).Scan(&id)
	if err != nil {
		return Delivery{}, err
	}
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO delivery_updates (delivery_id, status, message)
		VALUES ($1, $2, 'Delivery created and awaiting assignment')`,
		id, string(d.Status)); err != nil {
		return Delivery{}, err
	}
	return p.GetDelivery(ctx, id)
}

func (p *Postgres) ActiveDeliveries(ctx context.Context) ([]Delivery, error) {
	return p.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.status IN ('ASSIGNED', 'IN_TRANSIT') ORDER BY d.id`)
}

func (p *Postgres) AdvanceableDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	return p.queryDeliveries(ctx, `SELECT `+deliveryColumns+deliveryJoin+`WHERE d.status IN ('PENDING', 'ASSIGNED') ORDER BY d.id LIMIT $1`, limit)
}

func (p *Postgres) AdvanceDeliveryStatus(ctx context.Context, id int64) (Delivery, error) {
	d, err := p.GetDelivery(ctx, id)
	if err != nil {
		return Delivery{}, err
	}
	next, ok := NextDeliveryStatus(d.Status)
	if !ok {
		return Delivery{}, ErrInvalidTransition
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Delivery{}, err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE deliveries SET status = $1, updated_at = now(),
			estimated_arrival = COALESCE(estimated_arrival, now() + interval '2 hours')
		WHERE id = $2 AND status = $3`,
		string(next), id, string(d.Status))
	if err != nil {
		return Delivery{}, err
	}
	if res.RowsAffected() == 0 {
		return Delivery{}, ErrInvalidTransition
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO delivery_updates (delivery_id, status, message)
		VALUES ($1, $2, 'Status advanced by simulation')`,
		id, string(next)); err != nil {
		return Delivery{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Delivery{}, err
	}
	return p.GetDelivery(ctx, id)
}

func (p *Postgres) UpdateDeliveryLocation(ctx context.Context, id int64, lat, lon float64) error {
	res, err := p.pool.Exec(ctx, `
		UPDATE deliveries SET current_latitude = $1, current_longitude = $2, updated_at = now()
		WHERE id = $3`, lat, lon, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeliveryUpdates(ctx context.Context, deliveryID int64) ([]DeliveryUpdate, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, delivery_id, status, message, latitude, longitude, created_at, created_by
		FROM delivery_updates WHERE delivery_id = $1 ORDER BY id`, deliveryID)
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

func (p *Postgres) DeliveryMetrics(ctx context.Context) (DeliveryMetrics, error) {
	var metrics DeliveryMetrics
	err := p.pool.QueryRow(ctx, `
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

func scanOrderPg(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.WarehouseID, &o.Status,
		&o.TotalAmount, &o.TaxAmount, &o.ShippingCost, &o.OrderDate, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

func (p *Postgres) ListOrders(ctx context.Context, status OrderStatus, limit int) ([]Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = p.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC LIMIT $1`, pgLimit(limit))
	} else {
		rows, err = p.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY order_date DESC LIMIT $2`, string(status), pgLimit(limit))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrderPg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrderPg(p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return Order{}, err
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, order_id, item_id, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
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

func (p *Postgres) CreateOrder(ctx context.Context, o Order) (Order, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback(ctx)

	if o.Status == "" {
		o.Status = OrderPending
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, customer_id, warehouse_id, status, total_amount,
			tax_amount, shipping_cost, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		o.OrderNumber, o.CustomerID, o.WarehouseID, string(o.Status), o.TotalAmount,
		o.TaxAmount, o.ShippingCost, o.OrderDate).Scan(&id)
	if err != nil {
		return Order{}, err
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, item_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5)`,
			id, it.ItemID, it.Quantity, it.UnitPrice, it.TotalPrice); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return p.GetOrder(ctx, id)
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (Order, error) {
	res, err := p.pool.Exec(ctx, `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return Order{}, err
	}
	if res.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}
	return p.GetOrder(ctx, id)
}

func (p *Postgres) SupplyChainMetrics(ctx context.Context) (SupplyChainMetrics, error) {
	now := time.Now().UTC()
	monthAgo := now.AddDate(0, 0, -30)
	twoMonthsAgo := now.AddDate(0, 0, -60)

	var metrics SupplyChainMetrics
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'SHIPPED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'DELIVERED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(CASE WHEN order_date >= $1 THEN total_amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN order_date >= $2 AND order_date < $1 THEN total_amount ELSE 0 END), 0)
		FROM orders`, monthAgo, twoMonthsAgo).Scan(
		&metrics.TotalOrders, &metrics.PendingOrders, &metrics.ShippedOrders,
		&metrics.DeliveredOrders, &metrics.TotalRevenue, &metrics.MonthlyRevenue,
		&metrics.PriorMonthRevenue)
	if err != nil {
		return metrics, err
	}
	if metrics.TotalOrders > 0 {
		metrics.FulfillmentRate = float64(metrics.DeliveredOrders) / float64(metrics.TotalOrders) * 100
	}
	err = p.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(reliability_score), 0) FROM suppliers`).Scan(&metrics.SupplierPerformance)
	return metrics, err
}

func (p *Postgres) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := p.pool.Query(ctx, `
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

func (p *Postgres) CreateSupplier(ctx context.Context, sup Supplier) (Supplier, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact_person, email, city, country, reliability_score, average_delivery_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		sup.Name, sup.ContactPerson, sup.Email, sup.City, sup.Country,
		sup.ReliabilityScore, sup.AvgDeliveryDays, sup.Active).Scan(&sup.ID)
	return sup, err
}

func (p *Postgres) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := p.pool.Query(ctx, `
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

func (p *Postgres) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO warehouses (name, code, city, latitude, longitude, capacity, utilization, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		w.Name, w.Code, w.City, w.Latitude, w.Longitude, w.Capacity, w.Utilization, w.Kind).Scan(&w.ID)
	return w, err
}

func (p *Postgres) CreateDriver(ctx context.Context, d Driver) (Driver, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO drivers (first_name, last_name, status) VALUES ($1, $2, $3) RETURNING id`,
		d.FirstName, d.LastName, d.Status).Scan(&d.ID)
	return d, err
}
