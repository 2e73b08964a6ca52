package ws

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"supplyline/internal/logging"
	"supplyline/internal/metrics"
)

var (
	// ErrDuplicateConnection is returned when a client ID is already
	// registered. The caller must disconnect the old connection first.
	ErrDuplicateConnection = errors.New("connection id already registered")
	// ErrUnknownConnection is returned by sends addressed to an ID that is
	// not (or no longer) registered.
	ErrUnknownConnection = errors.New("connection id not registered")
)

// Transport is the write side of a subscriber connection. *websocket.Conn
// satisfies it.
type Transport interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// connection pairs a transport with a write mutex so the scheduler's
// broadcasts and the connection's own echo loop never interleave frames.
type connection struct {
	id        string
	role      Role
	transport Transport

	writeMu sync.Mutex
}

func (c *connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteJSON(v)
}

func (c *connection) writeText(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteMessage(websocket.TextMessage, []byte(s))
}

// Conn is a read-only view of a registered connection, handed out in
// registry snapshots.
type Conn struct {
	ID   string
	Role Role
}

// Stats is a point-in-time view of the registry for observability.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	CountsByRole     map[string]int `json:"counts_by_role"`
}

// Registry is the single source of truth for live subscriber connections.
// All mutation and snapshotting goes through its mutex so a broadcast never
// observes a connection mid-teardown.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*connection

	log *logging.Logger
}

func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		conns: make(map[string]*connection),
		log:   log,
	}
}

// Connect registers a new connection and immediately confirms it to the
// client. A registered ID is rejected with ErrDuplicateConnection; the old
// connection stays untouched.
func (r *Registry) Connect(id string, role Role, transport Transport) error {
	conn := &connection{id: id, role: role, transport: transport}

	r.mu.Lock()
	if _, ok := r.conns[id]; ok {
		r.mu.Unlock()
		return ErrDuplicateConnection
	}
	r.conns[id] = conn
	r.mu.Unlock()

	metrics.ConnectionsGauge.WithLabelValues(string(role)).Inc()
	r.log.Info("client_connected", "subscriber registered", map[string]any{
		"client_id": id,
		"role":      string(role),
	})

	confirm := Envelope{
		Type:      TypeConnectionConfirmed,
		Message:   "Connected as " + string(role),
		ClientID:  id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.writeJSON(confirm); err != nil {
		r.Disconnect(id)
		return err
	}
	return nil
}

// Disconnect removes a connection and closes its transport. Removing an
// absent ID is a no-op.
func (r *Registry) Disconnect(id string) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	conn.transport.Close()
	metrics.ConnectionsGauge.WithLabelValues(string(conn.role)).Dec()
	r.log.Info("client_disconnected", "subscriber removed", map[string]any{
		"client_id": id,
		"role":      string(conn.role),
	})
}

// ConnectionsForRoles returns a snapshot of connections whose role is in the
// audience. An empty audience matches everyone. The snapshot is sorted by ID
// so fan-out order is stable.
func (r *Registry) ConnectionsForRoles(audience RoleSet) []Conn {
	r.mu.Lock()
	out := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		if audience.Contains(conn.role) {
			out = append(out, Conn{ID: conn.id, Role: conn.role})
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats reports connection counts for the /ws/stats endpoint.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		TotalConnections: len(r.conns),
		CountsByRole:     make(map[string]int),
	}
	for _, conn := range r.conns {
		stats.CountsByRole[string(conn.role)]++
	}
	return stats
}

// Echo acknowledges an inbound frame back to its sender. The ack is a plain
// text frame, not a JSON envelope.
func (r *Registry) Echo(id, payload string) error {
	conn, ok := r.lookup(id)
	if !ok {
		return ErrUnknownConnection
	}
	return conn.writeText("Message received: " + payload)
}

// lookup fetches the live connection for a send. Callers must not hold
// r.mu while writing to the transport.
func (r *Registry) lookup(id string) (*connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	return conn, ok
}
