package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"supplyline/internal/logging"
)

const maxInboundFrameBytes = 4 * 1024

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The demo dashboard is served from a different origin in development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades GET /ws/{client_id}?role=... requests and runs the
// per-connection receive loop. Inbound text frames carry no command protocol
// yet; they are echoed back as a diagnostic acknowledgment.
type Handler struct {
	registry *Registry
	log      *logging.Logger
}

func NewHandler(registry *Registry, log *logging.Logger) *Handler {
	return &Handler{registry: registry, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	if clientID == "" {
		http.Error(w, "missing client id", http.StatusBadRequest)
		return
	}

	roleParam := r.URL.Query().Get("role")
	if roleParam == "" {
		roleParam = string(RoleAdmin)
	}
	role, err := ParseRole(roleParam)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade_failed", "websocket upgrade rejected", map[string]any{
			"client_id": clientID,
			"error":     err.Error(),
		})
		return
	}

	if err := h.registry.Connect(clientID, role, conn); err != nil {
		if errors.Is(err, ErrDuplicateConnection) {
			deadline := time.Now().Add(time.Second)
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "client id already connected")
			conn.WriteControl(websocket.CloseMessage, msg, deadline)
		}
		conn.Close()
		return
	}
	defer h.registry.Disconnect(clientID)

	conn.SetReadLimit(maxInboundFrameBytes)
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := h.registry.Echo(clientID, string(payload)); err != nil {
			return
		}
	}
}
