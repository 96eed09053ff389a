package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendBuffer    = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer.
	},
}

// Hub routes session transition events to websocket subscribers. Clients
// join per-session rooms and, for operational monitoring, a single admin
// room that observes every session.
type Hub struct {
	clients   map[*client]bool
	clientsMu sync.RWMutex

	// rooms: sessionID -> subscribed clients. admins is the broadcast scope.
	rooms   map[string]map[*client]bool
	admins  map[*client]bool
	roomsMu sync.Mutex

	closed   bool
	closedMu sync.Mutex
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// sendMu guards closing send against concurrent enqueues.
	sendMu sync.Mutex
	gone   bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		rooms:   make(map[string]map[*client]bool),
		admins:  make(map[*client]bool),
	}
}

// HandleWebSocket upgrades an HTTP connection and starts the client pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}

	h.clientsMu.Lock()
	h.clients[c] = true
	h.clientsMu.Unlock()

	slog.Info("Realtime client connected", "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

// Close disconnects all clients. Further publishes are dropped.
func (h *Hub) Close() {
	h.closedMu.Lock()
	h.closed = true
	h.closedMu.Unlock()

	h.clientsMu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}

// PublishStatus sends a status-updated event to the session's room and a
// call-log-updated event to the admin room. Emergency transitions
// additionally raise an admin alert.
func (h *Hub) PublishStatus(ev Event) {
	if h.isClosed() {
		return
	}

	if data, err := encode(KindStatusUpdated, ev); err == nil {
		h.toRoom(ev.SessionID, data)
	}
	if data, err := encode(KindCallLogUpdated, ev); err == nil {
		h.toAdmins(data)
	}
	if ev.Emergency {
		h.PublishEmergency(ev)
	}
}

// PublishEmergency raises an emergency-alert on the admin room only.
func (h *Hub) PublishEmergency(ev Event) {
	if h.isClosed() {
		return
	}

	if data, err := encode(KindEmergencyAlert, ev); err == nil {
		h.toAdmins(data)
	}
}

func (h *Hub) isClosed() bool {
	h.closedMu.Lock()
	defer h.closedMu.Unlock()
	return h.closed
}

func (h *Hub) toRoom(sessionID string, data []byte) {
	h.roomsMu.Lock()
	members := make([]*client, 0, len(h.rooms[sessionID]))
	for c := range h.rooms[sessionID] {
		members = append(members, c)
	}
	h.roomsMu.Unlock()

	for _, c := range members {
		c.enqueue(data)
	}
}

func (h *Hub) toAdmins(data []byte) {
	h.roomsMu.Lock()
	members := make([]*client, 0, len(h.admins))
	for c := range h.admins {
		members = append(members, c)
	}
	h.roomsMu.Unlock()

	for _, c := range members {
		c.enqueue(data)
	}
}

// enqueue drops the event when the client's buffer is full or the client is
// gone; delivery is best-effort.
func (c *client) enqueue(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.gone {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.gone {
		c.gone = true
		close(c.send)
	}
}

func (h *Hub) joinSession(c *client, sessionID string) {
	if sessionID == "" {
		return
	}
	h.roomsMu.Lock()
	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[*client]bool)
	}
	h.rooms[sessionID][c] = true
	h.roomsMu.Unlock()

	slog.Info("Client joined session room", "session_id", sessionID)
}

func (h *Hub) leaveSession(c *client, sessionID string) {
	h.roomsMu.Lock()
	if members, ok := h.rooms[sessionID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, sessionID)
		}
	}
	h.roomsMu.Unlock()
}

func (h *Hub) joinAdmin(c *client) {
	h.roomsMu.Lock()
	h.admins[c] = true
	h.roomsMu.Unlock()

	slog.Info("Client joined admin room")
}

// removeClient cleans up a disconnected client.
func (h *Hub) removeClient(c *client) {
	h.clientsMu.Lock()
	delete(h.clients, c)
	h.clientsMu.Unlock()

	h.roomsMu.Lock()
	delete(h.admins, c)
	for sessionID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, sessionID)
		}
	}
	h.roomsMu.Unlock()

	c.closeSend()
}

// readPump reads inbound messages from the websocket connection.
func (c *client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("websocket read error", "error", err)
			}
			return
		}

		c.hub.handleMessage(c, raw)
	}
}

// writePump writes queued messages and pings to the websocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an inbound client message.
func (h *Hub) handleMessage(c *client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Warn("Dropping malformed realtime message", "error", err)
		return
	}

	switch msg.Type {
	case KindJoinSession:
		var p JoinPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			h.joinSession(c, p.SessionID)
		}
	case KindLeaveSession:
		var p JoinPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			h.leaveSession(c, p.SessionID)
		}
	case KindJoinAdmin:
		h.joinAdmin(c)
	case KindCallStatusUpdate:
		// Client-reported transition: re-broadcast to the session room and
		// the admin scope. Consumers treat status application as idempotent.
		var ev Event
		if err := json.Unmarshal(msg.Payload, &ev); err == nil && ev.SessionID != "" {
			if ev.Timestamp.IsZero() {
				ev.Timestamp = time.Now()
			}
			h.PublishStatus(ev)
		}
	default:
		slog.Warn("Unknown realtime message type", "type", string(msg.Type))
	}
}
