package websocket

import (
	"log/slog"
	"sync"
)

// Hub tracks live connections and their room broadcast groups. This state
// is ephemeral: it is rebuilt by clients replaying room:join after a
// reconnect and is never persisted. The hub implements service.Broadcaster,
// which keeps the fan-out mechanism injectable (a multi-process deployment
// would substitute a pub/sub-backed broadcaster).
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool // roomID -> broadcast group
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	h.logger.Info("client connected",
		"client_id", c.ID, "profile_id", c.ProfileID, "total", len(h.clients))
}

// Unregister drops the client from every joined room and closes its send
// channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	for roomID := range c.rooms {
		h.leaveLocked(roomID, c)
	}
	close(c.send)
	h.logger.Info("client disconnected",
		"client_id", c.ID, "profile_id", c.ProfileID, "total", len(h.clients))
}

func (h *Hub) Join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	group := h.rooms[roomID]
	if group == nil {
		group = make(map[*Client]bool)
		h.rooms[roomID] = group
	}
	group[c] = true
	c.rooms[roomID] = struct{}{}
	h.logger.Debug("client joined room", "client_id", c.ID, "room_id", roomID)
}

func (h *Hub) Leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, c)
}

func (h *Hub) leaveLocked(roomID string, c *Client) {
	group := h.rooms[roomID]
	if group == nil {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.rooms, roomID)
	}
	delete(c.rooms, roomID)
}

// ToRoom broadcasts an event to every connection in the room's group,
// including the sender's own connections.
func (h *Hub) ToRoom(roomID string, event string, payload any) {
	h.broadcast(roomID, nil, event, payload)
}

// ToRoomExcept broadcasts to the room's group, skipping one connection.
// Used by the typing relay, which never echoes to the sender.
func (h *Hub) ToRoomExcept(roomID string, except *Client, event string, payload any) {
	h.broadcast(roomID, except, event, payload)
}

func (h *Hub) broadcast(roomID string, except *Client, event string, payload any) {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		h.logger.Error("failed to encode broadcast frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c == except {
			continue
		}
		c.enqueue(frame)
	}
}

// ToAll broadcasts an event to every connected client regardless of room.
func (h *Hub) ToAll(event string, payload any) {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		h.logger.Error("failed to encode broadcast frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(frame)
	}
}
