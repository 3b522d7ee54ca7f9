package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live connection. Identity (profile id, cached display name)
// is bound at connect time and never changes for the connection's lifetime.
type Client struct {
	ID          string // unique connection ID
	ProfileID   string // from the verified handshake token
	DisplayName string // cached at connect, carried on typing relays

	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	gateway *Gateway
	rooms   map[string]struct{} // joined rooms; guarded by hub.mu
	logger  *slog.Logger
}

func NewClient(profileID, displayName string, conn *websocket.Conn, hub *Hub, gateway *Gateway, logger *slog.Logger) *Client {
	return &Client{
		ID:          uuid.NewString(),
		ProfileID:   profileID,
		DisplayName: displayName,
		conn:        conn,
		send:        make(chan []byte, 256),
		hub:         hub,
		gateway:     gateway,
		rooms:       make(map[string]struct{}),
		logger:      logger,
	}
}

// ReadPump reads frames off the wire and hands them to the gateway. It owns
// the connection's read side and unregisters the client when it returns.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("unexpected close", "client_id", c.ID, "error", err)
			}
			return
		}

		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			c.SendEvent(EventError, ErrorPayload{
				Code:    "INVALID_INPUT",
				Message: "malformed event frame",
			})
			continue
		}

		c.gateway.HandleEvent(c, evt)
	}
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent encodes and queues a frame for this connection only.
func (c *Client) SendEvent(event string, payload any) {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		c.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	c.enqueue(frame)
}

func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		// Slow consumer: drop the frame rather than block the broadcast.
		c.logger.Warn("send buffer full, dropping frame", "client_id", c.ID)
	}
}
