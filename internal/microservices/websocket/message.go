package websocket

import (
	"encoding/json"
	"time"
)

// Wire protocol for the realtime channel. Every frame is a JSON envelope
// {"event": string, "data": object}.

const ( // ping pong (2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time to write a message to the peer
	PongWait       = 60 * time.Second    // max time to wait for pong from peer => no pong = no connection
	PingPeriod     = (PongWait * 9) / 10 // send pings before the pong wait expires
	MaxMessageSize = 4096                // maximum frame size allowed from peer
)

// Client→server events
const (
	EventRoomJoin    = "room:join"
	EventMessageSend = "message:send"
	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"
	EventMessageRead = "message:read"
)

// Server→client events (message:new, chat:updated and message:read:update
// originate in the chat service's broadcast pipeline)
const (
	EventRoomJoined = "room:joined"
	EventError      = "error"
)

type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type RoomJoinPayload struct {
	RoomID string `json:"roomId"`
}

type MessageSendPayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type MessageReadPayload struct {
	RoomID            string `json:"roomId"`
	LastReadMessageID string `json:"lastReadMessageId"`
}

type RoomJoinedPayload struct {
	RoomID string `json:"roomId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeEvent marshals an envelope frame ready for the write pump.
func EncodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Data: data})
}
