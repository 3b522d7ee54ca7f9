package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

const sessionRoomID = "7a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d"

// newTestSession wires a ChatSession to one end of a live websocket pair and
// hands the other end back, so tests can observe what the session emits.
func newTestSession(t *testing.T) (*ChatSession, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	server := <-serverConns
	t.Cleanup(func() { server.Close() })

	session := &ChatSession{
		roomID:     sessionRoomID,
		profileID:  "self",
		selfName:   "Me",
		conn:       conn,
		transcript: NewTranscript(),
		typing:     NewTypingTracker(),
		emitter:    NewTypingEmitter(),
	}
	return session, server
}

func readWireFrame(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var evt wireEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("expected a frame: %v", err)
	}
	return evt
}

func assertNoWireFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var evt wireEvent
	assert.Error(t, conn.ReadJSON(&evt))
}

func decodeStringMap(t *testing.T, data json.RawMessage) map[string]string {
	t.Helper()
	out := map[string]string{}
	assert.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestChatSession_OpeningRoomAcknowledgesNewestMessage(t *testing.T) {
	session, server := newTestSession(t)

	session.transcript.PrependOlder([]TranscriptMessage{
		{ID: "m1", SenderID: "peer", Content: "hi", CreatedAt: time.Now()},
		{ID: "m2", SenderID: "peer", Content: "bye", CreatedAt: time.Now()},
	})

	session.acknowledgeHistory()

	evt := readWireFrame(t, server)
	assert.Equal(t, "message:read", evt.Event)
	payload := decodeStringMap(t, evt.Data)
	assert.Equal(t, sessionRoomID, payload["roomId"])
	assert.Equal(t, "m2", payload["lastReadMessageId"])
}

func TestChatSession_EmptyRoomSendsNoReceipt(t *testing.T) {
	session, server := newTestSession(t)

	session.acknowledgeHistory()

	assertNoWireFrame(t, server)
}

func TestChatSession_PeerMessageTriggersReadReceipt(t *testing.T) {
	session, server := newTestSession(t)

	data, err := json.Marshal(wsMessagePayload{
		RoomID: sessionRoomID,
		Message: MessageResponse{
			ID: "m9", RoomID: sessionRoomID, SenderID: "peer",
			SenderName: "Bob", Content: "hello", CreatedAt: time.Now(),
		},
	})
	assert.NoError(t, err)

	session.handleEvent(wireEvent{Event: "message:new", Data: data})

	evt := readWireFrame(t, server)
	assert.Equal(t, "message:read", evt.Event)
	payload := decodeStringMap(t, evt.Data)
	assert.Equal(t, "m9", payload["lastReadMessageId"])
}

func TestChatSession_OwnEchoDoesNotTriggerReceipt(t *testing.T) {
	session, server := newTestSession(t)
	session.transcript.AddPending("self", "Me", "hello")

	data, err := json.Marshal(wsMessagePayload{
		RoomID: sessionRoomID,
		Message: MessageResponse{
			ID: "m9", RoomID: sessionRoomID, SenderID: "self",
			SenderName: "Me", Content: "hello", CreatedAt: time.Now(),
		},
	})
	assert.NoError(t, err)

	session.handleEvent(wireEvent{Event: "message:new", Data: data})

	assertNoWireFrame(t, server)
}

func TestChatSession_ErrorRollsBackNewestPendingOnly(t *testing.T) {
	session, _ := newTestSession(t)

	first := session.transcript.AddPending("self", "Me", "still in flight")
	session.transcript.AddPending("self", "Me", "rejected")

	data, err := json.Marshal(wsErrorPayload{Code: "MESSAGE_TOO_LONG", Message: "too long"})
	assert.NoError(t, err)

	session.handleEvent(wireEvent{Event: "error", Data: data})

	msgs := session.transcript.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, first, msgs[0].ID)
}
