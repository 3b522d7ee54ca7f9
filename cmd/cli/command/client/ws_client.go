package client

// Interactive chat session over WebSocket. The REST client fetches history
// pages; live traffic flows through the socket and is reconciled into the
// transcript before rendering.

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wsMessagePayload struct {
	RoomID  string          `json:"roomId"`
	Message MessageResponse `json:"message"`
}

type wsTypingPayload struct {
	RoomID      string `json:"roomId"`
	ProfileID   string `json:"profileId"`
	DisplayName string `json:"displayName,omitempty"`
}

type wsReadPayload struct {
	RoomID            string `json:"roomId"`
	ProfileID         string `json:"profileId"`
	LastReadMessageID string `json:"lastReadMessageId"`
}

type wsErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatSession is one open room in the terminal.
type ChatSession struct {
	roomID    string
	profileID string
	selfName  string

	conn       *websocket.Conn
	rest       *HTTPClient
	transcript *Transcript
	typing     *TypingTracker
	emitter    *TypingEmitter
	nextCursor *string
	hasMore    bool
}

// JoinChatRoom connects, joins the room, loads the newest history page, and
// runs the interactive loop until /quit or interrupt.
func JoinChatRoom(apiURL, roomID, token, profileID, displayName string) error {
	rest := NewHTTPClient(apiURL)
	rest.SetToken(token)

	info, err := rest.RoomInfo(roomID)
	if err != nil {
		return fmt.Errorf("cannot open room: %w", err)
	}

	wsURL, err := websocketURL(apiURL)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	fmt.Printf("\nConnecting to %s...\n", info.Title)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	session := &ChatSession{
		roomID:     roomID,
		profileID:  profileID,
		selfName:   displayName,
		conn:       conn,
		rest:       rest,
		transcript: NewTranscript(),
		typing:     NewTypingTracker(),
		emitter:    NewTypingEmitter(),
	}

	if err := session.sendEvent("room:join", map[string]string{"roomId": roomID}); err != nil {
		return err
	}
	if err := session.loadHistory(); err != nil {
		return err
	}
	session.render()
	session.acknowledgeHistory()

	fmt.Println("Connected! Type a message, or /more /read /mute /unmute /quit")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go session.readLoop(done)
	go session.inputLoop(interrupt)

	select {
	case <-interrupt:
	case <-done:
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}

func websocketURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String(), nil
}

func (s *ChatSession) sendEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.conn.WriteJSON(wireEvent{Event: event, Data: payload})
}

// loadHistory fetches the newest page into the transcript.
func (s *ChatSession) loadHistory() error {
	page, err := s.rest.GetMessages(s.roomID, nil, 30)
	if err != nil {
		return err
	}
	s.transcript.PrependOlder(toTranscript(page.Messages))
	s.nextCursor = page.NextCursor
	s.hasMore = page.HasMore
	return nil
}

// loadOlder fetches the page before the current oldest message.
func (s *ChatSession) loadOlder() {
	if !s.hasMore || s.nextCursor == nil {
		color.Yellow("no older messages")
		return
	}
	page, err := s.rest.GetMessages(s.roomID, s.nextCursor, 30)
	if err != nil {
		color.Red("could not load history: %v", err)
		return
	}
	s.transcript.PrependOlder(toTranscript(page.Messages))
	s.nextCursor = page.NextCursor
	s.hasMore = page.HasMore
	s.render()
}

func toTranscript(msgs []MessageResponse) []TranscriptMessage {
	out := make([]TranscriptMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, TranscriptMessage{
			ID:         m.ID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out
}

func (s *ChatSession) readLoop(done chan struct{}) {
	defer close(done)
	for {
		var evt wireEvent
		if err := s.conn.ReadJSON(&evt); err != nil {
			return
		}
		s.handleEvent(evt)
	}
}

func (s *ChatSession) handleEvent(evt wireEvent) {
	switch evt.Event {
	case "room:joined":
		// Acknowledged; history already loaded over REST.

	case "message:new":
		var payload wsMessagePayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.RoomID != s.roomID {
			return
		}
		m := payload.Message
		changed := s.transcript.ApplyIncoming(TranscriptMessage{
			ID:         m.ID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		})
		s.typing.Stop(m.SenderID)
		if changed && m.SenderID != s.profileID {
			printMessage(m.SenderName, m.Content, m.CreatedAt, false)
			// The room is on screen, so the message is read on arrival.
			s.sendReadReceipt(m.ID)
		}

	case "typing:start":
		var payload wsTypingPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.RoomID != s.roomID {
			return
		}
		s.typing.Start(payload.ProfileID, payload.DisplayName)
		if names := s.typing.Active(); len(names) > 0 {
			color.HiBlack("%s typing...", strings.Join(names, ", "))
		}

	case "typing:stop":
		var payload wsTypingPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.RoomID != s.roomID {
			return
		}
		s.typing.Stop(payload.ProfileID)

	case "message:read:update":
		var payload wsReadPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.RoomID != s.roomID {
			return
		}
		if payload.ProfileID != s.profileID {
			color.HiBlack("(read receipt from %s)", payload.ProfileID)
		}

	case "error":
		var payload wsErrorPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			return
		}
		color.Red("server error [%s]: %s", payload.Code, payload.Message)
		// A rejected send never echoes back. The error carries no message
		// id, so roll back the most recent unconfirmed echo only; earlier
		// in-flight sends are confirmed by their own broadcasts.
		s.transcript.DropNewestPending()
	}
}

// sendReadReceipt advances the server-side read cursor for this room.
// Receipts are best-effort; a failure surfaces as an error event.
func (s *ChatSession) sendReadReceipt(messageID string) {
	s.sendEvent("message:read", map[string]string{
		"roomId":            s.roomID,
		"lastReadMessageId": messageID,
	})
}

// acknowledgeHistory marks the newest fetched message as read, so opening
// the room resets the unread count.
func (s *ChatSession) acknowledgeHistory() {
	if newest, ok := s.transcript.Newest(); ok {
		s.sendReadReceipt(newest.ID)
	}
}

func (s *ChatSession) inputLoop(interrupt chan os.Signal) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		switch text {
		case "/quit":
			interrupt <- os.Interrupt
			return
		case "/more":
			s.loadOlder()
			continue
		case "/read":
			s.markNewestRead()
			continue
		case "/mute", "/unmute":
			s.setMute(text == "/mute")
			continue
		}

		// Line input only surfaces at submit time, so composing is signalled
		// here, rate-gated so a burst of sends emits one typing:start.
		if s.emitter.ShouldEmit() {
			s.sendEvent("typing:start", map[string]string{"roomId": s.roomID})
		}

		// Optimistic echo; the broadcast confirms it in place.
		s.transcript.AddPending(s.profileID, s.selfName, text)
		printMessage(s.selfName, text, time.Now(), true)

		if err := s.sendEvent("message:send",
			map[string]string{"roomId": s.roomID, "content": text}); err != nil {
			color.Red("send failed: %v", err)
			return
		}
		s.sendEvent("typing:stop", map[string]string{"roomId": s.roomID})
	}
}

func (s *ChatSession) markNewestRead() {
	newest, ok := s.transcript.Newest()
	if !ok {
		color.Yellow("nothing to mark read")
		return
	}
	s.sendReadReceipt(newest.ID)
	color.Green("marked read up to %s", newest.CreatedAt.Format("15:04"))
}

func (s *ChatSession) setMute(mute bool) {
	resp, err := s.rest.SetMute(s.roomID, mute)
	if err != nil {
		color.Red("mute failed: %v", err)
		return
	}
	if resp.Mute {
		color.Yellow("notifications muted")
	} else {
		color.Green("notifications on")
	}
}

func (s *ChatSession) render() {
	for _, m := range s.transcript.Messages() {
		if m.SenderID == s.profileID {
			printMessage(m.SenderName, m.Content, m.CreatedAt, m.Pending)
		} else {
			printMessage(m.SenderName, m.Content, m.CreatedAt, false)
		}
	}
}

func printMessage(sender, content string, at time.Time, pending bool) {
	stamp := at.Format("15:04")
	if pending {
		color.HiBlack("[%s] %s: %s (sending...)", stamp, sender, content)
		return
	}
	color.Cyan("[%s] %s: %s", stamp, sender, content)
}
