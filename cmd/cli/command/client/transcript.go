package client

// Transcript holds the local view of one room's messages and reconciles
// optimistic echoes with the authoritative broadcasts coming back from the
// server.

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type TranscriptMessage struct {
	ID         string
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  time.Time
	Pending    bool // locally echoed, not yet confirmed by the server
}

type Transcript struct {
	mu       sync.Mutex
	messages []TranscriptMessage
	seen     map[string]bool // confirmed message ids
}

func NewTranscript() *Transcript {
	return &Transcript{seen: make(map[string]bool)}
}

// AddPending appends an optimistic local echo and returns its synthetic id,
// so the caller can drop it if the send is rejected.
func (t *Transcript) AddPending(senderID, senderName, content string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := "pending-" + uuid.NewString()
	t.messages = append(t.messages, TranscriptMessage{
		ID:         id,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  time.Now(),
		Pending:    true,
	})
	return id
}

// ApplyIncoming merges an authoritative message into the transcript. A pending
// echo from the same sender with the same content is confirmed in place, a
// message already seen is dropped, anything else is appended. Returns true
// when the transcript changed.
func (t *Transcript) ApplyIncoming(msg TranscriptMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen[msg.ID] {
		return false
	}

	for i := range t.messages {
		m := &t.messages[i]
		if m.Pending && m.SenderID == msg.SenderID && m.Content == msg.Content {
			msg.Pending = false
			t.messages[i] = msg
			t.seen[msg.ID] = true
			return true
		}
	}

	msg.Pending = false
	t.messages = append(t.messages, msg)
	t.seen[msg.ID] = true
	return true
}

// DropPending removes a rejected echo by its synthetic id.
func (t *Transcript) DropPending(pendingID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.messages {
		if t.messages[i].ID == pendingID && t.messages[i].Pending {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return
		}
	}
}

// DropNewestPending removes the most recent unconfirmed echo. Used when the
// server rejects a send, which always concerns the latest in-flight message.
func (t *Transcript) DropNewestPending() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Pending {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return
		}
	}
}

// PrependOlder inserts an older history page (already in chronological order)
// ahead of the current messages, skipping ids the transcript already holds.
func (t *Transcript) PrependOlder(older []TranscriptMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := make([]TranscriptMessage, 0, len(older))
	for _, msg := range older {
		if t.seen[msg.ID] {
			continue
		}
		t.seen[msg.ID] = true
		fresh = append(fresh, msg)
	}
	t.messages = append(fresh, t.messages...)
}

// Messages returns a snapshot copy in display order.
func (t *Transcript) Messages() []TranscriptMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TranscriptMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Newest returns the last confirmed message, for read receipts.
func (t *Transcript) Newest() (TranscriptMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.messages) - 1; i >= 0; i-- {
		if !t.messages[i].Pending {
			return t.messages[i], true
		}
	}
	return TranscriptMessage{}, false
}

// Oldest returns the first confirmed message, used as the pagination anchor.
func (t *Transcript) Oldest() (TranscriptMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.messages {
		if !t.messages[i].Pending {
			return t.messages[i], true
		}
	}
	return TranscriptMessage{}, false
}
