package client

// Typing state for the interactive session: an emitter that rate-limits
// outgoing typing:start events, and a tracker that expires peers who stop
// typing without sending typing:stop.

import (
	"sort"
	"sync"
	"time"
)

const (
	typingEmitInterval = 1 * time.Second
	typingExpiry       = 5 * time.Second
)

// TypingEmitter decides when a keystroke should produce a typing:start event.
// At most one event per interval goes out.
type TypingEmitter struct {
	mu       sync.Mutex
	lastSent time.Time
	interval time.Duration
}

func NewTypingEmitter() *TypingEmitter {
	return &TypingEmitter{interval: typingEmitInterval}
}

// ShouldEmit reports whether a typing:start should be sent now, and records
// the send when it returns true.
func (e *TypingEmitter) ShouldEmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if now.Sub(e.lastSent) < e.interval {
		return false
	}
	e.lastSent = now
	return true
}

// Reset clears the gate, so the next keystroke emits immediately. Called
// after a message is sent.
func (e *TypingEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSent = time.Time{}
}

// TypingTracker remembers which peers are currently typing.
type TypingTracker struct {
	mu     sync.Mutex
	peers  map[string]time.Time // profile id -> last typing:start
	names  map[string]string    // profile id -> display name
	expiry time.Duration
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		peers:  make(map[string]time.Time),
		names:  make(map[string]string),
		expiry: typingExpiry,
	}
}

func (t *TypingTracker) Start(profileID, displayName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[profileID] = time.Now()
	if displayName != "" {
		t.names[profileID] = displayName
	}
}

func (t *TypingTracker) Stop(profileID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, profileID)
}

// Active returns the display names of peers whose typing state has not
// expired, sorted for stable rendering.
func (t *TypingTracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.expiry)
	var active []string
	for id, at := range t.peers {
		if at.Before(cutoff) {
			delete(t.peers, id)
			continue
		}
		name := t.names[id]
		if name == "" {
			name = id
		}
		active = append(active, name)
	}
	sort.Strings(active)
	return active
}
