package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingEmitter_GatesRepeatEmits(t *testing.T) {
	e := NewTypingEmitter()

	assert.True(t, e.ShouldEmit())
	assert.False(t, e.ShouldEmit())

	e.Reset()
	assert.True(t, e.ShouldEmit())
}

func TestTypingEmitter_EmitsAgainAfterInterval(t *testing.T) {
	e := NewTypingEmitter()
	e.interval = 10 * time.Millisecond

	assert.True(t, e.ShouldEmit())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, e.ShouldEmit())
}

func TestTypingTracker_StartStop(t *testing.T) {
	tr := NewTypingTracker()

	tr.Start("p1", "Alice")
	tr.Start("p2", "Bob")
	assert.Equal(t, []string{"Alice", "Bob"}, tr.Active())

	tr.Stop("p1")
	assert.Equal(t, []string{"Bob"}, tr.Active())
}

func TestTypingTracker_ExpiresStalePeers(t *testing.T) {
	tr := NewTypingTracker()
	tr.expiry = 10 * time.Millisecond

	tr.Start("p1", "Alice")
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, tr.Active())
}

func TestTypingTracker_RestartRefreshes(t *testing.T) {
	tr := NewTypingTracker()
	tr.expiry = 30 * time.Millisecond

	tr.Start("p1", "Alice")
	time.Sleep(20 * time.Millisecond)
	tr.Start("p1", "Alice")
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []string{"Alice"}, tr.Active())
}

func TestTypingTracker_FallsBackToProfileID(t *testing.T) {
	tr := NewTypingTracker()

	tr.Start("p1", "")
	assert.Equal(t, []string{"p1"}, tr.Active())
}
