package hub

import (
	"github.com/google/uuid"
)

// DefaultQueueSize is the number of outbound frames buffered per session
// before the session is considered too slow and dropped.
const DefaultQueueSize = 256

// Session is one connected client. It owns no state; it only carries the
// outbound queue the hub writes encoded events into.
type Session struct {
	id     string
	remote string
	send   chan []byte
}

// NewSession creates a session with a fresh ID. queueSize <= 0 selects
// DefaultQueueSize.
func NewSession(remote string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{
		id:     uuid.NewString(),
		remote: remote,
		send:   make(chan []byte, queueSize),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Remote returns the peer address the session was opened from.
func (s *Session) Remote() string {
	return s.remote
}

// Outbound returns the queue of encoded events for this session. The hub
// closes it once the session has left the fan-out set.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}
