package core

import "sync"

// SessionState is a connection's position in the join lifecycle.
type SessionState int

const (
	SessionUnjoined SessionState = iota
	SessionJoined
	SessionLeft
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionUnjoined:
		return "unjoined"
	case SessionJoined:
		return "joined"
	case SessionLeft:
		return "left"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the coordinator's per-connection state. Its mutex serializes the
// events of one connection; room state is guarded by the room itself.
type Session struct {
	conn Conn

	mu    sync.Mutex
	state SessionState
	room  *Room
	name  string
}

// ID returns the underlying connection ID.
func (s *Session) ID() string { return s.conn.ID() }

// Conn returns the transport handle.
func (s *Session) Conn() Conn { return s.conn }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Membership returns the joined room ID and display name, or empty strings.
func (s *Session) Membership() (roomID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return "", ""
	}
	return s.room.ID(), s.name
}

func (s *Session) connClosed() bool {
	select {
	case <-s.conn.Done():
		return true
	default:
		return false
	}
}
