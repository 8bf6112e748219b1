package core

import "time"

// Message is the domain model for a chat message. Immutable once broadcast.
type Message struct {
	ID        string
	RoomID    string
	Author    string
	Text      string
	Seq       int64
	CreatedAt time.Time
}
