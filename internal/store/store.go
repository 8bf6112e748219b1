package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record with the same key already exists.
	ErrConflict = errors.New("already exists")
)

// Room represents a chat room known to persistence.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID        string
	RoomID    string
	Author    string
	Body      string
	Seq       int64
	CreatedAt time.Time
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room.
	CreateRoom(ctx context.Context, id, name string) (*Room, error)

	// GetRoom retrieves a room by ID. Returns ErrNotFound if absent.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// ListRooms lists all rooms ordered by creation.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage appends a message to storage.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns up to limit most recent messages of a room in chronological order.
	ListMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)

	// LastSeq returns the highest stored sequence number of a room, or 0.
	LastSeq(ctx context.Context, roomID string) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
