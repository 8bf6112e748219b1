package core

import (
	"github.com/vovakirdan/roomchat-server/internal/store"
)

// Gateway is the persistence the core consults: room lookup and listing,
// best-effort message append, and recent history for join snapshots.
type Gateway interface {
	store.RoomStore
	store.MessageStore
}

// RoomInfo describes a room for listings.
type RoomInfo struct {
	ID      string
	Name    string
	Members int
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Author:    m.Author,
		Text:      m.Body,
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt,
	}
}

func messageToStore(m Message) *store.Message {
	return &store.Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Author:    m.Author,
		Body:      m.Text,
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt,
	}
}
