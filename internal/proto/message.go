package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeJoin    = "join"
	InboundTypeMessage = "message"
	InboundTypeLeave   = "leave"

	OutboundTypeHistory    = "history"
	OutboundTypeUserJoined = "user-joined"
	OutboundTypeUserLeft   = "user-left"
	OutboundTypeMessage    = "message"
	OutboundTypeError      = "error"
)

// ErrUnknownType is returned when an envelope carries a type this protocol does not define.
var ErrUnknownType = errors.New("unknown message type")

// JoinData requests to join a room under a display name.
type JoinData struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// MessageData is a chat message from the client.
type MessageData struct {
	Text string `json:"text"`
}

// Message is a chat message as clients see it, standalone or inside a history.
type Message struct {
	Type      string    `json:"type,omitempty"`
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Seq       int64     `json:"seq"`
}

// History is the joiner's first event: recent messages and who is present.
type History struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"roomId"`
	Messages []Message `json:"messages"`
	Members  []string  `json:"members"`
}

// UserJoined notifies members that someone entered the room.
type UserJoined struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// UserLeft notifies members that someone left the room.
type UserLeft struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Error describes a rejected request.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeOutbound parses a server payload into its concrete type.
func DecodeOutbound(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var v any
	switch head.Type {
	case OutboundTypeHistory:
		v = &History{}
	case OutboundTypeUserJoined:
		v = &UserJoined{}
	case OutboundTypeUserLeft:
		v = &UserLeft{}
	case OutboundTypeMessage:
		v = &Message{}
	case OutboundTypeError:
		v = &Error{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return v, nil
}
