package core

import "fmt"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventHistory delivers recent messages and the member list to a client upon joining a room.
	EventHistory EventKind = iota
	// EventUserJoined notifies members about a user joining a room.
	EventUserJoined
	// EventUserLeft notifies members about a user leaving a room.
	EventUserLeft
	// EventMessage notifies members about a chat message in a room.
	EventMessage
	// EventError notifies a single client about a rejected request.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventHistory:
		return "history"
	case EventUserJoined:
		return "user-joined"
	case EventUserLeft:
		return "user-left"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is sent to clients to describe what happened in a room.
// Which fields are set depends on Kind.
type Event struct {
	Kind     EventKind
	Room     string
	User     string     // joined/left display name
	Members  []string   // member list after the change
	Message  Message    // EventMessage
	Messages []Message  // EventHistory
	Error    *CoreError // EventError
}

// ErrorEvent wraps err for delivery to a single client.
func ErrorEvent(err error) *Event {
	if ce, ok := AsCoreError(err); ok {
		return &Event{Kind: EventError, Error: ce}
	}
	return &Event{Kind: EventError, Error: coreError("internal", err.Error())}
}
