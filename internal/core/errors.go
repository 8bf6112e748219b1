package core

import "errors"

// Error codes for domain errors. They travel to clients unchanged.
const (
	ErrCodeRoomNotFound   = "room_not_found"
	ErrCodeNameTaken      = "name_taken"
	ErrCodeNotJoined      = "not_joined"
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeInvalidName    = "invalid_name"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeRateLimited    = "rate_limited"
)

var (
	ErrRoomNotFound   = coreError(ErrCodeRoomNotFound, "room not found")
	ErrNameTaken      = coreError(ErrCodeNameTaken, "name already taken in this room")
	ErrNotJoined      = coreError(ErrCodeNotJoined, "not joined to a room")
	ErrInvalidMessage = coreError(ErrCodeInvalidMessage, "message must be 1-4000 characters")
	ErrInvalidName    = coreError(ErrCodeInvalidName, "name must be 1-50 characters")
	ErrRateLimited    = coreError(ErrCodeRateLimited, "too many messages, slow down")
)

var (
	// ErrConnClosed is returned for events on a connection that already closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned by Send when the connection buffer is full.
	ErrSlowConsumer = errors.New("connection send buffer full")

	// errRoomEvicted signals a join raced the idle evictor; the caller re-acquires the room.
	errRoomEvicted = errors.New("room evicted")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// BadRequest builds a CoreError for malformed client input.
func BadRequest(msg string) *CoreError {
	return coreError(ErrCodeBadRequest, msg)
}

// AsCoreError extracts the CoreError carried by err, if any.
func AsCoreError(err error) (*CoreError, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
