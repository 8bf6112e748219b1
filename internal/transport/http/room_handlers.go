package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
	"github.com/vovakirdan/roomchat-server/internal/store"
	"github.com/vovakirdan/roomchat-server/internal/ticket"
)

// RoomHandlers provides HTTP handlers for room endpoints.
type RoomHandlers struct {
	coord   *core.Coordinator
	store   store.RoomStore
	tickets *ticket.Issuer
	log     *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(coord *core.Coordinator, st store.RoomStore, tickets *ticket.Issuer, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		coord:   coord,
		store:   st,
		tickets: tickets,
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	ID   string `json:"id" binding:"required,max=64,excludesall=/?# "`
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// UsernameRequest is the body of the join and leave endpoints.
type UsernameRequest struct {
	Username string `json:"username"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// ListRoomsResponse wraps the room listing.
type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// RoomDetailResponse is a room snapshot.
type RoomDetailResponse struct {
	Room     RoomResponse    `json:"room"`
	Members  []string        `json:"members"`
	Messages []proto.Message `json:"messages"`
}

// JoinResponse answers a REST join. SessionID is a ticket for GET /rooms/:id?ticket=.
type JoinResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"sessionId"`
	Room      RoomResponse    `json:"room"`
	Messages  []proto.Message `json:"messages"`
	Users     []string        `json:"users"`
}

// LeaveResponse answers a REST leave.
type LeaveResponse struct {
	Success bool     `json:"success"`
	Users   []string `json:"users"`
}

// ListRooms handles listing rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.coord.Rooms().List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := ListRoomsResponse{Rooms: make([]RoomResponse, 0, len(rooms))}
	for _, room := range rooms {
		response.Rooms = append(response.Rooms, RoomResponse(room))
	}

	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room already exists"})
			return
		}
		h.log.Error().Err(err).Str("room_id", req.ID).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room_id", room.ID).Str("room_name", room.Name).Msg("room created")
	c.JSON(http.StatusCreated, RoomResponse{ID: room.ID, Name: room.Name})
}

// GetRoom returns the members and recent history of a room.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	room, err := h.coord.Rooms().GetOrCreate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	snap := room.Snapshot()
	c.JSON(http.StatusOK, RoomDetailResponse{
		Room:     RoomResponse{ID: snap.RoomID, Name: snap.Name, Members: len(snap.Members)},
		Members:  snap.Members,
		Messages: toProtoMessages(snap.History),
	})
}

// JoinRoom checks that username can join the room and hands out a ticket
// the websocket endpoint accepts. Membership starts once the socket connects.
// POST /api/rooms/:id/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	var req UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}
	name, err := core.NormalizeName(req.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}

	room, err := h.coord.Rooms().GetOrCreate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if room.HasMember(name) {
		h.writeError(c, core.ErrNameTaken)
		return
	}

	tok, err := h.tickets.Issue(room.ID(), name)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", room.ID()).Msg("failed to issue ticket")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	snap := room.Snapshot()
	c.JSON(http.StatusOK, JoinResponse{
		Success:   true,
		SessionID: tok,
		Room:      RoomResponse{ID: snap.RoomID, Name: snap.Name, Members: len(snap.Members)},
		Messages:  toProtoMessages(snap.History),
		Users:     snap.Members,
	})
}

// LeaveRoom removes username from the room if present.
// POST /api/rooms/:id/leave
func (h *RoomHandlers) LeaveRoom(c *gin.Context) {
	var req UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username is required", Code: core.ErrCodeBadRequest})
		return
	}

	users := h.coord.LeaveByName(c.Param("id"), req.Username)
	c.JSON(http.StatusOK, LeaveResponse{Success: true, Users: nonNil(users)})
}

func (h *RoomHandlers) writeError(c *gin.Context, err error) {
	ce, ok := core.AsCoreError(err)
	if !ok {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(statusFor(ce.Code), ErrorResponse{Error: ce.Message, Code: ce.Code})
}

func statusFor(code string) int {
	switch code {
	case core.ErrCodeRoomNotFound:
		return http.StatusNotFound
	case core.ErrCodeNameTaken:
		return http.StatusConflict
	case core.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case core.ErrCodeNotJoined:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
