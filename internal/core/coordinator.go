package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/roomchat-server/internal/metrics"
)

// maxJoinAttempts bounds retries when a join races the idle evictor.
const maxJoinAttempts = 3

// Options configures a Coordinator.
type Options struct {
	HistoryLimit     int
	RoomIdleTTL      time.Duration
	EvictionInterval time.Duration
	PersistQueue     int
	PersistTimeout   time.Duration
	Clock            func() time.Time
}

// JoinResult is what a joining client learns: the room, the history window
// from before its join, and the member list after it.
type JoinResult struct {
	Room    RoomInfo
	History []Message
	Members []string
}

// Coordinator translates connection events into room mutations and
// broadcasts. It keeps no connection table of its own: each transport holds
// the Session returned by Connect, and rooms own their member sets.
type Coordinator struct {
	rooms     *Registry
	persister *Persister
	log       *zerolog.Logger
	metrics   *metrics.Metrics
}

// NewCoordinator wires a registry and persister over gw.
func NewCoordinator(gw Gateway, opts Options, logger *zerolog.Logger, m *metrics.Metrics) *Coordinator {
	c := &Coordinator{
		log:     orNop(logger),
		metrics: m,
	}
	c.persister = NewPersister(gw, opts.PersistQueue, opts.PersistTimeout, c.log, m)
	c.rooms = NewRegistry(gw, RegistryOptions{
		HistoryLimit:     opts.HistoryLimit,
		IdleTTL:          opts.RoomIdleTTL,
		EvictionInterval: opts.EvictionInterval,
		Clock:            opts.Clock,
	}, c.log, m, c.dropConnection)
	return c
}

// Rooms exposes the registry for listings and lookups.
func (c *Coordinator) Rooms() *Registry { return c.rooms }

// Run drives the idle evictor and the persister until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.rooms.Run(ctx) })
	g.Go(func() error { return c.persister.Run(ctx) })
	return g.Wait()
}

// Connect starts tracking a new connection.
func (c *Coordinator) Connect(conn Conn) *Session {
	c.log.Debug().Str("conn_id", conn.ID()).Msg("connection opened")
	return &Session{conn: conn}
}

// Join places s in roomID under name, leaving any room s was in first.
func (c *Coordinator) Join(ctx context.Context, s *Session, roomID, name string) (*JoinResult, error) {
	if roomID == "" {
		return nil, BadRequest("room is required")
	}
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionClosed || s.connClosed() {
		return nil, ErrConnClosed
	}
	c.leaveLocked(s)

	for range maxJoinAttempts {
		room, err := c.rooms.GetOrCreate(ctx, roomID)
		if err != nil {
			return nil, err
		}

		_, snap, err := room.AddMember(s, name)
		if errors.Is(err, errRoomEvicted) {
			c.rooms.forget(roomID, room)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.room = room
		s.name = name
		s.state = SessionJoined
		c.log.Info().
			Str("conn_id", s.ID()).
			Str("room_id", roomID).
			Str("name", name).
			Int("members", len(snap.Members)).
			Msg("member joined")

		return &JoinResult{
			Room:    RoomInfo{ID: room.ID(), Name: room.Name(), Members: len(snap.Members)},
			History: snap.History,
			Members: snap.Members,
		}, nil
	}
	return nil, fmt.Errorf("join room %q: %w", roomID, errRoomEvicted)
}

// Send broadcasts text from s to its room, the sender included, and queues it
// for persistence.
func (c *Coordinator) Send(s *Session, text string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionClosed {
		return Message{}, ErrConnClosed
	}
	if s.state != SessionJoined || s.room == nil {
		return Message{}, ErrNotJoined
	}
	if err := validateText(text); err != nil {
		return Message{}, err
	}

	msg, err := s.room.Post(s, text)
	if err != nil {
		if errors.Is(err, ErrNotJoined) {
			// Removed behind our back, e.g. via the REST leave endpoint.
			s.room, s.name, s.state = nil, "", SessionLeft
		}
		return Message{}, err
	}

	c.persister.Enqueue(msg)
	return msg, nil
}

// Leave removes s from its room. Repeated calls are no-ops.
func (c *Coordinator) Leave(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionClosed {
		return
	}
	c.leaveLocked(s)
}

// Disconnect is the connection-closed hook. It leaves the room if needed and
// makes the session terminal. Safe to call any number of times.
func (c *Coordinator) Disconnect(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionClosed {
		return
	}
	c.leaveLocked(s)
	s.state = SessionClosed
	s.conn.Close()
	c.log.Debug().Str("conn_id", s.ID()).Msg("connection closed")
}

// LeaveByName removes the member called name from roomID, if present, and
// returns the remaining members.
func (c *Coordinator) LeaveByName(roomID, name string) []string {
	room := c.rooms.Lookup(roomID)
	if room == nil {
		return []string{}
	}
	if s := room.MemberSession(name); s != nil {
		c.leaveFrom(s, room)
	}
	return room.Members()
}

// leaveFrom removes s only if it is still joined to room. s may have moved
// between the name lookup and taking its lock.
func (c *Coordinator) leaveFrom(s *Session, room *Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionJoined || s.room != room {
		return false
	}
	c.leaveLocked(s)
	return true
}

// Handle dispatches a client command. Rejections are also reported to the
// client as an error event.
func (c *Coordinator) Handle(ctx context.Context, s *Session, cmd Command) error {
	var err error
	switch cmd.Kind {
	case CommandJoinRoom:
		_, err = c.Join(ctx, s, cmd.Room, cmd.Name)
	case CommandSendRoomMessage:
		_, err = c.Send(s, cmd.Text)
	case CommandLeaveRoom:
		c.Leave(s)
	default:
		err = BadRequest(fmt.Sprintf("unknown command %d", cmd.Kind))
	}

	if err != nil && !errors.Is(err, ErrConnClosed) {
		if sendErr := s.conn.Send(ErrorEvent(err)); sendErr != nil {
			c.log.Debug().Err(sendErr).Str("conn_id", s.ID()).Msg("failed to deliver error event")
		}
	}
	return err
}

// leaveLocked detaches s from its room. Callers hold s.mu.
func (c *Coordinator) leaveLocked(s *Session) {
	room := s.room
	if room == nil {
		return
	}
	name := s.name
	s.room, s.name, s.state = nil, "", SessionLeft

	if room.RemoveMember(s) {
		c.log.Info().
			Str("conn_id", s.ID()).
			Str("room_id", room.ID()).
			Str("name", name).
			Msg("member left")
	}
}

// dropConnection handles a failed delivery: the connection is closed and its
// session disconnected asynchronously, since the caller may hold another
// session's lock.
func (c *Coordinator) dropConnection(s *Session) {
	s.conn.Close()
	go c.Disconnect(s)
}
