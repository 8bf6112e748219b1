package core

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/metrics"
)

var errAlreadyMember = errors.New("session already a member")

// Member is a session's participation in one room.
type Member struct {
	Name     string
	JoinedAt time.Time
	session  *Session
}

// Snapshot is a point-in-time copy of a room's members and recent history.
type Snapshot struct {
	RoomID  string
	Name    string
	Members []string
	History []Message
}

type delivery struct {
	to []*Session
	ev *Event
}

// Room groups the sessions joined to the same channel. All mutations run under
// mu; deliveries are made after mu is released but under sendMu, which is taken
// before mu is dropped so broadcasts leave in the order their changes applied.
type Room struct {
	id           string
	name         string
	historyLimit int
	clock        func() time.Time
	log          *zerolog.Logger
	metrics      *metrics.Metrics
	onFailure    func(*Session)

	mu        sync.Mutex
	members   []*Member
	byName    map[string]*Member
	bySession map[*Session]*Member
	history   []Message
	seq       int64
	idleSince time.Time
	evicted   bool

	sendMu sync.Mutex
}

type roomConfig struct {
	historyLimit int
	clock        func() time.Time
	log          *zerolog.Logger
	metrics      *metrics.Metrics
	onFailure    func(*Session)
}

// newRoom builds an empty room. seed is the persisted tail in chronological
// order and primes the history window. The sequence counter continues from
// lastSeq or the seed's tail, whichever is higher.
func newRoom(id, name string, seed []Message, lastSeq int64, cfg roomConfig) *Room {
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	r := &Room{
		id:           id,
		name:         name,
		historyLimit: cfg.historyLimit,
		clock:        cfg.clock,
		log:          orNop(cfg.log),
		metrics:      cfg.metrics,
		onFailure:    cfg.onFailure,
		byName:       make(map[string]*Member),
		bySession:    make(map[*Session]*Member),
		idleSince:    cfg.clock(),
		seq:          lastSeq,
	}
	for _, m := range seed {
		r.appendHistory(m)
		r.seq = max(r.seq, m.Seq)
	}
	return r
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Name() string { return r.name }

// Len returns the current member count.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Members returns display names in join order.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberNames()
}

// HasMember reports whether name is active in the room.
func (r *Room) HasMember(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byName[name]
	return ok
}

// Snapshot copies members and the history window without mutating the room.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		RoomID:  r.id,
		Name:    r.name,
		Members: r.memberNames(),
		History: slices.Clone(r.history),
	}
}

// AddMember registers s under name. The joiner receives a history event built
// from state before its join; everyone else receives user-joined.
func (r *Room) AddMember(s *Session, name string) (*Member, Snapshot, error) {
	var (
		member *Member
		snap   Snapshot
		err    error
	)
	r.apply(func() []delivery {
		switch {
		case r.evicted:
			err = errRoomEvicted
			return nil
		case r.bySession[s] != nil:
			err = errAlreadyMember
			return nil
		case r.byName[name] != nil:
			err = ErrNameTaken
			return nil
		}

		history := slices.Clone(r.history)
		others := r.memberSessions()

		member = &Member{Name: name, JoinedAt: r.clock(), session: s}
		r.members = append(r.members, member)
		r.byName[name] = member
		r.bySession[s] = member
		r.idleSince = time.Time{}

		names := r.memberNames()
		snap = Snapshot{RoomID: r.id, Name: r.name, Members: names, History: history}
		return []delivery{
			{to: []*Session{s}, ev: &Event{Kind: EventHistory, Room: r.id, Members: names, Messages: history}},
			{to: others, ev: &Event{Kind: EventUserJoined, Room: r.id, User: name, Members: names}},
		}
	})
	if err != nil {
		return nil, Snapshot{}, err
	}
	r.metrics.MemberJoined()
	return member, snap, nil
}

// RemoveMember drops s and tells the remaining members. It is a no-op if s is absent.
func (r *Room) RemoveMember(s *Session) bool {
	removed := false
	r.apply(func() []delivery {
		m, ok := r.bySession[s]
		if !ok {
			return nil
		}
		delete(r.bySession, s)
		delete(r.byName, m.Name)
		r.members = slices.DeleteFunc(r.members, func(x *Member) bool { return x == m })
		removed = true
		if len(r.members) == 0 {
			r.idleSince = r.clock()
		}

		return []delivery{{
			to: r.memberSessions(),
			ev: &Event{Kind: EventUserLeft, Room: r.id, User: m.Name, Members: r.memberNames()},
		}}
	})
	if removed {
		r.metrics.MemberLeft()
	}
	return removed
}

// Post assigns the next sequence number to text from s and broadcasts it to
// every member, the author included.
func (r *Room) Post(s *Session, text string) (Message, error) {
	var (
		msg Message
		err error
	)
	r.apply(func() []delivery {
		m, ok := r.bySession[s]
		if !ok {
			err = ErrNotJoined
			return nil
		}
		r.seq++
		msg = Message{
			ID:        uuid.NewString(),
			RoomID:    r.id,
			Author:    m.Name,
			Text:      text,
			Seq:       r.seq,
			CreatedAt: r.clock().UTC(),
		}
		r.appendHistory(msg)
		return []delivery{{to: r.memberSessions(), ev: &Event{Kind: EventMessage, Room: r.id, Message: msg}}}
	})
	if err != nil {
		return Message{}, err
	}
	r.metrics.MessageBroadcast()
	return msg, nil
}

// Broadcast delivers ev to every current member.
func (r *Room) Broadcast(ev *Event) {
	r.apply(func() []delivery {
		return []delivery{{to: r.memberSessions(), ev: ev}}
	})
}

// MemberSession returns the session joined under name, or nil.
func (r *Room) MemberSession(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byName[name]; m != nil {
		return m.session
	}
	return nil
}

// tryEvict marks an empty room idle for at least ttl as evicted.
func (r *Room) tryEvict(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.evicted || len(r.members) > 0 || r.idleSince.IsZero() {
		return false
	}
	if now.Sub(r.idleSince) < ttl {
		return false
	}
	r.evicted = true
	return true
}

func (r *Room) apply(mutate func() []delivery) {
	r.mu.Lock()
	out := mutate()
	r.sendMu.Lock()
	r.mu.Unlock()

	failed := r.deliver(out)
	r.sendMu.Unlock()

	if r.onFailure != nil {
		for _, s := range failed {
			r.onFailure(s)
		}
	}
}

func (r *Room) deliver(out []delivery) []*Session {
	var failed []*Session
	for _, d := range out {
		for _, s := range d.to {
			err := s.conn.Send(d.ev)
			if err == nil {
				continue
			}
			r.metrics.DeliveryFailed()
			ev := r.log.Warn()
			if errors.Is(err, ErrConnClosed) {
				ev = r.log.Debug()
			}
			ev.Err(err).
				Str("room_id", r.id).
				Str("conn_id", s.ID()).
				Stringer("event", d.ev.Kind).
				Msg("delivery failed, dropping member")
			failed = append(failed, s)
		}
	}
	return lo.Uniq(failed)
}

// memberSessions copies the member sessions in join order. Callers hold mu.
func (r *Room) memberSessions() []*Session {
	return lo.Map(r.members, func(m *Member, _ int) *Session { return m.session })
}

// memberNames copies display names in join order. Callers hold mu.
func (r *Room) memberNames() []string {
	return lo.Map(r.members, func(m *Member, _ int) string { return m.Name })
}

// appendHistory keeps at most historyLimit messages. Callers hold mu.
func (r *Room) appendHistory(msg Message) {
	if r.historyLimit <= 0 {
		return
	}
	r.history = append(r.history, msg)
	if over := len(r.history) - r.historyLimit; over > 0 {
		r.history = slices.Clone(r.history[over:])
	}
}

func orNop(l *zerolog.Logger) *zerolog.Logger {
	if l != nil {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}
