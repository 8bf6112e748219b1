package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// fakeGateway is an in-memory Gateway.
type fakeGateway struct {
	mu       sync.Mutex
	rooms    map[string]*store.Room
	messages map[string][]*store.Message
	saveErr  error
	listErr  error
	seqErr   error
	saves    int
}

func newFakeGateway(roomIDs ...string) *fakeGateway {
	gw := &fakeGateway{
		rooms:    make(map[string]*store.Room),
		messages: make(map[string][]*store.Message),
	}
	for _, id := range roomIDs {
		gw.rooms[id] = &store.Room{ID: id, Name: id, CreatedAt: time.Now()}
	}
	return gw
}

func (g *fakeGateway) CreateRoom(_ context.Context, id, name string) (*store.Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[id]; ok {
		return nil, store.ErrConflict
	}
	room := &store.Room{ID: id, Name: name, CreatedAt: time.Now()}
	g.rooms[id] = room
	return room, nil
}

func (g *fakeGateway) GetRoom(_ context.Context, id string) (*store.Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (g *fakeGateway) ListRooms(_ context.Context) ([]*store.Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rooms := make([]*store.Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		cp := *r
		rooms = append(rooms, &cp)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (g *fakeGateway) SaveMessage(_ context.Context, msg *store.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves++
	if g.saveErr != nil {
		return g.saveErr
	}
	cp := *msg
	g.messages[msg.RoomID] = append(g.messages[msg.RoomID], &cp)
	return nil
}

func (g *fakeGateway) ListMessages(_ context.Context, roomID string, limit int) ([]*store.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	all := g.messages[roomID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*store.Message, len(all))
	copy(out, all)
	return out, nil
}

func (g *fakeGateway) LastSeq(_ context.Context, roomID string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seqErr != nil {
		return 0, g.seqErr
	}
	var last int64
	for _, m := range g.messages[roomID] {
		last = max(last, m.Seq)
	}
	return last, nil
}

func (g *fakeGateway) savedCount(roomID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.messages[roomID])
}

func (g *fakeGateway) saveAttempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}

// failingConn rejects every send.
type failingConn struct {
	id   string
	done chan struct{}
	once sync.Once
}

func newFailingConn(id string) *failingConn {
	return &failingConn{id: id, done: make(chan struct{})}
}

func (f *failingConn) ID() string            { return f.id }
func (f *failingConn) Send(*Event) error     { return errors.New("broken pipe") }
func (f *failingConn) Done() <-chan struct{} { return f.done }
func (f *failingConn) Close()                { f.once.Do(func() { close(f.done) }) }

// breakableConn behaves like a Client until broken is set.
type breakableConn struct {
	*Client
	broken atomic.Bool
}

func newBreakableConn(id string, buffer int) *breakableConn {
	return &breakableConn{Client: NewClient(id, buffer)}
}

func (b *breakableConn) Send(ev *Event) error {
	if b.broken.Load() {
		return errors.New("write: connection reset by peer")
	}
	return b.Client.Send(ev)
}

// manualClock is a settable time source.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCoordinator(t *testing.T, gw *fakeGateway, opts Options) *Coordinator {
	t.Helper()
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = 50
	}
	if opts.PersistQueue == 0 {
		opts.PersistQueue = 256
	}
	logger := zerolog.Nop()
	return NewCoordinator(gw, opts, &logger, nil)
}

func connect(c *Coordinator, id string, buffer int) (*Client, *Session) {
	client := NewClient(id, buffer)
	return client, c.Connect(client)
}

func mustJoin(t *testing.T, c *Coordinator, s *Session, room, name string) *JoinResult {
	t.Helper()
	res, err := c.Join(context.Background(), s, room, name)
	if err != nil {
		t.Fatalf("join %s as %s: %v", room, name, err)
	}
	return res
}

// mustEvent waits for the next event of kind, discarding others.
func mustEvent(t *testing.T, client *Client, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-client.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("%s: expected event %v not received", client.ID(), kind)
			return nil
		}
	}
}

// drain discards events until client closes.
func drain(client *Client) {
	for {
		select {
		case <-client.Events():
		case <-client.Done():
			return
		}
	}
}

// nextEvent returns the next event of any kind.
func nextEvent(t *testing.T, client *Client) *Event {
	t.Helper()

	select {
	case ev := <-client.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: no event received", client.ID())
		return nil
	}
}

// noEvent asserts nothing of kind arrives within wait.
func noEvent(t *testing.T, client *Client, kind EventKind, wait time.Duration) {
	t.Helper()

	timeout := time.After(wait)
	for {
		select {
		case ev := <-client.Events():
			if ev.Kind == kind {
				t.Fatalf("%s: unexpected %v event: %+v", client.ID(), kind, ev)
			}
		case <-timeout:
			return
		}
	}
}
