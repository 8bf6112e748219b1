package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/metrics"
	"github.com/vovakirdan/roomchat-server/internal/store"
)

// RegistryOptions tunes room materialization and eviction.
type RegistryOptions struct {
	HistoryLimit     int
	IdleTTL          time.Duration
	EvictionInterval time.Duration
	Clock            func() time.Time
}

// Registry maps room IDs to loaded rooms. Rooms are materialized from the
// gateway on first reference and dropped once empty and idle.
type Registry struct {
	gw        Gateway
	opts      RegistryOptions
	log       *zerolog.Logger
	metrics   *metrics.Metrics
	onFailure func(*Session)

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry. onFailure is invoked for every
// member whose connection rejected a delivery.
func NewRegistry(gw Gateway, opts RegistryOptions, logger *zerolog.Logger, m *metrics.Metrics, onFailure func(*Session)) *Registry {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Registry{
		gw:        gw,
		opts:      opts,
		log:       orNop(logger),
		metrics:   m,
		onFailure: onFailure,
		rooms:     make(map[string]*Room),
	}
}

// Lookup returns the loaded room or nil. It never consults the gateway.
func (r *Registry) Lookup(id string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[id]
}

// Len returns the number of loaded rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// GetOrCreate returns the loaded room or materializes it from the gateway.
// Unknown IDs yield ErrRoomNotFound; rooms are never fabricated.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Room, error) {
	if room := r.Lookup(id); room != nil {
		return room, nil
	}

	info, err := r.gw.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		r.metrics.PersistenceFailed()
		return nil, fmt.Errorf("get room %q: %w", id, err)
	}
	seed, lastSeq := r.loadHistory(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.rooms[id]; existing != nil {
		return existing, nil
	}
	room := newRoom(info.ID, info.Name, seed, lastSeq, roomConfig{
		historyLimit: r.opts.HistoryLimit,
		clock:        r.opts.Clock,
		log:          r.log,
		metrics:      r.metrics,
		onFailure:    r.onFailure,
	})
	r.rooms[id] = room
	r.metrics.RoomLoaded()
	r.log.Debug().Str("room_id", id).Int("history", len(seed)).Msg("room loaded")
	return room, nil
}

// List returns every persisted room with live member counts for loaded ones.
func (r *Registry) List(ctx context.Context) ([]RoomInfo, error) {
	rooms, err := r.gw.ListRooms(ctx)
	if err != nil {
		r.metrics.PersistenceFailed()
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		info := RoomInfo{ID: room.ID, Name: room.Name}
		if loaded := r.Lookup(room.ID); loaded != nil {
			info.Members = loaded.Len()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Evict drops rooms that have been empty for at least the idle TTL and
// returns how many were dropped.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, room := range r.rooms {
		if !room.tryEvict(now, r.opts.IdleTTL) {
			continue
		}
		delete(r.rooms, id)
		evicted++
		r.metrics.RoomEvicted()
		r.log.Debug().Str("room_id", id).Msg("idle room evicted")
	}
	return evicted
}

// Run evicts idle rooms every EvictionInterval until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.opts.EvictionInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.opts.EvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Evict(r.opts.Clock())
		}
	}
}

// forget drops room from the map if it is still registered under id.
func (r *Registry) forget(id string, room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[id] == room {
		delete(r.rooms, id)
	}
}

// loadHistory reads the persisted tail of a room and the sequence number to
// continue from. A failed tail read degrades to an empty history; the counter
// is then read on its own so new messages never reuse a stored seq.
func (r *Registry) loadHistory(ctx context.Context, id string) ([]Message, int64) {
	limit := max(r.opts.HistoryLimit, 1)
	stored, err := r.gw.ListMessages(ctx, id, limit)
	if err == nil {
		history := make([]Message, 0, len(stored))
		for _, m := range stored {
			history = append(history, messageFromStore(m))
		}
		var lastSeq int64
		if n := len(history); n > 0 {
			lastSeq = history[n-1].Seq
		}
		return history, lastSeq
	}

	r.metrics.PersistenceFailed()
	r.log.Warn().Err(err).Str("room_id", id).Msg("failed to load room history")

	lastSeq, err := r.gw.LastSeq(ctx, id)
	if err != nil {
		r.metrics.PersistenceFailed()
		r.log.Error().Err(err).Str("room_id", id).Msg("failed to read last seq, numbering restarts at 1")
		return nil, 0
	}
	return nil, lastSeq
}
