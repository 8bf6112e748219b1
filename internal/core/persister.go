package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/metrics"
	"github.com/vovakirdan/roomchat-server/internal/store"
)

// Persister appends broadcast messages to the store off the broadcast path.
// Appends are best-effort: a full queue or a failed write is logged and dropped.
type Persister struct {
	store   store.MessageStore
	queue   chan Message
	timeout time.Duration
	log     *zerolog.Logger
	metrics *metrics.Metrics
}

// NewPersister creates a persister with a queue of size messages.
func NewPersister(ms store.MessageStore, size int, timeout time.Duration, logger *zerolog.Logger, m *metrics.Metrics) *Persister {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Persister{
		store:   ms,
		queue:   make(chan Message, size),
		timeout: timeout,
		log:     orNop(logger),
		metrics: m,
	}
}

// Enqueue schedules msg for persistence without blocking.
func (p *Persister) Enqueue(msg Message) bool {
	select {
	case p.queue <- msg:
		return true
	default:
		p.metrics.PersistenceFailed()
		p.log.Warn().
			Str("room_id", msg.RoomID).
			Int64("seq", msg.Seq).
			Msg("persist queue full, message not stored")
		return false
	}
}

// Run writes queued messages until ctx is done, then flushes what is left.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return nil
		case msg := <-p.queue:
			p.save(msg)
		}
	}
}

func (p *Persister) drain() {
	for {
		select {
		case msg := <-p.queue:
			p.save(msg)
		default:
			return
		}
	}
}

func (p *Persister) save(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.store.SaveMessage(ctx, messageToStore(msg)); err != nil {
		p.metrics.PersistenceFailed()
		p.log.Error().Err(err).
			Str("room_id", msg.RoomID).
			Str("message_id", msg.ID).
			Int64("seq", msg.Seq).
			Msg("failed to persist message")
	}
}
