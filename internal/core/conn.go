package core

import (
	"sync"
	"sync/atomic"
)

// ConnState is the lifecycle of a connection handle.
type ConnState int32

const (
	ConnOpen ConnState = iota
	ConnClosing
	ConnClosed
)

// Conn is one client's live transport handle as seen by the core.
// Send must never block: a full buffer is reported as ErrSlowConsumer.
type Conn interface {
	ID() string
	Send(ev *Event) error
	Close()
	Done() <-chan struct{}
}

// Client is the buffered Conn used by transports. The transport drains Events
// and writes them to the wire; the core only enqueues.
type Client struct {
	id     string
	events chan *Event
	done   chan struct{}
	state  atomic.Int32
	once   sync.Once
}

// NewClient constructs a client whose outbound queue holds buffer events.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		id:     id,
		events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Events is drained by the transport write loop. It is never closed; watch Done instead.
func (c *Client) Events() <-chan *Event { return c.events }

// Done is closed once the client starts closing.
func (c *Client) Done() <-chan struct{} { return c.done }

// State reports the current lifecycle state.
func (c *Client) State() ConnState { return ConnState(c.state.Load()) }

// Send enqueues ev without blocking.
func (c *Client) Send(ev *Event) error {
	if c.State() != ConnOpen {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	case c.events <- ev:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close moves the client to closed. Safe to call repeatedly and concurrently.
func (c *Client) Close() {
	c.once.Do(func() {
		c.state.Store(int32(ConnClosing))
		close(c.done)
		c.state.Store(int32(ConnClosed))
	})
}
