// Package broadcaster keeps the hub's registry of connected clients and
// fans encoded lines out to their outbound queues.
package broadcaster

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// DefaultQueueSize is the per-client outbound queue depth.
const DefaultQueueSize = 64

// ErrClosed is returned by Register after Close.
var ErrClosed = errors.New("broadcaster closed")

// Client is one registered connection. Lines queued on it are delivered in
// order by whoever drains Outbox.
type Client struct {
	ID string

	outbox chan []byte
	done   chan struct{}
	once   sync.Once
}

// Outbox yields queued lines in submission order.
func (c *Client) Outbox() <-chan []byte {
	return c.outbox
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues line, waiting for room. It reports false if the client is
// closed first.
func (c *Client) Send(line []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case <-c.done:
		return false
	case c.outbox <- line:
		return true
	}
}

// TrySend queues line without waiting. It reports false if the client is
// closed or its queue is full.
func (c *Client) TrySend(line []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- line:
		return true
	default:
		return false
	}
}

// Close marks the client dead. It is safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Broadcaster manages registered clients.
type Broadcaster struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	queueSize int
	closed    bool
}

// New creates a Broadcaster whose clients queue up to queueSize lines. A
// non-positive size selects DefaultQueueSize.
func New(queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Broadcaster{
		clients:   make(map[string]*Client),
		queueSize: queueSize,
	}
}

// Register adds a new client with a fresh id.
func (b *Broadcaster) Register() (*Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	c := &Client{
		ID:     uuid.New().String(),
		outbox: make(chan []byte, b.queueSize),
		done:   make(chan struct{}),
	}
	b.clients[c.ID] = c
	return c, nil
}

// Unregister closes and removes the client with id.
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.clients[id]; ok {
		c.Close()
		delete(b.clients, id)
	}
}

// Broadcast queues line on every live client and returns how many accepted
// it. Clients that are closed, or whose queue is full, are pruned so a
// stalled peer never holds up the sender.
func (b *Broadcaster) Broadcast(line []byte) int {
	var dead []string
	delivered := 0

	b.mu.RLock()
	for id, c := range b.clients {
		if c.TrySend(line) {
			delivered++
			continue
		}
		dead = append(dead, id)
	}
	b.mu.RUnlock()

	for _, id := range dead {
		b.Unregister(id)
	}
	return delivered
}

// Count returns the number of registered clients.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close closes every client and rejects further registrations.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, c := range b.clients {
		c.Close()
	}
	b.clients = make(map[string]*Client)
}
