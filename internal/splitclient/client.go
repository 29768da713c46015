// Package splitclient implements the Client entity: one bounded queue plus
// drop/latency counters, bound to a splitter-assigned id.
package splitclient

import (
	"sync"

	"github.com/d13mon/ISplitter/internal/bchan"
	"github.com/d13mon/ISplitter/pkg/frame"
)

// Client wraps one bchan.Channel and the counters observed through it.
type Client struct {
	id       uint32
	capacity int

	mu      sync.Mutex // guards queue (for the flush-swap) and dropped
	queue   *bchan.Channel
	dropped int
}

// New creates a Client with a fresh Open queue of the given capacity.
func New(id uint32, capacity int) *Client {
	return &Client{
		id:       id,
		capacity: capacity,
		queue:    bchan.New(capacity),
	}
}

// ID returns the client's unique, non-zero, monotonically assigned id.
func (c *Client) ID() uint32 {
	return c.id
}

func (c *Client) currentQueue() *bchan.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue
}

// Put delegates to the queue's Push and tracks drops. f is not copied; the
// same reference is shared across every client that receives it, and the
// caller (splitter.Splitter.Put) is responsible for having already retained
// one reference per client before broadcasting — Push always consumes
// exactly the one reference passed to it.
func (c *Client) Put(f *frame.Frame, timeoutMs int) bool {
	ok := c.currentQueue().Push(f, timeoutMs)
	if !ok {
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
	return ok
}

// Get performs the two-phase read: a non-blocking TryPop first, falling
// through to a timed WaitPop only if nothing was immediately ready. This
// ordering is observable behavior — it is what lets timeoutMs == 0 still
// deliver a frame that is already sitting in the queue.
func (c *Client) Get(timeoutMs int) (*frame.Frame, bool) {
	q := c.currentQueue()
	if f, ok := q.TryPop(); ok {
		return f, true
	}
	return q.WaitPop(timeoutMs)
}

// Flush replaces the client's queue with a fresh Open one of the same
// capacity, after flushing the old one (waking any blocked waiters with a
// negative result) and resets the dropped counter. The queue is swapped
// rather than reopened so that a single flushed instance never needs to
// un-latch itself.
func (c *Client) Flush() {
	c.mu.Lock()
	old := c.queue
	c.queue = bchan.New(c.capacity)
	c.dropped = 0
	c.mu.Unlock()

	old.Flush()
}

// Latency returns the number of frames currently buffered for this client.
func (c *Client) Latency() int {
	return c.currentQueue().Size()
}

// Dropped returns the number of frames discarded at this client since the
// last flush.
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
