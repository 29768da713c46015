// Package bchan implements the bounded, thread-safe blocking queue that
// backs every splitter client. It supports timed push with a drop-oldest
// overflow policy, timed and non-blocking pop, and a one-shot flush that
// wakes every blocked waiter and empties the queue.
package bchan

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/d13mon/ISplitter/pkg/frame"
)

// Timeout sentinel values, per the external timeout encoding: -1 waits
// forever, 0 never waits, positive values are milliseconds.
const (
	WaitForever = -1
	NoWait      = 0
)

// Channel is a fixed-capacity FIFO queue of *frame.Frame.
//
// State changes (push, pop, flush) are broadcast by closing and replacing
// the changed channel under the lock — the standard Go stand-in for a
// condition variable that also supports timed waits via select, which
// sync.Cond does not.
type Channel struct {
	mu       sync.Mutex
	items    []*frame.Frame
	capacity int
	flushed  atomic.Bool
	changed  chan struct{}
}

// New creates an Open channel of the given capacity. capacity must be >= 1;
// callers are expected to have already clamped it (see splitter.New).
func New(capacity int) *Channel {
	return &Channel{
		items:    make([]*frame.Frame, 0, capacity),
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

// Capacity returns the fixed capacity of the channel.
func (c *Channel) Capacity() int {
	return c.capacity
}

// Size returns the current number of buffered items.
func (c *Channel) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// IsFlushed reports whether Flush has already latched this channel.
func (c *Channel) IsFlushed() bool {
	return c.flushed.Load()
}

// notifyLocked wakes every waiter blocked in a select on c.changed. Must be
// called with c.mu held.
func (c *Channel) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Push takes ownership of the one reference to item that the caller holds:
// on every return, that reference has either been handed to the queue (on
// success, or on a drop-oldest overflow where the new item is enqueued) or
// released (when the channel is already flushed and can never accept it).
// Callers must not touch item again after calling Push.
//
// Once the channel has been flushed it is single-use: Push always returns
// false (Dropped) without enqueuing, for any timeout value — a push that
// observes the flushed state, whether immediately or after waiting, is
// treated as "subsequent to flush".
func (c *Channel) Push(item *frame.Frame, timeoutMs int) bool {
	var deadline time.Time
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	for {
		c.mu.Lock()
		if c.flushed.Load() {
			c.mu.Unlock()
			item.Release()
			return false
		}
		if len(c.items) < c.capacity {
			c.items = append(c.items, item)
			c.notifyLocked()
			c.mu.Unlock()
			return true
		}

		// Queue full.
		if timeoutMs == NoWait {
			c.dropOldestAndEnqueueLocked(item)
			c.mu.Unlock()
			return false
		}

		ch := c.changed
		c.mu.Unlock()

		if timeoutMs == WaitForever {
			<-ch
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.mu.Lock()
			if c.flushed.Load() {
				c.mu.Unlock()
				item.Release()
				return false
			}
			if len(c.items) < c.capacity {
				c.items = append(c.items, item)
				c.notifyLocked()
				c.mu.Unlock()
				return true
			}
			c.dropOldestAndEnqueueLocked(item)
			c.mu.Unlock()
			return false
		}

		select {
		case <-ch:
			continue
		case <-time.After(remaining):
			continue // re-enter loop; will hit the remaining<=0 branch above
		}
	}
}

// dropOldestAndEnqueueLocked discards the oldest buffered item and enqueues
// item in its place. Must be called with c.mu held and the queue full.
func (c *Channel) dropOldestAndEnqueueLocked(item *frame.Frame) {
	c.items[0].Release()
	c.items = append(c.items[1:], item)
	c.notifyLocked()
}

// WaitPop blocks until an item is available, the timeout elapses, or the
// channel is flushed. A successful pop releases the queue's own reference
// to the item — ownership passes to the caller, who must not call Release
// again.
func (c *Channel) WaitPop(timeoutMs int) (*frame.Frame, bool) {
	var deadline time.Time
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	for {
		c.mu.Lock()
		if len(c.items) > 0 {
			item := c.items[0]
			c.items = c.items[1:]
			c.notifyLocked()
			c.mu.Unlock()
			item.Release()
			return item, true
		}
		if c.flushed.Load() || timeoutMs == NoWait {
			c.mu.Unlock()
			return nil, false
		}

		ch := c.changed
		c.mu.Unlock()

		if timeoutMs == WaitForever {
			<-ch
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}

		select {
		case <-ch:
			continue
		case <-time.After(remaining):
			return nil, false
		}
	}
}

// TryPop pops an item if one is immediately available, never blocking. Like
// WaitPop, a successful pop releases the queue's reference to the item.
func (c *Channel) TryPop() (*frame.Frame, bool) {
	c.mu.Lock()
	if len(c.items) == 0 {
		c.mu.Unlock()
		return nil, false
	}
	item := c.items[0]
	c.items = c.items[1:]
	c.notifyLocked()
	c.mu.Unlock()

	item.Release()
	return item, true
}

// Flush empties the queue, releases every reference the queue held, wakes
// every blocked waiter, and latches the flushed state. It is idempotent.
func (c *Channel) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.items {
		f.Release()
	}
	c.items = c.items[:0]
	c.flushed.Store(true)
	c.notifyLocked()
}
