// Package splitter implements the one-to-many in-memory stream splitter: a
// single producer pushes opaque frames, and any number of independently
// paced consumer clients each receive the complete sequence through their
// own bounded, drop-tolerant queue.
//
// The registry of clients is protected by a sync.RWMutex: Put, Get, and the
// stats queries only read the registry and so may run concurrently with
// each other; AddClient, RemoveClient, Flush, and Close take the write side
// (Flush leaves the registry itself unchanged). Per-client queues carry
// their own independent synchronization (see internal/bchan). Get holds the
// read lock only to look up its client, but Put holds it for the whole
// broadcast, including any wait on a full client queue, so a writer waits
// for an in-flight Put to finish.
package splitter

import (
	"sync"
	"sync/atomic"

	"github.com/d13mon/ISplitter/internal/splitclient"
	"github.com/d13mon/ISplitter/pkg/frame"
)

// Splitter owns a bounded registry of clients and coordinates producer
// broadcast, consumer dispatch, and flush/close lifecycle across them.
type Splitter struct {
	maxBuffers int
	maxClients int

	mu      sync.RWMutex
	clients []*splitclient.Client

	nextID atomic.Uint32
}

// New creates a Splitter with a fixed per-client queue capacity
// (maxBuffers) and registry size (maxClients). Both must be >= 1; a value
// of 0 or less is clamped to 1 rather than rejected, matching the
// permissive-defaults style the rest of this codebase's configuration
// layer already uses.
func New(maxBuffers, maxClients int) *Splitter {
	if maxBuffers < 1 {
		maxBuffers = 1
	}
	if maxClients < 1 {
		maxClients = 1
	}
	return &Splitter{
		maxBuffers: maxBuffers,
		maxClients: maxClients,
		clients:    make([]*splitclient.Client, 0, maxClients),
	}
}

// Info returns the fixed per-client capacity and registry size.
func (s *Splitter) Info() (maxBuffers, maxClients int) {
	return s.maxBuffers, s.maxClients
}

// AddClient registers a new client and returns its id. The registry's
// capacity is checked under the read lock, released, and the new client
// (and its queue) constructed outside any lock before the write lock is
// re-acquired to append — this keeps channel allocation out of the
// registry's critical section. A second capacity check after
// re-acquiring the write lock handles the race against a concurrent
// AddClient that filled the last slot in between.
func (s *Splitter) AddClient() (id uint32, ok bool) {
	s.mu.RLock()
	full := len(s.clients) >= s.maxClients
	s.mu.RUnlock()
	if full {
		return 0, false
	}

	newID := s.nextID.Add(1)
	client := splitclient.New(newID, s.maxBuffers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) >= s.maxClients {
		return 0, false
	}
	s.clients = append(s.clients, client)
	return newID, true
}

// RemoveClient flushes and removes the client with the given id, preserving
// the relative order of the remaining clients. It reports whether a client
// with that id was found.
func (s *Splitter) RemoveClient(id uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.clients {
		if c.ID() == id {
			c.Flush()
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return true
		}
	}
	return false
}

// ClientCount returns the current registry size.
func (s *Splitter) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// StatsByIndex returns the id, latency, and dropped count of the client at
// position i in registry order.
func (s *Splitter) StatsByIndex(i int) (id uint32, latency, dropped int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.clients) {
		return 0, 0, 0, false
	}
	c := s.clients[i]
	return c.ID(), c.Latency(), c.Dropped(), true
}

// StatsByID returns the latency and dropped count of the client with the
// given id.
func (s *Splitter) StatsByID(id uint32) (latency, dropped int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.ID() == id {
			return c.Latency(), c.Dropped(), true
		}
	}
	return 0, 0, false
}

// Put broadcasts frame to every registered client, in registry order, each
// with the same timeoutMs. All clients receive the same *frame.Frame
// reference, never a copy: the frame arrives at refcount 1 (from
// frame.New), and since each client's queue holds its own reference for the
// frame's time in that queue, Put retains once per client beyond the first
// so the count reflects exactly how many queues are holding it. Each queue
// releases its reference when the frame leaves it — popped, dropped for
// space, or discarded by Flush (see internal/bchan) — so the last queue to
// let go is what drives the frame's refcount to zero, per the Frame
// lifetime invariant. The aggregate result is the last non-zero code
// observed across the broadcast: a single drop at any client surfaces as
// DataDropped, and NoClients is returned only when the registry is empty.
func (s *Splitter) Put(f *frame.Frame, timeoutMs int) Code {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.clients) == 0 {
		return NoClients
	}

	for i := 1; i < len(s.clients); i++ {
		f.Retain()
	}

	result := NoError
	for _, c := range s.clients {
		if !c.Put(f, timeoutMs) {
			result = DataDropped
		}
	}
	return result
}

// Get dispatches to the client matching id and returns its next frame,
// waiting up to timeoutMs per the same two-phase semantics as
// splitclient.Client.Get. The read lock covers only the lookup, so a
// consumer waiting for a frame does not keep Flush or RemoveClient from
// taking the write lock and waking it.
func (s *Splitter) Get(id uint32, timeoutMs int) (*frame.Frame, Code) {
	s.mu.RLock()
	var client *splitclient.Client
	for _, c := range s.clients {
		if c.ID() == id {
			client = c
			break
		}
	}
	s.mu.RUnlock()

	if client == nil {
		return nil, NoClientFound
	}
	if f, ok := client.Get(timeoutMs); ok {
		return f, NoError
	}
	return nil, NoNewData
}

// Flush releases every client's buffered frames and wakes any consumer
// blocked in Get, without modifying the registry. It always returns
// DataFlushed.
func (s *Splitter) Flush() Code {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		c.Flush()
	}
	return DataFlushed
}

// Close flushes every client, then clears the registry entirely. Subsequent
// StatsByIndex/StatsByID calls for any prior id return false.
func (s *Splitter) Close() Code {
	s.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = s.clients[:0]
	return DataFlushed
}
