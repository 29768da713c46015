// Package frame implements the opaque, reference-counted byte payload that
// flows through the splitter. A Frame is immutable once created; broadcast
// fan-out shares the same *Frame across every client queue instead of
// copying the payload.
package frame

import "sync/atomic"

// Frame is an immutable, reference-counted byte buffer.
type Frame struct {
	data []byte
	refs atomic.Int32
}

// New copies b once and returns a Frame with a single reference held by the
// caller.
func New(b []byte) *Frame {
	data := make([]byte, len(b))
	copy(data, b)
	f := &Frame{data: data}
	f.refs.Store(1)
	return f
}

// Bytes returns the frame's payload. The slice must not be mutated.
func (f *Frame) Bytes() []byte {
	return f.data
}

// Len returns the payload length.
func (f *Frame) Len() int {
	return len(f.data)
}

// Retain adds a reference. Call once per queue the frame is enqueued into
// beyond the first.
func (f *Frame) Retain() {
	f.refs.Add(1)
}

// Release drops a reference. Every holder of a *Frame — a client queue that
// enqueued it, or a caller that received it from New and has not handed it
// to a queue — must call Release exactly once when it is done with it.
// Passing the frame to bchan.Channel.Push (and so to splitter.Splitter.Put)
// hands the caller's reference over, after which the caller does not
// Release it. Go's garbage collector does the
// actual memory reclamation once nothing references the Frame anymore;
// RefCount tracks the documented "last queue releases the last reference"
// lifetime so callers and tests can observe when a broadcast frame is fully
// drained.
func (f *Frame) Release() int32 {
	return f.refs.Add(-1)
}

// RefCount returns the current reference count.
func (f *Frame) RefCount() int32 {
	return f.refs.Load()
}
