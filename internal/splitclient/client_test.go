package splitclient

import (
	"testing"

	"github.com/d13mon/ISplitter/pkg/frame"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New(1, 4)
	for i := 0; i < 3; i++ {
		if ok := c.Put(frame.New([]byte{byte(i)}), 0); !ok {
			t.Fatalf("put %d failed", i)
		}
	}
	for i := 0; i < 3; i++ {
		f, ok := c.Get(0)
		if !ok || f.Bytes()[0] != byte(i) {
			t.Fatalf("get %d: ok=%v f=%v", i, ok, f)
		}
	}
	if c.Latency() != 0 {
		t.Fatalf("latency = %d, want 0", c.Latency())
	}
	if c.Dropped() != 0 {
		t.Fatalf("dropped = %d, want 0", c.Dropped())
	}
}

func TestPutIncrementsDroppedOnOverflow(t *testing.T) {
	c := New(1, 2)
	c.Put(frame.New([]byte{1}), 0)
	c.Put(frame.New([]byte{2}), 0)
	c.Put(frame.New([]byte{3}), 0) // drops the oldest

	if c.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", c.Dropped())
	}
	if c.Latency() != 2 {
		t.Fatalf("latency = %d, want 2", c.Latency())
	}
}

func TestGetReturnsFalseWhenEmpty(t *testing.T) {
	c := New(1, 2)
	if _, ok := c.Get(0); ok {
		t.Fatalf("expected no frame")
	}
}

func TestFlushResetsCountersAndUnblocksQueue(t *testing.T) {
	c := New(1, 1)
	c.Put(frame.New([]byte{1}), 0)
	c.Put(frame.New([]byte{2}), 0) // one drop

	c.Flush()

	if c.Dropped() != 0 {
		t.Fatalf("dropped after flush = %d, want 0", c.Dropped())
	}
	if c.Latency() != 0 {
		t.Fatalf("latency after flush = %d, want 0", c.Latency())
	}
	// client usable again after flush
	if ok := c.Put(frame.New([]byte{3}), 0); !ok {
		t.Fatalf("expected Put after flush to succeed")
	}
	f, ok := c.Get(0)
	if !ok || f.Bytes()[0] != 3 {
		t.Fatalf("expected frame 3 after flush, got ok=%v f=%v", ok, f)
	}
}

func TestIDIsStable(t *testing.T) {
	c := New(42, 1)
	if c.ID() != 42 {
		t.Fatalf("id = %d, want 42", c.ID())
	}
}
