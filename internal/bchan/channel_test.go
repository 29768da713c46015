package bchan

import (
	"testing"
	"time"

	"github.com/d13mon/ISplitter/pkg/frame"
)

func TestPushPopRoundTrip(t *testing.T) {
	c := New(4)
	for i := 0; i < 4; i++ {
		if ok := c.Push(frame.New([]byte{byte(i)}), NoWait); !ok {
			t.Fatalf("push %d: expected Ok", i)
		}
	}
	if got := c.Size(); got != 4 {
		t.Fatalf("size = %d, want 4", got)
	}
	for i := 0; i < 4; i++ {
		f, ok := c.WaitPop(NoWait)
		if !ok {
			t.Fatalf("pop %d: expected item", i)
		}
		if f.Bytes()[0] != byte(i) {
			t.Fatalf("pop %d: got %v", i, f.Bytes())
		}
	}
	if c.Size() != 0 {
		t.Fatalf("size after drain = %d, want 0", c.Size())
	}
}

func TestPushNoWaitDropsOldestWhenFull(t *testing.T) {
	c := New(2)
	c.Push(frame.New([]byte{1}), NoWait)
	c.Push(frame.New([]byte{2}), NoWait)

	ok := c.Push(frame.New([]byte{3}), NoWait)
	if ok {
		t.Fatalf("expected Dropped on full push with NoWait")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
	first, _ := c.WaitPop(NoWait)
	second, _ := c.WaitPop(NoWait)
	if first.Bytes()[0] != 2 || second.Bytes()[0] != 3 {
		t.Fatalf("expected [2,3], got [%v,%v]", first.Bytes(), second.Bytes())
	}
}

func TestPushTimeoutDropsOldestAfterWaiting(t *testing.T) {
	c := New(1)
	c.Push(frame.New([]byte{1}), NoWait)

	start := time.Now()
	ok := c.Push(frame.New([]byte{2}), 50)
	if ok {
		t.Fatalf("expected Dropped after timeout")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
	f, _ := c.WaitPop(NoWait)
	if f.Bytes()[0] != 2 {
		t.Fatalf("expected surviving item to be the new one, got %v", f.Bytes())
	}
}

func TestPushBlocksUntilRoom(t *testing.T) {
	c := New(1)
	c.Push(frame.New([]byte{1}), NoWait)

	done := make(chan bool, 1)
	go func() {
		done <- c.Push(frame.New([]byte{2}), WaitForever)
	}()

	select {
	case <-done:
		t.Fatalf("push returned before room was made")
	case <-time.After(50 * time.Millisecond):
	}

	c.WaitPop(NoWait) // drains the first item, making room

	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("expected Ok once room appeared")
		}
	case <-time.After(time.Second):
		t.Fatalf("push never returned")
	}
}

func TestWaitPopTimesOutWhenEmpty(t *testing.T) {
	c := New(1)
	start := time.Now()
	_, ok := c.WaitPop(30)
	if ok {
		t.Fatalf("expected no item")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestTryPopNeverBlocks(t *testing.T) {
	c := New(1)
	if _, ok := c.TryPop(); ok {
		t.Fatalf("expected empty TryPop to fail")
	}
	c.Push(frame.New([]byte{9}), NoWait)
	f, ok := c.TryPop()
	if !ok || f.Bytes()[0] != 9 {
		t.Fatalf("expected item 9, got ok=%v f=%v", ok, f)
	}
}

func TestFlushWakesWaitersAndEmptiesQueue(t *testing.T) {
	c := New(1)
	c.Push(frame.New([]byte{1}), NoWait)

	// The queue is full, so this push blocks until Flush wakes it.
	pushDone := make(chan bool, 1)
	go func() {
		pushDone <- c.Push(frame.New([]byte{2}), WaitForever)
	}()

	time.Sleep(20 * time.Millisecond)
	c.Flush()

	select {
	case ok := <-pushDone:
		if ok {
			t.Fatalf("expected Dropped from a push woken by flush")
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter was not woken by flush")
	}

	if c.Size() != 0 {
		t.Fatalf("size after flush = %d, want 0", c.Size())
	}
	if !c.IsFlushed() {
		t.Fatalf("expected IsFlushed true")
	}
}

func TestPushAfterFlushAlwaysDrops(t *testing.T) {
	c := New(2)
	c.Flush()

	if ok := c.Push(frame.New([]byte{1}), NoWait); ok {
		t.Fatalf("expected Dropped after flush (NoWait)")
	}
	if ok := c.Push(frame.New([]byte{1}), WaitForever); ok {
		t.Fatalf("expected Dropped after flush (WaitForever)")
	}
	if c.Size() != 0 {
		t.Fatalf("expected no items enqueued after flush")
	}
}

func TestDropOldestReleasesDiscardedReference(t *testing.T) {
	c := New(1)
	first := frame.New([]byte{1})
	c.Push(first, NoWait)

	second := frame.New([]byte{2})
	c.Push(second, NoWait) // drops first

	if got := first.RefCount(); got != 0 {
		t.Fatalf("discarded item refcount = %d, want 0", got)
	}
	if got := second.RefCount(); got != 1 {
		t.Fatalf("surviving item refcount = %d, want 1", got)
	}
}

func TestFlushReleasesEveryBufferedReference(t *testing.T) {
	c := New(2)
	a := frame.New([]byte{1})
	b := frame.New([]byte{2})
	c.Push(a, NoWait)
	c.Push(b, NoWait)

	c.Flush()

	if got := a.RefCount(); got != 0 {
		t.Fatalf("a refcount after flush = %d, want 0", got)
	}
	if got := b.RefCount(); got != 0 {
		t.Fatalf("b refcount after flush = %d, want 0", got)
	}
}

func TestPushAfterFlushReleasesCallersReference(t *testing.T) {
	c := New(2)
	c.Flush()

	f := frame.New([]byte{1})
	c.Push(f, NoWait)
	if got := f.RefCount(); got != 0 {
		t.Fatalf("refcount after refused push = %d, want 0", got)
	}
}

func TestWaitPopAfterFlushReturnsFalse(t *testing.T) {
	c := New(2)
	c.Flush()
	if _, ok := c.WaitPop(WaitForever); ok {
		t.Fatalf("expected no item after flush")
	}
}
