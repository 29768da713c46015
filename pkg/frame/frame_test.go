package frame

import "testing"

func TestNewCopiesInput(t *testing.T) {
	b := []byte{1, 2, 3}
	f := New(b)
	b[0] = 99

	if f.Bytes()[0] != 1 {
		t.Fatalf("frame observed mutation of caller's slice: %v", f.Bytes())
	}
	if f.Len() != 3 {
		t.Fatalf("len = %d, want 3", f.Len())
	}
}

func TestRefCounting(t *testing.T) {
	f := New([]byte{1})
	if f.RefCount() != 1 {
		t.Fatalf("initial refcount = %d, want 1", f.RefCount())
	}

	f.Retain()
	f.Retain()
	if got := f.RefCount(); got != 3 {
		t.Fatalf("refcount after two retains = %d, want 3", got)
	}

	if got := f.Release(); got != 2 {
		t.Fatalf("release returned %d, want 2", got)
	}
	if got := f.Release(); got != 1 {
		t.Fatalf("release returned %d, want 1", got)
	}
	if got := f.Release(); got != 0 {
		t.Fatalf("final release returned %d, want 0", got)
	}
}
