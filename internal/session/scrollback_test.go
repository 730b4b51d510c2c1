package session

import (
	"bytes"
	"testing"
)

func TestScrollbackRingBoundedAndFrontTrimmed(t *testing.T) {
	r := NewScrollbackRing(8)
	r.Write([]byte("abcdefgh"))
	r.Write([]byte("ij"))

	got := r.Snapshot()
	want := []byte("cdefghij")
	if !bytes.Equal(got, want) {
		t.Fatalf("snapshot = %q, want %q", got, want)
	}
	if r.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", r.Len())
	}
}

func TestScrollbackRingWriteLargerThanMax(t *testing.T) {
	r := NewScrollbackRing(4)
	r.Write([]byte("0123456789"))

	got := r.Snapshot()
	want := []byte("6789")
	if !bytes.Equal(got, want) {
		t.Fatalf("snapshot = %q, want %q", got, want)
	}
}

func TestScrollbackRingTailReturnsLastNBytes(t *testing.T) {
	r := NewScrollbackRing(DefaultScrollbackSize)
	r.Write([]byte("hello world"))

	tail := r.Tail(5)
	if !bytes.Equal(tail, []byte("world")) {
		t.Fatalf("Tail(5) = %q, want %q", tail, "world")
	}

	full := r.Tail(0)
	if !bytes.Equal(full, []byte("hello world")) {
		t.Fatalf("Tail(0) = %q, want full buffer", full)
	}

	overshoot := r.Tail(1000)
	if !bytes.Equal(overshoot, []byte("hello world")) {
		t.Fatalf("Tail(1000) = %q, want full buffer", overshoot)
	}
}

func TestScrollbackRingDefaultSize(t *testing.T) {
	r := NewScrollbackRing(0)
	if r.max != DefaultScrollbackSize {
		t.Fatalf("max = %d, want %d", r.max, DefaultScrollbackSize)
	}
}
