package ring_test

import (
	"testing"

	"github.com/chanellr/yorha/internal/ring"
)

func TestFIFOOrder(t *testing.T) {
	var b ring.Buffer
	input := []byte("hello, kernel")
	for _, c := range input {
		if dropped := b.Push(c); dropped {
			t.Fatalf("unexpected drop pushing %q", c)
		}
	}

	var out []byte
	for !b.Empty() {
		c, ok := b.Pop()
		if !ok {
			t.Fatal("Pop() ok = false while not Empty()")
		}
		out = append(out, c)
	}

	if string(out) != string(input) {
		t.Fatalf("drained %q, want %q", out, input)
	}
}

func TestOverflowDropsNewest(t *testing.T) {
	var b ring.Buffer
	// Capacity-1 bytes fit (one slot is always kept empty to distinguish
	// full from empty).
	for i := 0; i < ring.Capacity-1; i++ {
		if dropped := b.Push(byte(i)); dropped {
			t.Fatalf("unexpected drop at %d", i)
		}
	}

	if dropped := b.Push(0xFF); !dropped {
		t.Fatal("expected overflow push to be dropped")
	}

	c, ok := b.Pop()
	if !ok || c != 0 {
		t.Fatalf("first popped byte = %d,%v, want 0,true", c, ok)
	}
}

func TestDrain(t *testing.T) {
	var b ring.Buffer
	for _, c := range []byte("abcdef") {
		b.Push(c)
	}
	out := make([]byte, 3)
	n := b.Drain(out)
	if n != 3 || string(out) != "abc" {
		t.Fatalf("Drain() = %d,%q, want 3,\"abc\"", n, out)
	}
	rest := make([]byte, 10)
	n = b.Drain(rest)
	if n != 3 || string(rest[:3]) != "def" {
		t.Fatalf("second Drain() = %d,%q, want 3,\"def\"", n, rest[:3])
	}
}
