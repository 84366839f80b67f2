package heap_test

import (
	"testing"

	"github.com/chanellr/yorha/internal/heap"
)

func TestStringAppendByte(t *testing.T) {
	var s heap.String
	for _, c := range []byte("hello") {
		heap.Append(&s, c)
	}
	if got := s.String(); got != "hello" {
		t.Fatalf("String() = %q, want %q", got, "hello")
	}
}

func TestStringAppendStringGrowsAndConcatenates(t *testing.T) {
	var s heap.String
	heap.Append(&s, "hello")
	heap.Append(&s, " world")
	if got := s.String(); got != "hello world" {
		t.Fatalf("String() = %q, want %q", got, "hello world")
	}
}

func TestSplitBasic(t *testing.T) {
	sl := heap.Split("ls -la /dev", ' ', false)
	want := []string{"ls", "-la", "/dev"}
	if len(sl.Items) != len(want) {
		t.Fatalf("Split() = %d items, want %d", len(sl.Items), len(want))
	}
	for i, w := range want {
		if got := sl.Items[i].String(); got != w {
			t.Errorf("item %d = %q, want %q", i, got, w)
		}
	}
}

func TestSplitReserveQuotes(t *testing.T) {
	sl := heap.Split(`echo "hello world" done`, ' ', true)
	want := []string{"echo", `"hello world"`, "done"}
	if len(sl.Items) != len(want) {
		t.Fatalf("Split() = %d items, want %d: %+v", len(sl.Items), len(want), sl.Items)
	}
	for i, w := range want {
		if got := sl.Items[i].String(); got != w {
			t.Errorf("item %d = %q, want %q", i, got, w)
		}
	}
}

func TestSplitTrailingFragment(t *testing.T) {
	sl := heap.Split("a:b:c", ':', false)
	if len(sl.Items) != 3 || sl.Items[2].String() != "c" {
		t.Fatalf("Split() = %+v, want trailing fragment c", sl.Items)
	}
}
