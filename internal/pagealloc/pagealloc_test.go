package pagealloc_test

import (
	"errors"
	"testing"

	"github.com/chanellr/yorha/internal/pagealloc"
)

func TestReservedFramesPreallocated(t *testing.T) {
	a := pagealloc.New(pagealloc.ReservedFrames + 4)

	for i := 0; i < 4; i++ {
		frame, err := a.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage() error = %v", err)
		}
		if frame < pagealloc.ReservedFrames {
			t.Fatalf("AllocatePage() = %d, want >= %d", frame, pagealloc.ReservedFrames)
		}
	}

	if _, err := a.AllocatePage(); !errors.Is(err, pagealloc.ErrNoSpace) {
		t.Fatalf("AllocatePage() error = %v, want ErrNoSpace", err)
	}
}

func TestFreePageReusable(t *testing.T) {
	a := pagealloc.New(pagealloc.ReservedFrames + 1)

	frame, err := a.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}
	if err := a.FreePage(frame); err != nil {
		t.Fatalf("FreePage() error = %v", err)
	}

	again, err := a.AllocatePage()
	if err != nil {
		t.Fatalf("second AllocatePage() error = %v", err)
	}
	if again != frame {
		t.Fatalf("AllocatePage() = %d, want reused frame %d", again, frame)
	}
}

func TestFreeUnknownFrame(t *testing.T) {
	a := pagealloc.New(pagealloc.ReservedFrames + 1)
	if err := a.FreePage(0); !errors.Is(err, pagealloc.ErrUnknownFrame) {
		t.Fatalf("FreePage() error = %v, want ErrUnknownFrame", err)
	}
}

func TestUseBeforeInitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on use before init")
		}
	}()
	var a pagealloc.Allocator
	a.AllocatePage()
}
