// Package pagealloc implements C4, the physical page allocator: a bitmap of
// page frames starting at address 0, with the lower 4 MiB (the frames
// occupied by the kernel image and early data) pre-allocated at init.
package pagealloc

import (
	"errors"
	"fmt"

	"github.com/chanellr/yorha/internal/bitmap"
)

const (
	// PageSize is the size in bytes of a single physical page frame.
	PageSize = 4096
	// ReservedFrames is the count of frames pre-allocated at init for the
	// kernel image and early data (the lower 4 MiB).
	ReservedFrames = 1024
	// maxEntries bounds the live-allocation tracking table, mirroring the
	// byte heap's entries table.
	maxEntries = 256
)

// ErrNoSpace indicates the frame bitmap has no run of free frames to satisfy
// the request. It is recoverable: callers get an error, not a panic.
var ErrNoSpace = errors.New("pagealloc: no space")

// ErrUnknownFrame is returned by Free for a frame that was never allocated
// (or already freed) by this allocator.
var ErrUnknownFrame = errors.New("pagealloc: free of unknown frame")

type entry struct {
	inUse bool
	frame uint32
}

// Allocator manages a bitmap over physical page frames.
type Allocator struct {
	bm          *bitmap.Bitmap
	entries     [maxEntries]entry
	initialized bool
}

// New creates an allocator over frameCount frames and pre-allocates the
// first ReservedFrames of them. It panics if frameCount is too small to
// hold the reservation, since that is a configuration error rather than a
// recoverable space shortage.
func New(frameCount uint32) *Allocator {
	if frameCount < ReservedFrames {
		panic(fmt.Sprintf("pagealloc: frameCount %d smaller than reserved %d", frameCount, ReservedFrames))
	}
	a := &Allocator{bm: bitmap.New(frameCount)}
	a.bm.ApplyRange(0, ReservedFrames, true)
	a.initialized = true
	return a
}

func (a *Allocator) mustBeInitialized() {
	if !a.initialized {
		panic("pagealloc: allocator used before init")
	}
}

// AllocatePage returns a single free physical page frame number.
func (a *Allocator) AllocatePage() (uint32, error) {
	a.mustBeInitialized()

	r := a.bm.AllocRange(1, false)
	if r.Empty() {
		return 0, ErrNoSpace
	}

	for i := range a.entries {
		if !a.entries[i].inUse {
			a.entries[i] = entry{inUse: true, frame: r.Start}
			return r.Start, nil
		}
	}
	// Roll back: we have no slot to track this allocation.
	a.bm.DeallocRange(r)
	return 0, ErrNoSpace
}

// FreePage releases a previously allocated frame.
func (a *Allocator) FreePage(frame uint32) error {
	a.mustBeInitialized()

	for i := range a.entries {
		if a.entries[i].inUse && a.entries[i].frame == frame {
			a.entries[i].inUse = false
			a.bm.DeallocRange(bitmap.Range{Start: frame, Length: 1})
			return nil
		}
	}
	return ErrUnknownFrame
}
