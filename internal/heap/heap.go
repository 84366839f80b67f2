// Package heap implements C3: the kernel byte heap built on a single
// page-allocator frame, plus the owning string and string-list types the
// shell uses for argument parsing.
package heap

import (
	"errors"
	"fmt"

	"github.com/chanellr/yorha/internal/bitmap"
	"github.com/chanellr/yorha/internal/pagealloc"
)

const maxEntries = 256

// ErrNoSpace is returned when the heap's backing page has no run of free
// bytes to satisfy an allocation. It is recoverable.
var ErrNoSpace = errors.New("heap: no space")

// ErrMaxAllocations is returned when every entry slot is already in use.
var ErrMaxAllocations = errors.New("heap: maximum allocations reached")

// ErrUnknownPointer is returned by Free/Realloc for a Ptr this heap never
// handed out (or already freed).
var ErrUnknownPointer = errors.New("heap: free of unknown pointer")

// Ptr is an opaque handle into the heap's backing page. The zero Ptr is
// never valid and stands in for the kernel's NULL.
type Ptr uint32

type entry struct {
	inUse bool
	rng   bitmap.Range
	// bytes records the caller-requested size in bytes. Kept explicitly
	// rather than derived from rng.Length*wordSize so Realloc never
	// repeats the original allocator's unit-confusion bug (see
	// DESIGN.md): rng.Length counts bits in a one-bit-per-byte bitmap,
	// which happens to equal the byte count here, but Realloc reads
	// this field rather than the bitmap range on principle.
	bytes uint32
}

// Heap is a byte-addressable allocator over a single page-allocator frame.
type Heap struct {
	pages       *pagealloc.Allocator
	frame       uint32
	base        []byte
	bm          *bitmap.Bitmap // one bit per byte of base
	entries     [maxEntries]entry
	initialized bool
}

// New obtains one page from pages and returns a heap built on top of it.
func New(pages *pagealloc.Allocator) (*Heap, error) {
	frame, err := pages.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("heap: acquiring backing page: %w", err)
	}
	h := &Heap{
		pages:       pages,
		frame:       frame,
		base:        make([]byte, pagealloc.PageSize),
		bm:          bitmap.New(pagealloc.PageSize),
		initialized: true,
	}
	return h, nil
}

func (h *Heap) mustBeInitialized() {
	if !h.initialized {
		panic("heap: allocator used before init")
	}
}

func (h *Heap) freeEntrySlot() int {
	for i := range h.entries {
		if !h.entries[i].inUse {
			return i
		}
	}
	return -1
}

func (h *Heap) entryFor(p Ptr) int {
	off := uint32(p) - 1
	for i := range h.entries {
		if h.entries[i].inUse && h.entries[i].rng.Start == off {
			return i
		}
	}
	return -1
}

// Alloc reserves n contiguous word-aligned bytes and returns a handle to
// them.
func (h *Heap) Alloc(n uint32) (Ptr, error) {
	h.mustBeInitialized()
	if n == 0 {
		n = 1
	}

	slot := h.freeEntrySlot()
	if slot == -1 {
		return 0, ErrMaxAllocations
	}

	r := h.bm.AllocRange(n, true)
	if r.Empty() {
		return 0, ErrNoSpace
	}

	h.entries[slot] = entry{inUse: true, rng: r, bytes: n}
	return Ptr(r.Start + 1), nil
}

// Calloc allocates num*size bytes and zeroes them.
func (h *Heap) Calloc(num, size uint32) (Ptr, error) {
	n := num * size
	p, err := h.Alloc(n)
	if err != nil {
		return 0, err
	}
	b := h.Bytes(p)
	for i := range b {
		b[i] = 0
	}
	return p, nil
}

// Free releases a previously allocated pointer.
func (h *Heap) Free(p Ptr) error {
	h.mustBeInitialized()
	idx := h.entryFor(p)
	if idx == -1 {
		return ErrUnknownPointer
	}
	h.bm.DeallocRange(h.entries[idx].rng)
	h.entries[idx].inUse = false
	return nil
}

// Realloc allocates a new region, copies min(oldSize, newSize) bytes from
// the old region, frees the old region, and returns the new pointer. The
// copy length comes from the entry's recorded byte count, not the bitmap
// range, so it is correct regardless of what unit the underlying bitmap
// happens to use.
func (h *Heap) Realloc(p Ptr, newSize uint32) (Ptr, error) {
	h.mustBeInitialized()
	idx := h.entryFor(p)
	if idx == -1 {
		return 0, ErrUnknownPointer
	}

	newPtr, err := h.Alloc(newSize)
	if err != nil {
		return 0, err
	}

	oldBytes := h.entries[idx].bytes
	n := oldBytes
	if newSize < n {
		n = newSize
	}
	copy(h.Bytes(newPtr), h.rawBytes(idx)[:n])

	h.bm.DeallocRange(h.entries[idx].rng)
	h.entries[idx].inUse = false

	return newPtr, nil
}

// Bytes returns a slice view over the bytes owned by p.
func (h *Heap) Bytes(p Ptr) []byte {
	idx := h.entryFor(p)
	if idx == -1 {
		panic("heap: Bytes on unknown pointer")
	}
	return h.rawBytes(idx)
}

func (h *Heap) rawBytes(idx int) []byte {
	e := h.entries[idx]
	return h.base[e.rng.Start : e.rng.Start+e.bytes]
}
