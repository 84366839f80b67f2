package yorha

import "github.com/chanellr/yorha/internal/bitmap"

// fdEntry is C8's file descriptor record (spec.md §3). It is process-wide
// state, never persisted to disk.
type fdEntry struct {
	name     [MaxNameLen]byte
	inodeNum uint32
	readPos  uint64
	writePos uint64
	index    uint32
}

// fdTable is the capacity-32, single-word-bitmap file-descriptor table.
// Allocation and deallocation go through the shared bitmap allocator (C2);
// entries are overwritten on allocation, never zeroed on free, matching
// spec.md §4.7.
type fdTable struct {
	bm      *bitmap.Bitmap
	entries [FDCapacity]fdEntry
}

func newFDTable() *fdTable {
	return &fdTable{bm: bitmap.New(FDCapacity)}
}

// alloc reserves a new FD bound to inodeNum/name and returns its index.
func (t *fdTable) alloc(inodeNum uint32, name string) (int, bool) {
	r := t.bm.AllocRange(1, false)
	if r.Empty() {
		return 0, false
	}
	idx := int(r.Start)
	var e fdEntry
	setName(&e.name, name)
	e.inodeNum = inodeNum
	e.index = uint32(idx)
	t.entries[idx] = e
	return idx, true
}

// valid reports whether fd's bit is set (invariant I7).
func (t *fdTable) valid(fd int) bool {
	if fd < 0 || fd >= FDCapacity {
		return false
	}
	return t.bm.Test(uint32(fd))
}

// free clears fd's bit. It does not zero the entry.
func (t *fdTable) free(fd int) {
	t.bm.DeallocRange(bitmap.Range{Start: uint32(fd), Length: 1})
}

func (t *fdTable) get(fd int) *fdEntry {
	return &t.entries[fd]
}
