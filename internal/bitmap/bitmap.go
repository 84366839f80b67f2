// Package bitmap implements the range allocator shared by the kernel heap,
// the physical page allocator, the inode/data-block allocator and the
// file-descriptor table. It is the one primitive every other resource
// manager in this module is built from.
//
// Bits are packed MSB-first within each 32-bit word: bit k lives in word
// k/32 at shift 31-(k%32). Free bits are 0, allocated bits are 1.
package bitmap

import "math/bits"

// Range is a half-open interval [Start, Start+Length) over a bitmap. A
// zero-length range is the sentinel returned on allocation failure.
type Range struct {
	Start  uint32
	Length uint32
}

// Empty reports whether r is the failure sentinel.
func (r Range) Empty() bool {
	return r.Length == 0
}

// Bitmap is a fixed-capacity packed bit array.
type Bitmap struct {
	words []uint32
	bits  uint32
}

// New allocates a bitmap with room for at least nbits bits, rounded up to a
// whole number of 32-bit words.
func New(nbits uint32) *Bitmap {
	return &Bitmap{
		words: make([]uint32, (nbits+31)/32),
		bits:  nbits,
	}
}

// Wrap adapts an existing word slice (e.g. one just read off disk) into a
// Bitmap without copying.
func Wrap(words []uint32, nbits uint32) *Bitmap {
	return &Bitmap{words: words, bits: nbits}
}

// Words exposes the backing word slice, e.g. for persisting to disk.
func (b *Bitmap) Words() []uint32 { return b.words }

// Bits returns the bitmap's capacity in bits.
func (b *Bitmap) Bits() uint32 { return b.bits }

func wordShift(k uint32) (word int, shift uint32) {
	return int(k / 32), 31 - (k % 32)
}

// Test reports whether bit k is set.
func (b *Bitmap) Test(k uint32) bool {
	w, s := wordShift(k)
	return b.words[w]&(1<<s) != 0
}

// ApplyRange sets or clears every bit in [start, start+length). A {0,0}
// range is a no-op, as required by alloc_range's failure sentinel.
func (b *Bitmap) ApplyRange(start, length uint32, set bool) {
	if length == 0 {
		return
	}
	end := start + length // exclusive
	startWord := int(start / 32)
	endWord := int((end - 1) / 32)

	for word := startWord; word <= endWord; word++ {
		wordBase := uint32(word) * 32
		lo := start
		if wordBase > lo {
			lo = wordBase
		}
		hi := end
		if wordBase+32 < hi {
			hi = wordBase + 32
		}
		loPos := lo - wordBase
		hiPos := hi - wordBase // exclusive, 1..32

		var mask uint32
		if hiPos-loPos >= 32 {
			mask = ^uint32(0)
		} else {
			width := hiPos - loPos
			mask = ((uint32(1) << width) - 1) << (32 - hiPos)
		}

		if set {
			b.words[word] |= mask
		} else {
			b.words[word] &^= mask
		}
	}
}

// AllocRange performs a first-fit scan from bit 0 for count consecutive free
// bits and marks them allocated. When wordAlign is true, only candidate
// start positions that are multiples of 32 are considered, so the returned
// start (and the byte size it backs) is always word-aligned — this is what
// the byte heap relies on to keep every allocation word-aligned.
//
// On success the returned range is already marked set in the bitmap. On
// failure it returns the zero-length sentinel range and leaves the bitmap
// untouched.
func (b *Bitmap) AllocRange(count uint32, wordAlign bool) Range {
	if count == 0 || count > b.bits {
		return Range{}
	}

	if wordAlign {
		for start := uint32(0); start+count <= b.bits; start += 32 {
			if b.rangeFree(start, count) {
				r := Range{Start: start, Length: count}
				b.ApplyRange(r.Start, r.Length, true)
				return r
			}
		}
		return Range{}
	}

	var curStart, curLen uint32
	haveStart := false
	for i := uint32(0); i < b.bits; i++ {
		if b.Test(i) {
			haveStart = false
			curLen = 0
			continue
		}
		if !haveStart {
			curStart = i
			haveStart = true
		}
		curLen++
		if curLen == count {
			r := Range{Start: curStart, Length: count}
			b.ApplyRange(r.Start, r.Length, true)
			return r
		}
	}
	return Range{}
}

// rangeFree reports whether every bit in [start, start+count) is clear.
func (b *Bitmap) rangeFree(start, count uint32) bool {
	for i := start; i < start+count; i++ {
		if b.Test(i) {
			return false
		}
	}
	return true
}

// DeallocRange clears a previously allocated range. It is idempotent:
// clearing already-clear bits is harmless.
func (b *Bitmap) DeallocRange(r Range) {
	b.ApplyRange(r.Start, r.Length, false)
}

// PopCount returns the number of set bits, used to maintain invariants like
// used_inodes == popcount(i_bmap).
func (b *Bitmap) PopCount() uint32 {
	var n uint32
	for _, w := range b.words {
		n += uint32(bits.OnesCount32(w))
	}
	return n
}
