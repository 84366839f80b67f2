package yorha

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// order is the byte order used for every on-disk structure; spec.md §6
// calls for host byte order, which for this module is little-endian.
var order = binary.LittleEndian

// Superblock is the fixed-layout block-0 record, persisted verbatim.
type Superblock struct {
	Magic           [16]byte
	DiskSize        uint64
	SectorCount     uint32
	BlockCount      uint32
	IBmapStart      uint32
	DBmapStart      uint32
	InodeTableStart uint32
	DataStart       uint32
	UsedInodes      uint32
}

// Recognized reports whether the magic field matches the literal "Yorha"
// signature. Per spec.md §9's resolved ambiguity, mount formats iff this is
// false — not the inverse.
func (s *Superblock) Recognized() bool {
	return s.Magic == Magic
}

// MarshalBinary serializes the superblock into a zero-padded BlockSize
// buffer, mirroring the teacher's own field-by-field encoding.Read/Write
// use in super.go and inode.go.
func (s *Superblock) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	fields := []any{
		s.Magic, s.DiskSize, s.SectorCount, s.BlockCount,
		s.IBmapStart, s.DBmapStart, s.InodeTableStart, s.DataStart, s.UsedInodes,
	}
	for _, f := range fields {
		if err := binary.Write(buf, order, f); err != nil {
			return nil, err
		}
	}
	out := make([]byte, BlockSize)
	copy(out, buf.Bytes())
	return out, nil
}

// UnmarshalBinary parses a BlockSize buffer (or at least enough of one) into
// the superblock's fields.
func (s *Superblock) UnmarshalBinary(data []byte) error {
	if len(data) < 48 {
		return fmt.Errorf("yorha: superblock buffer too short: %d bytes", len(data))
	}
	r := bytes.NewReader(data)
	fields := []any{
		&s.Magic, &s.DiskSize, &s.SectorCount, &s.BlockCount,
		&s.IBmapStart, &s.DBmapStart, &s.InodeTableStart, &s.DataStart, &s.UsedInodes,
	}
	for _, f := range fields {
		if err := binary.Read(r, order, f); err != nil {
			return err
		}
	}
	return nil
}
