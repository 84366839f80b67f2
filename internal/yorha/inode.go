package yorha

import (
	"bytes"
	"encoding/binary"
)

// InodeRecord is the 64-byte on-disk inode record described in spec.md §3.
// The 16 reserved bytes keep the record at exactly InodeSize; the original
// kernel never used them for anything and this module doesn't either.
type InodeRecord struct {
	Name           [MaxNameLen]byte
	FileType       FileType
	DataBlockStart uint32
	Size           uint32
	ParentInodeNum uint32
	reserved       [16]byte
}

// NameString returns the inode's name with the trailing NUL padding
// trimmed.
func (i *InodeRecord) NameString() string {
	n := bytes.IndexByte(i.Name[:], 0)
	if n < 0 {
		n = len(i.Name)
	}
	return string(i.Name[:n])
}

func setName(dst *[MaxNameLen]byte, name string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst[:], name)
}

// MarshalBinary encodes the inode into exactly InodeSize bytes.
func (i *InodeRecord) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, f := range []any{i.Name, i.FileType, i.DataBlockStart, i.Size, i.ParentInodeNum, i.reserved} {
		if err := binary.Write(buf, order, f); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an InodeSize-byte record.
func (i *InodeRecord) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	for _, f := range []any{&i.Name, &i.FileType, &i.DataBlockStart, &i.Size, &i.ParentInodeNum, &i.reserved} {
		if err := binary.Read(r, order, f); err != nil {
			return err
		}
	}
	return nil
}

// DirEntry is one packed {name, inode_num} record inside a directory's data
// block.
type DirEntry struct {
	Name     [MaxNameLen]byte
	InodeNum uint32
}

// NameString returns the entry's name with trailing NUL padding trimmed.
func (e *DirEntry) NameString() string {
	n := bytes.IndexByte(e.Name[:], 0)
	if n < 0 {
		n = len(e.Name)
	}
	return string(e.Name[:n])
}

func (e *DirEntry) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, order, e.Name); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, order, e.InodeNum); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *DirEntry) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	if err := binary.Read(r, order, &e.Name); err != nil {
		return err
	}
	return binary.Read(r, order, &e.InodeNum)
}
