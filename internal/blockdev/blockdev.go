// Package blockdev implements C1's contract: a synchronous, blocking
// fixed-block device. This module never partially fails a read or write.
//
// Two implementations are provided: FileDevice, backed by a regular host
// file standing in for an ATA disk image, and MemDevice, an in-memory
// device used by tests that don't want filesystem fixtures.
package blockdev

import (
	"fmt"
	"io"
	"os"
)

// BlockSize is the fixed unit of I/O: 4096 bytes, 8 sectors of 512 bytes.
const BlockSize = 4096

// SectorSize is the ATA transfer unit backing a block.
const SectorSize = 512

// Device is the block device contract the kernel core consumes.
type Device interface {
	// ReadBlocks reads count contiguous BlockSize blocks starting at
	// blockNum into buf, which must be exactly count*BlockSize bytes.
	ReadBlocks(blockNum uint32, buf []byte, count uint32) error
	// WriteBlocks writes count contiguous BlockSize blocks starting at
	// blockNum from buf, which must be exactly count*BlockSize bytes.
	WriteBlocks(blockNum uint32, buf []byte, count uint32) error
	// DiskSizeBytes returns the device's total capacity.
	DiskSizeBytes() uint64
}

func checkBuf(buf []byte, count uint32) error {
	want := int(count) * BlockSize
	if len(buf) != want {
		return fmt.Errorf("blockdev: buffer is %d bytes, want %d for %d block(s)", len(buf), want, count)
	}
	return nil
}

// FileDevice backs a Device with a regular host file, the way the original
// kernel's ATA PIO driver backs it with a physical disk.
type FileDevice struct {
	f    *os.File
	size uint64
}

// OpenFile opens (creating if needed) a file of exactly size bytes to use
// as block storage.
func OpenFile(path string, size uint64) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}
	return &FileDevice{f: f, size: size}, nil
}

func (d *FileDevice) ReadBlocks(blockNum uint32, buf []byte, count uint32) error {
	if err := checkBuf(buf, count); err != nil {
		return err
	}
	off := int64(blockNum) * BlockSize
	_, err := d.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (d *FileDevice) WriteBlocks(blockNum uint32, buf []byte, count uint32) error {
	if err := checkBuf(buf, count); err != nil {
		return err
	}
	off := int64(blockNum) * BlockSize
	_, err := d.f.WriteAt(buf, off)
	return err
}

func (d *FileDevice) DiskSizeBytes() uint64 { return d.size }

// Sync flushes the backing file to stable storage.
func (d *FileDevice) Sync() error { return d.f.Sync() }

// Close closes the backing file.
func (d *FileDevice) Close() error { return d.f.Close() }

// MemDevice is an in-memory Device for tests.
type MemDevice struct {
	data []byte
}

// NewMem returns a zeroed in-memory device of exactly size bytes.
func NewMem(size uint64) *MemDevice {
	return &MemDevice{data: make([]byte, size)}
}

func (d *MemDevice) ReadBlocks(blockNum uint32, buf []byte, count uint32) error {
	if err := checkBuf(buf, count); err != nil {
		return err
	}
	off := int(blockNum) * BlockSize
	copy(buf, d.data[off:off+int(count)*BlockSize])
	return nil
}

func (d *MemDevice) WriteBlocks(blockNum uint32, buf []byte, count uint32) error {
	if err := checkBuf(buf, count); err != nil {
		return err
	}
	off := int(blockNum) * BlockSize
	copy(d.data[off:off+int(count)*BlockSize], buf)
	return nil
}

func (d *MemDevice) DiskSizeBytes() uint64 { return uint64(len(d.data)) }
