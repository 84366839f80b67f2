package blockdev_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/chanellr/yorha/internal/blockdev"
)

// P1: round-trip disk I/O — for any block number and payload, a write
// followed by a read yields the same bytes back, for every Device
// implementation.
func TestRoundTripMem(t *testing.T) {
	testRoundTrip(t, blockdev.NewMem(64*blockdev.BlockSize))
}

func TestRoundTripFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := blockdev.OpenFile(path, 64*blockdev.BlockSize)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer dev.Close()
	testRoundTrip(t, dev)
}

func testRoundTrip(t *testing.T, dev blockdev.Device) {
	t.Helper()
	for _, blockNum := range []uint32{0, 1, 8, 63} {
		payload := bytes.Repeat([]byte{byte(blockNum + 1)}, blockdev.BlockSize)
		if err := dev.WriteBlocks(blockNum, payload, 1); err != nil {
			t.Fatalf("WriteBlocks(%d) error = %v", blockNum, err)
		}
		got := make([]byte, blockdev.BlockSize)
		if err := dev.ReadBlocks(blockNum, got, 1); err != nil {
			t.Fatalf("ReadBlocks(%d) error = %v", blockNum, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("block %d round-trip mismatch", blockNum)
		}
	}
}

func TestBadBufferSize(t *testing.T) {
	dev := blockdev.NewMem(4 * blockdev.BlockSize)
	if err := dev.ReadBlocks(0, make([]byte, 10), 1); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}
