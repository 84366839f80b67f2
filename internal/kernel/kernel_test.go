package kernel_test

import (
	"strings"
	"testing"

	"github.com/chanellr/yorha/internal/blockdev"
	"github.com/chanellr/yorha/internal/kernel"
	"github.com/chanellr/yorha/internal/yorha"
)

func freshDisk() *blockdev.MemDevice {
	return blockdev.NewMem(64 * blockdev.BlockSize)
}

func TestSyscallSurfaceRoundTrip(t *testing.T) {
	kc, err := kernel.Boot(freshDisk())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	fd := kc.Create("/hello")
	if fd < 0 {
		t.Fatalf("Create() = %d, want >= 0", fd)
	}
	if n := kc.Write(fd, []byte("Hello\x00")); n != 6 {
		t.Fatalf("Write() = %d, want 6", n)
	}
	if rc := kc.Close(fd); rc != 0 {
		t.Fatalf("Close() = %d, want 0", rc)
	}

	fd2 := kc.Open("/hello")
	if fd2 < 0 {
		t.Fatalf("Open() = %d, want >= 0", fd2)
	}
	buf := make([]byte, 6)
	if n := kc.Read(fd2, buf); n != 6 {
		t.Fatalf("Read() = %d, want 6", n)
	}
	if string(buf) != "Hello\x00" {
		t.Fatalf("Read() = %q, want %q", buf, "Hello\x00")
	}
}

func TestFailureConvertsToNegativeOneAndPopulatesErrorChannel(t *testing.T) {
	kc, err := kernel.Boot(freshDisk())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	if rc := kc.Close(7); rc != -1 {
		t.Fatalf("Close() on unallocated fd = %d, want -1", rc)
	}
	if !strings.Contains(kc.LastError(), "error:") {
		t.Fatalf("LastError() = %q, want source-tagged message", kc.LastError())
	}
}

func TestMkdirAndListDir(t *testing.T) {
	kc, err := kernel.Boot(freshDisk())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	if rc := kc.Mkdir("/dir"); rc != 0 {
		t.Fatalf("Mkdir() = %d, want 0", rc)
	}
	fd := kc.Create("/dir/goodbye")
	if fd < 0 {
		t.Fatalf("Create() = %d, want >= 0", fd)
	}
	if n := kc.Write(fd, []byte("bye\x00")); n != 4 {
		t.Fatalf("Write() = %d, want 4", n)
	}

	buf := make([]byte, 256)
	kc.ListDir("/dir/", buf)
	if got := strings.TrimRight(string(buf), "\x00"); got != "/dir/goodbye\n" {
		t.Fatalf("ListDir() wrote %q, want %q", got, "/dir/goodbye\n")
	}

	if rc := kc.Unlink("/dir/goodbye"); rc != 0 {
		t.Fatalf("Unlink() = %d, want 0", rc)
	}
}

// TestTTYWriteReachesTerminal covers scenario 5 (spec.md §8): writing
// through /dev/tty lands in the terminal's scrollback and cell grid.
func TestTTYWriteReachesTerminal(t *testing.T) {
	kc, err := kernel.Boot(freshDisk())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	fd := kc.Open("/dev/tty")
	if fd < 0 {
		t.Fatalf("Open(/dev/tty) = %d, want >= 0", fd)
	}
	if n := kc.Write(fd, []byte("X")); n != 1 {
		t.Fatalf("Write() = %d, want 1", n)
	}

	last, ok := kc.Terminal().LastVisibleByte()
	if !ok || last != 'X' {
		t.Fatalf("LastVisibleByte() = %q, %v, want 'X', true", last, ok)
	}
	cells := kc.Terminal().Cells()
	if cells[0]&0xff != 'X' {
		t.Fatalf("cells[0] = %#x, want 'X'", cells[0])
	}
}

// TestTTYReadDrainsKeyboardRing exercises /dev/tty's read path, backed by
// PushKey standing in for the keyboard ISR.
func TestTTYReadDrainsKeyboardRing(t *testing.T) {
	kc, err := kernel.Boot(freshDisk())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	kc.PushKey('h')
	kc.PushKey('i')

	fd := kc.Open("/dev/tty")
	buf := make([]byte, 8)
	n := kc.Read(fd, buf)
	if n != 2 || string(buf[:n]) != "hi" {
		t.Fatalf("Read(/dev/tty) = %d, %q, want 2, %q", n, buf[:n], "hi")
	}
}

func TestSeekWhenceConstants(t *testing.T) {
	kc, err := kernel.Boot(freshDisk())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	fd := kc.Create("/f")
	kc.Write(fd, []byte("0123456789"))

	if pos := kc.Seek(fd, 0, yorha.SeekSet); pos != 0 {
		t.Fatalf("Seek(SET, 0) = %d, want 0", pos)
	}
	if pos := kc.Seek(fd, 2, yorha.SeekEnd); pos != 8 {
		t.Fatalf("Seek(END, 2) = %d, want 8", pos)
	}
}
