package terminal_test

import (
	"testing"

	"github.com/chanellr/yorha/internal/terminal"
)

type fakeCursor struct {
	row, col int
	calls    int
}

func (f *fakeCursor) SetCursor(row, col int) {
	f.row, f.col = row, col
	f.calls++
}

// Scenario 5 (spec.md §8): writing a byte to the tty path lands at row 0,
// col 0 of the cell grid and is the scrollback's last visible byte.
func TestWriteByteUpdatesGridAndScrollback(t *testing.T) {
	cursor := &fakeCursor{}
	term := terminal.New(cursor)

	term.WriteByte('X')

	cells := term.Cells()
	if got := cells[0]; got != uint16('X')|uint16(terminal.DefaultColor)<<8 {
		t.Fatalf("cells[0] = %#x, want 'X' with default color", got)
	}
	last, ok := term.LastVisibleByte()
	if !ok || last != 'X' {
		t.Fatalf("LastVisibleByte() = %q, %v, want 'X', true", last, ok)
	}
	if cursor.calls == 0 {
		t.Fatal("cursor was never updated")
	}
}

func TestNewlineAdvancesRow(t *testing.T) {
	term := terminal.New(nil)
	term.Write([]byte("ab\ncd"))

	cells := term.Cells()
	if cells[0] != uint16('a')|uint16(terminal.DefaultColor)<<8 {
		t.Fatalf("cells[0] = %#x, want 'a'", cells[0])
	}
	if cells[terminal.Width] != uint16('c')|uint16(terminal.DefaultColor)<<8 {
		t.Fatalf("cells[Width] = %#x, want 'c' on row 1", cells[terminal.Width])
	}
}

func TestBackspaceErasesCell(t *testing.T) {
	term := terminal.New(nil)
	term.Write([]byte("ab\b"))

	cells := term.Cells()
	if cells[1] != uint16(' ')|uint16(terminal.DefaultColor)<<8 {
		t.Fatalf("cells[1] = %#x, want space after backspace", cells[1])
	}
}

// The render window advances once TerminalHeight newlines are in it, so
// after more lines than that nothing is drawn at or below row
// TerminalHeight.
func TestRenderWindowAdvancesPastCapacity(t *testing.T) {
	term := terminal.New(nil)
	for i := 0; i < terminal.TerminalHeight+5; i++ {
		term.Write([]byte("line\n"))
	}

	cells := term.Cells()
	found := false
	for _, c := range cells {
		if c&0xff == 'l' {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected at least one rendered line after scrolling past capacity")
	}
	for row := terminal.TerminalHeight; row < terminal.Height; row++ {
		for col := 0; col < terminal.Width; col++ {
			if c := cells[row*terminal.Width+col]; c != 0 {
				t.Fatalf("cell (%d,%d) = %#x, want empty once the window has advanced", row, col, c)
			}
		}
	}
}
