// Package terminal implements C9: the VGA-style terminal emulator. It owns
// a byte scrollback ring, an 80x25 cell grid, and the render algorithm that
// keeps the grid in sync with the last TerminalHeight lines of scrollback.
//
// There is no physical VGA card under a hosted build, so the hardware
// cursor update that the original routes through the CRTC I/O ports is
// expressed here as a Cursor interface; termio implements it against a
// real terminal.
package terminal

// ScrollbackSize is the byte capacity of the scrollback ring.
const ScrollbackSize = 1024

// Grid geometry, matching the VGA text-mode cell buffer (spec.md §6).
const (
	Width          = 80
	Height         = 25
	TerminalHeight = 20 // visible scrollback lines kept on screen
)

// DefaultColor is the attribute byte applied to every emitted character;
// the original hard-codes light-grey-on-black.
const DefaultColor = 0x07

// Cursor receives hardware cursor repositioning, standing in for writes to
// the VGA CRTC index/data I/O ports.
type Cursor interface {
	SetCursor(row, col int)
}

type noopCursor struct{}

func (noopCursor) SetCursor(row, col int) {}

// Terminal is the kernel's single terminal instance: scrollback ring,
// cell grid and cursor position (spec.md §9 process-wide state).
type Terminal struct {
	scrollback [ScrollbackSize]byte
	index      uint32 // next write position
	baseIndex  uint32 // start of the currently rendered window

	cells [Width * Height]uint16
	row   int
	col   int

	cursor Cursor
}

// New returns an empty terminal. A nil cursor is replaced with a no-op.
func New(cursor Cursor) *Terminal {
	if cursor == nil {
		cursor = noopCursor{}
	}
	return &Terminal{cursor: cursor}
}

// WriteByte appends c to the scrollback ring and re-renders the visible
// window. It is the tty special file's write path (spec.md §4.8).
func (t *Terminal) WriteByte(c byte) {
	t.scrollback[t.index] = c
	t.index = (t.index + 1) % ScrollbackSize
	t.render()
}

// Write appends every byte of p in order, re-rendering after each one —
// matching the original's one-interrupt-one-byte granularity.
func (t *Terminal) Write(p []byte) {
	for _, c := range p {
		t.WriteByte(c)
	}
}

// render recomputes baseIndex by counting newlines across the scrollback
// window and re-emits the visible bytes into the cell grid, exactly
// following spec.md §4.8's algorithm: keep a ring of the last
// TerminalHeight newline positions; once that ring fills, the window
// starts right after its oldest entry.
func (t *Terminal) render() {
	var newlinePositions [TerminalHeight]uint32
	count := 0

	for i := t.baseIndex; i != t.index; i = (i + 1) % ScrollbackSize {
		if t.scrollback[i] == '\n' {
			newlinePositions[count%TerminalHeight] = i
			count++
		}
	}

	base := t.baseIndex
	if count >= TerminalHeight {
		oldest := newlinePositions[count%TerminalHeight]
		base = (oldest + 1) % ScrollbackSize
	}
	t.baseIndex = base

	t.cells = [Width * Height]uint16{}
	t.row, t.col = 0, 0
	for i := t.baseIndex; i != t.index; i = (i + 1) % ScrollbackSize {
		t.kputc(t.scrollback[i])
	}
}

// kputc emits a single character to the cell grid, handling newline,
// backspace and column/row wraparound (spec.md §4.8).
func (t *Terminal) kputc(c byte) {
	switch c {
	case '\n':
		t.col = 0
		t.advanceRow()
	case '\b':
		if t.col > 0 {
			t.col--
		}
		t.setCell(t.row, t.col, ' ')
	default:
		t.setCell(t.row, t.col, c)
		t.col++
		if t.col >= Width {
			t.col = 0
			t.advanceRow()
		}
	}
	t.cursor.SetCursor(t.row, t.col)
}

func (t *Terminal) advanceRow() {
	t.row++
	if t.row >= Height {
		t.row = 0
	}
}

func (t *Terminal) setCell(row, col int, c byte) {
	t.cells[row*Width+col] = uint16(c) | uint16(DefaultColor)<<8
}

// Cells returns a copy of the cell grid, row-major, Width*Height long. The
// copy does not change on later writes.
func (t *Terminal) Cells() [Width * Height]uint16 {
	return t.cells
}

// LastVisibleByte returns the most recently written scrollback byte — used
// by tests asserting the end-to-end "write X to /dev/tty" scenario.
func (t *Terminal) LastVisibleByte() (byte, bool) {
	if t.index == t.baseIndex && t.col == 0 && t.row == 0 {
		return 0, false
	}
	prev := (t.index - 1 + ScrollbackSize) % ScrollbackSize
	return t.scrollback[prev], true
}
