// Package termio hosts the terminal (C9) against a real OS terminal: raw
// keyboard mode via golang.org/x/sys/unix ioctls standing in for the
// original's keyboard ISR, and an ANSI renderer standing in for the VGA
// CRTC cursor ports and cell buffer.
package termio

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/chanellr/yorha/internal/terminal"
)

// RawMode puts a terminal file descriptor into character-at-a-time, no-echo
// mode and remembers how to restore it.
type RawMode struct {
	fd   int
	orig unix.Termios
}

// EnableRawMode switches fd into raw mode, the host equivalent of the
// keyboard controller delivering one scancode per interrupt rather than a
// line-buffered read.
func EnableRawMode(fd int) (*RawMode, error) {
	orig, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("termio: reading termios: %w", err)
	}

	raw := *orig
	raw.Iflag &^= unix.ICRNL | unix.IXON
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return nil, fmt.Errorf("termio: setting raw mode: %w", err)
	}
	return &RawMode{fd: fd, orig: *orig}, nil
}

// Restore puts the terminal back into its original mode.
func (r *RawMode) Restore() error {
	return unix.IoctlSetTermios(r.fd, ioctlSetTermios, &r.orig)
}

// Cursor drives the host terminal's cursor through ANSI escapes, the
// analogue of writes to the VGA CRTC index/data I/O ports.
type Cursor struct {
	out io.Writer
}

// NewCursor wraps out (typically os.Stdout) as a terminal.Cursor.
func NewCursor(out io.Writer) *Cursor {
	return &Cursor{out: out}
}

func (c *Cursor) SetCursor(row, col int) {
	fmt.Fprintf(c.out, "\x1b[%d;%dH", row+1, col+1)
}

// ansiColor maps the low nibble of the VGA attribute byte onto the
// matching ANSI foreground SGR code.
var ansiColor = [16]int{
	30, 34, 32, 36, 31, 35, 33, 37,
	90, 94, 92, 96, 91, 95, 93, 97,
}

// Render draws term's full cell grid to out: clear screen, home cursor,
// then every cell with its foreground color, row by row.
func Render(out io.Writer, term *terminal.Terminal) error {
	if _, err := io.WriteString(out, "\x1b[2J\x1b[H"); err != nil {
		return err
	}
	cells := term.Cells()
	for row := 0; row < terminal.Height; row++ {
		lastColor := -1
		for col := 0; col < terminal.Width; col++ {
			cell := cells[row*terminal.Width+col]
			ch := byte(cell & 0xff)
			color := int((cell >> 8) & 0x0f)
			if ch == 0 {
				ch = ' '
			}
			if color != lastColor {
				fmt.Fprintf(out, "\x1b[%dm", ansiColor[color])
				lastColor = color
			}
			if _, err := out.Write([]byte{ch}); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(out, "\r\n"); err != nil {
			return err
		}
	}
	return nil
}
