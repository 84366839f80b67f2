// Package kernel implements C10 (the error channel) and C11 (the syscall
// dispatcher): the thin layer that wires the filesystem (C7), the
// special-file registry (C6) and the terminal (C9) into the single
// process-wide context the original kernel keeps as globals (spec.md §9).
package kernel

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/chanellr/yorha/internal/blockdev"
	"github.com/chanellr/yorha/internal/ring"
	"github.com/chanellr/yorha/internal/terminal"
	"github.com/chanellr/yorha/internal/yorha"
)

// Context groups every piece of process-wide kernel state behind a single
// value passed by reference, per spec.md §9's design note: the mounted
// filesystem, the error channel, the terminal and the two interrupt-fed
// rings that back /dev/tty and /dev/ttyS.
type Context struct {
	fs   *yorha.FS
	errs errorChannel
	term *terminal.Terminal

	keyboardRing *ring.Buffer
	serialRing   *ring.Buffer
	serialOut    io.Writer

	log *slog.Logger
}

// Option configures Boot.
type Option func(*config)

type config struct {
	cursor      terminal.Cursor
	serialOut   io.Writer
	logger      *slog.Logger
	forceFormat bool
}

// WithCursor installs the hardware cursor sink the terminal drives on every
// visible mutation.
func WithCursor(c terminal.Cursor) Option {
	return func(cfg *config) { cfg.cursor = c }
}

// WithSerialOutput directs /dev/ttyS writes to w instead of discarding them.
func WithSerialOutput(w io.Writer) Option {
	return func(cfg *config) { cfg.serialOut = w }
}

// WithLogger overrides the default logger, slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// ForceFormat formats dev even if it already carries a recognized
// superblock.
func ForceFormat() Option {
	return func(cfg *config) { cfg.forceFormat = true }
}

// Boot brings up the kernel context against dev: mounts the filesystem,
// registers /dev/tty and /dev/ttyS backed by fresh interrupt rings and a
// terminal, exactly mirroring the original's open_system_files sequence
// (spec.md §4.6/§4.8).
func Boot(dev blockdev.Device, opts ...Option) (*Context, error) {
	cfg := config{serialOut: io.Discard, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	kc := &Context{
		keyboardRing: &ring.Buffer{},
		serialRing:   &ring.Buffer{},
		serialOut:    cfg.serialOut,
		term:         terminal.New(cfg.cursor),
		log:          cfg.logger,
	}

	tty := &yorha.SpecialFile{Name: "tty", Handler: kc.ttyHandler}
	ttyS := &yorha.SpecialFile{Name: "ttyS", Handler: kc.serialHandler}

	fsOpts := []yorha.MountOption{
		yorha.WithSpecialFiles(tty, ttyS),
		yorha.WithLogger(cfg.logger),
	}
	if cfg.forceFormat {
		fsOpts = append(fsOpts, yorha.ForceFormat())
	}

	fs, err := yorha.Mount(dev, fsOpts...)
	if err != nil {
		return nil, fmt.Errorf("kernel: booting: %w", err)
	}
	kc.fs = fs
	return kc, nil
}

// ttyHandler backs /dev/tty: reads drain the keyboard ring, writes render
// through the terminal (spec.md §4.8).
func (kc *Context) ttyHandler(isRead bool, fd int, buf []byte, count int) (int, error) {
	if isRead {
		return kc.keyboardRing.Drain(buf), nil
	}
	kc.term.Write(buf)
	return len(buf), nil
}

// serialHandler backs /dev/ttyS: reads drain the serial ring, writes go to
// the configured serial sink.
func (kc *Context) serialHandler(isRead bool, fd int, buf []byte, count int) (int, error) {
	if isRead {
		return kc.serialRing.Drain(buf), nil
	}
	n, err := kc.serialOut.Write(buf)
	return n, err
}

// Terminal exposes the terminal for host-side rendering (termio).
func (kc *Context) Terminal() *terminal.Terminal { return kc.term }

// PushKey feeds one byte into the keyboard ring, as the keyboard ISR would.
func (kc *Context) PushKey(c byte) (dropped bool) { return kc.keyboardRing.Push(c) }

// PushSerial feeds one byte into the serial ring, as the COM1 ISR would.
func (kc *Context) PushSerial(c byte) (dropped bool) { return kc.serialRing.Push(c) }

// LastError returns the most recent message pushed to the error channel.
func (kc *Context) LastError() string { return kc.errs.Last() }

func (kc *Context) pushErr(err error) {
	if err == nil {
		return
	}
	kc.errs.push(err)
	kc.log.Error("yorha: syscall failed", "error", err)
}
