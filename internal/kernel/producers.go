package kernel

import (
	"bufio"
	"context"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// tickHz is the original timer ISR's rate (spec.md §5).
const tickHz = 100

var tickCount uint64

// Run starts the keyboard and serial producer "interrupts" plus the timer
// tick, orchestrated through an errgroup the way a real ISR set would be
// dispatched onto separate lines: each goroutine stands in for one of the
// three interrupt sources the original installs on lines 0/1/COM1
// (spec.md §5/§6). It blocks until ctx is cancelled, at which point all
// three stop and the first non-context error (if any) is returned.
func (kc *Context) Run(ctx context.Context, keyboard, serial io.Reader) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return kc.pumpRing(ctx, keyboard, kc.keyboardRing) })
	g.Go(func() error { return kc.pumpRing(ctx, serial, kc.serialRing) })
	g.Go(func() error { return kc.runTicker(ctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

type byteSink interface {
	Push(c byte) bool
}

func (kc *Context) pumpRing(ctx context.Context, r io.Reader, sink byteSink) error {
	if r == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	br := bufio.NewReader(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				<-ctx.Done()
				return ctx.Err()
			}
			return err
		}
		sink.Push(c)
	}
}

func (kc *Context) runTicker(ctx context.Context) error {
	t := time.NewTicker(time.Second / tickHz)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			atomic.AddUint64(&tickCount, 1)
		}
	}
}

// Ticks returns the number of timer ticks observed since process start.
func Ticks() uint64 { return atomic.LoadUint64(&tickCount) }
