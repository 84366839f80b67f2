package kernel

import (
	"io"
	"time"

	"github.com/chanellr/yorha/internal/kerrors"
)

// sgetTimeout is the inactivity deadline sget enforces (spec.md §5/§8
// scenario 6): any received byte resets it; if it elapses with nothing
// received, the call fails with IoTimeout. A var, not a const, so tests
// can shrink it rather than waiting out the real 5 seconds.
var sgetTimeout = 5 * time.Second

// Sget drains the serial ring into w until EOT (0x04) is received or
// sgetTimeout elapses with no byte received, mirroring the shell's
// "serial receive to file" command.
func (kc *Context) Sget(w io.Writer) error {
	deadline := time.NewTimer(sgetTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-deadline.C:
			return kerrors.New(kerrors.IoTimeout, "sget: no data received within timeout")
		case <-poll.C:
			c, ok := kc.serialRing.Pop()
			if !ok {
				continue
			}
			if !deadline.Stop() {
				<-deadline.C
			}
			deadline.Reset(sgetTimeout)
			if c == 0x04 {
				return nil
			}
			if _, err := w.Write([]byte{c}); err != nil {
				return err
			}
		}
	}
}
