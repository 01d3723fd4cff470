// Package console arbitrates ownership of the virtual console between
// this process and whatever the kernel switches to in its place
// (spec.md §4.6, "Console arbitration"). It installs raw termios on
// /dev/tty via golang.org/x/term (the same library texel/desktop.go
// uses around its own tty) and a VT_PROCESS mode pair so that
// Ctrl+Alt+Fn switches notify this process by signal instead of
// yanking the scan-out buffer out from under it. The VT_PROCESS
// ioctl sequence itself is grounded on original_source/kitty_tty.c's
// vt_setup/vt_cleanup and its signal_handler/vt_release_handler/
// vt_acquire_handler trio, which golang.org/x/term has no equivalent
// for.
package console

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/OpalAayan/kitty-tty/internal/config"
)

// Master is the scan-out mastership seam the arbiter toggles on
// release/acquire. internal/display.Surface satisfies it directly;
// any other type with these two methods can stand in for it.
type Master interface {
	DropMaster() error
	BecomeMaster() error
}

// Console owns /dev/tty, the termios and VT mode saved at Open, and
// the two signal-relay goroutines installed for SIGUSR1/SIGUSR2. Only
// Active is safe to read concurrently with the relay goroutines; every
// other method is meant to be called from the single event-loop
// thread.
type Console struct {
	tty    *os.File
	log    *config.Logger
	master Master

	savedTermios *term.State
	savedMode    vtMode

	active atomic.Bool

	stop     chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// Open opens /dev/tty, installs raw termios, saves and replaces the
// current VT mode with VT_PROCESS, and starts the release/acquire
// signal relays (spec.md §4.6 "Setup"). The caller owns master's
// lifetime; Open never calls DropMaster/BecomeMaster itself, only the
// relay goroutines do, in response to a real console switch.
func Open(master Master, log *config.Logger) (*Console, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("console: open /dev/tty: %w", err)
	}
	fd := int(tty.Fd())

	saved, err := term.MakeRaw(fd)
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("console: MakeRaw: %w", err)
	}
	// term.MakeRaw leaves VMIN=1 (block for one byte); spec.md §4.6
	// wants VMIN=0 VTIME=0 so stdin reads never block past what
	// poll() already reported ready.
	if t, err := unix.IoctlGetTermios(fd, unix.TCGETS); err == nil {
		t.Cc[unix.VMIN] = 0
		t.Cc[unix.VTIME] = 0
		unix.IoctlSetTermios(fd, unix.TCSETS, t)
	}

	savedMode, err := getVTMode(fd)
	if err != nil {
		term.Restore(fd, saved)
		tty.Close()
		return nil, fmt.Errorf("console: VT_GETMODE: %w", err)
	}

	procMode := vtMode{Mode: vtProcess, Relsig: int16(syscall.SIGUSR1), Acqsig: int16(syscall.SIGUSR2)}
	if err := setVTMode(fd, procMode); err != nil {
		term.Restore(fd, saved)
		tty.Close()
		return nil, fmt.Errorf("console: VT_SETMODE: %w", err)
	}

	c := &Console{
		tty:          tty,
		log:          log,
		master:       master,
		savedTermios: saved,
		savedMode:    savedMode,
		stop:         make(chan struct{}),
	}
	c.active.Store(true)
	c.startRelays()
	log.Info("console: raw mode and VT_PROCESS installed on %s", tty.Name())
	return c, nil
}

// Active reports whether this process currently owns the display.
// The event loop skips Render and Commit while this is false; pane
// I/O and control commands are still processed.
func (c *Console) Active() bool { return c.active.Load() }

// startRelays installs one signal.Notify relay per direction. Each
// relay's body is restricted to exactly what spec.md §5 allows a
// console-switch handler to do: flip the atomic flag, toggle scan-out
// mastership, and acknowledge the switch with one ioctl. Logging and
// anything else happens back in the event loop, which observes Active
// changing on its next poll iteration.
func (c *Console) startRelays() {
	fd := int(c.tty.Fd())

	rel := make(chan os.Signal, 1)
	signal.Notify(rel, syscall.SIGUSR1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-rel:
				c.active.Store(false)
				c.master.DropMaster()
				ackRelease(fd)
			case <-c.stop:
				signal.Stop(rel)
				return
			}
		}
	}()

	acq := make(chan os.Signal, 1)
	signal.Notify(acq, syscall.SIGUSR2)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-acq:
				c.master.BecomeMaster()
				ackAcquire(fd)
				c.active.Store(true)
			case <-c.stop:
				signal.Stop(acq)
				return
			}
		}
	}()
}

// Close stops the relays and reinstalls the saved VT mode and termios
// (spec.md §4.6 "Teardown"). Idempotent: a second call is a no-op.
func (c *Console) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.stop)
	c.wg.Wait()

	fd := int(c.tty.Fd())
	var first error
	if err := setVTMode(fd, c.savedMode); err != nil && first == nil {
		first = fmt.Errorf("console: restore VT_SETMODE: %w", err)
	}
	if err := term.Restore(fd, c.savedTermios); err != nil && first == nil {
		first = fmt.Errorf("console: restore termios: %w", err)
	}
	if err := c.tty.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
