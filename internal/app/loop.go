package app

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/OpalAayan/kitty-tty/internal/control"
	"github.com/OpalAayan/kitty-tty/internal/pane"
)

// pollTimeoutMs bounds how long one poll() wait blocks, so the loop
// also gets a chance to drain the control-socket command channel and
// observe the shutdown flag even when every fd is idle (grounded on
// other_examples/srgg-blecli__ptyio.go's poll-timeout tuning notes).
const pollTimeoutMs = 50

// Run is the single-threaded multiplexer of spec.md §4.8: one blocking
// wait on every live pane master, the controlling terminal's input,
// and (via a channel fed by a dedicated accept goroutine) the control
// socket, rendering at most once per wake.
func (a *App) Run() {
	shutdown := installShutdownSignals()

	for {
		if shutdown.Load() {
			break
		}

		dirty, wantShutdown := a.pollOnce()
		if wantShutdown {
			break
		}
		if !dirty {
			continue
		}
		if !a.console.Active() {
			// spec.md §4.6: skip rendering while the display is
			// inactive even though state changed.
			continue
		}
		t := a.activeTab()
		if t == nil {
			break
		}
		a.compositor.Render(t, a.ActiveTab, a.NumTabs)
		a.surface.Commit()
	}

	a.Shutdown()
}

// pollOnce performs one wait-dispatch cycle. It reports whether any
// state changed that would make a render worthwhile, and whether the
// active tab died with no remaining active tab to fall back to
// (spec.md §4.8 "if no tabs remain active, request shutdown").
func (a *App) pollOnce() (dirty, wantShutdown bool) {
	fds, masters := a.buildPollSet()
	n, err := unix.Poll(fds, pollTimeoutMs)
	if err != nil && err != unix.EINTR {
		a.log.Warn("app: poll failed: %v", err)
	}

	if n > 0 {
		for i, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			if i == 0 {
				dirty = a.drainStdin() || dirty
				continue
			}
			if _, eof := masters[i-1].Drain(); eof {
				masters[i-1].MarkDead()
			}
			dirty = true
		}
	}

	select {
	case cmd := <-a.control.Commands():
		control.Dispatch(a, cmd)
		dirty = true
	default:
	}

	for i := 0; i < a.NumTabs; i++ {
		t := a.Tabs[i]
		if t == nil || !t.Active {
			continue
		}
		if !t.ReapDead() {
			continue
		}
		dirty = true
		if i != a.ActiveTab {
			continue
		}
		if !a.pickNextActiveTab() {
			wantShutdown = true
		}
	}

	return dirty, wantShutdown
}

// buildPollSet puts the controlling terminal's input at index 0,
// followed by one entry per live pane master of every tab, so
// background tabs' grids keep advancing even off-screen.
func (a *App) buildPollSet() ([]unix.PollFd, []*pane.Pane) {
	fds := []unix.PollFd{{Fd: int32(a.tty.Fd()), Events: unix.POLLIN}}
	var masters []*pane.Pane

	for i := 0; i < a.NumTabs; i++ {
		t := a.Tabs[i]
		if t == nil {
			continue
		}
		for j := 0; j < t.NumPanes; j++ {
			p := t.Panes[j]
			if p == nil || !p.Alive() {
				continue
			}
			fds = append(fds, unix.PollFd{Fd: int32(p.FD()), Events: unix.POLLIN})
			masters = append(masters, p)
		}
	}
	return fds, masters
}

// drainStdin forwards raw bytes from the controlling terminal verbatim
// to the active pane of the active tab (spec.md §4.8).
func (a *App) drainStdin() bool {
	buf := make([]byte, 4096)
	n, err := a.tty.Read(buf)
	if n == 0 {
		if err != nil {
			a.log.Warn("app: controlling terminal read error: %v", err)
		}
		return false
	}
	t := a.activeTab()
	if t == nil {
		return false
	}
	p := t.ActivePaneRef()
	if p == nil {
		return false
	}
	if err := p.Feed(buf[:n]); err != nil {
		a.log.Warn("app: forwarding input to active pane failed: %v", err)
	}
	return true
}

// installShutdownSignals relays SIGINT/SIGTERM into an atomic flag the
// loop checks at the top of every iteration (spec.md §4.8
// "Cancellation"), mirroring original_source/kitty_tty.c's
// signal_handler except expressed as a dedicated relay goroutine
// instead of an in-signal-handler side effect, since Go signal
// delivery is already asynchronous relative to the main goroutine.
func installShutdownSignals() *atomic.Bool {
	var flag atomic.Bool
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		flag.Store(true)
	}()
	return &flag
}

// Shutdown tears down every subsystem exactly once, whether it is
// reached from Run's normal exit or from a deferred call in
// cmd/fbterm/main.go on an abnormal path (spec.md §4.8 "Teardown is
// idempotent").
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		if err := a.close(); err != nil {
			a.log.Warn("app: teardown error: %v", err)
		}
	})
}
