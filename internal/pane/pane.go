// Package pane wraps one pseudo-terminal master, one child process, and
// one vterm.VTerm instance sized to a column/row grid (spec.md §3
// "Pane session", §4.3). Grounded on tui/pty_app.go and
// apps/texelterm/term.go's creack/pty usage.
package pane

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/OpalAayan/kitty-tty/internal/config"
	"github.com/OpalAayan/kitty-tty/internal/vterm"
)

// ErrSpawnFailed wraps pty/fork failures (spec.md §7 "Pane-fatal").
var ErrSpawnFailed = errors.New("pane: spawn failed")

// Pane is one terminal session: child process + pty master + vterm.
type Pane struct {
	mu sync.Mutex

	master *os.File
	cmd    *exec.Cmd

	Term *vterm.VTerm

	Cols, Rows     int
	StartColPx     int

	alive  bool
	closed bool
}

// Spawn opens a pty, starts command with TERM/window-size set, and
// wraps it with a VTerm of the given size (spec.md §4.3).
func Spawn(command string, cols, rows int, startColPx int, fg, bg vterm.Color) (*Pane, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrSpawnFailed, cols, rows)
	}

	cmd := exec.Command(command)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLUMNS="+strconv.Itoa(cols),
		"LINES="+strconv.Itoa(rows),
	)

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	if err := setNonblocking(master); err != nil {
		master.Close()
		cmd.Process.Kill()
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	p := &Pane{
		master:     master,
		cmd:        cmd,
		Term:       vterm.New(cols, rows, fg, bg),
		Cols:       cols,
		Rows:       rows,
		StartColPx: startColPx,
		alive:      true,
	}
	return p, nil
}

// setNonblocking places the master descriptor in non-blocking mode
// (spec.md §3 "non-blocking, close-on-exec").
func setNonblocking(f *os.File) error {
	return syscall.SetNonblock(int(f.Fd()), true)
}

// FD returns the master descriptor, used by the event loop's poll set.
func (p *Pane) FD() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.master == nil {
		return -1
	}
	return int(p.master.Fd())
}

// Alive reports whether the child/master are still considered live.
func (p *Pane) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

// Drain performs one non-blocking read into a 4 KiB buffer and feeds
// whatever bytes were read to the VTerm (spec.md §4.8). It returns
// (n, eof) — eof is true on EOF/EIO, signalling the child exited.
func (p *Pane) Drain() (int, bool) {
	p.mu.Lock()
	master := p.master
	p.mu.Unlock()
	if master == nil {
		return 0, true
	}

	buf := make([]byte, 4096)
	n, err := master.Read(buf)
	if n > 0 {
		p.Term.Write(buf[:n])
	}
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			return n, false
		}
		return n, true
	}
	return n, false
}

// WriteFull implements the bounded full-write-with-retry protocol
// spec.md §4.3 "Write protocol" mandates: loop until all bytes are
// written, retry on EINTR, and on EAGAIN wait up to ~100ms for
// writability before resuming, bounding consecutive blocking retries.
// It is shared with the control-client path per spec.md §9's open
// question on the unchecked client write.
func WriteFull(f *os.File, data []byte) error {
	retries := 0
	for len(data) > 0 {
		n, err := f.Write(data)
		if n > 0 {
			data = data[n:]
			retries = 0
		}
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			retries++
			if retries > config.Get().WriteRetryMax {
				return fmt.Errorf("pane: write surrendered after %d retries", retries)
			}
			waitWritable(f, config.Get().WriteRetryTimeout)
			continue
		}
		return err
	}
	return nil
}

// Feed writes keystroke bytes to the child (spec.md §4.3 "accepts
// keystroke bytes to push to the child").
func (p *Pane) Feed(data []byte) error {
	p.mu.Lock()
	master := p.master
	p.mu.Unlock()
	if master == nil {
		return errors.New("pane: closed")
	}
	return WriteFull(master, data)
}

// Resize updates the VTerm size and propagates the cell window size
// (rows, columns) to the kernel. The pixel fields of the window size
// are not set; they stay zero.
func (p *Pane) Resize(cols, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cols == p.Cols && rows == p.Rows {
		return
	}
	p.Cols, p.Rows = cols, rows
	p.Term.Resize(cols, rows)
	if p.master != nil {
		pty.Setsize(p.master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	}
}

// MarkDead transitions the pane to dead state without touching the
// descriptor (caller has already observed EOF/EIO and will Close()).
func (p *Pane) MarkDead() {
	p.mu.Lock()
	p.alive = false
	p.mu.Unlock()
}

// Close shuts down the master and reaps the child (spec.md §4.3
// "close"). Idempotent per SPEC_FULL.md §4.3.
func (p *Pane) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.alive = false

	if p.master != nil {
		p.master.Close()
		p.master = nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Signal(syscall.SIGTERM)
		go func(cmd *exec.Cmd) {
			done := make(chan struct{})
			go func() {
				cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				cmd.Process.Kill()
				<-done
			}
		}(p.cmd)
	}
	return nil
}
