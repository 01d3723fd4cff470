// Package app assembles the display, font, control-socket, and
// console-arbiter subsystems into one process-scoped context and runs
// the single-threaded event loop (spec.md §3 "Application context",
// §4.8). Grounded on cmd/texel-server/main.go's top-level wiring,
// scaled down to the spec's fixed 8-tab vector instead of a desktop
// engine's dynamic pane tree.
package app

import (
	"os"
	"sync"

	"github.com/OpalAayan/kitty-tty/internal/compositor"
	"github.com/OpalAayan/kitty-tty/internal/config"
	"github.com/OpalAayan/kitty-tty/internal/console"
	"github.com/OpalAayan/kitty-tty/internal/control"
	"github.com/OpalAayan/kitty-tty/internal/display"
	"github.com/OpalAayan/kitty-tty/internal/font"
	"github.com/OpalAayan/kitty-tty/internal/tab"
	"github.com/OpalAayan/kitty-tty/internal/vterm"
)

// App is the fixed-capacity tab vector plus every subsystem handle the
// event loop and the control commands need (spec.md §3 "Application
// context").
type App struct {
	cfg config.Config
	log *config.Logger

	surface    *display.Surface
	face       *font.Face
	compositor *compositor.Compositor
	control    *control.Server
	console    *console.Console

	tty *os.File

	Tabs       [8]*tab.Tab
	NumTabs    int
	ActiveTab  int

	cw, ch, asc int
	command     string

	shutdownOnce sync.Once
}

// New opens the display and font, starts the control socket and
// console arbiter, and spawns the first tab (spec.md §4.8's implicit
// "one tab at startup", §3 "tabs are created... by one at startup").
func New(log *config.Logger) (*App, error) {
	cfg := config.Get()

	surface, err := display.Open()
	if err != nil {
		return nil, err
	}
	face, err := font.Load(cfg.FontPaths, cfg.FontPixelSize)
	if err != nil {
		surface.Close()
		return nil, err
	}
	metrics, err := face.Metrics()
	if err != nil {
		surface.Close()
		return nil, err
	}

	command := os.Getenv("SHELL")
	if command == "" {
		command = "/bin/bash"
	}

	a := &App{
		cfg:        cfg,
		log:        log,
		surface:    surface,
		face:       face,
		compositor: compositor.New(surface, face, metrics.CW, metrics.CH, metrics.Asc),
		cw:         metrics.CW,
		ch:         metrics.CH,
		asc:        metrics.Asc,
		command:    command,
	}

	ctl, err := control.Listen(log)
	if err != nil {
		surface.Close()
		return nil, err
	}
	a.control = ctl

	con, err := console.Open(surface, log)
	if err != nil {
		ctl.Close()
		surface.Close()
		return nil, err
	}
	a.console = con

	tty, err := os.Open("/dev/tty")
	if err != nil {
		con.Close()
		ctl.Close()
		surface.Close()
		return nil, err
	}
	a.tty = tty

	if err := a.spawnTab(); err != nil {
		tty.Close()
		con.Close()
		ctl.Close()
		surface.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) spawnTab() error {
	t, err := tab.New(a.command, a.surface.Width, a.surface.Height, a.cw, a.ch, vterm.DefaultFG, vterm.DefaultBG)
	if err != nil {
		return err
	}
	a.Tabs[a.NumTabs] = t
	a.ActiveTab = a.NumTabs
	a.NumTabs++
	return nil
}

// NewTab creates a fresh tab and makes it active if under the cap
// (spec.md §4.7 "New-tab"); otherwise logs and does nothing.
func (a *App) NewTab() {
	if a.NumTabs >= a.cfg.MaxTabs {
		a.log.Warn("app: new-tab rejected, already at %d tabs", a.cfg.MaxTabs)
		return
	}
	if err := a.spawnTab(); err != nil {
		a.log.Warn("app: new-tab failed: %v", err)
	}
}

// Next / Prev cyclically shift the active tab index modulo NumTabs
// (spec.md §4.7).
func (a *App) Next() { a.shiftActive(1) }
func (a *App) Prev() { a.shiftActive(-1) }

func (a *App) shiftActive(delta int) {
	if a.NumTabs == 0 {
		return
	}
	a.ActiveTab = ((a.ActiveTab+delta)%a.NumTabs + a.NumTabs) % a.NumTabs
}

// SplitActive splits the active tab's sole pane vertically (spec.md
// §4.7 "split-vertical on the active tab").
func (a *App) SplitActive() {
	t := a.activeTab()
	if t == nil {
		return
	}
	if err := t.SplitVertical(); err != nil {
		a.log.Warn("app: split rejected: %v", err)
	}
}

// FocusLeft / FocusRight delegate to the active tab (spec.md §4.7).
func (a *App) FocusLeft()  { a.withActive(func(t *tab.Tab) { t.FocusLeft() }) }
func (a *App) FocusRight() { a.withActive(func(t *tab.Tab) { t.FocusRight() }) }

func (a *App) withActive(f func(*tab.Tab)) {
	if t := a.activeTab(); t != nil {
		f(t)
	}
}

func (a *App) activeTab() *tab.Tab {
	if a.ActiveTab < 0 || a.ActiveTab >= a.NumTabs {
		return nil
	}
	return a.Tabs[a.ActiveTab]
}

// pickNextActiveTab makes the first remaining active tab the active
// one, reporting false when none are left (spec.md §4.8: "pick the
// first remaining active tab as active; if no tabs remain active,
// request shutdown").
func (a *App) pickNextActiveTab() bool {
	for i := 0; i < a.NumTabs; i++ {
		if a.Tabs[i] != nil && a.Tabs[i].Active {
			a.ActiveTab = i
			return true
		}
	}
	return false
}

// close tears down every subsystem in reverse dependency order: the
// controlling-terminal handle, the console arbiter (VT mode, then
// termios), the control socket, every tab's panes, then the display.
// The font face holds nothing to release. close itself must run only
// once (a second control.Server.Close panics); Shutdown in loop.go
// wraps it in a sync.Once.
func (a *App) close() error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if a.tty != nil {
		record(a.tty.Close())
	}
	record(a.console.Close())
	record(a.control.Close())
	for i := 0; i < a.NumTabs; i++ {
		if a.Tabs[i] != nil {
			a.Tabs[i].Close()
		}
	}
	record(a.surface.Close())
	return first
}

var _ control.Engine = (*App)(nil)
