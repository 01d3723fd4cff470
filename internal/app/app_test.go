package app

import (
	"io"
	"testing"

	"github.com/OpalAayan/kitty-tty/internal/config"
	"github.com/OpalAayan/kitty-tty/internal/display"
)

// newTestApp builds an App with a fake display.Surface (exported
// fields only, no real DRM device) and a real /bin/cat-backed tab, so
// command-dispatch logic can be exercised without hardware (spec.md §8
// "hardware seam"). Callers must close every spawned tab themselves;
// App.close() is not safe to call here since the fake surface has no
// backing device to unwind.
func newTestApp(t *testing.T) *App {
	a := &App{
		cfg:     config.Get(),
		log:     config.NewLogger(io.Discard),
		surface: &display.Surface{Width: 640, Height: 320},
		cw:      8,
		ch:      16,
		asc:     12,
		command: "/bin/cat",
	}
	if err := a.spawnTab(); err != nil {
		t.Fatalf("initial spawnTab: %v", err)
	}
	t.Cleanup(func() {
		for i := 0; i < a.NumTabs; i++ {
			if a.Tabs[i] != nil {
				a.Tabs[i].Close()
			}
		}
	})
	return a
}

func TestNewTabRespectsMaxTabsCap(t *testing.T) {
	a := newTestApp(t)
	for i := a.NumTabs; i < a.cfg.MaxTabs; i++ {
		a.NewTab()
	}
	if a.NumTabs != a.cfg.MaxTabs {
		t.Fatalf("NumTabs = %d, want %d", a.NumTabs, a.cfg.MaxTabs)
	}

	a.NewTab() // should be rejected and logged, not panic
	if a.NumTabs != a.cfg.MaxTabs {
		t.Fatalf("NewTab grew past the cap: NumTabs = %d", a.NumTabs)
	}
}

func TestNewTabMakesItActive(t *testing.T) {
	a := newTestApp(t)
	a.NewTab()
	if a.ActiveTab != a.NumTabs-1 {
		t.Fatalf("ActiveTab = %d, want %d (newest tab)", a.ActiveTab, a.NumTabs-1)
	}
}

func TestNextPrevCycleModuloNumTabs(t *testing.T) {
	a := newTestApp(t)
	a.NewTab()
	a.NewTab()
	if a.NumTabs != 3 {
		t.Fatalf("NumTabs = %d, want 3", a.NumTabs)
	}

	a.ActiveTab = 0
	a.Next()
	a.Next()
	a.Next()
	if a.ActiveTab != 0 {
		t.Fatalf("Next x3 on 3 tabs should wrap to 0, got %d", a.ActiveTab)
	}

	a.Prev()
	if a.ActiveTab != 2 {
		t.Fatalf("Prev from 0 should wrap to 2, got %d", a.ActiveTab)
	}
}

func TestSplitActiveAndFocus(t *testing.T) {
	a := newTestApp(t)
	a.SplitActive()

	tb := a.activeTab()
	if tb.NumPanes != 2 {
		t.Fatalf("expected the active tab to have 2 panes after split, got %d", tb.NumPanes)
	}

	a.FocusLeft()
	if tb.ActivePane != 0 {
		t.Fatalf("FocusLeft: ActivePane = %d, want 0", tb.ActivePane)
	}
	a.FocusRight()
	if tb.ActivePane != 1 {
		t.Fatalf("FocusRight: ActivePane = %d, want 1", tb.ActivePane)
	}
}

func TestPickNextActiveTabSkipsInactiveAndReportsNoneLeft(t *testing.T) {
	a := newTestApp(t)
	a.NewTab()
	a.NewTab()

	a.Tabs[0].Active = false
	a.Tabs[1].Active = false
	if !a.pickNextActiveTab() {
		t.Fatalf("expected to find tab 2 still active")
	}
	if a.ActiveTab != 2 {
		t.Fatalf("ActiveTab = %d, want 2", a.ActiveTab)
	}

	a.Tabs[2].Active = false
	if a.pickNextActiveTab() {
		t.Fatalf("expected no active tabs left")
	}
}

func TestSplitActiveNoopWhenNoTabs(t *testing.T) {
	a := &App{cfg: config.Get(), log: config.NewLogger(io.Discard)}
	a.SplitActive() // must not panic with NumTabs == 0
	a.FocusLeft()
	a.FocusRight()
}
