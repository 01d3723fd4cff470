// Package tab holds up to two panes laid out horizontally (spec.md §3
// "Tab session", §4.4). Grounded on texel/tree.go's pane-tree
// splitting logic, simplified to the spec's MaxPanes=2, always-50/50
// vertical split.
package tab

import (
	"errors"
	"fmt"

	"github.com/OpalAayan/kitty-tty/internal/pane"
	"github.com/OpalAayan/kitty-tty/internal/vterm"
)

// MaxPanes is fixed at 2 per spec.md §9 (horizontal splits and >2
// panes are out of scope until the repository declares them in-scope).
const MaxPanes = 2

var (
	ErrSplitRejected  = errors.New("tab: split rejected")
	ErrSizeRejected   = errors.New("tab: size rejected")
)

// Tab is one horizontal layout of one or two panes.
type Tab struct {
	Panes      [MaxPanes]*pane.Pane
	NumPanes   int
	ActivePane int
	TermRows   int
	Active     bool

	widthPx, heightPx int
	cw, ch            int
	command           string
	fg, bg            vterm.Color
}

// New creates a single-pane tab covering the full width (spec.md §4.4
// "Single-pane creation").
func New(command string, widthPx, heightPx, cw, ch int, fg, bg vterm.Color) (*Tab, error) {
	totalCols := widthPx / cw
	rows := heightPx/ch - 1
	if totalCols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: %dx%d px with cell %dx%d yields %dx%d cells",
			ErrSizeRejected, widthPx, heightPx, cw, ch, totalCols, rows)
	}

	p, err := pane.Spawn(command, totalCols, rows, 0, fg, bg)
	if err != nil {
		return nil, err
	}

	t := &Tab{
		TermRows: rows,
		Active:   true,
		widthPx:  widthPx,
		heightPx: heightPx,
		cw:       cw,
		ch:       ch,
		command:  command,
		fg:       fg,
		bg:       bg,
	}
	t.Panes[0] = p
	t.NumPanes = 1
	t.ActivePane = 0
	return t, nil
}

// SplitVertical splits the sole pane 50/50, spawning a new pane for
// the right half (spec.md §4.4 "Vertical split"). Permitted only when
// NumPanes == 1; rejects if either side would have fewer than 2
// columns. On failure to spawn the second pane the first pane's
// column count is restored atomically (spec.md §4.4).
func (t *Tab) SplitVertical() error {
	if t.NumPanes != 1 {
		return fmt.Errorf("%w: tab already has %d panes", ErrSplitRejected, t.NumPanes)
	}
	left := t.Panes[0]
	oldCols := left.Cols

	leftCols := oldCols / 2
	rightCols := oldCols - leftCols
	if leftCols < 2 || rightCols < 2 {
		return fmt.Errorf("%w: %d columns cannot split into two >=2 column panes", ErrSplitRejected, oldCols)
	}

	left.Resize(leftCols, t.TermRows)

	right, err := pane.Spawn(t.command, rightCols, t.TermRows, leftCols*t.cw, t.fg, t.bg)
	if err != nil {
		// Restore the left pane's column count atomically on failure.
		left.Resize(oldCols, t.TermRows)
		return err
	}

	t.Panes[1] = right
	t.NumPanes = 2
	t.ActivePane = 1
	return nil
}

// FocusLeft switches the active pane to index 0, only meaningful when
// the tab has two panes (spec.md §4.4 "Focus").
func (t *Tab) FocusLeft() {
	if t.NumPanes == 2 {
		t.ActivePane = 0
	}
}

// FocusRight switches the active pane to index 1.
func (t *Tab) FocusRight() {
	if t.NumPanes == 2 {
		t.ActivePane = 1
	}
}

// Active pane accessor.
func (t *Tab) ActivePaneRef() *pane.Pane {
	if t.ActivePane < 0 || t.ActivePane >= t.NumPanes {
		return nil
	}
	return t.Panes[t.ActivePane]
}

// ReapDead scans panes for dead children, closing and nulling them.
// When a split loses one side, NumPanes collapses to 1 so the
// compositor's single-pane path runs instead of its two-pane path.
// Per spec.md §9's open question, the surviving pane's column count
// is *not* restored to full width — the tab continues as a single
// pane of half the screen. This mirrors the original engine's
// documented (possibly-buggy) behaviour rather than auto-healing it.
func (t *Tab) ReapDead() (becameInactive bool) {
	liveCount := 0
	for i := 0; i < t.NumPanes; i++ {
		p := t.Panes[i]
		if p == nil {
			continue
		}
		if p.Alive() {
			liveCount++
			continue
		}
		p.Close()
		t.Panes[i] = nil
	}
	if liveCount == 0 {
		t.Active = false
		return true
	}
	if liveCount == 1 && t.NumPanes == 2 {
		if t.Panes[0] == nil {
			t.Panes[0] = t.Panes[1]
			t.Panes[1] = nil
		}
		t.NumPanes = 1
		t.ActivePane = 0
		return false
	}
	if t.ActivePane >= t.NumPanes || t.Panes[t.ActivePane] == nil {
		for i := 0; i < t.NumPanes; i++ {
			if t.Panes[i] != nil {
				t.ActivePane = i
				break
			}
		}
	}
	return false
}

// Close tears down every pane in the tab.
func (t *Tab) Close() {
	for i := 0; i < t.NumPanes; i++ {
		if t.Panes[i] != nil {
			t.Panes[i].Close()
		}
	}
	t.Active = false
}
