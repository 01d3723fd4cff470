package tab

import (
	"testing"

	"github.com/OpalAayan/kitty-tty/internal/vterm"
)

const cw, ch = 8, 16

func TestNewRejectsTooSmallGeometry(t *testing.T) {
	if _, err := New("/bin/cat", cw-1, ch*2, cw, ch, vterm.Color{}, vterm.Color{}); err == nil {
		t.Fatalf("expected rejection for sub-cell-width geometry")
	}
}

func TestNewCreatesSinglePaneCoveringFullWidth(t *testing.T) {
	tb, err := New("/bin/cat", cw*80, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tb.Close()

	if tb.NumPanes != 1 {
		t.Fatalf("NumPanes = %d, want 1", tb.NumPanes)
	}
	if tb.Panes[0].Cols != 80 {
		t.Fatalf("Panes[0].Cols = %d, want 80", tb.Panes[0].Cols)
	}
	if tb.Panes[0].StartColPx != 0 {
		t.Fatalf("Panes[0].StartColPx = %d, want 0", tb.Panes[0].StartColPx)
	}
}

func TestSplitVerticalHalvesColumnsAndSetsOrigin(t *testing.T) {
	tb, err := New("/bin/cat", cw*80, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tb.Close()

	if err := tb.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}
	if tb.NumPanes != 2 {
		t.Fatalf("NumPanes = %d, want 2", tb.NumPanes)
	}
	if tb.Panes[0].Cols != 40 || tb.Panes[1].Cols != 40 {
		t.Fatalf("expected 40/40 split, got %d/%d", tb.Panes[0].Cols, tb.Panes[1].Cols)
	}
	if tb.Panes[1].StartColPx != 40*cw {
		t.Fatalf("right pane StartColPx = %d, want %d", tb.Panes[1].StartColPx, 40*cw)
	}
	if tb.ActivePane != 1 {
		t.Fatalf("ActivePane = %d, want 1 (new pane becomes active)", tb.ActivePane)
	}
}

func TestSplitVerticalRejectsSecondSplit(t *testing.T) {
	tb, err := New("/bin/cat", cw*80, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tb.Close()

	if err := tb.SplitVertical(); err != nil {
		t.Fatalf("first split: %v", err)
	}
	if err := tb.SplitVertical(); err == nil {
		t.Fatalf("expected second split to be rejected")
	}
}

func TestSplitVerticalRejectsNarrowPane(t *testing.T) {
	tb, err := New("/bin/cat", cw*3, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tb.Close()

	if err := tb.SplitVertical(); err == nil {
		t.Fatalf("expected split of a 3-column pane to be rejected")
	}
	if tb.NumPanes != 1 {
		t.Fatalf("NumPanes changed on rejected split: %d", tb.NumPanes)
	}
}

func TestFocusLeftRightOnlyMeaningfulWithTwoPanes(t *testing.T) {
	tb, err := New("/bin/cat", cw*80, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tb.Close()

	tb.FocusLeft()
	if tb.ActivePane != 0 {
		t.Fatalf("FocusLeft on a single-pane tab should be a no-op on ActivePane, got %d", tb.ActivePane)
	}

	if err := tb.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}
	tb.FocusLeft()
	if tb.ActivePane != 0 {
		t.Fatalf("FocusLeft: ActivePane = %d, want 0", tb.ActivePane)
	}
	tb.FocusRight()
	if tb.ActivePane != 1 {
		t.Fatalf("FocusRight: ActivePane = %d, want 1", tb.ActivePane)
	}
}

func TestReapDeadDoesNotRestoreLeftColumnsWhenRightDies(t *testing.T) {
	tb, err := New("/bin/cat", cw*80, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tb.Close()
	if err := tb.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}

	right := tb.Panes[1]
	right.MarkDead()

	becameInactive := tb.ReapDead()
	if becameInactive {
		t.Fatalf("tab should still be active: left pane survives")
	}
	if tb.Panes[1] != nil {
		t.Fatalf("dead right pane should have been cleared")
	}
	if tb.NumPanes != 1 {
		t.Fatalf("NumPanes = %d, want 1 (collapsed to single-pane layout)", tb.NumPanes)
	}
	// Documented (not auto-healed) behaviour: left pane keeps its
	// half-width column count rather than growing back to full width.
	if tb.Panes[0].Cols != 40 {
		t.Fatalf("left pane Cols = %d, want 40 (unrestored)", tb.Panes[0].Cols)
	}
	if tb.ActivePane != 0 {
		t.Fatalf("ActivePane should fall back to the surviving pane, got %d", tb.ActivePane)
	}
}

func TestReapDeadCollapsesWhenLeftPaneDiesInsteadOfRight(t *testing.T) {
	tb, err := New("/bin/cat", cw*80, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tb.Close()
	if err := tb.SplitVertical(); err != nil {
		t.Fatalf("SplitVertical: %v", err)
	}

	survivor := tb.Panes[1]
	tb.Panes[0].MarkDead()

	if becameInactive := tb.ReapDead(); becameInactive {
		t.Fatalf("tab should still be active: right pane survives")
	}
	if tb.NumPanes != 1 {
		t.Fatalf("NumPanes = %d, want 1", tb.NumPanes)
	}
	if tb.Panes[0] != survivor {
		t.Fatalf("surviving pane should have been moved into slot 0")
	}
	if tb.Panes[1] != nil {
		t.Fatalf("slot 1 should be cleared after collapse")
	}
	if tb.ActivePane != 0 {
		t.Fatalf("ActivePane = %d, want 0", tb.ActivePane)
	}
}

func TestReapDeadMarksTabInactiveWhenAllPanesDie(t *testing.T) {
	tb, err := New("/bin/cat", cw*80, ch*25, cw, ch, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tb.Panes[0].MarkDead()

	if becameInactive := tb.ReapDead(); !becameInactive {
		t.Fatalf("expected tab to become inactive once its only pane dies")
	}
	if tb.Active {
		t.Fatalf("tab.Active should be false")
	}
}
