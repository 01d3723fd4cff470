package pane

import (
	"testing"
	"time"

	"github.com/OpalAayan/kitty-tty/internal/vterm"
)

func TestSpawnRejectsNonPositiveSize(t *testing.T) {
	if _, err := Spawn("/bin/cat", 0, 10, 0, vterm.Color{}, vterm.Color{}); err == nil {
		t.Fatalf("expected error for zero columns")
	}
}

func TestSpawnDrainAndClose(t *testing.T) {
	p, err := Spawn("/bin/cat", 20, 5, 0, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()

	if !p.Alive() {
		t.Fatalf("pane should be alive right after spawn")
	}
	if p.FD() < 0 {
		t.Fatalf("FD() returned invalid descriptor")
	}

	if err := p.Feed([]byte("hello\n")); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	// cat echoes input back; poll for it to appear in the vterm grid
	// rather than sleeping a fixed amount.
	deadline := time.Now().Add(2 * time.Second)
	found := false
	for time.Now().Before(deadline) {
		p.Drain()
		row := p.Term.Grid()[0]
		if len(row) > 0 && row[0].Rune == 'h' {
			found = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !found {
		t.Fatalf("expected echoed input to appear in the terminal grid")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.Alive() {
		t.Fatalf("pane should not be alive after Close")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}

func TestResizeUpdatesTermSize(t *testing.T) {
	p, err := Spawn("/bin/cat", 20, 5, 0, vterm.Color{}, vterm.Color{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()

	p.Resize(30, 10)
	cols, rows := p.Term.Size()
	if cols != 30 || rows != 10 {
		t.Fatalf("Term.Size() = (%d,%d), want (30,10)", cols, rows)
	}
}
