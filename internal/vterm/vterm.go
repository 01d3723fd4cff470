package vterm

import (
	"github.com/mattn/go-runewidth"
)

// VTerm is a cell-grid terminal-emulation state machine sized to
// (rows, cols). It is the terminal-emulation instance a Pane wraps
// (spec.md §3 "Pane session").
type VTerm struct {
	cols, rows int
	grid       [][]Cell

	cursorX, cursorY int
	cursorVisible    bool

	currentFG, currentBG Color
	defaultFG, defaultBG Color
	currentAttr          Attribute

	titleHandler func(string)
	title        string

	parser parserState
}

// Option configures a VTerm at construction time.
type Option func(*VTerm)

// WithTitleChangeHandler registers a callback invoked when an OSC 0/2
// title-set sequence is parsed. The engine has no window manager to act
// on it (spec.md §1 Non-goals), but the callback lets callers surface
// it (e.g. a future tab label) without the parser knowing about tabs.
func WithTitleChangeHandler(f func(string)) Option {
	return func(v *VTerm) { v.titleHandler = f }
}

// New creates a VTerm of the given size with UTF-8 always enabled and
// the supplied default foreground/background installed (spec.md §4.3).
func New(cols, rows int, fg, bg Color, opts ...Option) *VTerm {
	v := &VTerm{
		defaultFG: fg,
		defaultBG: bg,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.Reset(cols, rows)
	return v
}

// Reset clears the screen, resets cursor/attributes, and (re)allocates
// the grid at the given size.
func (v *VTerm) Reset(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	v.cols, v.rows = cols, rows
	v.grid = make([][]Cell, rows)
	for y := range v.grid {
		v.grid[y] = make([]Cell, cols)
		for x := range v.grid[y] {
			v.grid[y][x] = blankCell()
			v.grid[y][x].FG = v.defaultFG
			v.grid[y][x].BG = v.defaultBG
		}
	}
	v.cursorX, v.cursorY = 0, 0
	v.cursorVisible = true
	v.currentFG, v.currentBG = v.defaultFG, v.defaultBG
	v.currentAttr = 0
	v.parser = parserState{}
}

// Resize grows or shrinks the grid in place, preserving whatever
// overlaps the old and new size (spec.md §4.4 split/shrink path).
func (v *VTerm) Resize(cols, rows int) {
	if cols == v.cols && rows == v.rows {
		return
	}
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	next := make([][]Cell, rows)
	for y := range next {
		next[y] = make([]Cell, cols)
		for x := range next[y] {
			next[y][x] = blankCell()
			next[y][x].FG = v.defaultFG
			next[y][x].BG = v.defaultBG
		}
		if y < len(v.grid) {
			copy(next[y], v.grid[y])
		}
	}
	v.grid = next
	v.cols, v.rows = cols, rows
	if v.cursorX >= cols {
		v.cursorX = cols - 1
	}
	if v.cursorY >= rows {
		v.cursorY = rows - 1
	}
}

// Grid returns the live cell grid (rows x cols). Callers must not
// retain it across the next Write call.
func (v *VTerm) Grid() [][]Cell { return v.grid }

// Size reports the current column/row count.
func (v *VTerm) Size() (cols, rows int) { return v.cols, v.rows }

// Cursor reports the cursor position in (col, row). col equals the
// column count while a wrap is pending after the last column was written.
func (v *VTerm) Cursor() (x, y int) { return v.cursorX, v.cursorY }

// CursorVisible reports whether the cursor should be painted.
func (v *VTerm) CursorVisible() bool { return v.cursorVisible }

// Title returns the last OSC-set window title, if any.
func (v *VTerm) Title() string { return v.title }

// Write feeds raw pty output bytes into the parser (spec.md §4.3
// "feed input bytes"). It never blocks and never fails: malformed
// escape sequences are absorbed silently, matching the teacher's
// Parser.Parse behaviour of tolerating garbage from misbehaving
// children.
func (v *VTerm) Write(b []byte) {
	for _, r := range string(b) {
		v.feed(r)
	}
}

func (v *VTerm) curCell() *Cell {
	if v.cursorY < 0 || v.cursorY >= len(v.grid) {
		return nil
	}
	row := v.grid[v.cursorY]
	if v.cursorX < 0 || v.cursorX >= len(row) {
		return nil
	}
	return &row[v.cursorX]
}

func (v *VTerm) placeRune(r rune) {
	width := runewidth.RuneWidth(r)
	if width <= 0 {
		width = 1
	}
	if v.cursorX+width > v.cols {
		v.newline()
	}
	if c := v.curCell(); c != nil {
		c.Kind = KindGlyph
		c.Rune = r
		c.FG = v.currentFG
		c.BG = v.currentBG
		c.Attr = v.currentAttr
		c.Width = width
	}
	if width == 2 && v.cursorX+1 < v.cols {
		v.grid[v.cursorY][v.cursorX+1] = Cell{Kind: KindContinuation, FG: v.currentFG, BG: v.currentBG, Width: 0}
	}
	// After the last column is written the cursor rests at cols, so the
	// next printable rune wraps to the following line.
	v.cursorX += width
}

func (v *VTerm) newline() {
	v.cursorX = 0
	v.lineFeed()
}

// lineFeed advances the cursor one row, scrolling the grid up when
// already at the bottom row (spec.md does not mandate scrollback, so
// scrolled-off rows are simply discarded).
func (v *VTerm) lineFeed() {
	if v.cursorY+1 < v.rows {
		v.cursorY++
		return
	}
	copy(v.grid, v.grid[1:])
	last := make([]Cell, v.cols)
	for x := range last {
		last[x] = blankCell()
		last[x].FG = v.defaultFG
		last[x].BG = v.defaultBG
	}
	v.grid[v.rows-1] = last
}

func (v *VTerm) carriageReturn() { v.cursorX = 0 }

func (v *VTerm) backspace() {
	if v.cursorX > 0 {
		v.cursorX--
	}
}

func (v *VTerm) tab() {
	next := ((v.cursorX / 8) + 1) * 8
	if next >= v.cols {
		next = v.cols - 1
	}
	v.cursorX = next
}

func (v *VTerm) eraseLine(mode int) {
	row := v.grid[v.cursorY]
	switch mode {
	case 0:
		for x := v.cursorX; x < len(row); x++ {
			row[x] = blankCell()
		}
	case 1:
		for x := 0; x <= v.cursorX && x < len(row); x++ {
			row[x] = blankCell()
		}
	case 2:
		for x := range row {
			row[x] = blankCell()
		}
	}
}

func (v *VTerm) eraseScreen(mode int) {
	switch mode {
	case 0:
		v.eraseLine(0)
		for y := v.cursorY + 1; y < v.rows; y++ {
			for x := range v.grid[y] {
				v.grid[y][x] = blankCell()
			}
		}
	case 1:
		v.eraseLine(1)
		for y := 0; y < v.cursorY; y++ {
			for x := range v.grid[y] {
				v.grid[y][x] = blankCell()
			}
		}
	case 2:
		for y := range v.grid {
			for x := range v.grid[y] {
				v.grid[y][x] = blankCell()
			}
		}
	}
}

func (v *VTerm) moveCursor(dx, dy int) {
	v.cursorX += dx
	v.cursorY += dy
	if v.cursorX < 0 {
		v.cursorX = 0
	}
	if v.cursorX >= v.cols {
		v.cursorX = v.cols - 1
	}
	if v.cursorY < 0 {
		v.cursorY = 0
	}
	if v.cursorY >= v.rows {
		v.cursorY = v.rows - 1
	}
}

func (v *VTerm) setCursorPos(row, col int) {
	v.cursorY = clamp(row-1, 0, v.rows-1)
	v.cursorX = clamp(col-1, 0, v.cols-1)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
