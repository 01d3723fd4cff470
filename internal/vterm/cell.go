// Package vterm implements the cell-grid terminal-emulation state
// machine a Pane feeds pty output bytes into (spec.md §3 "Pane
// session", §4.3). It is a cut-down sibling of the teacher's
// apps/texelterm/parser package: UTF-8 decoding, cursor motion, erase,
// SGR attributes, and line wrap, with no scrollback/history/search
// (spec.md §1 Non-goals).
package vterm

// Attribute is a bitset of SGR attributes.
type Attribute uint8

const (
	AttrBold Attribute = 1 << iota
	AttrUnderline
	AttrReverse
)

// ColorMode selects how a Color's fields should be interpreted.
type ColorMode uint8

const (
	ColorModeDefault ColorMode = iota
	ColorModeStandard
	ColorMode256
	ColorModeRGB
)

// Color is a terminal colour in one of four representations.
type Color struct {
	Mode  ColorMode
	Value uint8 // standard (0-7) or 256-palette index
	R, G, B uint8
}

var (
	DefaultFG = Color{Mode: ColorModeDefault}
	DefaultBG = Color{Mode: ColorModeDefault}
)

// Kind distinguishes the cell sum type called out in spec.md §9
// ("Polymorphism by cell kind"): a normal glyph cell, the trailing
// continuation column of a width-2 glyph, or an erased/blank cell.
type Kind uint8

const (
	KindGlyph Kind = iota
	KindContinuation
	KindBlank
)

// Cell is one grid position.
type Cell struct {
	Kind  Kind
	Rune  rune
	FG    Color
	BG    Color
	Attr  Attribute
	Width int // 0, 1, or 2 — derived from Kind but cached for the compositor
}

// Empty reports whether the compositor should skip drawing a glyph for
// this cell (spec.md §4.5 foreground pass: "width 0, null codepoint, or
// plain space").
func (c Cell) Empty() bool {
	return c.Width == 0 || c.Rune == 0 || c.Rune == ' '
}

func blankCell() Cell {
	return Cell{Kind: KindBlank, Rune: 0, FG: DefaultFG, BG: DefaultBG, Width: 1}
}
