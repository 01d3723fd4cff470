// Package compositor rasterises the active tab's pane grids into the
// display's shadow buffer each frame, in two passes (backgrounds then
// foregrounds), then the caller commits the shadow buffer to scan-out
// (spec.md §4.5). The coverage-blend math is ported from
// original_source/drm_canvas.c's draw_bitmap.
package compositor

import (
	"strconv"

	"github.com/OpalAayan/kitty-tty/internal/config"
	"github.com/OpalAayan/kitty-tty/internal/display"
	"github.com/OpalAayan/kitty-tty/internal/font"
	"github.com/OpalAayan/kitty-tty/internal/tab"
	"github.com/OpalAayan/kitty-tty/internal/vterm"
)

// Compositor owns the font face and configured colours; it is
// stateless across frames otherwise (spec.md §4.5).
type Compositor struct {
	surface *display.Surface
	face    *font.Face
	cw, ch, asc int
	cfg     config.Config
}

func New(surface *display.Surface, face *font.Face, cw, ch, asc int) *Compositor {
	return &Compositor{surface: surface, face: face, cw: cw, ch: ch, asc: asc, cfg: config.Get()}
}

// Render executes the pipeline in spec.md §4.5 for the active tab
// only: background pass, foreground pass, splitter, tab bar. The
// caller (event loop) is responsible for calling surface.Commit()
// afterwards (spec.md §4.5 step 5 "Swap").
func (c *Compositor) Render(t *tab.Tab, tabIndex, numTabs int) {
	c.clearShadow()

	c.backgroundPass(t)
	c.foregroundPass(t)
	if t.NumPanes == 2 {
		c.drawSplitter(t)
	}
	c.drawTabBar(tabIndex, numTabs)
}

func (c *Compositor) clearShadow() {
	bg := c.cfg.DefaultBG
	for i := 0; i < len(c.surface.Shadow); i += 4 {
		c.surface.Shadow[i+0] = bg.B
		c.surface.Shadow[i+1] = bg.G
		c.surface.Shadow[i+2] = bg.R
		c.surface.Shadow[i+3] = 0
	}
}

func (c *Compositor) putPixel(x, y int, rgb [3]uint8) {
	if x < 0 || y < 0 || x >= c.surface.Width || y >= c.surface.Height {
		return
	}
	off := y*c.surface.Stride + x*4
	if off+3 >= len(c.surface.Shadow) {
		return
	}
	// Little-endian 0x00RRGGBB word: bytes in memory order are blue,
	// green, red, padding.
	c.surface.Shadow[off+0] = rgb[2]
	c.surface.Shadow[off+1] = rgb[1]
	c.surface.Shadow[off+2] = rgb[0]
	c.surface.Shadow[off+3] = 0
}

func (c *Compositor) fillRect(x0, y0, w, h int, rgb [3]uint8) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			c.putPixel(x, y, rgb)
		}
	}
}

func rgbOf(c config.RGB) [3]uint8 { return [3]uint8{c.R, c.G, c.B} }

// cellColors resolves a cell's effective (fg, bg) applying the
// default-marker fallback and reverse-attribute swap (spec.md §4.5
// step 1), and whether it is the active cursor cell.
func (c *Compositor) cellColors(cell vterm.Cell, isCursor bool) (fg, bg [3]uint8) {
	defFG, defBG := rgbOf(c.cfg.DefaultFG), rgbOf(c.cfg.DefaultBG)
	fg = cell.FG.Resolve(defFG)
	bg = cell.BG.Resolve(defBG)
	if cell.Attr&vterm.AttrReverse != 0 {
		fg, bg = bg, fg
	}
	if isCursor {
		bg = rgbOf(c.cfg.CursorBG)
		fg = rgbOf(c.cfg.CursorFG)
	}
	return fg, bg
}

func (c *Compositor) backgroundPass(t *tab.Tab) {
	activePane := t.ActivePaneRef()
	for i := 0; i < t.NumPanes; i++ {
		p := t.Panes[i]
		if p == nil {
			continue
		}
		grid := p.Term.Grid()
		cx, cy := p.Term.Cursor()
		for r, row := range grid {
			for col, cell := range row {
				if cell.Width == 0 {
					continue
				}
				isCursor := p == activePane && col == cx && r == cy
				_, bg := c.cellColors(cell, isCursor)
				x0 := p.StartColPx + col*c.cw
				y0 := r * c.ch
				c.fillRect(x0, y0, cell.Width*c.cw, 1*c.ch, bg)
			}
		}
	}
}

func (c *Compositor) foregroundPass(t *tab.Tab) {
	activePane := t.ActivePaneRef()
	for i := 0; i < t.NumPanes; i++ {
		p := t.Panes[i]
		if p == nil {
			continue
		}
		grid := p.Term.Grid()
		cx, cy := p.Term.Cursor()
		for r, row := range grid {
			for col, cell := range row {
				if cell.Empty() {
					continue
				}
				isCursor := p == activePane && col == cx && r == cy
				fg, bg := c.cellColors(cell, isCursor)

				g, ok := c.face.Glyph(cell.Rune)
				if !ok || g.Width == 0 {
					continue
				}

				xOffset := (cell.Width*c.cw - g.AdvancePx) / 2
				if xOffset < 0 {
					xOffset = 0
				}
				penX := p.StartColPx + col*c.cw + xOffset + g.BitmapLeft
				penY := r*c.ch + c.asc - g.BitmapTop

				c.blitGlyph(g, penX, penY, fg, bg)
			}
		}
	}
}

// blitGlyph performs the coverage blend from spec.md §4.2: for
// coverage a, out = round((fg*a + bg*(255-a))/255) per channel;
// a == 0 must not touch the destination.
func (c *Compositor) blitGlyph(g font.Glyph, x0, y0 int, fg, bg [3]uint8) {
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			a := g.Coverage[row*g.Pitch+col]
			if a == 0 {
				continue
			}
			px, py := x0+col, y0+row
			if px < 0 || py < 0 || px >= c.surface.Width || py >= c.surface.Height {
				continue
			}
			var rgb [3]uint8
			for ch := 0; ch < 3; ch++ {
				fgC, bgC := int(fg[ch]), int(bg[ch])
				rgb[ch] = uint8((fgC*int(a) + bgC*(255-int(a)) + 127) / 255)
			}
			c.putPixel(px, py, rgb)
		}
	}
}

func (c *Compositor) drawSplitter(t *tab.Tab) {
	x := t.Panes[1].StartColPx - 1
	fg := rgbOf(c.cfg.TabBarFG)
	rows := t.TermRows * c.ch
	for y := 0; y < rows; y++ {
		c.putPixel(x, y, fg)
	}
}

func (c *Compositor) drawTabBar(activeIdx, numTabs int) {
	barY := c.surface.Height - c.ch
	c.fillRect(0, barY, c.surface.Width, c.ch, rgbOf(c.cfg.TabBarBG))

	penX := c.cw / 2
	for i := 0; i < numTabs; i++ {
		bg := rgbOf(c.cfg.TabBarBG)
		fg := rgbOf(c.cfg.TabBarFG)
		if i == activeIdx {
			bg = rgbOf(c.cfg.TabBarActive)
			fg = rgbOf(c.cfg.CursorFG)
		}
		label := tabLabel(i + 1)
		penX = c.drawLabel(label, penX, barY, fg, bg)
		penX += c.cw / 2
	}
}

func tabLabel(n int) string {
	return " " + strconv.Itoa(n) + " "
}

func (c *Compositor) drawLabel(label string, penX, y int, fg, bg [3]uint8) int {
	for _, r := range label {
		c.fillRect(penX, y, c.cw, c.ch, bg)
		g, ok := c.face.Glyph(r)
		if ok && g.Width > 0 {
			px := penX + g.BitmapLeft
			py := y + c.asc - g.BitmapTop
			c.blitGlyph(g, px, py, fg, bg)
		}
		penX += c.cw
	}
	return penX
}
