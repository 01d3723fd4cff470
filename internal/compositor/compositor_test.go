package compositor

import (
	"testing"

	"github.com/OpalAayan/kitty-tty/internal/config"
	"github.com/OpalAayan/kitty-tty/internal/display"
	"github.com/OpalAayan/kitty-tty/internal/font"
)

func newTestCompositor(w, h int) (*Compositor, *display.Surface) {
	surf := &display.Surface{
		Width:  w,
		Height: h,
		Stride: w * 4,
		Shadow: make([]byte, w*h*4),
	}
	c := &Compositor{surface: surf, cfg: config.Get(), cw: 8, ch: 16, asc: 12}
	return c, surf
}

func TestTabLabelPadsIndexWithSpaces(t *testing.T) {
	cases := map[int]string{1: " 1 ", 7: " 7 ", 42: " 42 "}
	for n, want := range cases {
		if got := tabLabel(n); got != want {
			t.Fatalf("tabLabel(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestPutPixelClipsOutOfBounds(t *testing.T) {
	c, surf := newTestCompositor(4, 4)
	c.putPixel(-1, 0, [3]uint8{1, 2, 3})
	c.putPixel(0, -1, [3]uint8{1, 2, 3})
	c.putPixel(100, 100, [3]uint8{1, 2, 3})
	for _, b := range surf.Shadow {
		if b != 0 {
			t.Fatalf("out-of-bounds putPixel wrote into the shadow buffer")
		}
	}
}

func TestPutPixelWritesBGRPadLayout(t *testing.T) {
	c, surf := newTestCompositor(4, 4)
	c.putPixel(1, 0, [3]uint8{0x10, 0x20, 0x30})

	off := 0*surf.Stride + 1*4
	if surf.Shadow[off+0] != 0x30 || surf.Shadow[off+1] != 0x20 || surf.Shadow[off+2] != 0x10 || surf.Shadow[off+3] != 0 {
		t.Fatalf("unexpected pixel bytes: %v", surf.Shadow[off:off+4])
	}
}

func TestFillRectCoversExactRegion(t *testing.T) {
	c, surf := newTestCompositor(4, 4)
	c.fillRect(1, 1, 2, 2, [3]uint8{0xff, 0xff, 0xff})

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			off := y*surf.Stride + x*4
			inside := x >= 1 && x < 3 && y >= 1 && y < 3
			painted := surf.Shadow[off] != 0 || surf.Shadow[off+1] != 0 || surf.Shadow[off+2] != 0
			if inside != painted {
				t.Fatalf("pixel (%d,%d): painted=%v want %v", x, y, painted, inside)
			}
		}
	}
}

func TestBlitGlyphSkipsZeroCoverageAndWritesFullCoverage(t *testing.T) {
	c, surf := newTestCompositor(4, 4)
	g := font.Glyph{
		Width: 2, Height: 1, Pitch: 2,
		Coverage: []byte{0, 255},
	}
	fg := [3]uint8{255, 0, 0}
	bg := [3]uint8{0, 0, 0}
	c.blitGlyph(g, 0, 0, fg, bg)

	off0 := 0
	if surf.Shadow[off0] != 0 || surf.Shadow[off0+1] != 0 || surf.Shadow[off0+2] != 0 {
		t.Fatalf("coverage 0 must not touch the destination, got %v", surf.Shadow[off0:off0+4])
	}
	off1 := 4
	if surf.Shadow[off1+2] != 255 {
		t.Fatalf("coverage 255 should write full fg red channel, got %d", surf.Shadow[off1+2])
	}
}

func TestClearShadowFillsDefaultBackground(t *testing.T) {
	c, surf := newTestCompositor(2, 2)
	c.clearShadow()

	bg := c.cfg.DefaultBG
	for off := 0; off < len(surf.Shadow); off += 4 {
		if surf.Shadow[off] != bg.B || surf.Shadow[off+1] != bg.G || surf.Shadow[off+2] != bg.R {
			t.Fatalf("clearShadow did not fill default background at offset %d: %v", off, surf.Shadow[off:off+4])
		}
	}
}
