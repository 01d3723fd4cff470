// Package font loads a monospace TrueType face and exposes
// per-codepoint 8-bit coverage bitmaps plus uniform cell metrics
// (spec.md §3 "Cell metrics", §4.2 "Font raster"). Grounded on
// apps/kittyimageapp/KittyImageApp.go, the only file in the retrieval
// pack importing github.com/golang/freetype/truetype and
// golang.org/x/image/font.
package font

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var (
	ErrNotFound       = errors.New("font: no readable candidate path found")
	ErrInvalidMetrics = errors.New("font: probed metrics are non-positive")
)

// Metrics are the three positive integers fixed for the process
// lifetime once the font is loaded (spec.md §3 "Cell metrics").
type Metrics struct {
	CW  int // advance width
	CH  int // line height
	Asc int // ascender
}

// Glyph is an 8-bit coverage grid with its own pitch, plus the offsets
// needed to blit it at the correct pen position (spec.md §4.2
// "Coverage blending").
type Glyph struct {
	Width, Height int
	Pitch         int
	Coverage      []byte // row-major, len == Pitch*Height
	BitmapLeft    int
	BitmapTop     int
	AdvancePx     int
}

// Face loads one candidate font at a fixed pixel size and rasterises
// glyphs on demand. No glyph cache is mandated by spec.md §4.2;
// correctness does not depend on one, though callers may wrap Face
// with their own cache.
type Face struct {
	ttFace font.Face
	px     int
}

// Load tries candidates in order and returns the first that opens and
// loads successfully at pixelSize (spec.md §4.2 "Contract").
func Load(candidates []string, pixelSize int) (*Face, error) {
	var lastErr error
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		tf, err := truetype.Parse(data)
		if err != nil {
			lastErr = err
			continue
		}
		face := truetype.NewFace(tf, &truetype.Options{
			Size:    float64(pixelSize),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		return &Face{ttFace: face, px: pixelSize}, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, lastErr)
	}
	return nil, ErrNotFound
}

// Metrics probes the 'M' glyph to compute cw, ch, asc, rejecting the
// font if either metric is non-positive (spec.md §4.2).
func (f *Face) Metrics() (Metrics, error) {
	adv, ok := f.ttFace.GlyphAdvance('M')
	if !ok {
		return Metrics{}, ErrInvalidMetrics
	}
	cw := round26_6(adv)

	fm := f.ttFace.Metrics()
	ch := round26_6(fm.Height)
	asc := round26_6(fm.Ascent)

	if cw <= 0 || ch <= 0 || asc <= 0 {
		return Metrics{}, ErrInvalidMetrics
	}
	return Metrics{CW: cw, CH: ch, Asc: asc}, nil
}

func round26_6(v fixed.Int26_6) int {
	return int((v + 32) >> 6)
}

// Glyph loads the rendered coverage bitmap for r on demand (spec.md
// §4.2: "on each cell render, load a codepoint's rendered coverage
// bitmap on demand").
func (f *Face) Glyph(r rune) (Glyph, bool) {
	dr, mask, maskp, advance, ok := f.ttFace.Glyph(fixed.Point26_6{}, r)
	if !ok || dr.Empty() {
		return Glyph{AdvancePx: round26_6(advance)}, ok
	}

	w, h := dr.Dx(), dr.Dy()
	g := Glyph{
		Width:      w,
		Height:     h,
		Pitch:      w,
		Coverage:   make([]byte, w*h),
		BitmapLeft: dr.Min.X,
		BitmapTop:  -dr.Min.Y,
		AdvancePx:  round26_6(advance),
	}

	// mask's coordinate space need not align with dr's: the pixel for
	// destination (x,y) within dr is mask.At(maskp.X+(x-dr.Min.X),
	// maskp.Y+(y-dr.Min.Y)), per golang.org/x/image/font.Face.Glyph's
	// contract.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
			g.Coverage[y*w+x] = byte(a >> 8)
		}
	}
	return g, true
}
