package font

import (
	"errors"
	"testing"

	"github.com/OpalAayan/kitty-tty/internal/config"
)

func TestLoadReturnsErrNotFoundWhenNoCandidateExists(t *testing.T) {
	_, err := Load([]string{"/no/such/font.ttf", "/also/missing.ttf"}, 20)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() err = %v, want ErrNotFound", err)
	}
}

func TestLoadAndMetricsOnAnAvailableFont(t *testing.T) {
	face, err := Load(config.Get().FontPaths, 20)
	if err != nil {
		t.Skip("no TTF candidate present on this machine; font raster is a hardware/asset seam")
	}

	m, err := face.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.CW <= 0 || m.CH <= 0 || m.Asc <= 0 {
		t.Fatalf("Metrics returned non-positive value: %+v", m)
	}

	g, ok := face.Glyph('M')
	if !ok {
		t.Fatalf("Glyph('M') not ok")
	}
	if g.Width <= 0 || g.Height <= 0 {
		t.Fatalf("Glyph('M') has non-positive dimensions: %+v", g)
	}
}
