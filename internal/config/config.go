// Package config holds the compiled-in constants the engine needs at
// startup: font selection, default colours, socket/log path templates,
// and the timing constants the pane write-retry loop and the
// control-socket accept loop rely on.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// AppName is used to derive the per-user control-socket and log file
// paths (spec.md §6).
const AppName = "fbterm"

// RGB is a 24-bit colour triple.
type RGB struct {
	R, G, B uint8
}

// Config is the immutable set of compiled-in defaults. Two of them can
// be overridden from the environment for development on machines
// without the target fonts: FBTERM_FONT_SIZE sets FontPixelSize and
// FBTERM_FONT_PATH is prepended to FontPaths. The colours, timings and
// MaxTabs are not read from the environment.
type Config struct {
	FontPixelSize int
	FontPaths     []string

	DefaultFG     RGB
	DefaultBG     RGB
	CursorFG      RGB
	CursorBG      RGB
	TabBarBG      RGB
	TabBarFG      RGB
	TabBarActive  RGB

	// WriteRetryTimeout bounds how long a single blocked write to a
	// pane master waits for writability before retrying (spec.md §4.3).
	WriteRetryTimeout time.Duration
	// WriteRetryMax bounds the number of consecutive blocking retries
	// before a write surrenders.
	WriteRetryMax int

	// ControlAcceptTimeout bounds how long the control socket waits to
	// read a command from a freshly accepted client (spec.md §4.7).
	ControlAcceptTimeout time.Duration

	MaxTabs int
}

var (
	once sync.Once
	cfg  Config
)

// Get returns the process-wide configuration, built once from compiled
// defaults and any FBTERM_* environment overrides.
func Get() Config {
	once.Do(func() {
		cfg = Config{
			FontPixelSize: envInt("FBTERM_FONT_SIZE", 20),
			FontPaths: []string{
				"/usr/share/fonts/TTF/DejaVuSansMono.ttf",
				"/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
				"/usr/share/fonts/liberation/LiberationMono-Regular.ttf",
				"/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
				"/usr/share/fonts/noto/NotoSansMono-Regular.ttf",
				"/usr/share/fonts/truetype/noto/NotoSansMono-Regular.ttf",
			},
			DefaultFG:            RGB{0xE0, 0xE0, 0xE0},
			DefaultBG:            RGB{0x1A, 0x1B, 0x26},
			CursorFG:             RGB{0x1A, 0x1B, 0x26},
			CursorBG:             RGB{0xE0, 0xE0, 0xE0},
			TabBarBG:             RGB{0x24, 0x25, 0x36},
			TabBarFG:             RGB{0x9A, 0x9B, 0xB0},
			TabBarActive:         RGB{0x3A, 0x3D, 0x5C},
			WriteRetryTimeout:    100 * time.Millisecond,
			WriteRetryMax:        50,
			ControlAcceptTimeout: 200 * time.Millisecond,
			MaxTabs:              8,
		}
		if p := os.Getenv("FBTERM_FONT_PATH"); p != "" {
			cfg.FontPaths = append([]string{p}, cfg.FontPaths...)
		}
	})
	return cfg
}

// SocketPath returns the per-user control-socket path (spec.md §6).
func SocketPath() string {
	return fmt.Sprintf("/tmp/%s_%d.sock", AppName, os.Getuid())
}

// LogPath returns the log file path (spec.md §6), truncated on start.
func LogPath() string {
	return fmt.Sprintf("/tmp/%s.log", AppName)
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
