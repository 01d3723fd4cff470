// Package display owns the scan-out buffer, its user-space mapping, a
// shadow buffer of identical layout, and the original controller
// configuration to restore on exit (spec.md §3 "Display surface",
// §4.1). It wraps internal/kms, which speaks DRM ioctls directly.
package display

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/OpalAayan/kitty-tty/internal/kms"
)

// Surface is immutable after initialisation (spec.md §3).
type Surface struct {
	Width, Height int
	Stride        int
	Size          int

	Pixels []byte // mmap'd scan-out buffer
	Shadow []byte // heap buffer of identical layout

	dev    *kms.Device
	fbID   uint32
	handle uint32
}

// Open performs the full sequence described in spec.md §4.1: pick a
// device/connector/crtc, allocate a dumb buffer at the native mode's
// resolution, add a framebuffer object, map it, allocate the shadow
// buffer, and install the mode. Any failure unwinds whatever has
// already been allocated so partial state never leaks.
func Open() (*Surface, error) {
	dev, err := kms.Open()
	if err != nil {
		return nil, err
	}

	mode := dev.NativeMode()
	width, height := uint32(mode.Width), uint32(mode.Height)

	handle, pitch, size, err := dev.CreateDumbBuffer(width, height)
	if err != nil {
		dev.Close()
		return nil, err
	}

	fbID, err := dev.AddFB(width, height, pitch, handle)
	if err != nil {
		dev.DestroyDumbBuffer(handle)
		dev.Close()
		return nil, err
	}

	offset, err := dev.MapOffset(handle)
	if err != nil {
		dev.RemoveFB(fbID)
		dev.DestroyDumbBuffer(handle)
		dev.Close()
		return nil, err
	}

	mem, err := unix.Mmap(dev.FD(), int64(offset), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		dev.RemoveFB(fbID)
		dev.DestroyDumbBuffer(handle)
		dev.Close()
		return nil, fmt.Errorf("%w: %v", kms.ErrMapFailed, err)
	}

	s := &Surface{
		Width:  int(width),
		Height: int(height),
		Stride: int(pitch),
		Size:   int(size),
		Pixels: mem,
		Shadow: make([]byte, size),
		dev:    dev,
		fbID:   fbID,
		handle: handle,
	}

	if err := dev.SetCrtc(fbID); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Commit bulk-copies the shadow buffer into the scan-out buffer
// (spec.md §4.5 step 5 "Swap", §8 invariant #2).
func (s *Surface) Commit() {
	copy(s.Pixels, s.Shadow)
}

// DropMaster / BecomeMaster proxy to the underlying device for the
// console arbiter (spec.md §4.6).
func (s *Surface) DropMaster() error   { return s.dev.DropMaster() }
func (s *Surface) BecomeMaster() error { return s.dev.BecomeMaster() }

// Close reinstalls the saved controller configuration, unmaps the
// buffer, destroys the framebuffer object, destroys the dumb buffer
// handle, and closes the device (spec.md §4.1 "Shutdown").
func (s *Surface) Close() error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	record(s.dev.RestoreCrtc())
	if s.Pixels != nil {
		record(unix.Munmap(s.Pixels))
		s.Pixels = nil
	}
	record(s.dev.RemoveFB(s.fbID))
	record(s.dev.DestroyDumbBuffer(s.handle))
	record(s.dev.Close())
	return first
}
