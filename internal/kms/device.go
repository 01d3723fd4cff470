package kms

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	// ErrNoDevice covers "no scan-out device", "no connected monitor",
	// "no controller" (spec.md §7 Initialisation-fatal).
	ErrNoDevice      = errors.New("kms: no usable device found")
	ErrBufferFailed  = errors.New("kms: dumb buffer allocation rejected")
	ErrFBFailed      = errors.New("kms: framebuffer install rejected")
	ErrMapFailed     = errors.New("kms: mapping failed")
)

// Mode is the native display mode selected at init.
type Mode struct {
	Width, Height uint16
	raw           modeInfo
}

// Device owns an open DRM card fd, the connector/crtc it bound, and
// the dumb buffer it allocated (spec.md §4.1).
type Device struct {
	fd          int
	connectorID uint32
	crtcID      uint32
	mode        Mode

	handle uint32
	pitch  uint32
	size   uint64
	mapOff uint64

	savedCrtc modeCrtc
	haveSaved bool
}

// Open enumerates /dev/dri/cardN in order, picks the first device
// reporting a connector and a crtc, then a connected connector with
// at least one mode, and binds it preferring the crtc already
// attached to its encoder (spec.md §4.1 "Contract").
func Open() (*Device, error) {
	var lastErr error
	for card := 0; card < 16; card++ {
		path := fmt.Sprintf("/dev/dri/card%d", card)
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			continue
		}
		fd := int(f.Fd())

		res, err := getResources(fd)
		if err != nil || res.CountConns == 0 || res.CountCrtcs == 0 {
			f.Close()
			continue
		}

		connIDs := make([]uint32, res.CountConns)
		crtcIDs := make([]uint32, res.CountCrtcs)
		res2 := res
		res2.ConnectorIDPtr = uint64(uintptr(unsafe.Pointer(&connIDs[0])))
		res2.CrtcIDPtr = uint64(uintptr(unsafe.Pointer(&crtcIDs[0])))
		if err := ioctl(fd, iowr(nrGetResources, unsafe.Sizeof(res2)), unsafe.Pointer(&res2)); err != nil {
			f.Close()
			lastErr = err
			continue
		}

		conn, connID, ok := findConnectedConnector(fd, connIDs)
		if !ok {
			f.Close()
			continue
		}

		crtcID := findCrtc(fd, connID, crtcIDs)
		if crtcID == 0 {
			f.Close()
			continue
		}

		d := &Device{fd: fd, connectorID: connID, crtcID: crtcID}
		d.mode.raw = conn.modes[0]
		d.mode.Width = conn.modes[0].HDisplay
		d.mode.Height = conn.modes[0].VDisplay

		if err := d.saveCrtc(); err != nil {
			f.Close()
			lastErr = err
			continue
		}
		return d, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, lastErr)
	}
	return nil, ErrNoDevice
}

type connectorInfo struct {
	encoderID uint32
	modes     []modeInfo
}

func findConnectedConnector(fd int, connIDs []uint32) (connectorInfo, uint32, bool) {
	for _, id := range connIDs {
		var gc modeGetConnector
		gc.ConnectorID = id
		if err := ioctl(fd, iowr(nrGetConnector, unsafe.Sizeof(gc)), unsafe.Pointer(&gc)); err != nil {
			continue
		}
		if gc.Connection != connectionConnected || gc.CountModes == 0 {
			continue
		}
		modes := make([]modeInfo, gc.CountModes)
		gc.ModesPtr = uint64(uintptr(unsafe.Pointer(&modes[0])))
		if err := ioctl(fd, iowr(nrGetConnector, unsafe.Sizeof(gc)), unsafe.Pointer(&gc)); err != nil {
			continue
		}
		return connectorInfo{encoderID: gc.EncoderID, modes: modes}, id, true
	}
	return connectorInfo{}, 0, false
}

func findCrtc(fd int, connID uint32, crtcIDs []uint32) uint32 {
	var gc modeGetConnector
	gc.ConnectorID = connID
	if ioctl(fd, iowr(nrGetConnector, unsafe.Sizeof(gc)), unsafe.Pointer(&gc)) == nil && gc.EncoderID != 0 {
		var ge modeGetEncoder
		ge.EncoderID = gc.EncoderID
		if ioctl(fd, iowr(nrGetEncoder, unsafe.Sizeof(ge)), unsafe.Pointer(&ge)) == nil && ge.CrtcID != 0 {
			return ge.CrtcID
		}
	}
	if len(crtcIDs) > 0 {
		return crtcIDs[0]
	}
	return 0
}

func getResources(fd int) (modeCardRes, error) {
	var res modeCardRes
	if err := ioctl(fd, iowr(nrGetResources, unsafe.Sizeof(res)), unsafe.Pointer(&res)); err != nil {
		return res, err
	}
	return res, nil
}

func (d *Device) saveCrtc() error {
	var gc modeCrtc
	gc.CrtcID = d.crtcID
	if err := ioctl(d.fd, iowr(nrGetCrtc, unsafe.Sizeof(gc)), unsafe.Pointer(&gc)); err != nil {
		return err
	}
	d.savedCrtc = gc
	d.haveSaved = true
	return nil
}

// NativeMode returns the connector's first advertised mode, used as
// the native resolution (spec.md §4.1).
func (d *Device) NativeMode() Mode { return d.mode }

// CreateDumbBuffer allocates a (width,height,32bpp) dumb buffer,
// returning the handle, stride ("pitch"), and total byte size
// (spec.md §4.1).
func (d *Device) CreateDumbBuffer(width, height uint32) (handle uint32, stride uint32, size uint64, err error) {
	req := modeCreateDumb{Width: width, Height: height, Bpp: 32}
	if err := ioctl(d.fd, iowr(nrCreateDumb, unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrBufferFailed, err)
	}
	d.handle, d.pitch, d.size = req.Handle, req.Pitch, req.Size
	return req.Handle, req.Pitch, req.Size, nil
}

// AddFB installs a 24/32bpp framebuffer object over handle, returning
// the fb id (spec.md §4.1 "add a 24-bit/32-bit framebuffer object").
func (d *Device) AddFB(width, height, pitch, handle uint32) (uint32, error) {
	cmd := modeFBCmd{Width: width, Height: height, Pitch: pitch, Bpp: 32, Depth: 24, Handle: handle}
	if err := ioctl(d.fd, iowr(nrAddFB, unsafe.Sizeof(cmd)), unsafe.Pointer(&cmd)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFBFailed, err)
	}
	return cmd.FbID, nil
}

// MapOffset returns the mmap offset for the dumb buffer handle, to be
// passed to unix.Mmap by the display package (spec.md §4.1 "map it
// READ|WRITE|SHARED").
func (d *Device) MapOffset(handle uint32) (uint64, error) {
	req := modeMapDumb{Handle: handle}
	if err := ioctl(d.fd, iowr(nrMapDumb, unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMapFailed, err)
	}
	return req.Offset, nil
}

// SetCrtc installs fbID on the bound crtc/connector using the native
// mode (spec.md §4.1 "install the framebuffer on the chosen
// controller with the chosen mode").
func (d *Device) SetCrtc(fbID uint32) error {
	var crtc modeCrtc
	crtc.CrtcID = d.crtcID
	crtc.FbID = fbID
	crtc.CountConnectors = 1
	connIDs := []uint32{d.connectorID}
	crtc.SetConnectorsPtr = uint64(uintptr(unsafe.Pointer(&connIDs[0])))
	crtc.ModeValid = 1
	crtc.Mode = d.mode.raw
	return ioctl(d.fd, iowr(nrSetCrtc, unsafe.Sizeof(crtc)), unsafe.Pointer(&crtc))
}

// RestoreCrtc reinstalls the saved controller configuration captured
// at Open time (spec.md §4.1 "Shutdown").
func (d *Device) RestoreCrtc() error {
	if !d.haveSaved {
		return nil
	}
	crtc := d.savedCrtc
	connIDs := []uint32{d.connectorID}
	crtc.SetConnectorsPtr = uint64(uintptr(unsafe.Pointer(&connIDs[0])))
	crtc.CountConnectors = 1
	return ioctl(d.fd, iowr(nrSetCrtc, unsafe.Sizeof(crtc)), unsafe.Pointer(&crtc))
}

// RemoveFB destroys a framebuffer object.
func (d *Device) RemoveFB(fbID uint32) error {
	id := fbID
	return ioctl(d.fd, iowr(nrRmFB, unsafe.Sizeof(id)), unsafe.Pointer(&id))
}

// DestroyDumbBuffer frees a dumb buffer handle.
func (d *Device) DestroyDumbBuffer(handle uint32) error {
	req := modeDestroyDumb{Handle: handle}
	return ioctl(d.fd, iowr(nrDestroyDumb, unsafe.Sizeof(req)), unsafe.Pointer(&req))
}

// FD exposes the raw device descriptor, needed by the display package
// to mmap and by the console arbiter to drop/retake master.
func (d *Device) FD() int { return d.fd }

// DropMaster / BecomeMaster toggle scan-out mastership around console
// switches (spec.md §4.6). DRM_IOCTL_DROP_MASTER/SET_MASTER are
// argument-less ioctls (_IO, not _IOWR).
func (d *Device) DropMaster() error {
	return ioctl(d.fd, (drmIoctlBase<<8)|0x1f, nil)
}

func (d *Device) BecomeMaster() error {
	return ioctl(d.fd, (drmIoctlBase<<8)|0x1e, nil)
}

// Close releases the device fd.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}
