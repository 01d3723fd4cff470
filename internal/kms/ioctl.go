// Package kms drives the Linux Direct Rendering Manager mode-setting
// interface directly through ioctl(2), mirroring what libdrm does
// under the hood. No Go DRM binding exists in the retrieval pack, so
// this is grounded on original_source/drm_canvas.c's exact ioctl
// sequence (open card, GETRESOURCES, GETCONNECTOR, GETENCODER,
// CREATE_DUMB, ADDFB, MAP_DUMB via mmap, GETCRTC, SETCRTC) with the
// request numbers taken from the stable Linux uapi drm.h ABI.
package kms

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	drmIoctlBase    = 0x64 // 'd'
	drmCommandBase  = 0x40

	nrGetResources = 0xA0
	nrGetCrtc      = 0xA1
	nrSetCrtc      = 0xA2
	nrGetEncoder   = 0xA6
	nrGetConnector = 0xA7
	nrAddFB        = 0xAE
	nrRmFB         = 0xAF
	nrCreateDumb   = 0xB2
	nrMapDumb      = 0xB3
	nrDestroyDumb  = 0xB4
)

func iowr(nr uintptr, size uintptr) uintptr {
	const dirReadWrite = 3
	return (dirReadWrite << 30) | (drmIoctlBase << 8) | nr | (size << 16)
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// --- uapi drm_mode_* struct layouts (field order/sizes per drm.h) ---

type modeCardRes struct {
	FbIDPtr        uint64
	CrtcIDPtr      uint64
	ConnectorIDPtr uint64
	EncoderIDPtr   uint64
	CountFBs       uint32
	CountCrtcs     uint32
	CountConns     uint32
	CountEncoders  uint32
	MinWidth       uint32
	MaxWidth       uint32
	MinHeight      uint32
	MaxHeight      uint32
}

type modeInfo struct {
	Clock      uint32
	HDisplay   uint16
	HSyncStart uint16
	HSyncEnd   uint16
	HTotal     uint16
	HSkew      uint16
	VDisplay   uint16
	VSyncStart uint16
	VSyncEnd   uint16
	VTotal     uint16
	VScan      uint16
	VRefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

type modeGetConnector struct {
	EncodersPtr     uint64
	ModesPtr        uint64
	PropsPtr        uint64
	PropValuesPtr   uint64
	CountModes      uint32
	CountProps      uint32
	CountEncoders   uint32
	EncoderID       uint32
	ConnectorID     uint32
	ConnectorType   uint32
	ConnectorTypeID uint32
	Connection      uint32
	MMWidth         uint32
	MMHeight        uint32
	Subpixel        uint32
	Pad             uint32
}

type modeGetEncoder struct {
	EncoderID      uint32
	EncoderType    uint32
	CrtcID         uint32
	PossibleCrtcs  uint32
	PossibleClones uint32
}

type modeCrtc struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID           uint32
	FbID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             modeInfo
}

type modeCreateDumb struct {
	Height uint32
	Width  uint32
	Bpp    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

type modeMapDumb struct {
	Handle uint32
	Pad    uint32
	Offset uint64
}

type modeDestroyDumb struct {
	Handle uint32
}

type modeFBCmd struct {
	FbID   uint32
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint32
	Depth  uint32
	Handle uint32
}

const connectionConnected = 1
