package console

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// The VT_* ioctl numbers and vt_mode.Mode values below are the stable
// linux/vt.h constants; golang.org/x/sys/unix does not expose them.
const (
	vtGetMode = 0x5601
	vtSetMode = 0x5602
	vtRelDisp = 0x5605

	vtProcess = 1
	vtAckAcq  = 2
)

// vtMode mirrors struct vt_mode from linux/vt.h. golang.org/x/sys/unix
// defines neither this struct nor the VT_* numbers above, so it is
// hand-laid-out here the same way internal/kms lays out the drm_mode_*
// structs it needs.
type vtMode struct {
	Mode   int8
	Waitv  int8
	Relsig int16
	Acqsig int16
	Frsig  int16
}

func vtIoctl(fd int, req, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func getVTMode(fd int) (vtMode, error) {
	var m vtMode
	err := vtIoctl(fd, vtGetMode, uintptr(unsafe.Pointer(&m)))
	return m, err
}

func setVTMode(fd int, m vtMode) error {
	return vtIoctl(fd, vtSetMode, uintptr(unsafe.Pointer(&m)))
}

// ackRelease acknowledges a console-release request (VT_RELDISP with a
// positive value grants the switch; the kernel-documented alternative
// of passing 0 refuses it, which this arbiter never does).
func ackRelease(fd int) error {
	return vtIoctl(fd, vtRelDisp, 1)
}

// ackAcquire acknowledges a console-acquire notification.
func ackAcquire(fd int) error {
	return vtIoctl(fd, vtRelDisp, uintptr(vtAckAcq))
}
